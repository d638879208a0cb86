package remotestore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store with the full conflict semantics,
// used by tests and as a scratch target.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string]File
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string]File)}
}

func (s *MemoryStore) Read(_ context.Context, path string) (File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[normalizePath(path)]
	if !ok {
		return File{}, ErrNotFound
	}
	return File{Content: append([]byte(nil), f.Content...), Fingerprint: f.Fingerprint}, nil
}

func (s *MemoryStore) Write(_ context.Context, path string, content []byte, fingerprint string) (string, error) {
	path = normalizePath(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, exists := s.files[path]
	if exists && fingerprint == "" {
		return "", ErrConflict
	}
	if exists && fingerprint != cur.Fingerprint {
		return "", ErrConflict
	}
	if !exists && fingerprint != "" {
		return "", ErrNotFound
	}
	next := blobFingerprint(content)
	s.files[path] = File{Content: append([]byte(nil), content...), Fingerprint: next}
	return next, nil
}

func (s *MemoryStore) List(_ context.Context, dir string) ([]Entry, error) {
	prefix := normalizePath(dir)
	if prefix != "" {
		prefix += "/"
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	entries := make([]Entry, 0, 8)
	for path := range s.files {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		name, isDir := rest, false
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			name, isDir = rest[:i], true
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		entries = append(entries, Entry{Name: name, IsDir: isDir})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func normalizePath(p string) string {
	return strings.Trim(strings.TrimSpace(p), "/")
}
