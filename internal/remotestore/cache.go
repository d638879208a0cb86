package remotestore

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 256

// CachedStore wraps a Store with an LRU read cache. Version blobs are
// immutable once written, so a cached read stays valid until this process
// writes the path itself; a Write invalidates the entry.
type CachedStore struct {
	inner Store
	cache *lru.Cache[string, File]
}

func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, File](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{inner: inner, cache: cache}, nil
}

func (s *CachedStore) Read(ctx context.Context, path string) (File, error) {
	key := normalizePath(path)
	if f, ok := s.cache.Get(key); ok {
		return File{Content: append([]byte(nil), f.Content...), Fingerprint: f.Fingerprint}, nil
	}
	f, err := s.inner.Read(ctx, path)
	if err != nil {
		return File{}, err
	}
	s.cache.Add(key, File{Content: append([]byte(nil), f.Content...), Fingerprint: f.Fingerprint})
	return f, nil
}

func (s *CachedStore) Write(ctx context.Context, path string, content []byte, fingerprint string) (string, error) {
	next, err := s.inner.Write(ctx, path, content, fingerprint)
	if err != nil {
		return "", err
	}
	s.cache.Remove(normalizePath(path))
	return next, nil
}

func (s *CachedStore) List(ctx context.Context, dir string) ([]Entry, error) {
	return s.inner.List(ctx, dir)
}
