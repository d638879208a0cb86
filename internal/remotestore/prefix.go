package remotestore

import "context"

// PrefixStore scopes a Store to a sub-path, so backends that hold many
// projects in one namespace (the postgres table, or a shared bucket)
// present each project with its own root.
type PrefixStore struct {
	inner  Store
	prefix string
}

func NewPrefixStore(inner Store, prefix string) *PrefixStore {
	return &PrefixStore{inner: inner, prefix: normalizePath(prefix)}
}

func (s *PrefixStore) join(path string) string {
	p := normalizePath(path)
	if s.prefix == "" {
		return p
	}
	if p == "" {
		return s.prefix
	}
	return s.prefix + "/" + p
}

func (s *PrefixStore) Read(ctx context.Context, path string) (File, error) {
	return s.inner.Read(ctx, s.join(path))
}

func (s *PrefixStore) Write(ctx context.Context, path string, content []byte, fingerprint string) (string, error) {
	return s.inner.Write(ctx, s.join(path), content, fingerprint)
}

func (s *PrefixStore) List(ctx context.Context, dir string) ([]Entry, error) {
	return s.inner.List(ctx, s.join(dir))
}
