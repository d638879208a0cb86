package remotestore

import (
	"context"
	"testing"
)

// countingStore counts reads hitting the inner backend.
type countingStore struct {
	Store
	reads int
}

func (c *countingStore) Read(ctx context.Context, path string) (File, error) {
	c.reads++
	return c.Store.Read(ctx, path)
}

func TestCachedStoreServesRepeatReadsFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: NewMemoryStore()}
	cached, err := NewCachedStore(inner, 8)
	if err != nil {
		t.Fatalf("NewCachedStore: %v", err)
	}

	if _, err := cached.Write(ctx, "blob.png", []byte{1, 2}, ""); err != nil {
		t.Fatalf("write: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := cached.Read(ctx, "blob.png"); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
	}
	if inner.reads != 1 {
		t.Fatalf("inner reads = %d, want 1", inner.reads)
	}
}

func TestCachedStoreInvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: NewMemoryStore()}
	cached, _ := NewCachedStore(inner, 8)

	fp, _ := cached.Write(ctx, "f", []byte("a"), "")
	cached.Read(ctx, "f")
	if _, err := cached.Write(ctx, "f", []byte("b"), fp); err != nil {
		t.Fatalf("update: %v", err)
	}
	f, err := cached.Read(ctx, "f")
	if err != nil || string(f.Content) != "b" {
		t.Fatalf("read after update = %q, %v", f.Content, err)
	}
}
