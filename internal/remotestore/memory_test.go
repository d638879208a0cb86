package remotestore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreCreateReadUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.Read(ctx, "a/b.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Read missing = %v, want ErrNotFound", err)
	}

	fp1, err := s.Write(ctx, "a/b.json", []byte("one"), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f, err := s.Read(ctx, "a/b.json")
	if err != nil || string(f.Content) != "one" || f.Fingerprint != fp1 {
		t.Fatalf("Read = %+v, %v", f, err)
	}

	fp2, err := s.Write(ctx, "a/b.json", []byte("two"), fp1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if fp2 == fp1 {
		t.Fatal("fingerprint did not change on update")
	}
}

func TestMemoryStoreConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	fp, _ := s.Write(ctx, "f", []byte("x"), "")

	// Existing file without a fingerprint.
	if _, err := s.Write(ctx, "f", []byte("y"), ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("create-over-existing = %v, want ErrConflict", err)
	}
	// Stale fingerprint.
	if _, err := s.Write(ctx, "f", []byte("y"), "stale"); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale fingerprint = %v, want ErrConflict", err)
	}
	// Winning writer then loser with the old fingerprint.
	if _, err := s.Write(ctx, "f", []byte("y"), fp); err != nil {
		t.Fatalf("valid update = %v", err)
	}
	if _, err := s.Write(ctx, "f", []byte("z"), fp); !errors.Is(err, ErrConflict) {
		t.Fatalf("lost update = %v, want ErrConflict", err)
	}
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	entries, err := s.List(ctx, "versions")
	if err != nil {
		t.Fatalf("List missing dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("List missing dir = %v, want empty", entries)
	}

	s.Write(ctx, "versions/v1/version.json", []byte("{}"), "")
	s.Write(ctx, "versions/v1/diagrams/d.png", []byte{1}, "")
	s.Write(ctx, "versions/v2/version.json", []byte("{}"), "")
	s.Write(ctx, "architectai.json", []byte("{}"), "")

	entries, err = s.List(ctx, "versions")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "v1" || !entries[0].IsDir || entries[1].Name != "v2" {
		t.Fatalf("List = %+v", entries)
	}

	entries, _ = s.List(ctx, "versions/v1")
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	if len(entries) != 2 {
		t.Fatalf("List v1 = %v", names)
	}
}

func TestPutIsCreateThenUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := Put(ctx, s, "p.json", []byte("a")); err != nil {
		t.Fatalf("Put create: %v", err)
	}
	if _, err := Put(ctx, s, "p.json", []byte("b")); err != nil {
		t.Fatalf("Put update: %v", err)
	}
	f, _ := s.Read(ctx, "p.json")
	if string(f.Content) != "b" {
		t.Fatalf("content = %q", f.Content)
	}
}
