// Package remotestore adapts remote file hosts that offer single-file
// read/write-with-conflict-check semantics and no cross-file atomicity.
// The github backend is the primary one; s3, postgres and memory backends
// implement the same contract for self-hosted deployments and tests.
package remotestore

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Read for a path that does not exist.
	ErrNotFound = errors.New("remotestore: file not found")
	// ErrConflict is returned by Write when the supplied fingerprint does
	// not match the file's current revision, or when no fingerprint was
	// supplied for an existing file.
	ErrConflict = errors.New("remotestore: fingerprint conflict")
)

// File is a file's bytes plus the opaque token identifying its current
// content revision.
type File struct {
	Content     []byte
	Fingerprint string
}

// Entry is one immediate child of a listed directory.
type Entry struct {
	Name  string
	IsDir bool
}

// Store is the adapter contract. Write creates the file when fingerprint is
// empty and the path does not exist, replaces it when fingerprint matches
// the current revision, and fails with ErrConflict otherwise. List returns
// an empty slice, not an error, for a directory that does not exist.
type Store interface {
	Read(ctx context.Context, path string) (File, error)
	Write(ctx context.Context, path string, content []byte, fingerprint string) (string, error)
	List(ctx context.Context, dir string) ([]Entry, error)
}

// Put is the compare-and-swap write every caller goes through: read the
// current fingerprint (NotFound means create), then write with it. Safe for
// the human-paced write concurrency this workload has; a true concurrent
// writer to the same path still gets ErrConflict rather than a lost update.
func Put(ctx context.Context, s Store, path string, content []byte) (string, error) {
	fingerprint := ""
	cur, err := s.Read(ctx, path)
	switch {
	case err == nil:
		fingerprint = cur.Fingerprint
	case errors.Is(err, ErrNotFound):
	default:
		return "", fmt.Errorf("read before write %s: %w", path, err)
	}
	return s.Write(ctx, path, content, fingerprint)
}

// blobFingerprint mimics a git blob SHA-1, the fingerprint shape the github
// backend reports, so the other backends are drop-in equivalents.
func blobFingerprint(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return fmt.Sprintf("%x", h.Sum(nil))
}
