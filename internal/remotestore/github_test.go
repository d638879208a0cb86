package remotestore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeGitHub emulates the slice of the contents API the store uses.
type fakeGitHub struct {
	files map[string]struct {
		content []byte
		sha     string
	}
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{files: map[string]struct {
		content []byte
		sha     string
	}{}}
}

func (f *fakeGitHub) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing bearer token on %s %s", r.Method, r.URL.Path)
		}
		const prefix = "/repos/octocat/design/contents/"
		if !strings.HasPrefix(r.URL.Path, prefix) {
			http.NotFound(w, r)
			return
		}
		path := strings.TrimPrefix(r.URL.Path, prefix)

		switch r.Method {
		case http.MethodGet:
			if file, ok := f.files[path]; ok {
				json.NewEncoder(w).Encode(map[string]any{
					"type":     "file",
					"name":     path,
					"content":  base64.StdEncoding.EncodeToString(file.content),
					"encoding": "base64",
					"sha":      file.sha,
				})
				return
			}
			// Directory listing.
			var items []map[string]any
			seen := map[string]bool{}
			dirPrefix := strings.TrimSuffix(path, "/") + "/"
			for p := range f.files {
				if !strings.HasPrefix(p, dirPrefix) {
					continue
				}
				rest := strings.TrimPrefix(p, dirPrefix)
				name, typ := rest, "file"
				if i := strings.IndexByte(rest, '/'); i >= 0 {
					name, typ = rest[:i], "dir"
				}
				if seen[name] {
					continue
				}
				seen[name] = true
				items = append(items, map[string]any{"type": typ, "name": name})
			}
			if len(items) == 0 {
				http.NotFound(w, r)
				return
			}
			json.NewEncoder(w).Encode(items)

		case http.MethodPut:
			var body struct {
				Content string `json:"content"`
				SHA     string `json:"sha"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			raw, _ := base64.StdEncoding.DecodeString(body.Content)
			cur, exists := f.files[path]
			if exists && body.SHA != cur.sha {
				w.WriteHeader(http.StatusConflict)
				return
			}
			if !exists && body.SHA != "" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				return
			}
			next := blobFingerprint(raw)
			f.files[path] = struct {
				content []byte
				sha     string
			}{raw, next}
			json.NewEncoder(w).Encode(map[string]any{"content": map[string]any{"sha": next}})

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newTestStore(t *testing.T) (*GitHubStore, *fakeGitHub) {
	fake := newFakeGitHub()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	client := NewGitHubClient("test-token")
	client.SetAPIBase(server.URL)
	return client.Repo("octocat", "design"), fake
}

func TestGitHubStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	fp, err := store.Write(ctx, "architectai.json", []byte(`{"name":"demo"}`), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f, err := store.Read(ctx, "architectai.json")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(f.Content) != `{"name":"demo"}` || f.Fingerprint != fp {
		t.Fatalf("read = %+v, fingerprint want %q", f, fp)
	}

	if _, err := store.Write(ctx, "architectai.json", []byte(`{}`), fp); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestGitHubStoreNotFoundAndConflict(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Read(ctx, "missing.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("read missing = %v, want ErrNotFound", err)
	}

	fp, _ := store.Write(ctx, "f.json", []byte("a"), "")
	if _, err := store.Write(ctx, "f.json", []byte("b"), "stale-sha"); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale write = %v, want ErrConflict", err)
	}
	if _, err := store.Write(ctx, "f.json", []byte("b"), ""); !errors.Is(err, ErrConflict) {
		t.Fatalf("no-sha write over existing = %v, want ErrConflict", err)
	}
	if _, err := store.Write(ctx, "f.json", []byte("b"), fp); err != nil {
		t.Fatalf("valid update: %v", err)
	}
}

func TestGitHubStoreList(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	entries, err := store.List(ctx, "versions")
	if err != nil || len(entries) != 0 {
		t.Fatalf("list missing dir = %v, %v; want empty, nil", entries, err)
	}

	store.Write(ctx, "versions/v1/version.json", []byte("{}"), "")
	store.Write(ctx, "versions/v2/version.json", []byte("{}"), "")

	entries, err = store.List(ctx, "versions")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("list = %+v", entries)
	}
	for _, e := range entries {
		if !e.IsDir {
			t.Fatalf("entry %q should be a directory", e.Name)
		}
	}
}
