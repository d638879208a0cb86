package remotestore

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore keeps the file layout in one table with the conflict check
// pushed into the UPDATE's WHERE clause, so concurrent writers race on the
// database rather than in this process. Used by self-hosted deployments and
// CI where no GitHub credential is available.
type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) ensureSchema() error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS remote_files (
    path TEXT PRIMARY KEY,
    content BYTEA NOT NULL DEFAULT ''::bytea,
    fingerprint TEXT NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Read(ctx context.Context, path string) (File, error) {
	if err := s.ensureSchema(); err != nil {
		return File{}, err
	}
	var f File
	err := s.db.QueryRowContext(ctx,
		`SELECT content, fingerprint FROM remote_files WHERE path=$1`,
		normalizePath(path)).Scan(&f.Content, &f.Fingerprint)
	if err == sql.ErrNoRows {
		return File{}, ErrNotFound
	}
	return f, err
}

func (s *PostgresStore) Write(ctx context.Context, path string, content []byte, fingerprint string) (string, error) {
	if err := s.ensureSchema(); err != nil {
		return "", err
	}
	path = normalizePath(path)
	next := blobFingerprint(content)

	if fingerprint == "" {
		res, err := s.db.ExecContext(ctx, `
INSERT INTO remote_files (path, content, fingerprint, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (path) DO NOTHING
`, path, content, next, time.Now())
		if err != nil {
			return "", err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return "", ErrConflict
		}
		return next, nil
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE remote_files SET content=$2, fingerprint=$3, updated_at=$4
WHERE path=$1 AND fingerprint=$5
`, path, content, next, time.Now(), fingerprint)
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM remote_files WHERE path=$1)`, path).Scan(&exists); err != nil {
			return "", err
		}
		if !exists {
			return "", ErrNotFound
		}
		return "", ErrConflict
	}
	return next, nil
}

func (s *PostgresStore) List(ctx context.Context, dir string) ([]Entry, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	prefix := normalizePath(dir)
	if prefix != "" {
		prefix += "/"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM remote_files WHERE path LIKE $1 ORDER BY path`,
		prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]bool)
	entries := make([]Entry, 0, 16)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		rest := strings.TrimPrefix(p, prefix)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
