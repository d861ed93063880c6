// Package store caches finished profiles in SQLite, keyed by the SHA-256 of
// the source PDF.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spigell/arie/internal/resume"
)

const DefaultPath = "arie-cache.db"

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	digest     TEXT PRIMARY KEY,
	profile    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`

type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the cache database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// Get returns the cached profile for digest.
func (s *Store) Get(ctx context.Context, digest string) (*resume.Profile, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT profile FROM profiles WHERE digest = ?", digest).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query profile: %w", err)
	}

	var profile resume.Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, false, fmt.Errorf("decode cached profile: %w", err)
	}
	profile.Normalize()

	return &profile, true, nil
}

// Put stores profile under digest, replacing any previous entry.
func (s *Store) Put(ctx context.Context, digest string, profile *resume.Profile) error {
	if profile == nil {
		return errors.New("profile is nil")
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (digest, profile, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(digest) DO UPDATE SET profile = excluded.profile, created_at = excluded.created_at`,
		digest, string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("store profile: %w", err)
	}

	return nil
}

// Count returns the number of cached profiles.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles").Scan(&n); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return n, nil
}
