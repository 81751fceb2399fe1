// Package sqlite keeps a model in an embedded SQLite file. Every committed
// transaction rewrites the snapshot buckets its changes touched and appends a
// row to the revision journal.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"hydrocore/internal/infra/persistence/memory"
	"hydrocore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

// DefaultPath is used when NewStore receives an empty path.
const DefaultPath = "hydrocore.db"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS model_buckets (
		name     TEXT PRIMARY KEY,
		payload  BLOB NOT NULL,
		revision INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS model_revisions (
		revision     INTEGER PRIMARY KEY,
		committed_at TEXT NOT NULL,
		changes      INTEGER NOT NULL,
		buckets      TEXT NOT NULL
	)`,
}

// Store is an in-memory model mirrored into SQLite.
type Store struct {
	*memory.Store
	db       *sql.DB
	path     string
	mu       sync.Mutex
	revision int64
	dirty    memory.DirtyBuckets
}

// NewStore opens (creating when needed) the database at path and loads the
// model it holds.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &Store{Store: memory.NewStore(engine), db: db, path: path, dirty: make(memory.DirtyBuckets)}
	if err := s.load(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	for _, ddl := range schema {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name, payload FROM model_buckets`)
	if err != nil {
		return fmt.Errorf("select buckets: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var snapshot memory.Snapshot
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return fmt.Errorf("scan bucket: %w", err)
		}
		if err := snapshot.UnmarshalBucket(name, payload); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate buckets: %w", err)
	}
	s.ImportState(snapshot)
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(revision), 0) FROM model_revisions`).Scan(&s.revision); err != nil {
		return fmt.Errorf("read revision: %w", err)
	}
	return nil
}

// RunInTransaction commits fn in memory, then writes the touched buckets and
// a journal row. Transactions that change nothing are not journaled. When the
// write fails the error wraps domain.ErrNotPersisted and the buckets are
// written again with the next commit.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	var changes []domain.Change
	res, err := s.Store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if err := fn(tx); err != nil {
			return err
		}
		changes = tx.Changes()
		return nil
	})
	if err != nil || len(changes) == 0 {
		return res, err
	}
	if err := s.persist(ctx, changes); err != nil {
		return res, fmt.Errorf("%w: %w", domain.ErrNotPersisted, err)
	}
	return res, nil
}

func (s *Store) persist(ctx context.Context, changes []domain.Change) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty.Mark(changes)
	buckets := s.dirty.List()
	snapshot := s.ExportState()
	next := s.revision + 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, name := range buckets {
		data, err := snapshot.MarshalBucket(name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO model_buckets(name, payload, revision) VALUES(?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET payload=excluded.payload, revision=excluded.revision`,
			name, data, next); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO model_revisions(revision, committed_at, changes, buckets) VALUES(?, ?, ?, ?)`,
		next, time.Now().UTC().Format(time.RFC3339Nano), len(changes), strings.Join(buckets, ",")); err != nil {
		return fmt.Errorf("journal revision %d: %w", next, err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.revision = next
	clear(s.dirty)
	return nil
}

// Revision returns the number of committed, journaled transactions.
func (s *Store) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// DB exposes the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
