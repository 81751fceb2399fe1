// Package postgres keeps a model in PostgreSQL. The model is served from the
// in-memory store; each committed transaction upserts the JSONB buckets its
// changes touched and appends a revision journal row.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"hydrocore/internal/infra/persistence/memory"
	"hydrocore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.PersistentStore = (*Store)(nil)

const (
	driverName = "pgx"
	defaultDSN = "postgres://localhost/hydrocore?sslmode=disable"
)

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS model_buckets (name TEXT PRIMARY KEY, payload JSONB NOT NULL, revision BIGINT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS model_revisions (revision BIGINT PRIMARY KEY, committed_at TIMESTAMPTZ NOT NULL, changes INTEGER NOT NULL, buckets TEXT[] NOT NULL)`,
}

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store serves the model from memory and mirrors commits to Postgres.
type Store struct {
	*memory.Store
	db       *sql.DB
	mu       sync.Mutex
	revision int64
	dirty    memory.DirtyBuckets
}

// NewStore connects to dsn (a local default when empty), creates the schema
// and loads the stored model.
func NewStore(ctx context.Context, dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(driverName, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	s := &Store{Store: memory.NewStore(engine), db: db, dirty: make(memory.DirtyBuckets)}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
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

	revs, err := s.db.QueryContext(ctx, `SELECT revision FROM model_revisions ORDER BY revision DESC LIMIT 1`)
	if err != nil {
		return fmt.Errorf("select revision: %w", err)
	}
	defer func() { _ = revs.Close() }()
	for revs.Next() {
		var rev int64
		if err := revs.Scan(&rev); err != nil {
			return fmt.Errorf("scan revision: %w", err)
		}
		s.revision = max(s.revision, rev)
	}
	return revs.Err()
}

// RunInTransaction commits fn in memory and then mirrors the touched buckets.
// A failed mirror is reported wrapping domain.ErrNotPersisted; the in-memory
// commit stands and its buckets are rewritten by the next successful mirror.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
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

func (s *Store) persist(ctx context.Context, changes []domain.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty.Mark(changes)
	buckets := s.dirty.List()
	snapshot := s.ExportState()
	next := s.revision + 1

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, name := range buckets {
		data, err := snapshot.MarshalBucket(name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO model_buckets(name,payload,revision) VALUES($1,$2,$3) ON CONFLICT(name) DO UPDATE SET payload=EXCLUDED.payload, revision=EXCLUDED.revision`,
			name, data, next); err != nil {
			return fmt.Errorf("upsert %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO model_revisions(revision,committed_at,changes,buckets) VALUES($1,$2,$3,$4)`,
		next, time.Now().UTC(), len(changes), pgTextArray(buckets)); err != nil {
		return fmt.Errorf("journal revision %d: %w", next, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revision %d: %w", next, err)
	}
	committed = true
	s.revision = next
	clear(s.dirty)
	return nil
}

// pgTextArray renders a TEXT[] literal; bucket names never need quoting.
func pgTextArray(values []string) string {
	out := "{"
	for i, v := range values {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out + "}"
}

// Revision returns the latest journaled revision.
func (s *Store) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
