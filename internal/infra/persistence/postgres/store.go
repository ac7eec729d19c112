// Package postgres stores whole-project snapshots in a Postgres state table,
// one JSON row per bucket.
package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/tacticsdb?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store reads and writes bucket snapshots.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back
// to defaultDSN) and ensures the state table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Payloads are stored as JSON rather than JSONB so record key order survives
// a round trip.
var stateDDL = []string{
	`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSON NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`ALTER TABLE state ADD COLUMN IF NOT EXISTS checksum TEXT NOT NULL DEFAULT ''`,
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	for _, ddl := range stateDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure state table: %w", err)
		}
	}
	return nil
}

// ReadBuckets returns every stored bucket.
func (s *Store) ReadBuckets(ctx context.Context) (map[string][]byte, error) {
	out := map[string][]byte{}
	err := s.scan(ctx, `SELECT bucket, payload FROM state`, func(bucket string, payload []byte) {
		if len(payload) > 0 {
			out[bucket] = payload
		}
	})
	return out, err
}

func (s *Store) checksums(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	err := s.scan(ctx, `SELECT bucket, checksum FROM state`, func(bucket string, sum []byte) {
		out[bucket] = string(sum)
	})
	return out, err
}

func (s *Store) scan(ctx context.Context, query string, fn func(bucket string, value []byte)) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var bucket string
		var value []byte
		if err := rows.Scan(&bucket, &value); err != nil {
			return fmt.Errorf("scan state: %w", err)
		}
		fn(bucket, value)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	return nil
}

// plan lists the buckets to upsert and the stored buckets to delete, both
// sorted. Buckets whose checksum is unchanged are left alone.
type plan struct {
	upserts []string
	deletes []string
	sums    map[string]string
}

func planWrite(stored map[string]string, buckets map[string][]byte) plan {
	p := plan{sums: make(map[string]string, len(buckets))}
	for _, bucket := range slices.Sorted(maps.Keys(buckets)) {
		sum := sha256.Sum256(buckets[bucket])
		p.sums[bucket] = hex.EncodeToString(sum[:])
		if stored[bucket] != p.sums[bucket] {
			p.upserts = append(p.upserts, bucket)
		}
	}
	for _, bucket := range slices.Sorted(maps.Keys(stored)) {
		if _, keep := buckets[bucket]; !keep {
			p.deletes = append(p.deletes, bucket)
		}
	}
	return p
}

// WriteBuckets replaces the stored snapshot with buckets in one transaction.
// Buckets no longer present are removed; unchanged ones are not rewritten.
func (s *Store) WriteBuckets(ctx context.Context, buckets map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, err := s.checksums(ctx)
	if err != nil {
		return err
	}
	p := planWrite(stored, buckets)
	if len(p.upserts) == 0 && len(p.deletes) == 0 {
		return nil
	}
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
	now := time.Now().UTC()
	for _, bucket := range p.upserts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload,checksum,updated_at) VALUES($1,$2,$3,$4) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload, checksum=EXCLUDED.checksum, updated_at=EXCLUDED.updated_at`,
			bucket, buckets[bucket], p.sums[bucket], now); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	for _, bucket := range p.deletes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM state WHERE bucket = $1`, bucket); err != nil {
			return fmt.Errorf("delete %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

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
