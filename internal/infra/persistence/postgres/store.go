// Package postgres persists snapshots to Postgres for shared or hosted
// sessions, mirroring the SQLite single-slot layout with a JSONB column.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"canvascore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.SnapshotStore = (*Store)(nil)

const (
	driverName = "pgx"
	// Default DSN keeps parity with OpenSnapshotStore defaults; override via env.
	defaultDSN  = "postgres://localhost/canvascore?sslmode=disable"
	slotCurrent = "current"
)

// sqlOpen is swappable for tests.
var sqlOpen = sql.Open

// Store keeps the latest snapshot in one JSONB row.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed snapshot store using the provided DSN
// (falling back to defaultDSN), pings it, and ensures the snapshot table
// exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS snapshots (
		slot TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		saved_at TIMESTAMPTZ NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure snapshots table: %w", err)
	}
	return &Store{db: db}, nil
}

// Save upserts the snapshot into the current slot.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots(slot, payload, saved_at) VALUES($1, $2, $3)
		 ON CONFLICT(slot) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		slotCurrent, raw, snap.SavedAt.UTC())
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot bytes without decoding them.
func (s *Store) Load(ctx context.Context) ([]byte, bool, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE slot = $1`, slotCurrent).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select snapshot: %w", err)
	}
	return raw, true, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }
