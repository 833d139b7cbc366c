package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/doesntneedname/activity-bot/apperrors"
	"github.com/doesntneedname/activity-bot/collector"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLite stores counters (and optionally the last snapshot) in a single
// SQLite file. It implements both CounterStore and SnapshotStore.
type SQLite struct {
	db  *sql.DB
	log *zap.Logger
}

// NewSQLite opens (or creates) the SQLite file at dbPath and runs the
// migration that creates the tables if they do not exist.
// The caller must call Close() when the program shuts down.
func NewSQLite(dbPath string, log *zap.Logger) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// The modernc.org driver is pure-go and works without CGO.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps read-modify-write sequences on the same handle.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &SQLite{db: db, log: log}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migration: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	const stmt = `
CREATE TABLE IF NOT EXISTS counters (
    metric_id  INTEGER PRIMARY KEY,
    value      INTEGER NOT NULL,
    updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot (
    id           INTEGER PRIMARY KEY CHECK (id = 1),
    collected_at DATETIME NOT NULL,
    payload      TEXT NOT NULL
);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	s.log.Info("SQLite migration applied")
	return nil
}

// Read implements CounterStore. A failing query re-runs the migration so the
// next call finds valid tables.
func (s *SQLite) Read() (Counters, error) {
	counters, err := s.readCounters(context.Background())
	if err == nil {
		return counters, nil
	}
	s.log.Error("counter table unreadable, starting from empty", zap.Error(err))
	if merr := s.migrate(); merr != nil {
		s.log.Error("cannot re-create counter table", zap.Error(merr))
	}
	return Counters{}, apperrors.New(apperrors.ErrorTypeCacheIO, "read counters", err)
}

func (s *SQLite) readCounters(ctx context.Context) (Counters, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT metric_id, value FROM counters`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counters := Counters{}
	for rows.Next() {
		var (
			id    int64
			value int64
		)
		if err := rows.Scan(&id, &value); err != nil {
			return nil, err
		}
		counters[collector.MetricID(id)] = value
	}
	return counters, rows.Err()
}

// Get implements CounterStore.
func (s *SQLite) Get(id collector.MetricID) int64 {
	var value int64
	err := s.db.QueryRow(`SELECT value FROM counters WHERE metric_id = ?`, int64(id)).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0
	case err != nil:
		s.log.Warn("counter lookup failed, using 0", zap.Int("card", int(id)), zap.Error(err))
		return 0
	}
	return value
}

// Update implements CounterStore with a single upsert, which is SQLite's
// equivalent of the read-modify-write the JSON store performs.
func (s *SQLite) Update(id collector.MetricID, value int64) error {
	_, err := s.db.Exec(`
INSERT INTO counters (metric_id, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(metric_id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		int64(id), value, time.Now().UTC())
	if err != nil {
		return apperrors.New(apperrors.ErrorTypeCacheIO, fmt.Sprintf("update counter %d", id), err)
	}
	s.log.Info("counter cache updated", zap.Int("card", int(id)), zap.Int64("value", value))
	return nil
}

// SaveSnapshot replaces the stored snapshot in a single statement.
func (s *SQLite) SaveSnapshot(ctx context.Context, snap *collector.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	ts := snap.CollectedAt.UTC()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO snapshot (id, collected_at, payload) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET collected_at = excluded.collected_at, payload = excluded.payload`,
		ts, string(payload))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.log.Debug("snapshot persisted", zap.Time("ts", ts), zap.Int("cards", len(snap.Results)))
	return nil
}

// LoadSnapshot returns the stored snapshot, or nil if none was saved.
func (s *SQLite) LoadSnapshot(ctx context.Context) (*collector.Snapshot, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM snapshot WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	snap := collector.NewSnapshot(time.Time{})
	if err := json.Unmarshal([]byte(payload), snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Close shuts down the database connection.
func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
