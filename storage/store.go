package storage

import (
	"context"
	"fmt"

	"github.com/doesntneedname/activity-bot/collector"
	"github.com/doesntneedname/activity-bot/config"
	"go.uber.org/zap"
)

// Counters maps a running-total card to the value published last time.
type Counters map[collector.MetricID]int64

// CounterStore persists the last-seen counters between runs. It is a single
// writer store: updates from one process are safe, updates from several
// processes may be lost.
type CounterStore interface {
	// Read returns the persisted counters. The map is never nil. When the
	// backing storage is missing or broken it is reset to an empty valid
	// state and a CacheIOError is returned next to the empty map; the error
	// is for logging only.
	Read() (Counters, error)

	// Get returns the counter for id, or 0 if it is unknown or unreadable.
	Get(id collector.MetricID) int64

	// Update overwrites the counter for id. A failure is a CacheIOError and
	// leaves the previous value in place.
	Update(id collector.MetricID, value int64) error

	// Close releases any resources (e.g. DB connections).
	Close() error
}

// SnapshotStore keeps the most recent collection across restarts.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *collector.Snapshot) error
	// LoadSnapshot returns nil, nil when nothing has been saved yet.
	LoadSnapshot(ctx context.Context) (*collector.Snapshot, error)
}

// Open builds the counter store selected by cfg.Driver. The returned
// SnapshotStore is nil unless snapshot persistence is enabled.
func Open(cfg config.StorageConfig, log *zap.Logger) (CounterStore, SnapshotStore, error) {
	switch cfg.Driver {
	case "", "json":
		return NewJSONFile(cfg.CachePath, log), nil, nil
	case "sqlite":
		db, err := NewSQLite(cfg.DBPath, log)
		if err != nil {
			return nil, nil, err
		}
		if cfg.PersistSnapshot {
			return db, db, nil
		}
		return db, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
