package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/doesntneedname/activity-bot/collector"
	"github.com/doesntneedname/activity-bot/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := NewSQLite(filepath.Join(t.TempDir(), "data", "bot.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteCounters(t *testing.T) {
	db := newSQLite(t)

	assert.Equal(t, int64(0), db.Get(613))
	require.NoError(t, db.Update(613, 100))
	require.NoError(t, db.Update(613, 150))
	require.NoError(t, db.Update(614, 7))

	assert.Equal(t, int64(150), db.Get(613))
	counters, err := db.Read()
	require.NoError(t, err)
	assert.Equal(t, Counters{613: 150, 614: 7}, counters)
}

func TestSQLiteReadHealsMissingTable(t *testing.T) {
	db := newSQLite(t)
	require.NoError(t, db.Update(613, 100))
	_, err := db.db.Exec(`DROP TABLE counters`)
	require.NoError(t, err)

	counters, err := db.Read()
	require.Error(t, err)
	assert.Empty(t, counters)
	assert.NotNil(t, counters)

	// The table is back.
	require.NoError(t, db.Update(613, 5))
	assert.Equal(t, int64(5), db.Get(613))
}

func TestSQLiteSnapshotRoundTrip(t *testing.T) {
	db := newSQLite(t)
	ctx := context.Background()

	none, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)

	snap := collector.NewSnapshot(time.Date(2024, 5, 1, 23, 50, 0, 0, time.UTC))
	snap.Results[611] = []collector.Record{{"segment": "Total", "dau": 1000.0}}
	snap.Results[602] = []collector.Record{}
	snap.Outcomes[611] = collector.OutcomeOK
	snap.Outcomes[602] = collector.OutcomeEmpty
	require.NoError(t, db.SaveSnapshot(ctx, snap))

	newer := collector.NewSnapshot(snap.CollectedAt.Add(24 * time.Hour))
	newer.Results[611] = []collector.Record{{"segment": "Total", "dau": 1200.0}}
	newer.Outcomes[611] = collector.OutcomeOK
	require.NoError(t, db.SaveSnapshot(ctx, newer))

	got, err := db.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, newer.CollectedAt.Equal(got.CollectedAt))
	assert.Equal(t, newer.Results, got.Results, "only the latest snapshot is kept")
	assert.Equal(t, newer.Outcomes, got.Outcomes)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	counters, snaps, err := Open(config.StorageConfig{Driver: "json", CachePath: filepath.Join(dir, "c.json")}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &JSONFile{}, counters)
	assert.Nil(t, snaps)

	counters, snaps, err = Open(config.StorageConfig{Driver: "sqlite", DBPath: filepath.Join(dir, "a.db")}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = counters.Close() })
	assert.IsType(t, &SQLite{}, counters)
	assert.Nil(t, snaps)

	counters, snaps, err = Open(config.StorageConfig{Driver: "sqlite", DBPath: filepath.Join(dir, "b.db"), PersistSnapshot: true}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = counters.Close() })
	assert.NotNil(t, snaps)

	_, _, err = Open(config.StorageConfig{Driver: "redis"}, zap.NewNop())
	assert.Error(t, err)
}
