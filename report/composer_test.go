package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/doesntneedname/activity-bot/collector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memCounters struct {
	values    map[collector.MetricID]int64
	updates   []collector.MetricID
	updateErr error
}

func newMemCounters(seed map[collector.MetricID]int64) *memCounters {
	m := &memCounters{values: map[collector.MetricID]int64{}}
	for k, v := range seed {
		m.values[k] = v
	}
	return m
}

func (m *memCounters) Get(id collector.MetricID) int64 { return m.values[id] }

func (m *memCounters) Update(id collector.MetricID, v int64) error {
	m.updates = append(m.updates, id)
	if m.updateErr != nil {
		return m.updateErr
	}
	m.values[id] = v
	return nil
}

func fullSnapshot() *collector.Snapshot {
	snap := collector.NewSnapshot(time.Date(2024, 5, 1, 23, 50, 0, 0, time.UTC))
	snap.Results[SummaryCard] = []collector.Record{
		{"segment": "Paid", "dau": 1.0, "wau": 2.0, "mau": 3.0},
		{"segment": "Total", "dau": 1000.0, "wau": 5000.0, "mau": 20000.0,
			"new_users": 10.0, "current_users": 900.0, "dormant_users": 90.0},
	}
	snap.Results[PercentageCard] = []collector.Record{
		{"segment": "CURR", "curr_percentage": 45.5},
		{"segment": "Ed", "curr_percentage": 20.0},
		{"segment": "Pay", "curr_percentage": 30.1234},
		{"segment": "Free", "curr_percentage": 4.3766},
	}
	snap.Results[601] = []collector.Record{{"Count": 1.0}}
	snap.Results[602] = []collector.Record{{"Count": 1234.0}}
	snap.Results[603] = []collector.Record{{"Count": 56.0}}
	snap.Results[604] = []collector.Record{{"Count": 7.0}, {"Count": 999.0}}
	snap.Results[605] = []collector.Record{{"Count": 0.0}}
	snap.Results[613] = []collector.Record{{"Sum of Messages Count": 150.0}}
	snap.Results[612] = []collector.Record{{"Sum of Messages Count": 2500.0}}
	snap.Results[614] = []collector.Record{{"Sum of Messages Count": 40.0}}
	return snap
}

func TestPrimaryText(t *testing.T) {
	got := Primary(fullSnapshot())

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "DAU / WAU / MAU: 1,000 / 5,000 / 20,000", lines[0])
	assert.Equal(t, "New / Current / Dormant: 10 / 900 / 90", lines[1])
	assert.Equal(t, "", lines[2])
	assert.Equal(t, "CURR / Ed / Pay / Free: 45.5% / 20% / 30.123% / 4.377%", lines[3])
}

func TestPrimaryWithoutTotalSegment(t *testing.T) {
	snap := fullSnapshot()
	snap.Results[SummaryCard] = []collector.Record{{"segment": "Paid", "dau": 5.0}}
	snap.Results[PercentageCard] = []collector.Record{{"curr_percentage": 12.0}}

	got := Primary(snap)
	assert.Equal(t, "DAU / WAU / MAU: 0 / 0 / 0\nNew / Current / Dormant: 0 / 0 / 0\n\nCURR / Ed / Pay / Free: 12%", got)
}

func TestSecondaryDeltaAgainstCache(t *testing.T) {
	counters := newMemCounters(map[collector.MetricID]int64{613: 100})
	c := NewComposer(counters, zap.NewNop())

	rep := c.Compose(fullSnapshot())

	assert.Contains(t, rep.Secondary, "Беседы/каналы: 50")
	assert.Equal(t, int64(150), counters.values[613])
	assert.Equal(t, map[collector.MetricID]int64{613: 50, 612: 2500, 614: 40}, rep.Deltas)
	assert.Equal(t, []collector.MetricID{613, 612, 614}, counters.updates)

	want := "👨‍💻Daily Activ:\n" +
		"Компании: 1,234\n" +
		"Беседы/каналы: 7\n" +
		"Лички: 56\n" +
		"Треды: 0\n" +
		"\n" +
		"💬Daily Messages:\n" +
		"Беседы/каналы: 50\n" +
		"Лички: 2,500\n" +
		"Треды: 40"
	assert.Equal(t, want, rep.Secondary)
}

func TestComposeTwiceReportsZeroDelta(t *testing.T) {
	counters := newMemCounters(map[collector.MetricID]int64{613: 100, 612: 2000, 614: 10})
	c := NewComposer(counters, zap.NewNop())
	snap := fullSnapshot()

	first := c.Compose(snap)
	second := c.Compose(snap)

	assert.Equal(t, int64(50), first.Deltas[613])
	for _, l := range RunningTotalLines {
		assert.Equal(t, int64(0), second.Deltas[l.Card], "card %d", l.Card)
	}
	assert.Contains(t, second.Secondary, "💬Daily Messages:\nБеседы/каналы: 0\nЛички: 0\nТреды: 0")
}

func TestMissingCardsZeroFill(t *testing.T) {
	absent := collector.NewSnapshot(time.Now())

	present := collector.NewSnapshot(time.Now())
	for _, id := range DefaultCards {
		present.Results[id] = []collector.Record{{}}
	}
	present.Results[SummaryCard] = []collector.Record{{"segment": "Total"}}
	present.Results[PercentageCard] = []collector.Record{}

	seed := map[collector.MetricID]int64{613: 7, 612: 3}
	a := NewComposer(newMemCounters(seed), zap.NewNop()).Compose(absent)
	p := NewComposer(newMemCounters(seed), zap.NewNop()).Compose(present)

	assert.Equal(t, p.Primary, a.Primary)
	assert.Equal(t, p.Secondary, a.Secondary)
	assert.Equal(t, p.Deltas, a.Deltas)
	assert.Equal(t, int64(-7), a.Deltas[613])
	assert.Contains(t, a.Secondary, "Компании: 0")
	assert.Contains(t, a.Primary, "DAU / WAU / MAU: 0 / 0 / 0")
}

func TestNilSnapshotStillRenders(t *testing.T) {
	c := NewComposer(newMemCounters(nil), zap.NewNop())
	rep := c.Compose(nil)
	assert.True(t, strings.HasPrefix(rep.Primary, "DAU / WAU / MAU: 0 / 0 / 0"))
	assert.Contains(t, rep.Secondary, "Треды: 0")
}

func TestComposeSurvivesCacheWriteFailure(t *testing.T) {
	counters := newMemCounters(map[collector.MetricID]int64{613: 100})
	counters.updateErr = errors.New("disk full")
	c := NewComposer(counters, zap.NewNop())

	rep := c.Compose(fullSnapshot())
	assert.Equal(t, int64(50), rep.Deltas[613])
	assert.Equal(t, int64(100), counters.values[613])
}

func TestNonNumericValuesRenderAsZero(t *testing.T) {
	snap := collector.NewSnapshot(time.Now())
	snap.Results[602] = []collector.Record{{"Count": "n/a"}}
	snap.Results[603] = []collector.Record{{"Count": "42"}}
	snap.Results[613] = []collector.Record{{"Sum of Messages Count": "lots"}}

	rep := NewComposer(newMemCounters(nil), zap.NewNop()).Compose(snap)
	assert.Contains(t, rep.Secondary, "Компании: 0")
	assert.Contains(t, rep.Secondary, "Лички: 42")
	assert.Equal(t, int64(0), rep.Deltas[613])
}
