package report

import (
	"fmt"
	"strings"

	"github.com/doesntneedname/activity-bot/collector"
	"go.uber.org/zap"
)

// CounterCache is the part of the counter store the composer needs.
type CounterCache interface {
	Get(id collector.MetricID) int64
	Update(id collector.MetricID, value int64) error
}

// Report is the text of one publish cycle.
type Report struct {
	Primary   string
	Secondary string
	// Deltas holds the difference computed for every running-total card.
	Deltas map[collector.MetricID]int64
}

// Composer turns a snapshot into the two chat messages.
type Composer struct {
	Counters CounterCache
	Log      *zap.Logger
}

func NewComposer(counters CounterCache, log *zap.Logger) *Composer {
	return &Composer{Counters: counters, Log: log}
}

// Compose renders both texts. A card missing from the snapshot renders
// exactly like a card whose fields are all missing. Each running-total
// counter is written back to the cache as soon as its delta is known, so a
// second Compose over the same snapshot reports zero deltas.
func (c *Composer) Compose(snap *collector.Snapshot) Report {
	deltas := make(map[collector.MetricID]int64, len(RunningTotalLines))
	return Report{
		Primary:   Primary(snap),
		Secondary: c.secondary(snap, deltas),
		Deltas:    deltas,
	}
}

// Primary renders the summary message.
func Primary(snap *collector.Snapshot) string {
	total := snap.Find(SummaryCard, segmentField, totalSegment)

	shares := make([]string, 0, len(snap.Records(PercentageCard)))
	for _, rec := range snap.Records(PercentageCard) {
		shares = append(shares, formatNumber(rec[percentageField]))
	}

	return fmt.Sprintf("DAU / WAU / MAU: %s / %s / %s\n", formatNumber(total["dau"]), formatNumber(total["wau"]), formatNumber(total["mau"])) +
		fmt.Sprintf("New / Current / Dormant: %s / %s / %s\n\n", formatNumber(total["new_users"]), formatNumber(total["current_users"]), formatNumber(total["dormant_users"])) +
		fmt.Sprintf("CURR / Ed / Pay / Free: %s%%", strings.Join(shares, "% / "))
}

func (c *Composer) secondary(snap *collector.Snapshot, deltas map[collector.MetricID]int64) string {
	counts := make([]string, 0, len(CountLines))
	for _, l := range CountLines {
		counts = append(counts, fmt.Sprintf("%s: %s", l.Label, formatNumber(snap.First(l.Card)[l.Field])))
	}

	totals := make([]string, 0, len(RunningTotalLines))
	for _, l := range RunningTotalLines {
		delta := c.delta(l.Card, toInt64(snap.First(l.Card)[l.Field]))
		deltas[l.Card] = delta
		totals = append(totals, fmt.Sprintf("%s: %s", l.Label, formatInt(delta)))
	}

	return "👨‍💻Daily Activ:\n" + strings.Join(counts, "\n") +
		"\n\n💬Daily Messages:\n" + strings.Join(totals, "\n")
}

// delta returns current minus the cached value and caches current.
func (c *Composer) delta(id collector.MetricID, current int64) int64 {
	previous := c.Counters.Get(id)
	if err := c.Counters.Update(id, current); err != nil {
		c.Log.Error("cannot store counter, next delta will be off", zap.Int("card", int(id)), zap.Error(err))
	}
	return current - previous
}
