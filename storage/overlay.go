package storage

import (
	"maps"
	"sync"

	"github.com/doesntneedname/activity-bot/collector"
)

// Overlay reads through to a base store but keeps every update in memory.
// It lets a report be rendered without moving the persisted counters.
type Overlay struct {
	mu      sync.Mutex
	base    CounterStore
	changed Counters
}

func NewOverlay(base CounterStore) *Overlay {
	return &Overlay{base: base, changed: Counters{}}
}

func (o *Overlay) Read() (Counters, error) {
	c, err := o.base.Read()
	o.mu.Lock()
	defer o.mu.Unlock()
	maps.Copy(c, o.changed)
	return c, err
}

func (o *Overlay) Get(id collector.MetricID) int64 {
	o.mu.Lock()
	v, ok := o.changed[id]
	o.mu.Unlock()
	if ok {
		return v
	}
	return o.base.Get(id)
}

func (o *Overlay) Update(id collector.MetricID, value int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changed[id] = value
	return nil
}

// Close closes the base store.
func (o *Overlay) Close() error { return o.base.Close() }
