package scheduler

import (
	"sync"

	"github.com/doesntneedname/activity-bot/collector"
)

// Phase is where the collect/publish cycle currently is.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseCollecting    Phase = "collecting"
	PhaseSnapshotReady Phase = "snapshot_ready"
	PhasePublishing    Phase = "publishing"
)

// State is the process-wide holder of the latest snapshot. It is shared by
// the collect and publish jobs.
type State struct {
	mu       sync.Mutex
	phase    Phase
	snapshot *collector.Snapshot
}

func NewState() *State {
	return &State{phase: PhaseIdle}
}

// Phase returns the current phase.
func (s *State) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Snapshot returns the held snapshot, possibly nil.
func (s *State) Snapshot() *collector.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// BeginCollect moves to Collecting. It fails if a collection is already
// running.
func (s *State) BeginCollect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseCollecting {
		return false
	}
	s.phase = PhaseCollecting
	return true
}

// FinishCollect stores snap, replacing any previous one. A nil snap means the
// collection failed: the previous snapshot stays and the phase falls back.
func (s *State) FinishCollect(snap *collector.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap != nil {
		s.snapshot = snap
	}
	if s.snapshot != nil {
		s.phase = PhaseSnapshotReady
	} else {
		s.phase = PhaseIdle
	}
}

// Restore installs a snapshot loaded from durable storage at startup.
func (s *State) Restore(snap *collector.Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	if s.phase == PhaseIdle {
		s.phase = PhaseSnapshotReady
	}
}

// BeginPublish hands out the held snapshot and moves to Publishing. It
// returns false while collecting or publishing, or when nothing was collected.
func (s *State) BeginPublish() (*collector.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil || s.phase == PhaseCollecting || s.phase == PhasePublishing {
		return nil, false
	}
	s.phase = PhasePublishing
	return s.snapshot, true
}

// FinishPublish returns to Idle. The snapshot is kept.
func (s *State) FinishPublish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhasePublishing {
		s.phase = PhaseIdle
	}
}
