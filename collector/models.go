package collector

import "time"

// MetricID is the numeric id of a saved Metabase question (card).
type MetricID int

// Record is one result row keyed by column display name.
type Record map[string]any

// FetchOutcome tags how a single card fetch ended.
type FetchOutcome string

const (
	OutcomeOK     FetchOutcome = "ok"
	OutcomeEmpty  FetchOutcome = "empty"  // no rows or no columns
	OutcomeFailed FetchOutcome = "failed" // transport, status or decode error
)

// FetchResult is what a Source returns for one card. Records is never nil.
type FetchResult struct {
	Records []Record
	Outcome FetchOutcome
	Err     error
}

// Snapshot is the result of a single collection cycle.
// All cards share the same collection timestamp.
type Snapshot struct {
	CollectedAt time.Time                 `json:"collected_at"`
	Results     map[MetricID][]Record     `json:"results"` // row order as returned by Metabase
	Outcomes    map[MetricID]FetchOutcome `json:"outcomes"`
}

// NewSnapshot creates an empty snapshot with the supplied time.
func NewSnapshot(ts time.Time) *Snapshot {
	return &Snapshot{
		CollectedAt: ts,
		Results:     make(map[MetricID][]Record),
		Outcomes:    make(map[MetricID]FetchOutcome),
	}
}

// Records returns the rows held for id, or nil if the card is absent.
func (s *Snapshot) Records(id MetricID) []Record {
	if s == nil {
		return nil
	}
	return s.Results[id]
}

// First returns the first row for id, or an empty record.
func (s *Snapshot) First(id MetricID) Record {
	rows := s.Records(id)
	if len(rows) == 0 {
		return Record{}
	}
	return rows[0]
}

// Find returns the first row whose string field equals value, or an empty
// record.
func (s *Snapshot) Find(id MetricID, field, value string) Record {
	for _, r := range s.Records(id) {
		if v, ok := r[field].(string); ok && v == value {
			return r
		}
	}
	return Record{}
}

// Count returns how many cards ended with the given outcome.
func (s *Snapshot) Count(outcome FetchOutcome) int {
	n := 0
	for _, o := range s.Outcomes {
		if o == outcome {
			n++
		}
	}
	return n
}
