package collector

import (
	"context"
	"time"

	"github.com/doesntneedname/activity-bot/telemetry"
	"go.uber.org/zap"
)

// Source is the contract a BI backend must satisfy.
type Source interface {
	// Authenticate opens a session for one collection cycle. A failure is an
	// AuthError and the cycle must be abandoned.
	Authenticate(ctx context.Context) (string, error)

	// Fetch runs one card. It never returns an error: failures and empty
	// results are reported through FetchResult.Outcome.
	Fetch(ctx context.Context, id MetricID, token string) FetchResult
}

// CollectAll authenticates once and fetches every id one after another, in
// the given order. The only error it returns is the authentication failure;
// a failing card degrades to empty data and the loop continues.
func CollectAll(ctx context.Context, src Source, ids []MetricID, log *zap.Logger, m *telemetry.Metrics) (*Snapshot, error) {
	token, err := src.Authenticate(ctx)
	if err != nil {
		log.Error("metabase authentication failed, collection aborted", zap.Error(err))
		return nil, err
	}
	log.Info("metabase session opened")

	snap := NewSnapshot(time.Now())
	for _, id := range ids {
		res := src.Fetch(ctx, id, token)
		if res.Records == nil {
			res.Records = []Record{}
		}
		snap.Results[id] = res.Records
		snap.Outcomes[id] = res.Outcome
		m.ObserveFetch(string(res.Outcome))

		switch res.Outcome {
		case OutcomeFailed:
			log.Error("card fetch failed", zap.Int("card", int(id)), zap.Error(res.Err))
		case OutcomeEmpty:
			log.Warn("card returned no data", zap.Int("card", int(id)))
		default:
			log.Debug("card fetched", zap.Int("card", int(id)), zap.Int("rows", len(res.Records)))
		}
	}

	log.Info("collection finished",
		zap.Int("cards", len(ids)),
		zap.Int("ok", snap.Count(OutcomeOK)),
		zap.Int("empty", snap.Count(OutcomeEmpty)),
		zap.Int("failed", snap.Count(OutcomeFailed)),
	)
	return snap, nil
}
