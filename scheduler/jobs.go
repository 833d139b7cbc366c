package scheduler

import (
	"context"
	"time"

	"github.com/doesntneedname/activity-bot/collector"
	"github.com/doesntneedname/activity-bot/logger"
	"github.com/doesntneedname/activity-bot/publisher"
	"github.com/doesntneedname/activity-bot/report"
	"github.com/doesntneedname/activity-bot/storage"
	"github.com/doesntneedname/activity-bot/telemetry"
	"go.uber.org/zap"
)

// Outcome tags how one job run ended.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

const (
	phaseCollect = "collect"
	phasePublish = "publish"
)

// Composer renders a snapshot into chat text.
type Composer interface {
	Compose(snap *collector.Snapshot) report.Report
}

// Publisher delivers a rendered report.
type Publisher interface {
	PublishReport(ctx context.Context, primary, secondary string) publisher.Result
}

// Jobs holds the two scheduled tasks and everything they share.
type Jobs struct {
	State     *State
	Source    collector.Source
	Cards     []collector.MetricID
	Composer  Composer
	Publisher Publisher
	Snapshots storage.SnapshotStore // optional
	Log       *zap.Logger
	Metrics   *telemetry.Metrics
	Now       func() time.Time
}

func (j *Jobs) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// Restore loads a persisted snapshot into State, if persistence is enabled.
func (j *Jobs) Restore(ctx context.Context) {
	if j.Snapshots == nil {
		return
	}
	snap, err := j.Snapshots.LoadSnapshot(ctx)
	if err != nil {
		j.Log.Error("cannot restore persisted snapshot", zap.Error(err))
		return
	}
	if snap == nil {
		return
	}
	j.State.Restore(snap)
	j.Log.Info("persisted snapshot restored", zap.Time("collected_at", snap.CollectedAt))
}

// Collect fetches every card and stores the snapshot in State.
func (j *Jobs) Collect(ctx context.Context) Outcome {
	log := logger.WithCycle(logger.FromContext(ctx, j.Log), phaseCollect)

	if !j.State.BeginCollect() {
		log.Warn("collection already running, skipping trigger")
		return j.finish(phaseCollect, OutcomeSkipped)
	}

	ctx = logger.WithContext(ctx, log)
	snap, err := collector.CollectAll(ctx, j.Source, j.Cards, log, j.Metrics)
	j.State.FinishCollect(snap)
	if err != nil {
		if j.State.Snapshot() != nil {
			log.Warn("keeping snapshot from the previous successful collection")
		}
		return j.finish(phaseCollect, OutcomeFailed)
	}

	if j.Snapshots != nil {
		if err := j.Snapshots.SaveSnapshot(ctx, snap); err != nil {
			log.Error("cannot persist snapshot, it lives in memory only", zap.Error(err))
		}
	}
	log.Info("snapshot stored for the next publish", zap.Time("collected_at", snap.CollectedAt))
	return j.finish(phaseCollect, OutcomeDone)
}

// Publish composes the held snapshot and sends it to the chat. Without a
// snapshot it only logs a warning.
func (j *Jobs) Publish(ctx context.Context) Outcome {
	log := logger.WithCycle(logger.FromContext(ctx, j.Log), phasePublish)

	snap, ok := j.State.BeginPublish()
	if !ok {
		log.Warn("no collected data to publish", zap.String("state", string(j.State.Phase())))
		return j.finish(phasePublish, OutcomeSkipped)
	}
	defer j.State.FinishPublish()

	rep := j.Composer.Compose(snap)
	log.Info("report composed",
		zap.Time("collected_at", snap.CollectedAt),
		zap.String("primary", rep.Primary),
		zap.Any("deltas", rep.Deltas),
	)

	res := j.Publisher.PublishReport(ctx, rep.Primary, rep.Secondary)
	if !res.Delivered() {
		log.Error("report not delivered", zap.String("failed_step", string(res.FailedStep)), zap.Error(res.Err))
		return j.finish(phasePublish, OutcomeFailed)
	}
	log.Info("report delivered", zap.Int64("message_id", res.MessageID), zap.Int64("thread_id", res.ThreadID))
	return j.finish(phasePublish, OutcomeDone)
}

func (j *Jobs) finish(phase string, o Outcome) Outcome {
	j.Metrics.ObserveCycle(phase, string(o), j.now())
	return o
}
