package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/doesntneedname/activity-bot/config"
	"github.com/doesntneedname/activity-bot/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler fires Jobs.Collect and Jobs.Publish on their cron triggers.
type Scheduler struct {
	cron      *cron.Cron
	jobs      *Jobs
	log       *zap.Logger
	baseCtx   context.Context
	collectID cron.EntryID
	publishID cron.EntryID
}

// New registers both triggers. Each expression is pinned to its own time
// zone with a CRON_TZ prefix, so the host clock zone does not matter.
func New(jobs *Jobs, sc config.ScheduleConfig, log *zap.Logger) (*Scheduler, error) {
	cl := logger.Logr(log.Named("cron"))
	s := &Scheduler{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
		jobs:    jobs,
		log:     log,
		baseCtx: context.Background(),
	}

	var err error
	s.collectID, err = s.cron.AddFunc(withZone(sc.CollectCron, sc.CollectTimezone), func() {
		s.jobs.Collect(s.baseCtx)
	})
	if err != nil {
		return nil, fmt.Errorf("collect schedule %q: %w", sc.CollectCron, err)
	}
	s.publishID, err = s.cron.AddFunc(withZone(sc.PublishCron, sc.PublishTimezone), func() {
		s.jobs.Publish(s.baseCtx)
	})
	if err != nil {
		return nil, fmt.Errorf("publish schedule %q: %w", sc.PublishCron, err)
	}
	return s, nil
}

func withZone(spec, tz string) string {
	if tz == "" {
		return spec
	}
	return "CRON_TZ=" + tz + " " + spec
}

// Location returns the time zone the collect and publish triggers run in.
func (s *Scheduler) Location() (collect, publish *time.Location) {
	return entryLocation(s.cron.Entry(s.collectID)), entryLocation(s.cron.Entry(s.publishID))
}

func entryLocation(e cron.Entry) *time.Location {
	if spec, ok := e.Schedule.(*cron.SpecSchedule); ok {
		return spec.Location
	}
	return time.Local
}

// Next returns the next fire times computed from now.
func (s *Scheduler) Next(now time.Time) (collect, publish time.Time) {
	return s.cron.Entry(s.collectID).Schedule.Next(now), s.cron.Entry(s.publishID).Schedule.Next(now)
}

// Run starts the triggers and blocks until ctx is cancelled. Jobs already
// running are allowed to finish before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.baseCtx = context.WithoutCancel(ctx)
	s.cron.Start()

	collect, publish := s.Next(time.Now())
	s.log.Info("scheduler started",
		zap.Time("next_collect", collect),
		zap.Time("next_publish", publish),
	)

	<-ctx.Done()
	s.log.Info("scheduler stopping, waiting for running jobs")
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}
