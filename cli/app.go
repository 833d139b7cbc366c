package cli

import (
	"fmt"

	"github.com/doesntneedname/activity-bot/collector"
	"github.com/doesntneedname/activity-bot/config"
	"github.com/doesntneedname/activity-bot/logger"
	"github.com/doesntneedname/activity-bot/publisher"
	"github.com/doesntneedname/activity-bot/report"
	"github.com/doesntneedname/activity-bot/scheduler"
	"github.com/doesntneedname/activity-bot/storage"
	"github.com/doesntneedname/activity-bot/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// app is everything a command needs, built from one configuration.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	counters storage.CounterStore
	registry *prometheus.Registry
	jobs     *scheduler.Jobs
}

type appOptions struct {
	// dryRun keeps counter updates in memory.
	dryRun bool
}

func newApp(configFile string, opts appOptions) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("set up logger: %w", err)
	}
	log.Logger.Info("configuration loaded",
		zap.String("metabase_url", cfg.Metabase.URL),
		zap.Ints("cards", cfg.Metabase.CardIDs),
		zap.Int64("channel_id", cfg.Pachca.ChannelID),
		zap.String("storage", cfg.Storage.Driver),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
	)

	counters, snapshots, err := storage.Open(cfg.Storage, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("open counter store: %w", err)
	}
	if opts.dryRun {
		counters = storage.NewOverlay(counters)
		snapshots = nil
	}
	if _, err := counters.Read(); err != nil {
		log.Logger.Warn("counter cache was reset", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	metrics := telemetry.New(reg)

	source := collector.NewMetabaseClient(
		cfg.Metabase.URL,
		cfg.Metabase.Username,
		cfg.Metabase.Password,
		cfg.Metabase.BasicAuthUser,
		cfg.Metabase.BasicAuthPass,
		cfg.HTTPTimeout,
		log.Logger,
	)
	chat := publisher.NewPachcaClient(cfg.Pachca.PostURL, cfg.Pachca.Token, cfg.HTTPTimeout, log.Logger)

	jobs := &scheduler.Jobs{
		State:     scheduler.NewState(),
		Source:    source,
		Cards:     cardIDs(cfg.Metabase.CardIDs),
		Composer:  report.NewComposer(counters, log.Logger),
		Publisher: publisher.New(chat, cfg.Pachca.ChannelID, log.Logger, metrics),
		Log:       log.Logger,
		Snapshots: snapshots,
		Metrics:   metrics,
	}

	return &app{
		cfg:      cfg,
		log:      log,
		counters: counters,
		registry: reg,
		jobs:     jobs,
	}, nil
}

func (a *app) close() {
	if err := a.counters.Close(); err != nil {
		a.log.Logger.Error("closing counter store", zap.Error(err))
	}
	logger.Flush(a.log.Logger)
}

func cardIDs(ids []int) []collector.MetricID {
	out := make([]collector.MetricID, len(ids))
	for i, id := range ids {
		out[i] = collector.MetricID(id)
	}
	return out
}
