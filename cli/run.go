package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/doesntneedname/activity-bot/scheduler"
	"github.com/doesntneedname/activity-bot/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the collect and publish schedule",
		Long: "Start the daemon: collect metrics on the collect schedule, publish the " +
			"report on the publish schedule and serve /metrics when metrics_addr is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile, appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx)
		},
	}
}

func (a *app) run(ctx context.Context) error {
	sched, err := scheduler.New(a.jobs, a.cfg.Schedule, a.log.Logger)
	if err != nil {
		return err
	}
	a.jobs.Restore(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(ctx)
	})
	if a.cfg.MetricsAddr != "" {
		g.Go(func() error {
			return telemetry.Serve(ctx, a.cfg.MetricsAddr, telemetry.Handler(a.registry), a.log.Logger)
		})
	}
	return g.Wait()
}
