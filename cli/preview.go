package cli

import (
	"fmt"
	"io"

	"github.com/doesntneedname/activity-bot/collector"
	"github.com/doesntneedname/activity-bot/report"
	"github.com/doesntneedname/activity-bot/scheduler"
	"github.com/spf13/cobra"
)

func newPreviewCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Print the report without posting it",
		Long: "Collect metrics and print both report messages to stdout. Nothing is " +
			"posted and the counter cache is not changed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile, appOptions{dryRun: true})
			if err != nil {
				return err
			}
			defer a.close()

			if o := a.jobs.Collect(cmd.Context()); o != scheduler.OutcomeDone {
				return fmt.Errorf("collect %s", o)
			}
			rep := a.jobs.Composer.Compose(a.jobs.State.Snapshot())
			return printReport(cmd.OutOrStdout(), a.jobs.State.Snapshot(), rep)
		},
	}
}

func printReport(w io.Writer, snap *collector.Snapshot, rep report.Report) error {
	_, err := fmt.Fprintf(w, "collected at %s (ok %d, empty %d, failed %d)\n\n%s\n\n--- thread ---\n%s\n",
		snap.CollectedAt.Format("2006-01-02 15:04:05 MST"),
		snap.Count(collector.OutcomeOK),
		snap.Count(collector.OutcomeEmpty),
		snap.Count(collector.OutcomeFailed),
		rep.Primary,
		rep.Secondary,
	)
	return err
}
