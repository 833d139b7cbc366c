package cli

import (
	"fmt"

	"github.com/doesntneedname/activity-bot/scheduler"
	"github.com/spf13/cobra"
)

func newOnceCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Collect and publish a single report now",
		Long:  "Run one collection followed immediately by one publish, then exit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile, appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			if o := a.jobs.Collect(cmd.Context()); o != scheduler.OutcomeDone {
				return fmt.Errorf("collect %s", o)
			}
			if o := a.jobs.Publish(cmd.Context()); o != scheduler.OutcomeDone {
				return fmt.Errorf("publish %s", o)
			}
			return nil
		},
	}
}
