package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func NewRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "activity-bot",
		Short: "Daily Metabase activity report for Pachca",
		Long: "activity-bot collects activity metrics from Metabase late in the evening " +
			"and posts a summary with a threaded breakdown to a Pachca channel the next morning.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./configs/config.yaml if present)")

	root.AddCommand(
		newRunCmd(&configFile),
		newOnceCmd(&configFile),
		newPreviewCmd(&configFile),
	)

	root.Version = Version
	root.SetVersionTemplate(fmt.Sprintf("activity-bot %s\n", Version))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
