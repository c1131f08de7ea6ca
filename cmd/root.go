package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "careerquiz",
		Short:        "Career aptitude quiz server",
		Long:         "careerquiz serves the career aptitude quiz and its admin report, and manages the stored results.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
	root.PersistentFlags().String("config", "config.json", "Path to the JSON config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newResultsCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newSeedAdminCmd())
	return root
}

// Execute runs the command line. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}
