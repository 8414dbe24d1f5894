package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "socialnet",
	Short: "Social network API server",
	Long: `socialnet serves the social network REST API and its background worker.

	socialnet server
	socialnet migrate up
	socialnet worker
`,
	SilenceUsage: true,
}

// Execute runs the root command with a context that is cancelled on SIGINT
// or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
