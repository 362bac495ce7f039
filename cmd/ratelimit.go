package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var rateLimitCmd = &cobra.Command{
	Use:   "ratelimit",
	Short: "Shows the remaining GitHub API quota",
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runRateLimit(context.Background(), cmd))
	},
}

func init() {
	rootCmd.AddCommand(rateLimitCmd)
}

func runRateLimit(ctx context.Context, cmd *cobra.Command) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	g, err := a.newGateway()
	if err != nil {
		return err
	}
	printRateLimit(ctx, g, os.Stdout)
	return nil
}
