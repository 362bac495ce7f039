package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/naka-gawa/prcounter/internal/config"
	"github.com/naka-gawa/prcounter/internal/usecase"
	"github.com/spf13/cobra"
)

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Syncs pull request activity and outputs per-user counts as JSON",
	Long: `Syncs the configured search queries from GitHub, then counts created, merged and
commented pull requests and comments per user between --startdate and --enddate
(inclusive). With --local the sync is skipped and only the local database is read.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		exitOnError(runCount(ctx, cmd))
	},
}

func init() {
	rootCmd.AddCommand(countCmd)
	countCmd.Flags().Bool("local", false, "Do not fetch from GitHub; use the local database only")
	countCmd.Flags().StringP("startdate", "s", "", "Start date of the count (YYYY-MM-DD, required)")
	countCmd.Flags().StringP("enddate", "e", "", "End date of the count (YYYY-MM-DD, required)")
	countCmd.MarkFlagRequired("startdate")
	countCmd.MarkFlagRequired("enddate")
}

func runCount(ctx context.Context, cmd *cobra.Command) error {
	local, _ := cmd.Flags().GetBool("local")
	startStr, _ := cmd.Flags().GetString("startdate")
	endStr, _ := cmd.Flags().GetString("enddate")

	start, end, err := config.ParseDateRange(startStr, endStr)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, !local)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	if !local {
		g, err := a.newGateway()
		if err != nil {
			return err
		}
		if err := syncQueries(ctx, g, s, a.cfg.GitHub.SearchIssueQuery, a.logger, os.Stderr); err != nil {
			return err
		}
	}

	report, err := usecase.NewReporter(s, a.logger).Report(ctx, start, end, a.cfg.GitHub.Users)
	if err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results to JSON: %w", err)
	}
	fmt.Println(string(jsonData))
	return nil
}
