package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/prcounter/internal/domain"
	"github.com/naka-gawa/prcounter/internal/gateway"
	"github.com/naka-gawa/prcounter/internal/store"
	"github.com/naka-gawa/prcounter/internal/usecase"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirrors pull request activity from GitHub into the local database",
	Long: `Runs every configured search query and stores the matching pull requests with
their comments and reviews. Each pull request is committed on its own, so an
interrupted run picks up where it stopped.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		exitOnError(runSyncCommand(ctx, cmd))
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSyncCommand(ctx context.Context, cmd *cobra.Command) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	g, err := a.newGateway()
	if err != nil {
		return err
	}
	return syncQueries(ctx, g, s, a.cfg.GitHub.SearchIssueQuery, a.logger, os.Stderr)
}

// syncQueries runs every configured query in order and reports the remaining
// quota afterwards, whether or not the sync succeeded. Running out of quota
// ends the run without an error. On any error the pull request in flight is
// rolled back, so only committed pull requests are reported.
func syncQueries(ctx context.Context, fetcher gateway.Fetcher, s usecase.Store, queries []string, logger logrus.FieldLogger, stderr io.Writer) error {
	syncer := usecase.NewSyncer(fetcher, s, logger)

	var err error
	for _, query := range queries {
		if err = syncer.Sync(ctx, query); err != nil {
			break
		}
	}

	// Interrupted runs still get the cleanup and the quota report.
	cleanupCtx := context.WithoutCancel(ctx)
	if err != nil {
		if rbErr := s.Rollback(cleanupCtx); rbErr != nil {
			logger.WithError(rbErr).Warn("failed to discard uncommitted pull request")
		}
	}

	if rateErr := asRateLimited(err); rateErr != "" {
		fmt.Fprintln(stderr, rateErr)
		err = nil
	}
	printRateLimit(cleanupCtx, fetcher, stderr)

	if err != nil {
		return describeSyncError(err)
	}
	return nil
}

// asRateLimited returns a message for primary and secondary rate limit errors.
func asRateLimited(err error) string {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Sprintf("%s\nRate limit resets at %s", rateErr.Message, rateErr.Rate.Reset.Time.Format(time.RFC3339))
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		msg := abuseErr.Message
		if abuseErr.RetryAfter != nil {
			msg += fmt.Sprintf("\nRetry after %s", abuseErr.RetryAfter.String())
		}
		return msg
	}
	return ""
}

func describeSyncError(err error) error {
	switch {
	case errors.Is(err, domain.ErrStoreCorruption):
		return fmt.Errorf("database is inconsistent with GitHub, refusing to continue: %w", err)
	case store.IsIntegrityViolation(err):
		return fmt.Errorf("database integrity violation: %w", err)
	}
	return err
}

func printRateLimit(ctx context.Context, fetcher gateway.Fetcher, w io.Writer) {
	rl, err := fetcher.RateLimit(ctx)
	if err != nil {
		fmt.Fprintf(w, "Failed to get GitHub rate limit: %v\n", err)
		return
	}
	fmt.Fprintf(w, "GitHub Rate Limiting Info\n"+
		"- requests remaining: %d\n"+
		"- request_limit: %d\n"+
		"- rate_limiting_resettime: %s\n",
		rl.Remaining, rl.Limit, rl.Reset.Format(time.RFC3339))
}
