// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"time"

	"github.com/naka-gawa/prcounter/internal/domain"
	"github.com/naka-gawa/prcounter/internal/gateway"
	"github.com/sirupsen/logrus"
)

// FetchMode is how much of a pull request has to be pulled again.
type FetchMode int

const (
	ModeFull FetchMode = iota
	ModeSkip
	ModeIncremental
	ModeCorrupt
)

func (m FetchMode) String() string {
	switch m {
	case ModeFull:
		return "full"
	case ModeSkip:
		return "skip"
	case ModeIncremental:
		return "incremental"
	case ModeCorrupt:
		return "corrupt"
	}
	return "unknown"
}

// Decision is the outcome of comparing stored and remote updated_at.
// Since is only set for ModeIncremental.
type Decision struct {
	Mode  FetchMode
	Since *time.Time
}

// Decide picks the fetch mode for a pull request. found reports whether the
// store has a row for it; previous is its stored updated_at.
func Decide(previous time.Time, found bool, updatedAt time.Time) Decision {
	switch {
	case !found:
		return Decision{Mode: ModeFull}
	case previous.Equal(updatedAt):
		return Decision{Mode: ModeSkip}
	case previous.Before(updatedAt):
		since := previous
		return Decision{Mode: ModeIncremental, Since: &since}
	default:
		return Decision{Mode: ModeCorrupt}
	}
}

// Store is the persistence the Syncer writes through.
type Store interface {
	LastUpdatedAt(ctx context.Context, url string) (time.Time, bool, error)
	ReplacePullRequest(ctx context.Context, pr *domain.PullRequest) error
	ReplaceIssueComment(ctx context.Context, c *domain.IssueComment) error
	ReplaceReview(ctx context.Context, r *domain.Review) error
	ReplaceReviewComment(ctx context.Context, c *domain.ReviewComment) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Syncer mirrors the pull requests matching a search query into the store.
// Pull requests are processed one at a time and committed individually, so an
// interrupted run resumes from the last committed pull request.
type Syncer struct {
	fetcher gateway.Fetcher
	store   Store
	logger  logrus.FieldLogger
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(fetcher gateway.Fetcher, store Store, logger logrus.FieldLogger) *Syncer {
	return &Syncer{
		fetcher: fetcher,
		store:   store,
		logger:  logger.WithField("component", "syncer"),
	}
}

// Sync processes every search result of query. It stops at the first error;
// store errors are returned unchanged.
func (s *Syncer) Sync(ctx context.Context, query string) error {
	log := s.logger.WithField("query", query)
	log.Info("sync started")

	counts := make(map[FetchMode]int)
	for result, err := range s.fetcher.SearchPullRequests(ctx, query) {
		if err != nil {
			return err
		}
		if result.PullRequest == nil {
			return &domain.UnsupportedEntityError{URL: result.IssueURL}
		}

		mode, err := s.syncPullRequest(ctx, result.PullRequest)
		if err != nil {
			return err
		}
		counts[mode]++
		if mode == ModeSkip {
			continue
		}
		if err := s.store.Commit(ctx); err != nil {
			return err
		}
	}

	log.WithFields(logrus.Fields{
		"full":        counts[ModeFull],
		"incremental": counts[ModeIncremental],
		"skipped":     counts[ModeSkip],
	}).Info("sync finished")
	return nil
}

func (s *Syncer) syncPullRequest(ctx context.Context, pr *domain.PullRequest) (FetchMode, error) {
	log := s.logger.WithFields(logrus.Fields{"url": pr.URL, "updated_at": pr.UpdatedAt})
	log.Debug("sync pull request start")

	previous, found, err := s.store.LastUpdatedAt(ctx, pr.URL)
	if err != nil {
		return 0, err
	}
	d := Decide(previous, found, pr.UpdatedAt)
	log = log.WithField("mode", d.Mode)

	switch d.Mode {
	case ModeSkip:
		log.Debug("pull request is up to date")
		return d.Mode, nil
	case ModeCorrupt:
		return d.Mode, &domain.StoreCorruptionError{URL: pr.URL, Remote: pr.UpdatedAt, Database: previous}
	}

	comments, err := s.fetcher.ListIssueComments(ctx, pr.IssueURL, d.Since)
	if err != nil {
		return d.Mode, err
	}
	for _, c := range comments {
		if err := s.store.ReplaceIssueComment(ctx, c); err != nil {
			return d.Mode, err
		}
	}

	// Reviews cannot be filtered by since; replace-by-key keeps this idempotent.
	reviews, err := s.fetcher.ListReviews(ctx, pr.URL)
	if err != nil {
		return d.Mode, err
	}
	for _, r := range reviews {
		if err := s.store.ReplaceReview(ctx, r); err != nil {
			return d.Mode, err
		}
	}

	reviewComments, err := s.fetcher.ListReviewComments(ctx, pr.URL, d.Since)
	if err != nil {
		return d.Mode, err
	}
	for _, c := range reviewComments {
		if err := s.store.ReplaceReviewComment(ctx, c); err != nil {
			return d.Mode, err
		}
	}

	// Written last: until it lands, the stored updated_at still points at the
	// previous sync and a crash is recovered on the next run.
	if err := s.store.ReplacePullRequest(ctx, pr); err != nil {
		return d.Mode, err
	}

	log.WithFields(logrus.Fields{
		"issue_comments":  len(comments),
		"reviews":         len(reviews),
		"review_comments": len(reviewComments),
	}).Debug("sync pull request finished")
	return d.Mode, nil
}
