package usecase

import (
	"context"
	"iter"
	"time"

	"github.com/naka-gawa/prcounter/internal/domain"
	"github.com/stretchr/testify/mock"
)

// mockFetcher is a mock implementation of the gateway.Fetcher interface.
// It allows us to simulate the behavior of the GitHub gateway without making real API calls.
type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) SearchPullRequests(ctx context.Context, query string) iter.Seq2[domain.SearchResult, error] {
	args := m.Called(ctx, query)
	return args.Get(0).(iter.Seq2[domain.SearchResult, error])
}

func (m *mockFetcher) ListIssueComments(ctx context.Context, issueURL string, since *time.Time) ([]*domain.IssueComment, error) {
	args := m.Called(ctx, issueURL, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.IssueComment), args.Error(1)
}

func (m *mockFetcher) ListReviews(ctx context.Context, pullRequestURL string) ([]*domain.Review, error) {
	args := m.Called(ctx, pullRequestURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Review), args.Error(1)
}

func (m *mockFetcher) ListReviewComments(ctx context.Context, pullRequestURL string, since *time.Time) ([]*domain.ReviewComment, error) {
	args := m.Called(ctx, pullRequestURL, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ReviewComment), args.Error(1)
}

func (m *mockFetcher) RateLimit(ctx context.Context) (domain.RateLimit, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.RateLimit), args.Error(1)
}

// mockStore is a mock implementation of the Store interface.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) LastUpdatedAt(ctx context.Context, url string) (time.Time, bool, error) {
	args := m.Called(ctx, url)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *mockStore) ReplacePullRequest(ctx context.Context, pr *domain.PullRequest) error {
	return m.Called(ctx, pr).Error(0)
}

func (m *mockStore) ReplaceIssueComment(ctx context.Context, c *domain.IssueComment) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockStore) ReplaceReview(ctx context.Context, r *domain.Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockStore) ReplaceReviewComment(ctx context.Context, c *domain.ReviewComment) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockStore) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// mockCountReader is a mock implementation of the CountReader interface.
type mockCountReader struct {
	mock.Mock
}

func (m *mockCountReader) RangeAggregate(ctx context.Context, start, end time.Time, users []string) ([]domain.UserCount, error) {
	args := m.Called(ctx, start, end, users)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.UserCount), args.Error(1)
}

// seqOf builds a search result sequence from fixed results.
func seqOf(results ...domain.SearchResult) iter.Seq2[domain.SearchResult, error] {
	return func(yield func(domain.SearchResult, error) bool) {
		for _, r := range results {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// failingSeq yields the given results, then err.
func failingSeq(err error, results ...domain.SearchResult) iter.Seq2[domain.SearchResult, error] {
	return func(yield func(domain.SearchResult, error) bool) {
		for _, r := range results {
			if !yield(r, nil) {
				return
			}
		}
		yield(domain.SearchResult{}, err)
	}
}
