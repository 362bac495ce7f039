// Package gateway provides a gateway to the GitHub REST API,
// abstracting away the underlying go-github client.
package gateway

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/prcounter/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

const perPage = 100

// Fetcher defines the behavior of a gateway for fetching pull request activity from GitHub.
type Fetcher interface {
	SearchPullRequests(ctx context.Context, query string) iter.Seq2[domain.SearchResult, error]
	ListIssueComments(ctx context.Context, issueURL string, since *time.Time) ([]*domain.IssueComment, error)
	// ListReviews has no since parameter; the API does not support one.
	ListReviews(ctx context.Context, pullRequestURL string) ([]*domain.Review, error)
	ListReviewComments(ctx context.Context, pullRequestURL string, since *time.Time) ([]*domain.ReviewComment, error)
	RateLimit(ctx context.Context) (domain.RateLimit, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient *github.Client
	logger     logrus.FieldLogger
}

var _ Fetcher = (*GitHubGateway)(nil)

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
// An empty baseURL targets github.com; anything else is treated as a GitHub Enterprise API URL.
// maxSleep bounds a single wait on a secondary rate limit.
func NewGitHubGateway(token, baseURL string, maxSleep time.Duration, logger logrus.FieldLogger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(maxSleep, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}

	client := github.NewClient(httpClient)
	if baseURL != "" && baseURL != client.BaseURL.String() {
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to set base url: %w", err)
		}
	}
	return &GitHubGateway{
		restClient: client,
		logger:     logger.WithField("component", "gateway"),
	}, nil
}

// SearchPullRequests pages through the issue search lazily. Iteration stops
// after the first error.
func (g *GitHubGateway) SearchPullRequests(ctx context.Context, query string) iter.Seq2[domain.SearchResult, error] {
	return func(yield func(domain.SearchResult, error) bool) {
		opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: perPage}}
		for {
			result, resp, err := g.restClient.Search.Issues(ctx, query, opts)
			if err != nil {
				yield(domain.SearchResult{}, fmt.Errorf("failed to search issues: %w", err))
				return
			}
			for _, issue := range result.Issues {
				if !yield(toSearchResult(issue), nil) {
					return
				}
			}
			if resp.NextPage == 0 {
				return
			}
			opts.Page = resp.NextPage
			g.logger.WithField("query", query).Debug("fetching next page of search results")
		}
	}
}

func (g *GitHubGateway) ListIssueComments(ctx context.Context, issueURL string, since *time.Time) ([]*domain.IssueComment, error) {
	owner, repo, number, err := parseResourceURL(issueURL)
	if err != nil {
		return nil, err
	}
	opts := &github.IssueListCommentsOptions{
		Since:       since,
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	var comments []*domain.IssueComment
	for {
		page, resp, err := g.restClient.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list issue comments: %w", err)
		}
		for _, c := range page {
			comments = append(comments, &domain.IssueComment{
				URL:       c.GetURL(),
				User:      c.GetUser().GetLogin(),
				CreatedAt: c.GetCreatedAt().Time,
				IssueURL:  c.GetIssueURL(),
			})
		}
		if resp.NextPage == 0 {
			return comments, nil
		}
		opts.Page = resp.NextPage
	}
}

func (g *GitHubGateway) ListReviews(ctx context.Context, pullRequestURL string) ([]*domain.Review, error) {
	owner, repo, number, err := parseResourceURL(pullRequestURL)
	if err != nil {
		return nil, err
	}
	opts := &github.ListOptions{PerPage: perPage}
	var reviews []*domain.Review
	for {
		page, resp, err := g.restClient.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list reviews: %w", err)
		}
		for _, r := range page {
			prURL := r.GetPullRequestURL()
			if prURL == "" {
				prURL = pullRequestURL
			}
			review := &domain.Review{
				Key:  domain.ReviewKey{PullRequestURL: prURL, ID: r.GetID()},
				User: r.GetUser().GetLogin(),
			}
			if r.SubmittedAt != nil {
				submittedAt := r.SubmittedAt.Time
				review.SubmittedAt = &submittedAt
			}
			reviews = append(reviews, review)
		}
		if resp.NextPage == 0 {
			return reviews, nil
		}
		opts.Page = resp.NextPage
	}
}

func (g *GitHubGateway) ListReviewComments(ctx context.Context, pullRequestURL string, since *time.Time) ([]*domain.ReviewComment, error) {
	owner, repo, number, err := parseResourceURL(pullRequestURL)
	if err != nil {
		return nil, err
	}
	opts := &github.PullRequestListCommentsOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	if since != nil {
		opts.Since = *since
	}
	var comments []*domain.ReviewComment
	for {
		page, resp, err := g.restClient.PullRequests.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list review comments: %w", err)
		}
		for _, c := range page {
			comments = append(comments, &domain.ReviewComment{
				URL:            c.GetURL(),
				User:           c.GetUser().GetLogin(),
				CreatedAt:      c.GetCreatedAt().Time,
				PullRequestURL: c.GetPullRequestURL(),
			})
		}
		if resp.NextPage == 0 {
			return comments, nil
		}
		opts.Page = resp.NextPage
	}
}

// RateLimit returns the core REST quota. The call itself is not counted against it.
func (g *GitHubGateway) RateLimit(ctx context.Context) (domain.RateLimit, error) {
	limits, _, err := g.restClient.RateLimit.Get(ctx)
	if err != nil {
		return domain.RateLimit{}, fmt.Errorf("failed to get rate limit: %w", err)
	}
	core := limits.GetCore()
	if core == nil {
		return domain.RateLimit{}, fmt.Errorf("rate limit response has no core quota")
	}
	return domain.RateLimit{
		Remaining: core.Remaining,
		Limit:     core.Limit,
		Reset:     core.Reset.Time,
	}, nil
}

func toSearchResult(issue *github.Issue) domain.SearchResult {
	result := domain.SearchResult{IssueURL: issue.GetURL()}
	if !issue.IsPullRequest() {
		return result
	}
	links := issue.GetPullRequestLinks()
	pr := &domain.PullRequest{
		URL:       links.GetURL(),
		User:      issue.GetUser().GetLogin(),
		CreatedAt: issue.GetCreatedAt().Time,
		UpdatedAt: issue.GetUpdatedAt().Time,
		IssueURL:  issue.GetURL(),
	}
	if links.MergedAt != nil {
		mergedAt := links.MergedAt.Time
		pr.MergedAt = &mergedAt
	}
	result.PullRequest = pr
	return result
}

// parseResourceURL extracts owner, repo and number from an API URL such as
// https://api.github.com/repos/{owner}/{repo}/pulls/{number}.
func parseResourceURL(raw string) (owner, repo string, number int, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to parse resource url %q: %w", raw, err)
	}
	_, rest, found := strings.Cut(u.Path, "/repos/")
	parts := strings.Split(rest, "/")
	if !found || len(parts) != 4 || parts[0] == "" || parts[1] == "" {
		return "", "", 0, fmt.Errorf("unexpected resource url %q", raw)
	}
	number, err = strconv.Atoi(parts[3])
	if err != nil {
		return "", "", 0, fmt.Errorf("unexpected resource number in %q: %w", raw, err)
	}
	return parts[0], parts[1], number, nil
}
