package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/prcounter/internal/domain"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	apiRoot  = "https://api.github.com/repos/org/repo"
	prURL    = apiRoot + "/pulls/1"
	issueURL = apiRoot + "/issues/1"
)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler) *GitHubGateway {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	// Setup REST client to point to the mock server.
	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	logger, _ := test.NewNullLogger()
	return &GitHubGateway{
		restClient: restClient,
		logger:     logger,
	}
}

func TestGitHubGateway_SearchPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/issues", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "repo:org/repo is:pr", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"total_count": 2, "items": [
				{"url": "`+apiRoot+`/issues/2", "user": {"login": "bob"},
				 "created_at": "2018-01-03T00:00:00Z", "updated_at": "2018-01-04T00:00:00Z"}
			]}`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/search/issues?q=x&page=2>; rel="next"`, "http://"+r.Host))
		fmt.Fprint(w, `{"total_count": 2, "items": [
			{"url": "`+issueURL+`", "user": {"login": "alice"},
			 "created_at": "2018-01-01T00:00:00Z", "updated_at": "2018-01-02T00:00:00Z",
			 "pull_request": {"url": "`+prURL+`", "merged_at": "2018-01-02T00:00:00Z"}}
		]}`)
	})
	gateway := setupTestGateway(t, mux)

	var results []domain.SearchResult
	for result, err := range gateway.SearchPullRequests(context.Background(), "repo:org/repo is:pr") {
		require.NoError(t, err)
		results = append(results, result)
	}

	require.Len(t, results, 2)
	pr := results[0].PullRequest
	require.NotNil(t, pr)
	assert.Equal(t, prURL, pr.URL)
	assert.Equal(t, issueURL, pr.IssueURL)
	assert.Equal(t, "alice", pr.User)
	assert.True(t, pr.UpdatedAt.Equal(time.Date(2018, 1, 2, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, pr.MergedAt)
	assert.True(t, pr.MergedAt.Equal(time.Date(2018, 1, 2, 0, 0, 0, 0, time.UTC)))

	assert.Nil(t, results[1].PullRequest, "plain issues carry no pull request")
	assert.Equal(t, apiRoot+"/issues/2", results[1].IssueURL)
}

func TestGitHubGateway_SearchPullRequests_Error(t *testing.T) {
	gateway := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"message": "Internal Server Error"}`)
	}))

	var errs []error
	for _, err := range gateway.SearchPullRequests(context.Background(), "is:pr") {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "failed to search issues")
}

func TestGitHubGateway_Listings(t *testing.T) {
	since := time.Date(2018, 1, 5, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name        string
		path        string
		wantSince   string
		response    string
		call        func(g *GitHubGateway) (any, error)
		expected    any
		expectError bool
	}{
		{
			name:      "issue comments with since",
			path:      "/repos/org/repo/issues/1/comments",
			wantSince: "2018-01-05T00:00:00Z",
			response:  `[{"url": "` + issueURL + `/comments/9", "user": {"login": "bob"}, "created_at": "2018-01-06T00:00:00Z", "issue_url": "` + issueURL + `"}]`,
			call: func(g *GitHubGateway) (any, error) {
				return g.ListIssueComments(context.Background(), issueURL, &since)
			},
			expected: []*domain.IssueComment{
				{URL: issueURL + "/comments/9", User: "bob", CreatedAt: time.Date(2018, 1, 6, 0, 0, 0, 0, time.UTC), IssueURL: issueURL},
			},
		},
		{
			name:     "issue comments without since",
			path:     "/repos/org/repo/issues/1/comments",
			response: `[]`,
			call: func(g *GitHubGateway) (any, error) {
				return g.ListIssueComments(context.Background(), issueURL, nil)
			},
			expected: []*domain.IssueComment(nil),
		},
		{
			name:     "reviews",
			path:     "/repos/org/repo/pulls/1/reviews",
			response: `[{"id": 42, "user": {"login": "carol"}, "submitted_at": "2018-01-07T00:00:00Z", "pull_request_url": "` + prURL + `"}, {"id": 43, "user": {"login": "dave"}}]`,
			call: func(g *GitHubGateway) (any, error) {
				return g.ListReviews(context.Background(), prURL)
			},
			expected: []*domain.Review{
				{Key: domain.ReviewKey{PullRequestURL: prURL, ID: 42}, User: "carol", SubmittedAt: timePtr(time.Date(2018, 1, 7, 0, 0, 0, 0, time.UTC))},
				{Key: domain.ReviewKey{PullRequestURL: prURL, ID: 43}, User: "dave"},
			},
		},
		{
			name:      "review comments with since",
			path:      "/repos/org/repo/pulls/1/comments",
			wantSince: "2018-01-05T00:00:00Z",
			response:  `[{"url": "` + apiRoot + `/pulls/comments/5", "user": {"login": "erin"}, "created_at": "2018-01-08T00:00:00Z", "pull_request_url": "` + prURL + `"}]`,
			call: func(g *GitHubGateway) (any, error) {
				return g.ListReviewComments(context.Background(), prURL, &since)
			},
			expected: []*domain.ReviewComment{
				{URL: apiRoot + "/pulls/comments/5", User: "erin", CreatedAt: time.Date(2018, 1, 8, 0, 0, 0, 0, time.UTC), PullRequestURL: prURL},
			},
		},
		{
			name:     "malformed resource url",
			path:     "/unused",
			response: `[]`,
			call: func(g *GitHubGateway) (any, error) {
				return g.ListReviews(context.Background(), "https://api.github.com/users/alice")
			},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc(tc.path, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tc.wantSince, r.URL.Query().Get("since"))
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, tc.response)
			})
			gateway := setupTestGateway(t, mux)

			got, err := tc.call(gateway)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestGitHubGateway_RateLimit(t *testing.T) {
	gateway := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rate_limit", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"resources": {"core": {"limit": 5000, "remaining": 4321, "reset": 1514764800}}}`)
	}))

	got, err := gateway.RateLimit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5000, got.Limit)
	assert.Equal(t, 4321, got.Remaining)
	assert.True(t, got.Reset.Equal(time.Unix(1514764800, 0)))
}

func TestParseResourceURL(t *testing.T) {
	testCases := []struct {
		raw         string
		owner, repo string
		number      int
		expectError bool
	}{
		{raw: prURL, owner: "org", repo: "repo", number: 1},
		{raw: "https://ghe.example.com/api/v3/repos/team/svc/issues/77", owner: "team", repo: "svc", number: 77},
		{raw: "https://api.github.com/repos/org/repo/pulls/abc", expectError: true},
		{raw: "https://api.github.com/repos/org/repo", expectError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			owner, repo, number, err := parseResourceURL(tc.raw)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.owner, owner)
			assert.Equal(t, tc.repo, repo)
			assert.Equal(t, tc.number, number)
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }
