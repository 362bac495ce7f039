// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"fmt"
	"time"
)

// PullRequest is the mirrored state of a single pull request.
// URL is the REST API URL and is the primary key in the store.
type PullRequest struct {
	URL       string
	User      string
	CreatedAt time.Time
	UpdatedAt time.Time
	MergedAt  *time.Time
	IssueURL  string
}

// IssueComment is a conversation comment on a pull request. GitHub models
// these as issue resources, so they hang off the PR's issue URL.
type IssueComment struct {
	URL       string
	User      string
	CreatedAt time.Time
	IssueURL  string
}

// ReviewKey identifies a review. The API exposes no stable URL for reviews.
type ReviewKey struct {
	PullRequestURL string
	ID             int64
}

// URL returns the synthesized URL used as the review's key in the store.
func (k ReviewKey) URL() string {
	return fmt.Sprintf("%s/reviews/%d", k.PullRequestURL, k.ID)
}

// Review is a submitted pull request review. SubmittedAt is nil for pending reviews.
type Review struct {
	Key         ReviewKey
	User        string
	SubmittedAt *time.Time
}

// ReviewComment is a comment attached to a diff line of a pull request.
type ReviewComment struct {
	URL            string
	User           string
	CreatedAt      time.Time
	PullRequestURL string
}

// SearchResult is one item of an issue search. PullRequest is nil when the
// item is a plain issue.
type SearchResult struct {
	IssueURL    string
	PullRequest *PullRequest
}

// RateLimit describes the remaining REST quota.
type RateLimit struct {
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	Reset     time.Time `json:"reset"`
}
