package domain

// UserCount holds the activity counts for a single user over a date range.
// It is the core read model of this application.
type UserCount struct {
	User                      string `json:"user"`
	CreatedPullRequestCount   int    `json:"created_pull_request_count"`
	MergedPullRequestCount    int    `json:"merged_pull_request_count"`
	CommentedPullRequestCount int    `json:"commented_pull_request_count"`
	CommentCount              int    `json:"comment_count"`
}

// CountSummary describes one count column across all reported users.
type CountSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Report is the result of a range aggregation.
type Report struct {
	StartDate string                  `json:"start_date"`
	EndDate   string                  `json:"end_date"`
	Users     []UserCount             `json:"users"`
	Summary   map[string]CountSummary `json:"summary,omitempty"`
}
