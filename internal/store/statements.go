package store

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed queries.yaml
var defaultStatements []byte

// TableStatements holds the SQL for one table or view.
type TableStatements struct {
	Create          string `yaml:"create"`
	Replace         string `yaml:"replace"`
	SelectUpdatedAt string `yaml:"select_updated_at"`
	SelectRange     string `yaml:"select_range"`
}

// Statements is the full set of SQL the store runs.
type Statements struct {
	PullRequests        TableStatements `yaml:"pull_requests"`
	IssueComments       TableStatements `yaml:"issue_comments"`
	PullRequestReviews  TableStatements `yaml:"pull_request_reviews"`
	PullRequestComments TableStatements `yaml:"pull_request_comments"`
	AllCounts           TableStatements `yaml:"all_counts"`
}

// LoadStatements reads statements from path, or returns the embedded
// defaults when path is empty.
func LoadStatements(path string) (*Statements, error) {
	data := defaultStatements
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read sql file: %w", err)
		}
	}

	var stmts Statements
	if err := yaml.Unmarshal(data, &stmts); err != nil {
		return nil, fmt.Errorf("failed to parse sql file: %w", err)
	}
	if err := stmts.validate(); err != nil {
		return nil, err
	}
	return &stmts, nil
}

func (s *Statements) validate() error {
	required := map[string]string{
		"pull_requests.create":            s.PullRequests.Create,
		"pull_requests.replace":           s.PullRequests.Replace,
		"pull_requests.select_updated_at": s.PullRequests.SelectUpdatedAt,
		"issue_comments.create":           s.IssueComments.Create,
		"issue_comments.replace":          s.IssueComments.Replace,
		"pull_request_reviews.create":     s.PullRequestReviews.Create,
		"pull_request_reviews.replace":    s.PullRequestReviews.Replace,
		"pull_request_comments.create":    s.PullRequestComments.Create,
		"pull_request_comments.replace":   s.PullRequestComments.Replace,
		"all_counts.create":               s.AllCounts.Create,
		"all_counts.select_range":         s.AllCounts.SelectRange,
	}
	for name, stmt := range required {
		if stmt == "" {
			return fmt.Errorf("sql file: %s is required", name)
		}
	}
	return nil
}

// creates returns the DDL in dependency order.
func (s *Statements) creates() []struct{ name, stmt string } {
	return []struct{ name, stmt string }{
		{"pull_requests", s.PullRequests.Create},
		{"issue_comments", s.IssueComments.Create},
		{"pull_request_reviews", s.PullRequestReviews.Create},
		{"pull_request_comments", s.PullRequestComments.Create},
		{"all_counts", s.AllCounts.Create},
	}
}
