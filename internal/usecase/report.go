package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/prcounter/internal/domain"
	"github.com/sirupsen/logrus"
)

// CountReader answers range aggregation queries.
type CountReader interface {
	RangeAggregate(ctx context.Context, start, end time.Time, users []string) ([]domain.UserCount, error)
}

// Reporter builds the per-user activity report from the local store.
type Reporter struct {
	reader CountReader
	logger logrus.FieldLogger
}

// NewReporter creates a new Reporter instance.
func NewReporter(reader CountReader, logger logrus.FieldLogger) *Reporter {
	return &Reporter{
		reader: reader,
		logger: logger.WithField("component", "reporter"),
	}
}

// Report aggregates activity over the inclusive range [start, end]. An empty
// users list reports every user with activity.
func (r *Reporter) Report(ctx context.Context, start, end time.Time, users []string) (*domain.Report, error) {
	counts, err := r.reader.RangeAggregate(ctx, start, end, users)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate counts: %w", err)
	}
	r.logger.WithField("users", len(counts)).Debug("range aggregated")

	report := &domain.Report{
		StartDate: start.Format(time.DateOnly),
		EndDate:   end.Format(time.DateOnly),
		Users:     counts,
	}
	if len(counts) == 0 {
		return report, nil
	}

	columns := map[string]func(domain.UserCount) int{
		"created_pull_request_count":   func(c domain.UserCount) int { return c.CreatedPullRequestCount },
		"merged_pull_request_count":    func(c domain.UserCount) int { return c.MergedPullRequestCount },
		"commented_pull_request_count": func(c domain.UserCount) int { return c.CommentedPullRequestCount },
		"comment_count":                func(c domain.UserCount) int { return c.CommentCount },
	}
	report.Summary = make(map[string]domain.CountSummary, len(columns))
	for name, value := range columns {
		data := make(stats.Float64Data, 0, len(counts))
		for _, c := range counts {
			data = append(data, float64(value(c)))
		}
		summary, err := summarize(data)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize %s: %w", name, err)
		}
		report.Summary[name] = summary
	}
	return report, nil
}

func summarize(data stats.Float64Data) (domain.CountSummary, error) {
	mean, err := stats.Mean(data)
	if err != nil {
		return domain.CountSummary{}, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return domain.CountSummary{}, err
	}
	maximum, err := stats.Max(data)
	if err != nil {
		return domain.CountSummary{}, err
	}
	return domain.CountSummary{Mean: mean, Median: median, Max: maximum}, nil
}
