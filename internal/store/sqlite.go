// Package store persists mirrored pull request activity in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/naka-gawa/prcounter/internal/domain"
	"github.com/sirupsen/logrus"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const timeLayout = time.RFC3339

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore writes entities inside a transaction that is opened by the
// first write and closed by Commit.
type SQLiteStore struct {
	db     *sql.DB
	tx     *sql.Tx
	stmts  *Statements
	logger logrus.FieldLogger
}

// Open opens (or creates) the database at path.
func Open(path string, stmts *Statements, logger logrus.FieldLogger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps reads inside the open transaction.
	db.SetMaxOpenConns(1)

	return &SQLiteStore{
		db:     db,
		stmts:  stmts,
		logger: logger.WithField("component", "store"),
	}, nil
}

// CreateTables runs every create statement.
func (s *SQLiteStore) CreateTables(ctx context.Context) error {
	for _, c := range s.stmts.creates() {
		s.logger.Debugf("creating table %q", c.name)
		if _, err := s.db.ExecContext(ctx, c.stmt); err != nil {
			return fmt.Errorf("failed to create %s: %w", c.name, err)
		}
	}
	return nil
}

// Close rolls back any uncommitted writes and closes the database.
func (s *SQLiteStore) Close() error {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) conn() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *SQLiteStore) begin(ctx context.Context) (*sql.Tx, error) {
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction: %w", err)
		}
		s.tx = tx
	}
	return s.tx, nil
}

// exec runs a write statement. Driver errors are returned unchanged so
// constraint violations reach the caller as-is.
func (s *SQLiteStore) exec(ctx context.Context, stmt string, args ...any) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, stmt, args...)
	return err
}

// Commit makes all writes since the last commit durable.
func (s *SQLiteStore) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(); err != nil {
		// A failed deferred constraint check leaves SQLite's transaction open.
		_, _ = s.db.ExecContext(ctx, "ROLLBACK")
		return err
	}
	return nil
}

// Rollback discards all writes since the last commit.
func (s *SQLiteStore) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	// A cancelled context has already rolled the transaction back.
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	return nil
}

// LastUpdatedAt returns the stored updated_at of the pull request at url.
func (s *SQLiteStore) LastUpdatedAt(ctx context.Context, url string) (time.Time, bool, error) {
	var raw string
	err := s.conn().QueryRowContext(ctx, s.stmts.PullRequests.SelectUpdatedAt, url).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to select updated_at: %w", err)
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse updated_at %q: %w", raw, err)
	}
	return t, true, nil
}

func (s *SQLiteStore) ReplacePullRequest(ctx context.Context, pr *domain.PullRequest) error {
	return s.exec(ctx, s.stmts.PullRequests.Replace,
		pr.URL, pr.User, formatTime(pr.CreatedAt), formatTime(pr.UpdatedAt), formatNullTime(pr.MergedAt), pr.IssueURL)
}

func (s *SQLiteStore) ReplaceIssueComment(ctx context.Context, c *domain.IssueComment) error {
	return s.exec(ctx, s.stmts.IssueComments.Replace,
		c.URL, c.User, formatTime(c.CreatedAt), c.IssueURL)
}

func (s *SQLiteStore) ReplaceReview(ctx context.Context, r *domain.Review) error {
	s.logger.WithFields(logrus.Fields{
		"review_id":        r.Key.ID,
		"pull_request_url": r.Key.PullRequestURL,
	}).Debug("updating review")
	return s.exec(ctx, s.stmts.PullRequestReviews.Replace,
		r.Key.URL(), r.User, formatNullTime(r.SubmittedAt), r.Key.PullRequestURL)
}

func (s *SQLiteStore) ReplaceReviewComment(ctx context.Context, c *domain.ReviewComment) error {
	return s.exec(ctx, s.stmts.PullRequestComments.Replace,
		c.URL, c.User, formatTime(c.CreatedAt), c.PullRequestURL)
}

// RangeAggregate sums the daily counts of every user over [start, end].
// When users is non-empty only those logins are returned.
func (s *SQLiteStore) RangeAggregate(ctx context.Context, start, end time.Time, users []string) ([]domain.UserCount, error) {
	rows, err := s.conn().QueryContext(ctx, s.stmts.AllCounts.SelectRange,
		start.Format(time.DateOnly), end.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to query all_counts: %w", err)
	}
	defer rows.Close()

	results := []domain.UserCount{}
	for rows.Next() {
		var c domain.UserCount
		if err := rows.Scan(&c.User, &c.CreatedPullRequestCount, &c.MergedPullRequestCount,
			&c.CommentedPullRequestCount, &c.CommentCount); err != nil {
			return nil, fmt.Errorf("failed to scan all_counts: %w", err)
		}
		if len(users) > 0 && !slices.Contains(users, c.User) {
			continue
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// IsIntegrityViolation reports whether err is a SQLite constraint failure.
func IsIntegrityViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
