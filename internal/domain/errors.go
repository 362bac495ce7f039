package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStoreCorruption is matched by StoreCorruptionError.
	ErrStoreCorruption = errors.New("store corruption")
	// ErrNotImplemented is matched by UnsupportedEntityError.
	ErrNotImplemented = errors.New("not implemented")
)

// StoreCorruptionError reports a stored updated_at that is newer than the one
// returned by GitHub for the same pull request.
type StoreCorruptionError struct {
	URL      string
	Remote   time.Time
	Database time.Time
}

func (e *StoreCorruptionError) Error() string {
	return fmt.Sprintf("updated_at in database is newer than updated_at returned from GitHub API [url=%s, github=%s, database=%s]",
		e.URL, e.Remote.Format(time.RFC3339), e.Database.Format(time.RFC3339))
}

func (e *StoreCorruptionError) Is(target error) bool {
	return target == ErrStoreCorruption
}

// UnsupportedEntityError is returned for search results that are not pull requests.
type UnsupportedEntityError struct {
	URL string
}

func (e *UnsupportedEntityError) Error() string {
	return fmt.Sprintf("aggregating issues is not implemented [url=%s]", e.URL)
}

func (e *UnsupportedEntityError) Is(target error) bool {
	return target == ErrNotImplemented
}
