// Package domain provides shared business types used by all aggregates.
package domain

import (
	"errors"
	"time"

	"dairyledger/internal/core/id"
)

var (
	// ErrEmptyPeriod means a period is missing a boundary.
	ErrEmptyPeriod = errors.New("period start and end are required")
	// ErrInvertedPeriod means the period ends before it starts.
	ErrInvertedPeriod = errors.New("period end is before start")
)

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search performs a pattern match on searchable fields (document number)
	Search string

	// IDs filters by specific IDs
	IDs []id.ID

	// OrderBy specifies sorting (e.g., "date", "-created_at")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   50,
		OrderBy: "-date",
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// Period is an inclusive date range [Start, End] used for invoice coverage.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Validate checks the range is well-formed.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return ErrEmptyPeriod
	}
	if p.End.Before(p.Start) {
		return ErrInvertedPeriod
	}
	return nil
}

// Overlaps reports whether two inclusive ranges share at least one instant.
func (p Period) Overlaps(other Period) bool {
	return !p.End.Before(other.Start) && !other.End.Before(p.Start)
}

// Contains reports whether t falls inside the range.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}
