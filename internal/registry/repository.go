package registry

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCaseNotFound is returned when a case ID does not exist. During
	// match enrichment this degrades to case_id-only output, it never
	// blocks record creation.
	ErrCaseNotFound = errors.New("case not found")

	// ErrDuplicateReportNumber is returned when a report number is already
	// registered. Report numbers are unique and immutable.
	ErrDuplicateReportNumber = errors.New("duplicate report number")
)

// Filter narrows List results. Zero values match everything. Name is
// compared against the normalized full name (lowercase, diacritics folded).
type Filter struct {
	Status Status
	Name   string
}

// CaseRepository provides access to missing-person case records.
type CaseRepository interface {
	// Create persists a new case. ID, CreatedAt and UpdatedAt are assigned
	// by the repository; Status defaults to active.
	Create(ctx context.Context, c Case) (Case, error)

	// Get returns a case by ID or ErrCaseNotFound.
	Get(ctx context.Context, id string) (Case, error)

	// List returns cases matching the filter, newest first.
	List(ctx context.Context, f Filter) ([]Case, error)

	// UpdateStatus transitions a case's lifecycle status. Setting
	// StatusClosed records the closure time used by the purge janitor.
	UpdateStatus(ctx context.Context, id string, status Status) (Case, error)

	// ClosedBefore returns the IDs of closed cases whose closure time is
	// before the cutoff and that have not been purged yet.
	ClosedBefore(ctx context.Context, cutoff time.Time) ([]string, error)

	// MarkPurged records that a closed case's embeddings have been purged.
	MarkPurged(ctx context.Context, id string) error
}
