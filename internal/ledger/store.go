package ledger

import (
	"context"
	"errors"
)

var (
	// ErrMatchNotFound is returned when a match record ID does not exist.
	ErrMatchNotFound = errors.New("match record not found")

	// ErrAlreadyVerified is returned when verifying a record whose
	// verification state is already terminal.
	ErrAlreadyVerified = errors.New("match record already verified")

	// ErrSubmissionNotFound is returned when a submission code does not exist.
	ErrSubmissionNotFound = errors.New("submission not found")
)

// MatchFilter narrows ListMatches results. Zero values match everything.
type MatchFilter struct {
	Status VerificationStatus
	CaseID string
}

// MatchRepository is the append-only match ledger. Append must create at
// most one record per successful pipeline decision; Verify is the only
// state transition and is terminal.
type MatchRepository interface {
	// Append persists a new record in pending state and returns it with
	// ID and CreatedAt assigned.
	Append(ctx context.Context, rec MatchRecord) (MatchRecord, error)

	// Get returns a record by ID or ErrMatchNotFound.
	Get(ctx context.Context, id string) (MatchRecord, error)

	// ListMatches returns records matching the filter, newest first.
	ListMatches(ctx context.Context, f MatchFilter) ([]MatchRecord, error)

	// Verify transitions pending -> confirmed | false_positive. Fails with
	// ErrAlreadyVerified once the record is terminal.
	Verify(ctx context.Context, id string, decision VerificationStatus) (MatchRecord, error)
}

// SubmissionRepository records processed submissions.
type SubmissionRepository interface {
	// Record persists a submission outcome, assigning ID and CreatedAt.
	Record(ctx context.Context, sub Submission) (Submission, error)

	// GetByCode returns a submission by its reference code.
	GetByCode(ctx context.Context, code string) (Submission, error)
}
