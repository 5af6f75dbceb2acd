// Package ledger records matching pipeline outcomes as immutable,
// append-then-transition records subject to human verification.
package ledger

import (
	"fmt"
	"time"
)

// VerificationStatus is the review state of a match record.
type VerificationStatus string

const (
	VerificationPending       VerificationStatus = "pending"
	VerificationConfirmed     VerificationStatus = "confirmed"
	VerificationFalsePositive VerificationStatus = "false_positive"
)

// ParseVerificationStatus rejects unrecognized values at the boundary.
func ParseVerificationStatus(s string) (VerificationStatus, error) {
	switch VerificationStatus(s) {
	case VerificationPending, VerificationConfirmed, VerificationFalsePositive:
		return VerificationStatus(s), nil
	}
	return "", fmt.Errorf("unknown verification status %q", s)
}

// Terminal reports whether no further transition may leave the status.
func (v VerificationStatus) Terminal() bool {
	return v == VerificationConfirmed || v == VerificationFalsePositive
}

// MatchRecord is a ledger entry created exactly once per qualifying
// submission, always in pending state. Only VerificationStatus and
// AlertSent ever change after creation; ID and Confidence never do.
// Verification transitions happen only through explicit police review,
// never automatically.
type MatchRecord struct {
	ID                 string
	SubmissionID       string
	CaseID             string
	EmbeddingID        string
	Confidence         float64
	VerificationStatus VerificationStatus
	AlertSent          bool
	CreatedAt          time.Time
	VerifiedAt         time.Time
}
