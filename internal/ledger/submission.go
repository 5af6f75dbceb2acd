package ledger

import "time"

// Submission records that a query was processed, matched or not. The
// originating image is never retained — only the opaque fingerprint
// survives, and solely for duplicate-submission tracking by external
// collaborators.
type Submission struct {
	ID          string
	Code        string // short reference code handed to the submitter
	Fingerprint string
	Matched     bool
	CreatedAt   time.Time
}
