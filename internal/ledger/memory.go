package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLedger is the in-process match ledger and submission log.
type MemoryLedger struct {
	mu          sync.RWMutex
	matches     map[string]MatchRecord
	submissions map[string]Submission // keyed by code
}

var (
	_ MatchRepository      = (*MemoryLedger)(nil)
	_ SubmissionRepository = (*MemoryLedger)(nil)
)

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		matches:     make(map[string]MatchRecord),
		submissions: make(map[string]Submission),
	}
}

// Append persists a new match record in pending state.
func (l *MemoryLedger) Append(ctx context.Context, rec MatchRecord) (MatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec.ID = uuid.NewString()
	rec.VerificationStatus = VerificationPending
	rec.CreatedAt = time.Now().UTC()
	l.matches[rec.ID] = rec
	return rec, nil
}

// Get returns a record by ID.
func (l *MemoryLedger) Get(ctx context.Context, id string) (MatchRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.matches[id]
	if !ok {
		return MatchRecord{}, ErrMatchNotFound
	}
	return rec, nil
}

// ListMatches returns records matching the filter, newest first.
func (l *MemoryLedger) ListMatches(ctx context.Context, f MatchFilter) ([]MatchRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []MatchRecord
	for _, rec := range l.matches {
		if f.Status != "" && rec.VerificationStatus != f.Status {
			continue
		}
		if f.CaseID != "" && rec.CaseID != f.CaseID {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Verify transitions a pending record to a terminal decision.
func (l *MemoryLedger) Verify(ctx context.Context, id string, decision VerificationStatus) (MatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.matches[id]
	if !ok {
		return MatchRecord{}, ErrMatchNotFound
	}
	if !decision.Terminal() {
		return MatchRecord{}, fmt.Errorf("invalid verification decision %q", decision)
	}
	if rec.VerificationStatus.Terminal() {
		return MatchRecord{}, ErrAlreadyVerified
	}

	rec.VerificationStatus = decision
	rec.VerifiedAt = time.Now().UTC()
	l.matches[id] = rec
	return rec, nil
}

// Record persists a submission outcome.
func (l *MemoryLedger) Record(ctx context.Context, sub Submission) (Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Codes are unique references handed to submitters; an overwrite would
	// silently orphan the earlier submission. Postgres enforces this with a
	// UNIQUE constraint.
	if _, exists := l.submissions[sub.Code]; exists {
		return Submission{}, fmt.Errorf("submission code %q already in use", sub.Code)
	}

	sub.ID = uuid.NewString()
	sub.CreatedAt = time.Now().UTC()
	l.submissions[sub.Code] = sub
	return sub, nil
}

// GetByCode returns a submission by its reference code.
func (l *MemoryLedger) GetByCode(ctx context.Context, code string) (Submission, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	sub, ok := l.submissions[code]
	if !ok {
		return Submission{}, ErrSubmissionNotFound
	}
	return sub, nil
}
