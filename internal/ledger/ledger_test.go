package ledger

import (
	"context"
	"errors"
	"testing"
)

func TestParseVerificationStatus(t *testing.T) {
	for _, valid := range []string{"pending", "confirmed", "false_positive"} {
		if _, err := ParseVerificationStatus(valid); err != nil {
			t.Errorf("ParseVerificationStatus(%q) error = %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "rejected", "PENDING", "done"} {
		if _, err := ParseVerificationStatus(invalid); err == nil {
			t.Errorf("ParseVerificationStatus(%q) accepted an unknown status", invalid)
		}
	}
}

func TestAppendStartsPending(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	rec, err := l.Append(ctx, MatchRecord{
		SubmissionID: "sub-1",
		CaseID:       "case-1",
		EmbeddingID:  "emb-1",
		Confidence:   0.91,
		// Attempted status injection must be overwritten.
		VerificationStatus: VerificationConfirmed,
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		t.Error("Append() did not assign ID and CreatedAt")
	}
	if rec.VerificationStatus != VerificationPending {
		t.Errorf("status = %s, want pending on creation", rec.VerificationStatus)
	}
}

func TestVerifyTransitions(t *testing.T) {
	tests := []struct {
		name     string
		decision VerificationStatus
	}{
		{"confirm", VerificationConfirmed},
		{"false positive", VerificationFalsePositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewMemoryLedger()
			ctx := context.Background()

			rec, err := l.Append(ctx, MatchRecord{CaseID: "case-1", Confidence: 0.8})
			if err != nil {
				t.Fatalf("Append() error = %v", err)
			}

			verified, err := l.Verify(ctx, rec.ID, tt.decision)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if verified.VerificationStatus != tt.decision {
				t.Errorf("status = %s, want %s", verified.VerificationStatus, tt.decision)
			}
			if verified.VerifiedAt.IsZero() {
				t.Error("VerifiedAt not set")
			}
			if verified.Confidence != rec.Confidence {
				t.Error("Confidence changed across verification")
			}

			// Terminal means terminal, even for the same decision again.
			if _, err := l.Verify(ctx, rec.ID, tt.decision); !errors.Is(err, ErrAlreadyVerified) {
				t.Errorf("second Verify() error = %v, want ErrAlreadyVerified", err)
			}
		})
	}
}

func TestVerifyRejectsInvalidDecision(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	rec, err := l.Append(ctx, MatchRecord{CaseID: "case-1"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// Pending is not a decision; the record must stay pending.
	if _, err := l.Verify(ctx, rec.ID, VerificationPending); err == nil {
		t.Fatal("Verify(pending) accepted")
	}
	got, err := l.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.VerificationStatus != VerificationPending {
		t.Errorf("status = %s after rejected decision, want pending", got.VerificationStatus)
	}
}

func TestVerifyUnknownRecord(t *testing.T) {
	l := NewMemoryLedger()
	if _, err := l.Verify(context.Background(), "missing", VerificationConfirmed); !errors.Is(err, ErrMatchNotFound) {
		t.Errorf("Verify() error = %v, want ErrMatchNotFound", err)
	}
}

func TestListMatchesFilter(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	a, _ := l.Append(ctx, MatchRecord{CaseID: "case-a", Confidence: 0.8})
	if _, err := l.Append(ctx, MatchRecord{CaseID: "case-b", Confidence: 0.9}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if _, err := l.Verify(ctx, a.ID, VerificationConfirmed); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	all, err := l.ListMatches(ctx, MatchFilter{})
	if err != nil {
		t.Fatalf("ListMatches() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("unfiltered list has %d records, want 2", len(all))
	}

	pending, _ := l.ListMatches(ctx, MatchFilter{Status: VerificationPending})
	if len(pending) != 1 || pending[0].CaseID != "case-b" {
		t.Errorf("pending filter = %v, want only case-b", pending)
	}

	byCase, _ := l.ListMatches(ctx, MatchFilter{CaseID: "case-a"})
	if len(byCase) != 1 || byCase[0].ID != a.ID {
		t.Errorf("case filter = %v, want only case-a's record", byCase)
	}
}

func TestSubmissionRoundTrip(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	sub, err := l.Record(ctx, Submission{Code: "A1B2C3D4", Fingerprint: "abc", Matched: true})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if sub.ID == "" || sub.CreatedAt.IsZero() {
		t.Error("Record() did not assign ID and CreatedAt")
	}

	got, err := l.GetByCode(ctx, "A1B2C3D4")
	if err != nil {
		t.Fatalf("GetByCode() error = %v", err)
	}
	if !got.Matched || got.Fingerprint != "abc" {
		t.Errorf("GetByCode() = %+v, want the recorded submission", got)
	}

	if _, err := l.GetByCode(ctx, "NOPE1234"); !errors.Is(err, ErrSubmissionNotFound) {
		t.Errorf("GetByCode(unknown) error = %v, want ErrSubmissionNotFound", err)
	}
}

func TestRecordRejectsDuplicateCode(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	if _, err := l.Record(ctx, Submission{Code: "A1B2C3D4", Fingerprint: "first"}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if _, err := l.Record(ctx, Submission{Code: "A1B2C3D4", Fingerprint: "second"}); err == nil {
		t.Fatal("Record() accepted a duplicate submission code")
	}

	// The original submission survives the rejected write.
	got, err := l.GetByCode(ctx, "A1B2C3D4")
	if err != nil {
		t.Fatalf("GetByCode() error = %v", err)
	}
	if got.Fingerprint != "first" {
		t.Errorf("fingerprint = %q, want the original submission intact", got.Fingerprint)
	}
}
