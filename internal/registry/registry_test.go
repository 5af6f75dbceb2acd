package registry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"active", "found", "closed"} {
		if _, err := ParseStatus(valid); err != nil {
			t.Errorf("ParseStatus(%q) error = %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "open", "ACTIVE", "archived"} {
		if _, err := ParseStatus(invalid); err == nil {
			t.Errorf("ParseStatus(%q) accepted an unknown status", invalid)
		}
	}
}

func TestParseCategory(t *testing.T) {
	for _, valid := range []string{"child", "woman", "man", "elderly"} {
		if _, err := ParseCategory(valid); err != nil {
			t.Errorf("ParseCategory(%q) error = %v", valid, err)
		}
	}
	if _, err := ParseCategory("adult"); err == nil {
		t.Error("ParseCategory accepted an unknown category")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Amélie Dubois", "amelie dubois"},
		{"  JEAN-PIERRE  martin ", "jean pierre martin"},
		{"Björn", "bjorn"},
		{"", ""},
		{"already normal", "already normal"},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.in); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCreateAssignsDefaults(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	c, err := r.Create(ctx, Case{ReportNumber: "MP-2024-001", FullName: "Jana Nováková", Category: CategoryWoman})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		t.Error("Create() did not assign ID and CreatedAt")
	}
	if c.Status != StatusActive {
		t.Errorf("status = %s, want active by default", c.Status)
	}
}

func TestCreateRejectsDuplicateReportNumber(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	if _, err := r.Create(ctx, Case{ReportNumber: "MP-2024-001", FullName: "First"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := r.Create(ctx, Case{ReportNumber: "MP-2024-001", FullName: "Second"}); !errors.Is(err, ErrDuplicateReportNumber) {
		t.Errorf("Create() error = %v, want ErrDuplicateReportNumber", err)
	}
}

func TestListFilters(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	a, _ := r.Create(ctx, Case{ReportNumber: "MP-1", FullName: "Amélie Dubois"})
	b, _ := r.Create(ctx, Case{ReportNumber: "MP-2", FullName: "Jean-Pierre Martin"})
	if _, err := r.UpdateStatus(ctx, b.ID, StatusFound); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	active, err := r.List(ctx, Filter{Status: StatusActive})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(active) != 1 || active[0].ID != a.ID {
		t.Errorf("status filter = %v, want only the active case", active)
	}

	// Diacritics-insensitive substring search.
	byName, _ := r.List(ctx, Filter{Name: "amelie"})
	if len(byName) != 1 || byName[0].ID != a.ID {
		t.Errorf("name filter = %v, want Amélie's case", byName)
	}
}

func TestUpdateStatusRecordsClosure(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	c, _ := r.Create(ctx, Case{ReportNumber: "MP-1", FullName: "Test"})
	closed, err := r.UpdateStatus(ctx, c.ID, StatusClosed)
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if closed.ClosedAt.IsZero() {
		t.Error("ClosedAt not set on closure")
	}

	if _, err := r.UpdateStatus(ctx, "missing", StatusClosed); !errors.Is(err, ErrCaseNotFound) {
		t.Errorf("UpdateStatus(unknown) error = %v, want ErrCaseNotFound", err)
	}
}

func TestReopenResetsPurgeCycle(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	c, _ := r.Create(ctx, Case{ReportNumber: "MP-1", FullName: "Test"})
	first, err := r.UpdateStatus(ctx, c.ID, StatusClosed)
	if err != nil {
		t.Fatalf("UpdateStatus(closed) error = %v", err)
	}
	if err := r.MarkPurged(ctx, c.ID); err != nil {
		t.Fatalf("MarkPurged() error = %v", err)
	}

	reopened, err := r.UpdateStatus(ctx, c.ID, StatusActive)
	if err != nil {
		t.Fatalf("UpdateStatus(active) error = %v", err)
	}
	if !reopened.ClosedAt.IsZero() {
		t.Errorf("ClosedAt = %v after reopening, want cleared", reopened.ClosedAt)
	}

	// Closing again starts a fresh purge cycle: a new closure time and a
	// place in the sweep set despite the earlier purge.
	second, err := r.UpdateStatus(ctx, c.ID, StatusClosed)
	if err != nil {
		t.Fatalf("second UpdateStatus(closed) error = %v", err)
	}
	if second.ClosedAt.IsZero() || second.ClosedAt.Before(first.ClosedAt) {
		t.Errorf("second closure at %v, want a fresh time after %v", second.ClosedAt, first.ClosedAt)
	}
	ids, err := r.ClosedBefore(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("ClosedBefore() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != c.ID {
		t.Errorf("ClosedBefore() after re-closure = %v, want the case pending again", ids)
	}
}

func TestClosedBefore(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	open, _ := r.Create(ctx, Case{ReportNumber: "MP-1", FullName: "Open"})
	closed, _ := r.Create(ctx, Case{ReportNumber: "MP-2", FullName: "Closed"})
	if _, err := r.UpdateStatus(ctx, closed.ID, StatusClosed); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	// Cutoff in the future covers the fresh closure; the open case stays out.
	ids, err := r.ClosedBefore(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("ClosedBefore() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != closed.ID {
		t.Errorf("ClosedBefore() = %v, want only the closed case", ids)
	}
	for _, id := range ids {
		if id == open.ID {
			t.Error("open case reported for purge")
		}
	}

	// Cutoff in the past: the closure is too recent.
	ids, _ = r.ClosedBefore(ctx, time.Now().UTC().Add(-time.Hour))
	if len(ids) != 0 {
		t.Errorf("ClosedBefore(past cutoff) = %v, want none", ids)
	}

	// Purged cases leave the sweep set.
	if err := r.MarkPurged(ctx, closed.ID); err != nil {
		t.Fatalf("MarkPurged() error = %v", err)
	}
	ids, _ = r.ClosedBefore(ctx, time.Now().UTC().Add(time.Hour))
	if len(ids) != 0 {
		t.Errorf("ClosedBefore() after MarkPurged = %v, want none", ids)
	}
}
