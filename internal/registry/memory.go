package registry

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is the in-process case repository used when no database
// is configured and by tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	cases   map[string]Case
	reports map[string]string // report number -> case ID
	purged  map[string]bool
}

var _ CaseRepository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty case repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		cases:   make(map[string]Case),
		reports: make(map[string]string),
		purged:  make(map[string]bool),
	}
}

// Create persists a new case.
func (r *MemoryRepository) Create(ctx context.Context, c Case) (Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reports[c.ReportNumber]; exists {
		return Case{}, ErrDuplicateReportNumber
	}

	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = StatusActive
	}

	r.cases[c.ID] = c
	r.reports[c.ReportNumber] = c.ID
	return c, nil
}

// Get returns a case by ID.
func (r *MemoryRepository) Get(ctx context.Context, id string) (Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cases[id]
	if !ok {
		return Case{}, ErrCaseNotFound
	}
	return c, nil
}

// List returns cases matching the filter, newest first.
func (r *MemoryRepository) List(ctx context.Context, f Filter) ([]Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := NormalizeName(f.Name)
	var out []Case
	for _, c := range r.cases {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if needle != "" && !strings.Contains(NormalizeName(c.FullName), needle) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateStatus transitions a case's lifecycle status.
func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, status Status) (Case, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cases[id]
	if !ok {
		return Case{}, ErrCaseNotFound
	}

	now := time.Now().UTC()
	c.Status = status
	c.UpdatedAt = now
	if status == StatusClosed {
		if c.ClosedAt.IsZero() {
			c.ClosedAt = now
		}
	} else {
		// Reopening resets the purge cycle: a later closure must be swept
		// again, with a fresh closure time.
		c.ClosedAt = time.Time{}
		delete(r.purged, id)
	}
	r.cases[id] = c
	return c, nil
}

// ClosedBefore returns unpurged closed cases with a closure time before cutoff.
func (r *MemoryRepository) ClosedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, c := range r.cases {
		if c.Status == StatusClosed && !c.ClosedAt.IsZero() && !c.ClosedAt.After(cutoff) && !r.purged[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// MarkPurged records that a case's embeddings have been purged.
func (r *MemoryRepository) MarkPurged(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purged[id] = true
	return nil
}
