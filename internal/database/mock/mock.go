// Package mock provides error-injectable implementations of the storage
// contracts for handler and pipeline tests.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reunite-project/reunite/internal/database"
	"github.com/reunite-project/reunite/internal/vector"
)

// EmbeddingStore is a mock implementation of database.EmbeddingStore.
type EmbeddingStore struct {
	Dim int

	mu         sync.Mutex
	embeddings []database.StoredEmbedding
	nextID     int

	// Error injection
	InsertError   error
	SnapshotError error
	PurgeError    error
}

var _ database.EmbeddingStore = (*EmbeddingStore)(nil)

// NewEmbeddingStore creates a mock store for vectors of the given dimension.
func NewEmbeddingStore(dim int) *EmbeddingStore {
	return &EmbeddingStore{Dim: dim}
}

// Add seeds an embedding without validation, assigning a sequential ID.
func (m *EmbeddingStore) Add(emb database.StoredEmbedding) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if emb.ID == "" {
		emb.ID = fmt.Sprintf("emb-%d", m.nextID)
	}
	if emb.CapturedAt.IsZero() {
		emb.CapturedAt = time.Now().UTC()
	}
	m.embeddings = append(m.embeddings, emb)
	return emb.ID
}

// Dimension returns the configured vector dimension.
func (m *EmbeddingStore) Dimension() int { return m.Dim }

// Insert validates, normalizes and stores an embedding.
func (m *EmbeddingStore) Insert(ctx context.Context, emb database.StoredEmbedding) (string, error) {
	if m.InsertError != nil {
		return "", m.InsertError
	}
	if err := vector.Validate(emb.Vector, m.Dim); err != nil {
		return "", fmt.Errorf("%w: %v", database.ErrInvalidVectorKind, err)
	}
	normalized, err := vector.Normalize(emb.Vector)
	if err != nil {
		return "", fmt.Errorf("%w: %v", database.ErrInvalidVectorKind, err)
	}
	emb.Vector = normalized
	emb.CreatedAt = time.Now().UTC()
	return m.Add(emb), nil
}

// Snapshot returns a copy of the stored embeddings.
func (m *EmbeddingStore) Snapshot(ctx context.Context) (*database.Snapshot, error) {
	if m.SnapshotError != nil {
		return nil, m.SnapshotError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := &database.Snapshot{
		TakenAt:    time.Now().UTC(),
		Embeddings: make([]database.StoredEmbedding, len(m.embeddings)),
	}
	copy(snap.Embeddings, m.embeddings)
	return snap, nil
}

// Purge removes all embeddings for a case.
func (m *EmbeddingStore) Purge(ctx context.Context, caseID string) error {
	if m.PurgeError != nil {
		return m.PurgeError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]database.StoredEmbedding, 0, len(m.embeddings))
	for _, emb := range m.embeddings {
		if emb.CaseID != caseID {
			kept = append(kept, emb)
		}
	}
	m.embeddings = kept
	return nil
}

// Count returns the number of stored embeddings.
func (m *EmbeddingStore) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.embeddings), nil
}
