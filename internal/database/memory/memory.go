// Package memory provides the in-process embedding store. It is the default
// backend when no DATABASE_URL is configured and the reference
// implementation of the snapshot semantics.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reunite-project/reunite/internal/database"
	"github.com/reunite-project/reunite/internal/vector"
)

// Store keeps embeddings in an append-mostly slice guarded by an RWMutex.
// Snapshot copies the slice under a read lock, so the similarity scan runs
// over an immutable view while inserts keep landing concurrently.
type Store struct {
	dim int

	mu         sync.RWMutex
	embeddings []database.StoredEmbedding
	generation uint64
}

var _ database.EmbeddingStore = (*Store)(nil)

// NewStore creates an empty store for vectors of the given dimension.
func NewStore(dim int) *Store {
	return &Store{dim: dim}
}

// Dimension returns the configured vector dimension.
func (s *Store) Dimension() int {
	return s.dim
}

// Insert normalizes and stores an embedding, returning its ID.
func (s *Store) Insert(ctx context.Context, emb database.StoredEmbedding) (string, error) {
	if err := vector.Validate(emb.Vector, s.dim); err != nil {
		return "", fmt.Errorf("%w: %v", database.ErrInvalidVectorKind, err)
	}

	normalized, err := vector.Normalize(emb.Vector)
	if err != nil {
		return "", fmt.Errorf("%w: %v", database.ErrInvalidVectorKind, err)
	}

	emb.ID = uuid.NewString()
	emb.Vector = normalized
	emb.CreatedAt = time.Now().UTC()
	if emb.CapturedAt.IsZero() {
		emb.CapturedAt = emb.CreatedAt
	}

	s.mu.Lock()
	s.embeddings = append(s.embeddings, emb)
	s.generation++
	s.mu.Unlock()

	return emb.ID, nil
}

// Snapshot returns a copy of the current embedding set. The copy is taken
// under the read lock, so no partially written vector can ever appear.
func (s *Store) Snapshot(ctx context.Context) (*database.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &database.Snapshot{
		Generation: s.generation,
		TakenAt:    time.Now().UTC(),
		Embeddings: make([]database.StoredEmbedding, len(s.embeddings)),
	}
	copy(snap.Embeddings, s.embeddings)
	return snap, nil
}

// Purge removes all embeddings for a case. No-op when the case has none.
func (s *Store) Purge(ctx context.Context, caseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]database.StoredEmbedding, 0, len(s.embeddings))
	for _, emb := range s.embeddings {
		if emb.CaseID != caseID {
			kept = append(kept, emb)
		}
	}
	if len(kept) != len(s.embeddings) {
		s.embeddings = kept
		s.generation++
	}
	return nil
}

// Count returns the number of stored embeddings.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.embeddings), nil
}
