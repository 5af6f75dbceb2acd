// Package database defines the storage contracts shared by the in-memory
// and PostgreSQL backends.
package database

import (
	"context"
	"errors"
)

var (
	// ErrInvalidVectorKind is returned by Insert when the vector cannot be
	// stored: wrong dimension, or zero/non-finite magnitude.
	ErrInvalidVectorKind = errors.New("invalid vector kind")

	// ErrStoreUnavailable marks transient storage failures. Callers may
	// retry the whole pipeline run from scratch.
	ErrStoreUnavailable = errors.New("embedding store unavailable")
)

// EmbeddingStore owns the durable mapping from missing-person cases to
// their face embeddings. Implementations provide their own internal
// synchronization; callers never hold an external lock.
type EmbeddingStore interface {
	// Insert normalizes and persists an embedding, returning its ID.
	// The CaseID, Vector, QualityScore, AgeProgressed and CapturedAt fields
	// of emb are honored; ID and CreatedAt are assigned by the store.
	// Fails with ErrInvalidVectorKind if the vector has the wrong dimension
	// or cannot be normalized.
	Insert(ctx context.Context, emb StoredEmbedding) (string, error)

	// Snapshot returns a consistent view for one matching run.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Purge removes all embeddings for a case. A case without embeddings
	// is a no-op, not an error.
	Purge(ctx context.Context, caseID string) error

	// Count returns the number of stored embeddings.
	Count(ctx context.Context) (int, error)

	// Dimension returns the configured vector dimension.
	Dimension() int
}
