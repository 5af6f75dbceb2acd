package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/reunite-project/reunite/internal/database"
	"github.com/reunite-project/reunite/internal/vector"
)

// EmbeddingStore is the pgvector-backed embedding store. Normalization
// happens in Go before the row is written, so the stored-unit-vector
// invariant does not depend on database-side behavior.
type EmbeddingStore struct {
	pool *Pool
}

var _ database.EmbeddingStore = (*EmbeddingStore)(nil)

// NewEmbeddingStore creates a store over the given pool.
func NewEmbeddingStore(pool *Pool) *EmbeddingStore {
	return &EmbeddingStore{pool: pool}
}

// Dimension returns the configured vector dimension.
func (s *EmbeddingStore) Dimension() int {
	return s.pool.dim
}

// Insert normalizes and persists an embedding.
func (s *EmbeddingStore) Insert(ctx context.Context, emb database.StoredEmbedding) (string, error) {
	if err := vector.Validate(emb.Vector, s.pool.dim); err != nil {
		return "", fmt.Errorf("%w: %v", database.ErrInvalidVectorKind, err)
	}
	normalized, err := vector.Normalize(emb.Vector)
	if err != nil {
		return "", fmt.Errorf("%w: %v", database.ErrInvalidVectorKind, err)
	}

	id := uuid.NewString()
	capturedAt := emb.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	_, err = s.pool.db.ExecContext(ctx, `
		INSERT INTO embeddings (id, case_id, embedding, quality_score, age_progressed, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, emb.CaseID, pgvector.NewVector(normalized), emb.QualityScore, emb.AgeProgressed, capturedAt)
	if err != nil {
		return "", fmt.Errorf("%w: insert embedding: %v", database.ErrStoreUnavailable, err)
	}
	return id, nil
}

// Snapshot reads the full embedding set inside a repeatable-read, read-only
// transaction, so one matching run always sees an internally consistent set.
func (s *EmbeddingStore) Snapshot(ctx context.Context) (*database.Snapshot, error) {
	tx, err := s.pool.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: begin snapshot: %v", database.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	// Generation changes on any insert (seq advances) or purge (count
	// drops), which is what snapshot consumers cache on.
	var maxSeq, count uint64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0), COUNT(*) FROM embeddings`,
	).Scan(&maxSeq, &count)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot stats: %v", database.ErrStoreUnavailable, err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, case_id, embedding, quality_score, age_progressed, captured_at, created_at
		FROM embeddings
		ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot query: %v", database.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	snap := &database.Snapshot{
		Generation: maxSeq<<20 | count,
		TakenAt:    time.Now().UTC(),
	}
	for rows.Next() {
		var emb database.StoredEmbedding
		var vec pgvector.Vector
		if err := rows.Scan(&emb.ID, &emb.CaseID, &vec, &emb.QualityScore,
			&emb.AgeProgressed, &emb.CapturedAt, &emb.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan embedding: %v", database.ErrStoreUnavailable, err)
		}
		emb.Vector = vec.Slice()
		snap.Embeddings = append(snap.Embeddings, emb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: snapshot rows: %v", database.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit snapshot: %v", database.ErrStoreUnavailable, err)
	}
	return snap, nil
}

// Purge deletes all embeddings for a case. Deleting zero rows is a no-op.
func (s *EmbeddingStore) Purge(ctx context.Context, caseID string) error {
	_, err := s.pool.db.ExecContext(ctx, `DELETE FROM embeddings WHERE case_id = $1`, caseID)
	if err != nil {
		return fmt.Errorf("%w: purge embeddings: %v", database.ErrStoreUnavailable, err)
	}
	return nil
}

// Count returns the number of stored embeddings.
func (s *EmbeddingStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count embeddings: %v", database.ErrStoreUnavailable, err)
	}
	return count, nil
}
