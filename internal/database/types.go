package database

import (
	"time"
)

// StoredEmbedding is a face embedding owned by a missing-person case.
// Vectors are always stored unit-normalized; the store enforces this at
// insertion rather than trusting callers. Embeddings are immutable once
// stored — deletion (purge on case closure) is the only mutation.
type StoredEmbedding struct {
	ID            string
	CaseID        string
	Vector        []float32
	QualityScore  float64
	AgeProgressed bool
	CapturedAt    time.Time
	CreatedAt     time.Time
}

// Snapshot is a point-in-time, internally consistent view of the embedding
// store used by one matching run. The set is fixed once taken: inserts that
// race with an in-flight search never appear in its snapshot. Snapshots are
// monotonic — a snapshot taken at time T never omits an embedding inserted
// before T.
type Snapshot struct {
	Generation uint64
	TakenAt    time.Time
	Embeddings []StoredEmbedding
}
