package matching

import (
	"testing"
	"time"

	"github.com/reunite-project/reunite/internal/database"
	"github.com/reunite-project/reunite/internal/vector"
)

func unit(t *testing.T, v []float32) []float32 {
	t.Helper()
	out, err := vector.Normalize(v)
	if err != nil {
		t.Fatalf("Normalize(%v) error = %v", v, err)
	}
	return out
}

func snapshotOf(embs ...database.StoredEmbedding) *database.Snapshot {
	return &database.Snapshot{Generation: 1, Embeddings: embs}
}

func TestExactRankerOrdersBySimilarity(t *testing.T) {
	query := unit(t, []float32{1, 0, 0})
	snap := snapshotOf(
		database.StoredEmbedding{ID: "far", CaseID: "c1", Vector: unit(t, []float32{1, 1, 1})},
		database.StoredEmbedding{ID: "exact", CaseID: "c2", Vector: unit(t, []float32{1, 0, 0})},
		database.StoredEmbedding{ID: "near", CaseID: "c3", Vector: unit(t, []float32{1, 0.1, 0})},
	)

	got := ExactRanker{}.Rank(query, snap, 0)
	if len(got) != 3 {
		t.Fatalf("Rank() returned %d candidates, want 3", len(got))
	}
	wantOrder := []string{"exact", "near", "far"}
	for i, id := range wantOrder {
		if got[i].EmbeddingID != id {
			t.Errorf("rank %d = %s, want %s", i, got[i].EmbeddingID, id)
		}
	}
	if got[0].Similarity < got[1].Similarity || got[1].Similarity < got[2].Similarity {
		t.Errorf("similarities not descending: %v", got)
	}
}

func TestExactRankerThresholdIsInclusive(t *testing.T) {
	// Orthogonal vectors score exactly 0.5; a threshold of 0.5 must keep them.
	query := []float32{1, 0}
	snap := snapshotOf(
		database.StoredEmbedding{ID: "orthogonal", CaseID: "c1", Vector: []float32{0, 1}},
	)

	if got := (ExactRanker{}).Rank(query, snap, 0.5); len(got) != 1 {
		t.Errorf("threshold 0.5 excluded a 0.5-similarity candidate")
	}
	if got := (ExactRanker{}).Rank(query, snap, 0.500001); len(got) != 0 {
		t.Errorf("threshold above 0.5 kept a 0.5-similarity candidate")
	}
}

func TestExactRankerExcludesOrthogonalAtDefaultThreshold(t *testing.T) {
	query := []float32{1, 0}
	snap := snapshotOf(
		database.StoredEmbedding{ID: "orthogonal", CaseID: "c1", Vector: []float32{0, 1}},
	)

	if got := (ExactRanker{}).Rank(query, snap, 0.75); len(got) != 0 {
		t.Errorf("Rank() = %v, want no candidates above 0.75", got)
	}
}

func TestExactRankerTieBreakByCapturedAt(t *testing.T) {
	query := []float32{1, 0}
	older := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	// Same vector, same similarity; the earlier capture wins.
	snap := snapshotOf(
		database.StoredEmbedding{ID: "newer", CaseID: "c1", Vector: []float32{1, 0}, CapturedAt: newer},
		database.StoredEmbedding{ID: "older", CaseID: "c2", Vector: []float32{1, 0}, CapturedAt: older},
	)

	got := ExactRanker{}.Rank(query, snap, 0.75)
	if len(got) != 2 {
		t.Fatalf("Rank() returned %d candidates, want 2", len(got))
	}
	if got[0].EmbeddingID != "older" {
		t.Errorf("top candidate = %s, want the earlier capture", got[0].EmbeddingID)
	}
}

func TestExactRankerTieBreakByEmbeddingID(t *testing.T) {
	query := []float32{1, 0}
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := snapshotOf(
		database.StoredEmbedding{ID: "b", CaseID: "c1", Vector: []float32{1, 0}, CapturedAt: at},
		database.StoredEmbedding{ID: "a", CaseID: "c2", Vector: []float32{1, 0}, CapturedAt: at},
	)

	got := ExactRanker{}.Rank(query, snap, 0.75)
	if len(got) != 2 || got[0].EmbeddingID != "a" {
		t.Errorf("Rank() order = %v, want embedding ID ascending on full tie", got)
	}
}

func TestExactRankerSkipsDimensionMismatch(t *testing.T) {
	query := []float32{1, 0}
	snap := snapshotOf(
		database.StoredEmbedding{ID: "wrong-dim", CaseID: "c1", Vector: []float32{1, 0, 0}},
		database.StoredEmbedding{ID: "ok", CaseID: "c2", Vector: []float32{1, 0}},
	)

	got := ExactRanker{}.Rank(query, snap, 0)
	if len(got) != 1 || got[0].EmbeddingID != "ok" {
		t.Errorf("Rank() = %v, want only the matching-dimension candidate", got)
	}
}

func TestExactRankerEmptySnapshot(t *testing.T) {
	got := ExactRanker{}.Rank([]float32{1, 0}, snapshotOf(), 0)
	if len(got) != 0 {
		t.Errorf("Rank() on empty snapshot = %v, want none", got)
	}
}
