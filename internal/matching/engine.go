// Package matching contains the similarity engine and the per-submission
// matching pipeline.
package matching

import (
	"sort"
	"time"

	"github.com/reunite-project/reunite/internal/database"
	"github.com/reunite-project/reunite/internal/vector"
)

// Candidate is an ephemeral scored embedding produced by ranking. It is
// consumed immediately by the pipeline and never persisted.
type Candidate struct {
	CaseID        string
	EmbeddingID   string
	Similarity    float64
	AgeProgressed bool
	CapturedAt    time.Time
}

// Ranker scores a query vector against a snapshot and returns all
// candidates with similarity >= threshold, best first. Ties are broken by
// earliest CapturedAt, favoring the most-established record. Candidates
// whose stored dimensionality differs from the query's score 0 and are
// excluded.
type Ranker interface {
	Rank(query []float32, snap *database.Snapshot, threshold float64) []Candidate
}

// ExactRanker is the flat O(N*D) scan. At registry scale (tens of thousands
// of cases) this needs no index; HNSWRanker is the drop-in replacement when
// it does.
type ExactRanker struct{}

var _ Ranker = ExactRanker{}

// Rank scores every snapshot embedding against the query.
func (ExactRanker) Rank(query []float32, snap *database.Snapshot, threshold float64) []Candidate {
	candidates := make([]Candidate, 0, len(snap.Embeddings))
	for i := range snap.Embeddings {
		emb := &snap.Embeddings[i]
		if len(emb.Vector) != len(query) {
			continue
		}
		sim := vector.Similarity(query, emb.Vector)
		if sim < threshold {
			continue
		}
		candidates = append(candidates, Candidate{
			CaseID:        emb.CaseID,
			EmbeddingID:   emb.ID,
			Similarity:    sim,
			AgeProgressed: emb.AgeProgressed,
			CapturedAt:    emb.CapturedAt,
		})
	}
	sortCandidates(candidates)
	return candidates
}

// sortCandidates orders by similarity descending, then earliest CapturedAt,
// then embedding ID for full determinism.
func sortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		if !candidates[i].CapturedAt.Equal(candidates[j].CapturedAt) {
			return candidates[i].CapturedAt.Before(candidates[j].CapturedAt)
		}
		return candidates[i].EmbeddingID < candidates[j].EmbeddingID
	})
}
