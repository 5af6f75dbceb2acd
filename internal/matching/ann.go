package matching

import (
	"sync"

	"github.com/coder/hnsw"

	"github.com/reunite-project/reunite/internal/database"
	"github.com/reunite-project/reunite/internal/vector"
)

// hnswMaxNeighbors is the M parameter of the HNSW graph.
const hnswMaxNeighbors = 16

// HNSWRanker is an approximate drop-in for ExactRanker backed by an
// in-memory HNSW graph. The graph is rebuilt lazily whenever the snapshot
// generation changes; exact similarities are recomputed for the returned
// neighbors so threshold semantics stay identical to the flat scan.
//
// Approximation only affects recall at the candidate-retrieval step; the
// ranking of returned candidates matches ExactRanker exactly.
type HNSWRanker struct {
	// MaxCandidates bounds the neighbor list requested from the graph.
	MaxCandidates int

	mu         sync.Mutex
	graph      *hnsw.Graph[string]
	byID       map[string]*database.StoredEmbedding
	generation uint64
	built      bool
}

var _ Ranker = (*HNSWRanker)(nil)

// NewHNSWRanker creates a ranker returning at most maxCandidates matches.
func NewHNSWRanker(maxCandidates int) *HNSWRanker {
	if maxCandidates <= 0 {
		maxCandidates = 50
	}
	return &HNSWRanker{MaxCandidates: maxCandidates}
}

// Rank searches the HNSW graph for the query's nearest neighbors and scores
// them with the exact remapped cosine similarity.
func (r *HNSWRanker) Rank(query []float32, snap *database.Snapshot, threshold float64) []Candidate {
	r.mu.Lock()
	if !r.built || r.generation != snap.Generation {
		r.rebuild(snap)
	}
	graph := r.graph
	byID := r.byID
	r.mu.Unlock()

	if graph == nil {
		return nil
	}

	k := r.MaxCandidates
	if n := len(snap.Embeddings); k > n {
		k = n
	}

	neighbors := graph.Search(query, k)

	candidates := make([]Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		emb, ok := byID[n.Key]
		if !ok || len(emb.Vector) != len(query) {
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

// rebuild replaces the graph with one built from the snapshot. Caller holds r.mu.
func (r *HNSWRanker) rebuild(snap *database.Snapshot) {
	r.generation = snap.Generation
	r.built = true
	r.byID = make(map[string]*database.StoredEmbedding, len(snap.Embeddings))

	if len(snap.Embeddings) == 0 {
		r.graph = nil
		return
	}

	g := hnsw.NewGraph[string]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors)
	g.Distance = hnsw.CosineDistance

	for i := range snap.Embeddings {
		emb := &snap.Embeddings[i]
		if len(emb.Vector) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(emb.ID, emb.Vector))
		r.byID[emb.ID] = emb
	}
	r.graph = g
}
