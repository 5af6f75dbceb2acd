package handlers

import (
	"log"
	"net/http"

	"github.com/reunite-project/reunite/internal/database"
	"github.com/reunite-project/reunite/internal/ledger"
	"github.com/reunite-project/reunite/internal/registry"
)

// StatsHandler provides the dashboard counters.
type StatsHandler struct {
	cases   registry.CaseRepository
	matches ledger.MatchRepository
	store   database.EmbeddingStore
}

// NewStatsHandler creates the handler.
func NewStatsHandler(cases registry.CaseRepository, matches ledger.MatchRepository, store database.EmbeddingStore) *StatsHandler {
	return &StatsHandler{cases: cases, matches: matches, store: store}
}

// StatsResponse is the dashboard payload.
type StatsResponse struct {
	ActiveCases      int `json:"active_cases"`
	FoundCases       int `json:"found_cases"`
	Embeddings       int `json:"embeddings"`
	PendingMatches   int `json:"pending_matches"`
	ConfirmedMatches int `json:"confirmed_matches"`
}

// Get handles GET /stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	var resp StatsResponse

	active, err := h.cases.List(r.Context(), registry.Filter{Status: registry.StatusActive})
	if err != nil {
		log.Printf("stats: list active cases: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	resp.ActiveCases = len(active)

	found, err := h.cases.List(r.Context(), registry.Filter{Status: registry.StatusFound})
	if err != nil {
		log.Printf("stats: list found cases: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	resp.FoundCases = len(found)

	count, err := h.store.Count(r.Context())
	if err != nil {
		log.Printf("stats: count embeddings: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	resp.Embeddings = count

	pending, err := h.matches.ListMatches(r.Context(), ledger.MatchFilter{Status: ledger.VerificationPending})
	if err != nil {
		log.Printf("stats: list pending matches: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	resp.PendingMatches = len(pending)

	confirmed, err := h.matches.ListMatches(r.Context(), ledger.MatchFilter{Status: ledger.VerificationConfirmed})
	if err != nil {
		log.Printf("stats: list confirmed matches: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	resp.ConfirmedMatches = len(confirmed)

	respondJSON(w, http.StatusOK, resp)
}
