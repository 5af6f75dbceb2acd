package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reunite-project/reunite/internal/ledger"
	"github.com/reunite-project/reunite/internal/registry"
)

// MatchesHandler exposes the match ledger to police review.
type MatchesHandler struct {
	matches ledger.MatchRepository
	cases   registry.CaseRepository
}

// NewMatchesHandler creates the handler.
func NewMatchesHandler(matches ledger.MatchRepository, cases registry.CaseRepository) *MatchesHandler {
	return &MatchesHandler{matches: matches, cases: cases}
}

type matchView struct {
	ID                 string    `json:"id"`
	SubmissionID       string    `json:"submission_id"`
	CaseID             string    `json:"case_id"`
	Confidence         float64   `json:"confidence"`
	VerificationStatus string    `json:"verification_status"`
	AlertSent          bool      `json:"alert_sent"`
	CreatedAt          string    `json:"created_at"`
	VerifiedAt         string    `json:"verified_at,omitempty"`
	Case               *caseView `json:"case,omitempty"`
}

func newMatchView(rec ledger.MatchRecord) matchView {
	v := matchView{
		ID:                 rec.ID,
		SubmissionID:       rec.SubmissionID,
		CaseID:             rec.CaseID,
		Confidence:         rec.Confidence,
		VerificationStatus: string(rec.VerificationStatus),
		AlertSent:          rec.AlertSent,
		CreatedAt:          rec.CreatedAt.Format(time.RFC3339),
	}
	if !rec.VerifiedAt.IsZero() {
		v.VerifiedAt = rec.VerifiedAt.Format(time.RFC3339)
	}
	return v
}

// enrich attaches case details where the lookup succeeds. A vanished case
// degrades the view to the case ID alone.
func (h *MatchesHandler) enrich(r *http.Request, v *matchView) {
	if h.cases == nil {
		return
	}
	c, err := h.cases.Get(r.Context(), v.CaseID)
	if err != nil {
		return
	}
	cv := newCaseView(c)
	v.Case = &cv
}

// List handles GET /matches with optional status and case_id filters.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	var f ledger.MatchFilter
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := ledger.ParseVerificationStatus(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = status
	}
	f.CaseID = r.URL.Query().Get("case_id")

	records, err := h.matches.ListMatches(r.Context(), f)
	if err != nil {
		log.Printf("list matches: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list matches")
		return
	}

	views := make([]matchView, 0, len(records))
	for _, rec := range records {
		v := newMatchView(rec)
		h.enrich(r, &v)
		views = append(views, v)
	}
	respondJSON(w, http.StatusOK, map[string]any{"matches": views})
}

// Get handles GET /matches/{id}.
func (h *MatchesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.matches.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrMatchNotFound) {
			respondError(w, http.StatusNotFound, "match record not found")
			return
		}
		log.Printf("get match %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to load match record")
		return
	}

	v := newMatchView(rec)
	h.enrich(r, &v)
	respondJSON(w, http.StatusOK, v)
}

// VerifyRequest carries the reviewing officer's decision.
type VerifyRequest struct {
	Decision string `json:"decision"` // confirmed | false_positive
}

// Verify handles POST /matches/{id}/verify. The transition is terminal and
// only ever triggered by this explicit action.
func (h *MatchesHandler) Verify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	decision, err := ledger.ParseVerificationStatus(req.Decision)
	if err != nil || !decision.Terminal() {
		respondError(w, http.StatusBadRequest, "decision must be confirmed or false_positive")
		return
	}

	rec, err := h.matches.Verify(r.Context(), id, decision)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrMatchNotFound):
			respondError(w, http.StatusNotFound, "match record not found")
		case errors.Is(err, ledger.ErrAlreadyVerified):
			respondError(w, http.StatusConflict, "match record already verified")
		default:
			log.Printf("verify match %s: %v", sanitizeForLog(id), err)
			respondError(w, http.StatusInternalServerError, "failed to verify match record")
		}
		return
	}

	v := newMatchView(rec)
	h.enrich(r, &v)
	respondJSON(w, http.StatusOK, v)
}
