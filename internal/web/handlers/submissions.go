package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reunite-project/reunite/internal/database"
	"github.com/reunite-project/reunite/internal/extractor"
	"github.com/reunite-project/reunite/internal/fingerprint"
	"github.com/reunite-project/reunite/internal/ledger"
	"github.com/reunite-project/reunite/internal/matching"
)

// maxPhotoBytes bounds photo uploads at 10 MiB.
const maxPhotoBytes = 10 << 20

// SubmissionsHandler runs the matching pipeline for incoming queries.
type SubmissionsHandler struct {
	pipeline    *matching.Pipeline
	submissions ledger.SubmissionRepository
	extractor   extractor.Extractor
}

// NewSubmissionsHandler creates the handler. The extractor may be nil when
// no extraction service is configured; the photo endpoint then reports the
// service unavailable.
func NewSubmissionsHandler(pipeline *matching.Pipeline, submissions ledger.SubmissionRepository, ex extractor.Extractor) *SubmissionsHandler {
	return &SubmissionsHandler{
		pipeline:    pipeline,
		submissions: submissions,
		extractor:   ex,
	}
}

// SubmitRequest carries a pre-extracted query vector.
type SubmitRequest struct {
	Vector       []float32 `json:"vector"`
	QualityScore float64   `json:"quality_score"`
	Fingerprint  string    `json:"fingerprint,omitempty"`
}

// SubmitResponse is the pipeline outcome exposed to collaborators.
type SubmitResponse struct {
	SubmissionRef string                  `json:"submission_ref"`
	Matched       bool                    `json:"matched"`
	CaseID        string                  `json:"case_id,omitempty"`
	Confidence    float64                 `json:"confidence,omitempty"`
	Case          *caseView               `json:"case,omitempty"`
	Record        *matchView              `json:"record,omitempty"`
	Fingerprint   *fingerprint.PhotoPrint `json:"fingerprint,omitempty"`
}

func outcomeResponse(out *matching.Outcome) SubmitResponse {
	resp := SubmitResponse{
		SubmissionRef: out.SubmissionRef,
		Matched:       out.Matched,
		CaseID:        out.CaseID,
		Confidence:    out.Confidence,
	}
	if out.Case != nil {
		v := newCaseView(*out.Case)
		resp.Case = &v
	}
	if out.Record != nil {
		v := newMatchView(*out.Record)
		resp.Record = &v
	}
	return resp
}

// Submit handles POST /submissions: a query vector extracted upstream.
func (h *SubmissionsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Vector) == 0 {
		respondError(w, http.StatusBadRequest, "vector is required")
		return
	}

	out, err := h.pipeline.Submit(r.Context(), matching.Query{
		Vector:       req.Vector,
		QualityScore: req.QualityScore,
		Fingerprint:  req.Fingerprint,
	})
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, outcomeResponse(out))
}

// SubmitPhoto handles POST /submissions/photo: raw photo bytes. The photo
// is handed to the external extraction service and immediately discarded;
// only the vector and fingerprints survive.
func (h *SubmissionsHandler) SubmitPhoto(w http.ResponseWriter, r *http.Request) {
	if h.extractor == nil {
		respondError(w, http.StatusServiceUnavailable, "face extraction service not configured")
		return
	}

	photo, err := io.ReadAll(io.LimitReader(r.Body, maxPhotoBytes+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read photo")
		return
	}
	if len(photo) == 0 {
		respondError(w, http.StatusBadRequest, "photo is required")
		return
	}
	if len(photo) > maxPhotoBytes {
		respondError(w, http.StatusRequestEntityTooLarge, "photo too large")
		return
	}

	ext, err := h.extractor.Extract(r.Context(), photo)
	if err != nil {
		if errors.Is(err, extractor.ErrNoFaceDetected) {
			// A retryable input rejection, never conflated with "no match".
			respondError(w, http.StatusUnprocessableEntity, "no face detected, retry with a clearer photo")
			return
		}
		log.Printf("extractor call failed: %v", err)
		respondError(w, http.StatusBadGateway, "face extraction failed")
		return
	}

	fp, err := fingerprint.FromImage(photo)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unsupported image format")
		return
	}

	out, err := h.pipeline.Submit(r.Context(), matching.Query{
		Vector:       ext.Vector,
		QualityScore: ext.QualityScore,
		Fingerprint:  fp.SHA256,
	})
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}

	resp := outcomeResponse(out)
	resp.Fingerprint = fp
	respondJSON(w, http.StatusOK, resp)
}

// GetByCode handles GET /submissions/{code}.
func (h *SubmissionsHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	sub, err := h.submissions.GetByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, ledger.ErrSubmissionNotFound) {
			respondError(w, http.StatusNotFound, "submission not found")
			return
		}
		log.Printf("lookup submission %s: %v", sanitizeForLog(code), err)
		respondError(w, http.StatusInternalServerError, "failed to look up submission")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"code":       sub.Code,
		"matched":    sub.Matched,
		"created_at": sub.CreatedAt,
	})
}

func (h *SubmissionsHandler) respondPipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, matching.ErrInvalidQuery):
		respondError(w, http.StatusBadRequest, "invalid query vector")
	case errors.Is(err, database.ErrStoreUnavailable):
		respondError(w, http.StatusServiceUnavailable, "embedding store unavailable, retry")
	default:
		log.Printf("pipeline run failed: %v", err)
		respondError(w, http.StatusInternalServerError, "matching failed")
	}
}
