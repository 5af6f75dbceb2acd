package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reunite-project/reunite/internal/database"
	"github.com/reunite-project/reunite/internal/registry"
)

// CasesHandler manages missing-person case records and their embeddings.
type CasesHandler struct {
	cases registry.CaseRepository
	store database.EmbeddingStore
	grace time.Duration
}

// NewCasesHandler creates the handler. grace is the privacy purge grace
// period; zero purges inline at closure.
func NewCasesHandler(cases registry.CaseRepository, store database.EmbeddingStore, grace time.Duration) *CasesHandler {
	return &CasesHandler{cases: cases, store: store, grace: grace}
}

// CreateCaseRequest is the police intake payload.
type CreateCaseRequest struct {
	ReportNumber     string `json:"report_number"`
	FullName         string `json:"full_name"`
	AgeAtMissing     int    `json:"age_at_missing"`
	Gender           string `json:"gender"`
	LastSeenLocation string `json:"last_seen_location"`
	LastSeenDate     string `json:"last_seen_date"` // RFC 3339 date
	Description      string `json:"description"`
	Category         string `json:"category"`
	PoliceStation    string `json:"police_station"`
	ContactNumber    string `json:"contact_number"`
}

type caseView struct {
	ID               string `json:"id"`
	ReportNumber     string `json:"report_number"`
	FullName         string `json:"full_name"`
	AgeAtMissing     int    `json:"age_at_missing"`
	Gender           string `json:"gender,omitempty"`
	LastSeenLocation string `json:"last_seen_location,omitempty"`
	LastSeenDate     string `json:"last_seen_date,omitempty"`
	Description      string `json:"description,omitempty"`
	Category         string `json:"category"`
	Status           string `json:"status"`
	PoliceStation    string `json:"police_station,omitempty"`
	ContactNumber    string `json:"contact_number,omitempty"`
	CreatedAt        string `json:"created_at"`
}

func newCaseView(c registry.Case) caseView {
	v := caseView{
		ID:               c.ID,
		ReportNumber:     c.ReportNumber,
		FullName:         c.FullName,
		AgeAtMissing:     c.AgeAtMissing,
		Gender:           c.Gender,
		LastSeenLocation: c.LastSeenLocation,
		Description:      c.Description,
		Category:         string(c.Category),
		Status:           string(c.Status),
		PoliceStation:    c.PoliceStation,
		ContactNumber:    c.ContactNumber,
		CreatedAt:        c.CreatedAt.Format(time.RFC3339),
	}
	if !c.LastSeenDate.IsZero() {
		v.LastSeenDate = c.LastSeenDate.Format(time.RFC3339)
	}
	return v
}

// Create handles POST /cases.
func (h *CasesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.ReportNumber == "" {
		respondError(w, http.StatusBadRequest, "report_number is required")
		return
	}
	if req.FullName == "" {
		respondError(w, http.StatusBadRequest, "full_name is required")
		return
	}
	category, err := registry.ParseCategory(req.Category)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := registry.Case{
		ReportNumber:     req.ReportNumber,
		FullName:         req.FullName,
		AgeAtMissing:     req.AgeAtMissing,
		Gender:           req.Gender,
		LastSeenLocation: req.LastSeenLocation,
		Description:      req.Description,
		Category:         category,
		PoliceStation:    req.PoliceStation,
		ContactNumber:    req.ContactNumber,
	}
	if req.LastSeenDate != "" {
		t, err := time.Parse(time.RFC3339, req.LastSeenDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "last_seen_date must be RFC 3339")
			return
		}
		c.LastSeenDate = t
	}

	created, err := h.cases.Create(r.Context(), c)
	if err != nil {
		if errors.Is(err, registry.ErrDuplicateReportNumber) {
			respondError(w, http.StatusConflict, "report number already registered")
			return
		}
		log.Printf("create case: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create case")
		return
	}

	respondJSON(w, http.StatusCreated, newCaseView(created))
}

// List handles GET /cases with optional status and name filters.
func (h *CasesHandler) List(w http.ResponseWriter, r *http.Request) {
	var f registry.Filter
	if s := r.URL.Query().Get("status"); s != "" {
		status, err := registry.ParseStatus(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = status
	}
	f.Name = r.URL.Query().Get("name")

	cases, err := h.cases.List(r.Context(), f)
	if err != nil {
		log.Printf("list cases: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list cases")
		return
	}

	views := make([]caseView, 0, len(cases))
	for _, c := range cases {
		views = append(views, newCaseView(c))
	}
	respondJSON(w, http.StatusOK, map[string]any{"cases": views})
}

// Get handles GET /cases/{id}.
func (h *CasesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.cases.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrCaseNotFound) {
			respondError(w, http.StatusNotFound, "case not found")
			return
		}
		log.Printf("get case %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to load case")
		return
	}
	respondJSON(w, http.StatusOK, newCaseView(c))
}

// UpdateStatusRequest transitions a case's lifecycle status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles POST /cases/{id}/status. Closing a case purges its
// embeddings inline when the grace period is zero; otherwise the janitor
// sweep applies the purge within the grace period.
func (h *CasesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	status, err := registry.ParseStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.cases.UpdateStatus(r.Context(), id, status)
	if err != nil {
		if errors.Is(err, registry.ErrCaseNotFound) {
			respondError(w, http.StatusNotFound, "case not found")
			return
		}
		log.Printf("update case %s status: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to update case")
		return
	}

	if status == registry.StatusClosed && h.grace == 0 {
		if err := h.store.Purge(r.Context(), id); err != nil {
			// The janitor sweep retries; closure itself stands.
			log.Printf("inline purge for case %s failed: %v", sanitizeForLog(id), err)
		} else if err := h.cases.MarkPurged(r.Context(), id); err != nil {
			log.Printf("mark case %s purged: %v", sanitizeForLog(id), err)
		}
	}

	respondJSON(w, http.StatusOK, newCaseView(c))
}

// RegisterEmbeddingRequest adds a face embedding to a case.
type RegisterEmbeddingRequest struct {
	Vector        []float32 `json:"vector"`
	QualityScore  float64   `json:"quality_score"`
	AgeProgressed bool      `json:"age_progressed"`
	CapturedAt    string    `json:"captured_at,omitempty"` // RFC 3339
}

// RegisterEmbedding handles POST /cases/{id}/embeddings.
func (h *CasesHandler) RegisterEmbedding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := h.cases.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrCaseNotFound) {
			respondError(w, http.StatusNotFound, "case not found")
			return
		}
		log.Printf("get case %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to load case")
		return
	}
	if c.Status == registry.StatusClosed {
		respondError(w, http.StatusConflict, "case is closed")
		return
	}

	var req RegisterEmbeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Vector) == 0 {
		respondError(w, http.StatusBadRequest, "vector is required")
		return
	}

	emb := database.StoredEmbedding{
		CaseID:        id,
		Vector:        req.Vector,
		QualityScore:  req.QualityScore,
		AgeProgressed: req.AgeProgressed,
	}
	if req.CapturedAt != "" {
		t, err := time.Parse(time.RFC3339, req.CapturedAt)
		if err != nil {
			respondError(w, http.StatusBadRequest, "captured_at must be RFC 3339")
			return
		}
		emb.CapturedAt = t
	}

	embID, err := h.store.Insert(r.Context(), emb)
	if err != nil {
		if errors.Is(err, database.ErrInvalidVectorKind) {
			respondError(w, http.StatusBadRequest, "vector has wrong dimension or cannot be normalized")
			return
		}
		log.Printf("insert embedding for case %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to store embedding")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"embedding_id": embID})
}
