package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/reunite-project/reunite/internal/database/mock"
	"github.com/reunite-project/reunite/internal/extractor"
	"github.com/reunite-project/reunite/internal/ledger"
	"github.com/reunite-project/reunite/internal/matching"
	"github.com/reunite-project/reunite/internal/registry"
)

// testDim keeps handler test vectors small.
const testDim = 3

// fakeExtractor returns a canned extraction or error.
type fakeExtractor struct {
	extraction *extractor.Extraction
	err        error
}

func (f *fakeExtractor) Extract(ctx context.Context, image []byte) (*extractor.Extraction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.extraction, nil
}

// fixture bundles the in-memory backends behind a routed test server.
type fixture struct {
	store  *mock.EmbeddingStore
	ledger *ledger.MemoryLedger
	cases  *registry.MemoryRepository
	router *chi.Mux
}

func newTestFixture(t *testing.T, ex extractor.Extractor) *fixture {
	t.Helper()

	f := &fixture{
		store:  mock.NewEmbeddingStore(testDim),
		ledger: ledger.NewMemoryLedger(),
		cases:  registry.NewMemoryRepository(),
		router: chi.NewRouter(),
	}

	pipeline := matching.NewPipeline(f.store, matching.ExactRanker{}, f.ledger, f.ledger, f.cases, nil,
		matching.Config{MatchThreshold: 0.75})

	submissions := NewSubmissionsHandler(pipeline, f.ledger, ex)
	cases := NewCasesHandler(f.cases, f.store, 0)
	matches := NewMatchesHandler(f.ledger, f.cases)
	stats := NewStatsHandler(f.cases, f.ledger, f.store)

	f.router.Post("/submissions", submissions.Submit)
	f.router.Post("/submissions/photo", submissions.SubmitPhoto)
	f.router.Get("/submissions/{code}", submissions.GetByCode)
	f.router.Post("/cases", cases.Create)
	f.router.Get("/cases", cases.List)
	f.router.Get("/cases/{id}", cases.Get)
	f.router.Post("/cases/{id}/status", cases.UpdateStatus)
	f.router.Post("/cases/{id}/embeddings", cases.RegisterEmbedding)
	f.router.Get("/matches", matches.List)
	f.router.Get("/matches/{id}", matches.Get)
	f.router.Post("/matches/{id}/verify", matches.Verify)
	f.router.Get("/stats", stats.Get)

	return f
}

// do runs a request through the router and returns the recorder.
func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func assertStatusCode(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, want, rec.Body.String())
	}
}

func assertJSONError(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int) {
	t.Helper()
	assertStatusCode(t, rec, wantStatus)
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error response is not JSON: %v", err)
	}
	if body["error"] == "" {
		t.Fatalf("error response missing error field: %s", rec.Body.String())
	}
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
}
