package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientExtract(t *testing.T) {
	photo := []byte("photo bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/extract" {
			t.Errorf("path = %s, want /v1/extract", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != string(photo) {
			t.Error("photo bytes not forwarded verbatim")
		}
		json.NewEncoder(w).Encode(extractResponse{
			Detected:     true,
			Vector:       []float32{0.1, 0.2},
			QualityScore: 0.85,
		})
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Extract(context.Background(), photo)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got.Vector) != 2 || got.QualityScore != 0.85 {
		t.Errorf("Extract() = %+v, want the service's vector and score", got)
	}
}

func TestClientExtractNoFace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(extractResponse{Detected: false, Message: "blurry"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Extract(context.Background(), []byte("x"))
	if !errors.Is(err, ErrNoFaceDetected) {
		t.Errorf("Extract() error = %v, want ErrNoFaceDetected", err)
	}
}

func TestClientExtractServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Extract(context.Background(), []byte("x"))
	if err == nil {
		t.Error("Extract() accepted a 500 response")
	}
	if errors.Is(err, ErrNoFaceDetected) {
		t.Error("server error conflated with no-face rejection")
	}
}
