// Package extractor is the client contract for the external face-detection
// and embedding-extraction service. The matching core never touches raw
// pixels; it only consumes the extractor's output vector and quality score.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNoFaceDetected is returned when the service finds no usable face.
// Surfaced to submitters as a retryable rejection, distinct from
// "processed, no match found".
var ErrNoFaceDetected = errors.New("no face detected")

// Extraction is the opaque output contract: a fixed-length vector and the
// detector's quality score in [0,1].
type Extraction struct {
	Vector       []float32 `json:"vector"`
	QualityScore float64   `json:"quality_score"`
}

// Extractor produces an embedding from photo bytes.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (*Extraction, error)
}

// Client talks to the extraction service over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an extractor client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type extractResponse struct {
	Detected     bool      `json:"detected"`
	Vector       []float32 `json:"vector"`
	QualityScore float64   `json:"quality_score"`
	Message      string    `json:"message"`
}

// Extract posts the photo and decodes the service's verdict.
func (c *Client) Extract(ctx context.Context, image []byte) (*Extraction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/extract", bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("create extract request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call extractor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor returned %d", resp.StatusCode)
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode extractor response: %w", err)
	}

	if !out.Detected {
		if out.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoFaceDetected, out.Message)
		}
		return nil, ErrNoFaceDetected
	}

	return &Extraction{
		Vector:       out.Vector,
		QualityScore: out.QualityScore,
	}, nil
}
