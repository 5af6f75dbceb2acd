// Package notifier delivers match alerts to external channels. Delivery is
// fire-and-forget: a failed notification is logged and never propagated
// into the matching pipeline.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/reunite-project/reunite/internal/ledger"
)

// Notifier is invoked once when a match record's alert flag flips true.
type Notifier interface {
	Notify(ctx context.Context, rec ledger.MatchRecord) error
}

// LogNotifier writes alerts to the process log. Default when no webhook is
// configured.
type LogNotifier struct{}

// Notify logs the alert.
func (LogNotifier) Notify(ctx context.Context, rec ledger.MatchRecord) error {
	log.Printf("match alert: record=%s case=%s confidence=%.3f", rec.ID, rec.CaseID, rec.Confidence)
	return nil
}

// WebhookNotifier POSTs alert payloads to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier posting to the given URL.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type webhookPayload struct {
	RecordID     string  `json:"record_id"`
	SubmissionID string  `json:"submission_id"`
	CaseID       string  `json:"case_id"`
	Confidence   float64 `json:"confidence"`
	CreatedAt    string  `json:"created_at"`
}

// Notify delivers the alert payload.
func (n *WebhookNotifier) Notify(ctx context.Context, rec ledger.MatchRecord) error {
	body, err := json.Marshal(webhookPayload{
		RecordID:     rec.ID,
		SubmissionID: rec.SubmissionID,
		CaseID:       rec.CaseID,
		Confidence:   rec.Confidence,
		CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned %d", resp.StatusCode)
	}
	return nil
}
