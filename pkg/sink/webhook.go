package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookSink POSTs swap.completed events to an HTTP endpoint.
type WebhookSink struct {
	url    string
	secret string
	http   *http.Client
}

// NewWebhookSink creates a sink for the given endpoint. secret, when
// set, is sent as a bearer token.
func NewWebhookSink(url, secret string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		secret: secret,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookEnvelope struct {
	Event string             `json:"event"`
	Data  SwapCompletedEvent `json:"data"`
}

// Publish delivers one event. Non-2xx responses are errors so the
// dispatcher can retry on the next report.
func (w *WebhookSink) Publish(ctx context.Context, event SwapCompletedEvent) error {
	body, err := json.Marshal(webhookEnvelope{Event: "swap.completed", Data: event})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set("Authorization", "Bearer "+w.secret)
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status code %d", resp.StatusCode)
	}
	return nil
}
