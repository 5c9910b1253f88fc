package delivery

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"NewsVerifier/internal/ports"
)

// Webhook posts JSON task notifications to listener endpoints. Failures
// are ordinary errors: the task runner retries them like any other task.
type Webhook struct {
	client *http.Client
}

var _ ports.Deliverer = (*Webhook)(nil)

// NewWebhook builds a deliverer with a bounded request timeout.
func NewWebhook(client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{client: client}
}

// Deliver POSTs the JSON body to one listener URL.
func (w *Webhook) Deliver(ctx context.Context, url string, body []byte) error {
	if url == "" {
		return fmt.Errorf("webhook deliverer misconfigured: empty url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("listener %s returned %s", url, resp.Status)
	}
	return nil
}
