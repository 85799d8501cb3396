package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

// WebhookSink POSTs the full record as JSON to a generic endpoint.
type WebhookSink struct {
	endpoint string
	client   *http.Client
}

// NewWebhookSink constructs a WebhookSink. A nil client falls back to
// http.DefaultClient.
func NewWebhookSink(endpoint string, client *http.Client) *WebhookSink {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookSink{endpoint: endpoint, client: client}
}

// Name identifies the sink in logs.
func (s *WebhookSink) Name() string { return "webhook" }

// Send delivers the record payload.
func (s *WebhookSink) Send(ctx context.Context, rec catalog.ProductRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return postJSON(ctx, s.client, s.endpoint, body)
}

func postJSON(ctx context.Context, client *http.Client, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // nothing useful to do with a close error here

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
