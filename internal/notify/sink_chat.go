package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

// ChatSink posts a human-readable summary to a chat-style webhook
// (Slack-compatible payload shape).
type ChatSink struct {
	endpoint string
	client   *http.Client
}

// NewChatSink constructs a ChatSink.
func NewChatSink(endpoint string, client *http.Client) *ChatSink {
	if client == nil {
		client = http.DefaultClient
	}
	return &ChatSink{endpoint: endpoint, client: client}
}

// Name identifies the sink in logs.
func (s *ChatSink) Name() string { return "chat" }

// Send posts the summary message.
func (s *ChatSink) Send(ctx context.Context, rec catalog.ProductRecord) error {
	body, err := json.Marshal(map[string]string{"text": Summarize(rec)})
	if err != nil {
		return fmt.Errorf("marshal chat payload: %w", err)
	}
	return postJSON(ctx, s.client, s.endpoint, body)
}

// Summarize renders a short human-readable line for a record.
func Summarize(rec catalog.ProductRecord) string {
	title := rec.ProductID
	if rec.Title != nil {
		title = *rec.Title
	}

	var parts []string
	parts = append(parts, title)

	if rec.Price.Current != nil {
		price := fmt.Sprintf("%.2f", *rec.Price.Current)
		if rec.Price.Currency != nil {
			price += " " + *rec.Price.Currency
		}
		parts = append(parts, price)
	}
	if rec.Availability != nil {
		parts = append(parts, string(*rec.Availability))
	}

	changes := rec.DetectedChanges
	switch {
	case changes.FirstSeen:
		parts = append(parts, "first seen")
	case changes.Price != nil:
		parts = append(parts, fmt.Sprintf("price %s -> %s",
			formatPrice(changes.Price.From), formatPrice(changes.Price.To)))
	}
	if changes.Availability != nil {
		parts = append(parts, fmt.Sprintf("availability %s -> %s",
			formatAvailability(changes.Availability.From), formatAvailability(changes.Availability.To)))
	}

	parts = append(parts, rec.URL)
	return strings.Join(parts, " | ")
}

func formatPrice(v *float64) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatAvailability(v *catalog.Availability) string {
	if v == nil {
		return "?"
	}
	return string(*v)
}
