package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

// topicPublisher is the slice of *pubsub.Topic the sink needs; narrowed
// for testing.
type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// PubSubSink publishes the full record to a Pub/Sub topic.
type PubSubSink struct {
	topic topicPublisher
}

// NewPubSubSink constructs a PubSubSink for an existing topic handle.
func NewPubSubSink(topic *pubsub.Topic) *PubSubSink {
	return &PubSubSink{topic: topic}
}

// Name identifies the sink in logs.
func (s *PubSubSink) Name() string { return "pubsub" }

// Send publishes the record and waits for the server acknowledgment.
func (s *PubSubSink) Send(ctx context.Context, rec catalog.ProductRecord) error {
	if s.topic == nil {
		return fmt.Errorf("pubsub topic is not configured")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"product_id": rec.ProductID,
		},
	}
	if _, err := s.topic.Publish(ctx, msg).Get(ctx); err != nil {
		return fmt.Errorf("publish record: %w", err)
	}
	return nil
}
