package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

// Message attributes set on published snapshots.
const (
	AttrType  = "type"
	AttrRoute = "route"
)

// PubSubConfig holds configuration for the Pub/Sub publisher.
type PubSubConfig struct {
	ProjectID string
	Topic     string
}

// PubSubPublisher is a Sink that publishes snapshots to a Pub/Sub topic.
// The worker consumes the topic and writes to Postgres.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
}

// NewPubSubPublisher connects to Pub/Sub and prepares a publisher for the topic.
func NewPubSubPublisher(ctx context.Context, cfg PubSubConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubPublisher{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
	}, nil
}

// Save publishes s and waits for the server acknowledgement.
func (p *PubSubPublisher) Save(ctx context.Context, s *Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			AttrType:  s.Type,
			AttrRoute: s.Route.From + "-" + s.Route.To,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish snapshot to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes pending messages and closes the client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}

// Encode validates s, assigns an ID if missing, and serialises it.
func Encode(s *Snapshot) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses and validates a published snapshot.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

var _ Sink = (*PubSubPublisher)(nil)
