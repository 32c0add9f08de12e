package worker

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/farefuse/farefuse/internal/snapshot"
)

// PubSubHandler feeds snapshot messages from a subscription to an Ingestor.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	ingestor         *Ingestor
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Ingestor         *Ingestor
	Worker           Config
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	if cfg.Ingestor == nil {
		return nil, fmt.Errorf("pubsub handler: ingestor is required")
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	wcfg := cfg.Worker.withDefaults()
	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = wcfg.MaxOutstandingMessages
	subscriber.ReceiveSettings.MaxExtension = wcfg.MaxExtension

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		ingestor:         cfg.Ingestor,
		logger:           cfg.Logger,
	}, nil
}

// Start processes messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Str("type", msg.Attributes[snapshot.AttrType]).
		Logger()

	logger.Debug().Msg("received pubsub message")

	switch h.ingestor.Process(ctx, msg.Data) {
	case Nack:
		msg.Nack()
	default:
		msg.Ack()
	}
}
