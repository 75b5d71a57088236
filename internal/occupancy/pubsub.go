package occupancy

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubConfig holds configuration for the Pub/Sub source.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string

	// MaxOutstanding caps in-flight messages (default: 10).
	MaxOutstanding int

	Logger zerolog.Logger
}

// PubSubSource receives readings from a Google Cloud Pub/Sub subscription.
// The optional "stationId" attribute names the station.
type PubSubSource struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	logger           zerolog.Logger
}

// NewPubSubSource connects to Pub/Sub.
func NewPubSubSource(ctx context.Context, cfg PubSubConfig) (*PubSubSource, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	if cfg.MaxOutstanding == 0 {
		cfg.MaxOutstanding = 10
	}
	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstanding
	subscriber.ReceiveSettings.MaxExtension = time.Minute

	return &PubSubSource{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		logger:           cfg.Logger,
	}, nil
}

// Name identifies the source.
func (s *PubSubSource) Name() string {
	return "pubsub"
}

// Run receives messages until ctx is done.
func (s *PubSubSource) Run(ctx context.Context, handle Handler) error {
	s.logger.Info().Str("subscription", s.subscriptionName).Msg("starting pubsub occupancy source")

	return s.subscriber.Receive(ctx, func(ctx context.Context, m *pubsub.Message) {
		err := handle(ctx, Message{
			ID:        m.ID,
			Data:      m.Data,
			StationID: m.Attributes["stationId"],
		})
		if err != nil {
			m.Nack()
			return
		}
		m.Ack()
	})
}

// Close closes the Pub/Sub client.
func (s *PubSubSource) Close() error {
	return s.client.Close()
}
