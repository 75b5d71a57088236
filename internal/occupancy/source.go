package occupancy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/config"
)

// OpenSource builds the source selected by cfg.Source.
func OpenSource(ctx context.Context, cfg config.OccupancyConfig, logger zerolog.Logger) (Source, error) {
	logger = logger.With().Str("source", cfg.Source).Logger()

	switch cfg.Source {
	case config.SourcePubSub:
		if cfg.PubSubProject == "" {
			return nil, fmt.Errorf("PUBSUB_PROJECT_ID is required for the pubsub source")
		}
		src, err := NewPubSubSource(ctx, PubSubConfig{
			ProjectID:        cfg.PubSubProject,
			SubscriptionName: cfg.PubSubSubscription,
			Logger:           logger,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceMQTT:
		src, err := NewMQTTSource(MQTTConfig{
			BrokerURL: cfg.MQTTBroker,
			ClientID:  cfg.MQTTClientID,
			Username:  cfg.MQTTUsername,
			Password:  cfg.MQTTPassword,
			Topic:     cfg.MQTTTopic,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	case config.SourceKafka:
		src, err := NewKafkaSource(KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			GroupID: cfg.KafkaGroupID,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	return nil, fmt.Errorf("unknown occupancy source %q", cfg.Source)
}
