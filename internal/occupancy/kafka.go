package occupancy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// KafkaReader is the subset of *kafka.Reader used by KafkaSource.
type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig holds configuration for the Kafka source.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string

	// MaxRetries bounds handler retries per message (default: 3).
	MaxRetries uint64

	// RetryInterval is the initial retry backoff (default: 200ms).
	RetryInterval time.Duration

	Logger zerolog.Logger
}

// KafkaSource consumes readings from a Kafka topic as part of a consumer
// group. The message key may carry the station ID.
type KafkaSource struct {
	reader KafkaReader
	cfg    KafkaConfig
	logger zerolog.Logger
}

// NewKafkaSource creates a consumer group reader.
func NewKafkaSource(cfg KafkaConfig) (*KafkaSource, error) {
	if len(cfg.Brokers) == 0 || cfg.Topic == "" || cfg.GroupID == "" {
		return nil, errors.New("kafka brokers, topic and group id are required")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return NewKafkaSourceWithReader(reader, cfg), nil
}

// NewKafkaSourceWithReader creates a source over an existing reader.
func NewKafkaSourceWithReader(reader KafkaReader, cfg KafkaConfig) *KafkaSource {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = 200 * time.Millisecond
	}
	return &KafkaSource{reader: reader, cfg: cfg, logger: cfg.Logger}
}

// Name identifies the source.
func (s *KafkaSource) Name() string {
	return "kafka"
}

// Run fetches messages until ctx is done. A message whose handler keeps
// failing after retries is logged and committed so the partition advances.
func (s *KafkaSource) Run(ctx context.Context, handle Handler) error {
	s.logger.Info().
		Strs("brokers", s.cfg.Brokers).
		Str("topic", s.cfg.Topic).
		Str("group_id", s.cfg.GroupID).
		Msg("starting kafka occupancy source")

	for {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("fetching kafka message: %w", err)
		}

		msg := Message{
			ID:        fmt.Sprintf("%d/%d", m.Partition, m.Offset),
			Data:      m.Value,
			StationID: string(m.Key),
		}

		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = s.cfg.RetryInterval
		policy := backoff.WithContext(backoff.WithMaxRetries(bo, s.cfg.MaxRetries), ctx)
		if err := backoff.Retry(func() error { return handle(ctx, msg) }, policy); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error().
				Err(err).
				Int("partition", m.Partition).
				Int64("offset", m.Offset).
				Msg("giving up on occupancy message")
		}

		if err := s.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("committing kafka offset: %w", err)
		}
	}
}

// Close closes the reader.
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
