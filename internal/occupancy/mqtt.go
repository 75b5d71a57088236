package occupancy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultMQTTTopic matches per-station occupancy topics.
const DefaultMQTTTopic = "stations/+/occupancy"

// MQTTConfig holds configuration for the MQTT source.
type MQTTConfig struct {
	// BrokerURL, e.g. tcp://localhost:1883.
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// Topic is the subscription filter (default: DefaultMQTTTopic).
	Topic string

	// QoS is the subscription quality of service (default: 1).
	QoS byte

	// ConnectTimeout bounds connect and subscribe (default: 10s).
	ConnectTimeout time.Duration

	Logger zerolog.Logger
}

// MQTTSource receives readings published by station controllers.
type MQTTSource struct {
	client mqtt.Client
	cfg    MQTTConfig
	logger zerolog.Logger
}

// NewMQTTSource creates an MQTT source. The connection is opened by Run.
func NewMQTTSource(cfg MQTTConfig) (*MQTTSource, error) {
	if cfg.BrokerURL == "" {
		return nil, errors.New("mqtt broker url is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultMQTTTopic
	}
	if cfg.QoS == 0 {
		cfg.QoS = 1
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "chargeroute-worker-" + uuid.New().String()[:8]
	}

	logger := cfg.Logger
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn().Err(err).Msg("mqtt connection lost")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	return &MQTTSource{
		client: mqtt.NewClient(opts),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Name identifies the source.
func (s *MQTTSource) Name() string {
	return "mqtt"
}

// Run connects, subscribes and blocks until ctx is done.
// MQTT has no negative acknowledgement, so handler errors are logged.
func (s *MQTTSource) Run(ctx context.Context, handle Handler) error {
	token := s.client.Connect()
	if !token.WaitTimeout(s.cfg.ConnectTimeout) {
		return fmt.Errorf("connecting to mqtt broker %s: timed out", s.cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connecting to mqtt broker %s: %w", s.cfg.BrokerURL, err)
	}

	token = s.client.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ mqtt.Client, m mqtt.Message) {
		msg := Message{
			ID:        fmt.Sprintf("%d", m.MessageID()),
			Data:      m.Payload(),
			StationID: stationIDFromTopic(m.Topic()),
		}
		if err := handle(ctx, msg); err != nil {
			s.logger.Error().Err(err).Str("topic", m.Topic()).Msg("occupancy message not applied")
		}
	})
	if !token.WaitTimeout(s.cfg.ConnectTimeout) {
		return fmt.Errorf("subscribing to %s: timed out", s.cfg.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribing to %s: %w", s.cfg.Topic, err)
	}

	s.logger.Info().
		Str("broker", s.cfg.BrokerURL).
		Str("topic", s.cfg.Topic).
		Msg("starting mqtt occupancy source")

	<-ctx.Done()
	s.client.Unsubscribe(s.cfg.Topic).WaitTimeout(time.Second)
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSource) Close() error {
	if s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	return nil
}

// stationIDFromTopic extracts the station from stations/{id}/occupancy.
func stationIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 3 && parts[0] == "stations" && parts[2] == "occupancy" {
		return parts[1]
	}
	return ""
}
