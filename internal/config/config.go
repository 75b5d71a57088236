// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/chargeroute/chargeroute/internal/database"
)

// Station store backends.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// Occupancy sources.
const (
	SourcePubSub = "pubsub"
	SourceMQTT   = "mqtt"
	SourceKafka  = "kafka"
)

// Config is the full service configuration.
type Config struct {
	Server         ServerConfig
	Database       database.Config
	Mongo          database.MongoConfig
	Store          string
	Auth           AuthConfig
	Advisory       AdvisoryConfig
	Directions     DirectionsConfig
	Recommendation RecommendationConfig
	Telemetry      TelemetryConfig
	Occupancy      OccupancyConfig
	RateLimit      RateLimitConfig
}

type ServerConfig struct {
	Port        string
	Environment string
	// RequireTLS rejects requests that did not arrive over HTTPS.
	RequireTLS bool
}

// IsDevelopment reports whether the service runs locally.
func (c ServerConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	CookieSecure bool
}

type AdvisoryConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type DirectionsConfig struct {
	APIKey   string
	BaseURL  string
	CacheTTL time.Duration
}

type RecommendationConfig struct {
	MaxSearchRadiusKm float64
	CandidateLimit    int
	DefaultTimezone   string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

type OccupancyConfig struct {
	Source string

	// InProcess runs ingestion inside the API server so live subscribers
	// see sensor updates without a separate worker.
	InProcess bool

	PubSubProject      string
	PubSubSubscription string

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// HealthPort serves the worker's health endpoints.
	HealthPort string
}

// RateLimitConfig holds per-minute request limits.
type RateLimitConfig struct {
	Auth      int
	Expensive int
	Standard  int
}

// Load reads .env when present and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("APP_PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			RequireTLS:  getEnvBool("REQUIRE_TLS", false),
		},
		Database: database.Config{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "chargeroute"),
			Password:        getEnv("DB_PASSWORD", "localdev"),
			Database:        getEnv("DB_NAME", "chargeroute"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConns:        int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns:        int32(getEnvInt("DB_MIN_CONNS", 2)),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
			EnsureSchema:    getEnvBool("DB_ENSURE_SCHEMA", true),
		},
		Mongo: database.MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DATABASE", "chargeroute"),
			Collection:     getEnv("MONGO_COLLECTION", "stations"),
			ConnectTimeout: getEnvDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		},
		Store: strings.ToLower(getEnv("STATION_STORE", StorePostgres)),
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			TokenTTL:     getEnvDuration("JWT_TTL", 7*24*time.Hour),
			CookieSecure: getEnvBool("COOKIE_SECURE", false),
		},
		Advisory: AdvisoryConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout: getEnvDuration("GEMINI_TIMEOUT", 15*time.Second),
		},
		Directions: DirectionsConfig{
			APIKey:   getEnv("OLA_MAPS_API_KEY", ""),
			BaseURL:  getEnv("OLA_MAPS_BASE_URL", "https://api.olamaps.io"),
			CacheTTL: getEnvDuration("DIRECTIONS_CACHE_TTL", 5*time.Minute),
		},
		Recommendation: RecommendationConfig{
			MaxSearchRadiusKm: getEnvFloat("MAX_SEARCH_RADIUS_KM", 100),
			CandidateLimit:    getEnvInt("RECOMMENDATION_CANDIDATE_LIMIT", 20),
			DefaultTimezone:   getEnv("DEFAULT_TIMEZONE", "Asia/Kolkata"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnvBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  getEnvFloat("OTEL_SAMPLE_RATIO", 1),
		},
		Occupancy: OccupancyConfig{
			Source:             strings.ToLower(getEnv("OCCUPANCY_SOURCE", SourcePubSub)),
			InProcess:          getEnvBool("OCCUPANCY_IN_PROCESS", false),
			PubSubProject:      getEnv("PUBSUB_PROJECT_ID", ""),
			PubSubSubscription: getEnv("PUBSUB_OCCUPANCY_SUBSCRIPTION", "station-occupancy"),
			MQTTBroker:         getEnv("MQTT_BROKER", "tcp://localhost:1883"),
			MQTTTopic:          getEnv("MQTT_TOPIC", "stations/+/occupancy"),
			MQTTClientID:       getEnv("MQTT_CLIENT_ID", ""),
			MQTTUsername:       getEnv("MQTT_USERNAME", ""),
			MQTTPassword:       getEnv("MQTT_PASSWORD", ""),
			KafkaBrokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			KafkaTopic:         getEnv("KAFKA_OCCUPANCY_TOPIC", "station-occupancy"),
			KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "chargeroute-worker"),
			HealthPort:         getEnv("WORKER_PORT", "8081"),
		},
		RateLimit: RateLimitConfig{
			Auth:      getEnvInt("RATE_LIMIT_AUTH", 10),
			Expensive: getEnvInt("RATE_LIMIT_EXPENSIVE", 30),
			Standard:  getEnvInt("RATE_LIMIT_STANDARD", 100),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StorePostgres, StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("STATION_STORE must be postgres, mongo or memory, got %q", c.Store)
	}
	switch c.Occupancy.Source {
	case SourcePubSub, SourceMQTT, SourceKafka:
	default:
		return fmt.Errorf("OCCUPANCY_SOURCE must be pubsub, mqtt or kafka, got %q", c.Occupancy.Source)
	}
	if _, err := time.LoadLocation(c.Recommendation.DefaultTimezone); err != nil {
		return fmt.Errorf("DEFAULT_TIMEZONE: %w", err)
	}
	if c.Auth.JWTSecret == "" && !c.Server.IsDevelopment() {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
