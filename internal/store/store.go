// Package store opens the repositories backing the API server and the
// occupancy worker for the configured station store.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/chargeroute/chargeroute/internal/config"
	"github.com/chargeroute/chargeroute/internal/database"
	"github.com/chargeroute/chargeroute/internal/driver"
	"github.com/chargeroute/chargeroute/internal/featureflags"
	"github.com/chargeroute/chargeroute/internal/station"
)

// Check is a named reachability probe for a backing store.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Stores holds the opened repositories. Drivers and Flags fall back to
// in-memory repositories unless Postgres is configured.
type Stores struct {
	Stations station.Repository
	Drivers  driver.Repository
	Flags    featureflags.Repository
	Checks   []Check

	closers []func()
}

// Close releases every open connection.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Stores, error) {
	switch cfg.Store {
	case config.StorePostgres:
		return openPostgres(ctx, cfg.Database, logger)
	case config.StoreMongo:
		return openMongo(ctx, cfg.Mongo, logger)
	case config.StoreMemory:
		logger.Warn().Msg("using in-memory stores, data is lost on restart")
		return memoryStores(), nil
	}
	return nil, fmt.Errorf("unknown station store %q", cfg.Store)
}

func openPostgres(ctx context.Context, cfg database.Config, logger zerolog.Logger) (*Stores, error) {
	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("database", pool.Config().ConnConfig.Database).
		Str("host", pool.Config().ConnConfig.Host).
		Bool("schema_ensured", cfg.EnsureSchema).
		Msg("database connected")

	return &Stores{
		Stations: station.NewPostgresRepository(pool),
		Drivers:  driver.NewPostgresRepository(pool),
		Flags:    featureflags.NewPostgresRepository(pool),
		Checks:   []Check{{Name: "postgres", Ping: pingPool(pool)}},
		closers:  []func(){pool.Close},
	}, nil
}

func openMongo(ctx context.Context, cfg database.MongoConfig, logger zerolog.Logger) (*Stores, error) {
	client, err := database.ConnectMongo(ctx, cfg)
	if err != nil {
		return nil, err
	}

	repo := station.NewMongoRepository(client.Database(cfg.Database), cfg.Collection)
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	logger.Info().
		Str("database", cfg.Database).
		Str("collection", cfg.Collection).
		Msg("mongo connected")

	s := memoryStores()
	s.Stations = repo
	s.Checks = []Check{{Name: "mongo", Ping: pingMongo(client)}}
	s.closers = []func(){func() { _ = client.Disconnect(context.Background()) }}
	return s, nil
}

func memoryStores() *Stores {
	return &Stores{
		Stations: station.NewInMemoryRepository(),
		Drivers:  driver.NewInMemoryRepository(),
		Flags:    featureflags.NewInMemoryRepository(),
	}
}

func pingPool(pool *pgxpool.Pool) func(context.Context) error {
	return pool.Ping
}

func pingMongo(client *mongo.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx, readpref.Primary())
	}
}
