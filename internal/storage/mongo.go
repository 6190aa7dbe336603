package storage

import (
	"context"
	"fmt"

	"github.com/dennisdiepolder/callscope/internal/config"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names shared by every tenant database
const (
	CallsCollection    = "calls"
	AgentsCollection   = "agents"
	ProjectsCollection = "projects"
	UsersCollection    = "users"
)

// Mongo owns the process-wide client and its connection pool.
// It is created once at startup and closed on shutdown.
type Mongo struct {
	client *mongo.Client
	config config.MongoConfig
	logger zerolog.Logger
}

// Connect creates the client and verifies the server is reachable
func Connect(ctx context.Context, cfg config.MongoConfig, logger zerolog.Logger) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetConnectTimeout(cfg.ConnectTimeout)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB is not reachable: %w", err)
	}

	logger.Info().
		Strs("tenants", cfg.Tenants).
		Uint64("max_pool_size", cfg.MaxPoolSize).
		Msg("MongoDB client connected")

	return &Mongo{client: client, config: cfg, logger: logger}, nil
}

// Client returns the shared driver client
func (m *Mongo) Client() *mongo.Client {
	return m.client
}

// System returns the database holding user profiles
func (m *Mongo) System() *mongo.Database {
	return m.client.Database(m.config.SystemDatabase)
}

// Ping checks the primary is reachable
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close drains the connection pool
func (m *Mongo) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	m.logger.Info().Msg("MongoDB client disconnected")
	return nil
}
