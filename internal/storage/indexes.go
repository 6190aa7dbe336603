package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type indexSpec struct {
	collection string
	keys       bson.D
	unique     bool
}

var tenantIndexes = []indexSpec{
	{CallsCollection, bson.D{{Key: "day_processed", Value: 1}}, false},
	{CallsCollection, bson.D{{Key: "agent_info.username", Value: 1}, {Key: "day_processed", Value: 1}}, false},
	{AgentsCollection, bson.D{{Key: "username", Value: 1}}, true},
	{AgentsCollection, bson.D{{Key: "project", Value: 1}}, false},
	{ProjectsCollection, bson.D{{Key: "project_name", Value: 1}}, false},
}

var systemIndexes = []indexSpec{
	{UsersCollection, bson.D{{Key: "email", Value: 1}}, true},
}

// EnsureTenantIndexes creates the read-path indexes of a tenant database
func EnsureTenantIndexes(ctx context.Context, db *mongo.Database, logger zerolog.Logger) error {
	return ensureIndexes(ctx, db, tenantIndexes, logger)
}

// EnsureSystemIndexes creates the indexes of the system database
func EnsureSystemIndexes(ctx context.Context, db *mongo.Database, logger zerolog.Logger) error {
	return ensureIndexes(ctx, db, systemIndexes, logger)
}

func ensureIndexes(ctx context.Context, db *mongo.Database, specs []indexSpec, logger zerolog.Logger) error {
	for _, spec := range specs {
		model := mongo.IndexModel{Keys: spec.keys}
		if spec.unique {
			model.Options = options.Index().SetUnique(true)
		}

		name, err := db.Collection(spec.collection).Indexes().CreateOne(ctx, model)
		if err != nil {
			return fmt.Errorf("failed to create index on %s.%s: %w", db.Name(), spec.collection, err)
		}
		logger.Info().
			Str("database", db.Name()).
			Str("collection", spec.collection).
			Str("index", name).
			Msg("index ensured")
	}
	return nil
}
