package seed

import (
	"context"
	"fmt"

	"github.com/dennisdiepolder/callscope/internal/storage"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// batchSize bounds a single InsertMany call
const batchSize = 500

// Write inserts the dataset into a tenant database. With truncate the
// three collections are emptied first.
func Write(ctx context.Context, db *mongo.Database, ds Dataset, truncate bool, logger zerolog.Logger) error {
	logger = logger.With().Str("component", "seed").Str("database", db.Name()).Logger()

	if truncate {
		for _, name := range []string{storage.ProjectsCollection, storage.AgentsCollection, storage.CallsCollection} {
			if _, err := db.Collection(name).DeleteMany(ctx, bson.D{}); err != nil {
				return fmt.Errorf("failed to truncate %s: %w", name, err)
			}
		}
	}

	if err := insert(ctx, db.Collection(storage.ProjectsCollection), ds.Projects); err != nil {
		return fmt.Errorf("failed to insert projects: %w", err)
	}
	if err := insert(ctx, db.Collection(storage.AgentsCollection), ds.Agents); err != nil {
		return fmt.Errorf("failed to insert agents: %w", err)
	}
	if err := insert(ctx, db.Collection(storage.CallsCollection), ds.Calls); err != nil {
		return fmt.Errorf("failed to insert calls: %w", err)
	}

	logger.Info().
		Int("projects", len(ds.Projects)).
		Int("agents", len(ds.Agents)).
		Int("calls", len(ds.Calls)).
		Msg("seed data written")
	return nil
}

func insert[T any](ctx context.Context, coll *mongo.Collection, docs []T) error {
	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))
		batch := make([]interface{}, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, docs[i])
		}
		if _, err := coll.InsertMany(ctx, batch, options.InsertMany().SetOrdered(false)); err != nil {
			return err
		}
	}
	return nil
}
