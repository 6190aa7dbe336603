package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dennisdiepolder/callscope/internal/seed"
	"github.com/dennisdiepolder/callscope/internal/storage"
	"github.com/dennisdiepolder/callscope/internal/tenant"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Create the indexes of every tenant database and the system database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMongo(cmd.Context(), func(ctx context.Context, db *storage.Mongo, tenants *tenant.Registry) error {
			for _, id := range tenants.Tenants() {
				tdb, err := tenants.Resolve(id)
				if err != nil {
					return err
				}
				if err := storage.EnsureTenantIndexes(ctx, tdb, log.Logger); err != nil {
					return err
				}
			}
			return storage.EnsureSystemIndexes(ctx, db.System(), log.Logger)
		})
	},
}

var seedOpts struct {
	database string
	projects int
	agents   int
	calls    int
	days     int
	seed     uint64
	truncate bool
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill a tenant database with generated demo data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMongo(cmd.Context(), func(ctx context.Context, _ *storage.Mongo, tenants *tenant.Registry) error {
			tdb, err := tenants.Resolve(seedOpts.database)
			if err != nil {
				return err
			}
			if seedOpts.seed == 0 {
				seedOpts.seed = uint64(time.Now().UnixNano())
			}

			ds := seed.NewGenerator(seedOpts.seed).Generate(seed.Options{
				Projects: seedOpts.projects,
				Agents:   seedOpts.agents,
				Calls:    seedOpts.calls,
				Days:     seedOpts.days,
			})
			if err := seed.Write(ctx, tdb, ds, seedOpts.truncate, log.Logger); err != nil {
				return err
			}
			return storage.EnsureTenantIndexes(ctx, tdb, log.Logger)
		})
	},
}

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "List the allow-listed tenant databases",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenants, err := tenant.NewRegistry(nil, cfg.Mongo.Tenants, cfg.Mongo.SystemDatabase)
		if err != nil {
			return err
		}
		for _, id := range tenants.Tenants() {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func init() {
	f := seedCmd.Flags()
	f.StringVar(&seedOpts.database, "database", "", "tenant database to fill (must be allow-listed)")
	f.IntVar(&seedOpts.projects, "projects", 4, "number of projects")
	f.IntVar(&seedOpts.agents, "agents", 40, "number of agents")
	f.IntVar(&seedOpts.calls, "calls", 2000, "number of calls")
	f.IntVar(&seedOpts.days, "days", 90, "spread call dates over this many past days")
	f.Uint64Var(&seedOpts.seed, "seed", 0, "random seed, 0 picks one")
	f.BoolVar(&seedOpts.truncate, "truncate", false, "empty the collections first")
	_ = seedCmd.MarkFlagRequired("database")
}

// withMongo connects, builds the tenant registry, runs fn and disconnects
func withMongo(ctx context.Context, fn func(context.Context, *storage.Mongo, *tenant.Registry) error) error {
	db, err := storage.Connect(ctx, cfg.Mongo, log.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close MongoDB client")
		}
	}()

	tenants, err := tenant.NewRegistry(db.Client(), cfg.Mongo.Tenants, cfg.Mongo.SystemDatabase)
	if err != nil {
		return err
	}
	return fn(ctx, db, tenants)
}
