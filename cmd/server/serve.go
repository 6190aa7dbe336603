package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dennisdiepolder/callscope/internal/analytics"
	"github.com/dennisdiepolder/callscope/internal/api"
	"github.com/dennisdiepolder/callscope/internal/auth"
	"github.com/dennisdiepolder/callscope/internal/chat"
	"github.com/dennisdiepolder/callscope/internal/config"
	"github.com/dennisdiepolder/callscope/internal/identity"
	"github.com/dennisdiepolder/callscope/internal/locale"
	"github.com/dennisdiepolder/callscope/internal/mailer"
	"github.com/dennisdiepolder/callscope/internal/metrics"
	"github.com/dennisdiepolder/callscope/internal/storage"
	"github.com/dennisdiepolder/callscope/internal/tenant"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("log_level", cfg.LogLevel).
		Str("auth_mode", string(cfg.Auth.Mode)).
		Msg("starting callscope backend server")

	db, err := storage.Connect(ctx, cfg.Mongo, log.Logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("failed to close MongoDB client")
		}
	}()

	tenants, err := tenant.NewRegistry(db.Client(), cfg.Mongo.Tenants, cfg.Mongo.SystemDatabase)
	if err != nil {
		return err
	}

	deps, err := buildDependencies(ctx, cfg, db, tenants)
	if err != nil {
		return err
	}
	if deps.redis != nil {
		defer deps.redis.Close()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Gemini.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}

// dependencies are the handlers and middleware the router mounts
type dependencies struct {
	metrics       *api.MetricsHandler
	records       *api.RecordsHandler
	chat          *api.ChatHandler
	auth          *api.AuthHandler
	system        *api.SystemHandler
	authenticator *auth.Authenticator
	tenants       auth.TenantValidator
	prom          *metrics.Metrics
	redis         *redis.Client
}

func buildDependencies(ctx context.Context, cfg *config.Config, db *storage.Mongo, tenants *tenant.Registry) (*dependencies, error) {
	logger := log.Logger
	prom := metrics.New()

	svc := analytics.NewService(analytics.NewMongoAggregator(tenants, prom), logger)

	catalog, err := locale.Load()
	if err != nil {
		return nil, err
	}
	relay := chat.NewRelay(chat.NewGeminiClient(cfg.Gemini), catalog, svc, prom, logger)

	var codes identity.CodeStore
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis is not reachable: %w", err)
		}
		codes = identity.NewRedisCodeStore(rdb)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, one-time codes are kept in memory")
		codes = identity.NewMemoryCodeStore()
	}

	mail, err := mailer.New(ctx, cfg.Mail, logger)
	if err != nil {
		return nil, err
	}

	signer := auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	provider := identity.NewLocal(storage.NewUsers(db.System()), codes, mail, signer, cfg.Auth, cfg.Mail.AppBaseURL, logger)

	var verifier auth.Verifier
	switch cfg.Auth.Mode {
	case config.AuthModeLocal:
		verifier = auth.NewHMACVerifier(cfg.Auth.JWTSecret)
	case config.AuthModeOIDC:
		jwks, err := auth.NewJWKSVerifier(cfg.Auth.OIDCIssuer)
		if err != nil {
			return nil, err
		}
		verifier = jwks
	case config.AuthModeNone:
		log.Warn().Msg("authentication is disabled, every request runs as the dev admin")
	}

	return &dependencies{
		metrics:       api.NewMetricsHandler(svc, logger),
		records:       api.NewRecordsHandler(storage.NewRecords(tenants, logger), logger),
		chat:          api.NewChatHandler(relay, cfg.DefaultLocale, logger),
		auth:          api.NewAuthHandler(provider, logger),
		system:        api.NewSystemHandler(db, tenants, logger),
		authenticator: auth.NewAuthenticator(cfg.Auth.Mode, verifier, provider, logger),
		tenants:       tenants,
		prom:          prom,
		redis:         rdb,
	}, nil
}
