/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the fuel engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (optional) and environment configuration
  2. Configure zerolog
  3. Open the store (memory://, sqlite://, postgres://) and migrate
  4. Create the superadmin account if configured
  5. Create API handler, metrics and router
  6. Start the tank monitor
  7. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (10s timeout)
  3. Stop the tank monitor
  4. Close the store

ENVIRONMENT:
  See config/config.go. JWT_SECRET is required.

EXAMPLES:
  # Local SQLite file
  JWT_SECRET=dev LOG_FORMAT=console ./server

  # In-memory store with a demo superadmin
  JWT_SECRET=dev DATABASE_URL=memory:// \
  SUPERADMIN_USERNAME=root SUPERADMIN_PASSWORD=rootpass ./server

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqldb/sqldb.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/warp/fuel-engine/api"
	"github.com/warp/fuel-engine/config"
	"github.com/warp/fuel-engine/fuel"
	"github.com/warp/fuel-engine/fuel/store"
	"github.com/warp/fuel-engine/store/sqldb"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	lvl, _ := cfg.Level()
	loc, _ := cfg.Location()

	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(lvl)
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	logger := log.Logger

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.SuperAdminUsername != "" {
		if err := api.EnsureSuperAdmin(ctx, st, cfg.SuperAdminUsername, cfg.SuperAdminEmail, cfg.SuperAdminPassword, logger); err != nil {
			return err
		}
	}

	metrics := api.NewMetrics()
	handler := api.NewHandler(st, api.Options{
		Secret:   []byte(cfg.JWTSecret),
		TokenTTL: cfg.TokenTTL,
		Clock:    fuel.SystemClock{Location: loc},
		Location: loc,
		Metrics:  metrics,
	})
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins:     cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	monitor := api.NewTankMonitor(handler, logger)
	monitor.CheckInterval = cfg.MonitorInterval
	monitor.Enabled = cfg.MonitorInterval > 0
	monitor.Start()
	defer monitor.Stop()

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("timezone", loc.String()).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (fuel.Store, error) {
	if cfg.MemoryStore() {
		logger.Warn().Msg("using in-memory store, data is lost on exit")
		return store.NewMemory(), nil
	}
	db, err := sqldb.Open(ctx, cfg.DatabaseURL, sqldb.Options{
		QueryTimeout: cfg.QueryTimeout,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}
