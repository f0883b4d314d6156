package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	oauthadapter "github.com/ewhitley/sitepulse/internal/adapter/driven/oauth"
	"github.com/ewhitley/sitepulse/internal/adapter/driven/provider"
	sqliteadapter "github.com/ewhitley/sitepulse/internal/adapter/driven/sqlite"
	httphandler "github.com/ewhitley/sitepulse/internal/adapter/driving/http"
	"github.com/ewhitley/sitepulse/internal/application"
	"github.com/ewhitley/sitepulse/internal/config"
	"github.com/ewhitley/sitepulse/internal/domain/port/driven"
	"github.com/ewhitley/sitepulse/internal/vault"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"sync_interval", cfg.SyncInterval,
		"backfill_days", cfg.BackfillDays,
		"sync_workers", cfg.SyncWorkers,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire storage adapters.
	credentialStore := sqliteadapter.NewCredentialRepo(db)
	connectionStore := sqliteadapter.NewConnectionRepo(db)
	metricStore := sqliteadapter.NewMetricRepo(db)

	// 6. Create the vault from the configured encryption key.
	v, err := vault.New(cfg.EncryptionKey)
	if err != nil {
		return err
	}

	// 7. Create the token exchanger and refresh service.
	if !cfg.HasOAuthClient() {
		slog.Warn("no oauth client configured, token refreshes will fail until SITEPULSE_OAUTH_CLIENT_ID and SITEPULSE_OAUTH_CLIENT_SECRET are set")
	}
	exchanger := oauthadapter.NewExchanger(cfg.OAuthClientID, cfg.OAuthClientSecret, cfg.TokenURL)
	tokenSvc := application.NewTokenService(credentialStore, exchanger, v)

	// 8. Create provider connectors over a shared rate-limited client.
	client := provider.NewClient()
	connectors := []driven.Connector{
		provider.NewAnalyticsConnector(client, baseURL(cfg.AnalyticsBaseURL, provider.DefaultAnalyticsBaseURL)),
		provider.NewSearchConsoleConnector(client, baseURL(cfg.SearchConsoleBaseURL, provider.DefaultSearchConsoleBaseURL)),
		provider.NewListingsConnector(client, baseURL(cfg.ListingsBaseURL, provider.DefaultListingsBaseURL)),
	}

	// 9. Create and start the sync service.
	syncSvc := application.NewSyncService(
		credentialStore,
		connectionStore,
		metricStore,
		tokenSvc,
		connectors,
		cfg.BackfillDays,
		cfg.SyncWorkers,
		cfg.SyncInterval,
	)
	go syncSvc.Start(ctx)

	// 10. Create HTTP handler and server.
	apiHandler := httphandler.NewHandler(syncSvc, connectionStore, credentialStore, cfg.SyncSecret, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 11. Log startup complete.
	slog.Info("sitepulse started",
		"listen_addr", cfg.ListenAddr,
		"sync_interval", cfg.SyncInterval,
	)

	// 12. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 13. Graceful shutdown with 10s timeout to drain in-flight requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// baseURL returns the override when set, otherwise the production default.
func baseURL(override, def string) string {
	if override != "" {
		return override
	}
	return def
}
