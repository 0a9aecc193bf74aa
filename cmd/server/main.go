// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/tomtom215/catalogus/docs" // registers swagger docs
	"github.com/tomtom215/catalogus/internal/api"
	"github.com/tomtom215/catalogus/internal/app"
	"github.com/tomtom215/catalogus/internal/auth"
	"github.com/tomtom215/catalogus/internal/authz"
	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/supervisor"
	"github.com/tomtom215/catalogus/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // sequential setup steps
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("search_enabled", cfg.Search.Enabled).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Catalogus with supervisor tree")

	comps, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := comps.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	warnSecurity(cfg)

	if _, err := comps.Catalog.PartnerByShortCode(ctx, cfg.Catalog.DefaultPartner); err != nil {
		logging.Warn().Err(err).Str("partner", cfg.Catalog.DefaultPartner).
			Msg("Default partner missing; run `catalogctl setup-service`")
	}

	loader, err := InitDataLoader(ctx, comps)
	if err != nil {
		return err
	}
	// Closed after the tree has stopped the worker.
	defer loader.Close()

	enforcer, err := authz.NewEnforcer(authz.EnforcerConfig{
		PolicyPath: cfg.Security.PolicyPath,
		CacheTTL:   time.Minute,
	})
	if err != nil {
		return fmt.Errorf("init authorization: %w", err)
	}

	progress, closeProgress, err := app.OpenProgress(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeProgress(); err != nil {
			logging.Warn().Err(err).Msg("Error closing progress store")
		}
	}()

	handler := api.NewHandler(comps.Catalog, loader.Queue, cfg, api.WithImporter(comps.Importer(progress)))
	defer handler.Close()

	var login http.Handler
	if comps.JWT != nil {
		login = auth.NewLoginHandler(comps.JWT, comps.Basic, comps.Authn)
	}
	router := api.NewRouter(handler, comps.Authn, authz.NewMiddleware(enforcer), login,
		api.NewChiMiddlewareFromConfig(&cfg.Security))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if comps.Search != nil && cfg.Search.PruneInterval > 0 {
		tree.AddDataService(services.NewIndexJanitorService(comps.Catalog, cfg.Search.PruneInterval, cfg.Search.KeepIndexes))
		logging.Info().Dur("interval", cfg.Search.PruneInterval).Msg("Index janitor added to supervisor tree")
	}
	tree.AddMessagingService(loader.Worker)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	serveErr := <-errCh
	if errors.Is(serveErr, context.Canceled) {
		serveErr = nil
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return serveErr
}

func warnSecurity(cfg *config.Config) {
	if cfg.Security.AuthMode == "none" {
		logging.Warn().Msg("Authentication is DISABLED (AUTH_MODE=none); every request runs as admin")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS allows any origin while authentication is enabled; set CORS_ORIGINS in production")
	}
}
