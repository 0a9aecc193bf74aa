// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

// Package app assembles the server's components: the store, the search
// service, the catalog service and the credentials used for outbound calls.
// catalogctl only uses the credentials.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/catalogus/internal/auth"
	"github.com/tomtom215/catalogus/internal/catalog"
	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/csvloader"
	"github.com/tomtom215/catalogus/internal/database"
	"github.com/tomtom215/catalogus/internal/dataloader"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
	"github.com/tomtom215/catalogus/internal/search"
	"github.com/tomtom215/catalogus/internal/upstream"
)

// Auth holds the credential managers for the configured auth mode. The
// CLI builds one on its own since it never opens the store.
type Auth struct {
	Config *config.Config
	JWT    *auth.JWTManager // nil unless AuthMode is "jwt"
	Basic  *auth.BasicAuthManager
	Authn  *auth.Middleware
}

// NewAuth builds the managers for cfg.Security.AuthMode.
func NewAuth(cfg *config.Config) (*Auth, error) {
	a := &Auth{Config: cfg}

	var err error
	switch cfg.Security.AuthMode {
	case "jwt":
		if a.JWT, err = auth.NewJWTManager(&cfg.Security); err != nil {
			return nil, fmt.Errorf("init jwt manager: %w", err)
		}
		fallthrough
	case "basic":
		if a.Basic, err = auth.NewBasicAuthManager(cfg.Security.AdminUsername, cfg.Security.AdminPassword); err != nil {
			return nil, fmt.Errorf("init basic auth manager: %w", err)
		}
	}
	if a.Authn, err = auth.NewMiddleware(&cfg.Security, a.JWT, a.Basic); err != nil {
		return nil, err
	}
	return a, nil
}

// ServiceAuthorizer returns the credentials sent on calls to this service's
// own API and to partner upstreams: a JWT minted for the service user in jwt
// mode, the admin basic credentials in basic mode, and nothing otherwise.
func (a *Auth) ServiceAuthorizer() upstream.Authorizer {
	switch {
	case a.JWT != nil:
		principal := a.Authn.PrincipalFor(a.Config.Security.ServiceUsername)
		return upstream.TokenSource(func(context.Context) (string, error) {
			return a.JWT.GenerateToken(principal)
		})
	case a.Basic != nil:
		return upstream.BasicAuth{Username: a.Config.Security.AdminUsername, Password: a.Config.Security.AdminPassword}
	default:
		return nil
	}
}

// Components holds the opened backing services. Close releases them.
// Only the server opens them: DuckDB admits one writer per file.
type Components struct {
	*Auth
	DB      *database.DB
	Search  *search.Service // nil when search is disabled
	Catalog *catalog.Service
}

// Open connects the store and, when enabled, the search cluster, and builds
// the catalog service on top of them.
func Open(ctx context.Context, cfg *config.Config) (*Components, error) {
	a, err := NewAuth(cfg)
	if err != nil {
		return nil, err
	}
	c := &Components{Auth: a}

	c.DB, err = database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	opts := []catalog.Option{catalog.WithUpstreams(catalog.NewUpstreams(&cfg.Loader, c.ServiceAuthorizer()))}
	if cfg.Search.Enabled {
		client, err := search.NewClient(&cfg.Search)
		if err != nil {
			_ = c.DB.Close()
			return nil, err
		}
		c.Search = search.NewService(client, &cfg.Search)
		opts = append(opts, catalog.WithSearchIndex(c.Search))
		if err := c.Search.Ping(ctx); err != nil {
			// Reads fall back to the database until the cluster answers.
			logging.Warn().Err(err).Strs("urls", cfg.Search.URLs).Msg("Search cluster unreachable")
		} else if _, err := c.Search.EnsureIndex(ctx); err != nil {
			logging.Warn().Err(err).Msg("Failed to prepare search index")
		}
	} else {
		logging.Info().Msg("Search disabled (SEARCH_ENABLED=false)")
	}

	c.Catalog = catalog.NewService(c.DB, &cfg.Catalog, opts...)
	return c, nil
}

// Pipeline returns a dataloader pipeline using the HTTP sources.
func (c *Components) Pipeline() *dataloader.Pipeline {
	sources := dataloader.NewSources(&c.Config.Loader, c.ServiceAuthorizer())
	return dataloader.NewPipeline(c.Catalog, c.DB, sources, c.Config)
}

// CatalogAPIFor returns a client for this service's own REST API whose
// writes land on partner. The CSV loader writes through it so every row
// passes the API's validation. Requests carry the partner's site as their
// Host, which is how the API picks the partner.
func (c *Components) CatalogAPIFor(ctx context.Context, partner *models.Partner) (csvloader.API, error) {
	host, err := c.Catalog.PartnerHost(ctx, partner)
	if err != nil {
		return nil, err
	}
	var extra []upstream.Option
	if host != "" {
		extra = append(extra, upstream.WithHost(host))
	}
	client := upstream.NewConfiguredClient("catalog", c.Config.Loader.APIBaseURL, &c.Config.Loader, c.ServiceAuthorizer(), extra...)
	return upstream.NewCatalogAPI(client), nil
}

// Importer returns the CSV importer behind the csv_imports endpoint.
func (c *Components) Importer(progress csvloader.ProgressTracker) *csvloader.Importer {
	return csvloader.NewImporter(c.CatalogAPIFor, c.DB, progress, c.ImageFetcher())
}

// OpenProgress persists CSV resume points in badger under
// cfg.Loader.ProgressDir, or in memory when none is configured.
func OpenProgress(cfg *config.Config) (csvloader.ProgressTracker, func() error, error) {
	dir := cfg.Loader.ProgressDir
	if dir == "" {
		logging.Info().Msg("LOADER_PROGRESS_DIR is not set; CSV resume points last until restart")
		return csvloader.NewInMemoryProgress(), func() error { return nil }, nil
	}
	progress, db, err := csvloader.OpenBadgerProgress(dir)
	if err != nil {
		return nil, nil, err
	}
	return progress, db.Close, nil
}

// ImageFetcher returns a client for absolute image URLs.
func (c *Components) ImageFetcher() *upstream.Client {
	return upstream.NewConfiguredClient("images", "", &c.Config.Loader, nil)
}

// Close releases the catalog caches and the database.
func (c *Components) Close() error {
	var err error
	if c.Catalog != nil {
		c.Catalog.Close()
	}
	if c.DB != nil {
		err = errors.Join(err, c.DB.Close())
	}
	return err
}
