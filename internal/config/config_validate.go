// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateAPI,
		c.validateDatabase,
		c.validateSecurity,
		c.validateSearch,
		c.validateCatalog,
		c.validateLoader,
		c.validateMessaging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be at least 1")
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_MAX_PAGE_SIZE must be greater than or equal to API_DEFAULT_PAGE_SIZE")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	return nil
}

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
	minJWTSecretLength   = 32
)

var validAuthModes = map[string]bool{
	"none":  true,
	"jwt":   true,
	"basic": true,
}

func (c *Config) validateSecurity() error {
	if !validAuthModes[c.Security.AuthMode] {
		return fmt.Errorf("AUTH_MODE must be one of: none, jwt, basic")
	}
	if c.Security.AuthMode == "none" && c.IsProduction() {
		return fmt.Errorf("AUTH_MODE=none is not allowed when ENVIRONMENT=production")
	}

	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
		}
		if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
		}
	}

	if c.Security.AuthMode != "none" && c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* is not allowed in production with authentication enabled")
	}

	switch c.Security.AuthMode {
	case "jwt":
		if err := c.validateJWTSecret(); err != nil {
			return err
		}
		return c.validateAdminCredentials()
	case "basic":
		return c.validateAdminCredentials()
	}
	return nil
}

func (c *Config) validateJWTSecret() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is jwt")
	}
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	return nil
}

func (c *Config) validateAdminCredentials() error {
	if c.Security.AdminUsername == "" {
		return fmt.Errorf("ADMIN_USERNAME is required when AUTH_MODE is %s", c.Security.AuthMode)
	}
	if c.Security.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD is required when AUTH_MODE is %s", c.Security.AuthMode)
	}
	return nil
}

func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS reports a wildcard CORS policy on an authenticated API.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.Security.AuthMode != "none" && c.hasWildcardCORS()
}

func (c *Config) validateSearch() error {
	if !c.Search.Enabled {
		return nil
	}
	if len(c.Search.URLs) == 0 {
		return fmt.Errorf("ELASTICSEARCH_URLS is required when SEARCH_ENABLED=true")
	}
	for _, u := range c.Search.URLs {
		if err := validateHTTPURL(u, "ELASTICSEARCH_URLS"); err != nil {
			return err
		}
	}
	if len(c.Search.Aliases) == 0 {
		return fmt.Errorf("SEARCH_ALIASES must name at least one alias")
	}
	if c.Search.KeepIndexes < 1 {
		return fmt.Errorf("SEARCH_KEEP_INDEXES must be at least 1")
	}
	if c.Search.PruneInterval < 0 {
		return fmt.Errorf("SEARCH_PRUNE_INTERVAL must not be negative")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.DefaultPartner == "" {
		return fmt.Errorf("DEFAULT_PARTNER_CODE is required")
	}
	if c.Catalog.CacheTTL < 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL must not be negative")
	}
	return nil
}

func (c *Config) validateLoader() error {
	if err := validateHTTPURL(c.Loader.APIBaseURL, "LOADER_API_BASE_URL"); err != nil {
		return err
	}
	if c.Loader.RetryAttempts < 1 {
		return fmt.Errorf("LOADER_RETRY_ATTEMPTS must be at least 1")
	}
	if c.Loader.RequestRate <= 0 {
		return fmt.Errorf("LOADER_REQUEST_RATE must be positive")
	}
	if c.Loader.PageSize < 1 {
		return fmt.Errorf("LOADER_PAGE_SIZE must be at least 1")
	}
	return nil
}

func (c *Config) validateMessaging() error {
	if c.Messaging.Topic == "" {
		return fmt.Errorf("DATALOADER_TOPIC is required")
	}
	if c.Messaging.NATSURL != "" {
		if c.Messaging.Embedded {
			return fmt.Errorf("NATS_EMBEDDED and NATS_URL cannot both be set")
		}
		if err := validateNATSURL(c.Messaging.NATSURL); err != nil {
			return fmt.Errorf("NATS_URL is invalid: %w", err)
		}
	}
	if c.Messaging.Embedded && c.Messaging.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required with NATS_EMBEDDED")
	}
	return nil
}

// IsProduction reports ENVIRONMENT=production (or prod).
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}
