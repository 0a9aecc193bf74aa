// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package config

import (
	"time"
)

// Config holds all application configuration.
//
// Loading order (see LoadWithKoanf):
//  1. Defaults from defaultConfig()
//  2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/catalogus/config.yaml)
//  3. Environment variables, mapped explicitly in envTransformFunc
//
// Both cmd/server and cmd/catalogctl load the same structure, so an
// operator running the CSV loader sees the same database and search
// settings as the API server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	API       APIConfig       `koanf:"api"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
	Search    SearchConfig    `koanf:"search"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Loader    LoaderConfig    `koanf:"loader"`
	Messaging MessagingConfig `koanf:"messaging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// APIConfig holds pagination limits for list endpoints.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path        string `koanf:"path"`
	MaxMemory   string `koanf:"max_memory"`
	Threads     int    `koanf:"threads"`
	SkipIndexes bool   `koanf:"skip_indexes"`
}

// SecurityConfig holds authentication, authorization and rate limiting settings.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username"`
	AdminPassword     string        `koanf:"admin_password"`
	ServiceUsername   string        `koanf:"service_username"`
	PanelWorkerUser   string        `koanf:"panel_worker_user"`
	PolicyPath        string        `koanf:"policy_path"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SearchConfig holds Elasticsearch settings. Aliases are the stable names
// repointed by `catalogctl set-alias`.
type SearchConfig struct {
	Enabled     bool          `koanf:"enabled"`
	URLs        []string      `koanf:"urls"`
	Username    string        `koanf:"username"`
	Password    string        `koanf:"password"`
	Aliases     []string      `koanf:"aliases"`
	IndexPrefix string        `koanf:"index_prefix"`
	Timeout     time.Duration `koanf:"timeout"`
	KeepIndexes int           `koanf:"keep_indexes"`

	// PruneInterval is how often the server removes stale indexes. Zero
	// disables the background sweep.
	PruneInterval time.Duration `koanf:"prune_interval"`
}

// CatalogConfig holds partner resolution and media storage settings.
type CatalogConfig struct {
	DefaultPartner string        `koanf:"default_partner"`
	MediaRoot      string        `koanf:"media_root"`
	MediaURL       string        `koanf:"media_url"`
	CacheTTL       time.Duration `koanf:"cache_ttl"`
}

// LoaderConfig holds settings shared by the CSV loader and the upstream
// data loaders.
type LoaderConfig struct {
	APIBaseURL    string        `koanf:"api_base_url"`
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`
	RequestRate   float64       `koanf:"request_rate"`
	Timeout       time.Duration `koanf:"timeout"`
	PageSize      int           `koanf:"page_size"`
	Username      string        `koanf:"username"`
	ProgressDir   string        `koanf:"progress_dir"`
}

// MessagingConfig selects the transport for dataloader jobs. An empty
// NATSURL keeps jobs on the in-process channel unless Embedded is set.
type MessagingConfig struct {
	NATSURL string `koanf:"nats_url"`
	Topic   string `koanf:"topic"`

	// Embedded starts a JetStream server inside the process, for single
	// instance deployments that still want jobs to survive a restart.
	Embedded bool   `koanf:"embedded"`
	StoreDir string `koanf:"store_dir"`
}

// Load loads configuration from defaults, an optional file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
