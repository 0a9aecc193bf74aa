// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/catalogus/config.yaml",
	"/etc/catalogus/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        18381,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Database: DatabaseConfig{
			Path:      "/data/catalogus.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
		},
		Security: SecurityConfig{
			AuthMode:        "jwt",
			SessionTimeout:  24 * time.Hour,
			ServiceUsername: "discovery_worker",
			PanelWorkerUser: "edly_panel_worker",
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Search: SearchConfig{
			Enabled:       true,
			URLs:          []string{"http://127.0.0.1:9200"},
			Aliases:       []string{"catalog"},
			IndexPrefix:   "catalog",
			Timeout:       10 * time.Second,
			KeepIndexes:   3,
			PruneInterval: 6 * time.Hour,
		},
		Catalog: CatalogConfig{
			DefaultPartner: "edly",
			MediaRoot:      "/data/media",
			MediaURL:       "/media/",
			CacheTTL:       5 * time.Minute,
		},
		Loader: LoaderConfig{
			APIBaseURL:    "http://127.0.0.1:18381",
			RetryAttempts: 5,
			RetryDelay:    time.Second,
			RequestRate:   10,
			Timeout:       30 * time.Second,
			PageSize:      50,
			Username:      "discovery_worker",
			ProgressDir:   "",
		},
		Messaging: MessagingConfig{
			Topic:    "dataloader.requests",
			StoreDir: "/data/nats",
		},
	}
}

// LoadWithKoanf loads configuration with the precedence ENV > file > defaults
// and validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"search.urls",
	"search.aliases",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"admin_username":      "security.admin_username",
	"admin_password":      "security.admin_password",
	"service_username":    "security.service_username",
	"panel_worker_user":   "security.panel_worker_user",
	"authz_policy_path":   "security.policy_path",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"search_enabled":        "search.enabled",
	"elasticsearch_urls":    "search.urls",
	"elasticsearch_user":    "search.username",
	"elasticsearch_pass":    "search.password",
	"search_aliases":        "search.aliases",
	"search_index_prefix":   "search.index_prefix",
	"search_timeout":        "search.timeout",
	"search_keep_indexes":   "search.keep_indexes",
	"search_prune_interval": "search.prune_interval",

	"default_partner_code": "catalog.default_partner",
	"media_root":           "catalog.media_root",
	"media_url":            "catalog.media_url",
	"catalog_cache_ttl":    "catalog.cache_ttl",

	"loader_api_base_url":   "loader.api_base_url",
	"loader_retry_attempts": "loader.retry_attempts",
	"loader_retry_delay":    "loader.retry_delay",
	"loader_request_rate":   "loader.request_rate",
	"loader_timeout":        "loader.timeout",
	"loader_page_size":      "loader.page_size",
	"loader_username":       "loader.username",
	"loader_progress_dir":   "loader.progress_dir",

	"nats_url":         "messaging.nats_url",
	"nats_embedded":    "messaging.embedded",
	"nats_store_dir":   "messaging.store_dir",
	"dataloader_topic": "messaging.topic",
}

// envTransformFunc maps an environment variable to its koanf path.
// Unmapped variables return "" so unrelated environment does not leak in.
//
//   - HTTP_PORT -> server.port
//   - DUCKDB_PATH -> database.path
//   - ELASTICSEARCH_URLS -> search.urls
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
