// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 18381 {
		t.Errorf("Server.Port = %d, want 18381", cfg.Server.Port)
	}
	if cfg.Catalog.DefaultPartner != "edly" {
		t.Errorf("Catalog.DefaultPartner = %q, want edly", cfg.Catalog.DefaultPartner)
	}
	if cfg.Search.Aliases[0] != "catalog" {
		t.Errorf("Search.Aliases = %v, want [catalog]", cfg.Search.Aliases)
	}
	if cfg.Messaging.Topic != "dataloader.requests" {
		t.Errorf("Messaging.Topic = %q", cfg.Messaging.Topic)
	}
	if cfg.Loader.RetryDelay != time.Second {
		t.Errorf("Loader.RetryDelay = %v, want 1s", cfg.Loader.RetryDelay)
	}
}

// setMinimalEnv isolates the test from any config file in the working tree.
func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("AUTH_MODE", "none")
}

func TestLoadWithKoanfEnvOverrides(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("DUCKDB_PATH", "/tmp/test.duckdb")
	t.Setenv("ELASTICSEARCH_URLS", "http://es1:9200, http://es2:9200")
	t.Setenv("SEARCH_ALIASES", "catalog,catalog_next")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOADER_RETRY_DELAY", "250ms")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/test.duckdb" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if len(cfg.Search.URLs) != 2 || cfg.Search.URLs[1] != "http://es2:9200" {
		t.Errorf("Search.URLs = %v", cfg.Search.URLs)
	}
	if len(cfg.Search.Aliases) != 2 || cfg.Search.Aliases[1] != "catalog_next" {
		t.Errorf("Search.Aliases = %v", cfg.Search.Aliases)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.Loader.RetryDelay != 250*time.Millisecond {
		t.Errorf("Loader.RetryDelay = %v", cfg.Loader.RetryDelay)
	}
}

func TestLoadWithKoanfFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 8081
catalog:
  default_partner: edx
search:
  enabled: false
security:
  auth_mode: none
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "8082")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 8082 {
		t.Errorf("env should win over file: port = %d", cfg.Server.Port)
	}
	if cfg.Catalog.DefaultPartner != "edx" {
		t.Errorf("Catalog.DefaultPartner = %q, want edx", cfg.Catalog.DefaultPartner)
	}
	if cfg.Search.Enabled {
		t.Error("Search.Enabled should be false from file")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"HTTP_PORT":          "server.port",
		"JWT_SECRET":         "security.jwt_secret",
		"ELASTICSEARCH_URLS": "search.urls",
		"NATS_URL":           "messaging.nats_url",
		"NATS_EMBEDDED":      "messaging.embedded",
		"PATH":               "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid none", func(c *Config) { c.Security.AuthMode = "none" }, ""},
		{"bad port", func(c *Config) { c.Security.AuthMode = "none"; c.Server.Port = 0 }, "HTTP_PORT"},
		{"bad auth mode", func(c *Config) { c.Security.AuthMode = "oidc" }, "AUTH_MODE"},
		{"jwt without secret", func(c *Config) { c.Security.AuthMode = "jwt" }, "JWT_SECRET is required"},
		{"short secret", func(c *Config) { c.Security.JWTSecret = "short" }, "at least 32"},
		{"jwt without admin", func(c *Config) {
			c.Security.JWTSecret = strings.Repeat("s", 32)
		}, "ADMIN_USERNAME"},
		{"none in production", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Server.Environment = "production"
		}, "AUTH_MODE=none"},
		{"search without urls", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Search.URLs = nil
		}, "ELASTICSEARCH_URLS"},
		{"search disabled skips urls", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Search.Enabled = false
			c.Search.URLs = nil
		}, ""},
		{"bad nats url", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Messaging.NATSURL = "http://nats:4222"
		}, "NATS_URL"},
		{"embedded with url", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Messaging.Embedded = true
			c.Messaging.NATSURL = "nats://nats:4222"
		}, "cannot both be set"},
		{"embedded without store", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Messaging.Embedded = true
			c.Messaging.StoreDir = ""
		}, "NATS_STORE_DIR"},
		{"bad loader url", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Loader.APIBaseURL = "ftp://x"
		}, "LOADER_API_BASE_URL"},
		{"page sizes", func(c *Config) {
			c.Security.AuthMode = "none"
			c.API.MaxPageSize = 5
		}, "API_MAX_PAGE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
