// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package dataloader

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestEmbeddedServerLifecycle(t *testing.T) {
	ns, err := NewEmbeddedServer(EmbeddedConfig{StoreDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	if !strings.HasPrefix(ns.ClientURL(), "nats://127.0.0.1:") {
		t.Errorf("ClientURL() = %q", ns.ClientURL())
	}
	if !ns.Running() {
		t.Fatal("server not running after start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ns.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if ns.Running() {
		t.Error("server still running after Shutdown")
	}
}
