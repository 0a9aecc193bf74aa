// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

//go:build integration

package dataloader

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/models"
)

func startNATS(t *testing.T) string {
	t.Helper()
	ns, err := NewEmbeddedServer(EmbeddedConfig{StoreDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := ns.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})
	return ns.ClientURL()
}

func TestQueueAndWorker_NATS(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.MessagingConfig{NATSURL: startNATS(t), Topic: "dataloader.requests"}
	pubsub, err := NewPubSub(ctx, cfg)
	if err != nil {
		t.Fatalf("NewPubSub() error = %v", err)
	}
	defer pubsub.Close()
	if pubsub.Transport != "nats" {
		t.Errorf("Transport = %q, want nats", pubsub.Transport)
	}

	// Creating the transport twice updates the existing stream.
	again, err := NewPubSub(ctx, cfg)
	if err != nil {
		t.Fatalf("NewPubSub() on existing stream error = %v", err)
	}
	_ = again.Close()

	runner := &recordingRunner{done: make(chan struct{}, 1)}
	worker := NewWorker(pubsub.Subscriber, cfg.Topic, runner)
	go func() { _ = worker.Serve(ctx) }()
	select {
	case <-worker.Ready():
	case <-time.After(10 * time.Second):
		t.Fatal("worker did not subscribe")
	}

	req := models.DataLoaderRequest{Partner: "edly", CourseID: "course-v1:edx+N1+2030", Service: ServiceEcommerce}
	if err := NewQueue(pubsub.Publisher, cfg.Topic).Enqueue(ctx, req); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	select {
	case <-runner.done:
	case <-time.After(15 * time.Second):
		t.Fatal("worker did not receive the job over NATS")
	}
	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.reqs) != 1 || runner.reqs[0] != req {
		t.Errorf("runner saw %+v, want %+v", runner.reqs, req)
	}
}
