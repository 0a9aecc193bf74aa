// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultElasticsearchImage matches the go-elasticsearch client major version.
	DefaultElasticsearchImage = "docker.elastic.co/elasticsearch/elasticsearch:8.17.0"

	elasticsearchPort = "9200/tcp"
)

// ElasticsearchContainer is a running single-node cluster.
type ElasticsearchContainer struct {
	testcontainers.Container
	URL string
}

// ElasticsearchOption configures the container.
type ElasticsearchOption func(*elasticsearchConfig)

type elasticsearchConfig struct {
	image        string
	heap         string
	startTimeout time.Duration
}

// WithElasticsearchImage overrides the image.
func WithElasticsearchImage(image string) ElasticsearchOption {
	return func(c *elasticsearchConfig) {
		c.image = image
	}
}

// WithHeap sets the JVM heap, e.g. "1g".
func WithHeap(heap string) ElasticsearchOption {
	return func(c *elasticsearchConfig) {
		c.heap = heap
	}
}

// WithStartTimeout bounds the wait for a green or yellow cluster.
func WithStartTimeout(timeout time.Duration) ElasticsearchOption {
	return func(c *elasticsearchConfig) {
		c.startTimeout = timeout
	}
}

// NewElasticsearchContainer starts Elasticsearch with security disabled and
// returns once the cluster health endpoint answers.
func NewElasticsearchContainer(ctx context.Context, opts ...ElasticsearchOption) (*ElasticsearchContainer, error) {
	cfg := &elasticsearchConfig{
		image:        DefaultElasticsearchImage,
		heap:         "512m",
		startTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{elasticsearchPort},
		Env: map[string]string{
			"discovery.type":         "single-node",
			"xpack.security.enabled": "false",
			"ES_JAVA_OPTS":           fmt.Sprintf("-Xms%s -Xmx%s", cfg.heap, cfg.heap),
		},
		WaitingFor: wait.ForHTTP("/_cluster/health?wait_for_status=yellow").
			WithPort(elasticsearchPort).
			WithStatusCodeMatcher(func(status int) bool { return status == http.StatusOK }).
			WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, elasticsearchPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &ElasticsearchContainer{
		Container: container,
		URL:       fmt.Sprintf("http://%s:%s", host, port.Port()),
	}, nil
}
