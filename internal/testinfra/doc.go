// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

// Package testinfra starts throwaway containers for integration tests.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/search/...
//
// # Elasticsearch Container
//
// NewElasticsearchContainer runs a single-node cluster with security off:
//
//	func TestAliases(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    es, err := testinfra.NewElasticsearchContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, es.Container)
//
//	    client, err := search.NewClient(&config.SearchConfig{URLs: []string{es.URL}})
//	    // ...
//	}
//
// # CI Considerations
//
// Tests need Docker and, on first run, network access to pull the image.
// They skip when Docker is unavailable.
package testinfra
