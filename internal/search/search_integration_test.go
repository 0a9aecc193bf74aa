// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

//go:build integration

package search

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/testinfra"
)

func TestElasticsearchAliasLifecycle_Integration(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	es, err := testinfra.NewElasticsearchContainer(ctx)
	if err != nil {
		t.Fatalf("start elasticsearch: %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, es.Container)

	cfg := &config.SearchConfig{
		URLs:        []string{es.URL},
		Aliases:     []string{"catalog"},
		IndexPrefix: "catalog",
		Timeout:     30 * time.Second,
	}
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(client, cfg)

	if err := svc.Ping(ctx); err != nil {
		testinfra.DumpLogs(t, ctx, es.Container)
		t.Fatalf("Ping() error = %v", err)
	}

	indexes := []string{"catalog_20261001_000000", "catalog_20261008_000000", "catalog_20261015_000000"}
	for _, idx := range indexes {
		if err := svc.CreateIndex(ctx, idx, nil); err != nil {
			t.Fatalf("CreateIndex(%s) error = %v", idx, err)
		}
	}

	// Repointing moves the alias rather than adding a second target.
	if err := svc.SetAlias(ctx, indexes[1]); err != nil {
		t.Fatalf("SetAlias() error = %v", err)
	}
	if err := svc.SetAlias(ctx, indexes[2]); err != nil {
		t.Fatalf("SetAlias() error = %v", err)
	}
	aliased, err := client.AliasedIndices(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(aliased[indexes[1]]) != 0 || len(aliased[indexes[2]]) != 1 {
		t.Fatalf("aliases = %v, want only %s", aliased, indexes[2])
	}

	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	docs := []CourseRunDocument{
		{ContentType: "courserun", Partner: "edly", Key: "course-v1:edX+DemoX+2026", Title: "Demo Course", Start: &start, Published: true},
		{ContentType: "courserun", Partner: "edly", Key: "course-v1:edX+Other+2026", Title: "Other Course", Start: &start},
		{ContentType: "courserun", Partner: "other", Key: "course-v1:edX+DemoX+2025", Title: "Demo Course", Start: &start, Published: true},
	}
	if err := svc.IndexCourseRuns(ctx, docs); err != nil {
		t.Fatalf("IndexCourseRuns() error = %v", err)
	}

	res, err := svc.SearchCourseRuns(ctx, CourseRunQuery{Q: "demo", Partner: "edly"})
	if err != nil {
		t.Fatalf("SearchCourseRuns() error = %v", err)
	}
	if res.Total != 1 || len(res.Results) != 1 || res.Results[0].Key != docs[0].Key {
		t.Errorf("results = %+v, want only %s", res, docs[0].Key)
	}

	// The aliased index survives; one unaliased index is kept.
	removed, err := svc.RemoveUnusedIndexes(ctx, 1)
	if err != nil {
		t.Fatalf("RemoveUnusedIndexes() error = %v", err)
	}
	if len(removed) != 1 {
		t.Errorf("removed = %v, want one index", removed)
	}
	remaining, err := client.Indices(ctx, "catalog_*")
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 2 {
		t.Errorf("remaining = %v, want 2", remaining)
	}
}
