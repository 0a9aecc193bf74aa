// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

/*
Package csvloader bulk-loads courses and course runs from a CSV export.

Each row describes one course and its run. The loader validates the row
against the local store (organization, course type, run type), then drives
the catalog REST API the same way the publisher UI does:

 1. POST /api/v1/courses/ when the course key {org}+{number} is new
 2. PATCH /api/v1/courses/{uuid}/?exclude_utm=1 with the course fields
 3. PATCH /api/v1/course_runs/{key}/?exclude_utm=1 with the run fields and
    draft=false, which publishes the run

A failing row is logged and counted; ingestion continues with the next row.

# Progress and Resume

Stats are saved after every row through a ProgressTracker. BadgerProgress
persists them keyed by file path, so a rerun with Resume set skips the rows
already processed, as long as the file checksum is unchanged.

# Usage

	loader, err := csvloader.New(partner, upstream.NewCatalogAPI(client), db, csvloader.Config{
	    CSVPath: "courses.csv",
	    Resume:  true,
	}, csvloader.WithProgress(progress))
	if err != nil {
	    return err
	}
	stats, err := loader.Ingest(ctx)
*/
package csvloader
