// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

/*
Package database is the relational store for the course catalog, backed by
DuckDB over database/sql.

New opens the database, creates the tables and sequences, applies the
versioned migrations recorded in schema_migrations and finally creates the
indexes:

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	partner, err := db.GetPartnerByShortCode(ctx, "edx")

Every lookup that matches nothing returns ErrNotFound, and inserts that
collide with a unique key return ErrConflict. Callers match both with
errors.Is.

Writes that touch link tables (course owners, subjects, collaborators, run
staff, program course sets) run in a single transaction and replace the
existing links. Each query records its duration in the
catalogus_db_query_duration_seconds histogram.

Tests use ":memory:" databases:

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", SkipIndexes: true})
*/
package database
