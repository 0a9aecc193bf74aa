// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/catalogus/internal/logging"
)

// Migration is a versioned schema change applied exactly once.
type Migration struct {
	Version     int
	Name        string
	Description string
	SQL         string
	AppliedAt   time.Time
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMP NOT NULL
);
`

// migrations is append-only. Never edit or reorder an entry once released.
var migrations = []Migration{
	{Version: 1, Name: "pathway_type", Description: "Add pathway_type (credit or industry) to pathways",
		SQL: `ALTER TABLE pathways ADD COLUMN IF NOT EXISTS pathway_type TEXT DEFAULT 'credit';`},
	{Version: 2, Name: "course_key_for_reruns", Description: "Add key_for_reruns to courses",
		SQL: `ALTER TABLE courses ADD COLUMN IF NOT EXISTS key_for_reruns TEXT DEFAULT '';`},
	{Version: 3, Name: "person_marketing_id", Description: "Add marketing_id to people",
		SQL: `ALTER TABLE people ADD COLUMN IF NOT EXISTS marketing_id BIGINT;`},
	{Version: 4, Name: "person_marketing_url", Description: "Add marketing_url to people",
		SQL: `ALTER TABLE people ADD COLUMN IF NOT EXISTS marketing_url TEXT DEFAULT '';`},
	{Version: 5, Name: "person_phone_number", Description: "Add phone_number to people",
		SQL: `ALTER TABLE people ADD COLUMN IF NOT EXISTS phone_number TEXT DEFAULT '';`},
	{Version: 6, Name: "person_website", Description: "Add website to people",
		SQL: `ALTER TABLE people ADD COLUMN IF NOT EXISTS website TEXT DEFAULT '';`},
	{Version: 7, Name: "course_run_duration_override", Description: "Add course_duration_override to course_runs",
		SQL: `ALTER TABLE course_runs ADD COLUMN IF NOT EXISTS course_duration_override INTEGER;`},
	{Version: 8, Name: "course_run_course_language", Description: "Add course_language to course_runs",
		SQL: `ALTER TABLE course_runs ADD COLUMN IF NOT EXISTS course_language TEXT DEFAULT '';`},
	{Version: 9, Name: "course_type_unique_uuid", Description: "Unique uuid on course_types",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS idx_course_types_uuid ON course_types(uuid);`},
	{Version: 10, Name: "course_run_type_unique_uuid", Description: "Unique uuid on course_run_types",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS idx_course_run_types_uuid ON course_run_types(uuid);`},
	{Version: 11, Name: "partner_unique_site", Description: "One partner per site",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS idx_partners_site_id ON partners(site_id);`},
	{Version: 12, Name: "course_run_enrollment_codes", Description: "Add enrollment_codes (seat type to bulk SKU) to course_runs",
		SQL: `ALTER TABLE course_runs ADD COLUMN IF NOT EXISTS enrollment_codes TEXT DEFAULT '{}';`},
}

func (db *DB) getAppliedMigrations(ctx context.Context) (map[int]Migration, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT version, name, description, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer closeQuietly(rows)

	applied := make(map[int]Migration)
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.Name, &m.Description, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[m.Version] = m
	}
	return applied, rows.Err()
}

// runVersionedMigrations applies the migrations not yet recorded.
func (db *DB) runVersionedMigrations() error {
	ctx, cancel := schemaContext()
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	newMigrations := 0
	for _, m := range migrations {
		if _, exists := applied[m.Version]; exists {
			continue
		}
		if _, err := db.conn.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, description, applied_at) VALUES (?, ?, ?, ?)`,
			m.Version, m.Name, m.Description, db.now()); err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}
		newMigrations++
	}

	if newMigrations > 0 {
		logging.Info().Int("count", newMigrations).Msg("Applied database migrations")
	}
	return nil
}

// GetCurrentSchemaVersion returns the highest applied migration version.
func (db *DB) GetCurrentSchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var version int
	err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// GetMigrationHistory returns the applied migrations in order.
func (db *DB) GetMigrationHistory(ctx context.Context) ([]Migration, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	applied, err := db.getAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	history := make([]Migration, 0, len(applied))
	for _, m := range migrations {
		if a, ok := applied[m.Version]; ok {
			history = append(history, a)
		}
	}
	return history, nil
}
