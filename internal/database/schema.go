// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

/*
schema.go - Catalog Schema

Entity tables use BIGINT ids drawn from one sequence per table. UUIDs are
stored as VARCHAR. Ordered many-to-many relations keep a sort_order column so
that course subjects keep their primary, secondary, tertiary order.

Tables:
  - sites, partners: tenants and the hosts that map to them
  - organizations: course owners, unique per partner by key
  - course_types, course_run_types, program_types: reference data
  - language_tags: IETF language codes with display names
  - subjects, subject_translations: per-language subject text
  - people, collaborators: course run staff and course collaborators
  - courses, course_runs: the catalog proper
  - programs: groupings of courses
  - pathways: credit and industry pathways
  - course_* and program_* link tables
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

var sequences = []string{
	"seq_sites", "seq_partners", "seq_organizations", "seq_course_types",
	"seq_course_run_types", "seq_program_types", "seq_subjects", "seq_people",
	"seq_collaborators", "seq_courses", "seq_course_runs", "seq_programs",
	"seq_pathways",
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, seq := range sequences {
		if _, err := db.conn.ExecContext(ctx, fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s START 1;", seq)); err != nil {
			return fmt.Errorf("failed to create sequence %s: %w", seq, err)
		}
	}

	for _, query := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS sites (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_sites'),
		domain TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT ''
	);`,

	`CREATE TABLE IF NOT EXISTS partners (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_partners'),
		uuid VARCHAR NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		short_code TEXT NOT NULL UNIQUE,
		lms_url TEXT NOT NULL DEFAULT '',
		studio_url TEXT NOT NULL DEFAULT '',
		courses_api_url TEXT NOT NULL DEFAULT '',
		ecommerce_api_url TEXT NOT NULL DEFAULT '',
		organizations_api_url TEXT NOT NULL DEFAULT '',
		marketing_site_url_root TEXT NOT NULL DEFAULT '',
		marketing_site_api_url TEXT NOT NULL DEFAULT '',
		site_id BIGINT UNIQUE
	);`,

	`CREATE TABLE IF NOT EXISTS organizations (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_organizations'),
		uuid VARCHAR NOT NULL,
		partner_id BIGINT NOT NULL,
		key TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		logo_image_url TEXT NOT NULL DEFAULT '',
		UNIQUE (partner_id, key)
	);`,

	`CREATE TABLE IF NOT EXISTS course_types (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_course_types'),
		uuid VARCHAR NOT NULL,
		name TEXT NOT NULL UNIQUE,
		slug TEXT NOT NULL DEFAULT '',
		entitlement_types TEXT NOT NULL DEFAULT '[]'
	);`,

	`CREATE TABLE IF NOT EXISTS course_run_types (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_course_run_types'),
		uuid VARCHAR NOT NULL,
		name TEXT NOT NULL UNIQUE,
		slug TEXT NOT NULL DEFAULT '',
		is_marketable BOOLEAN NOT NULL DEFAULT true,
		seat_types TEXT NOT NULL DEFAULT '[]'
	);`,

	`CREATE TABLE IF NOT EXISTS program_types (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_program_types'),
		uuid VARCHAR NOT NULL,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE
	);`,

	`CREATE TABLE IF NOT EXISTS language_tags (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS subjects (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_subjects'),
		uuid VARCHAR NOT NULL,
		partner_id BIGINT NOT NULL,
		slug TEXT NOT NULL,
		banner_url TEXT NOT NULL DEFAULT '',
		card_image_url TEXT NOT NULL DEFAULT '',
		UNIQUE (partner_id, slug)
	);`,

	`CREATE TABLE IF NOT EXISTS subject_translations (
		subject_id BIGINT NOT NULL,
		language_code TEXT NOT NULL,
		name TEXT NOT NULL,
		subtitle TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (subject_id, language_code)
	);`,

	`CREATE TABLE IF NOT EXISTS people (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_people'),
		uuid VARCHAR NOT NULL,
		partner_id BIGINT NOT NULL,
		given_name TEXT NOT NULL,
		family_name TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		slug TEXT NOT NULL DEFAULT ''
	);`,

	`CREATE TABLE IF NOT EXISTS collaborators (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_collaborators'),
		uuid VARCHAR NOT NULL,
		name TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT ''
	);`,

	`CREATE TABLE IF NOT EXISTS courses (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_courses'),
		uuid VARCHAR NOT NULL,
		partner_id BIGINT NOT NULL,
		key TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		number TEXT NOT NULL DEFAULT '',
		url_slug TEXT NOT NULL DEFAULT '',
		type_id BIGINT,
		short_description TEXT NOT NULL DEFAULT '',
		full_description TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL DEFAULT '',
		syllabus_raw TEXT NOT NULL DEFAULT '',
		prerequisites_raw TEXT NOT NULL DEFAULT '',
		learner_testimonials TEXT NOT NULL DEFAULT '',
		faq TEXT NOT NULL DEFAULT '',
		additional_information TEXT NOT NULL DEFAULT '',
		level_type TEXT NOT NULL DEFAULT '',
		video_url TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		card_image_url TEXT NOT NULL DEFAULT '',
		draft BOOLEAN NOT NULL DEFAULT false,
		prices TEXT NOT NULL DEFAULT '{}',
		created TIMESTAMP NOT NULL,
		modified TIMESTAMP NOT NULL,
		UNIQUE (partner_id, key)
	);`,

	`CREATE TABLE IF NOT EXISTS course_runs (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_course_runs'),
		uuid VARCHAR NOT NULL,
		course_id BIGINT NOT NULL,
		key TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		title_override TEXT NOT NULL DEFAULT '',
		type_id BIGINT,
		status TEXT NOT NULL DEFAULT 'unpublished',
		draft BOOLEAN NOT NULL DEFAULT false,
		start_date TIMESTAMP,
		end_date TIMESTAMP,
		go_live_date TIMESTAMP,
		upgrade_deadline_override TIMESTAMP,
		enrollment_start TIMESTAMP,
		enrollment_end TIMESTAMP,
		pacing_type TEXT NOT NULL DEFAULT '',
		min_effort INTEGER,
		max_effort INTEGER,
		weeks_to_complete INTEGER,
		content_language TEXT NOT NULL DEFAULT '',
		expected_program_type TEXT NOT NULL DEFAULT '',
		expected_program_name TEXT NOT NULL DEFAULT '',
		course_overridden BOOLEAN NOT NULL DEFAULT false,
		short_description TEXT NOT NULL DEFAULT '',
		full_description TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL DEFAULT '',
		card_image_url TEXT NOT NULL DEFAULT '',
		video_url TEXT NOT NULL DEFAULT '',
		prices TEXT NOT NULL DEFAULT '{}',
		created TIMESTAMP NOT NULL,
		modified TIMESTAMP NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS programs (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_programs'),
		uuid VARCHAR NOT NULL,
		partner_id BIGINT NOT NULL,
		title TEXT NOT NULL,
		subtitle TEXT NOT NULL DEFAULT '',
		type_id BIGINT,
		status TEXT NOT NULL DEFAULT 'unpublished',
		marketing_slug TEXT NOT NULL DEFAULT '',
		hidden BOOLEAN NOT NULL DEFAULT false,
		one_click_purchase_enabled BOOLEAN NOT NULL DEFAULT true,
		min_hours_effort_per_week INTEGER,
		max_hours_effort_per_week INTEGER,
		card_image_url TEXT NOT NULL DEFAULT '',
		banner_image_url TEXT NOT NULL DEFAULT '',
		overview TEXT NOT NULL DEFAULT '',
		created TIMESTAMP NOT NULL,
		modified TIMESTAMP NOT NULL
	);`,

	`CREATE TABLE IF NOT EXISTS pathways (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_pathways'),
		uuid VARCHAR NOT NULL,
		partner_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		org_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		destination_url TEXT NOT NULL DEFAULT ''
	);`,

	`CREATE TABLE IF NOT EXISTS course_authoring_organizations (
		course_id BIGINT NOT NULL,
		organization_id BIGINT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS course_subjects (
		course_id BIGINT NOT NULL,
		subject_id BIGINT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS course_collaborators (
		course_id BIGINT NOT NULL,
		collaborator_id BIGINT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS course_run_staff (
		course_run_id BIGINT NOT NULL,
		person_id BIGINT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS course_run_transcript_languages (
		course_run_id BIGINT NOT NULL,
		language_code TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS program_courses (
		program_id BIGINT NOT NULL,
		course_id BIGINT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS program_excluded_course_runs (
		program_id BIGINT NOT NULL,
		course_run_id BIGINT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS program_authoring_organizations (
		program_id BIGINT NOT NULL,
		organization_id BIGINT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS program_credit_backing_organizations (
		program_id BIGINT NOT NULL,
		organization_id BIGINT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	);`,
}

// createIndexes is skipped when cfg.SkipIndexes is set.
func (db *DB) createIndexes() error {
	if db.cfg != nil && db.cfg.SkipIndexes {
		return nil
	}

	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range indexQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute index query: %s: %w", query, err)
		}
	}
	return nil
}

var indexQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_courses_partner ON courses(partner_id);`,
	`CREATE INDEX IF NOT EXISTS idx_courses_uuid ON courses(uuid);`,
	`CREATE INDEX IF NOT EXISTS idx_course_runs_course ON course_runs(course_id);`,
	`CREATE INDEX IF NOT EXISTS idx_course_runs_start ON course_runs(course_id, start_date DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_programs_partner ON programs(partner_id, id);`,
	`CREATE INDEX IF NOT EXISTS idx_programs_uuid ON programs(uuid);`,
	`CREATE INDEX IF NOT EXISTS idx_subjects_uuid ON subjects(uuid);`,
	`CREATE INDEX IF NOT EXISTS idx_people_given_name ON people(partner_id, given_name);`,
	`CREATE INDEX IF NOT EXISTS idx_collaborators_name ON collaborators(name);`,
	`CREATE INDEX IF NOT EXISTS idx_course_subjects ON course_subjects(course_id, sort_order);`,
	`CREATE INDEX IF NOT EXISTS idx_program_courses ON program_courses(program_id, sort_order);`,
}
