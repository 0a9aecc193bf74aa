// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/models"
)

func scanCourseType(row interface{ Scan(...any) error }) (*models.CourseType, error) {
	var t models.CourseType
	var entitlements string
	if err := row.Scan(&t.ID, &t.UUID, &t.Name, &t.Slug, &entitlements); err != nil {
		return nil, notFound(err)
	}
	t.EntitlementTypes = decodeStrings(entitlements)
	return &t, nil
}

func scanCourseRunType(row interface{ Scan(...any) error }) (*models.CourseRunType, error) {
	var t models.CourseRunType
	var seats string
	if err := row.Scan(&t.ID, &t.UUID, &t.Name, &t.Slug, &t.IsMarketable, &seats); err != nil {
		return nil, notFound(err)
	}
	t.SeatTypes = decodeStrings(seats)
	return &t, nil
}

// GetCourseTypeByName returns the course type called name.
func (db *DB) GetCourseTypeByName(ctx context.Context, name string) (*models.CourseType, error) {
	start := time.Now()
	t, err := scanCourseType(db.conn.QueryRowContext(ctx,
		`SELECT id, uuid, name, slug, entitlement_types FROM course_types WHERE name = ?`, name))
	observe("select", "course_types", start, err)
	return t, err
}

// GetCourseTypeByUUID returns the course type with id.
func (db *DB) GetCourseTypeByUUID(ctx context.Context, id uuid.UUID) (*models.CourseType, error) {
	return scanCourseType(db.conn.QueryRowContext(ctx,
		`SELECT id, uuid, name, slug, entitlement_types FROM course_types WHERE uuid = ?`, id.String()))
}

func (db *DB) getCourseTypeByID(ctx context.Context, q queryer, id int64) (*models.CourseType, error) {
	return scanCourseType(q.QueryRowContext(ctx,
		`SELECT id, uuid, name, slug, entitlement_types FROM course_types WHERE id = ?`, id))
}

// GetCourseRunTypeByName returns the course run type called name.
func (db *DB) GetCourseRunTypeByName(ctx context.Context, name string) (*models.CourseRunType, error) {
	start := time.Now()
	t, err := scanCourseRunType(db.conn.QueryRowContext(ctx,
		`SELECT id, uuid, name, slug, is_marketable, seat_types FROM course_run_types WHERE name = ?`, name))
	observe("select", "course_run_types", start, err)
	return t, err
}

// GetCourseRunTypeByUUID returns the course run type with id.
func (db *DB) GetCourseRunTypeByUUID(ctx context.Context, id uuid.UUID) (*models.CourseRunType, error) {
	return scanCourseRunType(db.conn.QueryRowContext(ctx,
		`SELECT id, uuid, name, slug, is_marketable, seat_types FROM course_run_types WHERE uuid = ?`, id.String()))
}

func (db *DB) getCourseRunTypeByID(ctx context.Context, q queryer, id int64) (*models.CourseRunType, error) {
	return scanCourseRunType(q.QueryRowContext(ctx,
		`SELECT id, uuid, name, slug, is_marketable, seat_types FROM course_run_types WHERE id = ?`, id))
}

// ListCourseTypes returns every course type ordered by id.
func (db *DB) ListCourseTypes(ctx context.Context) ([]models.CourseType, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, uuid, name, slug, entitlement_types FROM course_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list course types: %w", err)
	}
	defer closeQuietly(rows)
	types := make([]models.CourseType, 0)
	for rows.Next() {
		t, err := scanCourseType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *t)
	}
	return types, rows.Err()
}

// ListCourseRunTypes returns every course run type ordered by id.
func (db *DB) ListCourseRunTypes(ctx context.Context) ([]models.CourseRunType, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, uuid, name, slug, is_marketable, seat_types FROM course_run_types ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list course run types: %w", err)
	}
	defer closeQuietly(rows)
	types := make([]models.CourseRunType, 0)
	for rows.Next() {
		t, err := scanCourseRunType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *t)
	}
	return types, rows.Err()
}

// UpsertCourseType inserts or updates the course type keyed by name.
func (db *DB) UpsertCourseType(ctx context.Context, t *models.CourseType) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	entitlements, err := encodeJSON(nonNilStrings(t.EntitlementTypes))
	if err != nil {
		return err
	}
	start := time.Now()
	err = db.conn.QueryRowContext(ctx, `INSERT INTO course_types (uuid, name, slug, entitlement_types)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET slug = excluded.slug, entitlement_types = excluded.entitlement_types
		RETURNING id, uuid`,
		t.UUID.String(), t.Name, t.Slug, entitlements).Scan(&t.ID, &t.UUID)
	observe("upsert", "course_types", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert course type %s: %w", t.Name, err)
	}
	return nil
}

// UpsertCourseRunType inserts or updates the course run type keyed by name.
func (db *DB) UpsertCourseRunType(ctx context.Context, t *models.CourseRunType) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	seats, err := encodeJSON(nonNilStrings(t.SeatTypes))
	if err != nil {
		return err
	}
	start := time.Now()
	err = db.conn.QueryRowContext(ctx, `INSERT INTO course_run_types (uuid, name, slug, is_marketable, seat_types)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			slug = excluded.slug, is_marketable = excluded.is_marketable, seat_types = excluded.seat_types
		RETURNING id, uuid`,
		t.UUID.String(), t.Name, t.Slug, t.IsMarketable, seats).Scan(&t.ID, &t.UUID)
	observe("upsert", "course_run_types", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert course run type %s: %w", t.Name, err)
	}
	return nil
}

func scanProgramType(row interface{ Scan(...any) error }) (*models.ProgramType, error) {
	var t models.ProgramType
	if err := row.Scan(&t.ID, &t.UUID, &t.Name, &t.Slug); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// GetProgramTypeBySlug returns the program type with slug.
func (db *DB) GetProgramTypeBySlug(ctx context.Context, slug string) (*models.ProgramType, error) {
	start := time.Now()
	t, err := scanProgramType(db.conn.QueryRowContext(ctx,
		`SELECT id, uuid, name, slug FROM program_types WHERE slug = ?`, slug))
	observe("select", "program_types", start, err)
	return t, err
}

func (db *DB) getProgramTypeByID(ctx context.Context, q queryer, id int64) (*models.ProgramType, error) {
	return scanProgramType(q.QueryRowContext(ctx,
		`SELECT id, uuid, name, slug FROM program_types WHERE id = ?`, id))
}

// UpsertProgramType inserts or updates the program type keyed by slug.
func (db *DB) UpsertProgramType(ctx context.Context, t *models.ProgramType) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	start := time.Now()
	err := db.conn.QueryRowContext(ctx, `INSERT INTO program_types (uuid, name, slug)
		VALUES (?, ?, ?)
		ON CONFLICT (slug) DO UPDATE SET name = excluded.name
		RETURNING id, uuid`,
		t.UUID.String(), t.Name, t.Slug).Scan(&t.ID, &t.UUID)
	observe("upsert", "program_types", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert program type %s: %w", t.Slug, err)
	}
	return nil
}

// GetLanguageTagByName returns the language tag whose display name is name.
func (db *DB) GetLanguageTagByName(ctx context.Context, name string) (*models.LanguageTag, error) {
	var tag models.LanguageTag
	start := time.Now()
	err := db.conn.QueryRowContext(ctx,
		`SELECT code, name FROM language_tags WHERE name = ? ORDER BY code LIMIT 1`, name).Scan(&tag.Code, &tag.Name)
	err = notFound(err)
	observe("select", "language_tags", start, err)
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetLanguageTag returns the language tag with code.
func (db *DB) GetLanguageTag(ctx context.Context, code string) (*models.LanguageTag, error) {
	var tag models.LanguageTag
	err := db.conn.QueryRowContext(ctx,
		`SELECT code, name FROM language_tags WHERE code = ?`, code).Scan(&tag.Code, &tag.Name)
	if err != nil {
		return nil, notFound(err)
	}
	return &tag, nil
}

// UpsertLanguageTag inserts the tag or renames the existing one.
func (db *DB) UpsertLanguageTag(ctx context.Context, tag models.LanguageTag) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO language_tags (code, name) VALUES (?, ?)
		ON CONFLICT (code) DO UPDATE SET name = excluded.name`, tag.Code, tag.Name)
	observe("upsert", "language_tags", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert language tag %s: %w", tag.Code, err)
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
