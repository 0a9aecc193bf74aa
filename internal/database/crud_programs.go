// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/database/query"
	"github.com/tomtom215/catalogus/internal/models"
)

const programColumns = `p.id, p.uuid, p.partner_id, p.title, p.subtitle, p.type_id, p.status, p.marketing_slug,
	p.hidden, p.one_click_purchase_enabled, p.min_hours_effort_per_week, p.max_hours_effort_per_week,
	p.card_image_url, p.banner_image_url, p.overview, p.created, p.modified`

// ProgramFilter narrows ListPrograms and ListProgramUUIDs. Zero values do not
// filter.
type ProgramFilter struct {
	// Q matches title, subtitle and overview.
	Q string
	// Org is an authoring organization key.
	Org string
	// Type and Types are program type slugs.
	Type          string
	Types         []string
	UUIDs         []uuid.UUID
	Status        []string
	Hidden        *bool
	Marketable    bool
	MarketingSlug string
	Limit         int
	Offset        int
}

func (f ProgramFilter) where(partnerID int64) (string, []interface{}) {
	wb := query.NewWhereBuilder().AddClause("p.partner_id = ?", partnerID)
	wb.AddILikeAny([]string{"p.title", "p.subtitle", "p.overview"}, f.Q)
	if f.Org != "" {
		wb.AddClause(`EXISTS (SELECT 1 FROM program_authoring_organizations l
			JOIN organizations o ON o.id = l.organization_id
			WHERE l.program_id = p.id AND o.key = ?)`, f.Org)
	}
	types := f.Types
	if f.Type != "" {
		types = append([]string{f.Type}, types...)
	}
	if len(types) > 0 {
		wb.AddClause(fmt.Sprintf(`p.type_id IN (SELECT id FROM program_types WHERE slug IN (%s))`,
			query.Placeholders(len(types))), stringArgs(types)...)
	}
	wb.AddIn("p.uuid", uuidStrings(f.UUIDs))
	wb.AddIn("p.status", f.Status)
	if f.Hidden != nil {
		wb.AddClause("p.hidden = ?", *f.Hidden)
	}
	if f.Marketable {
		wb.AddClause("(p.marketing_slug <> '' AND p.status = ? AND NOT p.hidden)", string(models.ProgramActive))
	}
	if f.MarketingSlug != "" {
		wb.AddClause("p.marketing_slug = ?", f.MarketingSlug)
	}
	return wb.BuildWithPrefix()
}

func scanProgram(row interface{ Scan(...any) error }) (*models.Program, error) {
	var p models.Program
	var typeID sql.NullInt64
	var minHours, maxHours sql.NullInt32
	var status string
	if err := row.Scan(&p.ID, &p.UUID, &p.PartnerID, &p.Title, &p.Subtitle, &typeID, &status, &p.MarketingSlug,
		&p.Hidden, &p.OneClickPurchaseEnabled, &minHours, &maxHours,
		&p.CardImageURL, &p.BannerImageURL, &p.Overview, &p.Created, &p.Modified); err != nil {
		return nil, notFound(err)
	}
	p.TypeID = int64Ptr(typeID)
	p.Status = models.ProgramStatus(status)
	p.MinHoursEffortPerWeek, p.MaxHoursEffortPerWeek = intPtr(minHours), intPtr(maxHours)
	return &p, nil
}

func (db *DB) loadProgramRelations(ctx context.Context, p *models.Program) error {
	var err error
	if p.TypeID != nil {
		if p.Type, err = db.getProgramTypeByID(ctx, db.conn, *p.TypeID); err != nil {
			return fmt.Errorf("failed to load program type: %w", err)
		}
	}
	if p.AuthoringOrganizations, err = db.organizationsFor(ctx, db.conn, "program_authoring_organizations", "program_id", p.ID); err != nil {
		return err
	}
	if p.CreditBackingOrganizations, err = db.organizationsFor(ctx, db.conn, "program_credit_backing_organizations", "program_id", p.ID); err != nil {
		return err
	}

	courseIDs, err := db.int64Column(ctx, `SELECT course_id FROM program_courses WHERE program_id = ? ORDER BY sort_order`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to load program courses: %w", err)
	}
	p.Courses = make([]models.Course, 0, len(courseIDs))
	for _, id := range courseIDs {
		c, err := db.getCourseByID(ctx, db.conn, id, true)
		if err != nil {
			return fmt.Errorf("failed to load program course %d: %w", id, err)
		}
		p.Courses = append(p.Courses, *c)
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT `+courseRunColumns+courseRunFrom+`
		JOIN program_excluded_course_runs x ON x.course_run_id = r.id
		WHERE x.program_id = ? ORDER BY r.id`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to load excluded course runs: %w", err)
	}
	p.ExcludedCourseRuns, err = db.collectRuns(ctx, db.conn, rows)
	return err
}

// ListPrograms returns one page of the partner's programs ordered by id, and
// the total count.
func (db *DB) ListPrograms(ctx context.Context, partnerID int64, f ProgramFilter) ([]models.Program, int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := f.where(partnerID)

	var total int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM programs p `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count programs: %w", err)
	}

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT `+programColumns+` FROM programs p `+where+
		` ORDER BY p.id LIMIT ? OFFSET ?`, append(args, limitOrAll(f.Limit), f.Offset)...)
	observe("select", "programs", start, err)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list programs: %w", err)
	}

	programs := make([]models.Program, 0)
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			closeQuietly(rows)
			return nil, 0, fmt.Errorf("failed to scan program: %w", err)
		}
		programs = append(programs, *p)
	}
	err = rows.Err()
	closeWithLog(rows, nil, "program rows")
	if err != nil {
		return nil, 0, err
	}

	for i := range programs {
		if err := db.loadProgramRelations(ctx, &programs[i]); err != nil {
			return nil, 0, err
		}
	}
	return programs, total, nil
}

// ListProgramUUIDs returns the uuids of every matching program ordered by id.
// Limit and Offset are ignored.
func (db *DB) ListProgramUUIDs(ctx context.Context, partnerID int64, f ProgramFilter) ([]uuid.UUID, error) {
	where, args := f.where(partnerID)
	rows, err := db.conn.QueryContext(ctx, `SELECT p.uuid FROM programs p `+where+` ORDER BY p.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list program uuids: %w", err)
	}
	defer closeQuietly(rows)

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan program uuid: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetProgram returns the partner's program with id and all related sets.
func (db *DB) GetProgram(ctx context.Context, partnerID int64, id uuid.UUID) (*models.Program, error) {
	start := time.Now()
	p, err := scanProgram(db.conn.QueryRowContext(ctx, `SELECT `+programColumns+`
		FROM programs p WHERE p.partner_id = ? AND p.uuid = ?`, partnerID, id.String()))
	observe("select", "programs", start, err)
	if err != nil {
		return nil, err
	}
	if err := db.loadProgramRelations(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateProgram inserts the program and its related sets.
func (db *DB) CreateProgram(ctx context.Context, p *models.Program) error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	if p.Status == "" {
		p.Status = models.ProgramUnpublished
	}
	now := db.now()
	p.Created, p.Modified = now, now

	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `INSERT INTO programs (
			uuid, partner_id, title, subtitle, type_id, status, marketing_slug, hidden,
			one_click_purchase_enabled, min_hours_effort_per_week, max_hours_effort_per_week,
			card_image_url, banner_image_url, overview, created, modified
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			p.UUID.String(), p.PartnerID, p.Title, p.Subtitle, nullInt64(p.TypeID), string(p.Status), p.MarketingSlug, p.Hidden,
			p.OneClickPurchaseEnabled, nullInt(p.MinHoursEffortPerWeek), nullInt(p.MaxHoursEffortPerWeek),
			p.CardImageURL, p.BannerImageURL, p.Overview, p.Created, p.Modified,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("failed to create program: %w", err)
		}
		return writeProgramLinks(ctx, tx, p)
	})
	observe("insert", "programs", start, err)
	return err
}

// UpdateProgram writes every mutable field and replaces the related sets.
func (db *DB) UpdateProgram(ctx context.Context, p *models.Program) error {
	p.Modified = db.now()

	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE programs SET
			title = ?, subtitle = ?, type_id = ?, status = ?, marketing_slug = ?, hidden = ?,
			one_click_purchase_enabled = ?, min_hours_effort_per_week = ?, max_hours_effort_per_week = ?,
			card_image_url = ?, banner_image_url = ?, overview = ?, modified = ?
			WHERE id = ?`,
			p.Title, p.Subtitle, nullInt64(p.TypeID), string(p.Status), p.MarketingSlug, p.Hidden,
			p.OneClickPurchaseEnabled, nullInt(p.MinHoursEffortPerWeek), nullInt(p.MaxHoursEffortPerWeek),
			p.CardImageURL, p.BannerImageURL, p.Overview, p.Modified,
			p.ID)
		if err != nil {
			return fmt.Errorf("failed to update program: %w", err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		for _, table := range []string{"program_courses", "program_excluded_course_runs",
			"program_authoring_organizations", "program_credit_backing_organizations"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE program_id = ?`, p.ID); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return writeProgramLinks(ctx, tx, p)
	})
	observe("update", "programs", start, err)
	return err
}

// SetProgramCardImage stores the card image URL of the program.
func (db *DB) SetProgramCardImage(ctx context.Context, programID int64, url string) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `UPDATE programs SET card_image_url = ?, modified = ? WHERE id = ?`,
		url, db.now(), programID)
	observe("update", "programs", start, err)
	if err != nil {
		return fmt.Errorf("failed to set program card image: %w", err)
	}
	return requireAffected(res)
}

func writeProgramLinks(ctx context.Context, tx *sql.Tx, p *models.Program) error {
	for i, c := range p.Courses {
		if _, err := tx.ExecContext(ctx, `INSERT INTO program_courses (program_id, course_id, sort_order)
			VALUES (?, ?, ?)`, p.ID, c.ID, i); err != nil {
			return fmt.Errorf("failed to link program course: %w", err)
		}
	}
	for _, r := range p.ExcludedCourseRuns {
		if _, err := tx.ExecContext(ctx, `INSERT INTO program_excluded_course_runs (program_id, course_run_id)
			VALUES (?, ?)`, p.ID, r.ID); err != nil {
			return fmt.Errorf("failed to link excluded course run: %w", err)
		}
	}
	for i, o := range p.AuthoringOrganizations {
		if _, err := tx.ExecContext(ctx, `INSERT INTO program_authoring_organizations (program_id, organization_id, sort_order)
			VALUES (?, ?, ?)`, p.ID, o.ID, i); err != nil {
			return fmt.Errorf("failed to link authoring organization: %w", err)
		}
	}
	for i, o := range p.CreditBackingOrganizations {
		if _, err := tx.ExecContext(ctx, `INSERT INTO program_credit_backing_organizations (program_id, organization_id, sort_order)
			VALUES (?, ?, ?)`, p.ID, o.ID, i); err != nil {
			return fmt.Errorf("failed to link credit backing organization: %w", err)
		}
	}
	return nil
}

func (db *DB) int64Column(ctx context.Context, q string, args ...any) ([]int64, error) {
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer closeQuietly(rows)

	out := make([]int64, 0)
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func stringArgs(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
