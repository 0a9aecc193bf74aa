// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/database/query"
	"github.com/tomtom215/catalogus/internal/models"
)

const personColumns = `pe.id, pe.uuid, pe.partner_id, pe.given_name, pe.family_name, pe.bio, pe.slug,
	pe.marketing_id, pe.marketing_url, pe.phone_number, pe.website`

func scanPerson(row interface{ Scan(...any) error }) (*models.Person, error) {
	var p models.Person
	var marketingID sql.NullInt64
	var marketingURL, phone, website sql.NullString
	if err := row.Scan(&p.ID, &p.UUID, &p.PartnerID, &p.GivenName, &p.FamilyName, &p.Bio, &p.Slug,
		&marketingID, &marketingURL, &phone, &website); err != nil {
		return nil, notFound(err)
	}
	p.MarketingID = int64Ptr(marketingID)
	p.MarketingURL = marketingURL.String
	p.PhoneNumber = phone.String
	p.Website = website.String
	return &p, nil
}

// GetOrCreatePerson returns the partner's first person with givenName,
// creating one when none exists.
func (db *DB) GetOrCreatePerson(ctx context.Context, partnerID int64, givenName string) (*models.Person, bool, error) {
	start := time.Now()
	p, err := scanPerson(db.conn.QueryRowContext(ctx, `SELECT `+personColumns+`
		FROM people pe WHERE pe.partner_id = ? AND pe.given_name = ? ORDER BY pe.id LIMIT 1`,
		partnerID, givenName))
	observe("select", "people", start, err)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	created := &models.Person{
		UUID:      uuid.New(),
		PartnerID: partnerID,
		GivenName: givenName,
		Slug:      models.Slugify(givenName),
	}
	start = time.Now()
	err = db.conn.QueryRowContext(ctx, `INSERT INTO people (uuid, partner_id, given_name, slug)
		VALUES (?, ?, ?, ?) RETURNING id`,
		created.UUID.String(), partnerID, givenName, created.Slug).Scan(&created.ID)
	observe("insert", "people", start, err)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create person %s: %w", givenName, err)
	}
	return created, true, nil
}

// ListPeopleByUUIDs returns the partner's people with the given uuids, in order.
func (db *DB) ListPeopleByUUIDs(ctx context.Context, partnerID int64, ids []uuid.UUID) ([]models.Person, error) {
	if len(ids) == 0 {
		return []models.Person{}, nil
	}
	wb := query.NewWhereBuilder().AddClause("pe.partner_id = ?", partnerID).AddIn("pe.uuid", uuidStrings(ids))
	where, args := wb.BuildWithPrefix()
	rows, err := db.conn.QueryContext(ctx, `SELECT `+personColumns+` FROM people pe `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer closeQuietly(rows)

	byUUID := map[uuid.UUID]models.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		byUUID[p.UUID] = *p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	people := make([]models.Person, 0, len(byUUID))
	for _, id := range ids {
		if p, ok := byUUID[id]; ok {
			people = append(people, p)
		}
	}
	return people, nil
}

func (db *DB) staffFor(ctx context.Context, q queryer, runID int64) ([]models.Person, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+personColumns+` FROM people pe
		JOIN course_run_staff l ON l.person_id = pe.id
		WHERE l.course_run_id = ? ORDER BY l.sort_order, pe.id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course run staff: %w", err)
	}
	defer closeQuietly(rows)

	staff := make([]models.Person, 0)
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		staff = append(staff, *p)
	}
	return staff, rows.Err()
}

func scanCollaborator(row interface{ Scan(...any) error }) (*models.Collaborator, error) {
	var c models.Collaborator
	if err := row.Scan(&c.ID, &c.UUID, &c.Name, &c.ImageURL); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// GetOrCreateCollaborator returns the first collaborator called name,
// creating one when none exists.
func (db *DB) GetOrCreateCollaborator(ctx context.Context, name string) (*models.Collaborator, bool, error) {
	start := time.Now()
	c, err := scanCollaborator(db.conn.QueryRowContext(ctx,
		`SELECT id, uuid, name, image_url FROM collaborators WHERE name = ? ORDER BY id LIMIT 1`, name))
	observe("select", "collaborators", start, err)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	created := &models.Collaborator{UUID: uuid.New(), Name: name}
	start = time.Now()
	err = db.conn.QueryRowContext(ctx, `INSERT INTO collaborators (uuid, name) VALUES (?, ?) RETURNING id`,
		created.UUID.String(), name).Scan(&created.ID)
	observe("insert", "collaborators", start, err)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create collaborator %s: %w", name, err)
	}
	return created, true, nil
}

// ListCollaboratorsByUUIDs returns the collaborators with the given uuids, in order.
func (db *DB) ListCollaboratorsByUUIDs(ctx context.Context, ids []uuid.UUID) ([]models.Collaborator, error) {
	if len(ids) == 0 {
		return []models.Collaborator{}, nil
	}
	wb := query.NewWhereBuilder().AddIn("uuid", uuidStrings(ids))
	where, args := wb.BuildWithPrefix()
	rows, err := db.conn.QueryContext(ctx, `SELECT id, uuid, name, image_url FROM collaborators `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborators: %w", err)
	}
	defer closeQuietly(rows)

	byUUID := map[uuid.UUID]models.Collaborator{}
	for rows.Next() {
		c, err := scanCollaborator(rows)
		if err != nil {
			return nil, err
		}
		byUUID[c.UUID] = *c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]models.Collaborator, 0, len(byUUID))
	for _, id := range ids {
		if c, ok := byUUID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (db *DB) collaboratorsFor(ctx context.Context, q queryer, courseID int64) ([]models.Collaborator, error) {
	rows, err := q.QueryContext(ctx, `SELECT c.id, c.uuid, c.name, c.image_url FROM collaborators c
		JOIN course_collaborators l ON l.collaborator_id = c.id
		WHERE l.course_id = ? ORDER BY l.sort_order, c.id`, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course collaborators: %w", err)
	}
	defer closeQuietly(rows)

	out := make([]models.Collaborator, 0)
	for rows.Next() {
		c, err := scanCollaborator(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// UpsertPersonByMarketingID writes the partner's person with p.MarketingID,
// creating it when missing. p.ID and p.UUID are set on return.
func (db *DB) UpsertPersonByMarketingID(ctx context.Context, p *models.Person) (bool, error) {
	if p.MarketingID == nil {
		return false, fmt.Errorf("person %s has no marketing id", p.GivenName)
	}
	if p.Slug == "" {
		p.Slug = models.Slugify(strings.TrimSpace(p.GivenName + " " + p.FamilyName))
	}

	start := time.Now()
	existing, err := scanPerson(db.conn.QueryRowContext(ctx, `SELECT `+personColumns+`
		FROM people pe WHERE pe.partner_id = ? AND pe.marketing_id = ? ORDER BY pe.id LIMIT 1`,
		p.PartnerID, *p.MarketingID))
	observe("select", "people", start, err)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}

	start = time.Now()
	if existing != nil {
		p.ID, p.UUID = existing.ID, existing.UUID
		_, err = db.conn.ExecContext(ctx, `UPDATE people SET given_name = ?, family_name = ?, bio = ?, slug = ?,
			marketing_url = ?, phone_number = ?, website = ? WHERE id = ?`,
			p.GivenName, p.FamilyName, p.Bio, p.Slug, p.MarketingURL, p.PhoneNumber, p.Website, p.ID)
		observe("update", "people", start, err)
		if err != nil {
			return false, fmt.Errorf("failed to update person %d: %w", *p.MarketingID, err)
		}
		return false, nil
	}

	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	err = db.conn.QueryRowContext(ctx, `INSERT INTO people (uuid, partner_id, given_name, family_name, bio, slug,
		marketing_id, marketing_url, phone_number, website)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		p.UUID.String(), p.PartnerID, p.GivenName, p.FamilyName, p.Bio, p.Slug,
		*p.MarketingID, p.MarketingURL, p.PhoneNumber, p.Website).Scan(&p.ID)
	observe("insert", "people", start, err)
	if err != nil {
		return false, fmt.Errorf("failed to create person %d: %w", *p.MarketingID, err)
	}
	return true, nil
}
