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

	"github.com/tomtom215/catalogus/internal/database/query"
	"github.com/tomtom215/catalogus/internal/models"
)

const organizationColumns = `o.id, o.uuid, o.partner_id, o.key, o.name, o.description, o.logo_image_url`

func scanOrganization(row interface{ Scan(...any) error }) (*models.Organization, error) {
	var o models.Organization
	if err := row.Scan(&o.ID, &o.UUID, &o.PartnerID, &o.Key, &o.Name, &o.Description, &o.LogoImageURL); err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

// GetOrganizationByKey returns the partner's organization with key.
func (db *DB) GetOrganizationByKey(ctx context.Context, partnerID int64, key string) (*models.Organization, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT `+organizationColumns+`
		FROM organizations o WHERE o.partner_id = ? AND o.key = ?`, partnerID, key)
	o, err := scanOrganization(row)
	observe("select", "organizations", start, err)
	return o, err
}

// ListOrganizationsByKeys returns the partner's organizations whose keys are in
// keys, in the order the keys were given. Unknown keys are omitted.
func (db *DB) ListOrganizationsByKeys(ctx context.Context, partnerID int64, keys []string) ([]models.Organization, error) {
	if len(keys) == 0 {
		return []models.Organization{}, nil
	}
	wb := query.NewWhereBuilder().AddClause("o.partner_id = ?", partnerID).AddIn("o.key", keys)
	where, args := wb.BuildWithPrefix()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+organizationColumns+` FROM organizations o `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer closeQuietly(rows)

	byKey := make(map[string]models.Organization, len(keys))
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		byKey[o.Key] = *o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orgs := make([]models.Organization, 0, len(byKey))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if o, ok := byKey[k]; ok && !seen[k] {
			orgs = append(orgs, o)
			seen[k] = true
		}
	}
	return orgs, nil
}

// UpsertOrganization inserts the organization or updates the one with the same
// partner and key.
func (db *DB) UpsertOrganization(ctx context.Context, o *models.Organization) error {
	if o.UUID == uuid.Nil {
		o.UUID = uuid.New()
	}
	start := time.Now()
	err := db.conn.QueryRowContext(ctx, `INSERT INTO organizations
		(uuid, partner_id, key, name, description, logo_image_url)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (partner_id, key) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			logo_image_url = excluded.logo_image_url
		RETURNING id, uuid`,
		o.UUID.String(), o.PartnerID, o.Key, o.Name, o.Description, o.LogoImageURL,
	).Scan(&o.ID, &o.UUID)
	observe("upsert", "organizations", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert organization %s: %w", o.Key, err)
	}
	return nil
}

func (db *DB) organizationsFor(ctx context.Context, q queryer, linkTable, ownerColumn string, ownerID int64) ([]models.Organization, error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM organizations o
		JOIN %s l ON l.organization_id = o.id
		WHERE l.%s = ? ORDER BY l.sort_order, o.id`, organizationColumns, linkTable, ownerColumn), ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", linkTable, err)
	}
	defer closeQuietly(rows)

	orgs := make([]models.Organization, 0)
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, *o)
	}
	return orgs, rows.Err()
}
