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
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/models"
)

const partnerColumns = `p.id, p.uuid, p.name, p.short_code, p.lms_url, p.studio_url,
	p.courses_api_url, p.ecommerce_api_url, p.organizations_api_url,
	p.marketing_site_url_root, p.marketing_site_api_url, p.site_id`

func scanPartner(row interface{ Scan(...any) error }) (*models.Partner, error) {
	var p models.Partner
	var siteID sql.NullInt64
	err := row.Scan(&p.ID, &p.UUID, &p.Name, &p.ShortCode, &p.LMSURL, &p.StudioURL,
		&p.CoursesAPIURL, &p.EcommerceAPIURL, &p.OrganizationsAPIURL,
		&p.MarketingSiteURLRoot, &p.MarketingSiteAPIURL, &siteID)
	if err != nil {
		return nil, notFound(err)
	}
	if siteID.Valid {
		p.SiteID = &siteID.Int64
	}
	return &p, nil
}

// GetPartnerByShortCode returns the partner with the given short code.
func (db *DB) GetPartnerByShortCode(ctx context.Context, shortCode string) (*models.Partner, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT `+partnerColumns+` FROM partners p WHERE p.short_code = ?`, shortCode)
	p, err := scanPartner(row)
	observe("select", "partners", start, err)
	return p, err
}

// GetPartnerBySiteDomain returns the partner attached to the site serving domain.
func (db *DB) GetPartnerBySiteDomain(ctx context.Context, domain string) (*models.Partner, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT `+partnerColumns+`
		FROM partners p JOIN sites s ON s.id = p.site_id
		WHERE s.domain = ?`, domain)
	p, err := scanPartner(row)
	observe("select", "partners", start, err)
	return p, err
}

// GetPartnerBySiteID returns the partner attached to the site.
func (db *DB) GetPartnerBySiteID(ctx context.Context, siteID int64) (*models.Partner, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx, `SELECT `+partnerColumns+` FROM partners p WHERE p.site_id = ?`, siteID)
	p, err := scanPartner(row)
	observe("select", "partners", start, err)
	return p, err
}

// GetSite returns the site with id.
func (db *DB) GetSite(ctx context.Context, id int64) (*models.Site, error) {
	var s models.Site
	err := db.conn.QueryRowContext(ctx, `SELECT id, domain, name FROM sites WHERE id = ?`, id).
		Scan(&s.ID, &s.Domain, &s.Name)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// GetSiteByDomain returns the site for domain.
func (db *DB) GetSiteByDomain(ctx context.Context, domain string) (*models.Site, error) {
	var s models.Site
	err := db.conn.QueryRowContext(ctx, `SELECT id, domain, name FROM sites WHERE domain = ?`, domain).
		Scan(&s.ID, &s.Domain, &s.Name)
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// UpsertSite updates the site currently at oldDomain, or creates one when none
// exists. The site ends up with site.Domain and site.Name.
func (db *DB) UpsertSite(ctx context.Context, oldDomain string, site *models.Site) error {
	start := time.Now()
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM sites WHERE domain = ?`, oldDomain).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			err = tx.QueryRowContext(ctx, `INSERT INTO sites (domain, name) VALUES (?, ?) RETURNING id`,
				site.Domain, site.Name).Scan(&id)
			if isUniqueConstraintError(err) {
				return ErrConflict
			}
			if err != nil {
				return fmt.Errorf("failed to create site: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up site: %w", err)
		default:
			if _, err := tx.ExecContext(ctx, `UPDATE sites SET domain = ?, name = ? WHERE id = ?`,
				site.Domain, site.Name, id); err != nil {
				if isUniqueConstraintError(err) {
					return ErrConflict
				}
				return fmt.Errorf("failed to update site: %w", err)
			}
		}
		site.ID = id
		return nil
	})
	observe("upsert", "sites", start, err)
	return err
}

// GetOrCreatePartner returns the partner with shortCode, creating it with
// defaults when missing.
func (db *DB) GetOrCreatePartner(ctx context.Context, shortCode string, defaults *models.Partner) (*models.Partner, bool, error) {
	p, err := db.GetPartnerByShortCode(ctx, shortCode)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	created := models.Partner{ShortCode: shortCode}
	if defaults != nil {
		created = *defaults
		created.ShortCode = shortCode
	}
	if created.UUID == uuid.Nil {
		created.UUID = uuid.New()
	}
	if created.Name == "" {
		created.Name = shortCode
	}

	start := time.Now()
	err = db.conn.QueryRowContext(ctx, `INSERT INTO partners (
		uuid, name, short_code, lms_url, studio_url, courses_api_url, ecommerce_api_url,
		organizations_api_url, marketing_site_url_root, marketing_site_api_url, site_id
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		created.UUID.String(), created.Name, created.ShortCode, created.LMSURL, created.StudioURL,
		created.CoursesAPIURL, created.EcommerceAPIURL, created.OrganizationsAPIURL,
		created.MarketingSiteURLRoot, created.MarketingSiteAPIURL, nullInt64(created.SiteID),
	).Scan(&created.ID)
	observe("insert", "partners", start, err)
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, false, ErrConflict
		}
		return nil, false, fmt.Errorf("failed to create partner: %w", err)
	}
	return &created, true, nil
}

// UpdatePartner writes every mutable partner field, short code and site
// included. A short code or site already held by another partner is
// ErrConflict.
func (db *DB) UpdatePartner(ctx context.Context, p *models.Partner) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `UPDATE partners SET
		name = ?, short_code = ?, lms_url = ?, studio_url = ?, courses_api_url = ?, ecommerce_api_url = ?,
		organizations_api_url = ?, marketing_site_url_root = ?, marketing_site_api_url = ?, site_id = ?
		WHERE id = ?`,
		p.Name, p.ShortCode, p.LMSURL, p.StudioURL, p.CoursesAPIURL, p.EcommerceAPIURL,
		p.OrganizationsAPIURL, p.MarketingSiteURLRoot, p.MarketingSiteAPIURL, nullInt64(p.SiteID),
		p.ID)
	observe("update", "partners", start, err)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to update partner: %w", err)
	}
	return requireAffected(res)
}

// ListPartners returns every partner ordered by id.
func (db *DB) ListPartners(ctx context.Context) ([]models.Partner, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+partnerColumns+` FROM partners p ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
	}
	defer closeQuietly(rows)

	partners := make([]models.Partner, 0)
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partner: %w", err)
		}
		partners = append(partners, *p)
	}
	return partners, rows.Err()
}
