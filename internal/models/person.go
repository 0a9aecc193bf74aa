// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package models

import (
	"github.com/google/uuid"
)

// Person is a course run staff member.
type Person struct {
	ID           int64     `json:"-"`
	UUID         uuid.UUID `json:"uuid"`
	PartnerID    int64     `json:"-"`
	GivenName    string    `json:"given_name"`
	FamilyName   string    `json:"family_name"`
	Bio          string    `json:"bio"`
	Slug         string    `json:"slug"`
	MarketingID  *int64    `json:"marketing_id"`
	MarketingURL string    `json:"marketing_url"`
	PhoneNumber  string    `json:"phone_number"`
	Website      string    `json:"website"`
}

// FullName joins the given and family names.
func (p *Person) FullName() string {
	if p.FamilyName == "" {
		return p.GivenName
	}
	return p.GivenName + " " + p.FamilyName
}

// Collaborator is a partner institution credited on a course.
type Collaborator struct {
	ID       int64     `json:"-"`
	UUID     uuid.UUID `json:"uuid"`
	Name     string    `json:"name"`
	ImageURL string    `json:"image_url"`
}
