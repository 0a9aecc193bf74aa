// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package models

import (
	"strings"

	"github.com/google/uuid"
)

// Seat types.
const (
	SeatAudit        = "audit"
	SeatVerified     = "verified"
	SeatProfessional = "professional"
	SeatCredit       = "credit"
	SeatMasters      = "masters"
)

// SeatTypes is every known seat type.
var SeatTypes = []string{SeatAudit, SeatVerified, SeatProfessional, SeatCredit, SeatMasters}

// IsSeatType reports whether s is a known seat type.
func IsSeatType(s string) bool {
	for _, t := range SeatTypes {
		if t == s {
			return true
		}
	}
	return false
}

// CourseType determines which seat types a course's entitlements offer.
type CourseType struct {
	ID               int64     `json:"-"`
	UUID             uuid.UUID `json:"uuid"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	EntitlementTypes []string  `json:"entitlement_types"`
}

// CourseRunType determines the seats of a course run.
type CourseRunType struct {
	ID           int64     `json:"-"`
	UUID         uuid.UUID `json:"uuid"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	IsMarketable bool      `json:"is_marketable"`
	SeatTypes    []string  `json:"seat_types"`
}

// Empty types are placeholders until Ecommerce reports the seats.
const (
	EmptyCourseType    = "Empty"
	EmptyCourseRunType = "Empty"
)

// IsEmpty reports the placeholder type.
func (t *CourseType) IsEmpty() bool {
	return t == nil || t.Name == EmptyCourseType
}

// IsEmpty reports the placeholder type.
func (t *CourseRunType) IsEmpty() bool {
	return t == nil || t.Name == EmptyCourseRunType
}

// ProgramType is a program category such as XSeries or MicroMasters.
type ProgramType struct {
	ID   int64     `json:"-"`
	UUID uuid.UUID `json:"uuid"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// ProgramTypeKind lists the values accepted for expected_program_type.
type ProgramTypeKind string

const (
	ProgramTypeXSeries                 ProgramTypeKind = "xseries"
	ProgramTypeMasters                 ProgramTypeKind = "masters"
	ProgramTypeMicroMasters            ProgramTypeKind = "micromasters"
	ProgramTypeMicroBachelors          ProgramTypeKind = "microbachelors"
	ProgramTypeProfessionalProgramWL   ProgramTypeKind = "professional program wl"
	ProgramTypeProfessionalCertificate ProgramTypeKind = "professional certificate"
)

// ProgramTypeKinds is every ProgramTypeKind in display order.
var ProgramTypeKinds = []ProgramTypeKind{
	ProgramTypeXSeries,
	ProgramTypeMasters,
	ProgramTypeMicroMasters,
	ProgramTypeMicroBachelors,
	ProgramTypeProfessionalProgramWL,
	ProgramTypeProfessionalCertificate,
}

// ParseProgramTypeKind matches s case-insensitively against the known kinds.
func ParseProgramTypeKind(s string) (ProgramTypeKind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range ProgramTypeKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Slug returns the program-type slug for k ("professional program wl"
// becomes "professional-program-wl").
func (k ProgramTypeKind) Slug() string {
	return strings.ReplaceAll(string(k), " ", "-")
}

// PacingType is the course run pacing.
type PacingType string

const (
	PacingInstructor PacingType = "instructor_paced"
	PacingSelf       PacingType = "self_paced"
)

// ProgramStatus is the program lifecycle state.
type ProgramStatus string

const (
	ProgramUnpublished ProgramStatus = "unpublished"
	ProgramActive      ProgramStatus = "active"
	ProgramRetired     ProgramStatus = "retired"
	ProgramDeleted     ProgramStatus = "deleted"
)

// CourseRunStatus is the course run publication state.
type CourseRunStatus string

const (
	CourseRunPublished   CourseRunStatus = "published"
	CourseRunUnpublished CourseRunStatus = "unpublished"
	CourseRunReviewed    CourseRunStatus = "reviewed"
)

// CoursePlan is the partner's subscription plan.
type CoursePlan string

const (
	PlanTrial        CoursePlan = "trial"
	PlanEssentials   CoursePlan = "essentials"
	PlanElite        CoursePlan = "elite"
	PlanTrialExpired CoursePlan = "trial expired"
	PlanDeactivated  CoursePlan = "deactivated"
	PlanLegacy       CoursePlan = "legacy"
)
