// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package csvloader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/catalogus/internal/models"
)

// CSV column headers. Lookups ignore case and surrounding space.
const (
	ColOrganization          = "Organization"
	ColTitle                 = "Title"
	ColNumber                = "Number"
	ColCourseEnrollmentTrack = "Course Enrollment Track"
	ColImage                 = "Image"
	ColShortDescription      = "Short Description"
	ColLongDescription       = "Long Description"
	ColWhatWillYouLearn      = "What Will You Learn"
	ColCourseLevel           = "Course Level"
	ColPrimarySubject        = "Primary Subject"
	ColVerifiedPrice         = "Verified Price"
	ColCollaborators         = "Collaborators"
	ColSyllabus              = "Syllabus"
	ColPrerequisites         = "Prerequisites"
	ColLearnerTestimonials   = "Learner Testimonials"
	ColFAQ                   = "Frequently Asked Questions"
	ColAdditionalInformation = "Additional Information"
	ColAboutVideoLink        = "About Video Link"
	ColSecondarySubject      = "Secondary Subject"
	ColTertiarySubject       = "Tertiary Subject"
	ColOFACRestriction       = "Ofac Restriction"
	ColPublishDate           = "Publish Date"
	ColStartDate             = "Start Date"
	ColStartTime             = "Start Time"
	ColEndDate               = "End Date"
	ColEndTime               = "End Time"
	ColCourseRunTrack        = "Course Run Enrollment Track"
	ColCoursePacing          = "Course Pacing"
	ColStaff                 = "Staff"
	ColMinimumEffort         = "Minimum Effort"
	ColMaximumEffort         = "Maximum Effort"
	ColLength                = "Length"
	ColContentLanguage       = "Content Language"
	ColTranscriptLanguage    = "Transcript Language"
	ColExpectedProgramType   = "Expected Program Type"
	ColExpectedProgramName   = "Expected Program Name"
	ColUpgradeDeadlineDate   = "Upgrade Deadline Override Date"
	ColUpgradeDeadlineTime   = "Upgrade Deadline Override Time"
)

// Date and time layouts of the CSV export.
const (
	dateTimeLayout = "01/02/2006 15:04"
	dateLayout     = "01/02/2006"
)

// row is one CSV record addressed by header name.
type row struct {
	index  int64
	values map[string]string
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func newRow(index int64, headers, record []string) row {
	values := make(map[string]string, len(headers))
	for i, h := range headers {
		if i < len(record) {
			values[normalizeHeader(h)] = strings.TrimSpace(record[i])
		}
	}
	return row{index: index, values: values}
}

// get returns the value of column, or "" when absent.
func (r row) get(column string) string {
	return r.values[normalizeHeader(column)]
}

// list splits a comma separated column, dropping empty entries.
func (r row) list(column string) []string {
	return splitList(r.get(column))
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// dateTime joins a date column and an optional time column.
func (r row) dateTime(dateColumn, timeColumn string) (*time.Time, error) {
	date := r.get(dateColumn)
	clock := ""
	if timeColumn != "" {
		clock = r.get(timeColumn)
	}
	t, err := parseDateTime(date, clock)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", dateColumn, err)
	}
	return t, nil
}

// parseDateTime reads MM/DD/YYYY with an optional HH:MM, in UTC. An empty
// date yields nil.
func parseDateTime(date, clock string) (*time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return nil, nil
	}
	var (
		t   time.Time
		err error
	)
	if clock == "" {
		t, err = time.ParseInLocation(dateLayout, date, time.UTC)
	} else {
		t, err = time.ParseInLocation(dateTimeLayout, date+" "+clock, time.UTC)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", strings.TrimSpace(date+" "+clock), err)
	}
	t = t.UTC()
	return &t, nil
}

// FormatDateTime renders t as YYYY-MM-DDTHH:MM:SSZ.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// pacingType maps the CSV pacing label to a pacing value, or "" when the
// label is unknown.
func pacingType(label string) string {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "instructor-paced":
		return string(models.PacingInstructor)
	case "self-paced":
		return string(models.PacingSelf)
	default:
		return ""
	}
}

// optionalInt parses a non-negative integer column. Empty yields nil.
func (r row) optionalInt(column string) (*int, error) {
	raw := r.get(column)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%s: %q is not a valid number", column, raw)
	}
	return &n, nil
}

// str returns the column value for a PATCH field that is always sent.
func (r row) str(column string) *string {
	v := r.get(column)
	return &v
}
