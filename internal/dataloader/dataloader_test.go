// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package dataloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/catalog"
	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/database"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
	"github.com/tomtom215/catalogus/internal/upstream"
)

var testDBSemaphore = make(chan struct{}, 1)

type testEnv struct {
	db      *database.DB
	svc     *catalog.Service
	partner *models.Partner
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "512MB", SkipIndexes: true})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	svc := catalog.NewService(db, &config.CatalogConfig{
		DefaultPartner: catalog.DefaultPartnerCode,
		MediaRoot:      t.TempDir(),
		CacheTTL:       time.Minute,
	})
	t.Cleanup(svc.Close)

	partner, err := svc.SetupDefaultService(context.Background(), catalog.SetupOptions{})
	if err != nil {
		t.Fatalf("SetupDefaultService() error = %v", err)
	}
	return &testEnv{db: db, svc: svc, partner: partner}
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := logging.Logger()
	logging.SetLogger(logging.NewTestLogger(&buf))
	t.Cleanup(func() { logging.SetLogger(previous) })
	return &buf
}

func ptrTime(s string) *time.Time {
	tm, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &tm
}

// mockCourses serves LMS pages keyed by page number.
type mockCourses struct {
	mu        sync.Mutex
	pages     map[int]*upstream.LMSCoursePage
	requested []int
	single    []string
	err       error
}

func (m *mockCourses) ListCourses(_ context.Context, page, _ int, _ string) (*upstream.LMSCoursePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requested = append(m.requested, page)
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.pages[page]
	if !ok {
		return nil, fmt.Errorf("no page %d", page)
	}
	return p, nil
}

func (m *mockCourses) GetCourse(_ context.Context, courseID, _ string) (*upstream.LMSCoursePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.single = append(m.single, courseID)
	for _, p := range m.pages {
		for _, r := range p.Results {
			if r.ID == courseID {
				return &upstream.LMSCoursePage{Pagination: upstream.Pagination{Count: 1, NumPages: 1}, Results: []upstream.LMSCourse{r}}, nil
			}
		}
	}
	return nil, &upstream.StatusError{Method: "GET", URL: courseID, StatusCode: 404}
}

func lmsCourse(id, name string) upstream.LMSCourse {
	c := upstream.LMSCourse{
		ID:               id,
		Name:             name,
		ShortDescription: "Learn things",
		Start:            ptrTime("2030-01-01T00:00:00Z"),
		End:              ptrTime("2030-06-01T00:00:00Z"),
		EnrollmentStart:  ptrTime("2029-12-01T00:00:00Z"),
		Pacing:           "instructor",
	}
	c.Media.Image.Raw = "http://lms.example.com/image.png"
	c.Media.CourseVideo.URI = "http://video.example.com/intro"
	return c
}

func singlePage(results ...upstream.LMSCourse) map[int]*upstream.LMSCoursePage {
	return map[int]*upstream.LMSCoursePage{
		1: {Pagination: upstream.Pagination{Count: len(results), NumPages: 1}, Results: results},
	}
}

func TestCoursesAPILoader_CreatesCourseAndRun(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	source := &mockCourses{pages: map[int]*upstream.LMSCoursePage{
		1: {Pagination: upstream.Pagination{Count: 2, NumPages: 2}, Results: []upstream.LMSCourse{lmsCourse("course-v1:neworg+DL101+2030", "Data Loading")}},
		2: {Pagination: upstream.Pagination{Count: 2, NumPages: 2}, Results: []upstream.LMSCourse{lmsCourse("course-v1:neworg+DL101+2031", "Data Loading")}},
	}}

	loader := NewCoursesAPILoader(env.partner, source, env.db, Options{})
	if err := loader.Ingest(ctx); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(source.requested) != 2 || source.requested[0] != 1 || source.requested[1] != 2 {
		t.Errorf("requested pages = %v, want [1 2]", source.requested)
	}

	org, err := env.db.GetOrganizationByKey(ctx, env.partner.ID, "neworg")
	if err != nil {
		t.Fatalf("organization not created: %v", err)
	}
	course, err := env.db.GetCourseByKey(ctx, env.partner.ID, "neworg+DL101")
	if err != nil {
		t.Fatalf("course not created: %v", err)
	}
	if course.Title != "Data Loading" || course.CardImageURL != "http://lms.example.com/image.png" {
		t.Errorf("course = %+v", course)
	}
	if len(course.AuthoringOrganizations) != 1 || course.AuthoringOrganizations[0].UUID != org.UUID {
		t.Errorf("course owners = %+v", course.AuthoringOrganizations)
	}

	run, err := env.db.GetCourseRunByKey(ctx, env.partner.ID, "course-v1:neworg+DL101+2030")
	if err != nil {
		t.Fatalf("course run not created: %v", err)
	}
	if run.Type == nil || run.Type.Name != models.EmptyCourseRunType {
		t.Errorf("run type = %+v, want %s", run.Type, models.EmptyCourseRunType)
	}
	if run.PacingType != models.PacingInstructor {
		t.Errorf("PacingType = %q", run.PacingType)
	}
	if run.Start == nil || !run.Start.Equal(*ptrTime("2030-01-01T00:00:00Z")) {
		t.Errorf("Start = %v", run.Start)
	}
	if run.VideoURL != "http://video.example.com/intro" || run.TitleOverride != "Data Loading" {
		t.Errorf("run = %+v", run)
	}
	if run.Status != models.CourseRunUnpublished {
		t.Errorf("Status = %q", run.Status)
	}
	if n, _ := env.db.CountCourseRuns(ctx, course.ID); n != 2 {
		t.Errorf("CountCourseRuns() = %d, want 2", n)
	}
}

func TestCoursesAPILoader_NewRunCopiesLatestRunType(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	first := lmsCourse("course-v1:edx+COPY1+2030", "Copy Type")
	loader := NewCoursesAPILoader(env.partner, &mockCourses{pages: singlePage(first)}, env.db, Options{})
	if err := loader.Ingest(ctx); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	run, err := env.db.GetCourseRunByKey(ctx, env.partner.ID, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	verified, err := env.db.GetCourseRunTypeByName(ctx, "Verified and Audit")
	if err != nil {
		t.Fatal(err)
	}
	run.TypeID, run.Type = &verified.ID, verified
	if err := env.db.UpdateCourseRun(ctx, run); err != nil {
		t.Fatal(err)
	}

	second := lmsCourse("course-v1:edx+COPY1+2031", "Copy Type")
	second.Start = ptrTime("2031-01-01T00:00:00Z")
	loader = NewCoursesAPILoader(env.partner, &mockCourses{pages: singlePage(second)}, env.db, Options{})
	if err := loader.Ingest(ctx); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	created, err := env.db.GetCourseRunByKey(ctx, env.partner.ID, second.ID)
	if err != nil {
		t.Fatalf("second run not created: %v", err)
	}
	if created.Type == nil || created.Type.Name != "Verified and Audit" {
		t.Errorf("run type = %+v, want Verified and Audit", created.Type)
	}
}

func TestCoursesAPILoader_UpdatesExistingRun(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	body := lmsCourse("course-v1:edx+UPD1+2030", "Original")
	if err := NewCoursesAPILoader(env.partner, &mockCourses{pages: singlePage(body)}, env.db, Options{}).Ingest(ctx); err != nil {
		t.Fatal(err)
	}

	body.Name = "Renamed"
	body.Pacing = "self"
	body.End = ptrTime("2030-09-01T00:00:00Z")
	body.Media.Image.Raw = "http://lms.example.com/new.png"
	source := &mockCourses{pages: singlePage(body)}
	loader := NewCoursesAPILoader(env.partner, source, env.db, Options{CourseID: body.ID})
	if err := loader.Ingest(ctx); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(source.single) != 1 || len(source.requested) != 0 {
		t.Errorf("single=%v list=%v, want only the single-course request", source.single, source.requested)
	}

	run, err := env.db.GetCourseRunByKey(ctx, env.partner.ID, body.ID)
	if err != nil {
		t.Fatal(err)
	}
	if run.TitleOverride != "Renamed" || run.PacingType != models.PacingSelf {
		t.Errorf("run = %+v", run)
	}
	if run.End == nil || !run.End.Equal(*body.End) {
		t.Errorf("End = %v, want %v", run.End, body.End)
	}
	course, err := env.db.GetCourseByKey(ctx, env.partner.ID, "edx+UPD1")
	if err != nil {
		t.Fatal(err)
	}
	if course.Title != "Renamed" || course.CardImageURL != "http://lms.example.com/new.png" {
		t.Errorf("course = %+v", course)
	}
}

func TestCoursesAPILoader_LogsPerResultErrors(t *testing.T) {
	env := setupEnv(t)
	logs := captureLogs(t)
	env.partner.CoursesAPIURL = "http://lms.example.com/api/courses/v1/"

	source := &mockCourses{pages: singlePage(
		lmsCourse("not a key", "Broken"),
		lmsCourse("course-v1:edx+OK1+2030", "Fine"),
	)}
	if err := NewCoursesAPILoader(env.partner, source, env.db, Options{}).Ingest(context.Background()); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	want := "An error occurred while updating not a key from http://lms.example.com/api/courses/v1/"
	if !strings.Contains(logs.String(), want) {
		t.Errorf("logs missing %q:\n%s", want, logs.String())
	}
	if _, err := env.db.GetCourseRunByKey(context.Background(), env.partner.ID, "course-v1:edx+OK1+2030"); err != nil {
		t.Errorf("valid result after a failing one was not loaded: %v", err)
	}
}

func TestCoursesAPILoader_PageFailure(t *testing.T) {
	env := setupEnv(t)
	source := &mockCourses{err: &upstream.StatusError{Method: "GET", URL: "x", StatusCode: 403}}
	err := NewCoursesAPILoader(env.partner, source, env.db, Options{}).Ingest(context.Background())
	var status *upstream.StatusError
	if !errors.As(err, &status) || !status.Fatal() {
		t.Errorf("Ingest() error = %v, want the fatal status error", err)
	}
}

func TestSeatPrices(t *testing.T) {
	body := &upstream.EcommerceCourse{Products: []upstream.EcommerceProduct{
		{Structure: "parent"},
		{
			Structure:       "child",
			AttributeValues: []upstream.EcommerceAttribute{{Name: "certificate_type", Value: "verified"}},
			StockRecords:    []upstream.EcommerceStockRecord{{PriceExclTax: "150.00", PriceCurrency: "USD"}},
		},
		{Structure: "child"},
		{
			Structure:       "child",
			AttributeValues: []upstream.EcommerceAttribute{{Name: "certificate_type", Value: "professional"}},
			StockRecords:    []upstream.EcommerceStockRecord{{PriceExclTax: "300.00"}},
		},
	}}
	got := SeatPrices(body)
	want := map[string]string{"verified": "150.00", "audit": "0.00", "professional": "300.00"}
	if len(got) != len(want) {
		t.Fatalf("SeatPrices() = %v, want %v", got, want)
	}
	for seat, price := range want {
		if got[seat] != price {
			t.Errorf("SeatPrices()[%s] = %q, want %q", seat, got[seat], price)
		}
	}
}

type mockEcommerce struct {
	courses  map[string]*upstream.EcommerceCourse
	products map[string][]upstream.EcommerceProduct
}

func (m *mockEcommerce) GetCourse(_ context.Context, courseID string) (*upstream.EcommerceCourse, error) {
	c, ok := m.courses[courseID]
	if !ok {
		return nil, &upstream.StatusError{Method: "GET", URL: courseID, StatusCode: 404}
	}
	return c, nil
}

func (m *mockEcommerce) ListProducts(_ context.Context, productClass string, page, pageSize int, _ string) (*upstream.EcommerceProductPage, error) {
	all := m.products[productClass]
	from := min((page-1)*pageSize, len(all))
	to := min(from+pageSize, len(all))
	return &upstream.EcommerceProductPage{Count: len(all), Results: all[from:to]}, nil
}

func stockRecords(price, sku string) []upstream.EcommerceStockRecord {
	return []upstream.EcommerceStockRecord{{PriceCurrency: "USD", PriceExclTax: price, PartnerSKU: sku}}
}

func seatProduct(seat, price string) upstream.EcommerceProduct {
	p := upstream.EcommerceProduct{Structure: "child", StockRecords: stockRecords(price, seat+"-sku")}
	if seat != models.SeatAudit {
		p.AttributeValues = []upstream.EcommerceAttribute{{Name: "certificate_type", Value: seat}}
	}
	return p
}

func entitlement(title, courseUUID, mode, price string) upstream.EcommerceProduct {
	return upstream.EcommerceProduct{
		Title: title,
		AttributeValues: []upstream.EcommerceAttribute{
			{Name: "UUID", Value: courseUUID},
			{Name: "certificate_type", Value: mode},
		},
		StockRecords: stockRecords(price, "ENT-"+mode),
	}
}

func enrollmentCode(title, runKey, seat, sku string) upstream.EcommerceProduct {
	return upstream.EcommerceProduct{
		Title: title,
		AttributeValues: []upstream.EcommerceAttribute{
			{Code: "course_key", Value: runKey},
			{Code: "seat_type", Value: seat},
		},
		StockRecords: stockRecords("0.00", sku),
	}
}

// loadEcommerceRuns creates one Empty-typed run per key through the LMS loader.
func loadEcommerceRuns(t *testing.T, env *testEnv, keys ...string) {
	t.Helper()
	courses := make([]upstream.LMSCourse, 0, len(keys))
	for _, key := range keys {
		courses = append(courses, lmsCourse(key, "Course "+key))
	}
	if err := NewCoursesAPILoader(env.partner, &mockCourses{pages: singlePage(courses...)}, env.db, Options{}).
		Ingest(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestEcommerceAPILoader(t *testing.T) {
	env := setupEnv(t)
	logs := captureLogs(t)
	ctx := context.Background()

	key := "course-v1:edx+ECOM1+2030"
	loadEcommerceRuns(t, env, key, "course-v1:edx+ECOM2+2030")

	source := &mockEcommerce{courses: map[string]*upstream.EcommerceCourse{
		key: {ID: key, Products: []upstream.EcommerceProduct{
			{Structure: "parent"},
			seatProduct(models.SeatAudit, "0.00"),
			seatProduct(models.SeatVerified, "99.00"),
		}},
	}}
	if err := NewEcommerceAPILoader(env.partner, source, env.db, Options{}).Ingest(ctx); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	run, err := env.db.GetCourseRunByKey(ctx, env.partner.ID, key)
	if err != nil {
		t.Fatal(err)
	}
	if run.Prices["verified"] != "99.00" || run.Prices["audit"] != "0.00" {
		t.Errorf("Prices = %v", run.Prices)
	}
	if run.Type == nil || run.Type.Name != "Verified and Audit" {
		t.Errorf("run type = %+v, want Verified and Audit", run.Type)
	}
	course, err := env.db.GetCourseByKey(ctx, env.partner.ID, run.CourseKey)
	if err != nil {
		t.Fatal(err)
	}
	if course.Type == nil || course.Type.Name != "Verified and Audit" {
		t.Errorf("course type = %+v, want Verified and Audit", course.Type)
	}
	if !strings.Contains(logs.String(), "Could not find course run [course-v1:edx+ECOM2+2030]") {
		t.Errorf("missing warning for run without products:\n%s", logs.String())
	}
	unpriced, err := env.db.GetCourseRunByKey(ctx, env.partner.ID, "course-v1:edx+ECOM2+2030")
	if err != nil {
		t.Fatal(err)
	}
	if !unpriced.Type.IsEmpty() {
		t.Errorf("run without seats upgraded to %s", unpriced.Type.Name)
	}

	logs.Reset()
	missing := NewEcommerceAPILoader(env.partner, source, env.db, Options{CourseID: "course-v1:edx+NONE+2030"})
	if err := missing.Ingest(ctx); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if !strings.Contains(logs.String(), "Could not find course run [course-v1:edx+NONE+2030]") {
		t.Errorf("missing warning for unknown run:\n%s", logs.String())
	}
}

func TestEcommerceAPILoader_EntitlementsAndEnrollmentCodes(t *testing.T) {
	env := setupEnv(t)
	logs := captureLogs(t)
	ctx := context.Background()

	key := "course-v1:edx+ENT1+2030"
	loadEcommerceRuns(t, env, key)
	run, err := env.db.GetCourseRunByKey(ctx, env.partner.ID, key)
	if err != nil {
		t.Fatal(err)
	}
	courseUUID := run.CourseUUID.String()

	source := &mockEcommerce{
		courses: map[string]*upstream.EcommerceCourse{key: {ID: key, Products: []upstream.EcommerceProduct{
			seatProduct(models.SeatAudit, "0.00"),
			seatProduct(models.SeatVerified, "49.00"),
		}}},
		products: map[string][]upstream.EcommerceProduct{
			upstream.ProductClassEntitlement: {
				entitlement("Verified entitlement", courseUUID, models.SeatVerified, "120.00"),
				entitlement("Ghost entitlement", uuid.NewString(), models.SeatVerified, "10.00"),
				{Title: "Unstocked entitlement"},
			},
			upstream.ProductClassEnrollmentCode: {
				enrollmentCode("Bulk verified", key, models.SeatVerified, "BULK-V"),
				enrollmentCode("Bulk professional", key, models.SeatProfessional, "BULK-P"),
				enrollmentCode("Bulk elsewhere", "course-v1:edx+NONE+2030", models.SeatVerified, "BULK-X"),
			},
		},
	}
	// A page size of one walks every product page.
	if err := NewEcommerceAPILoader(env.partner, source, env.db, Options{PageSize: 1}).Ingest(ctx); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	course, err := env.db.GetCourseByKey(ctx, env.partner.ID, run.CourseKey)
	if err != nil {
		t.Fatal(err)
	}
	if course.Prices["verified"] != "120.00" {
		t.Errorf("course prices = %v, want the verified entitlement", course.Prices)
	}
	run, err = env.db.GetCourseRunByKey(ctx, env.partner.ID, key)
	if err != nil {
		t.Fatal(err)
	}
	if len(run.EnrollmentCodes) != 1 || run.EnrollmentCodes["verified"] != "BULK-V" {
		t.Errorf("enrollment codes = %v", run.EnrollmentCodes)
	}
	for _, want := range []string{
		"Could not find course",
		"Entitlement product Unstocked entitlement has no stockrecords",
		"Could not find seat type professional while loading enrollment code Bulk professional with sku BULK-P",
		"Could not find course run course-v1:edx+NONE+2030 while loading enrollment code",
	} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("logs missing %q", want)
		}
	}

	// An entitlement the course type cannot sell fails the load and keeps
	// the existing entitlement.
	source.products[upstream.ProductClassEntitlement] = []upstream.EcommerceProduct{
		entitlement("Professional entitlement", courseUUID, models.SeatProfessional, "300.00"),
	}
	if err := NewEcommerceAPILoader(env.partner, source, env.db, Options{}).Ingest(ctx); !errors.Is(err, ErrEcommerceIncomplete) {
		t.Fatalf("Ingest() error = %v, want ErrEcommerceIncomplete", err)
	}
	if course, _ = env.db.GetCourseByKey(ctx, env.partner.ID, run.CourseKey); course.Prices["verified"] != "120.00" {
		t.Errorf("failed load deleted entitlements: %v", course.Prices)
	}

	// A clean load without the entitlement removes it.
	source.products[upstream.ProductClassEntitlement] = nil
	if err := NewEcommerceAPILoader(env.partner, source, env.db, Options{}).Ingest(ctx); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if course, _ = env.db.GetCourseByKey(ctx, env.partner.ID, run.CourseKey); len(course.Prices) != 0 {
		t.Errorf("stale entitlement kept: %v", course.Prices)
	}
}

func TestEcommerceAPILoader_UnmatchedSeatsFail(t *testing.T) {
	env := setupEnv(t)
	captureLogs(t)
	ctx := context.Background()

	key := "course-v1:edx+ODD1+2030"
	loadEcommerceRuns(t, env, key)
	// No run type offers verified without audit.
	source := &mockEcommerce{courses: map[string]*upstream.EcommerceCourse{
		key: {ID: key, Products: []upstream.EcommerceProduct{seatProduct(models.SeatVerified, "10.00")}},
	}}
	if err := NewEcommerceAPILoader(env.partner, source, env.db, Options{}).Ingest(ctx); !errors.Is(err, ErrEcommerceIncomplete) {
		t.Fatalf("Ingest() error = %v, want ErrEcommerceIncomplete", err)
	}
	run, err := env.db.GetCourseRunByKey(ctx, env.partner.ID, key)
	if err != nil {
		t.Fatal(err)
	}
	if run.Prices["verified"] != "10.00" || !run.Type.IsEmpty() {
		t.Errorf("run = prices %v type %+v, want priced and still Empty", run.Prices, run.Type)
	}
}

type mockWordPress struct {
	pages    map[int]*upstream.WordPressPage
	courseID string
}

func (m *mockWordPress) ListCourseRuns(_ context.Context, page, _ int, courseID string) (*upstream.WordPressPage, error) {
	m.courseID = courseID
	p, ok := m.pages[page]
	if !ok {
		return nil, fmt.Errorf("no page %d", page)
	}
	return p, nil
}

func TestWordPressAPILoader(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	key := "course-v1:edx+WP1+2030"
	if err := NewCoursesAPILoader(env.partner, &mockCourses{pages: singlePage(lmsCourse(key, "Marketed"))}, env.db, Options{}).Ingest(ctx); err != nil {
		t.Fatal(err)
	}

	duration := 6
	source := &mockWordPress{pages: map[int]*upstream.WordPressPage{1: {
		Pagination: upstream.Pagination{Count: 2, NumPages: 1},
		Results: []upstream.WordPressCourseRun{
			{
				CourseID:               key,
				Excerpt:                "Short marketing copy",
				Description:            "Long marketing copy",
				Outcome:                "You will learn",
				Featured:               true,
				FeaturedImageURL:       "http://wp.example.com/card.png",
				Slug:                   "marketed-course",
				YTVideoURL:             "http://youtube.example.com/v",
				CourseDurationOverride: &duration,
				Status:                 "publish",
				Categories: []upstream.WordPressCategory{{
					Title:             "Data Science",
					Slug:              "data-science",
					TitleTranslations: map[string]string{"ar": "علم البيانات"},
				}},
				CourseInstructors: []upstream.WordPressInstructor{{MarketingID: 42, GivenName: "Ada", FamilyName: "Lovelace"}},
			},
			{CourseID: "course-v1:edx+UNKNOWN+2030", Status: "publish"},
		},
	}}}

	if err := NewWordPressAPILoader(env.partner, source, env.db, Options{CourseID: key}).Ingest(ctx); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if source.courseID != key {
		t.Errorf("course_id sent = %q, want %q", source.courseID, key)
	}

	run, err := env.db.GetCourseRunByKey(ctx, env.partner.ID, key)
	if err != nil {
		t.Fatal(err)
	}
	if run.ShortDescription != "Short marketing copy" || run.FullDescription != "Long marketing copy" || run.Outcome != "You will learn" {
		t.Errorf("run text = %q / %q / %q", run.ShortDescription, run.FullDescription, run.Outcome)
	}
	if !run.CourseOverridden || run.CardImageURL != "http://wp.example.com/card.png" {
		t.Errorf("run featured=%v card=%q", run.CourseOverridden, run.CardImageURL)
	}
	if run.Status != models.CourseRunPublished {
		t.Errorf("Status = %q, want published", run.Status)
	}
	if run.CourseDurationOverride == nil || *run.CourseDurationOverride != 6 {
		t.Errorf("CourseDurationOverride = %v", run.CourseDurationOverride)
	}
	if len(run.Staff) != 1 || run.Staff[0].FullName() != "Ada Lovelace" {
		t.Errorf("Staff = %+v", run.Staff)
	}

	course, err := env.db.GetCourseByKey(ctx, env.partner.ID, "edx+WP1")
	if err != nil {
		t.Fatal(err)
	}
	if len(course.Subjects) != 1 || course.Subjects[0].Slug != "data-science" {
		t.Errorf("Subjects = %+v", course.Subjects)
	}
	if course.URLSlug != "marketed-course" {
		t.Errorf("URLSlug = %q", course.URLSlug)
	}
	translated, err := env.db.GetSubject(ctx, env.partner.ID, course.Subjects[0].UUID, "ar")
	if err != nil || translated.Name != "علم البيانات" {
		t.Errorf("GetSubject(ar) = %+v, %v", translated, err)
	}

	// A second run keeps a single person per marketing id.
	if err := NewWordPressAPILoader(env.partner, source, env.db, Options{}).Ingest(ctx); err != nil {
		t.Fatal(err)
	}
	run, _ = env.db.GetCourseRunByKey(ctx, env.partner.ID, key)
	if len(run.Staff) != 1 || run.Staff[0].UUID == uuid.Nil {
		t.Errorf("Staff after re-run = %+v", run.Staff)
	}
}

// recordingCatalog counts index maintenance calls.
type recordingCatalog struct {
	*catalog.Service
	reindexed int
	removed   []int
}

func (c *recordingCatalog) ReindexPartner(ctx context.Context, p *models.Partner) (int, error) {
	c.reindexed++
	return c.Service.ReindexPartner(ctx, p)
}

func (c *recordingCatalog) RemoveUnusedIndexes(ctx context.Context, keep int) ([]string, error) {
	c.removed = append(c.removed, keep)
	return nil, nil
}

type mockSources struct {
	courses   *mockCourses
	ecommerce *mockEcommerce
	wordpress *mockWordPress
}

func (s *mockSources) Courses(*models.Partner) CoursesSource     { return s.courses }
func (s *mockSources) Ecommerce(*models.Partner) EcommerceSource { return s.ecommerce }
func (s *mockSources) WordPress(*models.Partner) WordPressSource { return s.wordpress }

func newTestPipeline(env *testEnv) (*Pipeline, *recordingCatalog, *mockSources) {
	cat := &recordingCatalog{Service: env.svc}
	sources := &mockSources{
		courses:   &mockCourses{pages: singlePage(lmsCourse("course-v1:edx+PIPE1+2030", "Pipeline"))},
		ecommerce: &mockEcommerce{},
		wordpress: &mockWordPress{pages: map[int]*upstream.WordPressPage{1: {Pagination: upstream.Pagination{NumPages: 1}}}},
	}
	cfg := &config.Config{}
	cfg.Search.KeepIndexes = 3
	return NewPipeline(cat, env.db, sources, cfg), cat, sources
}

func TestPipeline_Run(t *testing.T) {
	env := setupEnv(t)
	logs := captureLogs(t)
	ctx := context.Background()
	pipeline, cat, _ := newTestPipeline(env)

	if err := pipeline.Run(ctx, models.DataLoaderRequest{Partner: env.partner.ShortCode, Service: ServiceLMS}); err != nil {
		t.Fatalf("Run(lms) error = %v", err)
	}
	if !strings.Contains(logs.String(), fmt.Sprintf("Executing Loader [%s]", env.partner.CoursesAPIURL)) {
		t.Errorf("missing loader log line:\n%s", logs.String())
	}
	if cat.reindexed != 0 {
		t.Errorf("lms run reindexed %d times", cat.reindexed)
	}

	if err := pipeline.Run(ctx, models.DataLoaderRequest{Partner: env.partner.ShortCode, Service: ServiceWordPress}); err != nil {
		t.Fatalf("Run(wordpress) error = %v", err)
	}
	if cat.reindexed != 1 || len(cat.removed) != 1 || cat.removed[0] != 3 {
		t.Errorf("wordpress run: reindexed=%d removed=%v", cat.reindexed, cat.removed)
	}
}

func TestPipeline_RunErrors(t *testing.T) {
	env := setupEnv(t)
	pipeline, _, _ := newTestPipeline(env)
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.DataLoaderRequest
		want error
	}{
		{"unsupported service", models.DataLoaderRequest{Partner: env.partner.ShortCode, Service: "studio"}, ErrUnsupportedService},
		{"unknown partner", models.DataLoaderRequest{Partner: "nobody", Service: ServiceLMS}, catalog.ErrPartnerNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := pipeline.Run(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Run() error = %v, want %v", err, tt.want)
			}
		})
	}

	env.partner.EcommerceAPIURL = ""
	if err := env.db.UpdatePartner(ctx, env.partner); err != nil {
		t.Fatal(err)
	}
	err := pipeline.Run(ctx, models.DataLoaderRequest{Partner: env.partner.ShortCode, Service: ServiceEcommerce})
	if !errors.Is(err, ErrMissingURL) {
		t.Errorf("Run() without ecommerce url error = %v, want ErrMissingURL", err)
	}
}

func TestIsSupportedService(t *testing.T) {
	for service, want := range map[string]bool{"lms": true, "ecommerce": true, "wordpress": true, "": false, "LMS": false} {
		if got := IsSupportedService(service); got != want {
			t.Errorf("IsSupportedService(%q) = %v, want %v", service, got, want)
		}
	}
}

type recordingRunner struct {
	mu   sync.Mutex
	reqs []models.DataLoaderRequest
	done chan struct{}
	err  error
}

func (r *recordingRunner) Run(_ context.Context, req models.DataLoaderRequest) error {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.mu.Unlock()
	r.done <- struct{}{}
	return r.err
}

func TestQueueAndWorker_GoChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.MessagingConfig{Topic: "dataloader.requests"}
	pubsub, err := NewPubSub(ctx, cfg)
	if err != nil {
		t.Fatalf("NewPubSub() error = %v", err)
	}
	defer pubsub.Close()
	if pubsub.Transport != "gochannel" {
		t.Errorf("Transport = %q, want gochannel", pubsub.Transport)
	}

	runner := &recordingRunner{done: make(chan struct{}, 2), err: errors.New("upstream down")}
	worker := NewWorker(pubsub.Subscriber, cfg.Topic, runner)
	served := make(chan error, 1)
	go func() { served <- worker.Serve(ctx) }()

	select {
	case <-worker.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not subscribe")
	}

	queue := NewQueue(pubsub.Publisher, cfg.Topic)
	reqs := []models.DataLoaderRequest{
		{Partner: "edly", CourseID: "course-v1:edx+Q1+2030", Service: ServiceLMS},
		{Partner: "edly", Service: ServiceWordPress},
	}
	for _, req := range reqs {
		if err := queue.Enqueue(ctx, req); err != nil {
			t.Fatalf("Enqueue() error = %v", err)
		}
	}
	for range reqs {
		select {
		case <-runner.done:
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not run the queued job")
		}
	}

	runner.mu.Lock()
	if len(runner.reqs) != 2 || runner.reqs[0] != reqs[0] || runner.reqs[1] != reqs[1] {
		t.Errorf("runner saw %+v, want %+v", runner.reqs, reqs)
	}
	runner.mu.Unlock()

	cancel()
	select {
	case err := <-served:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
	if worker.String() != "dataloader-worker" {
		t.Errorf("String() = %q", worker.String())
	}
}
