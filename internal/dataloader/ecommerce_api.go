// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package dataloader

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/database"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
	"github.com/tomtom215/catalogus/internal/upstream"
)

// ErrEcommerceIncomplete means some Ecommerce product could not be applied.
// Stale entitlements are kept when it is returned.
var ErrEcommerceIncomplete = errors.New("ecommerce data loader failed to successfully load")

// EcommerceAPILoader refreshes seats, entitlements and enrollment codes from
// Ecommerce. Seat prices land on course runs, entitlement prices on courses
// and enrollment code SKUs on the run seat they sell.
type EcommerceAPILoader struct {
	partner *models.Partner
	source  EcommerceSource
	store   Store
	opts    Options

	failed       bool
	runs         map[string]struct{}
	entitlements map[uuid.UUID]map[string]struct{}
}

// NewEcommerceAPILoader returns a loader reading the partner's
// ecommerce_api_url through source.
func NewEcommerceAPILoader(partner *models.Partner, source EcommerceSource, store Store, opts Options) *EcommerceAPILoader {
	return &EcommerceAPILoader{partner: partner, source: source, store: store, opts: opts}
}

// Ingest updates opts.CourseID, or every run of the partner when unset.
// Seats are queried per run key; entitlements and enrollment codes are paged.
func (l *EcommerceAPILoader) Ingest(ctx context.Context) error {
	log := logging.Ctx(ctx)
	log.Info().Str("url", l.partner.EcommerceAPIURL).Msg("Refreshing ecommerce data")
	l.failed = false
	l.runs = make(map[string]struct{})
	l.entitlements = make(map[uuid.UUID]map[string]struct{})

	seats, err := l.loadSeats(ctx)
	if err != nil {
		return err
	}
	entitlements, err := l.loadProducts(ctx, upstream.ProductClassEntitlement, "", l.updateEntitlement)
	if err != nil {
		return err
	}
	codes, err := l.loadProducts(ctx, upstream.ProductClassEnrollmentCode, l.opts.CourseID, l.updateEnrollmentCode)
	if err != nil {
		return err
	}
	log.Info().Int("course_runs", seats).Int("entitlements", entitlements).Int("enrollment_codes", codes).
		Msgf("Received ecommerce data from %s", l.partner.EcommerceAPIURL)

	if err := l.upgradeEmptyTypes(ctx); err != nil {
		return err
	}
	if l.failed {
		log.Warn().Msg("Processing failure occurred, blocking deletes")
		return ErrEcommerceIncomplete
	}
	if l.opts.CourseID == "" {
		return l.deleteEntitlements(ctx)
	}
	return nil
}

func (l *EcommerceAPILoader) loadSeats(ctx context.Context) (int, error) {
	keys, err := l.runKeys(ctx)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		ok, err := l.processCourseRun(ctx, key)
		if err != nil {
			logUpdateError(ctx, err, key, l.partner.EcommerceAPIURL)
			continue
		}
		if ok {
			updated++
		}
	}
	logging.Ctx(ctx).Info().Int("runs", len(keys)).Int("updated", updated).Msg("Refreshed seats from Ecommerce")
	return len(keys), nil
}

func (l *EcommerceAPILoader) runKeys(ctx context.Context) ([]string, error) {
	if l.opts.CourseID != "" {
		return []string{l.opts.CourseID}, nil
	}
	var keys []string
	limit := l.opts.pageSize()
	for offset := 0; ; offset += limit {
		runs, total, err := l.store.SearchCourseRuns(ctx, l.partner.ID, database.CourseRunFilter{Limit: limit, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("list course runs: %w", err)
		}
		for i := range runs {
			keys = append(keys, runs[i].Key)
		}
		if len(runs) == 0 || offset+len(runs) >= total {
			return keys, nil
		}
	}
}

// processCourseRun reports whether the run's prices changed.
func (l *EcommerceAPILoader) processCourseRun(ctx context.Context, key string) (bool, error) {
	run, err := l.store.GetCourseRunByKey(ctx, l.partner.ID, key)
	if errors.Is(err, database.ErrNotFound) {
		logging.Ctx(ctx).Warn().Msgf("Could not find course run [%s]", key)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	body, err := l.source.GetCourse(ctx, key)
	if err != nil {
		if upstream.IsStatus(err, http.StatusNotFound) {
			logging.Ctx(ctx).Warn().Msgf("Could not find course run [%s]", key)
			return false, nil
		}
		return false, err
	}

	prices := SeatPrices(body)
	for seat := range prices {
		if !models.IsSeatType(seat) {
			logging.Ctx(ctx).Warn().Msgf("Could not find seat type %s for course run with key %s", seat, key)
			l.failed = true
			return false, nil
		}
		if !run.Type.IsEmpty() && !slices.Contains(run.Type.SeatTypes, seat) {
			logging.Ctx(ctx).Warn().Msgf("Seat type %s is not compatible with course run type %s for course run %s",
				seat, run.Type.Slug, key)
			l.failed = true
			return false, nil
		}
	}
	if len(prices) > 0 {
		l.runs[key] = struct{}{}
	}
	if maps.Equal(prices, run.Prices) {
		return false, nil
	}
	if removed := missingKeys(run.Prices, prices); len(removed) > 0 {
		logging.Ctx(ctx).Info().Strs("seats", removed).Str("course_run", key).Msg("Removing seats")
	}
	run.Prices = prices
	for seat := range run.EnrollmentCodes {
		if _, ok := prices[seat]; !ok {
			delete(run.EnrollmentCodes, seat)
		}
	}
	if err := l.store.UpdateCourseRun(ctx, run); err != nil {
		return false, err
	}
	logging.Ctx(ctx).Info().Str("course_run", key).Int("seats", len(prices)).Msg("Updated seat prices")
	return true, nil
}

// loadProducts pages through productClass, applying each product. It
// returns how many products were received.
func (l *EcommerceAPILoader) loadProducts(ctx context.Context, productClass, courseID string,
	apply func(context.Context, *upstream.EcommerceProduct) error) (int, error) {
	pageSize := l.opts.pageSize()
	expected, received := 0, 0
	err := fetchPages(ctx, productClass, func(page int) (int, error) {
		body, err := l.source.ListProducts(ctx, productClass, page, pageSize, courseID)
		if err != nil {
			return 0, fmt.Errorf("list %s products page %d: %w", productClass, page, err)
		}
		expected = body.Count
		received += len(body.Results)
		for i := range body.Results {
			if err := apply(ctx, &body.Results[i]); err != nil {
				return 0, err
			}
		}
		return (body.Count + pageSize - 1) / pageSize, nil
	})
	if err != nil {
		return received, err
	}
	if received != expected {
		logging.Ctx(ctx).Warn().Str("product_class", productClass).Int("expected", expected).Int("received", received).
			Msg("There is a mismatch in the expected count of results and the actual results")
		l.failed = true
	}
	return received, nil
}

// validStockRecord returns the product's first stock record when it carries
// a currency, a decimal price and a SKU.
func validStockRecord(ctx context.Context, p *upstream.EcommerceProduct, kind string) (*upstream.EcommerceStockRecord, bool) {
	if len(p.StockRecords) == 0 {
		logging.Ctx(ctx).Warn().Msgf("%s product %s has no stockrecords", kind, p.Title)
		return nil, false
	}
	sr := &p.StockRecords[0]
	if _, err := strconv.ParseFloat(sr.PriceExclTax, 64); err != nil || sr.PriceCurrency == "" || sr.PartnerSKU == "" {
		logging.Ctx(ctx).Warn().Msgf("A necessary stockrecord field is missing or incorrectly set for %s %s", kind, p.Title)
		return nil, false
	}
	return sr, true
}

// updateEntitlement sets the course price of the entitlement's mode.
func (l *EcommerceAPILoader) updateEntitlement(ctx context.Context, p *upstream.EcommerceProduct) error {
	sr, ok := validStockRecord(ctx, p, "Entitlement")
	if !ok {
		return nil
	}
	log := logging.Ctx(ctx)

	raw, _ := p.Attribute("UUID")
	var course *models.Course
	if courseUUID, err := uuid.Parse(raw); err == nil {
		course, err = l.store.GetCourseByUUID(ctx, l.partner.ID, courseUUID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}
	}
	if course == nil {
		log.Warn().Msgf("Could not find course %s while loading entitlement %s with sku %s", raw, p.Title, sr.PartnerSKU)
		return nil
	}

	mode, _ := p.Attribute("certificate_type")
	if !models.IsSeatType(mode) {
		log.Warn().Msgf("Could not find mode %s while loading entitlement %s with sku %s", mode, p.Title, sr.PartnerSKU)
		l.failed = true
		return nil
	}
	if !course.Type.IsEmpty() && !slices.Contains(course.Type.EntitlementTypes, mode) {
		log.Warn().Msgf("Seat type %s is not compatible with course type %s for course %s", mode, course.Type.Slug, course.UUID)
		l.failed = true
		return nil
	}

	if l.entitlements[course.UUID] == nil {
		l.entitlements[course.UUID] = make(map[string]struct{})
	}
	l.entitlements[course.UUID][mode] = struct{}{}
	if course.Prices[mode] == sr.PriceExclTax {
		return nil
	}
	if course.Prices == nil {
		course.Prices = make(map[string]string)
	}
	course.Prices[mode] = sr.PriceExclTax
	log.Info().Msgf("Creating entitlement %s with sku %s for partner %s", p.Title, sr.PartnerSKU, l.partner.ShortCode)
	return l.store.UpdateCourse(ctx, course)
}

// updateEnrollmentCode records the bulk SKU on the run seat it sells.
func (l *EcommerceAPILoader) updateEnrollmentCode(ctx context.Context, p *upstream.EcommerceProduct) error {
	sr, ok := validStockRecord(ctx, p, "Enrollment code")
	if !ok {
		return nil
	}
	log := logging.Ctx(ctx)

	key, _ := p.Attribute("course_key")
	run, err := l.store.GetCourseRunByKey(ctx, l.partner.ID, key)
	if errors.Is(err, database.ErrNotFound) {
		log.Warn().Msgf("Could not find course run %s while loading enrollment code %s with sku %s", key, p.Title, sr.PartnerSKU)
		return nil
	}
	if err != nil {
		return err
	}

	seat, _ := p.Attribute("seat_type")
	if _, ok := run.Prices[seat]; !ok {
		log.Warn().Msgf("Could not find seat type %s while loading enrollment code %s with sku %s", seat, p.Title, sr.PartnerSKU)
		return nil
	}
	if run.EnrollmentCodes[seat] == sr.PartnerSKU {
		return nil
	}
	if run.EnrollmentCodes == nil {
		run.EnrollmentCodes = make(map[string]string)
	}
	run.EnrollmentCodes[seat] = sr.PartnerSKU
	log.Info().Msgf("Creating enrollment code %s with sku %s for partner %s", p.Title, sr.PartnerSKU, l.partner.ShortCode)
	return l.store.UpdateCourseRun(ctx, run)
}

// upgradeEmptyTypes gives runs that gained seats the run type offering
// exactly those seats, and their Empty courses the course type of the same
// name.
func (l *EcommerceAPILoader) upgradeEmptyTypes(ctx context.Context) error {
	if len(l.runs) == 0 {
		return nil
	}
	runTypes, err := l.store.ListCourseRunTypes(ctx)
	if err != nil {
		return err
	}
	courseTypes, err := l.store.ListCourseTypes(ctx)
	if err != nil {
		return err
	}
	log := logging.Ctx(ctx)

	for _, key := range slices.Sorted(maps.Keys(l.runs)) {
		run, err := l.store.GetCourseRunByKey(ctx, l.partner.ID, key)
		if err != nil {
			return err
		}
		if run.Type.IsEmpty() {
			rt := matchRunType(runTypes, run.Prices)
			if rt == nil {
				log.Warn().Msgf("Calculating course type failure occurred for [%s]", run.CourseKey)
				l.failed = true
				continue
			}
			run.TypeID, run.Type = &rt.ID, rt
			if err := l.store.UpdateCourseRun(ctx, run); err != nil {
				return err
			}
			log.Info().Str("course_run", key).Str("run_type", rt.Name).Msg("Upgraded empty course run type")
		}

		course, err := l.store.GetCourseByKey(ctx, l.partner.ID, run.CourseKey)
		if err != nil {
			return err
		}
		if !course.Type.IsEmpty() {
			continue
		}
		ct := matchCourseType(courseTypes, run.Type.Name, course.Prices)
		if ct == nil {
			log.Warn().Msgf("Calculating course type failure occurred for [%s]", course.Key)
			l.failed = true
			continue
		}
		course.TypeID, course.Type = &ct.ID, ct
		if err := l.store.UpdateCourse(ctx, course); err != nil {
			return err
		}
		log.Info().Str("course", course.Key).Str("course_type", ct.Name).Msg("Upgraded empty course type")
	}
	return nil
}

func matchRunType(types []models.CourseRunType, prices map[string]string) *models.CourseRunType {
	for i := range types {
		t := &types[i]
		if t.IsEmpty() || len(t.SeatTypes) != len(prices) {
			continue
		}
		matched := true
		for _, seat := range t.SeatTypes {
			if _, ok := prices[seat]; !ok {
				matched = false
				break
			}
		}
		if matched {
			return t
		}
	}
	return nil
}

func matchCourseType(types []models.CourseType, runType string, entitlements map[string]string) *models.CourseType {
	for i := range types {
		t := &types[i]
		if t.Name != runType {
			continue
		}
		for mode := range entitlements {
			if !slices.Contains(t.EntitlementTypes, mode) {
				return nil
			}
		}
		return t
	}
	return nil
}

// deleteEntitlements drops course prices for modes Ecommerce no longer sells.
func (l *EcommerceAPILoader) deleteEntitlements(ctx context.Context) error {
	limit := l.opts.pageSize()
	for offset := 0; ; offset += limit {
		courses, total, err := l.store.ListCourses(ctx, l.partner.ID, database.CourseFilter{Limit: limit, Offset: offset})
		if err != nil {
			return fmt.Errorf("list courses: %w", err)
		}
		for i := range courses {
			c := &courses[i]
			stale := missingKeys(c.Prices, setToMap(l.entitlements[c.UUID]))
			if len(stale) == 0 {
				continue
			}
			for _, mode := range stale {
				logging.Ctx(ctx).Info().Msgf("Deleting entitlement for course %s with mode %s for partner %s",
					c.Title, mode, l.partner.ShortCode)
				delete(c.Prices, mode)
			}
			if err := l.store.UpdateCourse(ctx, c); err != nil {
				return err
			}
		}
		if len(courses) == 0 || offset+len(courses) >= total {
			return nil
		}
	}
}

// missingKeys lists the keys of have absent from want, sorted.
func missingKeys(have, want map[string]string) []string {
	var out []string
	for k := range have {
		if _, ok := want[k]; !ok {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

func setToMap(set map[string]struct{}) map[string]string {
	out := make(map[string]string, len(set))
	for k := range set {
		out[k] = ""
	}
	return out
}

// SeatPrices maps seat type to price for the course's child products. A
// product without a certificate_type attribute is an audit seat; one without
// a stock record costs "0.00".
func SeatPrices(body *upstream.EcommerceCourse) map[string]string {
	prices := make(map[string]string)
	for i := range body.Products {
		p := &body.Products[i]
		if p.Structure != "child" {
			continue
		}
		seat, _ := p.Attribute("certificate_type")
		if seat == "" {
			seat = models.SeatAudit
		}
		price := "0.00"
		if len(p.StockRecords) > 0 && p.StockRecords[0].PriceExclTax != "" {
			price = p.StockRecords[0].PriceExclTax
		}
		prices[seat] = price
	}
	return prices
}
