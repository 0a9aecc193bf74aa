// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tomtom215/catalogus/internal/database"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
)

// ClientSiteFields are the required fields of a client site setup request.
var ClientSiteFields = []string{
	"lms_site",
	"cms_site",
	"discovery_site",
	"payments_site",
	"wordpress_site",
	"partner_name",
	"partner_short_code",
}

// ValidateClientSites returns "<Title Case> is Missing" for each empty
// required field, keyed by field name.
func ValidateClientSites(req *models.EdlySitesRequest) map[string]string {
	values := map[string]string{
		"lms_site":           req.LMSSite,
		"cms_site":           req.CMSSite,
		"discovery_site":     req.DiscoverySite,
		"payments_site":      req.PaymentsSite,
		"wordpress_site":     req.WordpressSite,
		"partner_name":       req.PartnerName,
		"partner_short_code": req.PartnerShortCode,
	}
	missing := map[string]string{}
	for _, field := range ClientSiteFields {
		if strings.TrimSpace(values[field]) == "" {
			missing[field] = titleCase(field) + " is Missing"
		}
	}
	return missing
}

// titleCase converts partner_name to Partner Name.
func titleCase(field string) string {
	words := strings.Split(field, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// SetupClientSites points the discovery site at its new domain and
// configures the partner's service URLs from the client's domains.
func (s *Service) SetupClientSites(ctx context.Context, req *models.EdlySitesRequest) (*models.Partner, error) {
	if missing := ValidateClientSites(req); len(missing) > 0 {
		return nil, invalid("request", "missing required fields")
	}
	protocol := req.Protocol
	if protocol == "" {
		protocol = "https"
	}

	oldDomain := req.OldDomainValues.DiscoverySite
	if oldDomain == "" {
		oldDomain = req.DiscoverySite
	}
	site := &models.Site{Domain: req.DiscoverySite, Name: req.DiscoverySite}
	if err := s.store.UpsertSite(ctx, oldDomain, site); err != nil {
		return nil, fmt.Errorf("failed to set up site %s: %w", req.DiscoverySite, err)
	}

	partner, err := s.sitePartner(ctx, site, req.PartnerShortCode)
	if err != nil {
		return nil, err
	}
	partner.ShortCode = req.PartnerShortCode
	partner.Name = req.PartnerName
	partner.SiteID = &site.ID
	applyClientURLs(partner, protocol, req)
	if err := s.store.UpdatePartner(ctx, partner); err != nil {
		return nil, fmt.Errorf("failed to update partner %s: %w", req.PartnerShortCode, err)
	}
	s.forgetPartners()

	logging.Ctx(ctx).Info().
		Str("partner", partner.ShortCode).
		Str("site", site.Domain).
		Msg("Client sites setup successful")
	return partner, nil
}

// sitePartner returns the partner serving site, so a client that changes
// its short code keeps its catalog. A site without a partner adopts the
// partner with shortCode when that one has no site yet, or gets a new one.
func (s *Service) sitePartner(ctx context.Context, site *models.Site, shortCode string) (*models.Partner, error) {
	p, err := s.store.GetPartnerBySiteID(ctx, site.ID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to load partner of site %s: %w", site.Domain, err)
	}

	p, _, err = s.store.GetOrCreatePartner(ctx, shortCode, &models.Partner{SiteID: &site.ID})
	if err != nil {
		return nil, err
	}
	if p.SiteID != nil && *p.SiteID != site.ID {
		return nil, fmt.Errorf("%w: partner %s already serves another site", ErrConflict, shortCode)
	}
	return p, nil
}

func applyClientURLs(p *models.Partner, protocol string, req *models.EdlySitesRequest) {
	lms := protocol + "://" + req.LMSSite
	wordpress := protocol + "://" + req.WordpressSite
	p.LMSURL = lms
	p.StudioURL = protocol + "://" + req.CMSSite
	p.CoursesAPIURL = lms + "/api/courses/v1/"
	p.EcommerceAPIURL = protocol + "://" + req.PaymentsSite + "/api/v2/"
	p.OrganizationsAPIURL = lms + "/api/organizations/v0/organizations/"
	p.MarketingSiteURLRoot = wordpress + "/"
	p.MarketingSiteAPIURL = wordpress + "/wp-json/edly/v1/course_runs"
}

// SetupOptions overrides the default site and partner of SetupDefaultService.
type SetupOptions struct {
	SiteDomain  string
	PartnerCode string
	PartnerName string
}

// Default devstack service settings. The partner is named after its site.
const (
	DefaultServiceSite = "edx.devstack.lms:18381"
	DefaultPartnerCode = "edly"
	DefaultPartnerName = DefaultServiceSite
)

// DevstackPartner returns the partner URLs of a local devstack.
func DevstackPartner() models.Partner {
	return models.Partner{
		LMSURL:               "http://edx.devstack.lms:18000",
		StudioURL:            "http://edx.devstack.lms:18010",
		CoursesAPIURL:        "http://edx.devstack.lms:18000/api/courses/v1/",
		EcommerceAPIURL:      "http://edx.devstack.lms:18130/api/v2/",
		OrganizationsAPIURL:  "http://edx.devstack.lms:18000/api/organizations/v0/organizations/",
		MarketingSiteURLRoot: "http://wordpress.edx.devstack.lms/",
		MarketingSiteAPIURL:  "http://wordpress.edx.devstack.lms/wp-json/edly/v1/course_runs",
	}
}

// referenceTypes pairs each course type with the run type of the same name.
var referenceTypes = []struct {
	name         string
	entitlements []string
	seats        []string
}{
	{"Verified and Audit", []string{models.SeatVerified}, []string{models.SeatAudit, models.SeatVerified}},
	{"Audit Only", []string{}, []string{models.SeatAudit}},
	{"Professional Only", []string{models.SeatProfessional}, []string{models.SeatProfessional}},
	{"Credit", []string{models.SeatVerified}, []string{models.SeatAudit, models.SeatVerified, models.SeatCredit}},
}

var programTypeNames = map[models.ProgramTypeKind]string{
	models.ProgramTypeXSeries:                 "XSeries",
	models.ProgramTypeMasters:                 "Masters",
	models.ProgramTypeMicroMasters:            "MicroMasters",
	models.ProgramTypeMicroBachelors:          "MicroBachelors",
	models.ProgramTypeProfessionalProgramWL:   "Professional Program WL",
	models.ProgramTypeProfessionalCertificate: "Professional Certificate",
}

// DefaultLanguageTags are the language tags seeded by SetupDefaultService.
var DefaultLanguageTags = []models.LanguageTag{
	{Code: "ar-sa", Name: "Arabic - Saudi Arabia"},
	{Code: "de-de", Name: "German - Germany"},
	{Code: "en", Name: "English"},
	{Code: "en-gb", Name: "English - United Kingdom"},
	{Code: "en-us", Name: "English - United States"},
	{Code: "es-es", Name: "Spanish - Spain"},
	{Code: "fr-fr", Name: "French - France"},
	{Code: "hi", Name: "Hindi"},
	{Code: "it-it", Name: "Italian - Italy"},
	{Code: "ja-jp", Name: "Japanese - Japan"},
	{Code: "pt-br", Name: "Portuguese - Brazil"},
	{Code: "ru", Name: "Russian"},
	{Code: "tr-tr", Name: "Turkish - Turkey"},
	{Code: "ur", Name: "Urdu"},
	{Code: "zh-cn", Name: "Chinese - China"},
}

// SetupDefaultService creates the default site and partner and seeds the
// reference types. It is safe to run repeatedly.
func (s *Service) SetupDefaultService(ctx context.Context, opts SetupOptions) (*models.Partner, error) {
	if opts.SiteDomain == "" {
		opts.SiteDomain = DefaultServiceSite
	}
	if opts.PartnerCode == "" {
		opts.PartnerCode = DefaultPartnerCode
	}
	if opts.PartnerName == "" {
		opts.PartnerName = DefaultPartnerName
	}
	log := logging.Ctx(ctx)

	site := &models.Site{Domain: opts.SiteDomain, Name: opts.SiteDomain}
	if err := s.store.UpsertSite(ctx, opts.SiteDomain, site); err != nil {
		return nil, fmt.Errorf("failed to create site %s: %w", opts.SiteDomain, err)
	}

	defaults := DevstackPartner()
	defaults.Name = opts.PartnerName
	defaults.SiteID = &site.ID
	partner, created, err := s.store.GetOrCreatePartner(ctx, opts.PartnerCode, &defaults)
	if err != nil {
		return nil, err
	}
	if !created && partner.SiteID == nil {
		partner.SiteID = &site.ID
		if err := s.store.UpdatePartner(ctx, partner); err != nil {
			return nil, err
		}
	}
	s.forgetPartners()
	log.Info().Str("partner", partner.ShortCode).Bool("created", created).Str("site", site.Domain).Msg("Default partner ready")

	if err := s.seedReferenceData(ctx); err != nil {
		return nil, err
	}
	log.Info().Msg("Reference types seeded")
	return partner, nil
}

func (s *Service) seedReferenceData(ctx context.Context) error {
	for _, rt := range referenceTypes {
		if err := s.store.UpsertCourseRunType(ctx, &models.CourseRunType{
			Name:         rt.name,
			Slug:         models.Slugify(rt.name),
			IsMarketable: true,
			SeatTypes:    rt.seats,
		}); err != nil {
			return err
		}
		if err := s.store.UpsertCourseType(ctx, &models.CourseType{
			Name:             rt.name,
			Slug:             models.Slugify(rt.name),
			EntitlementTypes: rt.entitlements,
		}); err != nil {
			return err
		}
	}
	if err := s.store.UpsertCourseRunType(ctx, &models.CourseRunType{
		Name:      models.EmptyCourseRunType,
		Slug:      models.Slugify(models.EmptyCourseRunType),
		SeatTypes: []string{},
	}); err != nil {
		return err
	}
	if err := s.store.UpsertCourseType(ctx, &models.CourseType{
		Name:             models.EmptyCourseType,
		Slug:             models.Slugify(models.EmptyCourseType),
		EntitlementTypes: []string{},
	}); err != nil {
		return err
	}
	for _, kind := range models.ProgramTypeKinds {
		if err := s.store.UpsertProgramType(ctx, &models.ProgramType{
			Name: programTypeNames[kind],
			Slug: kind.Slug(),
		}); err != nil {
			return err
		}
	}
	for _, tag := range DefaultLanguageTags {
		if err := s.store.UpsertLanguageTag(ctx, tag); err != nil {
			return err
		}
	}
	return nil
}
