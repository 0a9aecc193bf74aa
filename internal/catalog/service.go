// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogus/internal/cache"
	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/database"
	"github.com/tomtom215/catalogus/internal/models"
	"github.com/tomtom215/catalogus/internal/search"
	"github.com/tomtom215/catalogus/internal/upstream"
)

// Store is the subset of *database.DB the service uses.
type Store interface {
	Ping(ctx context.Context) error

	GetPartnerByShortCode(ctx context.Context, shortCode string) (*models.Partner, error)
	GetPartnerBySiteDomain(ctx context.Context, domain string) (*models.Partner, error)
	GetPartnerBySiteID(ctx context.Context, siteID int64) (*models.Partner, error)
	GetSite(ctx context.Context, id int64) (*models.Site, error)
	UpsertSite(ctx context.Context, oldDomain string, site *models.Site) error
	GetOrCreatePartner(ctx context.Context, shortCode string, defaults *models.Partner) (*models.Partner, bool, error)
	UpdatePartner(ctx context.Context, p *models.Partner) error
	ListPartners(ctx context.Context) ([]models.Partner, error)

	GetOrganizationByKey(ctx context.Context, partnerID int64, key string) (*models.Organization, error)
	ListOrganizationsByKeys(ctx context.Context, partnerID int64, keys []string) ([]models.Organization, error)
	UpsertOrganization(ctx context.Context, o *models.Organization) error

	GetCourseTypeByName(ctx context.Context, name string) (*models.CourseType, error)
	GetCourseTypeByUUID(ctx context.Context, id uuid.UUID) (*models.CourseType, error)
	GetCourseRunTypeByName(ctx context.Context, name string) (*models.CourseRunType, error)
	GetCourseRunTypeByUUID(ctx context.Context, id uuid.UUID) (*models.CourseRunType, error)
	UpsertCourseType(ctx context.Context, t *models.CourseType) error
	UpsertCourseRunType(ctx context.Context, t *models.CourseRunType) error
	GetProgramTypeBySlug(ctx context.Context, slug string) (*models.ProgramType, error)
	UpsertProgramType(ctx context.Context, t *models.ProgramType) error
	GetLanguageTag(ctx context.Context, code string) (*models.LanguageTag, error)
	GetLanguageTagByName(ctx context.Context, name string) (*models.LanguageTag, error)
	UpsertLanguageTag(ctx context.Context, tag models.LanguageTag) error

	GetOrCreatePerson(ctx context.Context, partnerID int64, givenName string) (*models.Person, bool, error)
	UpsertPersonByMarketingID(ctx context.Context, p *models.Person) (bool, error)
	ListPeopleByUUIDs(ctx context.Context, partnerID int64, ids []uuid.UUID) ([]models.Person, error)
	GetOrCreateCollaborator(ctx context.Context, name string) (*models.Collaborator, bool, error)
	ListCollaboratorsByUUIDs(ctx context.Context, ids []uuid.UUID) ([]models.Collaborator, error)

	GetSubjectByName(ctx context.Context, partnerID int64, name, lang string) (*models.Subject, error)
	GetSubject(ctx context.Context, partnerID int64, id uuid.UUID, lang string) (*models.Subject, error)
	ListSubjects(ctx context.Context, partnerID int64, lang string, limit, offset int) ([]models.Subject, int, error)
	UpsertSubject(ctx context.Context, s *models.Subject, translations ...models.SubjectTranslation) error

	GetCourseByKey(ctx context.Context, partnerID int64, key string) (*models.Course, error)
	GetCourseByUUID(ctx context.Context, partnerID int64, id uuid.UUID) (*models.Course, error)
	ListCourses(ctx context.Context, partnerID int64, f database.CourseFilter) ([]models.Course, int, error)
	CreateCourse(ctx context.Context, c *models.Course) error
	CreateCourseWithRun(ctx context.Context, c *models.Course, r *models.CourseRun) error
	UpdateCourse(ctx context.Context, c *models.Course) error

	GetCourseRunByKey(ctx context.Context, partnerID int64, key string) (*models.CourseRun, error)
	ListCourseRunsByKeys(ctx context.Context, partnerID int64, keys []string) ([]models.CourseRun, error)
	ListCourseRunsForCourse(ctx context.Context, courseID int64) ([]models.CourseRun, error)
	LatestCourseRun(ctx context.Context, courseID int64) (*models.CourseRun, error)
	SearchCourseRuns(ctx context.Context, partnerID int64, f database.CourseRunFilter) ([]models.CourseRun, int, error)
	CreateCourseRun(ctx context.Context, r *models.CourseRun) error
	UpdateCourseRun(ctx context.Context, r *models.CourseRun) error

	ListPrograms(ctx context.Context, partnerID int64, f database.ProgramFilter) ([]models.Program, int, error)
	ListProgramUUIDs(ctx context.Context, partnerID int64, f database.ProgramFilter) ([]uuid.UUID, error)
	GetProgram(ctx context.Context, partnerID int64, id uuid.UUID) (*models.Program, error)
	CreateProgram(ctx context.Context, p *models.Program) error
	UpdateProgram(ctx context.Context, p *models.Program) error
	SetProgramCardImage(ctx context.Context, programID int64, url string) error
}

var _ Store = (*database.DB)(nil)

// SearchIndex is the subset of *search.Service the service uses.
type SearchIndex interface {
	Ping(ctx context.Context) error
	IndexCourseRuns(ctx context.Context, docs []search.CourseRunDocument) error
	SearchCourseRuns(ctx context.Context, q search.CourseRunQuery) (*search.CourseRunResults, error)
	RemoveUnusedIndexes(ctx context.Context, keep int) ([]string, error)
}

var _ SearchIndex = (*search.Service)(nil)

// StudioClient creates runs and receives run images.
type StudioClient interface {
	CreateCourseRun(ctx context.Context, body *upstream.StudioCourseRun) (string, error)
	UploadCourseRunImage(ctx context.Context, key, filename string, image []byte) error
}

// EcommerceClient receives seat publications.
type EcommerceClient interface {
	Publish(ctx context.Context, body *upstream.Publication) error
}

// Upstreams builds the partner-specific clients. A nil return disables the
// integration.
type Upstreams interface {
	Studio(p *models.Partner) StudioClient
	Ecommerce(p *models.Partner) EcommerceClient
}

// Service is the catalog domain service.
type Service struct {
	store     Store
	index     SearchIndex
	upstreams Upstreams
	cfg       config.CatalogConfig
	partners  *cache.Cache
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSearchIndex enables index updates and index-backed search.
func WithSearchIndex(index SearchIndex) Option {
	return func(s *Service) { s.index = index }
}

// WithUpstreams enables Studio and Ecommerce publication.
func WithUpstreams(u Upstreams) Option {
	return func(s *Service) { s.upstreams = u }
}

// NewService returns a service over store.
func NewService(store Store, cfg *config.CatalogConfig, opts ...Option) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	s := &Service{
		store:    store,
		cfg:      *cfg,
		partners: cache.New("partners", ttl, ttl),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close stops the partner cache janitor.
func (s *Service) Close() {
	s.partners.Stop()
}

// Store returns the underlying store.
func (s *Service) Store() Store {
	return s.store
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// PingSearch checks the search index. It returns nil when search is off.
func (s *Service) PingSearch(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	return s.index.Ping(ctx)
}

// SearchEnabled reports whether a search index is configured.
func (s *Service) SearchEnabled() bool {
	return s.index != nil
}

// clientUpstreams builds clients once per base URL.
type clientUpstreams struct {
	cfg  config.LoaderConfig
	auth upstream.Authorizer

	mu        sync.Mutex
	studio    map[string]*upstream.Studio
	ecommerce map[string]*upstream.Ecommerce
}

// NewUpstreams returns the HTTP-backed Upstreams.
func NewUpstreams(cfg *config.LoaderConfig, auth upstream.Authorizer) Upstreams {
	return &clientUpstreams{
		cfg:       *cfg,
		auth:      auth,
		studio:    map[string]*upstream.Studio{},
		ecommerce: map[string]*upstream.Ecommerce{},
	}
}

func (u *clientUpstreams) Studio(p *models.Partner) StudioClient {
	if p.StudioURL == "" {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	c, ok := u.studio[p.StudioURL]
	if !ok {
		c = upstream.NewStudio(upstream.NewConfiguredClient("studio", p.StudioURL, &u.cfg, u.auth))
		u.studio[p.StudioURL] = c
	}
	return c
}

func (u *clientUpstreams) Ecommerce(p *models.Partner) EcommerceClient {
	if p.EcommerceAPIURL == "" {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	c, ok := u.ecommerce[p.EcommerceAPIURL]
	if !ok {
		c = upstream.NewEcommerce(upstream.NewConfiguredClient("ecommerce", p.EcommerceAPIURL, &u.cfg, u.auth))
		u.ecommerce[p.EcommerceAPIURL] = c
	}
	return c
}
