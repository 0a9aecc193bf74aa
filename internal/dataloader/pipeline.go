// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package dataloader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/catalogus/internal/config"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/metrics"
	"github.com/tomtom215/catalogus/internal/models"
	"github.com/tomtom215/catalogus/internal/upstream"
)

// Service names accepted by Pipeline.Run.
const (
	ServiceLMS       = "lms"
	ServiceEcommerce = "ecommerce"
	ServiceWordPress = "wordpress"
)

// ErrUnsupportedService is returned for a service name with no loader.
var ErrUnsupportedService = errors.New("unsupported data loader service")

// ErrMissingURL is returned when the partner has no URL for the service.
var ErrMissingURL = errors.New("partner has no url for service")

// IsSupportedService reports whether service names a loader.
func IsSupportedService(service string) bool {
	switch service {
	case ServiceLMS, ServiceEcommerce, ServiceWordPress:
		return true
	default:
		return false
	}
}

// Sources builds the upstream readers for a partner.
type Sources interface {
	Courses(p *models.Partner) CoursesSource
	Ecommerce(p *models.Partner) EcommerceSource
	WordPress(p *models.Partner) WordPressSource
}

// httpSources builds HTTP clients once per base URL.
type httpSources struct {
	cfg  config.LoaderConfig
	auth upstream.Authorizer

	mu      sync.Mutex
	clients map[string]*upstream.Client
}

// NewSources returns HTTP-backed Sources sharing the loader retry,
// rate and breaker settings.
func NewSources(cfg *config.LoaderConfig, auth upstream.Authorizer) Sources {
	return &httpSources{cfg: *cfg, auth: auth, clients: map[string]*upstream.Client{}}
}

func (s *httpSources) client(name, baseURL string) *upstream.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := name + " " + baseURL
	c, ok := s.clients[key]
	if !ok {
		c = upstream.NewConfiguredClient(name, baseURL, &s.cfg, s.auth)
		s.clients[key] = c
	}
	return c
}

func (s *httpSources) Courses(p *models.Partner) CoursesSource {
	return upstream.NewCoursesAPI(s.client("lms", p.CoursesAPIURL))
}

func (s *httpSources) Ecommerce(p *models.Partner) EcommerceSource {
	return upstream.NewEcommerce(s.client("ecommerce", p.EcommerceAPIURL))
}

func (s *httpSources) WordPress(p *models.Partner) WordPressSource {
	return upstream.NewWordPress(s.client("wordpress", p.MarketingSiteAPIURL))
}

// Catalog is the part of catalog.Service a pipeline needs.
type Catalog interface {
	PartnerByShortCode(ctx context.Context, code string) (*models.Partner, error)
	ReindexPartner(ctx context.Context, partner *models.Partner) (int, error)
	RemoveUnusedIndexes(ctx context.Context, keep int) ([]string, error)
}

// Pipeline runs one loader for a partner and service.
type Pipeline struct {
	catalog     Catalog
	store       Store
	sources     Sources
	pageSize    int
	username    string
	keepIndexes int
}

// NewPipeline returns a pipeline writing through store.
func NewPipeline(catalog Catalog, store Store, sources Sources, cfg *config.Config) *Pipeline {
	return &Pipeline{
		catalog:     catalog,
		store:       store,
		sources:     sources,
		pageSize:    cfg.Loader.PageSize,
		username:    cfg.Loader.Username,
		keepIndexes: cfg.Search.KeepIndexes,
	}
}

// Run executes the loader for req.Service against req.Partner.
func (p *Pipeline) Run(ctx context.Context, req models.DataLoaderRequest) (err error) {
	if !IsSupportedService(req.Service) {
		return fmt.Errorf("%w: %s", ErrUnsupportedService, req.Service)
	}
	partner, err := p.catalog.PartnerByShortCode(ctx, req.Partner)
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() { metrics.RecordDataLoaderRun(req.Service, time.Since(start), err) }()

	loader, apiURL := p.loader(partner, req)
	if apiURL == "" {
		return fmt.Errorf("%w: %s %s", ErrMissingURL, partner.ShortCode, req.Service)
	}

	ctx = logging.ContextWithPartner(ctx, partner.ShortCode)
	log := logging.Ctx(ctx)
	log.Info().Msgf("Executing Loader [%s]", apiURL)
	if err := loader.Ingest(ctx); err != nil {
		return fmt.Errorf("%s loader: %w", req.Service, err)
	}

	if req.Service == ServiceWordPress {
		if _, err := p.catalog.ReindexPartner(ctx, partner); err != nil {
			return fmt.Errorf("reindex partner %s: %w", partner.ShortCode, err)
		}
		removed, err := p.catalog.RemoveUnusedIndexes(ctx, p.keepIndexes)
		if err != nil {
			return fmt.Errorf("remove unused indexes: %w", err)
		}
		if len(removed) > 0 {
			log.Info().Strs("indexes", removed).Msg("Removed unused indexes")
		}
	}
	log.Info().Str("service", req.Service).Dur("duration", time.Since(start)).Msg("Data loader finished")
	return nil
}

func (p *Pipeline) loader(partner *models.Partner, req models.DataLoaderRequest) (Loader, string) {
	opts := Options{CourseID: req.CourseID, PageSize: p.pageSize, Username: p.username}
	switch req.Service {
	case ServiceLMS:
		return NewCoursesAPILoader(partner, p.sources.Courses(partner), p.store, opts), partner.CoursesAPIURL
	case ServiceEcommerce:
		return NewEcommerceAPILoader(partner, p.sources.Ecommerce(partner), p.store, opts), partner.EcommerceAPIURL
	default:
		return NewWordPressAPILoader(partner, p.sources.WordPress(partner), p.store, opts), partner.MarketingSiteAPIURL
	}
}
