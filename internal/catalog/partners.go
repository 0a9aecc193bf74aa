// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/tomtom215/catalogus/internal/database"
	"github.com/tomtom215/catalogus/internal/metrics"
	"github.com/tomtom215/catalogus/internal/models"
)

// ResolvePartner maps a request host to its partner: the site with that
// domain first, then the configured default partner.
func (s *Service) ResolvePartner(ctx context.Context, host string) (*models.Partner, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	key := "host:" + host
	if v, ok := s.partners.Get(key); ok {
		metrics.RecordCacheLookup("partners", true)
		return v.(*models.Partner), nil
	}
	metrics.RecordCacheLookup("partners", false)

	p, err := s.partnerForHost(ctx, host)
	if err != nil {
		return nil, err
	}
	s.partners.Set(key, p)
	return p, nil
}

func (s *Service) partnerForHost(ctx context.Context, host string) (*models.Partner, error) {
	candidates := []string{host}
	if h, _, err := net.SplitHostPort(host); err == nil && h != host {
		candidates = append(candidates, h)
	}
	for _, domain := range candidates {
		if domain == "" {
			continue
		}
		p, err := s.store.GetPartnerBySiteDomain(ctx, domain)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("failed to resolve partner for %s: %w", domain, err)
		}
	}
	if s.cfg.DefaultPartner == "" {
		return nil, ErrPartnerNotFound
	}
	return s.PartnerByShortCode(ctx, s.cfg.DefaultPartner)
}

// PartnerByShortCode returns the partner with code, or ErrPartnerNotFound.
func (s *Service) PartnerByShortCode(ctx context.Context, code string) (*models.Partner, error) {
	p, err := s.store.GetPartnerByShortCode(ctx, code)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrPartnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load partner %s: %w", code, err)
	}
	return p, nil
}

// forgetPartners drops cached partner resolutions after a partner write.
func (s *Service) forgetPartners() {
	s.partners.DeletePrefix("host:")
}

// PartnerHost returns the Host under which ResolvePartner maps back to p:
// the domain of its site. The default partner may have no site, in which
// case "" lets any unknown host resolve to it.
func (s *Service) PartnerHost(ctx context.Context, p *models.Partner) (string, error) {
	if p.SiteID == nil {
		if p.ShortCode == s.cfg.DefaultPartner {
			return "", nil
		}
		return "", fmt.Errorf("%w: partner %s has no site", ErrPartnerNotFound, p.ShortCode)
	}
	site, err := s.store.GetSite(ctx, *p.SiteID)
	if err != nil {
		return "", fmt.Errorf("failed to load site of partner %s: %w", p.ShortCode, err)
	}
	return site.Domain, nil
}
