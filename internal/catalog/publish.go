// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package catalog

import (
	"context"
	"fmt"
	"slices"

	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
	"github.com/tomtom215/catalogus/internal/upstream"
)

func (s *Service) studio(p *models.Partner) StudioClient {
	if s.upstreams == nil {
		return nil
	}
	return s.upstreams.Studio(p)
}

func (s *Service) ecommerce(p *models.Partner) EcommerceClient {
	if s.upstreams == nil {
		return nil
	}
	return s.upstreams.Ecommerce(p)
}

// publishCourseRun pushes a published run's image to Studio and its seats to
// Ecommerce, skipping whichever service the partner does not configure.
func (s *Service) publishCourseRun(ctx context.Context, partner *models.Partner, course *models.Course, run *models.CourseRun) error {
	log := logging.Ctx(ctx)

	if studio := s.studio(partner); studio != nil {
		image := run.CardImageURL
		if image == "" {
			image = course.ImageURL
		}
		if name, data, ok := s.readLocalMedia(image); ok {
			if err := studio.UploadCourseRunImage(ctx, run.Key, name, data); err != nil {
				return fmt.Errorf("%w: studio image upload for %s: %v", ErrUpstream, run.Key, err)
			}
			log.Info().Str("course_run", run.Key).Msg("Pushed course run image to studio")
		}
	}

	if ecommerce := s.ecommerce(partner); ecommerce != nil {
		if err := ecommerce.Publish(ctx, buildPublication(course, run)); err != nil {
			return fmt.Errorf("%w: ecommerce publication for %s: %v", ErrUpstream, run.Key, err)
		}
		log.Info().Str("course_run", run.Key).Msg("Published course run seats to ecommerce")
	}
	return nil
}

// buildPublication lists one seat product per priced seat type, plus a free
// audit seat when the run type offers one without a price.
func buildPublication(course *models.Course, run *models.CourseRun) *upstream.Publication {
	prices := map[string]string{}
	for seat, price := range run.Prices {
		prices[seat] = price
	}
	if run.Type != nil {
		for _, seat := range run.Type.SeatTypes {
			if _, ok := prices[seat]; !ok && seat == models.SeatAudit {
				prices[seat] = "0.00"
			}
		}
	}

	seats := make([]string, 0, len(prices))
	for seat := range prices {
		seats = append(seats, seat)
	}
	slices.Sort(seats)

	products := make([]upstream.PublicationProduct, 0, len(seats))
	for _, seat := range seats {
		product := upstream.PublicationProduct{
			ProductClass: "Seat",
			Price:        prices[seat],
			AttributeValues: []upstream.EcommerceAttribute{
				{Name: "certificate_type", Value: seat},
				{Name: "id_verification_required", Value: seat == models.SeatVerified || seat == models.SeatProfessional},
			},
		}
		if seat != models.SeatAudit {
			product.Expires = run.UpgradeDeadlineOverride
		}
		products = append(products, product)
	}

	return &upstream.Publication{
		ID:       run.Key,
		UUID:     course.UUID.String(),
		Name:     run.DisplayTitle(),
		Products: products,
	}
}
