// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/catalogus/internal/dataloader"
	"github.com/tomtom215/catalogus/internal/models"
	"github.com/tomtom215/catalogus/internal/validation"
)

func (c *cli) runDataLoaderCmd() *cobra.Command {
	var req models.DataLoaderRequest
	cmd := &cobra.Command{
		Use:   "run-dataloader",
		Short: "Refresh course runs from a partner's lms, ecommerce or wordpress site",
		Long: `Queues one dataloader refresh on the running server, the same job
POST /edly_api/v1/dataloader/ queues for marketing panels.`,
		Example: "  catalogctl run-dataloader --partner_code=edly --service=lms --course_id=course-v1:edX+DemoX+2026",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !dataloader.IsSupportedService(req.Service) {
				return fmt.Errorf("Data Loader for service: %s is not handled by API", req.Service) //nolint:staticcheck // operator-facing message
			}
			if !validation.IsCourseKey(req.CourseID) {
				return fmt.Errorf("Course id is not valid.") //nolint:staticcheck // operator-facing message
			}

			client, err := c.apiClient()
			if err != nil {
				return err
			}
			var resp struct {
				Message string `json:"message"`
			}
			if err := client.Post(cmd.Context(), "/edly_api/v1/dataloader/", &req, &resp); err != nil {
				c.status(false, "Data loader for %s failed", req.Service)
				return apiError(err)
			}
			c.status(true, "%s", resp.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Partner, "partner_code", "", "partner short code")
	cmd.Flags().StringVar(&req.Service, "service", "", "lms, ecommerce or wordpress")
	cmd.Flags().StringVar(&req.CourseID, "course_id", "", "course run key to refresh")
	_ = cmd.MarkFlagRequired("partner_code")
	_ = cmd.MarkFlagRequired("service")
	_ = cmd.MarkFlagRequired("course_id")
	return cmd
}
