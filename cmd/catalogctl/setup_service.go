// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package main

import (
	"github.com/spf13/cobra"

	"github.com/tomtom215/catalogus/internal/catalog"
	"github.com/tomtom215/catalogus/internal/models"
)

func (c *cli) setupServiceCmd() *cobra.Command {
	var req models.SetupServiceRequest
	cmd := &cobra.Command{
		Use:   "setup-service",
		Short: "Create the devstack site and partner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.apiClient()
			if err != nil {
				return err
			}
			var partner models.Partner
			if err := client.Post(cmd.Context(), "/api/v1/setup_service/", &req, &partner); err != nil {
				return apiError(err)
			}
			c.status(true, "Partner %s (%s) ready, LMS at %s", partner.ShortCode, partner.Name, partner.LMSURL)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.SiteDomain, "site_domain", catalog.DefaultServiceSite, "site domain mapped to the partner")
	cmd.Flags().StringVar(&req.PartnerCode, "partner_code", catalog.DefaultPartnerCode, "partner short code")
	cmd.Flags().StringVar(&req.PartnerName, "partner_name", catalog.DefaultPartnerName, "partner display name")
	return cmd
}
