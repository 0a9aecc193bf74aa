// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/tomtom215/catalogus/internal/csvloader"
	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/upstream"
)

type loadOptions struct {
	partnerCode string
	csvPath     string
	resume      bool
	dryRun      bool
}

func (c *cli) loadCoursesCmd() *cobra.Command {
	var opts loadOptions
	cmd := &cobra.Command{
		Use:   "load-courses-from-csv",
		Short: "Load course metadata from a CSV file",
		Example: `  catalogctl load-courses-from-csv --partner_code=edx --csv_path=courses.csv
  catalogctl load-courses-from-csv --partner_code=edx --csv_path=courses.csv --resume`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.loadCourses(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.partnerCode, "partner_code", "", "short code of the partner linked to the courses")
	cmd.Flags().StringVar(&opts.csvPath, "csv_path", "", "path of the CSV file")
	cmd.Flags().BoolVar(&opts.resume, "resume", false, "skip rows recorded by an earlier run over the same file")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate rows without writing")
	_ = cmd.MarkFlagRequired("partner_code")
	_ = cmd.MarkFlagRequired("csv_path")
	return cmd
}

func (c *cli) importCourseMetadataCmd() *cobra.Command {
	var opts loadOptions
	cmd := &cobra.Command{
		Use:   "import-course-metadata",
		Short: "Import course and course run information from a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logging.Info().Msgf("Starting CSV loader import flow for partner %s", opts.partnerCode)
			if err := c.loadCourses(cmd.Context(), opts); err != nil {
				return err
			}
			logging.Info().Msg("CSV loader import flow completed.")
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.partnerCode, "partner_code", "edx", "short code of the partner to import courses to")
	cmd.Flags().StringVar(&opts.csvPath, "csv_path", "", "path of the CSV file")
	cmd.Flags().BoolVar(&opts.resume, "resume", false, "skip rows recorded by an earlier run over the same file")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate rows without writing")
	_ = cmd.MarkFlagRequired("csv_path")
	return cmd
}

// loadCourses uploads the CSV to the server, which runs the loader and
// answers with its counters.
func (c *cli) loadCourses(ctx context.Context, opts loadOptions) error {
	data, err := os.ReadFile(opts.csvPath)
	if err != nil {
		logging.Error().Err(err).Msgf("Error opening csv file at path %s", opts.csvPath)
		return fmt.Errorf("Command failed due to exception in loader. %w", err) //nolint:staticcheck // operator-facing message
	}
	client, err := c.apiClient()
	if err != nil {
		return err
	}

	query := url.Values{
		"partner_code": {opts.partnerCode},
		"name":         {filepath.Base(opts.csvPath)},
	}
	if opts.resume {
		query.Set("resume", "true")
	}
	if opts.dryRun {
		query.Set("dry_run", "true")
	}

	var stats csvloader.Stats
	err = client.Do(ctx, upstream.Request{
		Method:      http.MethodPost,
		Path:        "/api/v1/csv_imports/",
		Query:       query,
		Body:        data,
		ContentType: "text/csv",
	}, &stats)
	switch {
	case upstream.IsStatus(err, http.StatusNotFound):
		return fmt.Errorf("Partner not found with short code [%s]", opts.partnerCode) //nolint:staticcheck // operator-facing message
	case err != nil:
		return fmt.Errorf("Command failed due to exception in loader. %w", apiError(err)) //nolint:staticcheck // operator-facing message
	}

	writeSummary(c.out, &stats)
	c.status(stats.Failed == 0, "%d of %d rows loaded", stats.Succeeded, stats.TotalRows)
	return nil
}

// writeSummary renders the ingest counters as a table.
func writeSummary(w io.Writer, stats *csvloader.Stats) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rows", "Processed", "Succeeded", "Created", "Skipped", "Failed", "Duration"})
	table.Append([]string{
		strconv.FormatInt(stats.TotalRows, 10),
		strconv.FormatInt(stats.Processed, 10),
		strconv.FormatInt(stats.Succeeded, 10),
		strconv.FormatInt(stats.Created, 10),
		strconv.FormatInt(stats.Skipped, 10),
		strconv.FormatInt(stats.Failed, 10),
		stats.Duration().Round(time.Millisecond).String(),
	})
	table.Render()
}
