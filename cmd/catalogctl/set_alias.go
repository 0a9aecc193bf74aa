// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/search"
)

// errMappingsMissing is returned when the catalog file fails the mapping check.
var errMappingsMissing = errors.New("required mappings missing from catalog file")

func (c *cli) setAliasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-alias <file_path>",
		Short: "Check a catalog index file's mappings and point the aliases at that index",
		Long: `Reads a catalog index dump ({"<index>": {"mappings": {...}}}), checks that it
carries every required mapping, then repoints each configured alias at the
index named by the file (its base name, unchanged).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			schema, err := search.LoadCatalogSchema(path)
			if err != nil {
				return err
			}

			ok := search.CheckMappings(schema, search.RequiredMappings())
			logging.Info().Msgf("All required mappings present: %s", pyBool(ok))
			c.status(ok, "All required mappings present: %s", pyBool(ok))
			if !ok {
				return errMappingsMissing
			}

			aliases, err := c.newAliases(&c.cfg.Search)
			if err == nil {
				err = aliases.SetAlias(cmd.Context(), search.IndexNameFromPath(path))
			}
			if err != nil {
				logging.Error().Msg("Alias are updated to given index: False")
				c.status(false, "Alias are updated to given index: False")
				return fmt.Errorf("ERROR exception : %w", err)
			}
			logging.Info().Msg("Alias are updated to given index: True")
			c.status(true, "Alias are updated to given index: True")
			return nil
		},
	}
}
