// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

// Package search administers the catalog search index.
//
// A catalog file is an index dump of the form {"<index>": {"mappings": {...}}}.
// Before an alias is repointed at a new index, CheckMappings verifies that
// the dump carries every mapping in the embedded required set. The Service
// also indexes and queries course-run documents through the primary alias.
package search
