// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

// Package catalog is the domain service shared by the API, the loaders and
// the CLI. It resolves partners, validates writes against reference data,
// stores media, publishes runs to Studio and Ecommerce, and keeps the search
// index in step with the store.
package catalog
