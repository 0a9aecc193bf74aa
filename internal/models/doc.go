// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

// Package models defines the catalog entities shared by the store, the
// domain service, the loaders and the API, plus the API response envelope.
//
// Every entity belongs to a Partner (tenant) except the reference types
// (CourseType, CourseRunType, ProgramType, LanguageTag) and Collaborator,
// which are global.
package models
