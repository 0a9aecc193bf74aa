// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

// Package main provides the Catalogus HTTP server
//
// @title Catalogus API
// @version 1.0
// @description Partner-scoped course catalog: programs, subjects, courses, course runs and course-run search.
// @description
// @description ## Authentication
// @description
// @description Send `Authorization: JWT <token>` (or `Bearer <token>`). Obtain a token from `/api/v1/auth/login`.
// @description
// @description ## Rate Limiting
// @description
// @description Default rate limit: 100 requests per minute per IP address.
// @description
// @description ## Error Responses
// @description
// @description Errors use the envelope `{"status": "error", "error": {"code", "message", "details"}, "metadata": {...}}`.
// @description Catalog lists use pages of `{count, next, previous, results}`.
//
// @contact.name GitHub Repository
// @contact.url https://github.com/tomtom215/catalogus/issues
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @host localhost:18381
// @BasePath /api/v1
// @schemes http https
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description "JWT <token>" or "Bearer <token>". Obtain via /api/v1/auth/login.
//
// @tag.name Catalog
// @tag.description Programs, subjects, courses, course runs and search
//
// @tag.name Loaders
// @tag.description Upstream refresh jobs
//
// @tag.name Panel
// @tag.description Marketing panel site provisioning
//
// @tag.name Core
// @tag.description Health checks
package main
