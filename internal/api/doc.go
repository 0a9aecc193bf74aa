// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

/*
Package api provides the HTTP REST API layer for Catalogus.

It serves the partner-scoped catalog read/write endpoints consumed by
marketing sites, the CSV loader and the marketing panel.

Key Components:

  - Router: chi route configuration and middleware stack
  - Handler: request handlers backed by catalog.Service
  - Response formatting: APIResponse envelope for errors and health, DRF-style
    pages for catalog lists, plain single-key bodies for the panel endpoints
  - Authorization: casbin objects per route group (internal/authz)

API Categories:

1. Catalog (/api/v1/):
  - programs, with uuids_only and extended list variants and a cached detail
  - subjects (read-only)
  - courses and course_runs, gated by ReadOnlyByPublisherUser for reads
  - search/course_runs, served by Elasticsearch with a database fallback

2. Loaders (/api/v1/dataloader, /edly_api/v1/dataloader):
  - Validates the request and enqueues a refresh job on the Watermill queue

3. Panel (/edly_api/v1/edly_sites):
  - Points the discovery site and partner service URLs at a client domain

4. Operations:
  - /api/v1/health, /health/live, /health/ready
  - /metrics (Prometheus)
  - /swagger/ (OpenAPI UI)

Usage Example:

	handler := api.NewHandler(svc, queue, cfg)
	router := api.NewRouter(handler, authn, authz.NewMiddleware(enforcer), login,
	    api.NewChiMiddlewareFromConfig(&cfg.Security))
	http.ListenAndServe(":8000", router.SetupChi())

Every request path accepts an optional trailing slash; the router strips it
before matching.
*/
package api
