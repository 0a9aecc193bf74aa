// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

/*
Package main is the entry point for the Catalogus server.

Catalogus serves partner-scoped course catalog data (programs, subjects,
courses and course runs) over a REST API, keeps course runs indexed in
Elasticsearch and refreshes runs from partner LMS, Ecommerce and WordPress
sites through queued dataloader jobs.

# Application Architecture

	RootSupervisor ("catalogus")
	├── DataSupervisor ("data-layer")
	│   └── IndexJanitorService (search enabled, SEARCH_PRUNE_INTERVAL > 0)
	├── MessagingSupervisor ("messaging-layer")
	│   └── dataloader.Worker (gochannel, or NATS JetStream via NATS_URL or NATS_EMBEDDED)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService (chi router)

Component initialization order:

 1. Configuration: koanf v2 with defaults, config.yaml and environment
 2. Logging: zerolog with JSON/console output
 3. Store: DuckDB with the catalog schema
 4. Search: Elasticsearch client (optional; reads fall back to DuckDB)
 5. Authentication: JWT, Basic Auth, or no-auth mode
 6. Dataloader queue: Watermill publisher and worker
 7. Authorization: Casbin enforcer with the embedded policy
 8. Supervisor tree and HTTP server

# Configuration

	HTTP_PORT=18381
	LOG_LEVEL=info LOG_FORMAT=json
	DUCKDB_PATH=/data/catalogus.duckdb

	AUTH_MODE=jwt                # jwt, basic, or none
	JWT_SECRET=<32+ chars>
	ADMIN_USERNAME=admin ADMIN_PASSWORD=<password>
	SERVICE_USERNAME=discovery_worker
	PANEL_WORKER_USER=edly_panel_worker

	SEARCH_ENABLED=true
	ELASTICSEARCH_URLS=http://elasticsearch:9200
	SEARCH_ALIASES=catalog

	NATS_URL=nats://nats:4222   # unset keeps jobs in process
	NATS_EMBEDDED=true          # or run JetStream in process
	NATS_STORE_DIR=/data/nats

# Signal Handling

SIGINT and SIGTERM cancel the tree. The HTTP server drains for up to 10s,
the worker finishes its current job, then the transport and the database
are closed.

# API Documentation

Swagger UI is served at /swagger/index.html. Prometheus metrics are at
/metrics.

# See Also

  - cmd/catalogctl: operator commands (set-alias, CSV import, setup-service)
  - internal/api: handlers and routing
  - internal/supervisor: process supervision
*/
package main
