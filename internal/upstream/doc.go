// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

/*
Package upstream holds the outbound HTTP clients.

Every client is built on Client, which adds:
  - a token-bucket limiter (golang.org/x/time/rate)
  - a circuit breaker per upstream (sony/gobreaker)
  - retries with exponential backoff for network errors, 5xx and 429,
    honouring Retry-After

Any other 4xx is returned at once as a *StatusError.

Clients:
  - CatalogAPI: this service's own REST API, used by the CSV loader
  - Studio: course run creation and image upload
  - Ecommerce: seat publication and course products
  - CoursesAPI: the LMS course listing
  - WordPress: marketing site course data
*/
package upstream
