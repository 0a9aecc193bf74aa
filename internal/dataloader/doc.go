// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

/*
Package dataloader refreshes catalog data from a partner's upstream services.

Three loaders implement Loader:

  - CoursesAPILoader reads the LMS course listing and creates or updates
    courses and course runs (schedule, pacing, card image, video).
  - EcommerceAPILoader reads a run's seat products and updates its prices.
  - WordPressAPILoader reads marketing content (descriptions, card image,
    featured flag, instructors, categories) from the marketing site.

Pipeline maps a service name ("lms", "ecommerce", "wordpress") to a loader
and the partner URL it reads from. A WordPress refresh is followed by a
full reindex of the partner's runs and removal of unaliased indexes.

# Async Jobs

The API enqueues refresh requests on the dataloader.requests topic through
Watermill. NewPubSub returns the in-process gochannel transport unless a
NATS URL is configured, in which case the topic is carried by a JetStream
stream. Worker consumes the topic and runs pipelines; it implements
suture.Service and runs under the server's supervisor tree.
*/
package dataloader
