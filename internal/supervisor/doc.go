// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

/*
Package supervisor provides process supervision for the catalog server using
suture v4.

# Overview

Long-running services are grouped into three layers so a failing layer
restarts on its own:

	RootSupervisor ("catalogus")
	├── DataSupervisor ("data-layer")
	│   └── IndexJanitorService (when search is enabled)
	├── MessagingSupervisor ("messaging-layer")
	│   └── dataloader.Worker
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A worker repeatedly failing against an unreachable NATS server backs off
inside the messaging layer while the API keeps serving reads.

# Key Features

Automatic Restart:
  - Crashed services are restarted with backoff
  - Failure threshold and decay are configurable per tree

Graceful Shutdown:
  - Context cancellation stops every layer
  - UnstoppedServiceReport lists services that missed the timeout

Structured Logging:
  - Supervisor events go through sutureslog to the zerolog-backed slog
    handler from internal/logging

# Usage Example

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewIndexJanitorService(svc, cfg.Search.PruneInterval, cfg.Search.KeepIndexes))
	tree.AddMessagingService(dataloader.NewWorker(ps.Subscriber, cfg.Messaging.Topic, pipeline))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))
	return tree.Serve(ctx)

# See Also

  - internal/supervisor/services: suture.Service wrappers
  - github.com/thejerf/suture/v4
*/
package supervisor
