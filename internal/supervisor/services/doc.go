// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

/*
Package services adapts long-running server components to suture.Service.

Each wrapper turns its component's lifecycle into a context-aware Serve
method and names itself through fmt.Stringer for supervisor events.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server, translating ListenAndServe into Serve
  - Drains connections with a bounded Shutdown on cancellation

Index Janitor (IndexJanitorService):
  - Calls RemoveUnusedIndexes on a ticker
  - Logs sweep failures and waits for the next tick

The dataloader worker (dataloader.Worker) already implements suture.Service
and is added to the messaging layer directly.

# Usage

	tree.AddDataService(services.NewIndexJanitorService(svc, cfg.Search.PruneInterval, cfg.Search.KeepIndexes))
	tree.AddMessagingService(worker)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))
*/
package services
