// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/catalogus/internal/app"
	"github.com/tomtom215/catalogus/internal/dataloader"
	"github.com/tomtom215/catalogus/internal/logging"
)

// DataLoaderComponents is the job transport plus both of its ends.
type DataLoaderComponents struct {
	Embedded *dataloader.EmbeddedServer // nil unless NATS_EMBEDDED is set
	PubSub   *dataloader.PubSub
	Queue    *dataloader.Queue
	Worker   *dataloader.Worker
}

// InitDataLoader opens the job transport and builds the queue used by the
// API and the worker that runs pipelines. With NATS_EMBEDDED the transport
// is JetStream on a server started here.
func InitDataLoader(ctx context.Context, comps *app.Components) (*DataLoaderComponents, error) {
	d := &DataLoaderComponents{}
	msgCfg := comps.Config.Messaging
	if msgCfg.Embedded {
		ns, err := dataloader.NewEmbeddedServer(dataloader.EmbeddedConfig{StoreDir: msgCfg.StoreDir})
		if err != nil {
			return nil, fmt.Errorf("start embedded nats: %w", err)
		}
		d.Embedded = ns
		msgCfg.NATSURL = ns.ClientURL()
	}

	ps, err := dataloader.NewPubSub(ctx, &msgCfg)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("init dataloader transport: %w", err)
	}
	logging.Info().
		Str("transport", ps.Transport).
		Bool("embedded", d.Embedded != nil).
		Str("topic", msgCfg.Topic).
		Msg("Dataloader queue initialized")

	d.PubSub = ps
	d.Queue = dataloader.NewQueue(ps.Publisher, msgCfg.Topic)
	d.Worker = dataloader.NewWorker(ps.Subscriber, msgCfg.Topic, comps.Pipeline())
	return d, nil
}

// Close closes the transport, then the embedded server. Call it after the
// worker has stopped.
func (d *DataLoaderComponents) Close() {
	if d == nil {
		return
	}
	if d.PubSub != nil {
		if err := d.PubSub.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing dataloader transport")
		}
	}
	if d.Embedded != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.Embedded.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error stopping embedded NATS server")
		}
	}
}
