// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package csvloader

import (
	"context"
	"errors"
	"path"
	"sync"

	"github.com/tomtom215/catalogus/internal/logging"
	"github.com/tomtom215/catalogus/internal/models"
)

// ErrImportRunning is returned while another upload is being ingested.
var ErrImportRunning = errors.New("a CSV import is already running")

// APIFactory returns the API client whose writes land on partner.
type APIFactory func(ctx context.Context, partner *models.Partner) (API, error)

// ImportRequest is one uploaded file.
type ImportRequest struct {
	Partner *models.Partner
	// Name is the uploaded file's name. Together with the partner it keys
	// resume progress.
	Name   string
	Data   []byte
	Resume bool
	DryRun bool
}

// Importer runs loads for uploads inside the process that owns the store,
// one at a time.
type Importer struct {
	apis     APIFactory
	store    Store
	progress ProgressTracker
	images   ImageFetcher

	running sync.Mutex
}

// NewImporter returns an importer. progress and images may be nil.
func NewImporter(apis APIFactory, store Store, progress ProgressTracker, images ImageFetcher) *Importer {
	return &Importer{apis: apis, store: store, progress: progress, images: images}
}

// Import ingests req.Data for req.Partner. It fails fast with
// ErrImportRunning instead of queueing behind another upload.
func (i *Importer) Import(ctx context.Context, req ImportRequest) (*Stats, error) {
	if !i.running.TryLock() {
		return nil, ErrImportRunning
	}
	defer i.running.Unlock()

	api, err := i.apis(ctx, req.Partner)
	if err != nil {
		return nil, err
	}

	opts := []Option{}
	if i.progress != nil {
		opts = append(opts, WithProgress(i.progress))
	}
	if i.images != nil {
		opts = append(opts, WithImageFetcher(i.images))
	}
	cfg := Config{
		CSVPath: req.Partner.ShortCode + ":" + path.Base(req.Name),
		Resume:  req.Resume,
		DryRun:  req.DryRun,
	}
	logging.Ctx(ctx).Info().Str("partner", req.Partner.ShortCode).Str("file", cfg.CSVPath).
		Bool("resume", req.Resume).Bool("dry_run", req.DryRun).Msg("CSV import received")
	return NewFromData(req.Partner, api, i.store, cfg, req.Data, opts...).Ingest(ctx)
}
