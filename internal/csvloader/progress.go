// Catalogus - Course Catalog and Search Indexing Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogus

package csvloader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// progressPrefix namespaces loader progress keys in BadgerDB.
const progressPrefix = "csvloader:progress:"

// ProgressTracker persists ingest progress per CSV path.
type ProgressTracker interface {
	Save(ctx context.Context, stats *Stats) error
	// Load returns nil, nil when nothing was saved for path.
	Load(ctx context.Context, path string) (*Stats, error)
	Clear(ctx context.Context, path string) error
}

// BadgerProgress stores progress in BadgerDB so imports resume across
// restarts.
type BadgerProgress struct {
	db *badger.DB
}

// NewBadgerProgress wraps an open BadgerDB.
func NewBadgerProgress(db *badger.DB) *BadgerProgress {
	return &BadgerProgress{db: db}
}

// OpenBadgerProgress opens (or creates) a BadgerDB under dir. The caller
// closes the returned DB.
func OpenBadgerProgress(dir string) (*BadgerProgress, *badger.DB, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, nil, fmt.Errorf("open progress store %s: %w", dir, err)
	}
	return NewBadgerProgress(db), db, nil
}

func progressKey(path string) []byte {
	return []byte(progressPrefix + path)
}

// Save persists stats under stats.Path.
func (p *BadgerProgress) Save(_ context.Context, stats *Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(progressKey(stats.Path), data)
	})
}

// Load returns the stats last saved for path.
func (p *BadgerProgress) Load(_ context.Context, path string) (*Stats, error) {
	var stats *Stats
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(progressKey(path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			stats = &Stats{}
			return json.Unmarshal(val, stats)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return stats, nil
}

// Clear removes the progress saved for path.
func (p *BadgerProgress) Clear(_ context.Context, path string) error {
	return p.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(progressKey(path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// InMemoryProgress keeps progress for the life of the process.
type InMemoryProgress struct {
	mu    sync.Mutex
	stats map[string]Stats
}

// NewInMemoryProgress returns an empty tracker.
func NewInMemoryProgress() *InMemoryProgress {
	return &InMemoryProgress{stats: map[string]Stats{}}
}

// Save stores a copy of stats.
func (p *InMemoryProgress) Save(_ context.Context, stats *Stats) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats[stats.Path] = *stats
	return nil
}

// Load returns a copy of the stats saved for path.
func (p *InMemoryProgress) Load(_ context.Context, path string) (*Stats, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stats[path]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Clear removes the stats saved for path.
func (p *InMemoryProgress) Clear(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.stats, path)
	return nil
}
