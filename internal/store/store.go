// Package store implements the on-device record store for the engine.
//
// All five record kinds live in a single Badger database, each under its
// own key prefix. Records are tombstoned, never physically removed, so
// deletions can propagate to the cloud backend. The store is the single
// source of truth on-device; the cloud is an eventually-consistent mirror.
package store

import (
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/pageturnapp/pageturn-engine/internal/domain"
)

// Store wraps a Badger database instance holding every record kind.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	Books     *Entity[domain.Book]
	Documents *Entity[domain.UploadedDocument]
	Plans     *Entity[domain.ReadingPlan]
	Baselines *Entity[domain.DailyBaseline]
	Stats     *Entity[domain.UserStats]
}

// Open creates a Store backed by the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // A crash must not lose an acknowledged write
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	s.Books = NewEntity(s, "book:", func(b *domain.Book) *domain.Record {
		return &b.Record
	})
	s.Documents = NewEntity(s, "doc:", func(d *domain.UploadedDocument) *domain.Record {
		return &d.Record
	}).WithIndex("hash", func(d *domain.UploadedDocument) []string {
		return []string{d.Hash}
	})
	s.Plans = NewEntity(s, "plan:", func(p *domain.ReadingPlan) *domain.Record {
		return &p.Record
	})
	s.Baselines = NewEntity(s, "baseline:", func(b *domain.DailyBaseline) *domain.Record {
		return &b.Record
	})
	s.Stats = NewEntity(s, "stats:", func(u *domain.UserStats) *domain.Record {
		return &u.Record
	})

	logger.Info("record store opened", "path", path)
	return s, nil
}

// Close gracefully closes the database.
func (s *Store) Close() error {
	s.logger.Info("closing record store")
	return s.db.Close()
}

// get retrieves a value by raw key.
func (s *Store) get(key []byte, dest any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// set stores a value by raw key.
func (s *Store) set(key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// maxTxnRetries bounds retries of Badger transactions aborted by
// optimistic conflict detection. Conflicts only arise from concurrent
// writers on the same keys, so a handful of retries is plenty.
const maxTxnRetries = 5

// update runs fn in a read-write transaction, retrying on conflict.
func (s *Store) update(fn func(txn *badger.Txn) error) error {
	var err error
	for range maxTxnRetries {
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
