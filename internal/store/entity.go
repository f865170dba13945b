package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/pageturnapp/pageturn-engine/internal/domain"
)

// Entity provides generic CRUD operations for one record kind.
//
// The meta accessor reaches the embedded Record envelope of T, which lets
// the entity enforce envelope invariants (monotonic ModifiedAt, tombstone
// semantics) without knowing the concrete type.
type Entity[T any] struct {
	store   *Store
	prefix  string
	meta    func(*T) *domain.Record
	indexes []Index[T]
}

// Index defines a unique secondary index on an entity.
type Index[T any] struct {
	name   string
	keyGen func(*T) []string
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string, meta func(*T) *domain.Record) *Entity[T] {
	return &Entity[T]{
		store:  s,
		prefix: prefix,
		meta:   meta,
	}
}

// WithIndex adds a unique secondary index to the entity. Empty index keys
// are skipped.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

// Record returns the envelope embedded in an entity value.
func (e *Entity[T]) Record(entity *T) *domain.Record {
	return e.meta(entity)
}

// Create creates a new record with the given ID, touching its envelope.
// Returns ErrAlreadyExists if a record with this ID (or a conflicting
// index key) already exists.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rec := e.meta(entity)
	rec.ID = id
	rec.TouchNow()

	key := e.prefix + id
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	return e.store.update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}

		for _, idx := range e.indexes {
			for _, indexKey := range idx.keyGen(entity) {
				if indexKey == "" {
					continue
				}
				idxKey := e.indexKey(idx.name, indexKey)
				_, err := txn.Get(idxKey)
				if err == nil {
					return fmt.Errorf("index %s conflict on key %s: %w", idx.name, indexKey, ErrAlreadyExists)
				}
				if !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("failed to check index key: %w", err)
				}
			}
		}

		if err := txn.Set([]byte(key), data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}

		for _, idx := range e.indexes {
			for _, indexKey := range idx.keyGen(entity) {
				if indexKey == "" {
					continue
				}
				if err := txn.Set(e.indexKey(idx.name, indexKey), []byte(id)); err != nil {
					return fmt.Errorf("failed to set index key: %w", err)
				}
			}
		}

		return nil
	})
}

// Get retrieves a record by ID. Tombstoned records are returned; callers
// that need live records check IsDeleted themselves.
// Returns ErrNotFound if the record does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := e.prefix + id
	var entity T

	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get key: %w", err)
		}

		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &entity); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return &entity, nil
}

// GetByIndex retrieves a record by secondary index.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var id string
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.indexKey(indexName, value))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return e.Get(ctx, id)
}

// Patch atomically applies mutate to the stored record in one transaction
// and persists the result with a touched envelope. If mutate returns an
// error the record is left untouched and the error is propagated — this is
// how the progress version guard aborts a stale write without a separate
// read-check-write race.
//
// Returns the record as persisted.
func (e *Entity[T]) Patch(ctx context.Context, id string, mutate func(*T) error) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := e.prefix + id
	var entity T

	err := e.store.update(func(txn *badger.Txn) error {
		entity = *new(T)

		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get key: %w", err)
		}

		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entity)
		}); err != nil {
			return fmt.Errorf("failed to unmarshal record: %w", err)
		}

		oldIndexKeys := e.collectIndexKeys(&entity)

		if err := mutate(&entity); err != nil {
			return err
		}

		e.meta(&entity).TouchNow()

		data, err := json.Marshal(&entity)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		if err := txn.Set([]byte(key), data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}

		newIndexKeys := e.collectIndexKeys(&entity)
		for oldKey := range oldIndexKeys {
			if _, kept := newIndexKeys[oldKey]; !kept {
				if err := txn.Delete([]byte(oldKey)); err != nil {
					return fmt.Errorf("failed to delete old index key: %w", err)
				}
			}
		}
		for newKey := range newIndexKeys {
			if _, existed := oldIndexKeys[newKey]; !existed {
				if err := txn.Set([]byte(newKey), []byte(id)); err != nil {
					return fmt.Errorf("failed to set index key: %w", err)
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &entity, nil
}

// Ensure atomically gets the record with the given ID, creating it from
// build if absent. The created flag reports which happened. Lazy
// get-or-create records (daily baselines, user stats) depend on this being
// a single transaction.
func (e *Entity[T]) Ensure(ctx context.Context, id string, build func() *T) (*T, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	key := e.prefix + id
	var (
		entity  T
		created bool
	)

	err := e.store.update(func(txn *badger.Txn) error {
		entity = *new(T)
		created = false

		item, err := txn.Get([]byte(key))
		if err == nil {
			return item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entity)
			})
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to get key: %w", err)
		}

		fresh := build()
		rec := e.meta(fresh)
		rec.ID = id
		rec.TouchNow()
		entity = *fresh
		created = true

		data, err := json.Marshal(&entity)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		if err := txn.Set([]byte(key), data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}

		for _, idx := range e.indexes {
			for _, indexKey := range idx.keyGen(&entity) {
				if indexKey == "" {
					continue
				}
				if err := txn.Set(e.indexKey(idx.name, indexKey), []byte(id)); err != nil {
					return fmt.Errorf("failed to set index key: %w", err)
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return &entity, created, nil
}

// Tombstone marks the record deleted. Idempotent: tombstoning an already
// tombstoned record still succeeds (and bumps ModifiedAt so the deletion
// re-propagates).
func (e *Entity[T]) Tombstone(ctx context.Context, id string) error {
	_, err := e.Patch(ctx, id, func(entity *T) error {
		e.meta(entity).Deleted = true
		return nil
	})
	return err
}

// List returns an iterator over all records of this kind, tombstones
// included.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		_ = e.store.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = []byte(e.prefix)
			opts.PrefetchValues = true

			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Seek([]byte(e.prefix)); it.ValidForPrefix([]byte(e.prefix)); it.Next() {
				if ctx.Err() != nil {
					yield(nil, ctx.Err())
					return ctx.Err()
				}

				// Skip index keys
				key := string(it.Item().Key())
				if strings.HasPrefix(key[len(e.prefix):], "idx:") {
					continue
				}

				var entity T
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				})
				if err != nil {
					yield(nil, err)
					return err
				}

				if !yield(&entity, nil) {
					return nil // Consumer stopped early
				}
			}

			return nil
		})
	}
}

// ListWhere returns all records matching pred.
func (e *Entity[T]) ListWhere(ctx context.Context, pred func(*T) bool) ([]*T, error) {
	var results []*T
	for entity, err := range e.List(ctx) {
		if err != nil {
			return nil, err
		}
		if pred(entity) {
			results = append(results, entity)
		}
	}
	return results, nil
}

// ListOwned returns all non-tombstoned records belonging to an owner.
func (e *Entity[T]) ListOwned(ctx context.Context, ownerID string) ([]*T, error) {
	return e.ListWhere(ctx, func(entity *T) bool {
		rec := e.meta(entity)
		return rec.OwnerID == ownerID && !rec.Deleted
	})
}

// ModifiedSince returns all records (tombstones included — deletions must
// propagate) modified strictly after sinceMs.
func (e *Entity[T]) ModifiedSince(ctx context.Context, sinceMs int64) ([]*T, error) {
	return e.ListWhere(ctx, func(entity *T) bool {
		return e.meta(entity).ModifiedAt > sinceMs
	})
}

func (e *Entity[T]) indexKey(indexName, value string) []byte {
	return []byte(e.prefix + "idx:" + indexName + ":" + value)
}

func (e *Entity[T]) collectIndexKeys(entity *T) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, idx := range e.indexes {
		for _, indexKey := range idx.keyGen(entity) {
			if indexKey == "" {
				continue
			}
			keys[string(e.indexKey(idx.name, indexKey))] = struct{}{}
		}
	}
	return keys
}
