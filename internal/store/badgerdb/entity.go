package badgerdb

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/inkcircle/inkcircle-server/internal/store"
)

// Entity provides generic CRUD operations for any domain type.
//
// Keys:
//
//	<prefix><id>                          -> JSON document
//	<prefix>idx:<name>:<value>            -> id   (unique index)
//	<prefix>idx:<name>:<value>:<id>       -> id   (multi index)
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
}

// Index defines a secondary index on an entity.
type Index[T any] struct {
	name            string
	keyGen          func(*T) []string
	lookupTransform func(string) string // Optional transformation for lookups
	multi           bool                // Many entities may share a value
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{
		store:  s,
		prefix: prefix,
	}
}

// WithIndex adds a unique secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

// WithIndexTransform adds a unique secondary index with lookup transformation.
// The lookupTransform function is applied to search values before index lookup,
// enabling case-insensitive searches, normalization, etc.
func (e *Entity[T]) WithIndexTransform(name string, keyGen func(*T) []string, lookupTransform func(string) string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:            name,
		keyGen:          keyGen,
		lookupTransform: lookupTransform,
	})
	return e
}

// WithMultiIndex adds a non-unique secondary index, queried with ListByIndex.
func (e *Entity[T]) WithMultiIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen, multi: true})
	return e
}

func (e *Entity[T]) name() string {
	return strings.TrimSuffix(e.prefix, ":")
}

func (e *Entity[T]) indexPrefix(idx Index[T], value string) string {
	return e.prefix + "idx:" + idx.name + ":" + value
}

func (e *Entity[T]) indexKey(idx Index[T], value, id string) []byte {
	if idx.multi {
		return []byte(e.indexPrefix(idx, value) + ":" + id)
	}
	return []byte(e.indexPrefix(idx, value))
}

func (e *Entity[T]) index(name string) (Index[T], bool) {
	i := slices.IndexFunc(e.indexes, func(idx Index[T]) bool { return idx.name == name })
	if i < 0 {
		return Index[T]{}, false
	}
	return e.indexes[i], true
}

// indexValues returns the non-empty keys an index produces for entity.
func indexValues[T any](idx Index[T], entity *T) []string {
	if entity == nil {
		return nil
	}
	return slices.DeleteFunc(idx.keyGen(entity), func(v string) bool { return v == "" })
}

// writeIndexes moves the index entries of id from old to next.
// A nil old means the entity is new; a nil next means it is being deleted.
func (e *Entity[T]) writeIndexes(txn *badger.Txn, id string, old, next *T) error {
	for _, idx := range e.indexes {
		oldValues := indexValues(idx, old)
		newValues := indexValues(idx, next)

		for _, v := range oldValues {
			if slices.Contains(newValues, v) {
				continue
			}
			if err := txn.Delete(e.indexKey(idx, v, id)); err != nil {
				return fmt.Errorf("failed to delete old index key: %w", err)
			}
		}

		for _, v := range newValues {
			if slices.Contains(oldValues, v) {
				continue
			}
			key := e.indexKey(idx, v, id)
			if !idx.multi {
				_, err := txn.Get(key)
				if err == nil {
					return fmt.Errorf("index %s conflict on key %s: %w", idx.name, v, store.IndexConflict(idx.name))
				}
				if !errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("failed to check index key: %w", err)
				}
			}
			if err := txn.Set(key, []byte(id)); err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) readRaw(txn *badger.Txn, id string) ([]byte, error) {
	item, err := txn.Get([]byte(e.prefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}
	return item.ValueCopy(nil)
}

func decode[T any](data []byte) (*T, error) {
	var entity T
	if err := json.Unmarshal(data, &entity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return &entity, nil
}

func (e *Entity[T]) read(txn *badger.Txn, id string) (*T, error) {
	data, err := e.readRaw(txn, id)
	if err != nil {
		return nil, err
	}
	return decode[T](data)
}

// Create creates a new entity with the given ID.
// Returns store.ErrAlreadyExists if the ID or a unique index value is taken.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	return e.store.update(ctx, e.name(), id, func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(e.prefix + id))
		if err == nil {
			return store.ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to check existing key: %w", err)
		}

		if err := e.writeIndexes(txn, id, nil, entity); err != nil {
			return err
		}
		if err := txn.Set([]byte(e.prefix+id), data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}
		return nil
	})
}

// Get retrieves an entity by ID.
// Returns store.ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.read(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// GetMany retrieves the entities that exist among ids, preserving order.
func (e *Entity[T]) GetMany(ctx context.Context, ids []string) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*T, 0, len(ids))
	err := e.store.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			entity, err := e.read(txn, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, entity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetByIndex retrieves an entity by a unique secondary index.
// If the index has a lookup transform, it will be applied to the value before lookup.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx, ok := e.index(indexName)
	if !ok || idx.multi {
		return nil, fmt.Errorf("unknown unique index %q on %s", indexName, e.name())
	}
	if idx.lookupTransform != nil {
		value = idx.lookupTransform(value)
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(e.indexKey(idx, value, ""))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		entity, err = e.read(txn, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

// ListByIndex returns every entity whose multi index carries value.
func (e *Entity[T]) ListByIndex(ctx context.Context, indexName, value string) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx, ok := e.index(indexName)
	if !ok || !idx.multi {
		return nil, fmt.Errorf("unknown multi index %q on %s", indexName, e.name())
	}
	prefix := []byte(e.indexPrefix(idx, value) + ":")

	var out []*T
	err := e.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		var ids []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}

		for _, id := range ids {
			entity, err := e.read(txn, id)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, entity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Mutate applies fn to the stored entity as one atomic read-modify-write.
// fn sees a private copy and may run several times if writers collide.
// Returning store.ErrUnchanged from fn skips the write.
func (e *Entity[T]) Mutate(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	ctx, span := e.store.tracer.Start(ctx, "badgerdb.Mutate", trace.WithAttributes(
		attribute.String("store.entity", e.name()),
		attribute.String("store.id", id),
	))
	defer span.End()

	var result *T
	err := e.store.update(ctx, e.name(), id, func(txn *badger.Txn) error {
		result = nil

		data, err := e.readRaw(txn, id)
		if err != nil {
			return err
		}
		current, err := decode[T](data)
		if err != nil {
			return err
		}
		next, err := decode[T](data)
		if err != nil {
			return err
		}

		if err := fn(next); err != nil {
			if errors.Is(err, store.ErrUnchanged) {
				result = current
				return nil
			}
			return err
		}

		if err := e.writeIndexes(txn, id, current, next); err != nil {
			return err
		}
		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal entity: %w", err)
		}
		if err := txn.Set([]byte(e.prefix+id), encoded); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}
		result = next
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

// Delete deletes an entity by ID.
// This operation is idempotent - it does not return an error if the entity does not exist.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	return e.store.update(ctx, e.name(), id, func(txn *badger.Txn) error {
		entity, err := e.read(txn, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := e.writeIndexes(txn, id, entity, nil); err != nil {
			return err
		}
		if err := txn.Delete([]byte(e.prefix + id)); err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}
		return nil
	})
}

// List returns an iterator over all entities.
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
				if strings.HasPrefix(string(it.Item().Key()[len(e.prefix):]), "idx:") {
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

// collect drains a List iterator into a slice.
func collect[T any](seq iter.Seq2[*T, error]) ([]*T, error) {
	var out []*T
	for entity, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}
