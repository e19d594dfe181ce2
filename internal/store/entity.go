package store

import (
	"context"
	"encoding/json/v2"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/papermint/papermint-server/internal/errors"
)

// entity provides generic JSON-document CRUD over a badger key prefix.
// The local board store and the settings store both build on it.
type entity[T any] struct {
	db     *badger.DB
	prefix string
}

func newEntity[T any](db *badger.DB, prefix string) *entity[T] {
	return &entity[T]{db: db, prefix: prefix}
}

// Put creates or replaces the document with the given ID.
func (e *entity[T]) Put(ctx context.Context, id string, doc *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	err = e.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(e.prefix+id), data)
	})
	if err != nil {
		return errors.ErrStoreUnavailable.WithCause(fmt.Errorf("write document %s: %w", id, err))
	}
	return nil
}

// Get retrieves the document with the given ID.
// Returns errors.ErrNotFound if it does not exist.
func (e *entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var doc T
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(e.prefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, errors.NotFound(fmt.Sprintf("document %s%s not found", e.prefix, id))
	case err != nil:
		return nil, errors.ErrStoreUnavailable.WithCause(fmt.Errorf("read document %s: %w", id, err))
	}
	return &doc, nil
}

// Delete removes the document with the given ID. Deleting an absent
// document is a no-op.
func (e *entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(e.prefix + id))
	})
	if err != nil {
		return errors.ErrStoreUnavailable.WithCause(fmt.Errorf("delete document %s: %w", id, err))
	}
	return nil
}

// Exists reports whether a document with the given ID is present.
func (e *entity[T]) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := e.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(e.prefix + id))
		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	case err != nil:
		return false, errors.ErrStoreUnavailable.WithCause(fmt.Errorf("check document %s: %w", id, err))
	}
	return true, nil
}

// List returns every document under the prefix in key order.
func (e *entity[T]) List(ctx context.Context) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var docs []*T
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(e.prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var doc T
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			})
			if err != nil {
				return fmt.Errorf("unmarshal document %s: %w", it.Item().Key(), err)
			}
			docs = append(docs, &doc)
		}
		return nil
	})
	if err != nil {
		return nil, errors.ErrStoreUnavailable.WithCause(fmt.Errorf("list documents: %w", err))
	}
	return docs, nil
}
