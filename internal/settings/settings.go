// Package settings persists small per-user client settings that the
// original product kept in global mutable defaults: the unread gift badge
// count and the recently used board templates. It shares the local store's
// badger database.
package settings

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/papermint/papermint-server/internal/errors"
)

const (
	badgePrefix    = "settings:badge:"
	templatesKey   = "settings:recent-templates"
	maxRecentCount = 8
)

// Store reads and writes persisted settings.
type Store struct {
	db *badger.DB
}

// New creates a settings store over an open badger database.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

// BadgeCount returns the unread gift badge count for a user.
// An unset count is zero.
func (s *Store) BadgeCount(ctx context.Context, userEmail string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgePrefix + userEmail))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &count)
		})
	})
	if err != nil {
		return 0, errors.ErrStoreUnavailable.WithCause(fmt.Errorf("read badge count: %w", err))
	}
	return count, nil
}

// SetBadgeCount stores the unread gift badge count for a user.
func (s *Store) SetBadgeCount(ctx context.Context, userEmail string, count int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(count)
	if err != nil {
		return fmt.Errorf("marshal badge count: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgePrefix+userEmail), data)
	})
	if err != nil {
		return errors.ErrStoreUnavailable.WithCause(fmt.Errorf("write badge count: %w", err))
	}
	return nil
}

// RecentTemplates returns the most recently used template IDs, newest first.
func (s *Store) RecentTemplates(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var templates []string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(templatesKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &templates)
		})
	})
	if err != nil {
		return nil, errors.ErrStoreUnavailable.WithCause(fmt.Errorf("read recent templates: %w", err))
	}
	return templates, nil
}

// TouchTemplate moves a template ID to the front of the recent list,
// trimming the list to its maximum length.
func (s *Store) TouchTemplate(ctx context.Context, templateID string) error {
	templates, err := s.RecentTemplates(ctx)
	if err != nil {
		return err
	}

	templates = slices.DeleteFunc(templates, func(id string) bool { return id == templateID })
	templates = append([]string{templateID}, templates...)
	if len(templates) > maxRecentCount {
		templates = templates[:maxRecentCount]
	}

	data, err := json.Marshal(templates)
	if err != nil {
		return fmt.Errorf("marshal recent templates: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(templatesKey), data)
	})
	if err != nil {
		return errors.ErrStoreUnavailable.WithCause(fmt.Errorf("write recent templates: %w", err))
	}
	return nil
}
