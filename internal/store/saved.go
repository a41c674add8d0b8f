package store

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	"github.com/shelfscout/shelfscout-server/internal/id"
)

const savedPrefix = "saved:"

// Saved-book join records: a device pinning a cached recommendation.

func savedKey(deviceID, bookID string) []byte {
	return []byte(savedPrefix + deviceID + ":" + bookID)
}

// SaveBook pins a cached book for a device. Saving twice is a no-op that
// keeps the original SavedAt.
func (s *Store) SaveBook(ctx context.Context, deviceID, bookID string) (*domain.SavedBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := savedKey(deviceID, bookID)

	var existing domain.SavedBook
	if err := s.get(key, &existing); err == nil {
		return &existing, nil
	}

	saved := &domain.SavedBook{
		ID:       id.MustGenerate("saved"),
		DeviceID: deviceID,
		BookID:   bookID,
		SavedAt:  time.Now(),
	}
	if err := s.set(key, saved); err != nil {
		return nil, fmt.Errorf("save book: %w", err)
	}

	s.logger.Debug("book saved", "device_id", deviceID, "book_id", bookID)
	return saved, nil
}

// RemoveSavedBook deletes a pin. Removing a missing pin is not an error.
func (s *Store) RemoveSavedBook(ctx context.Context, deviceID, bookID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.delete(savedKey(deviceID, bookID))
}

// ListSavedBooks returns every pin for a device in key order.
func (s *Store) ListSavedBooks(ctx context.Context, deviceID string) ([]*domain.SavedBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(savedPrefix + deviceID + ":")
	var saved []*domain.SavedBook
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec domain.SavedBook
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			saved = append(saved, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list saved books: %w", err)
	}
	return saved, nil
}
