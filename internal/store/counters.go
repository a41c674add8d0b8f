package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfscout/shelfscout-server/internal/ratelimit"
)

const counterPrefix = "counter:"

// Counters implements ratelimit.CounterStore on top of badger.
// Each call to CheckAndIncrement runs in a single badger transaction, so
// check-then-increment is atomic: concurrent transactions touching the same
// counter conflict and the loser retries.
type Counters struct {
	store *Store
}

// NewCounters returns the counter store view of s.
func NewCounters(s *Store) *Counters {
	return &Counters{store: s}
}

var _ ratelimit.CounterStore = (*Counters)(nil)

// Get returns the current counter value, 0 when the bucket is absent or
// its TTL has elapsed (badger drops expired keys on read).
func (c *Counters) Get(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var value int64
	err := c.store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(counterPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			parsed, parseErr := strconv.ParseInt(string(val), 10, 64)
			if parseErr != nil {
				return fmt.Errorf("corrupt counter %q: %w", key, parseErr)
			}
			value = parsed
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return value, nil
}

// CheckAndIncrement implements ratelimit.CounterStore.
// Transaction conflicts are retried a bounded number of times; persistent
// failure surfaces as an error and the limiter fails open.
func (c *Counters) CheckAndIncrement(ctx context.Context, incs []ratelimit.Increment) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	const maxRetries = 3
	var allowed bool
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		allowed, err = c.tryCheckAndIncrement(incs)
		if !errors.Is(err, badger.ErrConflict) {
			return allowed, err
		}
	}
	return false, err
}

func (c *Counters) tryCheckAndIncrement(incs []ratelimit.Increment) (bool, error) {
	allowed := true
	err := c.store.db.Update(func(txn *badger.Txn) error {
		type pending struct {
			entry *badger.Entry
		}
		writes := make([]pending, 0, len(incs))

		for _, inc := range incs {
			key := []byte(counterPrefix + inc.Key)

			var value int64
			var expiresAt uint64
			item, err := txn.Get(key)
			switch {
			case err == nil:
				valErr := item.Value(func(val []byte) error {
					parsed, parseErr := strconv.ParseInt(string(val), 10, 64)
					if parseErr != nil {
						return fmt.Errorf("corrupt counter %q: %w", inc.Key, parseErr)
					}
					value = parsed
					return nil
				})
				if valErr != nil {
					return valErr
				}
				expiresAt = item.ExpiresAt()
			case errors.Is(err, badger.ErrKeyNotFound):
				// First increment into the bucket sets its lifetime.
				expiresAt = uint64(time.Now().Add(inc.TTL).Unix())
			default:
				return err
			}

			if value >= inc.Limit {
				allowed = false
				return nil
			}

			entry := badger.NewEntry(key, []byte(strconv.FormatInt(value+1, 10)))
			entry.ExpiresAt = expiresAt
			writes = append(writes, pending{entry: entry})
		}

		for _, w := range writes {
			if err := txn.SetEntry(w.entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return allowed, nil
}

// Reset implements ratelimit.CounterStore.
func (c *Counters) Reset(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.store.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete([]byte(counterPrefix + key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		return nil
	})
}
