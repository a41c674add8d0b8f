package ratelimit

import (
	"context"
	"sync"
	"time"
)

// memoryCounter is one counter with its bucket expiry.
type memoryCounter struct {
	value     int64
	expiresAt time.Time
}

// MemoryStore is an in-process CounterStore for single-instance deployments
// and tests. A mutex makes check-then-increment atomic across keys.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]memoryCounter
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]memoryCounter),
		now:      time.Now,
	}
}

// Get implements CounterStore.
func (m *MemoryStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[key]
	if !ok || !c.expiresAt.After(m.now()) {
		return 0, nil
	}
	return c.value, nil
}

// CheckAndIncrement implements CounterStore. All-or-nothing under one lock.
func (m *MemoryStore) CheckAndIncrement(_ context.Context, incs []Increment) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, inc := range incs {
		if c, ok := m.counters[inc.Key]; ok && c.expiresAt.After(now) && c.value >= inc.Limit {
			return false, nil
		}
	}

	for _, inc := range incs {
		c, ok := m.counters[inc.Key]
		if !ok || !c.expiresAt.After(now) {
			// First write into the bucket sets its natural lifetime.
			c = memoryCounter{expiresAt: now.Add(inc.TTL)}
		}
		c.value++
		m.counters[inc.Key] = c
	}
	return true, nil
}

// Reset implements CounterStore.
func (m *MemoryStore) Reset(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.counters, key)
	}
	return nil
}

// Sweep drops expired buckets. The limiter works correctly without ever
// calling this; it only bounds memory on long-running processes.
func (m *MemoryStore) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, c := range m.counters {
		if !c.expiresAt.After(now) {
			delete(m.counters, key)
		}
	}
}
