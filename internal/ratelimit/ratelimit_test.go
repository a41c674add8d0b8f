package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCheckAndIncrement_WindowCap(t *testing.T) {
	store := NewMemoryStore()
	quotas := map[string]Quota{"openai": {PerMinute: 5, PerDay: 100}}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(store, quotas, testLogger(), WithClock(fixedClock(now)))

	ctx := context.Background()
	for i := range 5 {
		if !l.CheckAndIncrement(ctx, "openai") {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}

	// The sixth call is refused and must not bump the window counter.
	if l.CheckAndIncrement(ctx, "openai") {
		t.Fatal("sixth call should be refused")
	}

	count, err := store.Get(ctx, l.windowKey("openai", now))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if count != 5 {
		t.Errorf("window counter = %d, want 5 (refusal must not increment)", count)
	}
}

func TestCheckAndIncrement_DailyCap(t *testing.T) {
	store := NewMemoryStore()
	quotas := map[string]Quota{"open-library": {PerMinute: 100, PerDay: 3}}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(store, quotas, testLogger(), WithClock(fixedClock(now)))

	ctx := context.Background()
	for range 3 {
		if !l.CheckAndIncrement(ctx, "open-library") {
			t.Fatal("expected call within daily budget to pass")
		}
	}
	if l.CheckAndIncrement(ctx, "open-library") {
		t.Error("daily budget exhausted, call should be refused")
	}

	// Window counter must also be untouched by the refused call.
	count, _ := store.Get(ctx, l.windowKey("open-library", now))
	if count != 3 {
		t.Errorf("window counter = %d, want 3", count)
	}
}

func TestIsAllowed_ReadOnly(t *testing.T) {
	store := NewMemoryStore()
	quotas := map[string]Quota{"google-books": {PerMinute: 1, PerDay: 10}}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(store, quotas, testLogger(), WithClock(fixedClock(now)))

	ctx := context.Background()

	// IsAllowed never consumes budget.
	for range 10 {
		if !l.IsAllowed(ctx, "google-books") {
			t.Fatal("IsAllowed should pass on fresh counters")
		}
	}

	if !l.CheckAndIncrement(ctx, "google-books") {
		t.Fatal("first increment should pass")
	}
	if l.IsAllowed(ctx, "google-books") {
		t.Error("IsAllowed should report exhaustion after the window fills")
	}
}

func TestUnknownAPIFailsOpen(t *testing.T) {
	l := New(NewMemoryStore(), map[string]Quota{}, testLogger())

	ctx := context.Background()
	if !l.IsAllowed(ctx, "mystery-api") {
		t.Error("unknown API should be allowed")
	}
	if !l.CheckAndIncrement(ctx, "mystery-api") {
		t.Error("unknown API should be allowed")
	}
}

func TestWindowRollover(t *testing.T) {
	store := NewMemoryStore()
	quotas := map[string]Quota{"openai": {PerMinute: 1, PerDay: 100}}
	now := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)
	current := now
	l := New(store, quotas, testLogger(), WithClock(func() time.Time { return current }))

	ctx := context.Background()
	if !l.CheckAndIncrement(ctx, "openai") {
		t.Fatal("first call should pass")
	}
	if l.CheckAndIncrement(ctx, "openai") {
		t.Fatal("window full, second call should be refused")
	}

	// Next minute bucket starts fresh.
	current = now.Add(time.Minute)
	if !l.CheckAndIncrement(ctx, "openai") {
		t.Error("new window should allow the call")
	}
}

func TestResetLimits(t *testing.T) {
	store := NewMemoryStore()
	quotas := map[string]Quota{"openai": {PerMinute: 1, PerDay: 1}}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(store, quotas, testLogger(), WithClock(fixedClock(now)))

	ctx := context.Background()
	if !l.CheckAndIncrement(ctx, "openai") {
		t.Fatal("first call should pass")
	}
	if l.CheckAndIncrement(ctx, "openai") {
		t.Fatal("second call should be refused")
	}

	if err := l.ResetLimits(ctx, "openai"); err != nil {
		t.Fatalf("ResetLimits: %v", err)
	}
	if !l.CheckAndIncrement(ctx, "openai") {
		t.Error("call after reset should pass")
	}
}

func TestUsageStats(t *testing.T) {
	store := NewMemoryStore()
	quotas := map[string]Quota{"openai": {PerMinute: 10, PerDay: 20}}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(store, quotas, testLogger(), WithClock(fixedClock(now)))

	ctx := context.Background()
	for range 4 {
		l.CheckAndIncrement(ctx, "openai")
	}

	stats := l.UsageStats(ctx)
	if len(stats) != 1 {
		t.Fatalf("got %d stats, want 1", len(stats))
	}
	s := stats[0]
	if s.API != "openai" || s.WindowUsed != 4 || s.DayUsed != 4 || s.DayLimit != 20 {
		t.Errorf("unexpected stat: %+v", s)
	}
	if !s.WithinLimits {
		t.Error("usage below limits should report WithinLimits")
	}
}

// failingStore errors on every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (int64, error) {
	return 0, errors.New("store down")
}

func (failingStore) CheckAndIncrement(context.Context, []Increment) (bool, error) {
	return false, errors.New("store down")
}

func (failingStore) Reset(context.Context, ...string) error {
	return errors.New("store down")
}

func TestStorageErrorFailsOpen(t *testing.T) {
	quotas := map[string]Quota{"openai": {PerMinute: 1, PerDay: 1}}
	l := New(failingStore{}, quotas, testLogger())

	ctx := context.Background()
	if !l.IsAllowed(ctx, "openai") {
		t.Error("IsAllowed should fail open on storage errors")
	}
	if !l.CheckAndIncrement(ctx, "openai") {
		t.Error("CheckAndIncrement should fail open on storage errors")
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	current := base
	store.now = func() time.Time { return current }

	ctx := context.Background()
	_, err := store.CheckAndIncrement(ctx, []Increment{{Key: "k", Limit: 10, TTL: time.Minute}})
	if err != nil {
		t.Fatalf("CheckAndIncrement: %v", err)
	}

	current = base.Add(2 * time.Minute)
	store.Sweep()

	if v, _ := store.Get(ctx, "k"); v != 0 {
		t.Errorf("expired bucket should read 0, got %d", v)
	}
}
