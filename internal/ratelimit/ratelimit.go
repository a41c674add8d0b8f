// Package ratelimit enforces per-API usage quotas with minute windows and
// UTC daily buckets. It is deliberately fail-open: an unreachable counter
// store or an unconfigured API name permits the request, because degraded
// recommendations beat a hard failure.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Quota is the per-minute and per-day call budget for one upstream API.
type Quota struct {
	PerMinute int64
	PerDay    int64
}

// Increment describes one counter bump with its cap and bucket lifetime.
type Increment struct {
	Key   string
	Limit int64
	TTL   time.Duration
}

// CounterStore abstracts the integer counters backing the limiter.
// Implementations must make CheckAndIncrement atomic per call: either every
// key is incremented or none is.
type CounterStore interface {
	// Get returns the current value of key, 0 if absent.
	Get(ctx context.Context, key string) (int64, error)
	// CheckAndIncrement increments every key by one if all keys are below
	// their limits, setting each bucket's TTL on first write. It returns
	// false, without incrementing anything, if any key is at its limit.
	CheckAndIncrement(ctx context.Context, incs []Increment) (bool, error)
	// Reset deletes the given keys.
	Reset(ctx context.Context, keys ...string) error
}

// UsageStat reports one API's current consumption.
type UsageStat struct {
	API          string `json:"api"`
	WindowUsed   int64  `json:"window_used"`
	WindowLimit  int64  `json:"window_limit"`
	DayUsed      int64  `json:"day_used"`
	DayLimit     int64  `json:"day_limit"`
	WithinLimits bool   `json:"within_limits"`
}

// Daily usage fractions that trigger alerts.
const (
	warnFraction     = 0.8
	criticalFraction = 0.9
)

const defaultWindow = time.Minute

// Limiter tracks per-API usage against configured quotas.
type Limiter struct {
	store  CounterStore
	quotas map[string]Quota
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithWindow overrides the sliding window length (default one minute).
func WithWindow(d time.Duration) Option {
	return func(l *Limiter) { l.window = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter over the given store and quota table.
func New(store CounterStore, quotas map[string]Quota, logger *slog.Logger, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		quotas: quotas,
		window: defaultWindow,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsAllowed reports whether a call to the named API would currently be
// permitted, without consuming budget. Unknown APIs and storage errors are
// permitted (fail-open).
func (l *Limiter) IsAllowed(ctx context.Context, api string) bool {
	quota, ok := l.quotas[api]
	if !ok {
		l.logger.Warn("rate limit check for unconfigured API, allowing", "api", api)
		return true
	}

	now := l.now()
	winCount, err := l.store.Get(ctx, l.windowKey(api, now))
	if err != nil {
		l.logger.Error("rate limit store read failed, allowing", "api", api, "error", err)
		return true
	}
	dayCount, err := l.store.Get(ctx, l.dayKey(api, now))
	if err != nil {
		l.logger.Error("rate limit store read failed, allowing", "api", api, "error", err)
		return true
	}

	return winCount < quota.PerMinute && dayCount < quota.PerDay
}

// CheckAndIncrement consumes one unit of budget for the named API if both
// the window and daily counters are below their limits. It returns false,
// leaving both counters untouched, when either budget is exhausted.
// Unknown APIs and storage errors are permitted without counting.
func (l *Limiter) CheckAndIncrement(ctx context.Context, api string) bool {
	quota, ok := l.quotas[api]
	if !ok {
		l.logger.Warn("rate limit increment for unconfigured API, allowing", "api", api)
		return true
	}

	now := l.now()
	incs := []Increment{
		{Key: l.windowKey(api, now), Limit: quota.PerMinute, TTL: l.window},
		{Key: l.dayKey(api, now), Limit: quota.PerDay, TTL: 24 * time.Hour},
	}

	allowed, err := l.store.CheckAndIncrement(ctx, incs)
	if err != nil {
		l.logger.Error("rate limit store update failed, allowing", "api", api, "error", err)
		return true
	}
	if !allowed {
		l.logger.Warn("rate limit exceeded", "api", api,
			"per_minute", quota.PerMinute, "per_day", quota.PerDay)
		return false
	}

	l.alertOnDailyUsage(ctx, api, quota, now)
	return true
}

// ResetLimits zeroes the current window and daily counters for an API.
// Intended for tests and administration.
func (l *Limiter) ResetLimits(ctx context.Context, api string) error {
	now := l.now()
	return l.store.Reset(ctx, l.windowKey(api, now), l.dayKey(api, now))
}

// UsageStats returns current consumption for every configured API.
// Storage errors surface as zero usage; the limiter never blocks on stats.
func (l *Limiter) UsageStats(ctx context.Context) []UsageStat {
	now := l.now()
	stats := make([]UsageStat, 0, len(l.quotas))
	for api, quota := range l.quotas {
		winCount, err := l.store.Get(ctx, l.windowKey(api, now))
		if err != nil {
			l.logger.Error("usage stats read failed", "api", api, "error", err)
		}
		dayCount, err := l.store.Get(ctx, l.dayKey(api, now))
		if err != nil {
			l.logger.Error("usage stats read failed", "api", api, "error", err)
		}
		stats = append(stats, UsageStat{
			API:          api,
			WindowUsed:   winCount,
			WindowLimit:  quota.PerMinute,
			DayUsed:      dayCount,
			DayLimit:     quota.PerDay,
			WithinLimits: winCount < quota.PerMinute && dayCount < quota.PerDay,
		})
	}
	return stats
}

// alertOnDailyUsage logs threshold alerts. These are notifications only;
// control flow never depends on them.
func (l *Limiter) alertOnDailyUsage(ctx context.Context, api string, quota Quota, now time.Time) {
	dayCount, err := l.store.Get(ctx, l.dayKey(api, now))
	if err != nil || quota.PerDay <= 0 {
		return
	}

	fraction := float64(dayCount) / float64(quota.PerDay)
	switch {
	case fraction >= criticalFraction:
		l.logger.Error("API daily usage critical", "api", api,
			"used", dayCount, "limit", quota.PerDay)
	case fraction >= warnFraction:
		l.logger.Warn("API daily usage high", "api", api,
			"used", dayCount, "limit", quota.PerDay)
	}
}

// windowKey buckets time into fixed windows: floor(unix_ms / window_ms).
func (l *Limiter) windowKey(api string, now time.Time) string {
	bucket := now.UnixMilli() / l.window.Milliseconds()
	return fmt.Sprintf("rl:%s:win:%d", api, bucket)
}

// dayKey buckets by UTC calendar date.
func (l *Limiter) dayKey(api string, now time.Time) string {
	return fmt.Sprintf("rl:%s:day:%s", api, now.UTC().Format("2006-01-02"))
}
