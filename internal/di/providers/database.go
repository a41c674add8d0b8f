package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/shelfscout/shelfscout-server/internal/config"
	"github.com/shelfscout/shelfscout-server/internal/logger"
	"github.com/shelfscout/shelfscout-server/internal/ratelimit"
	"github.com/shelfscout/shelfscout-server/internal/service"
	"github.com/shelfscout/shelfscout-server/internal/store"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.Data.BasePath, "db")
	db, err := store.New(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// ProvideLimiter provides the upstream API quota limiter, backed by
// durable counters so budgets survive restarts.
func ProvideLimiter(i do.Injector) (*ratelimit.Limiter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	quotas := map[string]ratelimit.Quota{
		service.APIOpenAI: {
			PerMinute: int64(cfg.Limits.OpenAI.PerMinute),
			PerDay:    int64(cfg.Limits.OpenAI.PerDay),
		},
		service.APIGoogleBooks: {
			PerMinute: int64(cfg.Limits.GoogleBooks.PerMinute),
			PerDay:    int64(cfg.Limits.GoogleBooks.PerDay),
		},
		service.APIOpenLibrary: {
			PerMinute: int64(cfg.Limits.OpenLibrary.PerMinute),
			PerDay:    int64(cfg.Limits.OpenLibrary.PerDay),
		},
	}

	limiter := ratelimit.New(store.NewCounters(storeHandle.Store), quotas, log.Logger)
	log.Info("Rate limiter initialized", "apis", len(quotas))

	return limiter, nil
}

// RunStartupMaintenance sweeps the book cache once at boot: expired records
// are removed and ratings lacking curated provenance are cleared.
// Should be called after all services are wired.
func RunStartupMaintenance(i do.Injector) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	go func() {
		ctx := context.Background()

		expired, err := storeHandle.CleanupExpired(ctx)
		if err != nil {
			log.Error("Startup cache cleanup failed", "error", err)
			return
		}

		cleared, err := storeHandle.CleanupNonOpenAIRatings(ctx)
		if err != nil {
			log.Error("Startup rating cleanup failed", "error", err)
			return
		}

		if expired > 0 || cleared > 0 {
			log.Info("Startup cache maintenance completed",
				"expired_removed", expired,
				"ratings_cleared", cleared,
			)
		}
	}()
}
