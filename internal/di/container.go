// Package di provides dependency injection configuration for the Shelfscout server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/shelfscout/shelfscout-server/internal/config"
	"github.com/shelfscout/shelfscout-server/internal/di/providers"
	"github.com/shelfscout/shelfscout-server/internal/logger"
	"github.com/shelfscout/shelfscout-server/internal/metadata/googlebooks"
	"github.com/shelfscout/shelfscout-server/internal/metadata/openai"
	"github.com/shelfscout/shelfscout-server/internal/metadata/openlibrary"
	"github.com/shelfscout/shelfscout-server/internal/ratelimit"
	"github.com/shelfscout/shelfscout-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideLimiter)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)

	// Metadata layer
	do.Provide(injector, providers.ProvideGoogleBooksClient)
	do.Provide(injector, providers.ProvideOpenLibraryClient)
	do.Provide(injector, providers.ProvideOpenAIClient)

	// Business services
	do.Provide(injector, providers.ProvideBookSearchService)
	do.Provide(injector, providers.ProvideEnrichmentService)
	do.Provide(injector, providers.ProvideExpanderService)
	do.Provide(injector, providers.ProvideRecommendationService)
	do.Provide(injector, providers.ProvidePreferenceService)
	do.Provide(injector, providers.ProvideSavedBookService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*ratelimit.Limiter](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*googlebooks.Client](injector)
	_ = do.MustInvoke[*openlibrary.Client](injector)
	_ = do.MustInvoke[*openai.Client](injector)

	// Business services
	_ = do.MustInvoke[*service.BookSearchService](injector)
	_ = do.MustInvoke[*service.EnrichmentService](injector)
	_ = do.MustInvoke[*service.ExpanderService](injector)
	_ = do.MustInvoke[*service.RecommendationService](injector)
	_ = do.MustInvoke[*service.PreferenceService](injector)
	_ = do.MustInvoke[*service.SavedBookService](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	// Rebuild the search index after a mapping version bump
	providers.TriggerSearchReindexIfNeeded(injector)

	// Sweep the book cache for expired records and untrusted ratings
	providers.RunStartupMaintenance(injector)

	return nil
}
