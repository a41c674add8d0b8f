package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfscout/shelfscout-server/internal/config"
	"github.com/shelfscout/shelfscout-server/internal/logger"
	"github.com/shelfscout/shelfscout-server/internal/metadata/googlebooks"
	"github.com/shelfscout/shelfscout-server/internal/metadata/openai"
	"github.com/shelfscout/shelfscout-server/internal/metadata/openlibrary"
	"github.com/shelfscout/shelfscout-server/internal/ratelimit"
	"github.com/shelfscout/shelfscout-server/internal/service"
)

// ProvideBookSearchService provides the quota-gated candidate searcher.
func ProvideBookSearchService(i do.Injector) (*service.BookSearchService, error) {
	google := do.MustInvoke[*googlebooks.Client](i)
	openLibrary := do.MustInvoke[*openlibrary.Client](i)
	limiter := do.MustInvoke[*ratelimit.Limiter](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookSearchService(google, openLibrary, limiter, log.Logger), nil
}

// ProvideEnrichmentService provides the rating and summary enrichment service.
func ProvideEnrichmentService(i do.Injector) (*service.EnrichmentService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	generator := do.MustInvoke[*openai.Client](i)
	limiter := do.MustInvoke[*ratelimit.Limiter](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewEnrichmentService(storeHandle.Store, generator, limiter, log.Logger), nil
}

// ProvideExpanderService provides the preference-driven candidate expander.
func ProvideExpanderService(i do.Injector) (*service.ExpanderService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	searcher := do.MustInvoke[*service.BookSearchService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewExpanderService(searcher, cfg.Recommend.MaxExternalCandidates, log.Logger), nil
}

// ProvideRecommendationService provides the recommendation pipeline.
func ProvideRecommendationService(i do.Injector) (*service.RecommendationService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	searcher := do.MustInvoke[*service.BookSearchService](i)
	enricher := do.MustInvoke[*service.EnrichmentService](i)
	expander := do.MustInvoke[*service.ExpanderService](i)
	log := do.MustInvoke[*logger.Logger](i)

	svc := service.NewRecommendationService(
		searcher,
		enricher,
		expander,
		cfg.Recommend.EnrichConcurrency,
		log.Logger,
	)

	log.Info("Recommendation service initialized",
		"max_external_candidates", cfg.Recommend.MaxExternalCandidates,
		"enrich_concurrency", cfg.Recommend.EnrichConcurrency,
	)

	return svc, nil
}

// ProvidePreferenceService provides the device preference service.
func ProvidePreferenceService(i do.Injector) (*service.PreferenceService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPreferenceService(storeHandle.Store, log.Logger), nil
}

// ProvideSavedBookService provides the saved book service.
func ProvideSavedBookService(i do.Injector) (*service.SavedBookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSavedBookService(storeHandle.Store, log.Logger), nil
}
