package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfscout/shelfscout-server/internal/config"
	"github.com/shelfscout/shelfscout-server/internal/logger"
	"github.com/shelfscout/shelfscout-server/internal/metadata/googlebooks"
	"github.com/shelfscout/shelfscout-server/internal/metadata/openai"
	"github.com/shelfscout/shelfscout-server/internal/metadata/openlibrary"
)

// ProvideGoogleBooksClient provides the Google Books API client.
func ProvideGoogleBooksClient(i do.Injector) (*googlebooks.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := googlebooks.NewClient(cfg.GoogleBooks.BaseURL, cfg.GoogleBooks.APIKey, log.Logger)
	log.Info("Google Books client initialized", "keyed", cfg.GoogleBooks.APIKey != "")

	return client, nil
}

// ProvideOpenLibraryClient provides the Open Library API client.
func ProvideOpenLibraryClient(i do.Injector) (*openlibrary.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := openlibrary.NewClient(cfg.OpenLibrary.BaseURL, log.Logger)
	log.Info("Open Library client initialized")

	return client, nil
}

// ProvideOpenAIClient provides the LLM enrichment client. The client is
// constructed even without an API key; enrichment falls back to heuristics
// when it is not configured.
func ProvideOpenAIClient(i do.Injector) (*openai.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	client := openai.NewClient(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, log.Logger)
	if client.Configured() {
		log.Info("OpenAI client initialized", "model", cfg.OpenAI.Model)
	} else {
		log.Warn("OpenAI client not configured, enrichment will use heuristic ratings")
	}

	return client, nil
}
