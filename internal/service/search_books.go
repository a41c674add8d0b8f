package service

import (
	"context"
	"log/slog"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	"github.com/shelfscout/shelfscout-server/internal/metadata/googlebooks"
	"github.com/shelfscout/shelfscout-server/internal/metadata/openlibrary"
	"github.com/shelfscout/shelfscout-server/internal/ratelimit"
)

// CandidateSearcher finds candidate books for a free-text title query.
type CandidateSearcher interface {
	SearchByTitle(ctx context.Context, title string, limit int) ([]domain.CandidateBook, error)
}

// BookSearchService fronts the external catalogs: Google Books first, Open
// Library as fallback, both behind quota accounting. A query that cannot be
// served within quota returns empty rather than an error.
type BookSearchService struct {
	google      *googlebooks.Client
	openLibrary *openlibrary.Client
	limiter     *ratelimit.Limiter
	logger      *slog.Logger
}

// NewBookSearchService creates the catalog search front.
func NewBookSearchService(
	google *googlebooks.Client,
	openLibrary *openlibrary.Client,
	limiter *ratelimit.Limiter,
	logger *slog.Logger,
) *BookSearchService {
	return &BookSearchService{
		google:      google,
		openLibrary: openLibrary,
		limiter:     limiter,
		logger:      logger,
	}
}

var _ CandidateSearcher = (*BookSearchService)(nil)

// SearchByTitle queries Google Books, falling back to Open Library when
// the primary fails, returns nothing, or is out of quota.
func (s *BookSearchService) SearchByTitle(ctx context.Context, title string, limit int) ([]domain.CandidateBook, error) {
	if s.limiter.CheckAndIncrement(ctx, APIGoogleBooks) {
		candidates, err := s.google.SearchByTitle(ctx, title, limit)
		if err != nil {
			s.logger.Warn("google books search failed, trying open library",
				"title", title, "error", err)
		} else if len(candidates) > 0 {
			return candidates, nil
		}
	} else {
		s.logger.Info("google books search skipped, rate limited", "title", title)
	}

	if !s.limiter.CheckAndIncrement(ctx, APIOpenLibrary) {
		s.logger.Info("open library search skipped, rate limited", "title", title)
		return nil, nil
	}

	candidates, err := s.openLibrary.SearchByTitle(ctx, title, limit)
	if err != nil {
		s.logger.Warn("open library search failed", "title", title, "error", err)
		return nil, err
	}
	return candidates, nil
}
