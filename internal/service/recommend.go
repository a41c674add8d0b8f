package service

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	"github.com/shelfscout/shelfscout-server/internal/match"
)

const perTitleResults = 10

// RecommendationService runs the full pipeline: detected shelf titles are
// resolved to catalog candidates, enriched with curated ratings and
// summaries, widened with preference-driven discoveries, and scored.
type RecommendationService struct {
	searcher          CandidateSearcher
	enricher          *EnrichmentService
	expander          *ExpanderService
	enrichConcurrency int
	logger            *slog.Logger
}

// NewRecommendationService creates the pipeline.
func NewRecommendationService(
	searcher CandidateSearcher,
	enricher *EnrichmentService,
	expander *ExpanderService,
	enrichConcurrency int,
	logger *slog.Logger,
) *RecommendationService {
	if enrichConcurrency <= 0 {
		enrichConcurrency = 1
	}
	return &RecommendationService{
		searcher:          searcher,
		enricher:          enricher,
		expander:          expander,
		enrichConcurrency: enrichConcurrency,
		logger:            logger,
	}
}

// BuildFromShelf turns the detected titles into an ordered recommendation
// list. Titles that resolve to no acceptable catalog match are dropped,
// never fatal. An empty result is a valid answer.
func (s *RecommendationService) BuildFromShelf(
	ctx context.Context,
	titles []string,
	prefs *domain.PreferenceProfile,
) ([]domain.ScoredRecommendation, error) {
	seen := make(map[string]bool)
	detected := s.resolveTitles(ctx, titles, seen)

	s.enrichCandidates(ctx, detected)

	external := s.expander.Expand(ctx, prefs, seen)

	all := append(detected, external...)
	scored := ScoreCandidates(all, prefs)

	s.logger.Info("recommendations built",
		"detected", len(detected), "external", len(external), "scored", len(scored))
	return scored, nil
}

// resolveTitles searches the catalog for each detected title and keeps the
// best fuzzy match above the acceptance threshold.
func (s *RecommendationService) resolveTitles(ctx context.Context, titles []string, seen map[string]bool) []domain.CandidateBook {
	var detected []domain.CandidateBook
	for _, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}

		results, err := s.searcher.SearchByTitle(ctx, title, perTitleResults)
		if err != nil {
			s.logger.Warn("candidate search failed, skipping title", "title", title, "error", err)
			continue
		}

		best, score, ok := match.BestMatch(title, results, func(c domain.CandidateBook) string {
			return c.Title
		})
		if !ok || score <= match.Threshold {
			s.logger.Debug("no acceptable match for detected title",
				"title", title, "best_score", score)
			continue
		}

		key := CandidateKey(best.Title, best.Author)
		if seen[key] {
			continue
		}
		seen[key] = true

		best.FromShelf = true
		detected = append(detected, best)
	}
	return detected
}

// enrichCandidates fills ratings and summaries with bounded fan-out.
// Enrichment is fail-soft per candidate, so the group never errors.
func (s *RecommendationService) enrichCandidates(ctx context.Context, candidates []domain.CandidateBook) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.enrichConcurrency)

	for i := range candidates {
		candidate := &candidates[i]
		g.Go(func() error {
			candidate.Rating = s.enricher.GetEnhancedRating(gctx, candidate.Title, candidate.Author, candidate.ISBN)
			candidate.Summary = s.enricher.GetEnhancedSummary(gctx, candidate.Title, candidate.Author, candidate.Summary)
			return nil
		})
	}
	_ = g.Wait()
}
