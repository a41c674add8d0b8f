package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shelfscout/shelfscout-server/internal/domain"
)

const (
	maxExpansionTerms = 5
	perTermResults    = 10
)

// ExpanderService discovers candidate books beyond the detected shelf by
// searching for the user's favorite authors and titles. Author names go
// through the same title search, since an author query surfaces their
// notable works.
type ExpanderService struct {
	searcher CandidateSearcher
	maxTotal int
	logger   *slog.Logger
}

// NewExpanderService creates an expander capped at maxTotal external
// candidates per expansion.
func NewExpanderService(searcher CandidateSearcher, maxTotal int, logger *slog.Logger) *ExpanderService {
	return &ExpanderService{
		searcher: searcher,
		maxTotal: maxTotal,
		logger:   logger,
	}
}

// Expand searches for up to five favorite authors and five favorite titles,
// dropping results already in seen and stopping once the cap is reached.
// A failed search term is logged and skipped, never fatal.
func (s *ExpanderService) Expand(ctx context.Context, prefs *domain.PreferenceProfile, seen map[string]bool) []domain.CandidateBook {
	if prefs == nil {
		return nil
	}
	if seen == nil {
		seen = make(map[string]bool)
	}

	var expanded []domain.CandidateBook
	expanded = s.expandTerms(ctx, prefs.Authors, domain.MatchedFromAuthor, seen, expanded)
	expanded = s.expandTerms(ctx, prefs.Books, domain.MatchedFromBook, seen, expanded)
	return expanded
}

func (s *ExpanderService) expandTerms(
	ctx context.Context,
	terms []string,
	matchedFrom domain.MatchedFrom,
	seen map[string]bool,
	expanded []domain.CandidateBook,
) []domain.CandidateBook {
	count := 0
	for _, term := range terms {
		if count >= maxExpansionTerms || len(expanded) >= s.maxTotal {
			break
		}
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		count++

		results, err := s.searcher.SearchByTitle(ctx, term, perTermResults)
		if err != nil {
			s.logger.Warn("expansion search failed, skipping term",
				"term", term, "matched_from", string(matchedFrom), "error", err)
			continue
		}

		for _, candidate := range results {
			if len(expanded) >= s.maxTotal {
				break
			}
			key := CandidateKey(candidate.Title, candidate.Author)
			if seen[key] {
				continue
			}
			seen[key] = true

			candidate.FromShelf = false
			candidate.MatchedFrom = matchedFrom
			candidate.MatchedTerm = term
			expanded = append(expanded, candidate)
		}
	}
	return expanded
}

// CandidateKey is the dedup key for a candidate across detection and
// expansion.
func CandidateKey(title, author string) string {
	return strings.ToLower(title) + "::" + strings.ToLower(author)
}
