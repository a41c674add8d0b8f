package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	"github.com/shelfscout/shelfscout-server/internal/ratelimit"
	"github.com/shelfscout/shelfscout-server/internal/store"
)

func setupPipeline(t *testing.T, searcher CandidateSearcher) (*RecommendationService, *store.Store) {
	t.Helper()

	logger := discardLogger()
	s, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	limiter := ratelimit.New(ratelimit.NewMemoryStore(), map[string]ratelimit.Quota{
		APIOpenAI: {PerMinute: 60, PerDay: 12000},
	}, logger)

	enricher := NewEnrichmentService(s, &fakeGenerator{configured: false}, limiter, logger)
	expander := NewExpanderService(searcher, 30, logger)
	return NewRecommendationService(searcher, enricher, expander, 5, logger), s
}

func TestBuildFromShelf_RanksByPreferences(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]domain.CandidateBook{
		"Leviathan Wakes": {{
			Title: "Leviathan Wakes", Author: "James S.A. Corey",
			Categories: []string{"Science Fiction"},
		}},
		"The Notebook": {{
			Title: "The Notebook", Author: "Nicholas Sparks",
			Categories: []string{"Romance"},
		}},
	}}
	svc, s := setupPipeline(t, searcher)
	ctx := context.Background()

	// Curated ratings already cached, so enrichment is pure cache reads.
	for _, seed := range []domain.BookRecord{
		{Title: "Leviathan Wakes", Author: "James S.A. Corey", Rating: "4.5", Source: domain.SourceOpenAI},
		{Title: "The Notebook", Author: "Nicholas Sparks", Rating: "4.2", Source: domain.SourceOpenAI},
	} {
		_, err := s.CacheBook(ctx, &seed)
		require.NoError(t, err)
	}

	scored, err := svc.BuildFromShelf(ctx,
		[]string{"Leviathan Wakes", "The Notebook"},
		&domain.PreferenceProfile{Genres: []string{"Science Fiction"}})
	require.NoError(t, err)
	require.Len(t, scored, 2)

	assert.Equal(t, "Leviathan Wakes", scored[0].Title)
	assert.Equal(t, 14.5, scored[0].MatchScore)
	assert.Contains(t, scored[0].MatchReason, "Science Fiction")
	assert.True(t, scored[0].FromShelf)

	assert.Equal(t, "The Notebook", scored[1].Title)
	assert.Equal(t, 4.2, scored[1].MatchScore)
}

func TestBuildFromShelf_DropsPoorMatches(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]domain.CandidateBook{
		"Dune": {{Title: "Completely Different Book", Author: "Someone"}},
	}}
	svc, _ := setupPipeline(t, searcher)

	scored, err := svc.BuildFromShelf(context.Background(), []string{"Dune"}, nil)
	require.NoError(t, err)
	assert.Empty(t, scored)
}

func TestBuildFromShelf_MergesExternalCandidates(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]domain.CandidateBook{
		"Dune":          {{Title: "Dune", Author: "Frank Herbert"}},
		"Frank Herbert": {
			{Title: "Dune", Author: "Frank Herbert"},
			{Title: "Dune Messiah", Author: "Frank Herbert"},
		},
	}}
	svc, _ := setupPipeline(t, searcher)

	scored, err := svc.BuildFromShelf(context.Background(), []string{"Dune"},
		&domain.PreferenceProfile{Authors: []string{"Frank Herbert"}})
	require.NoError(t, err)
	require.Len(t, scored, 2, "detected Dune deduplicates the expansion copy")

	byTitle := map[string]domain.ScoredRecommendation{}
	for _, item := range scored {
		byTitle[item.Title] = item
	}

	detected := byTitle["Dune"]
	assert.True(t, detected.FromShelf)
	assert.Equal(t, domain.MatchedFromNone, detected.MatchedFrom)

	external := byTitle["Dune Messiah"]
	assert.False(t, external.FromShelf)
	assert.Equal(t, domain.MatchedFromAuthor, external.MatchedFrom)
	assert.Equal(t, "Frank Herbert", external.MatchedTerm)
}

func TestBuildFromShelf_SkipsBlankAndFailedTitles(t *testing.T) {
	searcher := &fakeSearcher{
		results: map[string][]domain.CandidateBook{
			"Hyperion": {{Title: "Hyperion", Author: "Dan Simmons"}},
		},
		errs: map[string]error{"Broken": assert.AnError},
	}
	svc, _ := setupPipeline(t, searcher)

	scored, err := svc.BuildFromShelf(context.Background(),
		[]string{"", "  ", "Broken", "Hyperion"}, nil)
	require.NoError(t, err)
	require.Len(t, scored, 1)
	assert.Equal(t, "Hyperion", scored[0].Title)
}

func TestBuildFromShelf_EmptyTitles(t *testing.T) {
	svc, _ := setupPipeline(t, &fakeSearcher{})
	scored, err := svc.BuildFromShelf(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, scored)
}
