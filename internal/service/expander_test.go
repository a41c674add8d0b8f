package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout-server/internal/domain"
)

type fakeSearcher struct {
	results map[string][]domain.CandidateBook
	errs    map[string]error
	calls   []string
}

func (f *fakeSearcher) SearchByTitle(ctx context.Context, title string, limit int) ([]domain.CandidateBook, error) {
	f.calls = append(f.calls, title)
	if err, ok := f.errs[title]; ok {
		return nil, err
	}
	return f.results[title], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func booksFor(term string, n int) []domain.CandidateBook {
	books := make([]domain.CandidateBook, n)
	for i := range books {
		books[i] = domain.CandidateBook{
			Title:  fmt.Sprintf("%s Book %d", term, i),
			Author: term,
		}
	}
	return books
}

func TestExpand_TagsProvenance(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]domain.CandidateBook{
		"Ursula K. Le Guin": {{Title: "The Dispossessed", Author: "Ursula K. Le Guin"}},
		"Dune":              {{Title: "Dune", Author: "Frank Herbert"}},
	}}
	expander := NewExpanderService(searcher, 30, discardLogger())

	prefs := &domain.PreferenceProfile{
		Authors: []string{"Ursula K. Le Guin"},
		Books:   []string{"Dune"},
	}
	expanded := expander.Expand(context.Background(), prefs, nil)
	require.Len(t, expanded, 2)

	assert.Equal(t, domain.MatchedFromAuthor, expanded[0].MatchedFrom)
	assert.Equal(t, "Ursula K. Le Guin", expanded[0].MatchedTerm)
	assert.False(t, expanded[0].FromShelf)

	assert.Equal(t, domain.MatchedFromBook, expanded[1].MatchedFrom)
	assert.Equal(t, "Dune", expanded[1].MatchedTerm)
}

func TestExpand_CapStopsSearching(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]domain.CandidateBook{}}
	var authors []string
	for i := 0; i < 5; i++ {
		term := fmt.Sprintf("Author %d", i)
		authors = append(authors, term)
		searcher.results[term] = booksFor(term, 10)
	}
	expander := NewExpanderService(searcher, 30, discardLogger())

	expanded := expander.Expand(context.Background(), &domain.PreferenceProfile{Authors: authors}, nil)
	assert.Len(t, expanded, 30)

	// 30 candidates arrive after three 10-result searches; the remaining
	// terms are never queried.
	assert.Len(t, searcher.calls, 3)
}

func TestExpand_DedupesAgainstSeen(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]domain.CandidateBook{
		"Frank Herbert": {
			{Title: "Dune", Author: "Frank Herbert"},
			{Title: "Dune Messiah", Author: "Frank Herbert"},
		},
	}}
	expander := NewExpanderService(searcher, 30, discardLogger())

	seen := map[string]bool{CandidateKey("Dune", "Frank Herbert"): true}
	expanded := expander.Expand(context.Background(),
		&domain.PreferenceProfile{Authors: []string{"Frank Herbert"}}, seen)

	require.Len(t, expanded, 1)
	assert.Equal(t, "Dune Messiah", expanded[0].Title)
}

func TestExpand_SkipsFailedTerms(t *testing.T) {
	searcher := &fakeSearcher{
		results: map[string][]domain.CandidateBook{
			"Good Author": {{Title: "Good Book", Author: "Good Author"}},
		},
		errs: map[string]error{"Bad Author": fmt.Errorf("upstream down")},
	}
	expander := NewExpanderService(searcher, 30, discardLogger())

	expanded := expander.Expand(context.Background(),
		&domain.PreferenceProfile{Authors: []string{"Bad Author", "Good Author"}}, nil)

	require.Len(t, expanded, 1)
	assert.Equal(t, "Good Book", expanded[0].Title)
}

func TestExpand_LimitsTermsPerKind(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]domain.CandidateBook{}}
	var authors []string
	for i := 0; i < 8; i++ {
		term := fmt.Sprintf("Author %d", i)
		authors = append(authors, term)
		searcher.results[term] = booksFor(term, 1)
	}
	expander := NewExpanderService(searcher, 30, discardLogger())

	expanded := expander.Expand(context.Background(), &domain.PreferenceProfile{Authors: authors}, nil)
	assert.Len(t, expanded, 5, "only the first five favorite authors are searched")
}

func TestExpand_NilPreferences(t *testing.T) {
	expander := NewExpanderService(&fakeSearcher{}, 30, discardLogger())
	assert.Empty(t, expander.Expand(context.Background(), nil, nil))
}
