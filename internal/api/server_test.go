package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"encoding/json/v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	"github.com/shelfscout/shelfscout-server/internal/ratelimit"
	"github.com/shelfscout/shelfscout-server/internal/search"
	"github.com/shelfscout/shelfscout-server/internal/service"
	"github.com/shelfscout/shelfscout-server/internal/store"
)

type stubSearcher struct {
	results map[string][]domain.CandidateBook
}

func (f *stubSearcher) SearchByTitle(ctx context.Context, title string, limit int) ([]domain.CandidateBook, error) {
	return f.results[title], nil
}

type stubGenerator struct{}

func (stubGenerator) GenerateRating(ctx context.Context, title, author string) (string, error) {
	return "4.5", nil
}

func (stubGenerator) GenerateSummary(ctx context.Context, title, author string) (string, error) {
	return "A stub summary.", nil
}

func (stubGenerator) Configured() bool { return true }

func setupTestServer(t *testing.T, searcher service.CandidateSearcher) (*Server, *store.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := store.New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	idx, err := search.NewIndex(search.Options{DataPath: t.TempDir(), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	s.SetSearchIndexer(idx)

	limiter := ratelimit.New(ratelimit.NewMemoryStore(), map[string]ratelimit.Quota{
		service.APIOpenAI:      {PerMinute: 60, PerDay: 12000},
		service.APIGoogleBooks: {PerMinute: 100, PerDay: 5000},
		service.APIOpenLibrary: {PerMinute: 60, PerDay: 2000},
	}, logger)

	enricher := service.NewEnrichmentService(s, stubGenerator{}, limiter, logger)
	expander := service.NewExpanderService(searcher, 30, logger)
	services := &Services{
		Recommendation: service.NewRecommendationService(searcher, enricher, expander, 5, logger),
		Preference:     service.NewPreferenceService(s, logger),
		SavedBook:      service.NewSavedBookService(s, logger),
	}

	return NewServer(s, services, idx, limiter, logger), s
}

func doRequest(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	server, _ := setupTestServer(t, &stubSearcher{})

	rec := doRequest(t, server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestPreferencesRoundTrip(t *testing.T) {
	server, _ := setupTestServer(t, &stubSearcher{})

	rec := doRequest(t, server, http.MethodPut, "/api/v1/preferences/device-1",
		`{"genres": ["Science Fiction"], "authors": ["Ursula K. Le Guin"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, server, http.MethodGet, "/api/v1/preferences/device-1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got PreferenceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "device-1", got.DeviceID)
	assert.Equal(t, []string{"Science Fiction"}, got.Genres)
}

func TestGetPreferences_NotFound(t *testing.T) {
	server, _ := setupTestServer(t, &stubSearcher{})

	rec := doRequest(t, server, http.MethodGet, "/api/v1/preferences/ghost", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportGoodreads(t *testing.T) {
	server, _ := setupTestServer(t, &stubSearcher{})

	csvBody := "Title,Author,My Rating,Bookshelves\nDune,Frank Herbert,5,read\n"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/preferences/device-1/goodreads",
		strings.NewReader(csvBody))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"imported":1`)
}

func TestBuildRecommendations(t *testing.T) {
	searcher := &stubSearcher{results: map[string][]domain.CandidateBook{
		"Leviathan Wakes": {{
			Title: "Leviathan Wakes", Author: "James S.A. Corey",
			Categories: []string{"Science Fiction"},
		}},
	}}
	server, _ := setupTestServer(t, searcher)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/recommendations",
		`{"titles": ["Leviathan Wakes"], "preferences": {"genres": ["Science Fiction"]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got RecommendationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Recommendations, 1)

	item := got.Recommendations[0]
	assert.Equal(t, "Leviathan Wakes", item.Title)
	// 4.5 curated rating + 10 genre bonus, rounded for display.
	assert.Equal(t, 15, item.MatchScore)
	assert.Contains(t, item.MatchReason, "Science Fiction")
	assert.True(t, item.FromShelf)
}

func TestSavedBooks(t *testing.T) {
	server, s := setupTestServer(t, &stubSearcher{})
	ctx := context.Background()

	cached, err := s.CacheBook(ctx, &domain.BookRecord{
		Title: "Dune", Author: "Frank Herbert", Rating: "4.8", Source: domain.SourceOpenAI,
	})
	require.NoError(t, err)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/devices/device-1/saved-books",
		`{"book_id": "`+cached.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, server, http.MethodGet, "/api/v1/devices/device-1/saved-books", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dune")

	// Pinning an uncached book fails.
	rec = doRequest(t, server, http.MethodPost, "/api/v1/devices/device-1/saved-books",
		`{"book_id": "book_not_cached"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchBooks(t *testing.T) {
	server, s := setupTestServer(t, &stubSearcher{})

	_, err := s.CacheBook(context.Background(), &domain.BookRecord{
		Title: "Hyperion", Author: "Dan Simmons", Source: domain.SourceOpenAI,
	})
	require.NoError(t, err)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/books/search?q=hyperion", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Hyperion")
}

func TestAdminUsage(t *testing.T) {
	server, _ := setupTestServer(t, &stubSearcher{})

	rec := doRequest(t, server, http.MethodGet, "/api/v1/admin/usage", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "openai")
}
