package googlebooks

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const volumesFixture = `{
	"totalItems": 2,
	"items": [
		{
			"id": "v1",
			"volumeInfo": {
				"title": "Leviathan Wakes",
				"authors": ["James S.A. Corey"],
				"description": "<p>Humanity has colonized the <b>solar system</b>.</p>",
				"categories": ["Fiction / Science Fiction"],
				"imageLinks": {"thumbnail": "http://books.google.com/cover1.jpg"},
				"industryIdentifiers": [
					{"type": "ISBN_10", "identifier": "0316129089"},
					{"type": "ISBN_13", "identifier": "9780316129084"}
				]
			}
		},
		{
			"id": "v2",
			"volumeInfo": {
				"title": "Caliban's War",
				"authors": ["James S.A. Corey"]
			}
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSearchByAuthor(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(volumesFixture))
	})

	candidates, err := client.SearchByAuthor(context.Background(), "James S.A. Corey", 10)
	require.NoError(t, err)
	assert.Equal(t, "inauthor:James S.A. Corey", gotQuery)
	require.Len(t, candidates, 2)

	first := candidates[0]
	assert.Equal(t, "Leviathan Wakes", first.Title)
	assert.Equal(t, "James S.A. Corey", first.Author)
	assert.Equal(t, "9780316129084", first.ISBN, "ISBN-13 preferred over ISBN-10")
	assert.Equal(t, "https://books.google.com/cover1.jpg", first.CoverURL)
	assert.Equal(t, []string{"Fiction / Science Fiction"}, first.Categories)

	// HTML stripped from the description.
	assert.NotContains(t, first.Summary, "<p>")
	assert.Contains(t, first.Summary, "solar system")
}

func TestSearchByTitle_PrefixesQuery(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`{"totalItems": 0}`))
	})

	candidates, err := client.SearchByTitle(context.Background(), "Dune", 5)
	require.NoError(t, err)
	assert.Equal(t, "intitle:Dune", gotQuery)
	assert.Empty(t, candidates)
}

func TestSearch_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Search(context.Background(), "dune", 5)
	assert.Error(t, err)
}

func TestSearch_SkipsUntitledVolumes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"totalItems": 1, "items": [{"id": "v1", "volumeInfo": {"authors": ["Nobody"]}}]}`))
	})

	candidates, err := client.Search(context.Background(), "whatever", 5)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
