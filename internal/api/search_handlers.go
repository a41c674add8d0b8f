package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfscout/shelfscout-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search-books",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/search",
		Summary:     "Search cached books",
		Description: "Full-text search over the enrichment cache",
		Tags:        []string{"Search"},
	}, s.handleSearchBooks)
}

// === DTOs ===

// SearchBooksInput contains the search parameters.
type SearchBooksInput struct {
	Query  string `query:"q" minLength:"1" maxLength:"200" doc:"Search query"`
	Source string `query:"source" maxLength:"32" doc:"Filter by provenance (google, amazon, open-library, openai)"`
	Limit  int    `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Max results"`
	Offset int    `query:"offset" minimum:"0" default:"0" doc:"Pagination offset"`
}

// SearchBookHit is one matched cached book.
type SearchBookHit struct {
	ID         string            `json:"id" doc:"Derived book identifier"`
	Score      float64           `json:"score" doc:"Relevance score"`
	Title      string            `json:"title" doc:"Book title"`
	Author     string            `json:"author,omitempty" doc:"Author"`
	ISBN       string            `json:"isbn,omitempty" doc:"ISBN"`
	Source     string            `json:"source,omitempty" doc:"Record provenance"`
	Rating     float64           `json:"rating,omitempty" doc:"Curated rating"`
	Highlights map[string]string `json:"highlights,omitempty" doc:"Highlighted matches"`
}

// SearchBooksOutput wraps the search results for Huma.
type SearchBooksOutput struct {
	Body struct {
		Query  string          `json:"query" doc:"Original query"`
		Total  uint64          `json:"total" doc:"Total matches"`
		TookMs int64           `json:"took_ms" doc:"Search duration in milliseconds"`
		Hits   []SearchBookHit `json:"hits" doc:"Matched books"`
	}
}

// === Handlers ===

func (s *Server) handleSearchBooks(ctx context.Context, input *SearchBooksInput) (*SearchBooksOutput, error) {
	params := search.DefaultParams()
	params.Query = input.Query
	params.Source = input.Source
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset

	result, err := s.searchIndex.Search(ctx, params)
	if err != nil {
		s.logger.Error("book search failed", "query", input.Query, "error", err)
		return nil, s.apiError(err)
	}

	out := &SearchBooksOutput{}
	out.Body.Query = result.Query
	out.Body.Total = result.Total
	out.Body.TookMs = result.TookMs
	out.Body.Hits = make([]SearchBookHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		out.Body.Hits = append(out.Body.Hits, SearchBookHit{
			ID:         hit.ID,
			Score:      hit.Score,
			Title:      hit.Title,
			Author:     hit.Author,
			ISBN:       hit.ISBN,
			Source:     hit.Source,
			Rating:     hit.Rating,
			Highlights: hit.Highlights,
		})
	}
	return out, nil
}
