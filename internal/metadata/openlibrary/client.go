// Package openlibrary provides a rate-limited client for the Open Library
// search API, used as a fallback when Google Books returns nothing.
package openlibrary

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shelfscout/shelfscout-server/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	coverBaseURL   = "https://covers.openlibrary.org/b/id"
)

// Client queries the Open Library search API.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
	baseURL     string
}

// NewClient creates an Open Library client. Open Library asks for gentle
// traffic, so pacing is one request per second with a burst of 3.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		rateLimiter: rate.NewLimiter(rate.Every(time.Second), 3),
		logger:      logger,
		baseURL:     baseURL,
	}
}

type searchResponse struct {
	NumFound int   `json:"numFound"`
	Docs     []doc `json:"docs"`
}

type doc struct {
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	ISBN       []string `json:"isbn"`
	CoverID    int64    `json:"cover_i"`
	Subject    []string `json:"subject"`
}

// SearchByTitle searches works by title.
func (c *Client) SearchByTitle(ctx context.Context, title string, limit int) ([]domain.CandidateBook, error) {
	params := url.Values{}
	params.Set("title", title)
	return c.search(ctx, params, limit)
}

// SearchByAuthor searches works by author name.
func (c *Client) SearchByAuthor(ctx context.Context, author string, limit int) ([]domain.CandidateBook, error) {
	params := url.Values{}
	params.Set("author", author)
	return c.search(ctx, params, limit)
}

func (c *Client) search(ctx context.Context, params url.Values, limit int) ([]domain.CandidateBook, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	if limit <= 0 || limit > 50 {
		limit = 50
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", "title,author_name,isbn,cover_i,subject")

	searchURL := c.baseURL + "/search.json?" + params.Encode()

	c.logger.Debug("searching open library", "params", params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Shelfscout/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed: status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.UnmarshalRead(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	c.logger.Debug("open library results", "count", len(result.Docs))

	candidates := make([]domain.CandidateBook, 0, len(result.Docs))
	for _, d := range result.Docs {
		if d.Title == "" {
			continue
		}
		candidate := domain.CandidateBook{
			Title:      d.Title,
			Author:     strings.Join(d.AuthorName, ", "),
			Categories: d.Subject,
		}
		if len(d.ISBN) > 0 {
			candidate.ISBN = d.ISBN[0]
		}
		if d.CoverID > 0 {
			candidate.CoverURL = fmt.Sprintf("%s/%d-M.jpg", coverBaseURL, d.CoverID)
		}
		candidates = append(candidates, candidate)
	}
	return candidates, nil
}
