package googlebooks

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/shelfscout/shelfscout-server/internal/domain"
)

const maxResultsPerQuery = 40

// SearchByTitle searches volumes by free-text title query.
func (c *Client) SearchByTitle(ctx context.Context, title string, limit int) ([]domain.CandidateBook, error) {
	return c.search(ctx, "intitle:"+title, limit)
}

// SearchByAuthor searches volumes written by the given author.
func (c *Client) SearchByAuthor(ctx context.Context, author string, limit int) ([]domain.CandidateBook, error) {
	return c.search(ctx, "inauthor:"+author, limit)
}

// Search runs a plain free-text volumes query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]domain.CandidateBook, error) {
	return c.search(ctx, query, limit)
}

func (c *Client) search(ctx context.Context, query string, limit int) ([]domain.CandidateBook, error) {
	if err := c.wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	if limit <= 0 || limit > maxResultsPerQuery {
		limit = maxResultsPerQuery
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("printType", "books")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	searchURL := c.baseURL + "/volumes?" + params.Encode()

	c.logger.Debug("searching google books", "query", query, "limit", limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search failed: status %d", resp.StatusCode)
	}

	var volumes volumesResponse
	if err := json.UnmarshalRead(resp.Body, &volumes); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	c.logger.Debug("google books results", "query", query, "count", len(volumes.Items))

	candidates := make([]domain.CandidateBook, 0, len(volumes.Items))
	for i := range volumes.Items {
		info := &volumes.Items[i].VolumeInfo
		if info.Title == "" {
			continue
		}
		candidates = append(candidates, domain.CandidateBook{
			Title:      info.Title,
			Author:     strings.Join(info.Authors, ", "),
			ISBN:       pickISBN(info.IndustryIdentifiers),
			CoverURL:   pickCoverURL(info.ImageLinks),
			Summary:    cleanDescription(info.Description),
			Categories: info.Categories,
		})
	}
	return candidates, nil
}

// pickISBN prefers ISBN-13 over ISBN-10.
func pickISBN(ids []industryIdentifier) string {
	var isbn10 string
	for _, id := range ids {
		switch id.Type {
		case "ISBN_13":
			return id.Identifier
		case "ISBN_10":
			isbn10 = id.Identifier
		}
	}
	return isbn10
}

// pickCoverURL upgrades thumbnail links to https.
func pickCoverURL(links *imageLinks) string {
	if links == nil {
		return ""
	}
	cover := links.Thumbnail
	if cover == "" {
		cover = links.SmallThumbnail
	}
	return strings.Replace(cover, "http://", "https://", 1)
}

// cleanDescription converts the HTML descriptions the volumes API returns
// into plain markdown. Falls back to the raw text when conversion fails.
func cleanDescription(description string) string {
	if description == "" || !strings.Contains(description, "<") {
		return strings.TrimSpace(description)
	}
	markdown, err := htmltomarkdown.ConvertString(description)
	if err != nil {
		return strings.TrimSpace(description)
	}
	return strings.TrimSpace(markdown)
}
