// Package search provides full-text search over the book cache using Bleve.
// Cached books are indexed as they are written, so the search surface always
// reflects what enrichment has already paid for.
package search

import (
	"strconv"

	"github.com/shelfscout/shelfscout-server/internal/domain"
)

// Document is the Bleve document shape for a cached book.
type Document struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Summary  string  `json:"summary,omitempty"`
	ISBN     string  `json:"isbn,omitempty"`
	Source   string  `json:"source,omitempty"`
	Rating   float64 `json:"rating,omitempty"`
	CachedAt int64   `json:"cached_at"`
}

// ToMap converts the document to a map with lowercase field names so they
// match the index mapping. Bleve would otherwise index Go field names.
func (d *Document) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":        d.ID,
		"title":     d.Title,
		"author":    d.Author,
		"cached_at": d.CachedAt,
	}
	if d.Summary != "" {
		m["summary"] = d.Summary
	}
	if d.ISBN != "" {
		m["isbn"] = d.ISBN
	}
	if d.Source != "" {
		m["source"] = d.Source
	}
	if d.Rating > 0 {
		m["rating"] = d.Rating
	}
	return m
}

// FromBookRecord converts a cached book record into its search document.
func FromBookRecord(rec *domain.BookRecord) *Document {
	doc := &Document{
		ID:       rec.ID,
		Title:    rec.Title,
		Author:   rec.Author,
		Summary:  rec.Summary,
		ISBN:     rec.ISBN,
		Source:   string(rec.Source),
		CachedAt: rec.CachedAt.UnixMilli(),
	}
	if rec.Rating != "" {
		if rating, err := strconv.ParseFloat(rec.Rating, 64); err == nil {
			doc.Rating = rating
		}
	}
	return doc
}
