// Package domain contains the core business entities for the shelfscout recommendation engine.
package domain

import (
	"strings"
	"time"
)

// Source identifies which system produced a cached field.
// Only SourceOpenAI ratings and summaries are trusted for display;
// upstream catalog metadata is kept for matching but never surfaced.
type Source string

// Known provenance tags.
const (
	SourceUnknown     Source = ""
	SourceGoogle      Source = "google"
	SourceAmazon      Source = "amazon"
	SourceOpenLibrary Source = "openlibrary"
	SourceOpenAI      Source = "openai"
)

// Valid reports whether s is a known provenance tag.
func (s Source) Valid() bool {
	switch s {
	case SourceUnknown, SourceGoogle, SourceAmazon, SourceOpenLibrary, SourceOpenAI:
		return true
	}
	return false
}

// Trusted reports whether ratings and summaries from this source may be
// served to users. This is a product policy, not a data-quality heuristic:
// upstream catalogs carry ratings we deliberately discard.
func (s Source) Trusted() bool {
	switch s {
	case SourceOpenAI:
		return true
	case SourceUnknown, SourceGoogle, SourceAmazon, SourceOpenLibrary:
		return false
	}
	return false
}

// BookRecord is a cached, enriched book. One record exists per derived ID.
type BookRecord struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Author    string            `json:"author"`
	ISBN      string            `json:"isbn,omitempty"`
	CoverURL  string            `json:"cover_url,omitempty"`
	Rating    string            `json:"rating,omitempty"` // numeric string "1.0".."5.0"
	Summary   string            `json:"summary,omitempty"`
	Source    Source            `json:"source,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"` // publisher, categories, ...
	CachedAt  time.Time         `json:"cached_at"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"` // nil means never expires
}

// Expired reports whether the record's TTL has elapsed at the given time.
func (r *BookRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}

// DeriveBookID computes the cache's dedup key.
// An ISBN wins when present: "isbn_" plus its digits (and X check digit).
// Otherwise the key is "book_<title>_<author>" with both parts lowercased
// and every non-alphanumeric run collapsed to an underscore.
func DeriveBookID(title, author, isbn string) string {
	if cleaned := cleanISBN(isbn); cleaned != "" {
		return "isbn_" + cleaned
	}
	return "book_" + keyPart(title) + "_" + keyPart(author)
}

// cleanISBN keeps digits and the X check digit, lowercase x folded to X.
func cleanISBN(isbn string) string {
	var b strings.Builder
	for _, r := range isbn {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'X' || r == 'x':
			b.WriteRune('X')
		}
	}
	return b.String()
}

func keyPart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
