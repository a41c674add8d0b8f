package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/shelfscout/shelfscout-server/internal/domain"
)

const (
	bookCachePrefix  = "bookcache:"
	bookByISBNPrefix = "idx:bookcache:isbn:"
)

// Book cache operations.
//
// The read path is fail-soft: a storage error is logged and reported as a
// miss so the caller falls through to external enrichment.

// FindInCache looks up a cached book by title and author.
// An exact match (case-insensitive title equality, author equal or
// containing in either direction) wins over a partial match (title or
// author substring in either direction). Expired records are ignored.
func (s *Store) FindInCache(ctx context.Context, title, author string) *domain.BookRecord {
	records, err := s.listBooks(ctx)
	if err != nil {
		s.logger.Error("book cache scan failed, treating as miss",
			"title", title, "error", err)
		return nil
	}

	now := time.Now()
	wantTitle := strings.ToLower(strings.TrimSpace(title))
	wantAuthor := strings.ToLower(strings.TrimSpace(author))

	// Exact pass first.
	for _, rec := range records {
		if rec.Expired(now) {
			continue
		}
		haveTitle := strings.ToLower(rec.Title)
		haveAuthor := strings.ToLower(rec.Author)
		if haveTitle == wantTitle && authorsMatch(haveAuthor, wantAuthor) {
			return rec
		}
	}

	// Partial pass: either field may be a substring in either direction.
	for _, rec := range records {
		if rec.Expired(now) {
			continue
		}
		haveTitle := strings.ToLower(rec.Title)
		haveAuthor := strings.ToLower(rec.Author)
		if containsEither(haveTitle, wantTitle) || containsEither(haveAuthor, wantAuthor) {
			return rec
		}
	}

	return nil
}

// FindByISBN looks up a cached book by ISBN. ISBNs shorter than 10
// characters are rejected as too ambiguous. Expired records are ignored.
func (s *Store) FindByISBN(ctx context.Context, isbn string) *domain.BookRecord {
	cleaned := domain.DeriveBookID("", "", isbn)
	if !strings.HasPrefix(cleaned, "isbn_") || len(cleaned) < len("isbn_")+10 {
		return nil
	}

	var bookID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(bookByISBNPrefix + cleaned))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			bookID = string(val)
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			s.logger.Error("isbn index read failed, treating as miss",
				"isbn", isbn, "error", err)
		}
		return nil
	}

	var rec domain.BookRecord
	if err := s.get([]byte(bookCachePrefix+bookID), &rec); err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Error("book cache read failed, treating as miss",
				"book_id", bookID, "error", err)
		}
		return nil
	}
	if rec.Expired(time.Now()) {
		return nil
	}
	return &rec
}

// GetBook retrieves a cached book by its derived ID, including expired ones.
func (s *Store) GetBook(ctx context.Context, bookID string) (*domain.BookRecord, error) {
	var rec domain.BookRecord
	if err := s.get([]byte(bookCachePrefix+bookID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CacheBook upserts a book record keyed by its derived ID.
// Incoming non-empty fields overwrite, empty fields preserve the existing
// value, and CachedAt is always refreshed. Returns the stored record.
func (s *Store) CacheBook(ctx context.Context, data *domain.BookRecord) (*domain.BookRecord, error) {
	bookID := domain.DeriveBookID(data.Title, data.Author, data.ISBN)
	key := []byte(bookCachePrefix + bookID)

	var stored domain.BookRecord
	err := s.db.Update(func(txn *badger.Txn) error {
		existing := &domain.BookRecord{}
		item, err := txn.Get(key)
		switch {
		case err == nil:
			valErr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, existing)
			})
			if valErr != nil {
				return fmt.Errorf("unmarshal existing record: %w", valErr)
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			existing = nil
		default:
			return fmt.Errorf("read existing record: %w", err)
		}

		stored = mergeBookRecord(existing, data)
		stored.ID = bookID
		stored.CachedAt = time.Now()

		payload, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if err := txn.Set(key, payload); err != nil {
			return err
		}

		if stored.ISBN != "" {
			isbnKey := domain.DeriveBookID("", "", stored.ISBN)
			if strings.HasPrefix(isbnKey, "isbn_") {
				if err := txn.Set([]byte(bookByISBNPrefix+isbnKey), []byte(bookID)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cache book: %w", err)
	}

	if err := s.searchIndexer.IndexBook(ctx, &stored); err != nil {
		s.logger.Warn("search indexing failed", "book_id", bookID, "error", err)
	}

	s.logger.Debug("book cached", "book_id", bookID, "source", string(stored.Source))
	return &stored, nil
}

// CleanupExpired deletes every record whose TTL has elapsed.
// Safe to run periodically; returns the number of records removed.
func (s *Store) CleanupExpired(ctx context.Context) (int, error) {
	records, err := s.listBooks(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan cache: %w", err)
	}

	now := time.Now()
	removed := 0
	for _, rec := range records {
		if !rec.Expired(now) {
			continue
		}
		err := s.db.Update(func(txn *badger.Txn) error {
			if err := txn.Delete([]byte(bookCachePrefix + rec.ID)); err != nil {
				return err
			}
			if rec.ISBN != "" {
				isbnKey := domain.DeriveBookID("", "", rec.ISBN)
				if err := txn.Delete([]byte(bookByISBNPrefix + isbnKey)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return removed, fmt.Errorf("delete expired record %s: %w", rec.ID, err)
		}
		if idxErr := s.searchIndexer.DeleteBook(ctx, rec.ID); idxErr != nil {
			s.logger.Warn("search deindex failed", "book_id", rec.ID, "error", idxErr)
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("expired cache records removed", "count", removed)
	}
	return removed, nil
}

// CleanupNonOpenAIRatings clears the rating on every record whose rating
// did not come from the LLM. Run at startup so displayed ratings are only
// ever curated ones, never upstream catalog metadata.
func (s *Store) CleanupNonOpenAIRatings(ctx context.Context) (int, error) {
	records, err := s.listBooks(ctx)
	if err != nil {
		return 0, fmt.Errorf("scan cache: %w", err)
	}

	cleared := 0
	for _, rec := range records {
		if rec.Rating == "" || rec.Source.Trusted() {
			continue
		}
		rec.Rating = ""
		if err := s.set([]byte(bookCachePrefix+rec.ID), rec); err != nil {
			return cleared, fmt.Errorf("clear rating on %s: %w", rec.ID, err)
		}
		cleared++
	}

	if cleared > 0 {
		s.logger.Info("untrusted ratings cleared", "count", cleared)
	}
	return cleared, nil
}

// ListAllBooks returns every cached record, including expired ones.
// Used for bulk reindexing.
func (s *Store) ListAllBooks(ctx context.Context) ([]*domain.BookRecord, error) {
	return s.listBooks(ctx)
}

// listBooks scans every cached record.
func (s *Store) listBooks(ctx context.Context) ([]*domain.BookRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []*domain.BookRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bookCachePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var rec domain.BookRecord
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// mergeBookRecord applies upsert semantics: incoming non-empty fields win,
// empty fields keep what the cache already holds.
func mergeBookRecord(existing, incoming *domain.BookRecord) domain.BookRecord {
	if existing == nil {
		return *incoming
	}

	merged := *existing
	if incoming.Title != "" {
		merged.Title = incoming.Title
	}
	if incoming.Author != "" {
		merged.Author = incoming.Author
	}
	if incoming.ISBN != "" {
		merged.ISBN = incoming.ISBN
	}
	if incoming.CoverURL != "" {
		merged.CoverURL = incoming.CoverURL
	}
	if incoming.Rating != "" {
		merged.Rating = incoming.Rating
	}
	if incoming.Summary != "" {
		merged.Summary = incoming.Summary
	}
	if incoming.Source != domain.SourceUnknown {
		merged.Source = incoming.Source
	}
	if len(incoming.Metadata) > 0 {
		merged.Metadata = incoming.Metadata
	}
	if incoming.ExpiresAt != nil {
		merged.ExpiresAt = incoming.ExpiresAt
	}
	return merged
}

func authorsMatch(have, want string) bool {
	if have == want {
		return true
	}
	return containsEither(have, want)
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
