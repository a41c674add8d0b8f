package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout-server/internal/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestCacheBook_Insert(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	rec, err := s.CacheBook(ctx, &domain.BookRecord{
		Title:  "Leviathan Wakes",
		Author: "James S.A. Corey",
		ISBN:   "9780316129084",
		Rating: "4.5",
		Source: domain.SourceOpenAI,
	})
	require.NoError(t, err)
	assert.Equal(t, "isbn_9780316129084", rec.ID)
	assert.False(t, rec.CachedAt.IsZero())
}

func TestCacheBook_UpsertIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	data := &domain.BookRecord{
		Title:   "Dune",
		Author:  "Frank Herbert",
		Rating:  "4.8",
		Summary: "Desert planet politics.",
		Source:  domain.SourceOpenAI,
	}

	first, err := s.CacheBook(ctx, data)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	second, err := s.CacheBook(ctx, data)
	require.NoError(t, err)

	// Same derived key, one record, refreshed CachedAt, fields unchanged.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Rating, second.Rating)
	assert.Equal(t, first.Summary, second.Summary)
	assert.True(t, second.CachedAt.After(first.CachedAt))

	records, err := s.listBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCacheBook_EmptyFieldsPreserveExisting(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.CacheBook(ctx, &domain.BookRecord{
		Title:    "Dune",
		Author:   "Frank Herbert",
		Rating:   "4.8",
		Summary:  "Desert planet politics.",
		CoverURL: "https://covers.example/dune.jpg",
		Source:   domain.SourceOpenAI,
	})
	require.NoError(t, err)

	// Fresher write with only a summary must not clobber rating or cover.
	updated, err := s.CacheBook(ctx, &domain.BookRecord{
		Title:   "Dune",
		Author:  "Frank Herbert",
		Summary: "A longer, better summary.",
	})
	require.NoError(t, err)

	assert.Equal(t, "4.8", updated.Rating)
	assert.Equal(t, "https://covers.example/dune.jpg", updated.CoverURL)
	assert.Equal(t, "A longer, better summary.", updated.Summary)
	assert.Equal(t, domain.SourceOpenAI, updated.Source)
}

func TestFindInCache_ExactBeatsPartial(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.CacheBook(ctx, &domain.BookRecord{Title: "Dune Messiah", Author: "Frank Herbert"})
	require.NoError(t, err)
	_, err = s.CacheBook(ctx, &domain.BookRecord{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)

	found := s.FindInCache(ctx, "dune", "frank herbert")
	require.NotNil(t, found)
	assert.Equal(t, "Dune", found.Title)
}

func TestFindInCache_PartialFallback(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.CacheBook(ctx, &domain.BookRecord{Title: "The Left Hand of Darkness", Author: "Ursula K. Le Guin"})
	require.NoError(t, err)

	// No exact title match, but the lookup title is a substring.
	found := s.FindInCache(ctx, "Left Hand of Darkness", "Le Guin")
	require.NotNil(t, found)
	assert.Equal(t, "The Left Hand of Darkness", found.Title)
}

func TestFindInCache_Miss(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	assert.Nil(t, s.FindInCache(ctx, "Nonexistent", "Nobody"))
}

func TestFindInCache_SkipsExpired(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	_, err := s.CacheBook(ctx, &domain.BookRecord{
		Title:     "Hyperion",
		Author:    "Dan Simmons",
		ExpiresAt: &past,
	})
	require.NoError(t, err)

	assert.Nil(t, s.FindInCache(ctx, "Hyperion", "Dan Simmons"))
}

func TestFindByISBN(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.CacheBook(ctx, &domain.BookRecord{
		Title:  "Leviathan Wakes",
		Author: "James S.A. Corey",
		ISBN:   "978-0-316-12908-4",
	})
	require.NoError(t, err)

	// Hyphenation differences must not matter.
	found := s.FindByISBN(ctx, "9780316129084")
	require.NotNil(t, found)
	assert.Equal(t, "Leviathan Wakes", found.Title)

	// Too-short ISBNs are rejected.
	assert.Nil(t, s.FindByISBN(ctx, "12345"))
}

func TestCleanupExpired(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	_, err := s.CacheBook(ctx, &domain.BookRecord{Title: "Old", Author: "A", ExpiresAt: &past})
	require.NoError(t, err)
	_, err = s.CacheBook(ctx, &domain.BookRecord{Title: "Fresh", Author: "B", ExpiresAt: &future})
	require.NoError(t, err)
	_, err = s.CacheBook(ctx, &domain.BookRecord{Title: "Forever", Author: "C"})
	require.NoError(t, err)

	removed, err := s.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	records, err := s.listBooks(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestCleanupNonOpenAIRatings(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.CacheBook(ctx, &domain.BookRecord{
		Title: "Untrusted", Author: "A", Rating: "4.1", Source: domain.SourceGoogle,
	})
	require.NoError(t, err)
	_, err = s.CacheBook(ctx, &domain.BookRecord{
		Title: "NoSource", Author: "B", Rating: "3.9",
	})
	require.NoError(t, err)
	_, err = s.CacheBook(ctx, &domain.BookRecord{
		Title: "Curated", Author: "C", Rating: "4.7", Source: domain.SourceOpenAI,
	})
	require.NoError(t, err)

	cleared, err := s.CleanupNonOpenAIRatings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)

	untrusted := s.FindInCache(ctx, "Untrusted", "A")
	require.NotNil(t, untrusted)
	assert.Empty(t, untrusted.Rating)

	curated := s.FindInCache(ctx, "Curated", "C")
	require.NotNil(t, curated)
	assert.Equal(t, "4.7", curated.Rating)
}
