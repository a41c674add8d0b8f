package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	domainerrors "github.com/shelfscout/shelfscout-server/internal/errors"
	"github.com/shelfscout/shelfscout-server/internal/store"
)

// SavedBookService lets a device pin recommendations for later.
type SavedBookService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewSavedBookService creates a saved-book service.
func NewSavedBookService(store *store.Store, logger *slog.Logger) *SavedBookService {
	return &SavedBookService{store: store, logger: logger}
}

// SavedBookDetail pairs a pin with its cached record, when still cached.
type SavedBookDetail struct {
	domain.SavedBook
	Book *domain.BookRecord `json:"book,omitempty"`
}

// Save pins a cached book. The book must exist in the cache; pins reference
// records by derived ID, not free-form titles.
func (s *SavedBookService) Save(ctx context.Context, deviceID, bookID string) (*domain.SavedBook, error) {
	if deviceID == "" || bookID == "" {
		return nil, domainerrors.Validation("device id and book id are required")
	}

	if _, err := s.store.GetBook(ctx, bookID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("book not in cache")
		}
		return nil, domainerrors.Internal("look up book", err)
	}

	saved, err := s.store.SaveBook(ctx, deviceID, bookID)
	if err != nil {
		return nil, domainerrors.Internal("save book", err)
	}
	return saved, nil
}

// Remove deletes a pin. Removing a missing pin succeeds.
func (s *SavedBookService) Remove(ctx context.Context, deviceID, bookID string) error {
	if deviceID == "" || bookID == "" {
		return domainerrors.Validation("device id and book id are required")
	}
	if err := s.store.RemoveSavedBook(ctx, deviceID, bookID); err != nil {
		return domainerrors.Internal("remove saved book", err)
	}
	return nil
}

// List returns the device's pins with cached records attached. A pin whose
// record has since expired out of the cache is returned bare.
func (s *SavedBookService) List(ctx context.Context, deviceID string) ([]SavedBookDetail, error) {
	if deviceID == "" {
		return nil, domainerrors.Validation("device id is required")
	}

	saved, err := s.store.ListSavedBooks(ctx, deviceID)
	if err != nil {
		return nil, domainerrors.Internal("list saved books", err)
	}

	details := make([]SavedBookDetail, 0, len(saved))
	for _, pin := range saved {
		detail := SavedBookDetail{SavedBook: *pin}
		if book, err := s.store.GetBook(ctx, pin.BookID); err == nil {
			detail.Book = book
		}
		details = append(details, detail)
	}
	return details, nil
}
