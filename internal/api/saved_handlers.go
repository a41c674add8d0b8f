package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerSavedBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-saved-books",
		Method:      http.MethodGet,
		Path:        "/api/v1/devices/{deviceId}/saved-books",
		Summary:     "List saved books",
		Tags:        []string{"Saved books"},
	}, s.handleListSavedBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "save-book",
		Method:      http.MethodPost,
		Path:        "/api/v1/devices/{deviceId}/saved-books",
		Summary:     "Save a book",
		Description: "Pins a cached book for the device",
		Tags:        []string{"Saved books"},
	}, s.handleSaveBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "remove-saved-book",
		Method:      http.MethodDelete,
		Path:        "/api/v1/devices/{deviceId}/saved-books/{bookId}",
		Summary:     "Remove a saved book",
		Tags:        []string{"Saved books"},
	}, s.handleRemoveSavedBook)
}

// === DTOs ===

// SavedBookItem is one pin with its cached record when still available.
type SavedBookItem struct {
	ID       string    `json:"id" doc:"Pin identifier"`
	BookID   string    `json:"book_id" doc:"Cached book identifier"`
	SavedAt  time.Time `json:"saved_at" doc:"When the pin was created"`
	Title    string    `json:"title,omitempty" doc:"Book title, when still cached"`
	Author   string    `json:"author,omitempty" doc:"Author, when still cached"`
	CoverURL string    `json:"cover_url,omitempty" doc:"Cover image URL, when still cached"`
	Rating   string    `json:"rating,omitempty" doc:"Curated rating, when still cached"`
	Summary  string    `json:"summary,omitempty" doc:"Curated summary, when still cached"`
}

// ListSavedBooksInput identifies the device.
type ListSavedBooksInput struct {
	DeviceID string `path:"deviceId" maxLength:"128" doc:"Device identifier"`
}

// ListSavedBooksOutput wraps the pins for Huma.
type ListSavedBooksOutput struct {
	Body struct {
		SavedBooks []SavedBookItem `json:"saved_books" doc:"Pinned books in save order"`
	}
}

// SaveBookInput carries the book to pin.
type SaveBookInput struct {
	DeviceID string `path:"deviceId" maxLength:"128" doc:"Device identifier"`
	Body     struct {
		BookID string `json:"book_id" minLength:"1" doc:"Derived book identifier from a recommendation"`
	}
}

// SaveBookOutput confirms the pin.
type SaveBookOutput struct {
	Body SavedBookItem
}

// RemoveSavedBookInput identifies the pin to delete.
type RemoveSavedBookInput struct {
	DeviceID string `path:"deviceId" maxLength:"128" doc:"Device identifier"`
	BookID   string `path:"bookId" maxLength:"256" doc:"Cached book identifier"`
}

// RemoveSavedBookOutput is empty; deletion is idempotent.
type RemoveSavedBookOutput struct{}

// === Handlers ===

func (s *Server) handleListSavedBooks(ctx context.Context, input *ListSavedBooksInput) (*ListSavedBooksOutput, error) {
	details, err := s.services.SavedBook.List(ctx, input.DeviceID)
	if err != nil {
		return nil, s.apiError(err)
	}

	out := &ListSavedBooksOutput{}
	out.Body.SavedBooks = make([]SavedBookItem, 0, len(details))
	for _, detail := range details {
		item := SavedBookItem{
			ID:      detail.ID,
			BookID:  detail.BookID,
			SavedAt: detail.SavedAt,
		}
		if detail.Book != nil {
			item.Title = detail.Book.Title
			item.Author = detail.Book.Author
			item.CoverURL = detail.Book.CoverURL
			item.Rating = detail.Book.Rating
			item.Summary = detail.Book.Summary
		}
		out.Body.SavedBooks = append(out.Body.SavedBooks, item)
	}
	return out, nil
}

func (s *Server) handleSaveBook(ctx context.Context, input *SaveBookInput) (*SaveBookOutput, error) {
	saved, err := s.services.SavedBook.Save(ctx, input.DeviceID, input.Body.BookID)
	if err != nil {
		return nil, s.apiError(err)
	}

	item := SavedBookItem{
		ID:      saved.ID,
		BookID:  saved.BookID,
		SavedAt: saved.SavedAt,
	}
	if book, err := s.store.GetBook(ctx, saved.BookID); err == nil {
		item.Title = book.Title
		item.Author = book.Author
		item.CoverURL = book.CoverURL
		item.Rating = book.Rating
		item.Summary = book.Summary
	}
	return &SaveBookOutput{Body: item}, nil
}

func (s *Server) handleRemoveSavedBook(ctx context.Context, input *RemoveSavedBookInput) (*RemoveSavedBookOutput, error) {
	if err := s.services.SavedBook.Remove(ctx, input.DeviceID, input.BookID); err != nil {
		return nil, s.apiError(err)
	}
	return &RemoveSavedBookOutput{}, nil
}
