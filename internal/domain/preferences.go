package domain

import "time"

// GoodreadsRow is one imported row from a Goodreads library export.
type GoodreadsRow struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	MyRating    int    `json:"my_rating"` // 0 means unrated
	Bookshelves string `json:"bookshelves,omitempty"`
}

// PreferenceProfile holds a user's declared and imported reading preferences.
// Exactly one profile exists per device.
type PreferenceProfile struct {
	DeviceID  string         `json:"device_id" validate:"required,max=128"`
	Genres    []string       `json:"genres,omitempty" validate:"max=50,dive,max=100"`
	Authors   []string       `json:"authors,omitempty" validate:"max=50,dive,max=200"`
	Books     []string       `json:"books,omitempty" validate:"max=50,dive,max=300"`
	Goodreads []GoodreadsRow `json:"goodreads,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp to the current time.
func (p *PreferenceProfile) Touch() {
	p.UpdatedAt = time.Now()
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
func (p *PreferenceProfile) InitTimestamps() {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
}

// Empty reports whether the profile carries no preference signal at all.
func (p *PreferenceProfile) Empty() bool {
	return len(p.Genres) == 0 && len(p.Authors) == 0 && len(p.Books) == 0 && len(p.Goodreads) == 0
}

// SavedBook is a join record pinning a cached book to a device.
type SavedBook struct {
	ID       string    `json:"id"`
	DeviceID string    `json:"device_id"`
	BookID   string    `json:"book_id"`
	SavedAt  time.Time `json:"saved_at"`
}
