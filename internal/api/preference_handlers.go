package api

import (
	"bytes"
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfscout/shelfscout-server/internal/domain"
)

func (s *Server) registerPreferenceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-preferences",
		Method:      http.MethodGet,
		Path:        "/api/v1/preferences/{deviceId}",
		Summary:     "Get preferences",
		Tags:        []string{"Preferences"},
	}, s.handleGetPreferences)

	huma.Register(s.api, huma.Operation{
		OperationID: "save-preferences",
		Method:      http.MethodPut,
		Path:        "/api/v1/preferences/{deviceId}",
		Summary:     "Save preferences",
		Description: "Creates or replaces the device's preference profile",
		Tags:        []string{"Preferences"},
	}, s.handleSavePreferences)

	huma.Register(s.api, huma.Operation{
		OperationID: "import-goodreads",
		Method:      http.MethodPost,
		Path:        "/api/v1/preferences/{deviceId}/goodreads",
		Summary:     "Import Goodreads history",
		Description: "Attaches a Goodreads library export (CSV) to the device's profile",
		Tags:        []string{"Preferences"},
	}, s.handleImportGoodreads)
}

// === DTOs ===

// PreferenceResponse is the stored profile without the raw history rows.
type PreferenceResponse struct {
	DeviceID      string   `json:"device_id" doc:"Device identifier"`
	Genres        []string `json:"genres,omitempty" doc:"Preferred genres"`
	Authors       []string `json:"authors,omitempty" doc:"Favorite authors"`
	Books         []string `json:"books,omitempty" doc:"Favorite book titles"`
	GoodreadsRows int      `json:"goodreads_rows" doc:"Imported history size"`
}

// GetPreferencesInput identifies the device.
type GetPreferencesInput struct {
	DeviceID string `path:"deviceId" maxLength:"128" doc:"Device identifier"`
}

// PreferencesOutput wraps the profile for Huma.
type PreferencesOutput struct {
	Body PreferenceResponse
}

// SavePreferencesInput carries the new profile.
type SavePreferencesInput struct {
	DeviceID string `path:"deviceId" maxLength:"128" doc:"Device identifier"`
	Body     PreferencePayload
}

// ImportGoodreadsInput carries the raw CSV export.
type ImportGoodreadsInput struct {
	DeviceID string `path:"deviceId" maxLength:"128" doc:"Device identifier"`
	RawBody  []byte `contentType:"text/csv"`
}

// ImportGoodreadsOutput reports the import size.
type ImportGoodreadsOutput struct {
	Body struct {
		Imported int `json:"imported" doc:"Number of history rows imported"`
	}
}

// === Handlers ===

func (s *Server) handleGetPreferences(ctx context.Context, input *GetPreferencesInput) (*PreferencesOutput, error) {
	profile, err := s.services.Preference.Get(ctx, input.DeviceID)
	if err != nil {
		return nil, s.apiError(err)
	}
	return &PreferencesOutput{Body: toPreferenceResponse(profile)}, nil
}

func (s *Server) handleSavePreferences(ctx context.Context, input *SavePreferencesInput) (*PreferencesOutput, error) {
	profile, err := s.services.Preference.Save(ctx, &domain.PreferenceProfile{
		DeviceID: input.DeviceID,
		Genres:   input.Body.Genres,
		Authors:  input.Body.Authors,
		Books:    input.Body.Books,
	})
	if err != nil {
		return nil, s.apiError(err)
	}
	return &PreferencesOutput{Body: toPreferenceResponse(profile)}, nil
}

func (s *Server) handleImportGoodreads(ctx context.Context, input *ImportGoodreadsInput) (*ImportGoodreadsOutput, error) {
	imported, err := s.services.Preference.ImportGoodreads(ctx, input.DeviceID, bytes.NewReader(input.RawBody))
	if err != nil {
		return nil, s.apiError(err)
	}

	out := &ImportGoodreadsOutput{}
	out.Body.Imported = imported
	return out, nil
}

func toPreferenceResponse(profile *domain.PreferenceProfile) PreferenceResponse {
	return PreferenceResponse{
		DeviceID:      profile.DeviceID,
		Genres:        profile.Genres,
		Authors:       profile.Authors,
		Books:         profile.Books,
		GoodreadsRows: len(profile.Goodreads),
	}
}
