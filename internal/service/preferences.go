package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	domainerrors "github.com/shelfscout/shelfscout-server/internal/errors"
	"github.com/shelfscout/shelfscout-server/internal/store"
	"github.com/shelfscout/shelfscout-server/internal/validation"
)

// PreferenceService manages per-device preference profiles and the
// Goodreads history import.
type PreferenceService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewPreferenceService creates a preference service.
func NewPreferenceService(store *store.Store, logger *slog.Logger) *PreferenceService {
	return &PreferenceService{store: store, validator: validation.New(), logger: logger}
}

// Get returns the profile for a device.
func (s *PreferenceService) Get(ctx context.Context, deviceID string) (*domain.PreferenceProfile, error) {
	profile, err := s.store.GetPreferences(ctx, deviceID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domainerrors.NotFound("preference profile")
	}
	if err != nil {
		return nil, domainerrors.Internal("load preferences", err)
	}
	return profile, nil
}

// Save upserts the profile, preserving an imported history the incoming
// payload does not carry.
func (s *PreferenceService) Save(ctx context.Context, profile *domain.PreferenceProfile) (*domain.PreferenceProfile, error) {
	if err := s.validator.Validate(profile); err != nil {
		return nil, err
	}

	if len(profile.Goodreads) == 0 {
		if existing, err := s.store.GetPreferences(ctx, profile.DeviceID); err == nil {
			profile.Goodreads = existing.Goodreads
		}
	}

	if err := s.store.UpsertPreferences(ctx, profile); err != nil {
		return nil, domainerrors.Internal("save preferences", err)
	}
	return profile, nil
}

// ImportGoodreads parses a Goodreads CSV export and attaches it to the
// device's profile, creating one if needed. Returns the imported row count.
func (s *PreferenceService) ImportGoodreads(ctx context.Context, deviceID string, csvData io.Reader) (int, error) {
	if deviceID == "" {
		return 0, domainerrors.Validation("device id is required")
	}

	rows, err := ParseGoodreadsCSV(csvData)
	if err != nil {
		return 0, domainerrors.Validation(fmt.Sprintf("invalid goodreads export: %v", err))
	}

	profile, err := s.store.GetPreferences(ctx, deviceID)
	if errors.Is(err, store.ErrNotFound) {
		profile = &domain.PreferenceProfile{DeviceID: deviceID}
	} else if err != nil {
		return 0, domainerrors.Internal("load preferences", err)
	}

	profile.Goodreads = rows
	if err := s.store.UpsertPreferences(ctx, profile); err != nil {
		return 0, domainerrors.Internal("save preferences", err)
	}

	s.logger.Info("goodreads history imported", "device_id", deviceID, "rows", len(rows))
	return len(rows), nil
}
