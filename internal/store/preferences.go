package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/shelfscout/shelfscout-server/internal/domain"
)

const prefPrefix = "pref:"

// Preference profile operations. One profile per device, always upserted.

// GetPreferences returns the profile for a device, or ErrNotFound.
func (s *Store) GetPreferences(ctx context.Context, deviceID string) (*domain.PreferenceProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var profile domain.PreferenceProfile
	if err := s.get([]byte(prefPrefix+deviceID), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// UpsertPreferences creates or replaces the profile for its device,
// preserving CreatedAt across updates.
func (s *Store) UpsertPreferences(ctx context.Context, profile *domain.PreferenceProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if profile.DeviceID == "" {
		return fmt.Errorf("upsert preferences: device id is required")
	}

	existing, err := s.GetPreferences(ctx, profile.DeviceID)
	switch {
	case err == nil:
		profile.CreatedAt = existing.CreatedAt
		profile.Touch()
	case errors.Is(err, ErrNotFound):
		profile.InitTimestamps()
	default:
		return fmt.Errorf("upsert preferences: %w", err)
	}

	if err := s.set([]byte(prefPrefix+profile.DeviceID), profile); err != nil {
		return fmt.Errorf("upsert preferences: %w", err)
	}

	s.logger.Debug("preferences saved", "device_id", profile.DeviceID,
		"genres", len(profile.Genres), "goodreads_rows", len(profile.Goodreads))
	return nil
}
