package sqlite

import (
	"context"
	"strings"

	"bulk_sender/internal/model"
)

// GetSettings returns the stored settings, or the defaults when none were saved.
func (s *Store) GetSettings(ctx context.Context) (model.Settings, error) {
	out := model.DefaultSettings()
	if _, err := s.getJSON(ctx, settingsKey, &out); err != nil {
		return model.DefaultSettings(), err
	}
	return out, nil
}

func (s *Store) SaveSettings(ctx context.Context, v model.Settings) error {
	return s.putJSON(ctx, settingsKey, v)
}

func (s *Store) GetEmailSettings(ctx context.Context) (model.EmailSettings, bool, error) {
	var out model.EmailSettings
	found, err := s.getJSON(ctx, emailSettingsKey, &out)
	if err != nil || !found {
		return model.EmailSettings{}, false, err
	}
	out.Email = strings.TrimSpace(out.Email)
	out.AuthCode = strings.TrimSpace(out.AuthCode)
	return out, true, nil
}

func (s *Store) UpsertEmailSettings(ctx context.Context, v model.EmailSettings) (model.EmailSettings, error) {
	v.Email = strings.TrimSpace(v.Email)
	v.AuthCode = strings.TrimSpace(v.AuthCode)
	if err := s.putJSON(ctx, emailSettingsKey, v); err != nil {
		return model.EmailSettings{}, err
	}
	return v, nil
}

func (s *Store) GetStats(ctx context.Context) (model.Stats, error) {
	var out model.Stats
	if _, err := s.getJSON(ctx, statsKey, &out); err != nil {
		return model.Stats{}, err
	}
	return out, nil
}

func (s *Store) SaveStats(ctx context.Context, v model.Stats) error {
	return s.putJSON(ctx, statsKey, v)
}
