package sqlite

import (
	"context"

	"bulk_sender/internal/model"
)

// GetHistory returns the stored delivery log, newest first.
func (s *Store) GetHistory(ctx context.Context) ([]model.HistoryEntry, error) {
	var out []model.HistoryEntry
	if _, err := s.getJSON(ctx, historyKey, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveHistory replaces the stored log with entries.
func (s *Store) SaveHistory(ctx context.Context, entries []model.HistoryEntry) error {
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	return s.putJSON(ctx, historyKey, entries)
}

func (s *Store) ClearHistory(ctx context.Context) error {
	return s.deleteKey(ctx, historyKey)
}
