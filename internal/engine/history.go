package engine

import (
	"context"
	"io"

	"go.uber.org/zap"

	"bulk_sender/internal/history"
	"bulk_sender/internal/model"
)

// History returns the delivery log, newest first.
func (e *Engine) History() []model.HistoryEntry {
	return e.history.Entries()
}

func (e *Engine) ExportHistory(w io.Writer) error {
	return history.WriteCSV(w, e.history.Entries())
}

func (e *Engine) ClearHistory(ctx context.Context) error {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	e.history.Clear()
	if e.store != nil {
		if err := e.store.ClearHistory(ctx); err != nil {
			return err
		}
	}
	e.status("success", "History cleared")
	return nil
}

func (e *Engine) persistHistory(ctx context.Context) {
	if e.store == nil {
		return
	}
	if err := e.saveHistory(ctx); err != nil {
		e.logger.Warn("save history failed", zap.Error(err))
	}
}

// saveHistory writes the in-memory log, which is the source of truth once Init has run.
func (e *Engine) saveHistory(ctx context.Context) error {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()
	return e.store.SaveHistory(ctx, e.history.Entries())
}
