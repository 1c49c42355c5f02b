package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartHousekeeping trims the stored history to the configured limit now and then on every
// interval until Close.
func (e *Engine) StartHousekeeping() {
	e.mu.Lock()
	if e.hkCancel != nil {
		e.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.hkCancel = cancel
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.housekeeping)
		defer ticker.Stop()
		for {
			e.Housekeep(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Housekeep applies the history limit to memory and writes the trimmed log back.
func (e *Engine) Housekeep(ctx context.Context) {
	limit := e.Settings().HistoryLimit
	dropped := e.history.SetLimit(limit)
	if e.store == nil {
		return
	}
	if err := e.saveHistory(ctx); err != nil {
		e.logger.Warn("housekeeping: save history failed", zap.Error(err))
		return
	}
	if dropped > 0 {
		e.logger.Info("housekeeping: history trimmed", zap.Int("dropped", dropped), zap.Int("limit", limit))
	}
}
