package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"bulk_sender/internal/history"
	"bulk_sender/internal/model"
)

func normalizeSettings(in model.Settings) model.Settings {
	out := in
	switch out.DelayStrategy {
	case model.DelayFast, model.DelayNormal, model.DelaySlow, model.DelayCustom:
	default:
		out.DelayStrategy = model.DelayNormal
	}
	if out.HistoryLimit <= 0 || out.HistoryLimit > history.DefaultLimit {
		out.HistoryLimit = history.DefaultLimit
	}
	return out
}

func validateSettings(s model.Settings) error {
	if s.DelayStrategy == model.DelayCustom {
		if s.DelayMin < 0 || s.DelayMax < 0 {
			return errors.New("delayMin and delayMax must be >= 0")
		}
		if s.DelayMin > s.DelayMax {
			return errors.New("delayMin must not exceed delayMax")
		}
	}
	if s.HistoryLimit < 0 {
		return errors.New("historyLimit must be >= 0")
	}
	return nil
}

func (e *Engine) Settings() model.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// SaveSettings validates, stores and applies next. A running send picks the new pacing up
// from its next delay.
func (e *Engine) SaveSettings(ctx context.Context, next model.Settings) (model.Settings, error) {
	if err := validateSettings(next); err != nil {
		return model.Settings{}, err
	}
	next = normalizeSettings(next)
	if e.store != nil {
		if err := e.store.SaveSettings(ctx, next); err != nil {
			return model.Settings{}, err
		}
	}
	e.mu.Lock()
	e.settings = next
	e.mu.Unlock()

	if dropped := e.history.SetLimit(next.HistoryLimit); dropped > 0 {
		e.persistHistory(ctx)
	}
	e.status("success", "Settings saved")
	return next, nil
}

func (e *Engine) Stats(ctx context.Context) (model.Stats, error) {
	if e.store == nil {
		return model.Stats{}, nil
	}
	return e.store.GetStats(ctx)
}

func (e *Engine) bumpSessions(ctx context.Context) {
	e.updateStats(ctx, func(s *model.Stats) { s.Sessions++ })
}

func (e *Engine) addStats(ctx context.Context, sent, failed int) {
	e.updateStats(ctx, func(s *model.Stats) {
		s.TotalSent += sent
		s.TotalFailed += failed
	})
}

func (e *Engine) updateStats(ctx context.Context, fn func(*model.Stats)) {
	if e.store == nil {
		return
	}
	st, err := e.store.GetStats(ctx)
	if err != nil {
		e.logger.Warn("load stats failed", zap.Error(err))
		return
	}
	fn(&st)
	now := e.now().UTC()
	st.LastUsed = &now
	if err := e.store.SaveStats(ctx, st); err != nil {
		e.logger.Warn("save stats failed", zap.Error(err))
	}
}

