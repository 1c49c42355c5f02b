package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"bulk_sender/internal/config"
	"bulk_sender/internal/driver"
	"bulk_sender/internal/history"
	"bulk_sender/internal/logbus"
	"bulk_sender/internal/model"
	"bulk_sender/internal/notify"
	"bulk_sender/internal/pacing"
	"bulk_sender/internal/tmpl"
)

var (
	ErrNotReady  = errors.New("chat page is not ready: log in and wait for the chat list")
	ErrEmptyList = errors.New("no contacts loaded")
	ErrRunning   = errors.New("a run is in progress")
)

// Store is the durable state the engine reads and writes.
type Store interface {
	GetSettings(ctx context.Context) (model.Settings, error)
	SaveSettings(ctx context.Context, v model.Settings) error
	GetStats(ctx context.Context) (model.Stats, error)
	SaveStats(ctx context.Context, v model.Stats) error
	GetHistory(ctx context.Context) ([]model.HistoryEntry, error)
	SaveHistory(ctx context.Context, entries []model.HistoryEntry) error
	ClearHistory(ctx context.Context) error
}

type Options struct {
	Store    Store
	Driver   driver.Sender
	Bus      *logbus.Bus
	Logger   *zap.Logger
	Notifier notify.Notifier
	Pacer    *pacing.Pacer
	Limits   config.LimitsConfig
	Engine   config.EngineConfig
	// SendTimeout bounds one delivery. Zero means 90s.
	SendTimeout time.Duration
	// Sleep replaces the pacing wait in tests; it reports false when ctx ended first.
	Sleep func(ctx context.Context, d time.Duration) bool
	Now   func() time.Time
}

// Engine runs one bulk send at a time over the loaded contact list.
type Engine struct {
	store    Store
	driver   driver.Sender
	bus      *logbus.Bus
	logger   *zap.Logger
	notifier notify.Notifier
	pacer    *pacing.Pacer
	limiter  *rate.Limiter
	history  *history.Log

	failureDelay time.Duration
	sendTimeout  time.Duration
	housekeeping time.Duration
	sleep        func(ctx context.Context, d time.Duration) bool
	now          func() time.Time

	mu        sync.Mutex
	state     model.RunState
	running   bool
	pending   model.RunState
	cancel    context.CancelFunc
	done      chan struct{}
	wg        sync.WaitGroup
	contacts  []model.Contact
	progress  model.Progress
	settings  model.Settings
	startedAt time.Time
	failures  []notify.FailedContact

	hkCancel context.CancelFunc
	// persistMu orders history writes so an older snapshot never lands after a newer one.
	persistMu sync.Mutex
}

func New(opts Options) *Engine {
	e := &Engine{
		store:        opts.Store,
		driver:       opts.Driver,
		bus:          opts.Bus,
		logger:       opts.Logger,
		notifier:     opts.Notifier,
		pacer:        opts.Pacer,
		history:      history.New(history.DefaultLimit),
		failureDelay: opts.Engine.FailureDelay(),
		sendTimeout:  opts.SendTimeout,
		housekeeping: opts.Engine.HousekeepingInterval(),
		sleep:        opts.Sleep,
		now:          opts.Now,
		state:        model.RunStateIdle,
		settings:     model.DefaultSettings(),
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.pacer == nil {
		e.pacer = pacing.NewRandom()
	}
	if e.sendTimeout <= 0 {
		e.sendTimeout = 90 * time.Second
	}
	if e.sleep == nil {
		e.sleep = sleepFor
	}
	if e.now == nil {
		e.now = time.Now
	}
	if opts.Limits.MaxPerMinute > 0 {
		burst := opts.Limits.Burst
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(opts.Limits.MaxPerMinute/60), burst)
	}
	e.progress.State = e.state
	return e
}

// Init loads settings and history from the store. Call it once the page is up.
func (e *Engine) Init(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	settings, err := e.store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)
	entries, err := e.store.GetHistory(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	e.mu.Lock()
	e.settings = settings
	e.mu.Unlock()
	e.history.SetLimit(settings.HistoryLimit)
	e.history.Load(entries)

	e.logger.Info("engine initialised", zap.Int("history", e.history.Len()), zap.String("delayStrategy", string(settings.DelayStrategy)))
	return nil
}

// Start begins or resumes a run at the saved index. It is a no-op while a run is active.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	ready, err := e.driver.Ready(ctx)
	if err != nil || !ready {
		if err != nil {
			e.logger.Warn("ready check failed", zap.Error(err))
		}
		e.status("error", ErrNotReady.Error())
		return ErrNotReady
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	if len(e.contacts) == 0 {
		e.mu.Unlock()
		e.status("error", ErrEmptyList.Error())
		return ErrEmptyList
	}

	contacts := append([]model.Contact(nil), e.contacts...)
	start := e.progress.CurrentIndex
	if start < 0 || start >= len(contacts) {
		start = 0
	}
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.running = true
	e.pending = ""
	e.cancel = cancel
	e.done = done
	e.state = model.RunStateRunning
	e.startedAt = e.now()
	e.failures = nil
	e.progress = model.Progress{
		RunID:        uuid.NewString(),
		State:        model.RunStateRunning,
		Total:        len(contacts),
		CurrentIndex: start,
	}
	runID := e.progress.RunID
	e.publishProgressLocked()
	e.wg.Add(1)
	e.mu.Unlock()

	e.bumpSessions(ctx)
	e.logger.Info("run started", zap.String("runId", runID), zap.Int("total", len(contacts)), zap.Int("from", start))
	e.status("info", fmt.Sprintf("Sending to %d contacts", len(contacts)-start))

	go func() {
		defer e.wg.Done()
		defer close(done)
		e.run(runCtx, contacts, start)
	}()
	return nil
}

// Stop ends the run at the next contact boundary and keeps the index.
func (e *Engine) Stop(ctx context.Context) error {
	return e.interrupt(ctx, model.RunStateStopped)
}

// Pause behaves like Stop; the next Start resumes from the saved index.
func (e *Engine) Pause(ctx context.Context) error {
	return e.interrupt(ctx, model.RunStatePaused)
}

func (e *Engine) interrupt(ctx context.Context, next model.RunState) error {
	e.mu.Lock()
	if !e.running {
		if e.state == model.RunStatePaused && next == model.RunStateStopped {
			e.state = next
			e.progress.State = next
			e.publishProgressLocked()
		}
		e.mu.Unlock()
		return nil
	}
	e.pending = next
	cancel := e.cancel
	done := e.done
	e.mu.Unlock()

	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops any run and the housekeeping loop.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	hk := e.hkCancel
	e.hkCancel = nil
	e.mu.Unlock()
	if hk != nil {
		hk()
	}
	if err := e.Stop(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) State() model.RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) Progress() model.Progress {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// PageReady exposes the driver's ready check to the control surface.
func (e *Engine) PageReady(ctx context.Context) (bool, error) {
	return e.driver.Ready(ctx)
}

func (e *Engine) run(ctx context.Context, contacts []model.Contact, start int) {
	final := model.RunStateCompleted
	last := len(contacts) - 1

	for i := start; i <= last; i++ {
		if next, ok := e.pendingState(); ok {
			final = next
			break
		}
		c := contacts[i]

		e.mu.Lock()
		e.progress.CurrentIndex = i
		e.progress.Current = &model.CurrentContact{Name: c.Name, Phone: c.Phone}
		e.publishProgressLocked()
		e.mu.Unlock()

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				final = e.interruptedState()
				break
			}
		}

		text := tmpl.Render(c.Message, c)
		err := e.deliver(ctx, c, text)
		e.record(i, c, text, err)

		var wait time.Duration
		switch {
		case err != nil:
			wait = e.failureDelay
		case i < last:
			wait = e.pacer.NextDelay(e.Settings())
		}
		if wait > 0 && !e.sleep(ctx, wait) && i < last {
			final = e.interruptedState()
			break
		}
	}

	e.finish(final)
}

// deliver runs one send detached from stop requests; panics count as a failure of this contact.
func (e *Engine) deliver(runCtx context.Context, c model.Contact, text string) (err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), e.sendTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("send panicked: %v", r)
		}
	}()
	return e.driver.Send(ctx, c.Phone, text, c.Name)
}

func (e *Engine) record(i int, c model.Contact, text string, err error) {
	entry := model.HistoryEntry{
		Timestamp:   e.now().UTC(),
		Name:        c.Name,
		Phone:       c.Phone,
		Message:     history.Preview(text),
		FullMessage: text,
		Status:      model.DeliverySuccess,
	}
	if err != nil {
		entry.Status = model.DeliveryFailed
		entry.Error = err.Error()
	}
	e.history.Append(entry)

	e.mu.Lock()
	if err != nil {
		e.progress.Failed++
		if len(e.failures) < notify.MaxListedFailures {
			e.failures = append(e.failures, notify.FailedContact{Name: c.Name, Phone: c.Phone, Error: err.Error()})
		}
	} else {
		e.progress.Sent++
	}
	e.progress.CurrentIndex = i + 1
	e.publishProgressLocked()
	e.mu.Unlock()

	if err != nil {
		if !driver.IsDeliveryError(err) {
			e.logger.Warn("unexpected send error", zap.String("phone", c.Phone), zap.Error(err))
		}
		e.bus.Log("warn", "send failed", map[string]any{"phone": c.Phone, "name": c.Name, "error": err.Error()})
		e.status("error", fmt.Sprintf("Failed to send to %s: %s", c.Phone, err.Error()))
		return
	}
	e.bus.Log("info", "message sent", map[string]any{"phone": c.Phone, "name": c.Name})
}

func (e *Engine) finish(final model.RunState) {
	e.mu.Lock()
	e.running = false
	e.pending = ""
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.state = final
	e.progress.State = final
	e.progress.Current = nil
	if final == model.RunStateCompleted {
		e.progress.CurrentIndex = 0
	}
	p := e.progress
	evt := notify.RunFinishedEvent{
		RunSummary: model.RunSummary{
			RunID:      p.RunID,
			State:      final,
			Sent:       p.Sent,
			Failed:     p.Failed,
			Total:      p.Total,
			StartedAt:  e.startedAt.UnixMilli(),
			FinishedAt: e.now().UnixMilli(),
		},
		Failures: e.failures,
	}
	e.failures = nil
	notifications := e.settings.Notifications
	e.publishProgressLocked()
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	e.persistHistory(ctx)
	e.addStats(ctx, p.Sent, p.Failed)

	if notifications && e.notifier != nil {
		e.notifier.NotifyRunFinished(ctx, evt)
	}
	e.bus.Publish(logbus.TypeSummary, evt.RunSummary)
	e.logger.Info("run finished",
		zap.String("runId", p.RunID),
		zap.String("state", string(final)),
		zap.Int("sent", p.Sent),
		zap.Int("failed", p.Failed),
	)
	switch final {
	case model.RunStateCompleted:
		e.status("success", fmt.Sprintf("Completed: %d sent, %d failed", p.Sent, p.Failed))
	case model.RunStatePaused:
		e.status("info", "Paused")
	default:
		e.status("info", "Stopped")
	}
}

func (e *Engine) pendingState() (model.RunState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending, e.pending != ""
}

// interruptedState is the final state of a run whose context ended; Close counts as a stop.
func (e *Engine) interruptedState() model.RunState {
	if next, ok := e.pendingState(); ok {
		return next
	}
	return model.RunStateStopped
}

func (e *Engine) snapshotLocked() model.Progress {
	p := e.progress
	if p.Current != nil {
		cur := *p.Current
		p.Current = &cur
	}
	return p
}

func (e *Engine) publishProgressLocked() {
	e.bus.Publish(logbus.TypeProgress, e.snapshotLocked())
}

func (e *Engine) status(level, text string) {
	e.bus.Status(level, text)
}

func sleepFor(ctx context.Context, d time.Duration) bool {
	return sleepUntil(ctx, time.Now().Add(d))
}

func sleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
