package driver

import (
	"context"
	"errors"
	"time"

	"bulk_sender/internal/config"

	"go.uber.org/zap"
)

// Timings are the settle delays observed after each simulated action.
type Timings struct {
	SearchClick time.Duration
	Focus       time.Duration
	SearchType  time.Duration
	SearchEnter time.Duration
	OpenChat    time.Duration
	MessageType time.Duration
	SendClick   time.Duration
}

func TimingsFromConfig(cfg config.DriverConfig) Timings {
	scale := cfg.SettleScale
	if scale <= 0 || scale > 1 {
		scale = 1
	}
	ms := func(v int) time.Duration {
		return time.Duration(float64(v)*scale) * time.Millisecond
	}
	return Timings{
		SearchClick: ms(cfg.SearchClickMs),
		Focus:       ms(cfg.FocusMs),
		SearchType:  ms(cfg.SearchTypeMs),
		SearchEnter: ms(cfg.SearchEnterMs),
		OpenChat:    ms(cfg.OpenChatMs),
		MessageType: ms(cfg.MessageTypeMs),
		SendClick:   ms(cfg.SendClickMs),
	}
}

type Options struct {
	Page    Page
	Timings Timings
	Logger  *zap.Logger
	// Sleep replaces the settle wait in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Driver scripts one delivery at a time against Page. It is not safe for concurrent sends.
type Driver struct {
	page   Page
	t      Timings
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(opts Options) *Driver {
	d := &Driver{
		page:   opts.Page,
		t:      opts.Timings,
		logger: opts.Logger,
		sleep:  opts.Sleep,
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.sleep == nil {
		d.sleep = settle
	}
	return d
}

// Ready reports whether the chat list is shown and no login QR code is pending.
func (d *Driver) Ready(ctx context.Context) (bool, error) {
	list, err := d.page.Query(ctx, Query{CSS: chatListSelector})
	if err != nil {
		return false, err
	}
	if list == nil {
		return false, nil
	}
	qr, err := d.page.Query(ctx, Query{CSS: qrCodeSelector})
	if err != nil {
		return false, err
	}
	return qr == nil, nil
}

// WaitReady polls Ready until it succeeds or ctx ends.
func (d *Driver) WaitReady(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	for {
		ok, err := d.Ready(ctx)
		if err == nil && ok {
			return nil
		}
		if err := settle(ctx, interval); err != nil {
			return err
		}
	}
}

// Send searches for phone, opens the chat and delivers message. name is only used to match an
// existing chat title.
func (d *Driver) Send(ctx context.Context, phone, message, name string) error {
	log := d.logger.With(zap.String("phone", phone))

	if err := d.openSearch(ctx); err != nil {
		return err
	}
	if err := d.search(ctx, phone); err != nil {
		return err
	}
	if err := d.openChat(ctx, phone, name); err != nil {
		return err
	}
	if err := d.compose(ctx, message); err != nil {
		return err
	}
	log.Debug("message sent")
	return nil
}

func (d *Driver) openSearch(ctx context.Context) error {
	btn, err := searchButton.Find(ctx, d.page)
	if err != nil {
		return err
	}
	if err := btn.Click(ctx); err != nil {
		return err
	}
	return d.sleep(ctx, d.t.SearchClick)
}

func (d *Driver) search(ctx context.Context, phone string) error {
	input, err := searchInput.Find(ctx, d.page)
	if err != nil {
		return err
	}
	if err := input.Clear(ctx); err != nil {
		return err
	}
	if err := input.Focus(ctx); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.t.Focus); err != nil {
		return err
	}
	if err := input.SetText(ctx, phone); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.t.SearchType); err != nil {
		return err
	}
	if err := input.PressEnter(ctx); err != nil {
		return err
	}
	return d.sleep(ctx, d.t.SearchEnter)
}

func (d *Driver) openChat(ctx context.Context, phone, name string) error {
	target, err := chatResult(phone, name).Find(ctx, d.page)
	if err != nil {
		var nf *ElementNotFoundError
		if !errors.As(err, &nf) {
			return err
		}
		// No chat yet; fall back to the page's start-a-chat affordance.
		target, err = d.page.Query(ctx, newChatAffordance)
		if errors.Is(err, ErrSessionClosed) {
			return err
		}
		if err != nil || target == nil {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
			return &ContactNotFoundError{Phone: phone}
		}
	}
	if err := target.Click(ctx); err != nil {
		return err
	}
	return d.sleep(ctx, d.t.OpenChat)
}

func (d *Driver) compose(ctx context.Context, message string) error {
	input, err := messageInput.Find(ctx, d.page)
	if err != nil {
		return err
	}
	if err := input.Focus(ctx); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.t.Focus); err != nil {
		return err
	}
	if err := input.SetText(ctx, message); err != nil {
		return err
	}
	if err := d.sleep(ctx, d.t.MessageType); err != nil {
		return err
	}

	btn, err := sendButton.Find(ctx, d.page)
	if err != nil {
		return err
	}
	if err := btn.Click(ctx); err != nil {
		return err
	}
	return d.sleep(ctx, d.t.SendClick)
}

func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
