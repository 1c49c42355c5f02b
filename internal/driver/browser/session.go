// Package browser drives a real Chromium instance with go-rod and exposes it as a driver.Page.
package browser

import (
	"context"
	"errors"
	"sync"
	"time"

	"bulk_sender/internal/config"
	"bulk_sender/internal/driver"
	"bulk_sender/internal/utils"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// ErrClosed is returned by queries after Close.
var ErrClosed = driver.ErrSessionClosed

// Session owns one browser and the tab showing the chat site.
type Session struct {
	cfg    config.BrowserConfig
	lookup time.Duration
	logger *zap.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// Open launches the browser, opens the chat site and returns without waiting for login.
func Open(ctx context.Context, cfg config.BrowserConfig, lookup time.Duration, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if lookup <= 0 {
		lookup = 800 * time.Millisecond
	}

	l := launcher.New().Headless(cfg.Headless)
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}
	u, err := l.Context(ctx).Launch()
	if err != nil {
		l.Kill()
		return nil, err
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, err
	}

	var page *rod.Page
	if cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, err
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: utils.NormalizeDesktopUserAgent(cfg.UserAgent),
	}); err != nil {
		logger.Warn("set user agent failed", zap.Error(err))
	}

	s := &Session{
		cfg:      cfg,
		lookup:   lookup,
		logger:   logger,
		launcher: l,
		browser:  b,
		page:     page,
	}
	if err := s.navigate(ctx, cfg.URL); err != nil {
		_ = s.Close()
		return nil, err
	}
	logger.Info("browser opened", zap.String("url", cfg.URL), zap.Bool("headless", cfg.Headless))
	return s, nil
}

func (s *Session) navigate(ctx context.Context, target string) error {
	p := s.page.Context(ctx)
	waitDom := p.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := p.Navigate(target); err != nil {
		return err
	}
	waitDom()
	return nil
}

// Reload navigates the tab back to the chat site.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == nil {
		return ErrClosed
	}
	return s.navigate(ctx, s.cfg.URL)
}

const queryJS = `(css, texts, closest) => {
	for (const n of document.querySelectorAll(css)) {
		if (texts.length && !texts.some(t => (n.textContent || '').includes(t))) continue;
		if (!closest) return n;
		const c = n.closest(closest);
		if (c) return c;
	}
	return null;
}`

func (s *Session) Query(ctx context.Context, q driver.Query) (driver.Element, error) {
	s.mu.Lock()
	page := s.page
	s.mu.Unlock()
	if page == nil {
		return nil, ErrClosed
	}

	texts := q.Text
	if texts == nil {
		texts = []string{}
	}
	p := page.Context(ctx).Timeout(s.lookup).Sleeper(rod.NotFoundSleeper)
	el, err := p.ElementByJS(rod.Eval(queryJS, q.CSS, texts, q.Closest))
	if err != nil {
		var nf *rod.ElementNotFoundError
		if errors.As(err, &nf) {
			return nil, nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}
		return nil, err
	}
	return &element{el: el}, nil
}

// Close shuts the browser down. The profile directory is kept so the login survives restarts.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher = nil
	}
	s.page = nil
	return err
}
