package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"bulk_sender/internal/config"
	"bulk_sender/internal/driver"
	"bulk_sender/internal/driver/browser"
	"bulk_sender/internal/engine"
	"bulk_sender/internal/logbus"
	"bulk_sender/internal/notify"
	"bulk_sender/internal/observability"
	"bulk_sender/internal/store/sqlite"
)

// app wires the long-lived components shared by the subcommands.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	bus     *logbus.Bus
	store   *sqlite.Store
	session *browser.Session
	driver  *driver.Driver
	engine  *engine.Engine
	email   *notify.EmailNotifier
	webhook *notify.WebhookNotifier
}

// openApp builds the app. withBrowser launches the browser and opens the chat site.
func openApp(ctx context.Context, cfg config.Config, withBrowser bool) (*app, error) {
	a := &app{cfg: cfg}
	a.logger = observability.NewLogger(cfg.Log)
	a.bus = logbus.New(cfg.Log.BusCapacity)

	store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		a.close(ctx)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	a.store = store
	a.logger.Debug("store opened", zap.String("path", store.Path()))

	var sender driver.Sender
	if withBrowser {
		session, err := browser.Open(ctx, cfg.Browser, time.Duration(cfg.Driver.LookupTimeoutMs)*time.Millisecond, a.logger.Named("browser"))
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("open browser: %w", err)
		}
		a.session = session
		a.driver = driver.New(driver.Options{
			Page:    session,
			Timings: driver.TimingsFromConfig(cfg.Driver),
			Logger:  a.logger.Named("driver"),
		})
		sender = a.driver
	}

	a.email = notify.NewEmailNotifier(store, a.bus)
	notifiers := notify.Multi{a.email}
	if cfg.Notify.WebhookURL != "" {
		a.webhook = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.WebhookTimeout(), a.logger.Named("webhook"))
		notifiers = append(notifiers, a.webhook)
	}

	a.engine = engine.New(engine.Options{
		Store:       store,
		Driver:      sender,
		Bus:         a.bus,
		Logger:      a.logger.Named("engine"),
		Notifier:    notifiers,
		Limits:      cfg.Limits,
		Engine:      cfg.Engine,
		SendTimeout: cfg.Browser.SendTimeout(),
	})
	if err := a.engine.Init(ctx); err != nil {
		a.close(ctx)
		return nil, err
	}
	return a, nil
}

// waitReady blocks until the chat list is visible or the configured timeout passes.
func (a *app) waitReady(ctx context.Context) error {
	if a.driver == nil {
		return errors.New("browser not opened")
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Browser.ReadyTimeout())
	defer cancel()
	if err := a.driver.WaitReady(ctx, time.Second); err != nil {
		return fmt.Errorf("%w (scan the QR code in the browser window to log in)", engine.ErrNotReady)
	}
	return nil
}

func (a *app) close(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if a.engine != nil {
		_ = a.engine.Close(ctx)
	}
	if a.email != nil {
		_ = a.email.Close(ctx)
	}
	if a.webhook != nil {
		_ = a.webhook.Close(ctx)
	}
	if a.session != nil {
		_ = a.session.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.bus != nil {
		a.bus.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
