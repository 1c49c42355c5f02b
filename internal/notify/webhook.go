package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// WebhookNotifier posts each RunFinishedEvent as JSON to a fixed URL.
type WebhookNotifier struct {
	url    string
	client *resty.Client
	logger *zap.Logger

	wg sync.WaitGroup
}

func NewWebhookNotifier(url string, timeout time.Duration, logger *zap.Logger) *WebhookNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "bulk-sender")
	return &WebhookNotifier{url: strings.TrimSpace(url), client: client, logger: logger}
}

func (n *WebhookNotifier) NotifyRunFinished(ctx context.Context, evt RunFinishedEvent) {
	if n.url == "" {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.Post(context.WithoutCancel(ctx), evt); err != nil {
			n.logger.Warn("webhook delivery failed", zap.String("runId", evt.RunID), zap.Error(err))
		}
	}()
}

// Post delivers evt synchronously.
func (n *WebhookNotifier) Post(ctx context.Context, evt RunFinishedEvent) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"event": "run_finished", "data": evt}).
		Post(n.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode())
	}
	return nil
}

// Close waits for in-flight deliveries.
func (n *WebhookNotifier) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
