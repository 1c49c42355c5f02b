package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"bulk_sender/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() RunFinishedEvent {
	return RunFinishedEvent{
		RunSummary: model.RunSummary{RunID: "r1", State: model.RunStateCompleted, Sent: 2, Failed: 1, Total: 3},
		Failures:   []FailedContact{{Phone: "5551234567", Error: "could not find send button"}},
	}
}

func TestWebhookPostsEvent(t *testing.T) {
	var (
		mu   sync.Mutex
		body map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second, nil)
	n.NotifyRunFinished(context.Background(), sampleEvent())
	require.NoError(t, n.Close(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "run_finished", body["event"])
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "r1", data["runId"])
	assert.Equal(t, "completed", data["state"])
	assert.EqualValues(t, 2, data["sent"])
}

func TestWebhookErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second, nil)
	err := n.Post(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

type staticSettings struct {
	s  model.EmailSettings
	ok bool
}

func (s staticSettings) GetEmailSettings(context.Context) (model.EmailSettings, bool, error) {
	return s.s, s.ok, nil
}

func TestEmailNotifierSendsWhenEnabled(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []RunFinishedEvent
	)
	send := func(_ context.Context, _ model.EmailSettings, evt RunFinishedEvent) error {
		mu.Lock()
		sent = append(sent, evt)
		mu.Unlock()
		return nil
	}
	src := staticSettings{s: model.EmailSettings{Enabled: true, Email: "ops@example.com", AuthCode: "x"}, ok: true}
	n := newEmailNotifier(src, nil, send)
	n.NotifyRunFinished(context.Background(), sampleEvent())
	require.NoError(t, n.Close(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sent, 1)
	assert.Equal(t, "r1", sent[0].RunID)
}

func TestEmailNotifierSkipsWhenDisabled(t *testing.T) {
	called := false
	send := func(context.Context, model.EmailSettings, RunFinishedEvent) error {
		called = true
		return nil
	}
	n := newEmailNotifier(staticSettings{s: model.EmailSettings{Email: "ops@example.com", AuthCode: "x"}, ok: true}, nil, send)
	n.NotifyRunFinished(context.Background(), sampleEvent())
	require.NoError(t, n.Close(context.Background()))
	assert.False(t, called)
}

func TestValidateEmailSettings(t *testing.T) {
	assert.Error(t, ValidateEmailSettings(model.EmailSettings{}))
	assert.Error(t, ValidateEmailSettings(model.EmailSettings{Email: "nope", AuthCode: "x"}))
	assert.Error(t, ValidateEmailSettings(model.EmailSettings{Email: "a@b.com"}))
	assert.NoError(t, ValidateEmailSettings(model.EmailSettings{Email: "a@b.com", AuthCode: "x"}))
}

func TestSMTPConfigForEmail(t *testing.T) {
	host, port, ssl, err := smtpConfigForEmail("me@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "smtp.gmail.com", host)
	assert.Equal(t, 587, port)
	assert.False(t, ssl)

	host, port, ssl, err = smtpConfigForEmail("me@corp.example")
	require.NoError(t, err)
	assert.Equal(t, "smtp.corp.example", host)
	assert.Equal(t, 465, port)
	assert.True(t, ssl)

	_, _, _, err = smtpConfigForEmail("broken")
	assert.Error(t, err)
}

func TestSummaryBody(t *testing.T) {
	html, text, err := buildSummaryEmailBody(sampleEvent())
	require.NoError(t, err)
	assert.Contains(t, html, "5551234567")
	assert.True(t, strings.HasPrefix(text, "Bulk send completed\n"))
	assert.Equal(t, "Bulk send completed: 2 sent, 1 failed of 3", buildSummarySubject(sampleEvent()))
}
