package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulk_sender/internal/config"
	"bulk_sender/internal/engine"
	"bulk_sender/internal/logbus"
	"bulk_sender/internal/model"
	"bulk_sender/internal/store/sqlite"
)

type stubSender struct{ ready bool }

func (s stubSender) Ready(context.Context) (bool, error) { return s.ready, nil }
func (s stubSender) Send(context.Context, string, string, string) error { return nil }

func newTestServer(t *testing.T, ready bool) (*httptest.Server, *engine.Engine) {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	bus := logbus.New(50)
	eng := engine.New(engine.Options{
		Store:  store,
		Driver: stubSender{ready: ready},
		Bus:    bus,
		Sleep:  func(ctx context.Context, _ time.Duration) bool { return ctx.Err() == nil },
	})
	require.NoError(t, eng.Init(context.Background()))

	cfg := config.Config{Server: config.ServerConfig{Cors: config.CorsConfig{AllowOrigins: []string{"*"}}}}
	srv := httptest.NewServer(New(Options{Cfg: cfg, Bus: bus, Store: store, Engine: eng}).Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = eng.Close(context.Background())
		bus.Close()
		_ = store.Close()
	})
	return srv, eng
}

func upload(t *testing.T, srv *httptest.Server, name, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/v1/contacts/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, true)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, true, body["ok"])
}

func TestUploadStartAndHistory(t *testing.T) {
	srv, eng := newTestServer(t, true)

	resp := upload(t, srv, "contacts.csv", "phone,name,message\n5550000001,Ann,Hi {{name}}\n5550000002,Bob,Hey\n")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var up struct {
		Data model.ContactList `json:"data"`
	}
	decode(t, resp, &up)
	assert.Equal(t, 2, up.Data.Total)
	assert.Equal(t, "Hi Ann", up.Data.Contacts[0].Preview)

	resp, err := http.Post(srv.URL+"/api/v1/run/start", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.Eventually(t, func() bool {
		return eng.State() == model.RunStateCompleted && len(eng.History()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	resp, err = http.Get(srv.URL + "/api/v1/run/progress")
	require.NoError(t, err)
	var prog struct {
		Data map[string]any `json:"data"`
	}
	decode(t, resp, &prog)
	assert.Equal(t, "completed", prog.Data["state"])
	assert.EqualValues(t, 2, prog.Data["sent"])
	assert.EqualValues(t, 100, prog.Data["percent"])

	resp, err = http.Get(srv.URL + "/api/v1/history/export")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "history_")
	var csv bytes.Buffer
	_, err = csv.ReadFrom(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(csv.String(), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, `"Timestamp","Name","Phone","Message","Status","Error"`, lines[0])

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/history", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, eng.History())
}

func TestUploadRejectsBadFile(t *testing.T) {
	srv, _ := newTestServer(t, true)
	resp := upload(t, srv, "contacts.csv", "phone,name,message\n")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]any
	decode(t, resp, &body)
	assert.NotEmpty(t, body["error"])
}

func TestStartNotReady(t *testing.T) {
	srv, _ := newTestServer(t, false)
	resp, err := http.Post(srv.URL+"/api/v1/run/start", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, engine.ErrNotReady.Error(), body["error"])
}

func TestSettingsRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, true)

	resp, err := http.Post(srv.URL+"/api/v1/settings", "application/json",
		strings.NewReader(`{"delayStrategy":"custom","delayMin":1,"delayMax":2}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/v1/settings")
	require.NoError(t, err)
	var got struct {
		Data model.Settings `json:"data"`
	}
	decode(t, resp, &got)
	assert.Equal(t, model.DelayCustom, got.Data.DelayStrategy)
	assert.Equal(t, 2, got.Data.DelayMax)
	assert.True(t, got.Data.Notifications, "fields left out keep their value")

	resp, err = http.Post(srv.URL+"/api/v1/settings", "application/json",
		strings.NewReader(`{"delayStrategy":"custom","delayMin":9,"delayMax":2}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestEmailSettingsMasksAuthCode(t *testing.T) {
	srv, _ := newTestServer(t, true)

	resp, err := http.Post(srv.URL+"/api/v1/settings/email", "application/json",
		strings.NewReader(`{"enabled":true,"email":"ops@example.com","authCode":"secret"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/api/v1/settings/email")
	require.NoError(t, err)
	var got struct {
		Data model.EmailSettings `json:"data"`
	}
	decode(t, resp, &got)
	assert.Equal(t, "ops@example.com", got.Data.Email)
	assert.Equal(t, maskedAuthCode, got.Data.AuthCode)

	resp, err = http.Post(srv.URL+"/api/v1/settings/email", "application/json",
		strings.NewReader(`{"enabled":true,"email":"not-an-email"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestPageStatusAndStats(t *testing.T) {
	srv, _ := newTestServer(t, true)
	resp, err := http.Get(srv.URL + "/api/v1/page/status")
	require.NoError(t, err)
	var status struct {
		Data map[string]any `json:"data"`
	}
	decode(t, resp, &status)
	assert.Equal(t, true, status.Data["ready"])
	assert.Equal(t, "idle", status.Data["state"])

	resp, err = http.Get(srv.URL + "/api/v1/stats")
	require.NoError(t, err)
	var stats struct {
		Data model.Stats `json:"data"`
	}
	decode(t, resp, &stats)
	assert.Zero(t, stats.Data.Sessions)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, true)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/settings", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightExposesExportFilename(t *testing.T) {
	srv, _ := newTestServer(t, true)
	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/history/export", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://ui.local")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Disposition", resp.Header.Get("Access-Control-Expose-Headers"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodDelete)
}

func TestAllowedOrigin(t *testing.T) {
	assert.Equal(t, "http://UI.local", allowedOrigin([]string{"http://ui.local"}, "http://UI.local"))
	assert.Empty(t, allowedOrigin([]string{"http://ui.local"}, "http://other.local"))
	assert.Empty(t, allowedOrigin([]string{"http://ui.local"}, ""))
}
