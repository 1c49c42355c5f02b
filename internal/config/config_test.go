package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Server.Addr)
	assert.Equal(t, "https://web.whatsapp.com", cfg.Browser.URL)
	assert.Equal(t, 1000, cfg.Driver.SearchClickMs)
	assert.Equal(t, 2000, cfg.Driver.SearchEnterMs)
	assert.Equal(t, 1.0, cfg.Driver.SettleScale)
	assert.Equal(t, 2*time.Second, cfg.Engine.FailureDelay())
	assert.Equal(t, 24*time.Hour, cfg.Engine.HousekeepingInterval())
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_FileOverridesAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
server:
  addr: ":9000"
browser:
  url: "http://127.0.0.1:8080/"
  headless: false
driver:
  settleScale: 0.25
engine:
  failureDelayMs: 10
log:
  format: json
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))
	t.Setenv("BULK_SENDER_HEADLESS", "1")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "http://127.0.0.1:8080/", cfg.Browser.URL)
	assert.True(t, cfg.Browser.Headless, "env overrides the file")
	assert.Equal(t, 0.25, cfg.Driver.SettleScale)
	assert.Equal(t, 10*time.Millisecond, cfg.Engine.FailureDelay())
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad url":    "browser:\n  url: \"ftp://example\"\n",
		"bad format": "log:\n  format: xml\n",
		"bad limit":  "limits:\n  maxPerMinute: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
