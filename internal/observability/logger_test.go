package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bulk_sender/internal/config"
)

func TestNewLogger_JSONConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "info", Format: "json", ServiceName: "test"}, zapcore.AddSync(&buf))

	logger.Debug("hidden")
	logger.Info("sent", zap.String("phone", "1234567890"))
	require.NoError(t, logger.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug is below the configured level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "test", entry["logger"])
	assert.Equal(t, "sent", entry["msg"])
	assert.Equal(t, "1234567890", entry["phone"])
}

func TestNewLogger_FileCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sender.log")
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "debug", Format: "console", File: path, MaxSizeMB: 1}, zapcore.AddSync(&buf))

	logger.Warn("page not ready")
	_ = logger.Sync()

	assert.Contains(t, buf.String(), "page not ready")
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"page not ready"`)
}

func TestNewLogger_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "loud", Format: "json"}, zapcore.AddSync(&buf))
	logger.Debug("hidden")
	logger.Info("shown")
	_ = logger.Sync()
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}
