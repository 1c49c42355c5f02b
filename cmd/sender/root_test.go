package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "storage:\n  sqlitePath: " + filepath.Join(dir, "sender.db") + "\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return dir, path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHistoryExportEmpty(t *testing.T) {
	dir, cfg := writeConfig(t)
	out, err := execute(t, "--config", cfg, "--env-file", filepath.Join(dir, "missing.env"), "history", "export")
	require.NoError(t, err)
	assert.Equal(t, `"Timestamp","Name","Phone","Message","Status","Error"`, out)
}

func TestHistoryExportToFileAndClear(t *testing.T) {
	dir, cfg := writeConfig(t)
	target := filepath.Join(dir, "out.csv")
	_, err := execute(t, "--config", cfg, "--env-file", filepath.Join(dir, "missing.env"), "history", "export", "--out", target)
	require.NoError(t, err)
	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"Timestamp"`)

	_, err = execute(t, "--config", cfg, "--env-file", filepath.Join(dir, "missing.env"), "history", "clear")
	require.NoError(t, err)
}

func TestRunRequiresFile(t *testing.T) {
	dir, cfg := writeConfig(t)
	_, err := execute(t, "--config", cfg, "--env-file", filepath.Join(dir, "missing.env"), "run")
	require.EqualError(t, err, "--file is required")
}
