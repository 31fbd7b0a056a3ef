package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"server_base_url":      "https://dating.example/api",
		"poll_interval":        "500ms",
		"session_ttl":          float64(time.Hour),
		"cost_check_fail_open": false,
		"log_backend":          "slog",
	})

	t.Run("loads from flags", func(t *testing.T) {
		cfg := defaults()
		parseJson(cfg, []string{"-config", path})

		want := defaults()
		want.ServerBaseURL = "https://dating.example/api"
		want.PollInterval = 500 * time.Millisecond
		want.SessionTTL = time.Hour
		want.CostCheckFailOpen = false
		want.LogBackend = LogBackendSlog
		assert.Empty(t, cmp.Diff(want, cfg))
	})

	t.Run("flags override json", func(t *testing.T) {
		args := []string{"-c", path, "-a", "http://override/api"}
		cfg := defaults()
		parseJson(cfg, args)
		parseFlags(cfg, args)

		assert.Equal(t, "http://override/api", cfg.ServerBaseURL)
		assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	})

	t.Run("no flags → no changes", func(t *testing.T) {
		cfg := defaults()
		parseJson(cfg, nil)
		assert.Empty(t, cmp.Diff(defaults(), cfg))
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		require.Panics(t, func() { parseJson(defaults(), []string{"-config", bad}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		require.Panics(t, func() { parseJson(defaults(), []string{"-c", filepath.Join(t.TempDir(), "nope.json")}) })
	})
}
