package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("BRIDGE_CONFIG", "")
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, 70, cfg.MatchThreshold)
	assert.Equal(t, "pse-content-mapping", cfg.Tables.ContentMap)
	assert.Len(t, cfg.Tables.All(), 6)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BRIDGE_CONFIG", "")
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("KEYWORDS_TABLE", "kw-staging")
	t.Setenv("FANOUT_CONCURRENCY", "12")
	t.Setenv("MATCH_THRESHOLD", "not-a-number")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "kw-staging", cfg.Tables.Keywords)
	assert.Equal(t, 12, cfg.Concurrency)
	assert.Equal(t, 70, cfg.MatchThreshold)
}

func TestFromEnvYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "7000"
store_driver: sqlite
store_path: /tmp/bridge.db
match_threshold: 60
tables:
  metrics: metrics-prod
completion:
  url: http://llm.local/v1/messages
  model: test-model
`), 0o600))
	t.Setenv("BRIDGE_CONFIG", path)
	t.Setenv("PORT", "7100")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "7100", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, 60, cfg.MatchThreshold)
	assert.Equal(t, "metrics-prod", cfg.Tables.Metrics)
	assert.Equal(t, "pse-keyword-intelligence", cfg.Tables.Keywords)
	assert.Equal(t, "test-model", cfg.Completion.Model)
	assert.Equal(t, 1000, cfg.Completion.MaxTokens)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("BRIDGE_CONFIG", "")
	t.Setenv("STORE_DRIVER", "dynamo")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("MATCH_THRESHOLD", "101")
	_, err = FromEnv()
	assert.Error(t, err)

	t.Setenv("BRIDGE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = FromEnv()
	assert.Error(t, err)
}
