package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	openaiCfg := cfg.GetOpenAI()
	assert.Equal(t, "https://api.openai.com/v1", openaiCfg.BaseURL)
	assert.Equal(t, "gpt-4o-mini", openaiCfg.ModelName)
	assert.Equal(t, 500, openaiCfg.MaxTokens)
	assert.InDelta(t, 0.7, openaiCfg.Temperature, 0.0001)
	assert.Equal(t, "openai", cfg.GetLLM().Provider)

	analysis, err := cfg.GetAnalysis()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, analysis.Timeout)
	assert.Empty(t, analysis.SenderDomains)

	storage, err := cfg.GetStorage()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, storage.RoamingSaveTimeout)
	assert.Equal(t, "sqlite", storage.LocalType)
	assert.Equal(t, "none", storage.RoamingType)

	cache, err := cfg.GetCache()
	require.NoError(t, err)
	assert.True(t, cache.Enabled)
	assert.Equal(t, 24*time.Hour, cache.TTL)
	assert.Equal(t, time.Hour, cache.CleanupFrequency)

	network, err := cfg.GetNetwork()
	require.NoError(t, err)
	assert.True(t, network.CheckReachability)
	assert.Equal(t, 3*time.Second, network.ProbeTimeout)
}

func TestNewReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  provider: gemini
analysis:
  timeout: 10s
  sender_domains:
    - schule.de
    - lehrer.schule.de
cache:
  type: sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := New(path)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.GetLLM().Provider)
	analysis, err := cfg.GetAnalysis()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, analysis.Timeout)
	assert.Equal(t, []string{"schule.de", "lehrer.schule.de"}, analysis.SenderDomains)
	assert.Equal(t, "sqlite", cfg.GetString("cache.type"))
	assert.Equal(t, "gpt-4o-mini", cfg.GetOpenAI().ModelName)
}

func TestNewMissingExplicitFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("VERTRETUNG_ANALYSIS_TIMEOUT", "12s")
	t.Setenv("VERTRETUNG_CACHE_ENABLED", "false")
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))

	cfg, err := New(path)
	require.NoError(t, err)

	analysis, err := cfg.GetAnalysis()
	require.NoError(t, err)
	assert.Equal(t, 12*time.Second, analysis.Timeout)
	assert.False(t, cfg.GetBool("cache.enabled"))
	assert.Equal(t, "sk-from-env", cfg.GetOpenAI().APIKey)
	assert.Equal(t, "debug", cfg.GetString("logging.level"))
}

func TestInvalidDuration(t *testing.T) {
	v := NewEmptyViper()
	v.Set("cache.ttl", "tomorrow")
	_, err := NewFromViper(v).GetCache()
	assert.ErrorContains(t, err, "cache.ttl")
}

func TestGetPathExpandsEnv(t *testing.T) {
	t.Setenv("HOME", "/home/lehrer")
	cfg := NewFromViper(NewEmptyViper())
	assert.Equal(t, "/home/lehrer/.vertretungsanalyse/settings.db", cfg.GetPath("storage.local.sqlite_path"))
}
