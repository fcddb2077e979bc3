package factory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/vertretungsanalyse/internal/adapters/cache"
	"github.com/mikey/vertretungsanalyse/internal/adapters/openai"
	"github.com/mikey/vertretungsanalyse/internal/adapters/storage"
	"github.com/mikey/vertretungsanalyse/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T, values map[string]interface{}) *config.Config {
	t.Helper()
	v := config.NewEmptyViper()
	for key, value := range values {
		v.Set(key, value)
	}
	return config.NewFromViper(v)
}

func TestCreateLLMClient(t *testing.T) {
	cfg := testConfig(t, map[string]interface{}{"llm.provider": "openai"})
	client, err := NewLLMFactory(cfg, zap.NewNop()).CreateLLMClient()
	require.NoError(t, err)
	assert.IsType(t, &openai.OpenAIClient{}, client)
	assert.Equal(t, "gpt-4o-mini", client.ModelName())
	assert.True(t, client.RequiresCredential())

	cfg = testConfig(t, map[string]interface{}{"llm.provider": "llama"})
	_, err = NewLLMFactory(cfg, zap.NewNop()).CreateLLMClient()
	assert.ErrorContains(t, err, "unsupported LLM provider")
}

func TestAPIBaseURL(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]interface{}
		want   string
	}{
		{name: "openai", values: map[string]interface{}{"llm.provider": "openai"}, want: "https://api.openai.com/v1"},
		{name: "gemini", values: map[string]interface{}{"llm.provider": "gemini"}, want: "https://generativelanguage.googleapis.com"},
		{
			name:   "bedrock",
			values: map[string]interface{}{"llm.provider": "bedrock", "bedrock.region": "eu-west-1"},
			want:   "https://bedrock-runtime.eu-west-1.amazonaws.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLLMFactory(testConfig(t, tt.values), zap.NewNop()).APIBaseURL()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateCacheRepository(t *testing.T) {
	cfg := testConfig(t, map[string]interface{}{"cache.enabled": false})
	repo, err := NewCacheFactory(cfg, zap.NewNop()).CreateCacheRepository()
	require.NoError(t, err)
	assert.Nil(t, repo)

	cfg = testConfig(t, map[string]interface{}{"cache.type": "memory", "cache.cleanup_frequency": "1m"})
	repo, err = NewCacheFactory(cfg, zap.NewNop()).CreateCacheRepository()
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, repo)
	repo.Stop()

	cfg = testConfig(t, map[string]interface{}{"cache.type": "redis"})
	_, err = NewCacheFactory(cfg, zap.NewNop()).CreateCacheRepository()
	assert.ErrorContains(t, err, "unsupported cache type")
}

func TestCreateStores(t *testing.T) {
	cfg := testConfig(t, map[string]interface{}{
		"storage.local.type":   "memory",
		"storage.roaming.type": "none",
	})
	f := NewStorageFactory(cfg, zap.NewNop())

	local, closer, err := f.CreateLocalStore()
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStore{}, local)
	assert.Nil(t, closer)

	roaming, _, err := f.CreateRoamingStore()
	require.NoError(t, err)
	assert.Nil(t, roaming)
}

func TestCreateLocalStoreUnavailableFailsClosed(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	cfg := testConfig(t, map[string]interface{}{
		"storage.local.type":        "sqlite",
		"storage.local.sqlite_path": filepath.Join(blocker, "sub", "settings.db"),
	})
	require.NoError(t, writeFile(blocker))

	local, closer, err := NewStorageFactory(cfg, zap.NewNop()).CreateLocalStore()
	require.NoError(t, err)
	assert.Nil(t, local)
	assert.Nil(t, closer)
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0o600)
}
