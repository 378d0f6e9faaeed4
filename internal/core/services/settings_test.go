package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdesk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(nil), WithEnv(envOf(nil)))

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultSettings()
	assert.Equal(t, defaults.Chunker, settings.Chunker)
	assert.Equal(t, defaults.Index, settings.Index)
	assert.Equal(t, defaults.Task, settings.Task)
	assert.Equal(t, domain.AIProviderNone, settings.Embedding.Provider)
	assert.Equal(t, domain.AIProviderOpenAI, settings.Agent.Provider)
	assert.Equal(t, "gpt-4o-mini", settings.Agent.Model)
	assert.Equal(t, 4, settings.Agent.MaxToolRounds)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"chunker.window_size":       int64(800),
		"chunker.overlap":           int64(0),
		"index.embed_timeout":       2.5,
		"index.clear_on_start":      false,
		"task.timeout":              int64(30),
		"embedding.provider":        "ollama",
		"embedding.rate_per_second": 3.0,
		"agent.provider":            "replay",
		"agent.replay_path":         "run.jsonl",
	})
	service := NewSettingsService(store, WithEnv(envOf(nil)))

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, 800, settings.Chunker.WindowSize)
	assert.Equal(t, 0, settings.Chunker.Overlap)
	assert.Equal(t, 2500*time.Millisecond, settings.Index.EmbedTimeout)
	assert.False(t, settings.Index.ClearOnStart)
	assert.Equal(t, 30*time.Second, settings.Task.Timeout)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", settings.Embedding.BaseURL)
	assert.InDelta(t, 3.0, settings.Embedding.RatePerSecond, 1e-9)
	assert.Equal(t, domain.AIProviderReplay, settings.Agent.Provider)
	assert.Equal(t, "run.jsonl", settings.Agent.ReplayPath)
}

func TestSettingsService_Get_InvalidProviderReturnsDefault(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{"embedding.provider": "invalid_provider"})
	service := NewSettingsService(store, WithEnv(envOf(nil)))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderNone, settings.Embedding.Provider)
}

func TestSettingsService_Get_EnvironmentFallbacks(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"embedding.provider": "openai",
		"agent.api_key":      "from-config",
	})
	env := envOf(map[string]string{
		EnvOpenAIAPIKey:   "from-env",
		EnvOpenAIBaseURL:  "https://proxy.example.com/v1",
		EnvAgentModel:     "gpt-test",
		EnvEmbeddingModel: "embed-test",
	})
	service := NewSettingsService(store, WithEnv(env))

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, "from-env", settings.Embedding.APIKey)
	assert.Equal(t, "embed-test", settings.Embedding.Model)
	assert.Equal(t, "https://proxy.example.com/v1", settings.Embedding.BaseURL)
	assert.Equal(t, "from-config", settings.Agent.APIKey)
	assert.Equal(t, "gpt-test", settings.Agent.Model)
	assert.True(t, settings.Embedding.IsConfigured())
}

func TestSettingsService_Validate(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(nil))

	tests := []struct {
		name    string
		mutate  func(*domain.Settings)
		wantErr bool
	}{
		{"defaults", func(*domain.Settings) {}, false},
		{"zero overlap", func(s *domain.Settings) { s.Chunker.Overlap = 0 }, false},
		{"zero window", func(s *domain.Settings) { s.Chunker.WindowSize = 0 }, true},
		{"negative overlap", func(s *domain.Settings) { s.Chunker.Overlap = -1 }, true},
		{"overlap equals window", func(s *domain.Settings) { s.Chunker.Overlap = s.Chunker.WindowSize }, true},
		{"negative max chunks", func(s *domain.Settings) { s.Index.MaxChunks = -1 }, true},
		{"zero concurrency", func(s *domain.Settings) { s.Index.EmbedConcurrency = 0 }, true},
		{"zero task timeout", func(s *domain.Settings) { s.Task.Timeout = 0 }, true},
		{"zero trace length", func(s *domain.Settings) { s.Task.TraceMaxLen = 0 }, true},
		{"negative rate", func(s *domain.Settings) { s.Embedding.RatePerSecond = -1 }, true},
		{"replay embeddings", func(s *domain.Settings) { s.Embedding.Provider = domain.AIProviderReplay }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := domain.DefaultSettings()
			tt.mutate(&settings)

			err := service.Validate(settings)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSettingsService_Set(t *testing.T) {
	store := memory.NewConfigStore(nil)
	service := NewSettingsService(store, WithEnv(envOf(nil)))

	require.NoError(t, service.Set("chunker.window_size", 600))
	require.NoError(t, service.Set("agent.provider", "replay"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 600, settings.Chunker.WindowSize)
	assert.Equal(t, domain.AIProviderReplay, settings.Agent.Provider)

	assert.ErrorIs(t, service.Set("search.mode", "hybrid"), domain.ErrInvalidInput)
	assert.ErrorIs(t, service.Set("embedding.provider", "bogus"), domain.ErrInvalidInput)
	assert.ErrorIs(t, service.Set("agent.provider", 3), domain.ErrInvalidInput)
}

func TestSettingsService_Set_ParsesStrings(t *testing.T) {
	store := memory.NewConfigStore(nil)
	service := NewSettingsService(store, WithEnv(envOf(nil)))

	require.NoError(t, service.Set("chunker.window_size", "800"))
	require.NoError(t, service.Set("task.timeout", "90"))
	require.NoError(t, service.Set("index.clear_on_start", "false"))
	require.NoError(t, service.Set("agent.model", "4"))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, 800, settings.Chunker.WindowSize)
	assert.Equal(t, 90*time.Second, settings.Task.Timeout)
	assert.False(t, settings.Index.ClearOnStart)
	assert.Equal(t, "4", settings.Agent.Model)

	assert.ErrorIs(t, service.Set("chunker.overlap", "lots"), domain.ErrInvalidInput)
	assert.ErrorIs(t, service.Set("index.clear_on_start", "maybe"), domain.ErrInvalidInput)
}
