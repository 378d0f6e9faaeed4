package ai

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

func TestInitResult_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		result := &InitResult{}
		// Should not panic
		result.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		wantNil  bool
	}{
		{
			name:     "nil settings returns nil",
			settings: nil,
			wantNil:  true,
		},
		{
			name:     "unconfigured settings returns nil",
			settings: &domain.EmbeddingSettings{},
			wantNil:  true,
		},
		{
			name:     "none provider returns nil",
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderNone},
			wantNil:  true,
		},
		{
			name: "ollama provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				BaseURL:  "http://localhost:11434",
				Model:    "nomic-embed-text",
			},
		},
		{
			name: "openai provider creates service",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "test-key",
				Model:    "text-embedding-3-small",
			},
		},
		{
			name: "openai without key is not configured",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
			},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings)
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			assert.Equal(t, tt.settings.Model, svc.ModelName())
			svc.Close()
		})
	}
}

func TestCreateAndValidateEmbeddingService(t *testing.T) {
	t.Run("reachable service", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2],"index":0}]}`))
		}))
		defer srv.Close()

		svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOpenAI,
			APIKey:   "key",
			BaseURL:  srv.URL,
		})
		require.NoError(t, err)
		require.NotNil(t, svc)
		svc.Close()
	})

	t.Run("unreachable service", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		svc, err := CreateAndValidateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderOpenAI,
			APIKey:   "key",
			BaseURL:  srv.URL,
		})
		require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		assert.Nil(t, svc)
	})
}

func TestCreateAgentRunner(t *testing.T) {
	recording := filepath.Join(t.TempDir(), "run.jsonl")
	require.NoError(t, os.WriteFile(recording, []byte(`{"done":true,"success":true}`), 0o600))

	tests := []struct {
		name     string
		settings *domain.AgentSettings
		wantName string
		wantErr  bool
	}{
		{name: "nil settings", settings: nil, wantErr: true},
		{
			name:     "openai",
			settings: &domain.AgentSettings{Provider: domain.AIProviderOpenAI, APIKey: "key"},
			wantName: "openai",
		},
		{
			name:     "openai without key",
			settings: &domain.AgentSettings{Provider: domain.AIProviderOpenAI},
			wantErr:  true,
		},
		{
			name:     "ollama uses the openai compatible endpoint",
			settings: &domain.AgentSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"},
			wantName: "openai",
		},
		{
			name:     "replay",
			settings: &domain.AgentSettings{Provider: domain.AIProviderReplay, ReplayPath: recording},
			wantName: "replay",
		},
		{
			name:     "replay without recording",
			settings: &domain.AgentSettings{Provider: domain.AIProviderReplay},
			wantErr:  true,
		},
		{
			name:     "none",
			settings: &domain.AgentSettings{Provider: domain.AIProviderNone},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, err := CreateAgentRunner(tt.settings, nil)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrConfig)
				assert.Nil(t, runner)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, runner.Name())
		})
	}
}

func TestOllamaOpenAIURL(t *testing.T) {
	assert.Equal(t, "http://localhost:11434/v1", ollamaOpenAIURL(""))
	assert.Equal(t, "http://gpu:11434/v1", ollamaOpenAIURL("http://gpu:11434/"))
	assert.Equal(t, "http://gpu:11434/v1", ollamaOpenAIURL("http://gpu:11434/v1"))
}

func TestInitialise(t *testing.T) {
	recording := filepath.Join(t.TempDir(), "run.jsonl")
	require.NoError(t, os.WriteFile(recording, []byte(`{"done":true,"success":true}`), 0o600))

	t.Run("unreachable embedding falls back", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		settings := domain.DefaultSettings()
		settings.Embedding = domain.EmbeddingSettings{Provider: domain.AIProviderOllama, BaseURL: srv.URL}
		settings.Agent = domain.AgentSettings{Provider: domain.AIProviderReplay, ReplayPath: recording}

		result, err := Initialise(settings, nil)
		require.NoError(t, err)
		defer result.Close()

		assert.True(t, result.FellBack)
		assert.Len(t, result.Warnings, 1)
		assert.Nil(t, result.EmbeddingService)
		assert.Equal(t, "replay", result.AgentRunner.Name())
	})

	t.Run("missing agent is fatal", func(t *testing.T) {
		settings := domain.DefaultSettings()
		settings.Agent = domain.AgentSettings{Provider: domain.AIProviderOpenAI}

		result, err := Initialise(settings, nil)
		require.ErrorIs(t, err, domain.ErrConfig)
		assert.Nil(t, result)
	})
}
