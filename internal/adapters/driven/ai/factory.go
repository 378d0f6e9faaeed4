// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaiagent "github.com/custodia-labs/newsdesk/internal/adapters/driven/agent/openai"
	"github.com/custodia-labs/newsdesk/internal/adapters/driven/agent/replay"
	ollamaembed "github.com/custodia-labs/newsdesk/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/newsdesk/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
	"github.com/custodia-labs/newsdesk/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// ollamaAPIKey is sent to Ollama's OpenAI-compatible endpoint, which ignores it.
const ollamaAPIKey = "ollama"

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	AgentRunner      driven.AgentRunner
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if fell back to keyword-only search.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
}

// Initialise creates the embedding service and agent runner from settings.
// An unreachable embedding service is not fatal: search falls back to
// keyword scoring and a warning is recorded. A missing agent is fatal.
func Initialise(settings domain.Settings, prompts driven.PromptStore) (*InitResult, error) {
	result := &InitResult{}

	embedder, err := CreateAndValidateEmbeddingService(&settings.Embedding)
	if err != nil {
		logger.Warn("embedding disabled: %v", err)
		result.Warnings = append(result.Warnings, err.Error())
		result.FellBack = true
	} else {
		result.EmbeddingService = embedder
	}

	runner, err := CreateAgentRunner(&settings.Agent, prompts)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.AgentRunner = runner

	return result, nil
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'newsdesk config set embedding.provider' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	if svc == nil {
		return nil, nil
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Run 'newsdesk config set embedding.provider' to fix",
			domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// validateEmbedding creates the configured embedding service and pings it.
func validateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	if settings == nil || !settings.IsConfigured() {
		return nil
	}

	svc, err := CreateEmbeddingService(settings)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:       settings.BaseURL,
			Model:         settings.Model,
			RatePerSecond: settings.RatePerSecond,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:        settings.APIKey,
			BaseURL:       settings.BaseURL,
			Model:         settings.Model,
			RatePerSecond: settings.RatePerSecond,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateAgentRunner creates the agent runner based on settings.
// Ollama is reached through its OpenAI-compatible endpoint.
func CreateAgentRunner(settings *domain.AgentSettings, prompts driven.PromptStore) (driven.AgentRunner, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: agent settings are required", domain.ErrConfig)
	}

	rounds := settings.MaxToolRounds
	if rounds == 0 {
		rounds = -1
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		runner, err := openaiagent.NewRunner(openaiagent.Config{
			APIKey:        settings.APIKey,
			BaseURL:       settings.BaseURL,
			Model:         settings.Model,
			MaxToolRounds: rounds,
		})
		if err != nil {
			return nil, err
		}
		if prompts != nil {
			runner.SetPromptStore(prompts)
		}
		return runner, nil

	case domain.AIProviderOllama:
		runner, err := openaiagent.NewRunner(openaiagent.Config{
			APIKey:        ollamaAPIKey,
			BaseURL:       ollamaOpenAIURL(settings.BaseURL),
			Model:         settings.Model,
			MaxToolRounds: rounds,
		})
		if err != nil {
			return nil, err
		}
		if prompts != nil {
			runner.SetPromptStore(prompts)
		}
		return runner, nil

	case domain.AIProviderReplay:
		return replay.NewRunner(settings.ReplayPath)

	default:
		return nil, fmt.Errorf("%w: unsupported agent provider: %q", domain.ErrConfig, settings.Provider)
	}
}

// validateAgent pings network providers; a replay recording must exist.
func validateAgent(ctx context.Context, settings *domain.AgentSettings) error {
	runner, err := CreateAgentRunner(settings, nil)
	if err != nil {
		return err
	}

	pinger, ok := runner.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return pinger.Ping(ctx)
}

func ollamaOpenAIURL(base string) string {
	if base == "" {
		base = ollamaembed.DefaultBaseURL
	}
	base = strings.TrimSuffix(base, "/")
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}
