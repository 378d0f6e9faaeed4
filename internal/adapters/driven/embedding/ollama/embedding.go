// Package ollama embeds text with a model served by a local Ollama.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/newsdesk/internal/adapters/driven/embedding"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "nomic-embed-text"
	DefaultTimeout = 30 * time.Second
)

// Config configures the service. Every field has a default.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	// RatePerSecond caps sustained requests. Zero means unlimited.
	RatePerSecond float64
}

// EmbeddingService calls Ollama's /api/embeddings.
type EmbeddingService struct {
	client  *embedding.Client
	baseURL string
	model   string
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &EmbeddingService{
		client:  embedding.NewClient("ollama", cfg.BaseURL, cfg.Timeout, cfg.RatePerSecond, nil),
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.client.Post(ctx, "/api/embeddings", embedRequest{Model: s.model, Prompt: text})
	if err != nil {
		return nil, err
	}
	vec := embedding.Vector(resp.Get("embedding"))
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: ollama: empty embedding", domain.ErrEmbeddingUnavailable)
	}
	return vec, nil
}

func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists local models; it fails when Ollama is not running.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, "/api/tags")
}

func (s *EmbeddingService) Close() error {
	s.client.Close()
	return nil
}
