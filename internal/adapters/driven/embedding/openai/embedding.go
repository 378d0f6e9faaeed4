// Package openai embeds text through the OpenAI /embeddings API or any
// endpoint compatible with it.
package openai

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
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// Config configures the service. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// RatePerSecond caps sustained requests. Zero means unlimited.
	RatePerSecond float64
}

// EmbeddingService embeds text with an OpenAI embedding model.
type EmbeddingService struct {
	client  *embedding.Client
	baseURL string
	model   string
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// NewEmbeddingService fills in defaults and fails without an API key.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai: API key is required", domain.ErrConfig)
	}
	cfg.BaseURL = or(cfg.BaseURL, DefaultBaseURL)
	cfg.Model = or(cfg.Model, DefaultModel)
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	headers := map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	return &EmbeddingService{
		client:  embedding.NewClient("openai", cfg.BaseURL, cfg.Timeout, cfg.RatePerSecond, headers),
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}, nil
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Embed returns the vector for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: openai: no embedding returned", domain.ErrEmbeddingUnavailable)
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request. The result is ordered like
// texts; an entry the response skipped stays nil.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := s.client.Post(ctx, "/embeddings", embeddingRequest{Model: s.model, Input: texts})
	if err != nil {
		return nil, err
	}

	vecs := make([][]float32, len(texts))
	for _, item := range resp.Get("data").Array() {
		i := int(item.Get("index").Int())
		if i < 0 || i >= len(texts) {
			continue
		}
		vecs[i] = embedding.Vector(item.Get("embedding"))
	}
	return vecs, nil
}

func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.client.Get(ctx, "/models")
}

func (s *EmbeddingService) Close() error {
	s.client.Close()
	return nil
}
