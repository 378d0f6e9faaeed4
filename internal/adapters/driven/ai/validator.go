package ai

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

// ProviderHealth is the outcome of probing one configured provider.
type ProviderHealth struct {
	Provider domain.AIProvider
	Model    string
	// Enabled is false for an embedding provider that is not configured.
	Enabled bool
	Err     error
}

// Report holds the probe results for both providers.
type Report struct {
	Embedding ProviderHealth
	Agent     ProviderHealth
}

// Usable reports whether tasks can run. An unreachable embedding provider
// only degrades search to keyword scoring.
func (r Report) Usable() bool {
	return r.Agent.Err == nil
}

// Check probes the embedding and agent providers concurrently.
func Check(ctx context.Context, settings domain.Settings) Report {
	report := Report{
		Embedding: ProviderHealth{
			Provider: settings.Embedding.Provider,
			Model:    settings.Embedding.Model,
			Enabled:  settings.Embedding.IsConfigured(),
		},
		Agent: ProviderHealth{
			Provider: settings.Agent.Provider,
			Model:    settings.Agent.Model,
			Enabled:  true,
		},
	}

	var g errgroup.Group
	if report.Embedding.Enabled {
		g.Go(func() error {
			report.Embedding.Err = validateEmbedding(ctx, &settings.Embedding)
			return nil
		})
	}
	g.Go(func() error {
		report.Agent.Err = validateAgent(ctx, &settings.Agent)
		return nil
	})
	_ = g.Wait()

	return report
}
