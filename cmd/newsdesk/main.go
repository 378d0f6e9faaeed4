// Command newsdesk runs the news research agent.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/newsdesk/internal/adapters/driven/ai"
	"github.com/custodia-labs/newsdesk/internal/adapters/driven/config/file"
	"github.com/custodia-labs/newsdesk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/newsdesk/internal/adapters/driving/cli"
	"github.com/custodia-labs/newsdesk/internal/adapters/driving/watch"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
	"github.com/custodia-labs/newsdesk/internal/core/services"
	"github.com/custodia-labs/newsdesk/internal/normalisers"
	"github.com/custodia-labs/newsdesk/internal/postprocessors"
)

func main() {
	// A missing .env is fine; keys may come from the shell or the config file.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetBootstrap(bootstrap)
	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// bootstrap wires the settings and, when asked for, the engine. The chunk
// store is created and initialised exactly once here and shared by
// injection with every consumer.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	store, promptDir, err := configStore(opts)
	if err != nil {
		return nil, err
	}
	settingsService := services.NewSettingsService(store)

	if !opts.Engine {
		return &cli.Services{Settings: settingsService}, nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if opts.ReplayPath != "" {
		settings.Agent.Provider = domain.AIProviderReplay
		settings.Agent.ReplayPath = opts.ReplayPath
	}
	if err := settingsService.Validate(settings); err != nil {
		return nil, err
	}

	chunker, err := postprocessors.NewChunker(settings.Chunker)
	if err != nil {
		return nil, err
	}

	chunkStore := memory.NewChunkStore()
	if err := chunkStore.Initialize(ctx, settings.Index.ClearOnStart); err != nil {
		return nil, fmt.Errorf("initialise store: %w", err)
	}

	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return nil, err
	}
	aiServices, err := ai.Initialise(settings, prompts)
	if err != nil {
		return nil, err
	}

	indexOpts := []services.IndexOption{
		services.WithMaxChunks(settings.Index.MaxChunks),
		services.WithEmbedTimeout(settings.Index.EmbedTimeout),
		services.WithEmbedConcurrency(settings.Index.EmbedConcurrency),
	}
	if aiServices.EmbeddingService != nil {
		indexOpts = append(indexOpts, services.WithEmbeddingService(aiServices.EmbeddingService))
	}
	indexService := services.NewIndexService(chunkStore, chunker, indexOpts...)

	taskService := services.NewTaskService(indexService, aiServices.AgentRunner,
		services.WithTaskTimeout(settings.Task.Timeout),
		services.WithTraceMaxLen(settings.Task.TraceMaxLen),
	)

	return &cli.Services{
		Index:    indexService,
		Tasks:    taskService,
		Settings: settingsService,
		Ingester: watch.NewIngester(indexService, normalisers.NewDefaultRegistry()),
		Close: func() {
			taskService.Wait()
			aiServices.Close()
		},
	}, nil
}

// configStore opens the TOML config, or an empty in-memory store with
// --no-config. Prompts live next to the config file.
func configStore(opts cli.Options) (driven.ConfigStore, string, error) {
	if opts.NoConfig {
		return memory.NewConfigStore(nil), "", nil
	}

	path := opts.ConfigPath
	if path == "" {
		p, err := file.DefaultPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}

	store, err := file.NewConfigStore(path)
	if err != nil {
		return nil, "", fmt.Errorf("open config %s: %w", path, err)
	}
	return store, filepath.Join(filepath.Dir(path), "prompts"), nil
}
