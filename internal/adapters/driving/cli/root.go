// Package cli provides the newsdesk command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/newsdesk/internal/adapters/driving/watch"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
	"github.com/custodia-labs/newsdesk/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Global flags.
var (
	verbose    bool
	configPath string
	noConfig   bool
	replayPath string
	preloadDir string
)

// Services wired by the bootstrap, or by tests.
var (
	indexService    driving.IndexService
	taskService     driving.TaskService
	settingsService driving.SettingsService
	ingester        *watch.Ingester
	closeServices   func()
)

// Services are the ports commands drive.
type Services struct {
	Index    driving.IndexService
	Tasks    driving.TaskService
	Settings driving.SettingsService
	Ingester *watch.Ingester

	// Close releases the services. Optional.
	Close func()
}

// Options are the global flags handed to a Bootstrap.
type Options struct {
	ConfigPath string
	NoConfig   bool
	ReplayPath string

	// Engine is false when the command only needs settings.
	Engine bool
}

// Bootstrap builds the services for a command.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

var bootstrap Bootstrap

// SetBootstrap registers the function that wires services on demand.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices installs services directly.
func SetServices(s *Services) {
	indexService = s.Index
	taskService = s.Tasks
	settingsService = s.Settings
	ingester = s.Ingester
	closeServices = s.Close
}

// Command requirements, stored in cobra annotations.
const (
	annotationNeeds = "newsdesk/needs"
	needsSettings   = "settings"
	needsEngine     = "engine"
)

var engineAnnotation = map[string]string{annotationNeeds: needsEngine}

var rootCmd = &cobra.Command{
	Use:   "newsdesk",
	Short: "News research agent over your documents",
	Long: `Newsdesk indexes documents into an in-memory retrieval index and runs
agent tasks against them, streaming routing, trace and answer events.

Use 'newsdesk ask' for a one-shot task, 'newsdesk tui' for the interactive
interface, or 'newsdesk serve' and 'newsdesk mcp' to expose the engine.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&configPath, "config", "", "config file (default ~/.newsdesk/config.toml)")
	flags.BoolVar(&noConfig, "no-config", false, "ignore the config file and use defaults and environment")
	flags.StringVar(&replayPath, "replay", "", "replay a recorded JSONL event feed instead of calling the agent")
	flags.StringVar(&preloadDir, "preload", "", "index every file in this directory before running")
}

// Execute runs the root command and releases wired services afterwards.
// Cancelling ctx cancels running tasks and stops servers.
func Execute(ctx context.Context) error {
	defer func() {
		if closeServices != nil {
			closeServices()
			closeServices = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	needs := cmd.Annotations[annotationNeeds]
	if needs == "" {
		return nil
	}
	if err := wire(cmd.Context(), needs); err != nil {
		return err
	}
	if needs == needsEngine && preloadDir != "" {
		return preload(cmd.Context(), preloadDir)
	}
	return nil
}

func wire(ctx context.Context, needs string) error {
	if bootstrap == nil {
		return nil
	}
	if needs == needsSettings && settingsService != nil {
		return nil
	}
	if needs == needsEngine && indexService != nil {
		return nil
	}

	svc, err := bootstrap(ctx, Options{
		ConfigPath: configPath,
		NoConfig:   noConfig,
		ReplayPath: replayPath,
		Engine:     needs == needsEngine,
	})
	if err != nil {
		return err
	}
	SetServices(svc)
	return nil
}

func preload(ctx context.Context, dir string) error {
	if ingester == nil {
		return errors.New("ingester not configured")
	}
	docs, err := ingester.IngestDir(ctx, dir, domain.SourcePreloaded)
	if err != nil && docs == nil {
		return fmt.Errorf("failed to preload %s: %w", dir, err)
	}
	logger.Debug("preloaded %d documents from %s", len(docs), dir)
	return nil
}
