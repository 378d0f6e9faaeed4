package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/newsdesk/internal/adapters/driven/ai"
	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

var settingsAnnotation = map[string]string{annotationNeeds: needsSettings}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change configuration stored in ~/.newsdesk/config.toml.

Keys use dot notation, for example:
  chunker.window_size, chunker.overlap
  index.max_chunks, index.embed_timeout, index.embed_concurrency, index.clear_on_start
  task.timeout, task.trace_max_len
  embedding.provider, embedding.model, embedding.base_url, embedding.api_key, embedding.rate_per_second
  agent.provider, agent.model, agent.base_url, agent.api_key, agent.max_tool_rounds, agent.replay_path

API keys and models may also come from OPENAI_API_KEY, OPENAI_BASE_URL,
NEWSDESK_AGENT_MODEL and NEWSDESK_EMBEDDING_MODEL, or a .env file.`,
	Annotations: settingsAnnotation,
	RunE:        runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show resolved settings",
	Args:        cobra.NoArgs,
	Annotations: settingsAnnotation,
	RunE:        runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration key",
	Long: `Stores one configuration key.

Examples:
  newsdesk config set agent.provider ollama
  newsdesk config set chunker.window_size 800
  newsdesk config set embedding.rate_per_second 2.5`,
	Args:        cobra.ExactArgs(2),
	Annotations: settingsAnnotation,
	RunE:        runConfigSet,
}

var configCheckCmd = &cobra.Command{
	Use:         "check",
	Short:       "Validate settings and reach the providers",
	Args:        cobra.NoArgs,
	Annotations: settingsAnnotation,
	RunE:        runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Chunker]")
	cmd.Printf("  Window size: %d\n", settings.Chunker.WindowSize)
	cmd.Printf("  Overlap: %d\n", settings.Chunker.Overlap)
	cmd.Println()

	cmd.Println("[Index]")
	cmd.Printf("  Max chunks: %d\n", settings.Index.MaxChunks)
	cmd.Printf("  Embed timeout: %s\n", settings.Index.EmbedTimeout)
	cmd.Printf("  Embed concurrency: %d\n", settings.Index.EmbedConcurrency)
	cmd.Printf("  Clear on start: %t\n", settings.Index.ClearOnStart)
	cmd.Println()

	cmd.Println("[Task]")
	cmd.Printf("  Timeout: %s\n", settings.Task.Timeout)
	cmd.Printf("  Trace max length: %d\n", settings.Task.TraceMaxLen)
	cmd.Println()

	e := settings.Embedding
	cmd.Println("[Embedding]")
	printProvider(cmd, e.Provider, e.Model, e.BaseURL, e.APIKey)
	if e.RatePerSecond > 0 {
		cmd.Printf("  Rate: %g/s\n", e.RatePerSecond)
	}
	status := "configured"
	if !e.IsConfigured() {
		status = "not configured (keyword search only)"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	a := settings.Agent
	cmd.Println("[Agent]")
	if a.Provider == domain.AIProviderReplay {
		cmd.Printf("  Provider: %s\n", a.Provider.Description())
		cmd.Printf("  Recording: %s\n", a.ReplayPath)
	} else {
		printProvider(cmd, a.Provider, a.Model, a.BaseURL, a.APIKey)
		cmd.Printf("  Max tool rounds: %d\n", a.MaxToolRounds)
	}
	cmd.Println()

	if err := settingsService.Validate(settings); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'newsdesk config set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	if provider == domain.AIProviderNone {
		return
	}
	cmd.Printf("  Model: %s\n", model)
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	shown := value
	if key == "embedding.api_key" || key == "agent.api_key" {
		shown = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, shown)
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := settingsService.Validate(settings); err != nil {
		return err
	}
	cmd.Println("Settings: ok")

	report := ai.Check(cmd.Context(), settings)

	switch e := report.Embedding; {
	case !e.Enabled:
		cmd.Println("Embedding: disabled, searches use keyword scoring")
	case e.Err != nil:
		cmd.Printf("Embedding: unreachable (%v), searches fall back to keyword scoring\n", e.Err)
	default:
		cmd.Printf("Embedding: ok (%s)\n", e.Model)
	}

	if !report.Usable() {
		return fmt.Errorf("agent: %w", report.Agent.Err)
	}
	cmd.Printf("Agent: ok (%s)\n", report.Agent.Provider.Description())
	return nil
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
