package services

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driven"
	"github.com/custodia-labs/newsdesk/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyChunkWindow      = "chunker.window_size"
	keyChunkOverlap     = "chunker.overlap"
	keyMaxChunks        = "index.max_chunks"
	keyEmbedTimeout     = "index.embed_timeout"
	keyEmbedConcurrency = "index.embed_concurrency"
	keyClearOnStart     = "index.clear_on_start"
	keyTaskTimeout      = "task.timeout"
	keyTraceMaxLen      = "task.trace_max_len"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedRate        = "embedding.rate_per_second"
	keyAgentProvider    = "agent.provider"
	keyAgentModel       = "agent.model"
	keyAgentBaseURL     = "agent.base_url"
	keyAgentAPIKey      = "agent.api_key"
	keyAgentToolRounds  = "agent.max_tool_rounds"
	keyAgentReplayPath  = "agent.replay_path"
)

// Environment variables consulted when the config file leaves a value empty.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvOpenAIBaseURL  = "OPENAI_BASE_URL"
	EnvAgentModel     = "NEWSDESK_AGENT_MODEL"
	EnvEmbeddingModel = "NEWSDESK_EMBEDDING_MODEL"
)

var knownKeys = map[string]bool{
	keyChunkWindow: true, keyChunkOverlap: true,
	keyMaxChunks: true, keyEmbedTimeout: true, keyEmbedConcurrency: true, keyClearOnStart: true,
	keyTaskTimeout: true, keyTraceMaxLen: true,
	keyEmbedProvider: true, keyEmbedModel: true, keyEmbedBaseURL: true, keyEmbedAPIKey: true, keyEmbedRate: true,
	keyAgentProvider: true, keyAgentModel: true, keyAgentBaseURL: true, keyAgentAPIKey: true,
	keyAgentToolRounds: true, keyAgentReplayPath: true,
}

// Value kinds of keys that are not strings. Set parses string input into them.
var (
	intKeys = map[string]bool{
		keyChunkWindow: true, keyChunkOverlap: true, keyMaxChunks: true,
		keyEmbedConcurrency: true, keyTraceMaxLen: true, keyAgentToolRounds: true,
	}
	floatKeys = map[string]bool{keyEmbedTimeout: true, keyTaskTimeout: true, keyEmbedRate: true}
	boolKeys  = map[string]bool{keyClearOnStart: true}
)

// SettingsService resolves application settings from the config store,
// falling back to environment variables and then to defaults.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// SettingsOption configures the settings service.
type SettingsOption func(*SettingsService)

// WithEnv replaces the environment lookup, os.Getenv by default.
func WithEnv(getenv func(string) string) SettingsOption {
	return func(s *SettingsService) {
		s.getenv = getenv
	}
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, opts ...SettingsOption) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := domain.Settings{
		Chunker: domain.ChunkerSettings{
			WindowSize: s.getInt(keyChunkWindow, defaults.Chunker.WindowSize),
			Overlap:    s.getInt(keyChunkOverlap, defaults.Chunker.Overlap),
		},
		Index: domain.IndexSettings{
			MaxChunks:        s.getInt(keyMaxChunks, defaults.Index.MaxChunks),
			EmbedTimeout:     s.getSeconds(keyEmbedTimeout, defaults.Index.EmbedTimeout),
			EmbedConcurrency: s.getInt(keyEmbedConcurrency, defaults.Index.EmbedConcurrency),
			ClearOnStart:     s.getBool(keyClearOnStart, defaults.Index.ClearOnStart),
		},
		Task: domain.TaskSettings{
			Timeout:     s.getSeconds(keyTaskTimeout, defaults.Task.Timeout),
			TraceMaxLen: s.getInt(keyTraceMaxLen, defaults.Task.TraceMaxLen),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:      s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:         s.getString(keyEmbedModel, s.getenv(EnvEmbeddingModel)),
			BaseURL:       s.configStore.GetString(keyEmbedBaseURL),
			APIKey:        s.configStore.GetString(keyEmbedAPIKey),
			RatePerSecond: s.configStore.GetFloat(keyEmbedRate),
		},
		Agent: domain.AgentSettings{
			Provider:      s.getProvider(keyAgentProvider, defaults.Agent.Provider),
			Model:         s.getString(keyAgentModel, s.getenv(EnvAgentModel)),
			BaseURL:       s.configStore.GetString(keyAgentBaseURL),
			APIKey:        s.configStore.GetString(keyAgentAPIKey),
			MaxToolRounds: s.getInt(keyAgentToolRounds, defaults.Agent.MaxToolRounds),
			ReplayPath:    s.configStore.GetString(keyAgentReplayPath),
		},
	}

	s.applyProviderDefaults(&settings.Embedding.Model, &settings.Embedding.BaseURL, &settings.Embedding.APIKey,
		settings.Embedding.Provider, domain.DefaultEmbeddingModels())
	s.applyProviderDefaults(&settings.Agent.Model, &settings.Agent.BaseURL, &settings.Agent.APIKey,
		settings.Agent.Provider, domain.DefaultAgentModels())

	return settings, nil
}

// applyProviderDefaults fills model, base URL and key for a provider.
func (s *SettingsService) applyProviderDefaults(model, baseURL, apiKey *string, provider domain.AIProvider, models map[domain.AIProvider]string) {
	if *model == "" {
		*model = models[provider]
	}
	switch provider {
	case domain.AIProviderOpenAI:
		if *apiKey == "" {
			*apiKey = s.getenv(EnvOpenAIAPIKey)
		}
		if *baseURL == "" {
			*baseURL = s.getenv(EnvOpenAIBaseURL)
		}
	case domain.AIProviderOllama:
		if *baseURL == "" {
			*baseURL = "http://localhost:11434"
		}
	}
}

// Validate checks the settings can start the engine.
func (s *SettingsService) Validate(settings domain.Settings) error {
	c := settings.Chunker
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: chunker window size must be positive, got %d", domain.ErrConfig, c.WindowSize)
	}
	if c.Overlap < 0 || c.Overlap >= c.WindowSize {
		return fmt.Errorf("%w: chunker overlap must be in [0, %d), got %d", domain.ErrConfig, c.WindowSize, c.Overlap)
	}
	if settings.Index.MaxChunks < 0 {
		return fmt.Errorf("%w: index max chunks must not be negative", domain.ErrConfig)
	}
	if settings.Index.EmbedConcurrency <= 0 {
		return fmt.Errorf("%w: index embed concurrency must be positive", domain.ErrConfig)
	}
	if settings.Index.EmbedTimeout <= 0 || settings.Task.Timeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", domain.ErrConfig)
	}
	if settings.Task.TraceMaxLen <= 0 {
		return fmt.Errorf("%w: trace max length must be positive", domain.ErrConfig)
	}
	if settings.Embedding.RatePerSecond < 0 {
		return fmt.Errorf("%w: embedding rate must not be negative", domain.ErrConfig)
	}
	if settings.Embedding.Provider == domain.AIProviderReplay {
		return fmt.Errorf("%w: %s is not an embedding provider", domain.ErrConfig, settings.Embedding.Provider)
	}
	return nil
}

// Set stores a single configuration key. String values of numeric and
// boolean keys are parsed first.
func (s *SettingsService) Set(key string, value any) error {
	if !knownKeys[key] {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	value, err := coerce(key, value)
	if err != nil {
		return err
	}
	if key == keyEmbedProvider || key == keyAgentProvider {
		str, _ := value.(string)
		if !domain.AIProvider(str).IsValid() {
			return fmt.Errorf("%w: invalid provider %v", domain.ErrInvalidInput, value)
		}
	}
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func coerce(key string, value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return value, nil
	}

	var (
		parsed any
		err    error
	)
	switch {
	case intKeys[key]:
		parsed, err = strconv.Atoi(str)
	case floatKeys[key]:
		parsed, err = strconv.ParseFloat(str, 64)
	case boolKeys[key]:
		parsed, err = strconv.ParseBool(str)
	default:
		return str, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %q is not a valid value", domain.ErrInvalidInput, key, str)
	}
	return parsed, nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getSeconds reads a duration stored as a number of seconds.
func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetFloat(key) * float64(time.Second))
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
