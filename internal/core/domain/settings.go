package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies a provider for embeddings or agent runs.
type AIProvider string

// Available AI providers.
const (
	// AIProviderNone disables the service. Embeddings degrade to keyword search.
	AIProviderNone AIProvider = "none"

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI API or a compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderReplay replays a recorded event feed instead of calling a model.
	AIProviderReplay AIProvider = "replay"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderNone, AIProviderOllama, AIProviderOpenAI, AIProviderReplay:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderNone:
		return "Disabled"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderReplay:
		return "Recorded feed (replay)"
	default:
		return unknownDescription
	}
}

// ChunkerSettings configures document windowing.
type ChunkerSettings struct {
	WindowSize int
	Overlap    int
}

// IndexSettings configures the retrieval index.
type IndexSettings struct {
	// MaxChunks rejects documents that would produce more chunks.
	MaxChunks int

	// EmbedTimeout bounds every embedding gateway call.
	EmbedTimeout time.Duration

	// EmbedConcurrency is the number of chunks embedded in parallel.
	EmbedConcurrency int

	// ClearOnStart empties the store when the process initialises it.
	ClearOnStart bool
}

// TaskSettings configures task runs.
type TaskSettings struct {
	// Timeout bounds a whole run.
	Timeout time.Duration

	// TraceMaxLen is the character bound of trace payload fields.
	TraceMaxLen int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string

	// RatePerSecond limits gateway requests. Zero means unlimited.
	RatePerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderNone || e.Provider == AIProviderReplay {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// AgentSettings holds the agent collaborator configuration.
type AgentSettings struct {
	Provider AIProvider
	Model    string
	BaseURL  string
	APIKey   string

	// MaxToolRounds bounds retrieval round-trips within one run.
	MaxToolRounds int

	// ReplayPath is the JSONL feed used by the replay provider.
	ReplayPath string
}

// Settings is the resolved application configuration.
type Settings struct {
	Chunker   ChunkerSettings
	Index     IndexSettings
	Task      TaskSettings
	Embedding EmbeddingSettings
	Agent     AgentSettings
}

// DefaultSettings returns settings with sensible defaults.
// AI providers are left disabled until configured.
func DefaultSettings() Settings {
	return Settings{
		Chunker: ChunkerSettings{
			WindowSize: 1200,
			Overlap:    200,
		},
		Index: IndexSettings{
			MaxChunks:        2000,
			EmbedTimeout:     10 * time.Second,
			EmbedConcurrency: 4,
			ClearOnStart:     true,
		},
		Task: TaskSettings{
			Timeout:     5 * time.Minute,
			TraceMaxLen: 2000,
		},
		Embedding: EmbeddingSettings{Provider: AIProviderNone},
		Agent: AgentSettings{
			Provider:      AIProviderOpenAI,
			MaxToolRounds: 4,
		},
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultAgentModels returns default models for each agent provider.
func DefaultAgentModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "llama3.2",
		AIProviderOpenAI: "gpt-4o-mini",
	}
}
