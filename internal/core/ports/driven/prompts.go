package driven

// Prompt names.
const (
	// PromptAgentSystem is the system prompt of agent runs.
	PromptAgentSystem = "agent_system"

	// PromptSearchTool describes the retrieval tool to the agent.
	PromptSearchTool = "search_tool"
)

// PromptStore loads user-editable prompt templates.
type PromptStore interface {
	// Load returns the prompt with the given name.
	Load(name string) (string, error)
}
