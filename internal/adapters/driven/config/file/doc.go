// Package file keeps newsdesk settings and agent prompts on disk.
//
// ConfigStore reads and writes ~/.newsdesk/config.toml. PromptStore loads
// the per-stage agent prompts from the prompts directory beside it and
// falls back to the built-in text for any prompt that is missing.
package file
