// Package driving declares what the CLI, the HTTP API, the MCP server and
// the TUI may ask of the engine: index documents, search them, submit a
// task and follow its run, read or change settings.
package driving
