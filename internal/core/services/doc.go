// Package services holds the newsroom engine: the retrieval index, the
// task orchestrator that drives an agent run through its stages, and the
// settings service. The driving adapters reach it through the ports in
// internal/core/ports/driving; everything it needs from the outside world
// (chunk storage, embeddings, the agent runner) arrives as a driven port.
package services
