// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Chunker: Splits document text into overlapping windows
//   - ChunkStore: Document and chunk storage owned by the retrieval index
//   - AgentRunner: Starts an agent run and exposes its raw event feed
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, retrieval
//     falls back to keyword scoring for every chunk.
//   - NormaliserRegistry: Extracts text from files on disk. Only the
//     file-based entry points (index, preload, watch) need it.
//
// # Callbacks
//
//   - Retriever: Handed to an agent run so it can query the index mid-run.
package driven
