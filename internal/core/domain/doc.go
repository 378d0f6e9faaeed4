// Package domain defines the core business entities for Newsdesk.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentRecord: A document owned by the retrieval index
//   - Chunk: An overlapping window of a document, the unit of retrieval
//   - Stage and RoutingState: The four-stage progress model of a task run
//   - Event: The closed set of normalised events streamed to callers
//   - Artifact: The structured result assembled at the end of a run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
