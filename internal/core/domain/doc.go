// Package domain defines the core business entities for kbprep.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: An editable unit of extracted document text
//   - Collection: The ordered, identity-keyed set of chunks under review
//   - Phase: The active pipeline stage (uploading, reviewing, processing)
//   - PipelineEvent: A notification published on every state change
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
