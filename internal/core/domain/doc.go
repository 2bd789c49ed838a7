// Package domain defines the core business entities for Campfire.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested corpus document
//   - Chunk: An offset-addressable slice of a document's text
//   - SearchHit: A ranked full-text search result
//   - Message/ToolCall/ToolResult: One request's conversation state
//   - ChecklistResponse: The structured answer shown to users
//   - CriticDecision: The safety critic's ALLOW/BLOCK verdict
//   - Policy: Safety policy rules (keywords, blocked phrases, disclaimers)
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
