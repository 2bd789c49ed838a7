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
//   - CorpusStore: Document, chunk, and full-text index persistence (SQLite)
//   - GenerationBackend: Language model inference (Ollama, LM Studio)
//   - PolicyStore: Safety policy loading and reload notification
//   - Extractor: Source file to plain-text segment extraction
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - AuditLog: Decision audit persistence. Without it, decisions are only
//     written to the process log.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
