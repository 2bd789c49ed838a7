// Package services contains the core business logic implementations.
//
// Services implement the driving port interfaces and depend only on
// domain types and driven port interfaces. They orchestrate between
// the corpus store, generation backends, and the safety policy without
// knowing anything about concrete adapters.
//
// # Import Rules
//
//   - Can Import: domain, ports/driven, ports/driving, chunker, logger
//   - Cannot Import: Any adapter package
package services
