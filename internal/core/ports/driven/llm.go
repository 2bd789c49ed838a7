package driven

import (
	"context"

	"github.com/campfire-labs/campfire/internal/core/domain"
)

// GenerationBackend provides language model inference for the orchestration
// engine. All implementations talk to local inference servers; nothing
// leaves the machine.
//
// Implementations may include:
//   - Ollama (local models, tool-aware prompt formats)
//   - LM Studio (local inference server, plain chat only)
type GenerationBackend interface {
	// Generate produces a completion from a single prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Chat conducts a multi-turn conversation and returns the
	// assistant's reply text.
	Chat(ctx context.Context, messages []domain.Message, opts ChatOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// SupportsToolLoop reports whether the backend's prompt format can
	// carry structured tool calls. When false the engine falls back to
	// single-shot retrieval-augmented generation.
	SupportsToolLoop() bool

	// Ping validates the backend is reachable with a lightweight request.
	// Used at startup to pick a backend before committing to a mode.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures single-prompt generation.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}
