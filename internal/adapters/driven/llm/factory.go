// Package llm provides factory functions for creating generation backends.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/campfire-labs/campfire/internal/adapters/driven/llm/lmstudio"
	"github.com/campfire-labs/campfire/internal/adapters/driven/llm/ollama"
	"github.com/campfire-labs/campfire/internal/core/domain"
	"github.com/campfire-labs/campfire/internal/core/ports/driven"
	"github.com/campfire-labs/campfire/internal/logger"
)

// Supported providers.
const (
	ProviderOllama   = "ollama"
	ProviderLMStudio = "lmstudio"
	ProviderAuto     = "auto"
)

// pingTimeout is the maximum time to wait for backend connectivity validation.
const pingTimeout = 5 * time.Second

// Settings selects and configures a generation backend.
type Settings struct {
	// Provider is "ollama", "lmstudio", or "auto". Auto probes Ollama
	// first, then LM Studio.
	Provider string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Model overrides the provider's default model.
	Model string

	// Timeout is the per-request timeout.
	Timeout time.Duration
}

// CreateBackend creates the configured generation backend without probing it.
func CreateBackend(settings Settings) (driven.GenerationBackend, error) {
	switch settings.Provider {
	case ProviderOllama, "":
		return ollama.NewBackend(ollama.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		}), nil

	case ProviderLMStudio:
		return lmstudio.NewBackend(lmstudio.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
			Timeout: settings.Timeout,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", settings.Provider)
	}
}

// CreateAndValidateBackend creates a backend and validates connectivity.
// With provider "auto" it probes Ollama then LM Studio and returns the first
// reachable one. Returns (nil, nil) in auto mode when no backend answers,
// which callers treat as template-only operation.
func CreateAndValidateBackend(settings Settings) (driven.GenerationBackend, error) {
	if settings.Provider == ProviderAuto {
		return autoDetect(settings)
	}

	backend, err := CreateBackend(settings)
	if err != nil {
		return nil, err
	}

	if err := ping(backend); err != nil {
		backend.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	return backend, nil
}

// autoDetect probes the known local inference servers in preference order.
func autoDetect(settings Settings) (driven.GenerationBackend, error) {
	for _, provider := range []string{ProviderOllama, ProviderLMStudio} {
		probe := settings
		probe.Provider = provider
		// Custom BaseURL only applies to an explicit provider choice.
		probe.BaseURL = ""

		backend, err := CreateBackend(probe)
		if err != nil {
			return nil, err
		}
		if err := ping(backend); err != nil {
			logger.Debug("%s not reachable: %v", provider, err)
			backend.Close()
			continue
		}
		logger.Info("using %s backend (model %s)", provider, backend.ModelName())
		return backend, nil
	}

	logger.Warn("no generation backend reachable, answers fall back to templates")
	return nil, nil
}

func ping(backend driven.GenerationBackend) error {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return backend.Ping(ctx)
}
