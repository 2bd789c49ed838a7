package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/campfire-labs/campfire/internal/adapters/driven/extract/markdown"
	"github.com/campfire-labs/campfire/internal/adapters/driven/extract/plaintext"
	"github.com/campfire-labs/campfire/internal/adapters/driven/llm"
	policyfile "github.com/campfire-labs/campfire/internal/adapters/driven/policy/file"
	"github.com/campfire-labs/campfire/internal/adapters/driven/storage/sqlite"
	"github.com/campfire-labs/campfire/internal/adapters/driving/cli"
	"github.com/campfire-labs/campfire/internal/adapters/driving/httpapi"
	"github.com/campfire-labs/campfire/internal/chunker"
	"github.com/campfire-labs/campfire/internal/config"
	"github.com/campfire-labs/campfire/internal/core/ports/driven"
	"github.com/campfire-labs/campfire/internal/core/services"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	root := cli.NewRootCommand(version, buildApp)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildApp wires the adapters and services from loaded configuration.
func buildApp(cfg *config.Config) (*cli.App, error) {
	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening corpus store: %w", err)
	}

	policies, err := policyfile.NewPolicyStore(cfg.PolicyFile)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("loading safety policy: %w", err)
	}

	// An unreachable backend in auto mode is not fatal: the engine
	// serves template answers until one comes up.
	backend, err := llm.CreateAndValidateBackend(llm.Settings{
		Provider: cfg.Backend.Provider,
		BaseURL:  cfg.Backend.BaseURL,
		Model:    cfg.Backend.Model,
		Timeout:  cfg.BackendTimeout(),
	})
	if err != nil {
		store.Close()
		policies.Close()
		return nil, fmt.Errorf("connecting to generation backend: %w", err)
	}

	corpus := store.CorpusStore()
	audit := store.AuditLog()

	chunk := chunker.New(
		chunker.WithChunkSize(cfg.Chunker.ChunkSize),
		chunker.WithOverlap(cfg.Chunker.Overlap),
		chunker.WithMinChunkSize(cfg.Chunker.MinChunkSize),
		chunker.WithSentenceBoundaries(cfg.Chunker.SentenceBoundaries),
	)

	retrieval := services.NewRetrievalService(corpus)
	ingest := services.NewIngestService(corpus, []driven.Extractor{
		plaintext.New(),
		markdown.New(),
	}, chunk)
	critic := services.NewCritic(policies)
	engine := services.NewEngine(backend, retrieval, critic, audit, services.EngineConfig{
		MaxIterations:     cfg.Engine.MaxIterations,
		MaxTokens:         cfg.Engine.MaxTokens,
		Temperature:       cfg.Engine.Temperature,
		MaxHistory:        cfg.Engine.MaxHistory,
		GenerationTimeout: cfg.EngineTimeout(),
		FallbackMode:      cfg.Engine.FallbackMode,
	})

	backendName := ""
	if backend != nil {
		backendName = backend.ModelName()
	}
	handler := httpapi.NewServer(engine, retrieval, ingest, audit, httpapi.Config{
		AdminToken:  cfg.HTTP.AdminToken,
		BackendName: backendName,
	})

	return &cli.App{
		Config:    cfg,
		Ingest:    ingest,
		Retrieval: retrieval,
		Chat:      engine,
		Audit:     audit,
		Handler:   handler,
		Cleanup: func() error {
			var errs []error
			if backend != nil {
				errs = append(errs, backend.Close())
			}
			errs = append(errs, policies.Close(), store.Close())
			return errors.Join(errs...)
		},
	}, nil
}
