// Package cli provides the campfire command line interface. Commands are
// built over an explicit App dependency struct supplied by main; the package
// holds no mutable service state of its own.
package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/campfire-labs/campfire/internal/config"
	"github.com/campfire-labs/campfire/internal/core/ports/driven"
	"github.com/campfire-labs/campfire/internal/core/ports/driving"
	"github.com/campfire-labs/campfire/internal/logger"
)

// App bundles the wired services the commands drive.
type App struct {
	Config    *config.Config
	Ingest    driving.IngestService
	Retrieval driving.RetrievalService
	Chat      driving.ChatService
	Audit     driven.AuditLog

	// Handler serves the HTTP API for the serve command.
	Handler http.Handler

	// Cleanup releases resources after a command finishes. May be nil.
	Cleanup func() error
}

// Builder constructs the App from loaded configuration. Construction is
// deferred to after flag parsing so --config and --data-dir take effect.
type Builder func(cfg *config.Config) (*App, error)

// NewRootCommand builds the campfire root command.
func NewRootCommand(version string, build Builder) *cobra.Command {
	var (
		configPath string
		dataDir    string
		verbose    bool
		app        *App
	)

	root := &cobra.Command{
		Use:           "campfire",
		Short:         "Offline emergency guidance from a local document corpus",
		Long:          "Campfire answers emergency preparedness and first aid questions using\nonly locally stored reference documents and a local language model.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger.SetVerbose(verbose)
			if skipsApp(cmd) {
				return nil
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}

			app, err = build(cfg)
			if err != nil {
				return fmt.Errorf("initialising: %w", err)
			}
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if app == nil || app.Cleanup == nil {
				return nil
			}
			return app.Cleanup()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.campfire/config.toml)")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory override")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose diagnostic output")

	// Commands read the app through the closure; it is set by the
	// pre-run before any RunE fires.
	getApp := func() *App { return app }

	root.AddCommand(
		newIngestCommand(getApp),
		newDocsCommand(getApp),
		newSearchCommand(getApp),
		newChatCommand(getApp),
		newServeCommand(getApp),
		newStatsCommand(getApp),
		newVersionCommand(version),
	)

	return root
}

// skipsApp reports whether the command runs without wired services.
func skipsApp(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return true
	}
	return false
}
