// Package cli provides the cobra command tree for kbprep.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbprep/internal/core/ports/driving"
	"github.com/custodia-labs/kbprep/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

var (
	verbose   bool
	configDir string
)

// Services holds the driving ports the commands call into.
type Services struct {
	Pipeline driving.PipelineService
	Settings driving.SettingsService
}

// Bootstrap builds services once flags are parsed. configDir is the value
// of --config and may be empty.
type Bootstrap func(configDir string) (*Services, error)

var (
	pipelineService driving.PipelineService
	settingsService driving.SettingsService
	bootstrap       Bootstrap
)

// skipServices lists commands that run without a pipeline.
var skipServices = map[string]bool{
	"version": true,
	"help":    true,
}

var rootCmd = &cobra.Command{
	Use:   "kbprep",
	Short: "Prepare PDF documents for a knowledge base",
	Long: `kbprep uploads a PDF to a chunking service, lets you review and edit
the resulting chunks, and submits them for embedding generation.

Run 'kbprep tui' for the interactive pipeline or 'kbprep upload' for a
one-shot run from scripts.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.kbprep)")
}

// SetBootstrap registers the function that builds services before a
// command runs.
func SetBootstrap(fn Bootstrap) {
	bootstrap = fn
}

// SetServices injects services directly, bypassing Bootstrap.
func SetServices(s *Services) {
	if s == nil {
		pipelineService, settingsService = nil, nil
		return
	}
	pipelineService = s.Pipeline
	settingsService = s.Settings
}

// setup applies global flags and builds services on first use.
func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if skipServices[cmd.Name()] || bootstrap == nil || pipelineService != nil {
		return nil
	}

	services, err := bootstrap(configDir)
	if err != nil {
		return err
	}
	if services == nil || services.Pipeline == nil {
		return errors.New("pipeline service not configured")
	}
	SetServices(services)
	return nil
}

// Execute runs the root command and releases services afterwards.
// Cancelling ctx aborts in-flight uploads and submissions.
func Execute(ctx context.Context) error {
	defer func() {
		if pipelineService != nil {
			pipelineService.Close()
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}
