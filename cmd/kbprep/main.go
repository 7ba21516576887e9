// Command kbprep uploads PDFs to a chunking service, lets the user review
// the chunks and submits them for embedding generation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/kbprep/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kbprep/internal/adapters/driven/kbapi"
	"github.com/custodia-labs/kbprep/internal/adapters/driven/pdf"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/cli"
	"github.com/custodia-labs/kbprep/internal/core/domain"
	"github.com/custodia-labs/kbprep/internal/core/services"
	"github.com/custodia-labs/kbprep/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetBootstrap(bootstrap)

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// bootstrap wires the driven adapters into the core services.
func bootstrap(configDir string) (*cli.Services, error) {
	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}

	settingsService := services.NewSettingsService(configStore, kbapi.NewServerValidator(0))
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	// Invalid values must not lock the user out of 'settings set'.
	if err := settings.Validate(); err != nil {
		logger.Warn("invalid settings in %s, using defaults: %v", configStore.Path(), err)
		defaults := domain.DefaultAppSettings()
		settings = &defaults
	}

	logger.Debug("service at %s (timeout %s)", settings.Server.BaseURL, settings.Server.Timeout)

	client := kbapi.NewClient(kbapi.Config{
		BaseURL: settings.Server.BaseURL,
		Timeout: settings.Server.Timeout,
	})

	pipeline := services.NewPipeline(client, client,
		services.WithInspector(pdf.NewInspector()),
		services.WithProgressSettings(settings.Progress),
	)

	return &cli.Services{
		Pipeline: pipeline,
		Settings: settingsService,
	}, nil
}
