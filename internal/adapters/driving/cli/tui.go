package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbprep/internal/adapters/driving/dropfolder"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui"
	"github.com/custodia-labs/kbprep/internal/logger"
)

// logFileName is written next to the config file in verbose TUI mode.
const logFileName = "kbprep.log"

var watchDir string

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface for kbprep.

Upload a PDF, review and edit the chunks the service returns, then submit
them for embedding generation. With --watch, PDFs copied into the directory
are uploaded as if they had been dropped on the window.

Controls:
  Enter    - Upload / Edit chunk
  ↑/k, ↓/j - Navigate chunks
  d        - Delete chunk
  ctrl+s   - Save edit
  p        - Generate embeddings
  r        - Start over
  ctrl+o   - Settings
  ctrl+c   - Quit`,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&watchDir, "watch", "w", "", "directory to watch for dropped PDFs (default upload.watch_dir)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	if pipelineService == nil {
		return errors.New("pipeline service not configured")
	}

	if logger.IsVerbose() {
		closeLog, err := redirectLog()
		if err != nil {
			return err
		}
		defer closeLog()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	app, err := tui.NewApp(tui.NewPorts(pipelineService, settingsService))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)

	if dir := resolveWatchDir(); dir != "" {
		watcher := dropfolder.New(dir, 0)
		defer watcher.Close() //nolint:errcheck

		batches, err := watcher.Watch(ctx)
		if err != nil {
			app.Close()
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		app.WithDropFolder(dir, batches)
	}

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// resolveWatchDir prefers --watch over the upload.watch_dir setting.
func resolveWatchDir() string {
	if watchDir != "" {
		return watchDir
	}
	if settingsService == nil {
		return ""
	}
	settings, err := settingsService.Get()
	if err != nil {
		logger.Warn("reading settings: %v", err)
		return ""
	}
	return settings.Upload.WatchDir
}

// redirectLog sends verbose output to a file while the TUI owns the terminal.
func redirectLog() (func(), error) {
	dir := os.TempDir()
	if settingsService != nil {
		dir = filepath.Dir(settingsService.ConfigPath())
	}

	f, err := tea.LogToFile(filepath.Join(dir, logFileName), "kbprep")
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	prev := logger.SetOutput(f)

	return func() {
		logger.SetOutput(prev)
		f.Close() //nolint:errcheck
	}, nil
}
