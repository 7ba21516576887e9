package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbprep/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the service address, request timeout, progress
timing and the drop folder.

Settings are stored in config.toml under the config directory. The
KBPREP_BASE_URL environment variable overrides server.base_url.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a setting",
	Long: `Set a setting. Durations are whole numbers in the unit named by the key.

Keys:
  server.base_url           Service root URL
  server.timeout_seconds    Request timeout
  progress.interval_ms      Processing progress tick interval
  progress.step             Percent added per tick
  progress.ceiling          Percent at which progress waits for the service
  progress.min_duration_ms  Minimum time processing is shown
  progress.hold_ms          Time 100% is shown before returning to upload
  upload.watch_dir          Directory the TUI watches for dropped PDFs`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset KEY",
	Short: "Restore the default for a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsUnset,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the service is reachable",
	RunE:  runSettingsCheck,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Printf("Config: %s\n", settingsService.ConfigPath())
	cmd.Println()

	for _, key := range settingsService.Keys() {
		value := settingValue(settings, key)
		if value == "" {
			value = "(not set)"
		}
		cmd.Printf("  %-26s %s\n", key, value)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'kbprep settings set KEY VALUE' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	cmd.Printf("Set %s\n", key)
	return nil
}

func runSettingsUnset(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	if err := settingsService.Unset(key); err != nil {
		return fmt.Errorf("failed to unset %s: %w", key, err)
	}

	defaults := settingsService.GetDefaults()
	if value := settingValue(&defaults, key); value != "" {
		cmd.Printf("Unset %s (default %s)\n", key, value)
	} else {
		cmd.Printf("Unset %s\n", key)
	}
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Printf("Checking %s...\n", settings.Server.BaseURL)
	if err := settingsService.CheckServer(cmd.Context()); err != nil {
		return fmt.Errorf("server check failed: %w", err)
	}

	cmd.Println("Server is reachable.")
	return nil
}

// settingValue renders key in the form Set accepts.
func settingValue(s *domain.AppSettings, key string) string {
	switch key {
	case "server.base_url":
		return s.Server.BaseURL
	case "server.timeout_seconds":
		return strconv.FormatInt(int64(s.Server.Timeout.Seconds()), 10)
	case "progress.interval_ms":
		return strconv.FormatInt(s.Progress.Interval.Milliseconds(), 10)
	case "progress.step":
		return strconv.Itoa(s.Progress.Step)
	case "progress.ceiling":
		return strconv.Itoa(s.Progress.Ceiling)
	case "progress.min_duration_ms":
		return strconv.FormatInt(s.Progress.MinDuration.Milliseconds(), 10)
	case "progress.hold_ms":
		return strconv.FormatInt(s.Progress.Hold.Milliseconds(), 10)
	case "upload.watch_dir":
		return s.Upload.WatchDir
	default:
		return ""
	}
}
