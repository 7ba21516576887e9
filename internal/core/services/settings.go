package services

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/kbprep/internal/core/domain"
	"github.com/custodia-labs/kbprep/internal/core/ports/driven"
	"github.com/custodia-labs/kbprep/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvBaseURL overrides server.base_url when set.
const EnvBaseURL = "KBPREP_BASE_URL"

// Config keys for settings storage.
const (
	keyBaseURL        = "server.base_url"
	keyTimeoutSeconds = "server.timeout_seconds"
	keyIntervalMS     = "progress.interval_ms"
	keyStep           = "progress.step"
	keyCeiling        = "progress.ceiling"
	keyMinDurationMS  = "progress.min_duration_ms"
	keyHoldMS         = "progress.hold_ms"
	keyWatchDir       = "upload.watch_dir"
)

// settingKeys lists every recognised key in display order.
var settingKeys = []string{
	keyBaseURL,
	keyTimeoutSeconds,
	keyIntervalMS,
	keyStep,
	keyCeiling,
	keyMinDurationMS,
	keyHoldMS,
	keyWatchDir,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	validator   driven.ServerValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// validator may be nil, in which case CheckServer only validates the URL.
func NewSettingsService(configStore driven.ConfigStore, validator driven.ServerValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		validator:   validator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	baseURL := s.getString(keyBaseURL, defaults.Server.BaseURL)
	if env := strings.TrimSpace(s.getenv(EnvBaseURL)); env != "" {
		baseURL = env
	}

	settings := &domain.AppSettings{
		Server: domain.ServerSettings{
			BaseURL: strings.TrimRight(baseURL, "/"),
			Timeout: s.getSeconds(keyTimeoutSeconds, defaults.Server.Timeout),
		},
		Progress: domain.ProgressSettings{
			Interval:    s.getMillis(keyIntervalMS, defaults.Progress.Interval),
			Step:        s.getInt(keyStep, defaults.Progress.Step),
			Ceiling:     s.getInt(keyCeiling, defaults.Progress.Ceiling),
			MinDuration: s.getMillis(keyMinDurationMS, defaults.Progress.MinDuration),
			Hold:        s.getMillis(keyHoldMS, defaults.Progress.Hold),
		},
		Upload: domain.UploadSettings{
			WatchDir: s.configStore.GetString(keyWatchDir),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: settings are nil", domain.ErrInvalidInput)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyBaseURL, settings.Server.BaseURL},
		{keyTimeoutSeconds, int64(settings.Server.Timeout / time.Second)},
		{keyIntervalMS, settings.Progress.Interval.Milliseconds()},
		{keyStep, int64(settings.Progress.Step)},
		{keyCeiling, int64(settings.Progress.Ceiling)},
		{keyMinDurationMS, settings.Progress.MinDuration.Milliseconds()},
		{keyHoldMS, settings.Progress.Hold.Milliseconds()},
		{keyWatchDir, settings.Upload.WatchDir},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return nil
}

// Set parses value for key, validates the result and persists it.
func (s *SettingsService) Set(key, value string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	value = strings.TrimSpace(value)
	var stored any

	switch key {
	case keyBaseURL:
		settings.Server.BaseURL = strings.TrimRight(value, "/")
		stored = settings.Server.BaseURL
	case keyWatchDir:
		settings.Upload.WatchDir = value
		stored = value
	case keyTimeoutSeconds, keyIntervalMS, keyStep, keyCeiling, keyMinDurationMS, keyHoldMS:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrInvalidInput, key, value)
		}
		applyInt(settings, key, n)
		stored = n
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	if err := settings.Validate(); err != nil {
		return err
	}

	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Unset removes a stored value so its default applies again.
func (s *SettingsService) Unset(key string) error {
	if !isSettingKey(key) {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	if err := s.configStore.Unset(key); err != nil {
		return fmt.Errorf("unset %s: %w", key, err)
	}
	return nil
}

// Keys returns the recognised config keys.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKeys))
	copy(keys, settingKeys)
	return keys
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// CheckServer validates the configured server and probes it.
func (s *SettingsService) CheckServer(ctx context.Context) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Server.Validate(); err != nil {
		return err
	}
	if s.validator == nil {
		return nil
	}
	return s.validator.ValidateServer(ctx, &settings.Server)
}

// ConfigPath returns where settings are persisted.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * time.Second
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * time.Millisecond
}

func applyInt(settings *domain.AppSettings, key string, n int64) {
	switch key {
	case keyTimeoutSeconds:
		settings.Server.Timeout = time.Duration(n) * time.Second
	case keyIntervalMS:
		settings.Progress.Interval = time.Duration(n) * time.Millisecond
	case keyStep:
		settings.Progress.Step = int(n)
	case keyCeiling:
		settings.Progress.Ceiling = int(n)
	case keyMinDurationMS:
		settings.Progress.MinDuration = time.Duration(n) * time.Millisecond
	case keyHoldMS:
		settings.Progress.Hold = time.Duration(n) * time.Millisecond
	}
}

func isSettingKey(key string) bool {
	for _, k := range settingKeys {
		if k == key {
			return true
		}
	}
	return false
}
