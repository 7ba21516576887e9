package driving

import (
	"context"

	"github.com/custodia-labs/kbprep/internal/core/domain"
)

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single setting by its config key.
	Set(key, value string) error

	// Unset removes a stored value so its default applies again.
	Unset(key string) error

	// Keys returns the recognised config keys.
	Keys() []string

	// Validate checks the current settings.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// CheckServer pings the configured chunking service.
	CheckServer(ctx context.Context) error

	// ConfigPath returns where settings are persisted.
	ConfigPath() string
}
