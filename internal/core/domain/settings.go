package domain

import (
	"fmt"
	"net/url"
	"time"
)

// Default settings values.
const (
	DefaultBaseURL          = "http://localhost:8000"
	DefaultTimeout          = 120 * time.Second
	DefaultProgressInterval = 200 * time.Millisecond
	DefaultProgressStep     = 5
	DefaultProgressCeiling  = 95
	DefaultMinDuration      = 5 * time.Second
	DefaultHold             = 1500 * time.Millisecond
)

// ServerSettings holds the chunking/embedding service endpoint configuration.
type ServerSettings struct {
	// BaseURL is the service root, e.g. http://localhost:8000.
	BaseURL string

	// Timeout bounds a single ingestion or submission request.
	Timeout time.Duration
}

// Validate checks the server settings.
func (s ServerSettings) Validate() error {
	if s.BaseURL == "" {
		return fmt.Errorf("%w: server base URL is empty", ErrInvalidInput)
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: server base URL: %v", ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: server base URL must be http or https", ErrInvalidInput)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: server base URL has no host", ErrInvalidInput)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%w: server timeout must not be negative", ErrInvalidInput)
	}
	return nil
}

// ProgressSettings tunes the simulated processing progress.
type ProgressSettings struct {
	// Interval is the time between progress ticks.
	Interval time.Duration

	// Step is the percentage added per tick.
	Step int

	// Ceiling is the highest percentage reached before completion.
	Ceiling int

	// MinDuration is the shortest time the simulation runs.
	MinDuration time.Duration

	// Hold is how long 100% stays visible before completion is signalled.
	Hold time.Duration
}

// Validate checks the progress settings.
func (p ProgressSettings) Validate() error {
	if p.Interval <= 0 {
		return fmt.Errorf("%w: progress interval must be positive", ErrInvalidInput)
	}
	if p.Step <= 0 || p.Step > 100 {
		return fmt.Errorf("%w: progress step must be between 1 and 100", ErrInvalidInput)
	}
	if p.Ceiling <= 0 || p.Ceiling >= 100 {
		return fmt.Errorf("%w: progress ceiling must be between 1 and 99", ErrInvalidInput)
	}
	if p.MinDuration < 0 || p.Hold < 0 {
		return fmt.Errorf("%w: progress durations must not be negative", ErrInvalidInput)
	}
	return nil
}

// UploadSettings holds file selection configuration.
type UploadSettings struct {
	// WatchDir is a drop folder watched for new PDFs. Empty disables it.
	WatchDir string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Server holds the remote service settings.
	Server ServerSettings

	// Progress holds the simulated progress settings.
	Progress ProgressSettings

	// Upload holds file selection settings.
	Upload UploadSettings
}

// Validate checks all settings.
func (s AppSettings) Validate() error {
	if err := s.Server.Validate(); err != nil {
		return err
	}
	return s.Progress.Validate()
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Server: ServerSettings{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Progress: DefaultProgressSettings(),
	}
}

// DefaultProgressSettings returns the default simulated progress cadence.
func DefaultProgressSettings() ProgressSettings {
	return ProgressSettings{
		Interval:    DefaultProgressInterval,
		Step:        DefaultProgressStep,
		Ceiling:     DefaultProgressCeiling,
		MinDuration: DefaultMinDuration,
		Hold:        DefaultHold,
	}
}
