package kbapi

import (
	"context"
	"time"

	"github.com/custodia-labs/kbprep/internal/core/domain"
	"github.com/custodia-labs/kbprep/internal/core/ports/driven"
)

// Ensure ServerValidator implements the interface.
var _ driven.ServerValidator = (*ServerValidator)(nil)

// DefaultPingTimeout bounds a settings check.
const DefaultPingTimeout = 10 * time.Second

// ServerValidator pings a candidate server configuration.
type ServerValidator struct {
	timeout time.Duration
}

// NewServerValidator creates a validator. A zero timeout uses DefaultPingTimeout.
func NewServerValidator(timeout time.Duration) *ServerValidator {
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	return &ServerValidator{timeout: timeout}
}

// ValidateServer checks that the service at settings.BaseURL answers.
// A nil settings value has nothing to validate.
func (v *ServerValidator) ValidateServer(ctx context.Context, settings *domain.ServerSettings) error {
	if settings == nil {
		return nil
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	client := NewClient(Config{
		BaseURL: settings.BaseURL,
		Timeout: v.timeout,
	})
	return client.Ping(ctx)
}
