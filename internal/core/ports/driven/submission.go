package driven

import (
	"context"

	"github.com/custodia-labs/kbprep/internal/core/domain"
)

// Submitter sends the finalised chunk set for embedding generation.
// Submission is all-or-nothing: there is no partial success.
type Submitter interface {
	// Submit transmits every chunk in a single request.
	Submit(ctx context.Context, chunks []domain.TransportChunk) error
}

// HealthChecker probes the remote service.
type HealthChecker interface {
	// Ping returns nil if the service answered.
	Ping(ctx context.Context) error
}

// ServerValidator checks that a server configuration is reachable.
// Settings are passed in so unsaved values can be tried.
type ServerValidator interface {
	ValidateServer(ctx context.Context, settings *domain.ServerSettings) error
}
