package driving

import (
	"context"

	"github.com/custodia-labs/kbprep/internal/core/domain"
)

// PipelineService is the single owner of the chunk collection and the
// upload, review and processing phases. Adapters request mutations through
// it and observe results through Subscribe; they never hold the collection.
type PipelineService interface {
	// Snapshot returns a read-only copy of the current state.
	Snapshot() domain.PipelineSnapshot

	// Upload ingests the file at path and moves to the reviewing phase.
	// Only allowed while uploading. onProgress may be nil.
	Upload(ctx context.Context, path string, onProgress func(percent int)) error

	// SelectFiles ingests the first of paths. The rest are ignored.
	SelectFiles(ctx context.Context, paths []string, onProgress func(percent int)) error

	// UpdateChunk replaces a chunk's content. Unknown ids are ignored.
	UpdateChunk(id, content string) error

	// DeleteChunk removes a chunk. Unknown ids are ignored.
	DeleteChunk(id string) error

	// StartProcessing submits the collection and starts simulated progress.
	// The returned channel yields one outcome and is then closed.
	StartProcessing(ctx context.Context) (<-chan error, error)

	// Reset discards the collection and returns to the uploading phase.
	Reset()

	// Subscribe registers an observer. The returned func unregisters it.
	Subscribe(fn func(domain.PipelineEvent)) (unsubscribe func())

	// Close cancels in-flight work and stops all timers.
	Close()
}
