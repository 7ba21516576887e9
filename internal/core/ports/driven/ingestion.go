package driven

import (
	"context"

	"github.com/custodia-labs/kbprep/internal/core/domain"
)

// ProgressFunc receives an integer percentage in [0,100].
// Successive calls never decrease.
type ProgressFunc func(percent int)

// Ingester uploads a single source file to the chunking service.
type Ingester interface {
	// Ingest streams the file and returns the service's answer.
	// onProgress may be nil. It is only called when file.Size is known.
	// A non-nil error means the request itself failed; a result with
	// OK=false means the service declined the file.
	Ingest(ctx context.Context, file domain.SourceFile, onProgress ProgressFunc) (*domain.IngestResult, error)
}

// DocumentInspector validates a file locally before ingestion.
type DocumentInspector interface {
	// Inspect checks that path is a readable PDF.
	// Returns domain.ErrNotPDF (wrapped) when it is not.
	Inspect(ctx context.Context, path string) (*domain.PDFInfo, error)
}
