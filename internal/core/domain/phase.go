package domain

// Phase identifies the active pipeline stage.
// Exactly one phase is active at a time.
type Phase int

const (
	// PhaseUploading waits for a file and runs ingestion.
	PhaseUploading Phase = iota

	// PhaseReviewing lets the user edit and delete chunks.
	PhaseReviewing

	// PhaseProcessing submits the collection for embedding generation.
	// The collection is read-only in this phase.
	PhaseProcessing
)

// String returns the string representation.
func (p Phase) String() string {
	switch p {
	case PhaseUploading:
		return "uploading"
	case PhaseReviewing:
		return "reviewing"
	case PhaseProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// Description returns a human-readable description of the phase.
func (p Phase) Description() string {
	switch p {
	case PhaseUploading:
		return "Upload a PDF"
	case PhaseReviewing:
		return "Review chunks"
	case PhaseProcessing:
		return "Generating embeddings"
	default:
		return "Unknown"
	}
}

// AllowsEdits returns true if chunks may be updated or deleted.
func (p Phase) AllowsEdits() bool {
	return p == PhaseReviewing
}
