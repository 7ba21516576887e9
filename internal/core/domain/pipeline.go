package domain

// EventKind identifies what happened in the pipeline.
type EventKind int

// Pipeline event kinds.
const (
	// EventPhaseChanged is published after every phase transition.
	EventPhaseChanged EventKind = iota

	// EventUploadProgress carries byte-level upload progress.
	EventUploadProgress

	// EventProcessingProgress carries simulated processing progress.
	EventProcessingProgress

	// EventChunkUpdated is published after a chunk's content changed.
	EventChunkUpdated

	// EventChunkDeleted is published after a chunk was removed.
	EventChunkDeleted

	// EventIngestionFailed is published when an upload did not yield chunks.
	EventIngestionFailed

	// EventSubmissionFailed is published when embedding generation failed.
	EventSubmissionFailed

	// EventProcessingComplete is published once submission succeeded and
	// simulated progress finished, just before the reset to uploading.
	EventProcessingComplete
)

// String returns the string representation.
func (k EventKind) String() string {
	switch k {
	case EventPhaseChanged:
		return "phase_changed"
	case EventUploadProgress:
		return "upload_progress"
	case EventProcessingProgress:
		return "processing_progress"
	case EventChunkUpdated:
		return "chunk_updated"
	case EventChunkDeleted:
		return "chunk_deleted"
	case EventIngestionFailed:
		return "ingestion_failed"
	case EventSubmissionFailed:
		return "submission_failed"
	case EventProcessingComplete:
		return "processing_complete"
	default:
		return "unknown"
	}
}

// PipelineEvent notifies observers of a state change.
type PipelineEvent struct {
	// Kind identifies the event.
	Kind EventKind

	// Phase is the phase after the event was applied.
	Phase Phase

	// Progress is a percentage in [0,100] for progress events.
	Progress int

	// FileName is the current source file name, if any.
	FileName string

	// ChunkID is set for chunk update and delete events.
	ChunkID string

	// ChunkCount is the collection size after the event.
	ChunkCount int

	// Err is set for failure events.
	Err error
}

// PipelineSnapshot is a read-only view of the pipeline state.
type PipelineSnapshot struct {
	// Phase is the active phase.
	Phase Phase

	// FileName is the source document name. Empty while uploading.
	FileName string

	// Chunks is a copy of the collection in display order.
	Chunks []Chunk

	// Progress is the last reported progress for the active phase.
	Progress int

	// Busy is true while an upload or submission is in flight.
	Busy bool
}
