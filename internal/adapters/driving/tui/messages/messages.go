// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/kbprep/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewUpload is the file selection and upload view.
	ViewUpload ViewType = iota
	// ViewReview lists chunks for editing and deletion.
	ViewReview
	// ViewProcessing shows embedding generation progress.
	ViewProcessing
	// ViewSettings is the settings configuration view.
	ViewSettings
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewUpload:
		return "upload"
	case ViewReview:
		return "review"
	case ViewProcessing:
		return "processing"
	case ViewSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// ViewForPhase returns the view that presents a pipeline phase.
func ViewForPhase(phase domain.Phase) ViewType {
	switch phase {
	case domain.PhaseReviewing:
		return ViewReview
	case domain.PhaseProcessing:
		return ViewProcessing
	default:
		return ViewUpload
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// PipelineEvent carries an event published by the pipeline service.
type PipelineEvent struct {
	Event domain.PipelineEvent
}

// PipelineClosed signals the pipeline event subscription has ended.
type PipelineClosed struct{}

// UploadRequested asks the app to ingest a file.
type UploadRequested struct {
	Path string
}

// UploadFinished signals an upload call returned.
type UploadFinished struct {
	Path string
	Err  error
}

// FilesDropped carries a batch of files that appeared in the drop folder.
type FilesDropped struct {
	Paths []string
}

// ChunkSaved signals a chunk edit was applied.
type ChunkSaved struct {
	ID  string
	Err error
}

// ChunkRemoved signals a chunk deletion was applied.
type ChunkRemoved struct {
	ID  string
	Err error
}

// ProcessingRequested asks the app to submit the collection.
type ProcessingRequested struct{}

// ProcessingFinished signals a submission run produced its outcome.
type ProcessingFinished struct {
	Err error
}

// ResetRequested asks the app to discard the collection.
type ResetRequested struct{}

// SettingsLoaded carries the application settings.
type SettingsLoaded struct {
	Settings *domain.AppSettings
	Err      error
}

// SettingsSaved signals settings were saved.
type SettingsSaved struct {
	Key string
	Err error
}

// ServerChecked carries the outcome of a server health check.
type ServerChecked struct {
	Err error
}
