package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Pipeline Errors.

	// ErrIngestionFailed indicates the file could not be turned into chunks.
	// Covers preflight rejection, transport errors and a negative status
	// from the chunking service. The pipeline stays in the uploading phase.
	ErrIngestionFailed = errors.New("ingestion failed")

	// ErrSubmissionFailed indicates the embedding request did not succeed.
	// The pipeline returns to the reviewing phase with the collection intact.
	ErrSubmissionFailed = errors.New("submission failed")

	// ErrPhaseLocked indicates the operation is not allowed in the current phase.
	ErrPhaseLocked = errors.New("operation not allowed in current phase")

	// ErrBusy indicates an upload is already in flight.
	ErrBusy = errors.New("pipeline busy")

	// ErrNoFile indicates a file selection was empty.
	ErrNoFile = errors.New("no file selected")

	// ErrNotPDF indicates the selected file is not a PDF document.
	ErrNotPDF = errors.New("file is not a PDF")

	// ErrCancelled indicates the operation was superseded by a reset or shutdown.
	ErrCancelled = errors.New("operation cancelled")
)
