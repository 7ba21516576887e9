package domain

// SourceFile describes a file handed to ingestion.
type SourceFile struct {
	// Path is the location on the local filesystem.
	Path string

	// Name is the display name (base name of Path).
	Name string

	// Size is the file size in bytes. Zero means unknown.
	Size int64
}

// PDFInfo is the result of local PDF preflight.
type PDFInfo struct {
	// PageCount is the number of pages.
	PageCount int

	// Encrypted is true if the document has an encryption dictionary.
	Encrypted bool

	// Size is the file size in bytes.
	Size int64
}

// IngestResult is the chunking service's answer to an upload.
type IngestResult struct {
	// OK reports whether the service signalled success.
	OK bool

	// Chunks are the raw chunks in document order.
	Chunks []RawChunk
}
