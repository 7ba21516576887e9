package domain

// Metadata describes where a chunk came from.
// Source and Page are always present on the wire; anything else the
// chunking service attaches is carried through Extra untouched.
type Metadata struct {
	// Source is the originating document (usually the file name).
	Source string

	// Page is the page number the chunk was extracted from.
	Page int

	// Extra holds any additional metadata keys.
	Extra map[string]any
}

// Clone returns a deep-enough copy of the metadata.
// The Extra map is copied; its values are shared.
func (m Metadata) Clone() Metadata {
	out := Metadata{Source: m.Source, Page: m.Page}
	if m.Extra != nil {
		out.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// RawChunk is a chunk as returned by ingestion, before it has a local identity.
type RawChunk struct {
	// Content is the extracted text.
	Content string

	// Metadata describes the chunk origin.
	Metadata Metadata
}

func (c Chunk) clone() Chunk {
	c.Metadata = c.Metadata.Clone()
	return c
}

// Chunk is an editable unit of extracted text under review.
type Chunk struct {
	// ID is the local identifier assigned at ingestion time.
	// It is never sent to the remote service.
	ID string

	// Content is the text content. Replaced wholesale on update.
	Content string

	// Metadata describes the chunk origin.
	Metadata Metadata
}

// TransportChunk is the form of a chunk sent for embedding generation.
// It deliberately has no ID field.
type TransportChunk struct {
	// Content is the text content.
	Content string

	// Metadata describes the chunk origin.
	Metadata Metadata
}
