package domain

// Collection is the ordered set of chunks under review.
// It is a value type: every operation returns a new Collection and leaves
// the receiver unchanged, so a snapshot handed to a transport can never be
// altered by later edits (or the other way round).
//
// The zero value is an empty collection.
type Collection struct {
	chunks []Chunk
	index  map[string]int
}

// NewCollection assigns a fresh identifier to each raw chunk, preserving order.
// newID must return a value that is unique for the lifetime of the session.
func NewCollection(raw []RawChunk, newID func() string) Collection {
	chunks := make([]Chunk, len(raw))
	for i, r := range raw {
		chunks[i] = Chunk{
			ID:       newID(),
			Content:  r.Content,
			Metadata: r.Metadata.Clone(),
		}
	}
	return newCollection(chunks)
}

func newCollection(chunks []Chunk) Collection {
	index := make(map[string]int, len(chunks))
	for i, c := range chunks {
		index[c.ID] = i
	}
	return Collection{chunks: chunks, index: index}
}

// Len returns the number of chunks.
func (c Collection) Len() int {
	return len(c.chunks)
}

// IsEmpty returns true if the collection has no chunks.
func (c Collection) IsEmpty() bool {
	return len(c.chunks) == 0
}

// Chunks returns a copy of the chunks in display order.
// Metadata maps are copied too, so callers cannot reach the stored chunks.
func (c Collection) Chunks() []Chunk {
	out := make([]Chunk, len(c.chunks))
	for i, ch := range c.chunks {
		out[i] = ch.clone()
	}
	return out
}

// Get returns the chunk with the given ID.
func (c Collection) Get(id string) (Chunk, bool) {
	i, ok := c.index[id]
	if !ok {
		return Chunk{}, false
	}
	return c.chunks[i].clone(), true
}

// Contains reports whether a chunk with the given ID exists.
func (c Collection) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Update returns a collection where the chunk with id has the new content.
// An unknown id yields an identical collection.
func (c Collection) Update(id, content string) Collection {
	i, ok := c.index[id]
	if !ok {
		return c
	}
	chunks := c.Chunks()
	chunks[i].Content = content
	return newCollection(chunks)
}

// Delete returns a collection without the chunk with id.
// The order of the remaining chunks is preserved. An unknown id yields an
// identical collection.
func (c Collection) Delete(id string) Collection {
	i, ok := c.index[id]
	if !ok {
		return c
	}
	chunks := make([]Chunk, 0, len(c.chunks)-1)
	chunks = append(chunks, c.chunks[:i]...)
	chunks = append(chunks, c.chunks[i+1:]...)
	return newCollection(chunks)
}

// TransportForm strips local identifiers, preserving order.
func (c Collection) TransportForm() []TransportChunk {
	out := make([]TransportChunk, len(c.chunks))
	for i, ch := range c.chunks {
		out[i] = TransportChunk{
			Content:  ch.Content,
			Metadata: ch.Metadata.Clone(),
		}
	}
	return out
}
