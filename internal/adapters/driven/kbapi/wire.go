package kbapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/kbprep/internal/core/domain"
)

// wireChunk is the chunk shape used in both directions.
type wireChunk struct {
	PageContent string       `json:"page_content"`
	Metadata    wireMetadata `json:"metadata"`
}

// wireMetadata carries source and page plus any extra keys the service
// attaches. Extra keys are written back at the top level of the object.
type wireMetadata struct {
	Source string
	Page   int
	Extra  map[string]any
}

// MarshalJSON flattens Extra next to source and page.
// Both keys are always written, so metadata that arrived without them is
// submitted with "" and 0.
func (m wireMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["source"] = m.Source
	out["page"] = m.Page
	return json.Marshal(out)
}

// UnmarshalJSON accepts a page given as a number or a numeric string.
func (m *wireMetadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	*m = wireMetadata{}
	for k, v := range raw {
		switch k {
		case "source":
			if s, ok := v.(string); ok {
				m.Source = s
			}
		case "page":
			page, err := parsePage(v)
			if err != nil {
				return err
			}
			m.Page = page
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[k] = normaliseNumber(v)
		}
	}
	return nil
}

func parsePage(v any) (int, error) {
	switch p := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		if n, err := p.Int64(); err == nil {
			return int(n), nil
		}
		f, err := p.Float64()
		if err != nil {
			return 0, fmt.Errorf("page %q is not a number", p)
		}
		return int(f), nil
	case string:
		p = strings.TrimSpace(p)
		if p == "" {
			return 0, nil
		}
		return parsePage(json.Number(p))
	default:
		return 0, fmt.Errorf("page has unexpected type %T", v)
	}
}

// normaliseNumber converts json.Number values, including those nested in
// maps and slices, to int64 or float64.
func normaliseNumber(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, inner := range t {
			t[k] = normaliseNumber(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normaliseNumber(inner)
		}
		return t
	default:
		return v
	}
}

// ingestStatus accepts a JSON boolean or a status word.
type ingestStatus bool

// UnmarshalJSON implements json.Unmarshaler.
func (s *ingestStatus) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*s = ingestStatus(b)
		return nil
	}

	var word string
	if err := json.Unmarshal(data, &word); err != nil {
		return fmt.Errorf("status must be a boolean or string: %s", string(data))
	}
	switch strings.ToLower(strings.TrimSpace(word)) {
	case "success", "ok", "true":
		*s = true
	default:
		*s = false
	}
	return nil
}

// ingestResponse is the /pdf-chunks response body.
type ingestResponse struct {
	Status ingestStatus `json:"status"`
	Chunks []wireChunk  `json:"chunks"`
}

func (r ingestResponse) toDomain() *domain.IngestResult {
	chunks := make([]domain.RawChunk, 0, len(r.Chunks))
	for _, c := range r.Chunks {
		chunks = append(chunks, domain.RawChunk{
			Content: c.PageContent,
			Metadata: domain.Metadata{
				Source: c.Metadata.Source,
				Page:   c.Metadata.Page,
				Extra:  c.Metadata.Extra,
			},
		})
	}
	return &domain.IngestResult{OK: bool(r.Status), Chunks: chunks}
}

func fromTransport(chunks []domain.TransportChunk) []wireChunk {
	out := make([]wireChunk, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, wireChunk{
			PageContent: c.Content,
			Metadata: wireMetadata{
				Source: c.Metadata.Source,
				Page:   c.Metadata.Page,
				Extra:  c.Metadata.Extra,
			},
		})
	}
	return out
}
