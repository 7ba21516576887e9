package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kbprep/internal/core/domain"
)

// defaultChunkLimit caps list_chunks when no limit is given.
const defaultChunkLimit = 50

// StatusInput is the (empty) input schema for pipeline_status and reset.
type StatusInput struct{}

// StatusOutput describes the pipeline state.
type StatusOutput struct {
	Phase       string `json:"phase"`
	Description string `json:"description"`
	FileName    string `json:"file_name,omitempty"`
	ChunkCount  int    `json:"chunk_count"`
	Progress    int    `json:"progress"`
	Busy        bool   `json:"busy"`
}

// UploadInput is the input schema for the upload_pdf tool.
type UploadInput struct {
	Path string `json:"path" jsonschema:"absolute path of the PDF file to upload"`
}

// ListChunksInput is the input schema for the list_chunks tool.
type ListChunksInput struct {
	Offset int `json:"offset,omitempty" jsonschema:"index of the first chunk to return"`
	Limit  int `json:"limit,omitempty" jsonschema:"maximum number of chunks to return (default 50)"`
}

// ListChunksOutput is the output schema for the list_chunks tool.
type ListChunksOutput struct {
	FileName string        `json:"file_name,omitempty"`
	Total    int           `json:"total"`
	Chunks   []ChunkOutput `json:"chunks"`
}

// ChunkOutput represents a single chunk.
type ChunkOutput struct {
	Index    int            `json:"index"`
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Source   string         `json:"source,omitempty"`
	Page     int            `json:"page"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// UpdateChunkInput is the input schema for the update_chunk tool.
type UpdateChunkInput struct {
	ID      string `json:"id" jsonschema:"id of the chunk to replace"`
	Content string `json:"content" jsonschema:"new text of the chunk"`
}

// DeleteChunkInput is the input schema for the delete_chunk tool.
type DeleteChunkInput struct {
	ID string `json:"id" jsonschema:"id of the chunk to remove"`
}

// StartProcessingInput is the input schema for the start_processing tool.
type StartProcessingInput struct {
	Background bool `json:"background,omitempty" jsonschema:"return immediately instead of waiting for embeddings"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "pipeline_status",
		Description: "Show the current phase, file and chunk count",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "upload_pdf",
		Description: "Upload a PDF for chunking. Only allowed while no collection is loaded",
	}, s.handleUpload)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_chunks",
		Description: "List the chunks of the current collection",
	}, s.handleListChunks)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update_chunk",
		Description: "Replace the text of a chunk while reviewing",
	}, s.handleUpdateChunk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_chunk",
		Description: "Remove a chunk from the collection while reviewing",
	}, s.handleDeleteChunk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "start_processing",
		Description: "Submit the reviewed chunks for embedding generation",
	}, s.handleStartProcessing)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reset",
		Description: "Discard the collection and return to upload",
	}, s.handleReset)
}

func (s *Server) status() StatusOutput {
	snap := s.ports.Pipeline.Snapshot()
	return StatusOutput{
		Phase:       snap.Phase.String(),
		Description: snap.Phase.Description(),
		FileName:    snap.FileName,
		ChunkCount:  len(snap.Chunks),
		Progress:    snap.Progress,
		Busy:        snap.Busy,
	}
}

func (s *Server) handleStatus(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return nil, s.status(), nil
}

// handleUpload blocks until ingestion finishes.
func (s *Server) handleUpload(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UploadInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if input.Path == "" {
		return nil, StatusOutput{}, domain.ErrNoFile
	}
	if err := s.ports.Pipeline.Upload(ctx, input.Path, nil); err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, s.status(), nil
}

func (s *Server) handleListChunks(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ListChunksInput,
) (*mcp.CallToolResult, ListChunksOutput, error) {
	snap := s.ports.Pipeline.Snapshot()

	limit := input.Limit
	if limit <= 0 {
		limit = defaultChunkLimit
	}
	start := min(max(input.Offset, 0), len(snap.Chunks))
	end := start + min(limit, len(snap.Chunks)-start)

	return nil, ListChunksOutput{
		FileName: snap.FileName,
		Total:    len(snap.Chunks),
		Chunks:   chunkOutputs(snap.Chunks[start:end], start),
	}, nil
}

func (s *Server) handleUpdateChunk(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input UpdateChunkInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if err := s.ports.Pipeline.UpdateChunk(input.ID, input.Content); err != nil {
		return nil, StatusOutput{}, fmt.Errorf("updating chunk %s: %w", input.ID, err)
	}
	return nil, s.status(), nil
}

func (s *Server) handleDeleteChunk(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input DeleteChunkInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if err := s.ports.Pipeline.DeleteChunk(input.ID); err != nil {
		return nil, StatusOutput{}, fmt.Errorf("deleting chunk %s: %w", input.ID, err)
	}
	return nil, s.status(), nil
}

// handleStartProcessing submits the collection. A background submission
// outlives the tool call, so it is detached from the request context.
func (s *Server) handleStartProcessing(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StartProcessingInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if input.Background {
		ctx = context.WithoutCancel(ctx)
	}

	outcome, err := s.ports.Pipeline.StartProcessing(ctx)
	if err != nil {
		return nil, StatusOutput{}, err
	}
	if input.Background {
		return nil, s.status(), nil
	}

	if err := <-outcome; err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			return nil, s.status(), nil
		}
		return nil, StatusOutput{}, err
	}
	return nil, s.status(), nil
}

func (s *Server) handleReset(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	s.ports.Pipeline.Reset()
	return nil, s.status(), nil
}

// chunkOutputs converts chunks numbering them from first.
func chunkOutputs(chunks []domain.Chunk, first int) []ChunkOutput {
	out := make([]ChunkOutput, len(chunks))
	for i := range chunks {
		out[i] = ChunkOutput{
			Index:    first + i,
			ID:       chunks[i].ID,
			Content:  chunks[i].Content,
			Source:   chunks[i].Metadata.Source,
			Page:     chunks[i].Metadata.Page,
			Metadata: chunks[i].Metadata.Extra,
		}
	}
	return out
}
