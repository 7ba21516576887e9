// Package mcp provides an MCP (Model Context Protocol) server adapter for kbprep.
// It lets AI assistants drive the upload, review and processing pipeline.
package mcp

import "errors"

// ErrMissingPipelineService is returned when the pipeline service is not provided.
var ErrMissingPipelineService = errors.New("mcp: pipeline service is required")

// ErrInvalidPorts is returned when ports is nil.
var ErrInvalidPorts = errors.New("mcp: ports is nil")
