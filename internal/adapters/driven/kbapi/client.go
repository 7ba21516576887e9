// Package kbapi provides the HTTP adapter for the chunking and embedding
// service. It implements driven.Ingester, driven.Submitter and
// driven.HealthChecker.
package kbapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/kbprep/internal/core/domain"
	"github.com/custodia-labs/kbprep/internal/core/ports/driven"
	"github.com/custodia-labs/kbprep/internal/logger"
)

// Ensure Client implements the interfaces.
var (
	_ driven.Ingester      = (*Client)(nil)
	_ driven.Submitter     = (*Client)(nil)
	_ driven.HealthChecker = (*Client)(nil)
)

// Default configuration values.
const (
	DefaultBaseURL          = domain.DefaultBaseURL
	DefaultTimeout          = domain.DefaultTimeout
	DefaultProgressInterval = 100 * time.Millisecond
)

// Service endpoints.
const (
	ingestPath = "/pdf-chunks"
	submitPath = "/generate-embeddings"
	healthPath = "/"
	formField  = "file"

	// maxErrorBody bounds how much of an error response is quoted.
	maxErrorBody = 4 << 10
)

// Config holds configuration for the service client.
type Config struct {
	// BaseURL is the service root (default: http://localhost:8000).
	BaseURL string

	// Timeout bounds a whole request including the upload (default: 120s).
	Timeout time.Duration

	// ProgressInterval is the minimum gap between intermediate upload
	// progress callbacks (default: 100ms).
	ProgressInterval time.Duration
}

// Client talks to the chunking and embedding service.
type Client struct {
	client           *http.Client
	baseURL          string
	progressInterval time.Duration
}

// NewClient creates a new service client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ProgressInterval == 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}

	return &Client{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		progressInterval: cfg.ProgressInterval,
	}
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ingest streams file to the chunking endpoint as a multipart upload.
func (c *Client) Ingest(
	ctx context.Context,
	file domain.SourceFile,
	onProgress driven.ProgressFunc,
) (*domain.IngestResult, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer f.Close()

	name := file.Name
	if name == "" {
		name = f.Name()
	}

	var tracker *progressTracker
	if file.Size > 0 && onProgress != nil {
		tracker = newProgressTracker(file.Size, c.progressInterval, onProgress)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeMultipart(mw, name, f, tracker))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ingestPath, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	logger.Debug("POST %s (%s, %d bytes)", req.URL, name, file.Size)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, ingestPath); err != nil {
		return nil, err
	}

	var body ingestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	result := body.toDomain()
	logger.Debug("%s returned status=%t chunks=%d", ingestPath, result.OK, len(result.Chunks))
	return result, nil
}

// writeMultipart copies src into a single form file part.
func writeMultipart(mw *multipart.Writer, name string, src io.Reader, tracker *progressTracker) error {
	part, err := mw.CreateFormFile(formField, name)
	if err != nil {
		return err
	}

	if tracker != nil {
		src = tracker.wrap(src)
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	if tracker != nil {
		tracker.complete()
	}
	return nil
}

// Submit sends the full chunk set in one request.
func (c *Client) Submit(ctx context.Context, chunks []domain.TransportChunk) error {
	jsonBody, err := json.Marshal(fromTransport(chunks))
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+submitPath,
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("POST %s (%d chunks, %d bytes)", req.URL, len(chunks), len(jsonBody))

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, submitPath); err != nil {
		return err
	}

	// The body is not interpreted; drain it so the connection is reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Ping checks the service health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, http.NoBody)
	if err != nil {
		return fmt.Errorf("kbapi: failed to create ping request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("kbapi: ping failed: %w", err)
	}
	defer resp.Body.Close()

	return checkStatus(resp, healthPath)
}

// checkStatus turns a non-2xx response into an error quoting the body.
func checkStatus(resp *http.Response, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("kbapi: %s returned status %d (failed to read body: %w)", path, resp.StatusCode, err)
	}
	return &StatusError{
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

// StatusError reports a non-2xx response from the service.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("kbapi: %s returned status %d", e.Path, e.StatusCode)
	if detail := detailFromBody(e.Body); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// detailFromBody extracts a FastAPI-style {"detail": "..."} message,
// falling back to the raw body.
func detailFromBody(body string) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err == nil {
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
	}
	return body
}
