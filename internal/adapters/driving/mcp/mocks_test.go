package mcp

import (
	"context"
	"sync"

	"github.com/custodia-labs/kbprep/internal/core/domain"
)

// mockPipelineService is a mock implementation of driving.PipelineService.
type mockPipelineService struct {
	mu       sync.Mutex
	snapshot domain.PipelineSnapshot

	uploadErr    error
	uploadedPath string
	uploadCtx    context.Context
	editErr      error
	processErr   error
	outcome      error
	processCtx   context.Context
	updated      map[string]string
	deleted      []string
	resetCalls   int
	afterUpload  *domain.PipelineSnapshot
	afterProcess *domain.PipelineSnapshot
}

func (m *mockPipelineService) Snapshot() domain.PipelineSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func (m *mockPipelineService) Upload(ctx context.Context, path string, _ func(int)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploadedPath = path
	m.uploadCtx = ctx
	if m.uploadErr != nil {
		return m.uploadErr
	}
	if m.afterUpload != nil {
		m.snapshot = *m.afterUpload
	}
	return nil
}

func (m *mockPipelineService) SelectFiles(ctx context.Context, paths []string, fn func(int)) error {
	if len(paths) == 0 {
		return domain.ErrNoFile
	}
	return m.Upload(ctx, paths[0], fn)
}

func (m *mockPipelineService) UpdateChunk(id, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		return m.editErr
	}
	if m.updated == nil {
		m.updated = make(map[string]string)
	}
	m.updated[id] = content
	return nil
}

func (m *mockPipelineService) DeleteChunk(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.editErr != nil {
		return m.editErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockPipelineService) StartProcessing(ctx context.Context) (<-chan error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processCtx = ctx
	if m.processErr != nil {
		return nil, m.processErr
	}
	if m.afterProcess != nil {
		m.snapshot = *m.afterProcess
	}
	ch := make(chan error, 1)
	ch <- m.outcome
	close(ch)
	return ch, nil
}

func (m *mockPipelineService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetCalls++
	m.snapshot = domain.PipelineSnapshot{Phase: domain.PhaseUploading}
}

func (m *mockPipelineService) Subscribe(func(domain.PipelineEvent)) func() {
	return func() {}
}

func (m *mockPipelineService) Close() {}

func reviewing() domain.PipelineSnapshot {
	return domain.PipelineSnapshot{
		Phase:    domain.PhaseReviewing,
		FileName: "report.pdf",
		Chunks: []domain.Chunk{
			{ID: "c1", Content: "Intro", Metadata: domain.Metadata{Source: "report.pdf", Page: 1}},
			{ID: "c2", Content: "Method", Metadata: domain.Metadata{Source: "report.pdf", Page: 2}},
			{ID: "c3", Content: "Results", Metadata: domain.Metadata{
				Source: "report.pdf",
				Page:   3,
				Extra:  map[string]any{"section": "3.1"},
			}},
		},
	}
}
