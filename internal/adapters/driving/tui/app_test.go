package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbprep/internal/core/domain"
)

func reviewingSnapshot() domain.PipelineSnapshot {
	return domain.PipelineSnapshot{
		Phase:    domain.PhaseReviewing,
		FileName: "report.pdf",
		Chunks: []domain.Chunk{
			{ID: "c1", Content: "Intro", Metadata: domain.Metadata{Source: "report.pdf", Page: 1}},
			{ID: "c2", Content: "Body", Metadata: domain.Metadata{Source: "report.pdf", Page: 2}},
		},
	}
}

func newTestApp(t *testing.T, pipeline *MockPipelineService) *App {
	t.Helper()
	app, err := NewApp(NewPorts(pipeline, nil))
	require.NoError(t, err)
	t.Cleanup(app.Close)
	app.SetDimensions(120, 40)
	return app
}

// nextEvent reads one forwarded pipeline event as the program would.
func nextEvent(t *testing.T, app *App) messages.PipelineEvent {
	t.Helper()
	done := make(chan tea.Msg, 1)
	go func() { done <- app.waitForEvent()() }()

	select {
	case msg := <-done:
		ev, ok := msg.(messages.PipelineEvent)
		require.True(t, ok, "expected PipelineEvent, got %T", msg)
		return ev
	case <-time.After(time.Second):
		t.Fatal("no pipeline event forwarded")
		return messages.PipelineEvent{}
	}
}

// emitPhase moves the mock to snap and delivers the phase change to the app.
func emitPhase(t *testing.T, app *App, pipeline *MockPipelineService, snap domain.PipelineSnapshot) {
	t.Helper()
	pipeline.SetSnapshot(snap)
	pipeline.Emit(domain.PipelineEvent{
		Kind:       domain.EventPhaseChanged,
		Phase:      snap.Phase,
		FileName:   snap.FileName,
		ChunkCount: len(snap.Chunks),
	})
	app.Update(nextEvent(t, app))
}

func TestNewApp_Success(t *testing.T) {
	pipeline := &MockPipelineService{}

	app, err := NewApp(NewPorts(pipeline, nil))

	require.NoError(t, err)
	require.NotNil(t, app)
	defer app.Close()
	assert.Equal(t, messages.ViewUpload, app.CurrentView())
	assert.Equal(t, 1, pipeline.Subscribers())
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{})

	assert.ErrorIs(t, err, ErrMissingPipelineService)
	assert.Nil(t, app)
}

func TestNewApp_FollowsExistingPhase(t *testing.T) {
	pipeline := &MockPipelineService{}
	pipeline.SetSnapshot(reviewingSnapshot())

	app := newTestApp(t, pipeline)

	assert.Equal(t, messages.ViewReview, app.CurrentView())
	assert.Equal(t, 2, app.reviewView.List().Count())
}

func TestApp_WithContext(t *testing.T) {
	app := newTestApp(t, &MockPipelineService{})

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, app, app.WithContext(ctx))
	assert.Equal(t, ctx, app.ctx)
}

func TestApp_Init(t *testing.T) {
	app := newTestApp(t, &MockPipelineService{})

	assert.NotNil(t, app.Init())
}

func TestApp_Update_WindowSize(t *testing.T) {
	app, err := NewApp(NewPorts(&MockPipelineService{}, nil))
	require.NoError(t, err)
	defer app.Close()
	assert.Equal(t, "Initialising...", app.View())

	model, cmd := app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	assert.Equal(t, app, model)
	assert.Nil(t, cmd)
	assert.True(t, app.Ready())
	assert.Equal(t, 80, app.statusBar.Width())
	assert.Contains(t, app.View(), "Upload a PDF")
}

func TestApp_Update_CtrlC(t *testing.T) {
	app := newTestApp(t, &MockPipelineService{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestApp_Update_Quit(t *testing.T) {
	app := newTestApp(t, &MockPipelineService{})

	_, cmd := app.Update(messages.Quit{})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestApp_UploadFlow(t *testing.T) {
	var uploaded string
	pipeline := &MockPipelineService{
		UploadFunc: func(_ context.Context, path string) error {
			uploaded = path
			return nil
		},
	}
	app := newTestApp(t, pipeline)

	for _, r := range "/tmp/report.pdf" {
		app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, status.StateUploading, app.statusBar.State())

	app.Update(cmd())
	assert.Equal(t, "/tmp/report.pdf", uploaded)

	emitPhase(t, app, pipeline, reviewingSnapshot())

	assert.Equal(t, messages.ViewReview, app.CurrentView())
	assert.Equal(t, status.StateReviewing, app.statusBar.State())
	assert.Equal(t, 2, app.statusBar.ChunkCount())
	assert.Contains(t, app.View(), "Review chunks (2) - report.pdf")
}

func TestApp_UploadFailure(t *testing.T) {
	failure := errors.New("ingestion failed: service said no")
	pipeline := &MockPipelineService{
		UploadFunc: func(context.Context, string) error { return failure },
	}
	app := newTestApp(t, pipeline)
	app.uploadView.Input().SetValue("/tmp/bad.pdf")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	app.Update(cmd())

	assert.Equal(t, messages.ViewUpload, app.CurrentView())
	assert.Equal(t, failure, app.Err())
	assert.Equal(t, status.StateError, app.statusBar.State())
	assert.Contains(t, app.View(), "retry")
}

func TestApp_EventsReachAllViews(t *testing.T) {
	pipeline := &MockPipelineService{}
	app := newTestApp(t, pipeline)
	emitPhase(t, app, pipeline, domain.PipelineSnapshot{
		Phase:    domain.PhaseProcessing,
		FileName: "report.pdf",
		Chunks:   reviewingSnapshot().Chunks,
	})
	require.Equal(t, messages.ViewProcessing, app.CurrentView())

	pipeline.SetSnapshot(domain.PipelineSnapshot{Phase: domain.PhaseProcessing, Progress: 35})
	pipeline.Emit(domain.PipelineEvent{
		Kind:     domain.EventProcessingProgress,
		Phase:    domain.PhaseProcessing,
		Progress: 35,
	})
	_, cmd := app.Update(nextEvent(t, app))

	assert.NotNil(t, cmd, "the app keeps listening for events")
	assert.Equal(t, 35, app.processingView.Percent())
	assert.Equal(t, status.StateProcessing, app.statusBar.State())
}

func TestApp_ProcessingComplete_ReturnsToUpload(t *testing.T) {
	pipeline := &MockPipelineService{}
	pipeline.SetSnapshot(domain.PipelineSnapshot{Phase: domain.PhaseProcessing, FileName: "report.pdf"})
	app := newTestApp(t, pipeline)

	pipeline.SetSnapshot(domain.PipelineSnapshot{Phase: domain.PhaseUploading})
	pipeline.Emit(domain.PipelineEvent{
		Kind:       domain.EventProcessingComplete,
		Phase:      domain.PhaseProcessing,
		FileName:   "report.pdf",
		ChunkCount: 2,
		Progress:   100,
	})
	app.Update(nextEvent(t, app))
	emitPhase(t, app, pipeline, domain.PipelineSnapshot{Phase: domain.PhaseUploading})

	assert.Equal(t, messages.ViewUpload, app.CurrentView())
	assert.Contains(t, app.View(), "Embeddings generated for report.pdf (2 chunks).")
}

func TestApp_SubmissionFailed(t *testing.T) {
	pipeline := &MockPipelineService{}
	pipeline.SetSnapshot(domain.PipelineSnapshot{Phase: domain.PhaseProcessing})
	app := newTestApp(t, pipeline)
	failure := errors.New("submission failed: status 502")

	emitPhase(t, app, pipeline, reviewingSnapshot())
	pipeline.Emit(domain.PipelineEvent{
		Kind:  domain.EventSubmissionFailed,
		Phase: domain.PhaseReviewing,
		Err:   failure,
	})
	app.Update(nextEvent(t, app))

	assert.Equal(t, messages.ViewReview, app.CurrentView())
	assert.Equal(t, failure, app.Err())
	assert.Equal(t, 2, app.reviewView.List().Count())
	assert.Contains(t, app.View(), "status 502")
}

func TestApp_ProcessingRequested(t *testing.T) {
	app := newTestApp(t, &MockPipelineService{})

	_, cmd := app.Update(messages.ProcessingRequested{})

	require.NotNil(t, cmd)
	finished, ok := cmd().(messages.ProcessingFinished)
	require.True(t, ok)
	assert.NoError(t, finished.Err)
}

func TestApp_ProcessingRequested_Rejected(t *testing.T) {
	pipeline := &MockPipelineService{
		StartProcessingFunc: func(context.Context) (<-chan error, error) {
			return nil, domain.ErrPhaseLocked
		},
	}
	app := newTestApp(t, pipeline)

	_, cmd := app.Update(messages.ProcessingRequested{})
	finished, ok := cmd().(messages.ProcessingFinished)

	require.True(t, ok)
	assert.ErrorIs(t, finished.Err, domain.ErrPhaseLocked)
}

func TestApp_ProcessingRequested_UsesAppContext(t *testing.T) {
	type contextKey string
	var got context.Context
	pipeline := &MockPipelineService{
		StartProcessingFunc: func(ctx context.Context) (<-chan error, error) {
			got = ctx
			return nil, domain.ErrCancelled
		},
	}
	app := newTestApp(t, pipeline)
	ctx := context.WithValue(context.Background(), contextKey("k"), "v")
	app.WithContext(ctx)

	_, cmd := app.Update(messages.ProcessingRequested{})
	cmd()

	assert.Equal(t, ctx, got)
}

func TestApp_ReviewKeysDriveProcessing(t *testing.T) {
	pipeline := &MockPipelineService{}
	pipeline.SetSnapshot(reviewingSnapshot())
	app := newTestApp(t, pipeline)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ProcessingRequested{}, cmd())
}

func TestApp_ResetRequested(t *testing.T) {
	pipeline := &MockPipelineService{}
	app := newTestApp(t, pipeline)

	_, cmd := app.Update(messages.ResetRequested{})

	require.NotNil(t, cmd)
	assert.Nil(t, cmd())
	assert.Equal(t, 1, pipeline.ResetCalls())
}

func TestApp_EditorStatus(t *testing.T) {
	pipeline := &MockPipelineService{}
	pipeline.SetSnapshot(reviewingSnapshot())
	app := newTestApp(t, pipeline)

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})

	assert.Equal(t, status.StateEditing, app.statusBar.State())
}

func TestApp_ChunkMessages(t *testing.T) {
	pipeline := &MockPipelineService{}
	pipeline.SetSnapshot(reviewingSnapshot())
	app := newTestApp(t, pipeline)

	app.Update(messages.ChunkRemoved{ID: "c1", Err: domain.ErrPhaseLocked})

	assert.ErrorIs(t, app.Err(), domain.ErrPhaseLocked)
	assert.Contains(t, app.View(), domain.ErrPhaseLocked.Error())
}

func TestApp_Drop_StartsUpload(t *testing.T) {
	var selected []string
	pipeline := &MockPipelineService{
		SelectFilesFunc: func(_ context.Context, paths []string) error {
			selected = paths
			return nil
		},
	}
	app := newTestApp(t, pipeline)

	cmd := app.handleDrop([]string{"/drop/a.pdf", "/drop/b.pdf"})

	require.NotNil(t, cmd)
	assert.True(t, app.uploadView.Uploading())
	finished, ok := cmd().(messages.UploadFinished)
	require.True(t, ok)
	assert.Equal(t, "/drop/a.pdf", finished.Path)
	assert.Equal(t, []string{"/drop/a.pdf", "/drop/b.pdf"}, selected)
}

func TestApp_Drop_IgnoredOutsideUploading(t *testing.T) {
	called := false
	pipeline := &MockPipelineService{
		SelectFilesFunc: func(context.Context, []string) error {
			called = true
			return nil
		},
	}
	pipeline.SetSnapshot(reviewingSnapshot())
	app := newTestApp(t, pipeline)

	cmd := app.handleDrop([]string{"/drop/a.pdf"})

	assert.Nil(t, cmd)
	assert.False(t, called)
	assert.Equal(t, messages.ViewReview, app.CurrentView())
}

func TestApp_Drop_IgnoredWhileUploading(t *testing.T) {
	app := newTestApp(t, &MockPipelineService{})
	app.uploadView.StartUpload("/tmp/first.pdf")

	assert.Nil(t, app.handleDrop([]string{"/drop/second.pdf"}))
}

func TestApp_Drop_FromSettingsSwitchesToUpload(t *testing.T) {
	app := newTestApp(t, &MockPipelineService{})
	app.Update(messages.ViewChanged{View: messages.ViewSettings})
	require.Equal(t, messages.ViewSettings, app.CurrentView())

	_, cmd := app.Update(messages.FilesDropped{Paths: []string{"/drop/a.pdf"}})

	assert.NotNil(t, cmd)
	assert.Equal(t, messages.ViewUpload, app.CurrentView())
}

func TestApp_WaitForDrop(t *testing.T) {
	app := newTestApp(t, &MockPipelineService{})
	assert.Nil(t, app.waitForDrop(), "no drop folder configured")

	batches := make(chan []string, 1)
	app.WithDropFolder("/srv/drop", batches)
	batches <- []string{"/srv/drop/a.pdf"}

	msg := app.waitForDrop()()

	assert.Equal(t, messages.FilesDropped{Paths: []string{"/srv/drop/a.pdf"}}, msg)
	assert.Contains(t, app.View(), "Watching /srv/drop")

	close(batches)
	assert.Nil(t, app.waitForDrop()())
}

func TestApp_SettingsView(t *testing.T) {
	app := newTestApp(t, &MockPipelineService{})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	require.NotNil(t, cmd)
	_, cmd = app.Update(cmd())

	assert.Equal(t, messages.ViewSettings, app.CurrentView())
	assert.Equal(t, status.StateSettings, app.statusBar.State())
	require.NotNil(t, cmd)

	// Without a settings service the view reports it as unavailable.
	app.Update(cmd())
	assert.Contains(t, app.View(), "settings service not available")

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	app.Update(cmd())
	assert.Equal(t, messages.ViewUpload, app.CurrentView())
}

func TestApp_SettingsView_OnlyWhileUploading(t *testing.T) {
	pipeline := &MockPipelineService{}
	pipeline.SetSnapshot(reviewingSnapshot())
	app := newTestApp(t, pipeline)

	_, cmd := app.Update(messages.ViewChanged{View: messages.ViewSettings})

	assert.Nil(t, cmd)
	assert.Equal(t, messages.ViewReview, app.CurrentView())
}

func TestApp_ErrorOccurred(t *testing.T) {
	app := newTestApp(t, &MockPipelineService{})

	app.Update(messages.ErrorOccurred{Err: errors.New("boom")})

	assert.EqualError(t, app.Err(), "boom")
}

func TestApp_Close(t *testing.T) {
	pipeline := &MockPipelineService{}
	app, err := NewApp(NewPorts(pipeline, nil))
	require.NoError(t, err)

	app.Close()
	app.Close()

	assert.Equal(t, 0, pipeline.Subscribers())
	assert.Equal(t, messages.PipelineClosed{}, app.waitForEvent()())

	_, cmd := app.Update(messages.PipelineClosed{})
	assert.Nil(t, cmd)
}

func TestApp_ForwardDoesNotBlockAfterClose(t *testing.T) {
	pipeline := &MockPipelineService{}
	app, err := NewApp(NewPorts(pipeline, nil))
	require.NoError(t, err)

	fn := app.forward
	app.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < eventBuffer*2; i++ {
			fn(domain.PipelineEvent{Kind: domain.EventUploadProgress, Progress: i % 100})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("forward blocked after Close")
	}
}
