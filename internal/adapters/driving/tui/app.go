package tui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/views/processing"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/views/review"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/views/settings"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/views/upload"
	"github.com/custodia-labs/kbprep/internal/core/domain"
	"github.com/custodia-labs/kbprep/internal/logger"
)

// eventBuffer bounds how many pipeline events may queue before the
// pipeline's dispatcher waits for the UI to catch up.
const eventBuffer = 64

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
//
// The active view follows the pipeline phase. Pipeline events arrive on a
// channel fed by a subscription and are turned into messages one at a time.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	// styles holds the TUI styles.
	styles *styles.Styles

	// statusBar shows the phase summary and key hints.
	statusBar *status.Bar

	uploadView     *upload.View
	reviewView     *review.View
	processingView *processing.View
	settingsView   *settings.View

	// currentView tracks which view is active.
	currentView messages.ViewType

	// events carries pipeline events from the subscription.
	events      chan domain.PipelineEvent
	unsubscribe func()
	done        chan struct{}
	closeOnce   sync.Once

	// drops carries drop folder batches. Nil disables the drop folder.
	drops <-chan []string

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
// The app subscribes to pipeline events immediately; call Close (or Run,
// which closes on exit) to release the subscription.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	a := &App{
		ports:          ports,
		ctx:            context.Background(),
		styles:         s,
		statusBar:      status.NewBar(s, keymap.DefaultKeyMap()),
		uploadView:     upload.NewView(s, ports.Pipeline),
		reviewView:     review.NewView(s, ports.Pipeline),
		processingView: processing.NewView(s),
		settingsView:   settings.NewView(s, ports.Settings),
		events:         make(chan domain.PipelineEvent, eventBuffer),
		done:           make(chan struct{}),
	}

	a.unsubscribe = ports.Pipeline.Subscribe(a.forward)
	a.applySnapshot(true)

	return a, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// WithDropFolder feeds batches of dropped files into the upload phase.
func (a *App) WithDropFolder(dir string, batches <-chan []string) *App {
	a.drops = batches
	a.uploadView.SetWatchDir(dir)
	return a
}

// forward runs on the pipeline's dispatcher goroutine.
func (a *App) forward(ev domain.PipelineEvent) {
	select {
	case a.events <- ev:
	case <-a.done:
	}
}

// waitForEvent returns a command that yields the next pipeline event.
func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-a.events:
			return messages.PipelineEvent{Event: ev}
		case <-a.done:
			return messages.PipelineClosed{}
		}
	}
}

// waitForDrop returns a command that yields the next drop folder batch.
func (a *App) waitForDrop() tea.Cmd {
	if a.drops == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case paths, ok := <-a.drops:
			if !ok {
				return nil
			}
			return messages.FilesDropped{Paths: paths}
		case <-a.done:
			return nil
		}
	}
}

// Init implements tea.Model.
// It runs initial commands when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("kbprep"),
		a.uploadView.Init(),
		a.waitForEvent(),
		a.waitForDrop(),
	)
}

// Update implements tea.Model.
// It handles messages and updates the model state.
//
//nolint:gocognit,gocyclo,funlen // central message handler requires complexity
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		cmd = a.updateCurrent(msg)
		a.syncStatus()
		return a, cmd

	case messages.PipelineEvent:
		cmd = a.handleEvent(msg)
		a.syncStatus()
		return a, tea.Batch(cmd, a.waitForEvent())

	case messages.PipelineClosed:
		return a, nil

	case messages.FilesDropped:
		cmd = a.handleDrop(msg.Paths)
		a.syncStatus()
		return a, tea.Batch(cmd, a.waitForDrop())

	case messages.UploadFinished:
		a.uploadView, cmd = a.uploadView.Update(msg)
		a.err = a.uploadView.Err()
		a.syncStatus()
		return a, cmd

	case messages.ChunkSaved, messages.ChunkRemoved:
		a.reviewView, cmd = a.reviewView.Update(msg)
		a.err = a.reviewView.Err()
		a.syncStatus()
		return a, cmd

	case messages.ProcessingRequested:
		return a, a.startProcessing()

	case messages.ProcessingFinished:
		a.reviewView, cmd = a.reviewView.Update(msg)
		if msg.Err != nil {
			logger.Debug("processing ended: %v", msg.Err)
		}
		a.syncStatus()
		return a, cmd

	case messages.ResetRequested:
		return a, a.reset()

	case messages.SettingsLoaded, messages.SettingsSaved, messages.ServerChecked:
		a.settingsView, cmd = a.settingsView.Update(msg)
		return a, cmd

	case messages.ViewChanged:
		return a, a.changeView(msg.View)

	case messages.ErrorOccurred:
		a.err = msg.Err
		cmd = a.updateCurrent(msg)
		a.syncStatus()
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	// Forward other messages (cursor blinks and the like) to the active view.
	return a, a.updateCurrent(msg)
}

// updateCurrent forwards msg to the active view.
func (a *App) updateCurrent(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewUpload:
		a.uploadView, cmd = a.uploadView.Update(msg)
	case messages.ViewReview:
		a.reviewView, cmd = a.reviewView.Update(msg)
	case messages.ViewProcessing:
		a.processingView, cmd = a.processingView.Update(msg)
	case messages.ViewSettings:
		a.settingsView, cmd = a.settingsView.Update(msg)
	}
	return cmd
}

// handleEvent applies a pipeline event to every phase view and follows
// phase changes.
func (a *App) handleEvent(msg messages.PipelineEvent) tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	a.uploadView, cmd = a.uploadView.Update(msg)
	cmds = append(cmds, cmd)
	a.reviewView, cmd = a.reviewView.Update(msg)
	cmds = append(cmds, cmd)
	a.processingView, cmd = a.processingView.Update(msg)
	cmds = append(cmds, cmd)

	a.applySnapshot(msg.Event.Kind == domain.EventPhaseChanged)

	switch msg.Event.Kind {
	case domain.EventIngestionFailed, domain.EventSubmissionFailed:
		a.err = msg.Event.Err
	case domain.EventPhaseChanged:
		a.err = nil
	}

	return tea.Batch(cmds...)
}

// applySnapshot refreshes views from the pipeline. When followPhase is
// set the active view switches to the one presenting the current phase.
func (a *App) applySnapshot(followPhase bool) {
	snap := a.ports.Pipeline.Snapshot()
	a.reviewView.SetSnapshot(snap)
	a.processingView.SetSnapshot(snap)
	a.statusBar.SetCollection(snap.FileName, len(snap.Chunks))

	if followPhase {
		a.currentView = messages.ViewForPhase(snap.Phase)
	}
}

// handleDrop starts an upload from a drop folder batch when the pipeline
// is waiting for a file.
func (a *App) handleDrop(paths []string) tea.Cmd {
	snap := a.ports.Pipeline.Snapshot()
	if snap.Phase != domain.PhaseUploading || snap.Busy || a.uploadView.Uploading() {
		logger.Debug("ignoring %d dropped file(s) while %s", len(paths), snap.Phase)
		return nil
	}
	a.currentView = messages.ViewUpload
	return a.uploadView.SelectFiles(paths)
}

// startProcessing returns a command that submits the collection and waits
// for the outcome.
func (a *App) startProcessing() tea.Cmd {
	pipeline, ctx := a.ports.Pipeline, a.ctx
	return func() tea.Msg {
		outcome, err := pipeline.StartProcessing(ctx)
		if err != nil {
			return messages.ProcessingFinished{Err: err}
		}
		return messages.ProcessingFinished{Err: <-outcome}
	}
}

// reset returns a command that discards the collection.
func (a *App) reset() tea.Cmd {
	a.uploadView.Reset()
	pipeline := a.ports.Pipeline
	return func() tea.Msg {
		pipeline.Reset()
		return nil
	}
}

// changeView switches to view. Settings are only reachable while uploading.
func (a *App) changeView(view messages.ViewType) tea.Cmd {
	switch view {
	case messages.ViewSettings:
		if a.ports.Pipeline.Snapshot().Phase != domain.PhaseUploading {
			return nil
		}
		a.currentView = view
		a.settingsView.Reset()
		a.syncStatus()
		return a.settingsView.Init()
	default:
		a.currentView = messages.ViewForPhase(a.ports.Pipeline.Snapshot().Phase)
		a.syncStatus()
		return nil
	}
}

// syncStatus derives the status bar state from the active view.
func (a *App) syncStatus() {
	bar := a.statusBar
	bar.SetMessage("")

	switch a.currentView {
	case messages.ViewUpload:
		switch {
		case a.uploadView.Uploading():
			bar.SetState(status.StateUploading)
		case a.uploadView.Err() != nil:
			bar.SetState(status.StateError)
			bar.SetMessage(a.uploadView.Err().Error())
		default:
			bar.SetState(status.StateReady)
			bar.SetMessage(a.uploadView.Notice())
		}
	case messages.ViewReview:
		if a.reviewView.Editing() {
			bar.SetState(status.StateEditing)
		} else {
			bar.SetState(status.StateReviewing)
		}
	case messages.ViewProcessing:
		bar.SetState(status.StateProcessing)
	case messages.ViewSettings:
		bar.SetState(status.StateSettings)
	}
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch a.currentView {
	case messages.ViewReview:
		body = a.reviewView.View()
	case messages.ViewProcessing:
		body = a.processingView.View()
	case messages.ViewSettings:
		body = a.settingsView.View()
	default:
		body = a.uploadView.View()
	}

	bodyHeight := a.height - 1
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, body, a.statusBar.View())
}

// Run starts the TUI application and releases the pipeline subscription
// when it exits.
func (a *App) Run() error {
	defer a.Close()

	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Close stops event forwarding and unsubscribes from the pipeline.
// It is safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		close(a.done)
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
	})
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	viewHeight := height - 1
	a.uploadView.SetDimensions(width, viewHeight)
	a.reviewView.SetDimensions(width, viewHeight)
	a.processingView.SetDimensions(width, viewHeight)
	a.settingsView.SetDimensions(width, viewHeight)
	a.statusBar.SetWidth(width)
}
