// Package upload provides the file selection and upload view for the TUI.
package upload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbprep/internal/core/domain"
	"github.com/custodia-labs/kbprep/internal/core/ports/driving"
)

// View is the upload view. It accepts a path, runs the upload and shows
// byte-level progress. A failed upload leaves the path in place for retry.
type View struct {
	styles   *styles.Styles
	pipeline driving.PipelineService

	input *input.PathInput
	bar   progress.Model

	uploading bool
	fileName  string
	percent   int
	err       error
	notice    string
	watchDir  string

	width  int
	height int
	ready  bool
}

// NewView creates a new upload view.
func NewView(s *styles.Styles, pipeline driving.PipelineService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	theme := s.Theme()
	bar := progress.New(
		progress.WithGradient(string(theme.ProgressStart), string(theme.ProgressEnd)),
		progress.WithoutPercentage(),
	)

	return &View{
		styles:   s,
		pipeline: pipeline,
		input:    input.NewPathInput(s),
		bar:      bar,
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// SetWatchDir records the drop folder shown as a hint.
func (v *View) SetWatchDir(dir string) {
	v.watchDir = dir
}

// Update handles messages for the upload view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.PipelineEvent:
		v.handleEvent(msg.Event)
		return v, nil

	case messages.UploadFinished:
		v.uploading = false
		switch {
		case msg.Err == nil:
			v.err = nil
			v.input.Reset()
		case errors.Is(msg.Err, domain.ErrCancelled):
			// Superseded by a reset; nothing to report.
		default:
			v.err = msg.Err
		}
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

// handleKeyMsg handles key presses.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.uploading {
		return v, nil
	}

	switch msg.String() {
	case "enter":
		path := v.input.Path()
		if path == "" {
			v.err = domain.ErrNoFile
			return v, nil
		}
		return v, v.StartUpload(path)
	case "ctrl+o":
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewSettings}
		}
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleEvent(ev domain.PipelineEvent) {
	switch ev.Kind {
	case domain.EventUploadProgress:
		if v.uploading {
			v.percent = ev.Progress
		}
	case domain.EventIngestionFailed:
		v.err = ev.Err
	case domain.EventProcessingComplete:
		v.notice = fmt.Sprintf("Embeddings generated for %s (%d chunks).", ev.FileName, ev.ChunkCount)
	case domain.EventPhaseChanged:
		if ev.Phase != domain.PhaseUploading {
			v.notice = ""
		}
	}
}

// StartUpload begins ingesting path and returns the command running it.
func (v *View) StartUpload(path string) tea.Cmd {
	v.begin(filepath.Base(path))

	pipeline := v.pipeline
	return func() tea.Msg {
		if pipeline == nil {
			return messages.UploadFinished{Path: path, Err: fmt.Errorf("pipeline service not available")}
		}
		err := pipeline.Upload(context.Background(), path, nil)
		return messages.UploadFinished{Path: path, Err: err}
	}
}

// SelectFiles begins ingesting a dropped batch. Only the first file is used.
func (v *View) SelectFiles(paths []string) tea.Cmd {
	if len(paths) == 0 {
		return nil
	}
	v.begin(filepath.Base(paths[0]))
	v.input.SetValue(paths[0])

	pipeline := v.pipeline
	return func() tea.Msg {
		if pipeline == nil {
			return messages.UploadFinished{Path: paths[0], Err: fmt.Errorf("pipeline service not available")}
		}
		err := pipeline.SelectFiles(context.Background(), paths, nil)
		return messages.UploadFinished{Path: paths[0], Err: err}
	}
}

func (v *View) begin(name string) {
	v.uploading = true
	v.fileName = name
	v.percent = 0
	v.err = nil
	v.notice = ""
}

// View renders the upload view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(domain.PhaseUploading.Description()))
	b.WriteString("\n\n")

	zone := v.input.View()
	if v.watchDir != "" {
		zone += "\n\n" + v.styles.Muted.Render(fmt.Sprintf("Watching %s for new PDFs", v.watchDir))
	}
	b.WriteString(v.styles.DropZone.Render(zone))
	b.WriteString("\n\n")

	switch {
	case v.uploading:
		b.WriteString(v.styles.Normal.Render(fmt.Sprintf("Uploading %s... %d%%", v.fileName, v.percent)))
		b.WriteString("\n")
		b.WriteString(v.bar.ViewAs(float64(v.percent) / 100))
		b.WriteString("\n")
	case v.err != nil:
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Upload failed: %s", v.err.Error())))
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render("Press enter to retry, or choose another file."))
		b.WriteString("\n")
	case v.notice != "":
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[enter] upload  [ctrl+o] settings  [ctrl+c] quit"))

	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.input.SetWidth(width - 8)

	barWidth := width - 8
	if barWidth > 80 {
		barWidth = 80
	}
	if barWidth < 10 {
		barWidth = 10
	}
	v.bar.Width = barWidth
}

// Reset clears transient state and the path input.
func (v *View) Reset() {
	v.uploading = false
	v.fileName = ""
	v.percent = 0
	v.err = nil
	v.input.Reset()
}

// Uploading returns true while an upload is in flight.
func (v *View) Uploading() bool {
	return v.uploading
}

// Percent returns the last reported upload progress.
func (v *View) Percent() int {
	return v.percent
}

// Notice returns the last completion message.
func (v *View) Notice() string {
	return v.notice
}

// Input returns the path input.
func (v *View) Input() *input.PathInput {
	return v.input
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
