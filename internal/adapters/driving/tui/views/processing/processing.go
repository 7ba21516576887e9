// Package processing provides the embedding generation progress view for the TUI.
package processing

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbprep/internal/core/domain"
)

// View shows simulated progress while the collection is submitted.
type View struct {
	styles *styles.Styles
	bar    progress.Model

	fileName   string
	chunkCount int
	percent    int

	width  int
	height int
	ready  bool
}

// NewView creates a new processing view.
func NewView(s *styles.Styles) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	theme := s.Theme()
	return &View{
		styles: s,
		bar: progress.New(
			progress.WithGradient(string(theme.ProgressStart), string(theme.ProgressEnd)),
			progress.WithoutPercentage(),
		),
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// SetSnapshot refreshes the view from the pipeline state.
func (v *View) SetSnapshot(snap domain.PipelineSnapshot) {
	v.fileName = snap.FileName
	v.chunkCount = len(snap.Chunks)
	if snap.Phase == domain.PhaseProcessing {
		v.percent = snap.Progress
	}
}

// Update handles messages for the processing view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "r", "esc":
			return v, func() tea.Msg { return messages.ResetRequested{} }
		}
		return v, nil

	case messages.PipelineEvent:
		switch msg.Event.Kind {
		case domain.EventProcessingProgress, domain.EventProcessingComplete:
			if msg.Event.Progress > v.percent {
				v.percent = msg.Event.Progress
			}
		case domain.EventPhaseChanged:
			if msg.Event.Phase == domain.PhaseProcessing {
				v.percent = 0
			}
		}
		return v, nil
	}

	return v, nil
}

// View renders the processing view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(domain.PhaseProcessing.Description()))
	b.WriteString("\n\n")

	b.WriteString(v.styles.Normal.Render(fmt.Sprintf("Submitting %d chunks from %s", v.chunkCount, v.fileName)))
	b.WriteString("\n\n")

	b.WriteString(v.bar.ViewAs(float64(v.percent) / 100))
	b.WriteString(" ")
	b.WriteString(v.styles.Subtitle.Render(fmt.Sprintf("%3d%%", v.percent)))
	b.WriteString("\n\n")

	b.WriteString(v.styles.Muted.Render("Chunks are read-only while embeddings are generated."))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Help.Render("[r] cancel and start over  [ctrl+c] quit"))

	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	barWidth := width - 14
	if barWidth > 80 {
		barWidth = 80
	}
	if barWidth < 10 {
		barWidth = 10
	}
	v.bar.Width = barWidth
}

// Percent returns the displayed progress.
func (v *View) Percent() int {
	return v.percent
}
