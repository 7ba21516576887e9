// Package review provides the chunk review and editing view for the TUI.
package review

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbprep/internal/core/domain"
	"github.com/custodia-labs/kbprep/internal/core/ports/driving"
)

// View is the review view. It lists chunks and hosts the chunk editor.
type View struct {
	styles   *styles.Styles
	pipeline driving.PipelineService

	list   *list.ChunkList
	editor textarea.Model

	fileName   string
	editing    bool
	editingID  string
	submitting bool
	err        error

	width  int
	height int
	ready  bool
}

// NewView creates a new review view.
func NewView(s *styles.Styles, pipeline driving.PipelineService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	editor := textarea.New()
	editor.CharLimit = 0
	editor.MaxHeight = 0
	editor.ShowLineNumbers = false
	editor.Placeholder = "Chunk content..."

	return &View{
		styles:   s,
		pipeline: pipeline,
		list:     list.NewChunkList(s),
		editor:   editor,
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// SetSnapshot refreshes the view from the pipeline state.
func (v *View) SetSnapshot(snap domain.PipelineSnapshot) {
	v.fileName = snap.FileName
	v.list.SetChunks(snap.Chunks)

	if v.editing && !containsChunk(snap.Chunks, v.editingID) {
		v.stopEditing()
	}
	if snap.Phase != domain.PhaseReviewing {
		v.stopEditing()
	}
}

// Update handles messages for the review view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.editing {
			return v.handleEditorKeyMsg(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.PipelineEvent:
		switch msg.Event.Kind {
		case domain.EventSubmissionFailed:
			v.submitting = false
			v.err = msg.Event.Err
		case domain.EventPhaseChanged:
			if msg.Event.Phase == domain.PhaseReviewing && !v.submitting {
				v.err = nil
			}
		}
		return v, nil

	case messages.ChunkSaved:
		if msg.Err != nil {
			v.err = msg.Err
		}
		return v, nil

	case messages.ChunkRemoved:
		if msg.Err != nil {
			v.err = msg.Err
		}
		return v, nil

	case messages.ProcessingFinished:
		v.submitting = false
		if msg.Err != nil && !errors.Is(msg.Err, domain.ErrCancelled) {
			v.err = msg.Err
		}
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	if v.editing {
		var cmd tea.Cmd
		v.editor, cmd = v.editor.Update(msg)
		return v, cmd
	}
	return v, nil
}

// handleKeyMsg handles key presses in list mode.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if v.submitting {
		return v, nil
	}

	switch msg.String() {
	case "e", "enter":
		return v, v.startEditing()
	case "d", "delete":
		return v, v.deleteSelected()
	case "p":
		v.submitting = true
		v.err = nil
		return v, func() tea.Msg { return messages.ProcessingRequested{} }
	case "r":
		v.err = nil
		return v, func() tea.Msg { return messages.ResetRequested{} }
	}

	var cmd tea.Cmd
	v.list, cmd = v.list.Update(msg)
	return v, cmd
}

// handleEditorKeyMsg handles key presses while a chunk is being edited.
func (v *View) handleEditorKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "ctrl+s":
		id, content := v.editingID, v.editor.Value()
		v.stopEditing()
		return v, v.saveChunk(id, content)
	case "esc":
		v.stopEditing()
		return v, nil
	}

	var cmd tea.Cmd
	v.editor, cmd = v.editor.Update(msg)
	return v, cmd
}

func (v *View) startEditing() tea.Cmd {
	chunk := v.list.SelectedChunk()
	if chunk == nil {
		return nil
	}
	v.editing = true
	v.editingID = chunk.ID
	v.err = nil
	v.editor.SetValue(chunk.Content)
	return v.editor.Focus()
}

func (v *View) stopEditing() {
	v.editing = false
	v.editingID = ""
	v.editor.Blur()
	v.editor.Reset()
}

// saveChunk returns a command that applies an edit.
func (v *View) saveChunk(id, content string) tea.Cmd {
	pipeline := v.pipeline
	return func() tea.Msg {
		if pipeline == nil {
			return messages.ChunkSaved{ID: id, Err: fmt.Errorf("pipeline service not available")}
		}
		return messages.ChunkSaved{ID: id, Err: pipeline.UpdateChunk(id, content)}
	}
}

// deleteSelected returns a command that removes the selected chunk.
func (v *View) deleteSelected() tea.Cmd {
	chunk := v.list.SelectedChunk()
	if chunk == nil {
		return nil
	}
	id := chunk.ID

	pipeline := v.pipeline
	return func() tea.Msg {
		if pipeline == nil {
			return messages.ChunkRemoved{ID: id, Err: fmt.Errorf("pipeline service not available")}
		}
		return messages.ChunkRemoved{ID: id, Err: pipeline.DeleteChunk(id)}
	}
}

// View renders the review view.
func (v *View) View() string {
	var b strings.Builder

	title := fmt.Sprintf("%s (%d)", domain.PhaseReviewing.Description(), v.list.Count())
	if v.fileName != "" {
		title = fmt.Sprintf("%s - %s", title, v.fileName)
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n\n")

	if v.editing {
		b.WriteString(v.renderEditor())
	} else {
		b.WriteString(v.list.View())
	}
	b.WriteString("\n")

	if v.submitting {
		b.WriteString(v.styles.Muted.Render("Submitting chunks..."))
		b.WriteString("\n")
	}
	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *View) renderEditor() string {
	heading := "Editing chunk"
	if chunk := v.list.SelectedChunk(); chunk != nil && chunk.ID == v.editingID {
		heading = fmt.Sprintf("Editing chunk #%d (page %d)", v.list.Selected()+1, chunk.Metadata.Page)
	}
	return v.styles.Subtitle.Render(heading) + "\n\n" + v.styles.Editor.Render(v.editor.View())
}

func (v *View) renderHelp() string {
	if v.editing {
		return v.styles.Help.Render("[ctrl+s] save  [esc] cancel")
	}
	return v.styles.Help.Render("[↑/↓] navigate  [e] edit  [d] delete  [p] process  [r] start over")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	// Reserve lines for title, status lines and help.
	listHeight := height - 7
	if listHeight < 3 {
		listHeight = 3
	}
	v.list.SetDimensions(width, listHeight)

	editorWidth := width - 6
	if editorWidth < 20 {
		editorWidth = 20
	}
	editorHeight := height - 10
	if editorHeight < 3 {
		editorHeight = 3
	}
	v.editor.SetWidth(editorWidth)
	v.editor.SetHeight(editorHeight)
}

// Editing returns true while the editor is open.
func (v *View) Editing() bool {
	return v.editing
}

// EditingID returns the id of the chunk being edited.
func (v *View) EditingID() string {
	return v.editingID
}

// EditorValue returns the current editor content.
func (v *View) EditorValue() string {
	return v.editor.Value()
}

// Submitting returns true after processing was requested and before it ended.
func (v *View) Submitting() bool {
	return v.submitting
}

// List returns the chunk list component.
func (v *View) List() *list.ChunkList {
	return v.list
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

func containsChunk(chunks []domain.Chunk, id string) bool {
	for i := range chunks {
		if chunks[i].ID == id {
			return true
		}
	}
	return false
}
