// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbprep/internal/core/domain"
)

// linesPerChunk is the rendered height of one card: header, preview, gap.
const linesPerChunk = 3

// ChunkList displays chunks under review in a navigable list.
type ChunkList struct {
	chunks   []domain.Chunk
	selected int
	offset   int
	styles   *styles.Styles
	width    int
	height   int
}

// NewChunkList creates a new chunk list component.
func NewChunkList(s *styles.Styles) *ChunkList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ChunkList{
		styles: s,
		width:  80,
		height: 20,
	}
}

// Init initialises the chunk list.
func (c *ChunkList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (c *ChunkList) Update(msg tea.Msg) (*ChunkList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			c.MoveUp()
		case "down", "j":
			c.MoveDown()
		case "home", "g":
			c.SetSelected(0)
		case "end", "G":
			c.SetSelected(len(c.chunks) - 1)
		}
	}
	return c, nil
}

// View renders the chunk list.
func (c *ChunkList) View() string {
	if len(c.chunks) == 0 {
		return c.styles.Muted.Render("No chunks left. Press r to start over.")
	}

	visible := c.visibleCount()
	end := c.offset + visible
	if end > len(c.chunks) {
		end = len(c.chunks)
	}

	cards := make([]string, 0, end-c.offset+1)
	for i := c.offset; i < end; i++ {
		cards = append(cards, c.renderChunk(i, &c.chunks[i]))
	}

	if len(c.chunks) > visible {
		cards = append(cards, c.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
			c.offset+1, end, len(c.chunks))))
	}

	return strings.Join(cards, "\n")
}

// renderChunk formats a single chunk card with a header and a preview line.
func (c *ChunkList) renderChunk(index int, chunk *domain.Chunk) string {
	header := fmt.Sprintf("#%d", index+1)
	meta := fmt.Sprintf("page %d", chunk.Metadata.Page)
	if chunk.Metadata.Source != "" {
		meta = fmt.Sprintf("%s · %s", chunk.Metadata.Source, meta)
	}

	maxPreview := c.width - 8
	if maxPreview < 20 {
		maxPreview = 20
	}
	preview := Truncate(chunk.Content, maxPreview)
	if preview == "" {
		preview = "(empty)"
	}

	body := c.styles.Normal.Render(header) + "  " + c.styles.ChunkMeta.Render(meta) + "\n" +
		c.styles.Muted.Render(preview)

	if index == c.selected {
		return c.styles.ChunkCardSelected.Render(body) + "\n"
	}
	return c.styles.ChunkCard.Render(body) + "\n"
}

// SetChunks replaces the displayed chunks, keeping the selection on the
// same chunk when it still exists and clamping it otherwise.
func (c *ChunkList) SetChunks(chunks []domain.Chunk) {
	var selectedID string
	if chunk := c.SelectedChunk(); chunk != nil {
		selectedID = chunk.ID
	}

	c.chunks = chunks

	for i := range chunks {
		if chunks[i].ID == selectedID {
			c.selected = i
			c.adjustOffset()
			return
		}
	}
	if c.selected >= len(chunks) {
		c.selected = len(chunks) - 1
	}
	if c.selected < 0 {
		c.selected = 0
	}
	c.adjustOffset()
}

// Chunks returns the displayed chunks.
func (c *ChunkList) Chunks() []domain.Chunk {
	return c.chunks
}

// Selected returns the index of the selected chunk.
func (c *ChunkList) Selected() int {
	return c.selected
}

// SetSelected sets the selected index.
func (c *ChunkList) SetSelected(index int) {
	if index >= 0 && index < len(c.chunks) {
		c.selected = index
		c.adjustOffset()
	}
}

// SelectedChunk returns the currently selected chunk, or nil if none.
func (c *ChunkList) SelectedChunk() *domain.Chunk {
	if len(c.chunks) == 0 || c.selected < 0 || c.selected >= len(c.chunks) {
		return nil
	}
	return &c.chunks[c.selected]
}

// MoveUp moves selection up.
func (c *ChunkList) MoveUp() {
	if c.selected > 0 {
		c.selected--
		c.adjustOffset()
	}
}

// MoveDown moves selection down.
func (c *ChunkList) MoveDown() {
	if c.selected < len(c.chunks)-1 {
		c.selected++
		c.adjustOffset()
	}
}

// adjustOffset keeps the selected chunk inside the visible window.
func (c *ChunkList) adjustOffset() {
	visible := c.visibleCount()
	if c.selected < c.offset {
		c.offset = c.selected
	} else if c.selected >= c.offset+visible {
		c.offset = c.selected - visible + 1
	}
	if c.offset > len(c.chunks)-1 {
		c.offset = len(c.chunks) - 1
	}
	if c.offset < 0 {
		c.offset = 0
	}
}

func (c *ChunkList) visibleCount() int {
	n := c.height / linesPerChunk
	if n < 1 {
		n = 1
	}
	return n
}

// SetDimensions sets the component dimensions.
func (c *ChunkList) SetDimensions(width, height int) {
	c.width = width
	c.height = height
	c.adjustOffset()
}

// Width returns the current width.
func (c *ChunkList) Width() int {
	return c.width
}

// Height returns the current height.
func (c *ChunkList) Height() int {
	return c.height
}

// Count returns the number of chunks.
func (c *ChunkList) Count() int {
	return len(c.chunks)
}

// IsEmpty returns whether the list is empty.
func (c *ChunkList) IsEmpty() bool {
	return len(c.chunks) == 0
}

// Truncate collapses whitespace in s and shortens it to at most max runes.
func Truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
