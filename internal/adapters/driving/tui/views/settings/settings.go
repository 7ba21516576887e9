// Package settings provides the settings configuration view for the TUI.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbprep/internal/core/domain"
	"github.com/custodia-labs/kbprep/internal/core/ports/driving"
)

// Key constants for key handling.
const (
	keyDown  = "down"
	keyEnter = "enter"
	keyEsc   = "esc"
)

// View is the settings configuration view.
type View struct {
	styles          *styles.Styles
	settingsService driving.SettingsService

	// Current settings
	settings *domain.AppSettings
	keys     []string
	err      error
	notice   string
	checking bool

	// Navigation state
	selected int
	editing  bool
	input    textinput.Model

	// Dimensions
	width  int
	height int
	ready  bool
}

// NewView creates a new settings view.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	input := textinput.New()
	input.CharLimit = 1024

	var keys []string
	if settingsService != nil {
		keys = settingsService.Keys()
	}

	return &View{
		styles:          s,
		settingsService: settingsService,
		keys:            keys,
		input:           input,
	}
}

// Init initialises the view and loads settings.
func (v *View) Init() tea.Cmd {
	return v.loadSettings()
}

// loadSettings returns a command that loads current settings.
func (v *View) loadSettings() tea.Cmd {
	return func() tea.Msg {
		if v.settingsService == nil {
			return messages.SettingsLoaded{Err: fmt.Errorf("settings service not available")}
		}
		settings, err := v.settingsService.Get()
		return messages.SettingsLoaded{Settings: settings, Err: err}
	}
}

// Update handles messages for the settings view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingsLoaded:
		if msg.Err != nil {
			v.err = msg.Err
		} else {
			v.settings = msg.Settings
		}
		return v, nil

	case messages.SettingsSaved:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.notice = fmt.Sprintf("Saved %s", msg.Key)
		return v, v.loadSettings()

	case messages.ServerChecked:
		v.checking = false
		if msg.Err != nil {
			v.err = msg.Err
			v.notice = ""
		} else {
			v.err = nil
			v.notice = "Server is reachable"
		}
		return v, nil

	case tea.KeyMsg:
		if v.editing {
			return v.handleEditKeys(msg)
		}
		return v.handleListKeys(msg)
	}

	return v, nil
}

func (v *View) handleListKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case keyEsc:
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewUpload}
		}
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case keyDown, "j":
		if v.selected < len(v.keys)-1 {
			v.selected++
		}
	case keyEnter, "e":
		if key := v.SelectedKey(); key != "" {
			v.editing = true
			v.err = nil
			v.notice = ""
			v.input.SetValue(v.valueFor(key))
			v.input.CursorEnd()
			return v, v.input.Focus()
		}
	case "u":
		if key := v.SelectedKey(); key != "" {
			return v, v.unset(key)
		}
	case "c":
		if !v.checking {
			v.checking = true
			v.err = nil
			v.notice = ""
			return v, v.checkServer()
		}
	}
	return v, nil
}

func (v *View) handleEditKeys(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case keyEsc:
		v.stopEditing()
		return v, nil
	case keyEnter:
		key, value := v.SelectedKey(), v.input.Value()
		v.stopEditing()
		return v, v.set(key, value)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) stopEditing() {
	v.editing = false
	v.input.Blur()
	v.input.SetValue("")
}

func (v *View) set(key, value string) tea.Cmd {
	return func() tea.Msg {
		if v.settingsService == nil {
			return messages.SettingsSaved{Key: key, Err: fmt.Errorf("settings service not available")}
		}
		return messages.SettingsSaved{Key: key, Err: v.settingsService.Set(key, value)}
	}
}

func (v *View) unset(key string) tea.Cmd {
	return func() tea.Msg {
		if v.settingsService == nil {
			return messages.SettingsSaved{Key: key, Err: fmt.Errorf("settings service not available")}
		}
		return messages.SettingsSaved{Key: key, Err: v.settingsService.Unset(key)}
	}
}

func (v *View) checkServer() tea.Cmd {
	return func() tea.Msg {
		if v.settingsService == nil {
			return messages.ServerChecked{Err: fmt.Errorf("settings service not available")}
		}
		return messages.ServerChecked{Err: v.settingsService.CheckServer(context.Background())}
	}
}

// valueFor renders the current value of a config key in the form Set accepts.
func (v *View) valueFor(key string) string {
	if v.settings == nil {
		return ""
	}
	s := v.settings
	switch key {
	case "server.base_url":
		return s.Server.BaseURL
	case "server.timeout_seconds":
		return strconv.FormatInt(int64(s.Server.Timeout.Seconds()), 10)
	case "progress.interval_ms":
		return strconv.FormatInt(s.Progress.Interval.Milliseconds(), 10)
	case "progress.step":
		return strconv.Itoa(s.Progress.Step)
	case "progress.ceiling":
		return strconv.Itoa(s.Progress.Ceiling)
	case "progress.min_duration_ms":
		return strconv.FormatInt(s.Progress.MinDuration.Milliseconds(), 10)
	case "progress.hold_ms":
		return strconv.FormatInt(s.Progress.Hold.Milliseconds(), 10)
	case "upload.watch_dir":
		return s.Upload.WatchDir
	default:
		return ""
	}
}

// View renders the settings view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n")
	if v.settingsService != nil {
		b.WriteString(v.styles.Muted.Render(v.settingsService.ConfigPath()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s", v.err.Error())))
		b.WriteString("\n\n")
	} else if v.notice != "" {
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n\n")
	}

	if v.settings == nil {
		b.WriteString(v.styles.Muted.Render("Loading settings..."))
		return b.String()
	}

	for i, key := range v.keys {
		indicator := "  "
		if i == v.selected {
			indicator = "> "
		}

		value := v.valueFor(key)
		if value == "" {
			value = "(not set)"
		}
		line := fmt.Sprintf("%s%-26s %s", indicator, key, value)

		if i == v.selected {
			b.WriteString(v.styles.Selected.Render(line))
		} else {
			b.WriteString(v.styles.Normal.Render(line))
		}
		b.WriteString("\n")

		if i == v.selected && v.editing {
			b.WriteString("    ")
			b.WriteString(v.styles.InputField.Render(v.input.View()))
			b.WriteString("\n")
		}
	}

	if v.checking {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render("Checking server..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())

	return b.String()
}

func (v *View) renderHelp() string {
	if v.editing {
		return v.styles.Help.Render("[enter] save  [esc] cancel")
	}
	return v.styles.Help.Render("[j/k] navigate  [enter] edit  [u] use default  [c] check server  [esc] back")
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	inputWidth := width - 12
	if inputWidth < 20 {
		inputWidth = 20
	}
	v.input.Width = inputWidth
}

// Reset resets the view to initial state.
func (v *View) Reset() {
	v.selected = 0
	v.err = nil
	v.notice = ""
	v.checking = false
	v.stopEditing()
}

// SelectedKey returns the config key under the cursor.
func (v *View) SelectedKey() string {
	if v.selected < 0 || v.selected >= len(v.keys) {
		return ""
	}
	return v.keys[v.selected]
}

// Editing returns true while a value is being edited.
func (v *View) Editing() bool {
	return v.editing
}

// InputValue returns the edit field content.
func (v *View) InputValue() string {
	return v.input.Value()
}

// Settings returns the loaded settings.
func (v *View) Settings() *domain.AppSettings {
	return v.settings
}

// Notice returns the last success message.
func (v *View) Notice() string {
	return v.notice
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
