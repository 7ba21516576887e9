package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbprep/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbprep/internal/core/domain"
)

// MockSettingsService is a mock implementation of driving.SettingsService.
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AppSettings), args.Error(1)
}

func (m *MockSettingsService) Save(settings *domain.AppSettings) error {
	args := m.Called(settings)
	return args.Error(0)
}

func (m *MockSettingsService) Set(key, value string) error {
	args := m.Called(key, value)
	return args.Error(0)
}

func (m *MockSettingsService) Unset(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockSettingsService) Keys() []string {
	return []string{
		"server.base_url",
		"server.timeout_seconds",
		"progress.interval_ms",
		"progress.step",
		"progress.ceiling",
		"progress.min_duration_ms",
		"progress.hold_ms",
		"upload.watch_dir",
	}
}

func (m *MockSettingsService) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *MockSettingsService) CheckServer(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSettingsService) ConfigPath() string {
	return "/home/test/.kbprep/config.toml"
}

// Helper function to create test settings.
func testSettings() *domain.AppSettings {
	s := domain.DefaultAppSettings()
	s.Server.BaseURL = "http://kb:8000"
	s.Upload.WatchDir = "/srv/drop"
	return &s
}

func loadedView(t *testing.T, svc *MockSettingsService) *View {
	t.Helper()
	view := NewView(nil, svc)
	view.SetDimensions(120, 40)
	view.Update(messages.SettingsLoaded{Settings: testSettings()})
	return view
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewView(t *testing.T) {
	view := NewView(styles.DefaultStyles(), &MockSettingsService{})

	require.NotNil(t, view)
	assert.Len(t, view.keys, 8)
	assert.Equal(t, "server.base_url", view.SelectedKey())
}

func TestNewView_NilParams(t *testing.T) {
	view := NewView(nil, nil)

	require.NotNil(t, view)
	assert.NotNil(t, view.styles)
	assert.Empty(t, view.SelectedKey())
}

func TestView_Init_LoadsSettings(t *testing.T) {
	svc := &MockSettingsService{}
	svc.On("Get").Return(testSettings(), nil)
	view := NewView(nil, svc)

	cmd := view.Init()
	require.NotNil(t, cmd)

	loaded, ok := cmd().(messages.SettingsLoaded)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	assert.Equal(t, "http://kb:8000", loaded.Settings.Server.BaseURL)
	svc.AssertExpectations(t)
}

func TestView_Init_NilService(t *testing.T) {
	view := NewView(nil, nil)

	loaded, ok := view.Init()().(messages.SettingsLoaded)

	require.True(t, ok)
	assert.Error(t, loaded.Err)
}

func TestView_SettingsLoadedError(t *testing.T) {
	view := NewView(nil, &MockSettingsService{})

	view.Update(messages.SettingsLoaded{Err: errors.New("corrupt config")})

	assert.EqualError(t, view.Err(), "corrupt config")
	assert.Contains(t, view.View(), "corrupt config")
}

func TestView_View_ListsValues(t *testing.T) {
	view := loadedView(t, &MockSettingsService{})

	rendered := view.View()

	assert.Contains(t, rendered, "/home/test/.kbprep/config.toml")
	assert.Contains(t, rendered, "http://kb:8000")
	assert.Contains(t, rendered, "progress.ceiling")
	assert.Contains(t, rendered, "95")
	assert.Contains(t, rendered, "/srv/drop")
}

func TestView_View_Loading(t *testing.T) {
	view := NewView(nil, &MockSettingsService{})

	assert.Contains(t, view.View(), "Loading settings...")
}

func TestView_ValueFor(t *testing.T) {
	view := loadedView(t, &MockSettingsService{})

	assert.Equal(t, "120", view.valueFor("server.timeout_seconds"))
	assert.Equal(t, "200", view.valueFor("progress.interval_ms"))
	assert.Equal(t, "5", view.valueFor("progress.step"))
	assert.Equal(t, "5000", view.valueFor("progress.min_duration_ms"))
	assert.Equal(t, "1500", view.valueFor("progress.hold_ms"))
	assert.Equal(t, "", view.valueFor("nope"))
}

func TestView_Navigation(t *testing.T) {
	view := loadedView(t, &MockSettingsService{})

	view.Update(key("k"))
	assert.Equal(t, "server.base_url", view.SelectedKey())

	view.Update(key("j"))
	view.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, "progress.interval_ms", view.SelectedKey())

	for i := 0; i < 10; i++ {
		view.Update(key("j"))
	}
	assert.Equal(t, "upload.watch_dir", view.SelectedKey())
}

func TestView_EditAndSave(t *testing.T) {
	svc := &MockSettingsService{}
	svc.On("Set", "server.base_url", "http://kb:8000/v2").Return(nil)
	view := loadedView(t, svc)

	view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, view.Editing())
	assert.Equal(t, "http://kb:8000", view.InputValue())

	for _, r := range "/v2" {
		view.Update(key(string(r)))
	}
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.NotNil(t, cmd)
	assert.False(t, view.Editing())

	saved, ok := cmd().(messages.SettingsSaved)
	require.True(t, ok)
	assert.Equal(t, "server.base_url", saved.Key)
	assert.NoError(t, saved.Err)
	svc.AssertExpectations(t)
}

func TestView_EditCancel(t *testing.T) {
	svc := &MockSettingsService{}
	view := loadedView(t, svc)

	view.Update(key("e"))
	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	assert.Nil(t, cmd)
	assert.False(t, view.Editing())
	svc.AssertNotCalled(t, "Set", mock.Anything, mock.Anything)
}

func TestView_SettingsSaved(t *testing.T) {
	svc := &MockSettingsService{}
	svc.On("Get").Return(testSettings(), nil)
	view := loadedView(t, svc)

	_, cmd := view.Update(messages.SettingsSaved{Key: "progress.step"})

	require.NotNil(t, cmd, "settings reload after save")
	assert.Equal(t, "Saved progress.step", view.Notice())
	_, ok := cmd().(messages.SettingsLoaded)
	assert.True(t, ok)
}

func TestView_SettingsSaved_Error(t *testing.T) {
	view := loadedView(t, &MockSettingsService{})

	_, cmd := view.Update(messages.SettingsSaved{Key: "progress.ceiling", Err: domain.ErrInvalidInput})

	assert.Nil(t, cmd)
	assert.ErrorIs(t, view.Err(), domain.ErrInvalidInput)
}

func TestView_Unset(t *testing.T) {
	svc := &MockSettingsService{}
	svc.On("Unset", "server.timeout_seconds").Return(nil)
	view := loadedView(t, svc)
	view.Update(key("j"))

	_, cmd := view.Update(key("u"))

	require.NotNil(t, cmd)
	saved, ok := cmd().(messages.SettingsSaved)
	require.True(t, ok)
	assert.Equal(t, "server.timeout_seconds", saved.Key)
	svc.AssertExpectations(t)
}

func TestView_CheckServer(t *testing.T) {
	svc := &MockSettingsService{}
	svc.On("CheckServer", mock.Anything).Return(nil)
	view := loadedView(t, svc)

	_, cmd := view.Update(key("c"))
	require.NotNil(t, cmd)
	assert.Contains(t, view.View(), "Checking server...")

	_, again := view.Update(key("c"))
	assert.Nil(t, again, "only one check at a time")

	view.Update(cmd())
	assert.Equal(t, "Server is reachable", view.Notice())
	svc.AssertExpectations(t)
}

func TestView_CheckServer_Failure(t *testing.T) {
	view := loadedView(t, &MockSettingsService{})
	view.checking = true

	view.Update(messages.ServerChecked{Err: errors.New("connection refused")})

	assert.EqualError(t, view.Err(), "connection refused")
	assert.Empty(t, view.Notice())
}

func TestView_EscGoesBack(t *testing.T) {
	view := loadedView(t, &MockSettingsService{})

	_, cmd := view.Update(tea.KeyMsg{Type: tea.KeyEsc})

	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewUpload}, cmd())
}

func TestView_Reset(t *testing.T) {
	view := loadedView(t, &MockSettingsService{})
	view.Update(key("j"))
	view.Update(key("e"))

	view.Reset()

	assert.Equal(t, "server.base_url", view.SelectedKey())
	assert.False(t, view.Editing())
	assert.NoError(t, view.Err())
}

func TestView_TimeoutDisplayedInSeconds(t *testing.T) {
	view := NewView(nil, &MockSettingsService{})
	s := testSettings()
	s.Server.Timeout = 90 * time.Second
	view.Update(messages.SettingsLoaded{Settings: s})

	assert.Equal(t, "90", view.valueFor("server.timeout_seconds"))
}
