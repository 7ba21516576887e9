package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTUICmd_Exists(t *testing.T) {
	// Verify the tui command is registered
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Use == "tui" {
			found = true
			break
		}
	}
	assert.True(t, found, "tui command should be registered")
}

func TestTUICmd_ShortDescription(t *testing.T) {
	assert.Equal(t, "Launch the interactive terminal UI", tuiCmd.Short)
}

func TestTUICmd_WatchFlag(t *testing.T) {
	flag := tuiCmd.Flags().Lookup("watch")
	require.NotNil(t, flag)
	assert.Equal(t, "w", flag.Shorthand)
	assert.Equal(t, "", flag.DefValue)
}

func TestTUICmd_HelpOutput(t *testing.T) {
	cleanup := setupTestServices(&MockPipelineService{}, nil)
	defer cleanup()

	out, _, err := execute("tui", "--help")

	require.NoError(t, err)
	assert.Contains(t, out, "interactive terminal user interface")
	assert.Contains(t, out, "Controls:")
	assert.Contains(t, out, "--watch")
}

func TestTUICmd_RequiresPipeline(t *testing.T) {
	cleanup := setupTestServices(nil, nil)
	defer cleanup()

	_, _, err := execute("tui")

	assert.EqualError(t, err, "pipeline service not configured")
}

func TestResolveWatchDir(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		settings := &MockSettingsService{}
		cleanup := setupTestServices(nil, settings)
		defer cleanup()
		settings.settings.Upload.WatchDir = "/srv/drop"
		watchDir = "/tmp/inbox"

		assert.Equal(t, "/tmp/inbox", resolveWatchDir())
	})

	t.Run("falls back to settings", func(t *testing.T) {
		settings := &MockSettingsService{}
		cleanup := setupTestServices(nil, settings)
		defer cleanup()
		settings.settings.Upload.WatchDir = "/srv/drop"

		assert.Equal(t, "/srv/drop", resolveWatchDir())
	})

	t.Run("no settings service", func(t *testing.T) {
		cleanup := setupTestServices(nil, nil)
		defer cleanup()

		assert.Empty(t, resolveWatchDir())
	})
}
