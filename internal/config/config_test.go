package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-reminders/pkg/models"
)

func TestFirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxNotifyingEvents)
	assert.Equal(t, 3, cfg.MinHoursToEnable)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// The written file loads back identically.
	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.FeedURL, again.FeedURL)
	assert.Equal(t, cfg.DaysBefore, again.DaysBefore)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
feed_url: https://events.example.org/api
max_notifying_events: 5
min_hours_to_enable: 6
days_before:
  - days: 2
    at: "19:00"
  - days: 1
    at: "08:00"
hours_before_final: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://events.example.org/api", cfg.FeedURL)
	assert.Equal(t, 5, cfg.MaxNotifyingEvents)
	assert.Equal(t, 6, cfg.MinHoursToEnable)

	leads := cfg.LeadTimes()
	require.Len(t, leads, 3)
	assert.Equal(t, models.DaysBefore(2, "19:00"), leads[0])
	assert.Equal(t, models.DaysBefore(1, "08:00"), leads[1])
	assert.Equal(t, models.HoursBefore(1), leads[2])
}

func TestLoadRejectsBadConstants(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero capacity", "max_notifying_events: 0"},
		{"negative floor", "min_hours_to_enable: -1"},
		{"zero final lead", "hours_before_final: 0"},
		{"zero day lead", "days_before: [{days: 0, at: \"08:00\"}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestTokenFromEnvironment(t *testing.T) {
	t.Setenv(TokenEnv, "env-token")
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Token)
}
