package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"gia/internal/core/model"
)

func TestLoadSettingsMissingFileReturnsDefaults(t *testing.T) {
	file := NewSettingsFile(t.TempDir())

	settings, err := file.LoadSettings()

	require.NoError(t, err)
	assert.Equal(t, model.DefaultSettings(), settings)
}

func TestSaveAndLoadSettings(t *testing.T) {
	file := NewSettingsFile(t.TempDir())
	want := model.DefaultSettings()
	want.LongBreakEnabled = false
	want.LongBreakEveryMinutes = 80
	want.LongBreakDurationMinutes = 15
	want.SnoozeMinutes = 3
	want.Paused = true
	want.Tone = model.ToneGoofy
	want.VoiceEnabled = true
	want.Language = "de"
	want.Autostart = true

	require.NoError(t, file.SaveSettings(want))
	got, err := file.LoadSettings()

	require.NoError(t, err)
	assert.Equal(t, want, got)

	raw, err := os.ReadFile(file.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "schema_version: 1")
}

func TestLoadSettingsParseError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName), []byte("tone: [unclosed"), 0o644))

	settings, err := NewSettingsFile(dir).LoadSettings()

	assert.Error(t, err)
	assert.Equal(t, model.DefaultSettings(), settings)
}

func TestLoadSettingsClampsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	content := "schema_version: 1\nlong_break_every_minutes: 5\ntone: shouty\nlanguage: \"\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, SettingsFileName), []byte(content), 0o644))

	settings, err := NewSettingsFile(dir).LoadSettings()

	require.NoError(t, err)
	assert.Equal(t, model.DefaultLongBreakEveryMinutes, settings.LongBreakEveryMinutes)
	assert.Equal(t, model.ToneMindful, settings.Tone)
	assert.Equal(t, model.DefaultLanguage, settings.Language)
	assert.True(t, settings.LongBreakEnabled)
}

func TestLoadSettingsMigratesLegacyFile(t *testing.T) {
	tests := []struct {
		name         string
		content      string
		wantEnabled  bool
		wantEvery    int
		wantDuration int
	}{
		{
			name:         "tick count converts to minutes",
			content:      "long_every: 3\nlong_secs: 600\nlong_enabled: true\n",
			wantEnabled:  true,
			wantEvery:    60,
			wantDuration: 10,
		},
		{
			name:         "small tick count clamps to forty minutes",
			content:      "long_every: 1\nlong_secs: 90\nlong_enabled: true\n",
			wantEnabled:  true,
			wantEvery:    40,
			wantDuration: 2,
		},
		{
			name:         "missing enabled flag means disabled",
			content:      "long_every: 4\n",
			wantEnabled:  false,
			wantEvery:    80,
			wantDuration: model.DefaultLongBreakDurationMinutes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, SettingsFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			settings, err := NewSettingsFile(dir).LoadSettings()
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnabled, settings.LongBreakEnabled)
			assert.Equal(t, tt.wantEvery, settings.LongBreakEveryMinutes)
			assert.Equal(t, tt.wantDuration, settings.LongBreakDurationMinutes)

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			var rewritten yamlSettings
			require.NoError(t, yaml.Unmarshal(raw, &rewritten))
			assert.Equal(t, settingsSchemaVersion, rewritten.SchemaVersion)
			assert.Zero(t, rewritten.LongEvery)
			assert.Nil(t, rewritten.LongEnabled)
		})
	}
}

func TestMigrateSettingsLeavesCurrentSchema(t *testing.T) {
	enabled := true
	current := yamlSettings{SchemaVersion: 1, LongBreakEnabled: &enabled, LongBreakEveryMinutes: 20}

	assert.Equal(t, current, migrateSettings(current))
}
