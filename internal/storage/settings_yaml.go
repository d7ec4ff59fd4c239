package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"gia/internal/core/model"
	"gia/internal/logger"
)

const (
	// SettingsFileName is the YAML file under the config directory.
	SettingsFileName = "settings.yaml"

	settingsSchemaVersion = 1
	legacyMinLongEvery    = 40
)

type yamlSettings struct {
	SchemaVersion            int    `yaml:"schema_version"`
	LongBreakEnabled         *bool  `yaml:"long_break_enabled,omitempty"`
	LongBreakEveryMinutes    int    `yaml:"long_break_every_minutes,omitempty"`
	LongBreakDurationMinutes int    `yaml:"long_break_duration_minutes,omitempty"`
	SnoozeMinutes            int    `yaml:"snooze_minutes,omitempty"`
	Paused                   bool   `yaml:"paused"`
	Exited                   bool   `yaml:"exited"`
	Tone                     string `yaml:"tone,omitempty"`
	VoiceEnabled             bool   `yaml:"voice_enabled"`
	Language                 string `yaml:"language,omitempty"`
	Autostart                bool   `yaml:"autostart"`

	// Schema 0 keys.
	LongEvery   int   `yaml:"long_every,omitempty"`
	LongSecs    int   `yaml:"long_secs,omitempty"`
	LongEnabled *bool `yaml:"long_enabled,omitempty"`
}

// SettingsFile reads and writes user preferences as YAML.
type SettingsFile struct {
	mu   sync.Mutex
	path string
}

// NewSettingsFile returns a settings file rooted in configDir.
func NewSettingsFile(configDir string) *SettingsFile {
	return &SettingsFile{path: filepath.Join(configDir, SettingsFileName)}
}

// Path returns the settings file location.
func (file *SettingsFile) Path() string {
	return file.path
}

// LoadSettings reads user preferences from YAML.
// If the file does not exist, default settings are returned.
// Files written by older versions are migrated and rewritten once.
func (file *SettingsFile) LoadSettings() (model.Settings, error) {
	file.mu.Lock()
	defer file.mu.Unlock()

	settings := model.DefaultSettings()
	rawData, err := os.ReadFile(file.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	migrated := fileData.SchemaVersion < settingsSchemaVersion
	fileData = migrateSettings(fileData)
	applyYamlSettings(&settings, fileData)
	settings = settings.Validate()

	if migrated {
		if err := file.writeLocked(settings); err != nil {
			logger.Warn("rewrite migrated settings failed", "error", err)
		} else {
			logger.Info("settings migrated", "path", file.path, "version", settingsSchemaVersion)
		}
	}
	return settings, nil
}

// SaveSettings writes user preferences to YAML.
func (file *SettingsFile) SaveSettings(settings model.Settings) error {
	file.mu.Lock()
	defer file.mu.Unlock()
	return file.writeLocked(settings)
}

func (file *SettingsFile) writeLocked(settings model.Settings) error {
	if err := os.MkdirAll(filepath.Dir(file.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	longEnabled := settings.LongBreakEnabled
	fileData := yamlSettings{
		SchemaVersion:            settingsSchemaVersion,
		LongBreakEnabled:         &longEnabled,
		LongBreakEveryMinutes:    settings.LongBreakEveryMinutes,
		LongBreakDurationMinutes: settings.LongBreakDurationMinutes,
		SnoozeMinutes:            settings.SnoozeMinutes,
		Paused:                   settings.Paused,
		Exited:                   settings.Exited,
		Tone:                     string(settings.Tone),
		VoiceEnabled:             settings.VoiceEnabled,
		Language:                 settings.Language,
		Autostart:                settings.Autostart,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(file.path, serialized, 0o644); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

// migrateSettings upgrades schema 0 files, where long_every counted cadence
// ticks and long_secs held the long break length in seconds.
func migrateSettings(fileData yamlSettings) yamlSettings {
	if fileData.SchemaVersion >= settingsSchemaVersion {
		return fileData
	}

	if fileData.LongEvery > 0 {
		fileData.LongBreakEveryMinutes = max(legacyMinLongEvery, fileData.LongEvery*model.ShortIntervalMinutes)
	}
	if fileData.LongSecs > 0 {
		fileData.LongBreakDurationMinutes = (fileData.LongSecs + 59) / 60
	}
	if fileData.LongBreakEnabled == nil {
		enabled := fileData.LongEnabled != nil && *fileData.LongEnabled
		fileData.LongBreakEnabled = &enabled
	}

	fileData.LongEvery = 0
	fileData.LongSecs = 0
	fileData.LongEnabled = nil
	fileData.SchemaVersion = settingsSchemaVersion
	return fileData
}

func applyYamlSettings(settings *model.Settings, fileData yamlSettings) {
	if fileData.LongBreakEnabled != nil {
		settings.LongBreakEnabled = *fileData.LongBreakEnabled
	}
	if fileData.LongBreakEveryMinutes > 0 {
		settings.LongBreakEveryMinutes = fileData.LongBreakEveryMinutes
	}
	if fileData.LongBreakDurationMinutes > 0 {
		settings.LongBreakDurationMinutes = fileData.LongBreakDurationMinutes
	}
	if fileData.SnoozeMinutes > 0 {
		settings.SnoozeMinutes = fileData.SnoozeMinutes
	}
	if fileData.Tone != "" {
		settings.Tone = model.ParseTone(fileData.Tone)
	}
	if fileData.Language != "" {
		settings.Language = fileData.Language
	}

	settings.Paused = fileData.Paused
	settings.Exited = fileData.Exited
	settings.VoiceEnabled = fileData.VoiceEnabled
	settings.Autostart = fileData.Autostart
}
