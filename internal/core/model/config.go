package model

import (
	"strings"
	"time"
)

const (
	// ShortIntervalMinutes is the fixed 20-20-20 cadence. It is not user-editable.
	ShortIntervalMinutes = 20
	// ShortInterval is ShortIntervalMinutes as a duration.
	ShortInterval = ShortIntervalMinutes * time.Minute
	// ShortBreakDuration is the fixed length of a short eye-rest break.
	ShortBreakDuration = 20 * time.Second

	// StageCount is the number of icon stages, 0 (just reset) through 4 (break imminent).
	StageCount = 5
	// StageStep subdivides the cadence window into the four stage alarms.
	StageStep = ShortInterval / (StageCount - 1)

	DefaultLongBreakEveryMinutes    = 60
	DefaultLongBreakDurationMinutes = 10
	DefaultSnoozeMinutes            = 5
	DefaultLanguage                 = "auto"

	MinLongBreakEveryMinutes = ShortIntervalMinutes
)

// Tone selects the voice and wording of break reminders.
type Tone string

const (
	ToneMindful      Tone = "mindful"
	ToneGoofy        Tone = "goofy"
	ToneMotivating   Tone = "motivating"
	ToneFriendly     Tone = "friendly"
	ToneProfessional Tone = "professional"
)

// Tones lists every supported tone in display order.
func Tones() []Tone {
	return []Tone{ToneMindful, ToneGoofy, ToneMotivating, ToneFriendly, ToneProfessional}
}

// ParseTone maps a stored or user-entered value to a Tone, defaulting to mindful.
func ParseTone(value string) Tone {
	candidate := Tone(strings.ToLower(strings.TrimSpace(value)))
	for _, tone := range Tones() {
		if tone == candidate {
			return tone
		}
	}
	return ToneMindful
}

// BreakKind distinguishes short eye-rest prompts from long breaks.
type BreakKind string

const (
	BreakShort BreakKind = "short"
	BreakLong  BreakKind = "long"
)

// Settings is the persisted user configuration read by the scheduler on every tick.
type Settings struct {
	LongBreakEnabled         bool
	LongBreakEveryMinutes    int
	LongBreakDurationMinutes int
	SnoozeMinutes            int
	Paused                   bool
	Exited                   bool
	Tone                     Tone
	VoiceEnabled             bool
	Language                 string
	Autostart                bool
}

// DefaultSettings returns the settings created on first install.
func DefaultSettings() Settings {
	return Settings{
		LongBreakEnabled:         true,
		LongBreakEveryMinutes:    DefaultLongBreakEveryMinutes,
		LongBreakDurationMinutes: DefaultLongBreakDurationMinutes,
		SnoozeMinutes:            DefaultSnoozeMinutes,
		Tone:                     ToneMindful,
		Language:                 DefaultLanguage,
	}
}

// Validate replaces out-of-range values so the cadence can always be armed.
func (settings Settings) Validate() Settings {
	defaults := DefaultSettings()
	if settings.LongBreakEveryMinutes < MinLongBreakEveryMinutes {
		settings.LongBreakEveryMinutes = defaults.LongBreakEveryMinutes
	}
	if settings.LongBreakDurationMinutes < 1 {
		settings.LongBreakDurationMinutes = defaults.LongBreakDurationMinutes
	}
	if settings.SnoozeMinutes < 1 {
		settings.SnoozeMinutes = defaults.SnoozeMinutes
	}
	settings.Tone = ParseTone(string(settings.Tone))
	if strings.TrimSpace(settings.Language) == "" {
		settings.Language = defaults.Language
	}
	return settings
}

// CadenceEqual reports whether both settings produce the same schedule.
func (settings Settings) CadenceEqual(other Settings) bool {
	return settings.LongBreakEnabled == other.LongBreakEnabled &&
		settings.LongBreakEveryMinutes == other.LongBreakEveryMinutes &&
		settings.LongBreakDurationMinutes == other.LongBreakDurationMinutes
}

// LongBreakDuration returns the configured long break length.
func (settings Settings) LongBreakDuration() time.Duration {
	return time.Duration(settings.LongBreakDurationMinutes) * time.Minute
}

// SnoozeDuration returns the default snooze delay.
func (settings Settings) SnoozeDuration() time.Duration {
	return time.Duration(settings.SnoozeMinutes) * time.Minute
}

// Counters is the runtime state persisted next to the settings.
type Counters struct {
	ElapsedMinutes int
	DemoStep       int
	// ResumeAt is the end of a temporary disable. Zero when none is pending.
	ResumeAt time.Time
}

// BreakRecord is one entry of the break history.
type BreakRecord struct {
	ID       string
	Kind     BreakKind
	At       time.Time
	Duration time.Duration
}

// Stats summarizes the break history.
type Stats struct {
	Total      int
	Today      int
	Short      int
	Long       int
	StreakDays int
	LastBreak  time.Time
}
