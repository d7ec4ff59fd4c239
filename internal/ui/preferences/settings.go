package preferences

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gia/internal/core/model"
)

// Form holds the editable values as entered.
type Form struct {
	LongEnabled  bool
	LongEvery    string
	LongDuration string
	Snooze       string
	Tone         string
	Voice        bool
	Language     string
	Autostart    bool
}

// FormFromSettings fills a form from stored settings.
func FormFromSettings(settings model.Settings) Form {
	return Form{
		LongEnabled:  settings.LongBreakEnabled,
		LongEvery:    strconv.Itoa(settings.LongBreakEveryMinutes),
		LongDuration: strconv.Itoa(settings.LongBreakDurationMinutes),
		Snooze:       strconv.Itoa(settings.SnoozeMinutes),
		Tone:         string(settings.Tone),
		Voice:        settings.VoiceEnabled,
		Language:     settings.Language,
		Autostart:    settings.Autostart,
	}
}

// Apply validates the form and merges it into base. Pause flags are kept from base.
func (form Form) Apply(base model.Settings) (model.Settings, error) {
	var errs []error
	settings := base

	settings.LongBreakEnabled = form.LongEnabled
	if every, err := parseMinutes("long break every", form.LongEvery, model.MinLongBreakEveryMinutes); err != nil {
		errs = append(errs, err)
	} else {
		settings.LongBreakEveryMinutes = every
	}
	if duration, err := parseMinutes("long break duration", form.LongDuration, 1); err != nil {
		errs = append(errs, err)
	} else {
		settings.LongBreakDurationMinutes = duration
	}
	if snooze, err := parseMinutes("snooze", form.Snooze, 1); err != nil {
		errs = append(errs, err)
	} else {
		settings.SnoozeMinutes = snooze
	}

	settings.Tone = model.ParseTone(form.Tone)
	settings.VoiceEnabled = form.Voice
	settings.Language = strings.TrimSpace(form.Language)
	if settings.Language == "" {
		settings.Language = model.DefaultLanguage
	}
	settings.Autostart = form.Autostart

	if len(errs) > 0 {
		return base, errors.Join(errs...)
	}
	return settings, nil
}

func parseMinutes(field, value string, minimum int) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", field, value)
	}
	if parsed < minimum {
		return 0, fmt.Errorf("%s: must be at least %d minutes", field, minimum)
	}
	return parsed, nil
}
