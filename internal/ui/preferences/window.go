package preferences

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"gia/internal/core/model"
)

// Window handles the preferences UI.
type Window struct {
	window       fyne.Window
	settings     model.Settings
	onSave       func(model.Settings) error
	longEnabled  *widget.Check
	longEvery    *widget.Entry
	longDuration *widget.Entry
	snooze       *widget.Entry
	tone         *widget.Select
	voice        *widget.Check
	language     *widget.Entry
	autostart    *widget.Check
}

// New creates a preferences window. onSave persists the edited settings.
func New(app fyne.App, settings model.Settings, onSave func(model.Settings) error) *Window {
	window := app.NewWindow("Gia Settings")

	toneOptions := make([]string, 0, len(model.Tones()))
	for _, tone := range model.Tones() {
		toneOptions = append(toneOptions, string(tone))
	}

	prefs := &Window{
		window:       window,
		onSave:       onSave,
		longEnabled:  widget.NewCheck("Long breaks", nil),
		longEvery:    widget.NewEntry(),
		longDuration: widget.NewEntry(),
		snooze:       widget.NewEntry(),
		tone:         widget.NewSelect(toneOptions, nil),
		voice:        widget.NewCheck("Read reminders aloud", nil),
		language:     widget.NewEntry(),
		autostart:    widget.NewCheck("Start at login", nil),
	}
	prefs.language.SetPlaceHolder(model.DefaultLanguage)
	prefs.longEnabled.OnChanged = func(enabled bool) {
		prefs.setLongFieldsEnabled(enabled)
	}

	form := container.NewVBox(
		widget.NewLabelWithStyle("Schedule", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		widget.NewLabel(fmt.Sprintf("Short break every %d min for %d sec", model.ShortIntervalMinutes, int(model.ShortBreakDuration.Seconds()))),
		prefs.longEnabled,
		container.NewHBox(widget.NewLabel("Long break every"), prefs.longEvery, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Long break duration"), prefs.longDuration, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Snooze for"), prefs.snooze, widget.NewLabel("min")),
		widget.NewLabelWithStyle("Reminders", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Tone"), prefs.tone),
		prefs.voice,
		container.NewHBox(widget.NewLabel("Language"), prefs.language),
		prefs.autostart,
	)

	saveButton := widget.NewButton("Save", prefs.handleSave)
	cancelButton := widget.NewButton("Cancel", window.Hide)
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	window.SetContent(container.NewBorder(nil, buttons, nil, nil, form))
	window.Resize(fyne.NewSize(420, 460))
	window.SetCloseIntercept(window.Hide)

	prefs.UpdateSettings(settings)
	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings model.Settings) {
	prefs.settings = settings
	form := FormFromSettings(settings)
	prefs.longEnabled.SetChecked(form.LongEnabled)
	prefs.longEvery.SetText(form.LongEvery)
	prefs.longDuration.SetText(form.LongDuration)
	prefs.snooze.SetText(form.Snooze)
	prefs.tone.SetSelected(form.Tone)
	prefs.voice.SetChecked(form.Voice)
	prefs.language.SetText(form.Language)
	prefs.autostart.SetChecked(form.Autostart)
	prefs.setLongFieldsEnabled(form.LongEnabled)
}

func (prefs *Window) setLongFieldsEnabled(enabled bool) {
	if enabled {
		prefs.longEvery.Enable()
		prefs.longDuration.Enable()
		return
	}
	prefs.longEvery.Disable()
	prefs.longDuration.Disable()
}

func (prefs *Window) handleSave() {
	form := Form{
		LongEnabled:  prefs.longEnabled.Checked,
		LongEvery:    prefs.longEvery.Text,
		LongDuration: prefs.longDuration.Text,
		Snooze:       prefs.snooze.Text,
		Tone:         prefs.tone.Selected,
		Voice:        prefs.voice.Checked,
		Language:     prefs.language.Text,
		Autostart:    prefs.autostart.Checked,
	}

	settings, err := form.Apply(prefs.settings)
	if err != nil {
		dialog.ShowError(err, prefs.window)
		return
	}
	if prefs.onSave != nil {
		if err := prefs.onSave(settings); err != nil {
			dialog.ShowError(err, prefs.window)
			return
		}
	}
	prefs.settings = settings
	prefs.window.Hide()
}
