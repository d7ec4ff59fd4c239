package main

import (
	"fmt"
	"time"

	"gia/internal/core/model"
	"gia/internal/core/scheduler"
	"gia/internal/logger"
	"gia/internal/messages"
	"gia/internal/ui/overlay"
)

type breakView interface {
	Show(card overlay.Card)
	Hide()
}

type trayView interface {
	SetStage(stage int)
	SetPaused(paused bool)
	SetStatus(status string)
}

type voice interface {
	Speak(text string, voice messages.Voice) error
	Stop()
}

type settingsSource interface {
	LoadSettings() (model.Settings, error)
}

type statusSource interface {
	Status() scheduler.Status
}

// presenter turns scheduler events into UI updates. It never blocks the scheduler.
type presenter struct {
	view      breakView
	tray      trayView
	voice     voice
	notify    func(title, body string)
	settings  settingsSource
	generator *messages.Generator
	status    statusSource
	now       func() time.Time
}

func (presenter *presenter) run(events <-chan scheduler.Event, refresh <-chan time.Time) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			presenter.handle(event)
		case <-refresh:
			presenter.refreshStatus()
		}
	}
}

func (presenter *presenter) handle(event scheduler.Event) {
	switch event.Type {
	case scheduler.EventShowBreak:
		presenter.showBreak(event)
	case scheduler.EventDismissBreak:
		if presenter.view != nil {
			presenter.view.Hide()
		}
		if presenter.voice != nil {
			presenter.voice.Stop()
		}
	case scheduler.EventStageChange:
		if presenter.tray != nil {
			presenter.tray.SetStage(event.Stage)
		}
	case scheduler.EventStateChange:
		if presenter.tray != nil {
			presenter.tray.SetPaused(event.State == scheduler.StatePaused)
		}
		if event.State == scheduler.StatePaused && presenter.view != nil {
			presenter.view.Hide()
		}
		presenter.refreshStatus()
	}
}

func (presenter *presenter) showBreak(event scheduler.Event) {
	settings, err := presenter.settings.LoadSettings()
	if err != nil {
		logger.Warn("load settings for break failed", "error", err)
	}
	settings = settings.Validate()

	locale := messages.ResolveLocale(settings.Language)
	text := presenter.generator.Text(event.Tone, event.Kind, locale)

	switch {
	case presenter.view != nil:
		presenter.view.Show(overlay.Card{Kind: event.Kind, Message: text, Duration: event.Duration})
		if event.Kind == model.BreakLong {
			presenter.sendNotification(breakTitle(event.Kind), text)
		}
	default:
		// Without a card a notification is the only surface.
		presenter.sendNotification(breakTitle(event.Kind), text)
	}

	if settings.VoiceEnabled && presenter.voice != nil {
		if err := presenter.voice.Speak(text, messages.VoiceProfile(event.Tone)); err != nil {
			logger.Warn("speak reminder failed", "error", err)
		}
	}
}

func (presenter *presenter) sendNotification(title, body string) {
	if presenter.notify != nil {
		presenter.notify(title, body)
	}
}

func (presenter *presenter) refreshStatus() {
	if presenter.tray == nil || presenter.status == nil {
		return
	}
	presenter.tray.SetStatus(describeStatus(presenter.status.Status(), presenter.now()))
}

func breakTitle(kind model.BreakKind) string {
	if kind == model.BreakLong {
		return "Time for a long break"
	}
	return "Time for an eye break"
}

// describeStatus renders the tray status line.
func describeStatus(status scheduler.Status, now time.Time) string {
	switch {
	case status.Paused && !status.ResumeAt.IsZero():
		return "disabled until " + status.ResumeAt.Format("15:04")
	case status.Exited:
		return "stopped"
	case status.Paused:
		return "paused"
	case status.State == scheduler.StateBreakActive:
		return "on a break"
	case status.State == scheduler.StateSnoozed && !status.NextBreak.IsZero():
		return "snoozed until " + status.NextBreak.Format("15:04")
	case !status.NextBreak.IsZero():
		return "next break in " + formatRemaining(status.NextBreak.Sub(now))
	default:
		return string(status.State)
	}
}

func formatRemaining(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	if minutes <= 1 {
		return "1 min"
	}
	return fmt.Sprintf("%d min", minutes)
}
