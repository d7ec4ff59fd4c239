package scheduler

import (
	"time"

	"gia/internal/core/model"
)

// State represents the current Scheduler mode.
type State string

const (
	StateIdle         State = "idle"
	StateCountingDown State = "counting_down"
	StateBreakActive  State = "break_active"
	StateSnoozed      State = "snoozed"
	StatePaused       State = "paused"
)

// EventType defines the type of Scheduler event.
type EventType string

const (
	EventShowBreak    EventType = "show_break"
	EventDismissBreak EventType = "dismiss_break"
	EventStageChange  EventType = "stage_change"
	EventStateChange  EventType = "state_change"
)

// Event represents a Scheduler update for the presentation layer.
type Event struct {
	Type     EventType
	State    State
	Kind     model.BreakKind
	Duration time.Duration
	Tone     model.Tone
	Stage    int
	At       time.Time
}

// DurationSeconds returns the break length in whole seconds.
func (event Event) DurationSeconds() int {
	return int(event.Duration / time.Second)
}
