package scheduler

import (
	"time"

	"gia/internal/core/model"
	"gia/internal/logger"
)

const (
	demoStartDelay   = 3 * time.Second
	demoStepGap      = 30 * time.Second
	demoLongDuration = 30 * time.Second
)

// StartDemo runs the scripted short-then-long showcase outside the cadence.
// It reports false when a demo is already running.
func (scheduler *Scheduler) StartDemo() bool {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	if scheduler.demoRunning {
		logger.Info("demo already running")
		return false
	}
	scheduler.demoRunning = true
	scheduler.setDemoStepLocked(1)
	scheduler.armLocked(AlarmDemo, scheduler.now().Add(demoStartDelay), 0)
	return true
}

func (scheduler *Scheduler) runDemoStepLocked() {
	now := scheduler.now()
	switch scheduler.demoStep {
	case 1:
		scheduler.emitLocked(Event{
			Type:     EventShowBreak,
			State:    scheduler.state,
			Kind:     model.BreakShort,
			Duration: model.ShortBreakDuration,
			Tone:     model.ToneMindful,
			Stage:    scheduler.stage,
			At:       now,
		})
		scheduler.setDemoStepLocked(2)
		scheduler.armLocked(AlarmDemo, now.Add(demoStepGap), 0)
	case 2:
		scheduler.emitLocked(Event{
			Type:  EventDismissBreak,
			State: scheduler.state,
			Stage: scheduler.stage,
			At:    now,
		})
		scheduler.emitLocked(Event{
			Type:     EventShowBreak,
			State:    scheduler.state,
			Kind:     model.BreakLong,
			Duration: demoLongDuration,
			Tone:     model.ToneGoofy,
			Stage:    scheduler.stage,
			At:       now,
		})
		logger.Info("demo sequence complete")
		scheduler.cancelDemoLocked()
	default:
		logger.Warn("unknown demo step, ending demo", "step", scheduler.demoStep)
		scheduler.cancelDemoLocked()
	}
}

func (scheduler *Scheduler) cancelDemoLocked() {
	scheduler.clearLocked(AlarmDemo)
	if scheduler.demoStep != 0 {
		scheduler.setDemoStepLocked(0)
	}
	scheduler.demoRunning = false
}

func (scheduler *Scheduler) setDemoStepLocked(step int) {
	scheduler.demoStep = step
	counters := scheduler.loadCountersLocked()
	counters.DemoStep = step
	scheduler.saveCountersLocked(counters)
}
