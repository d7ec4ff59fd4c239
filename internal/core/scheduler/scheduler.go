package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"gia/internal/core/alarm"
	"gia/internal/core/model"
	"gia/internal/logger"
)

// Alarm names. Every arm operation replaces a live alarm of the same name.
const (
	AlarmMain   = "gia-break"
	AlarmLong   = "gia-long"
	AlarmReset  = "gia-reset"
	AlarmSnooze = "gia-snooze"
	AlarmResume = "gia-resume"
	AlarmDemo   = "gia-demo"

	stagePrefix = "gia-stage-"
)

// Alarms is the named-timer facility the Scheduler arms.
type Alarms interface {
	Create(name string, when time.Time, period time.Duration) alarm.Alarm
	Clear(name string) bool
	Get(name string) (alarm.Alarm, bool)
}

// SettingsStore persists user settings.
type SettingsStore interface {
	LoadSettings() (model.Settings, error)
	SaveSettings(settings model.Settings) error
}

// StateStore persists counters and the break history.
type StateStore interface {
	LoadCounters() (model.Counters, error)
	SaveCounters(counters model.Counters) error
	RecordBreak(record model.BreakRecord) error
}

// SoundSink plays reminder audio. Stop must silence it immediately.
type SoundSink interface {
	Stop()
}

// Deps groups the collaborators of a Scheduler.
type Deps struct {
	Alarms   Alarms
	Settings SettingsStore
	State    StateStore
	Sound    SoundSink
	Now      func() time.Time
}

// Status is a snapshot reported to the UI and the control API.
type Status struct {
	Paused         bool
	Exited         bool
	State          State
	Stage          int
	ElapsedMinutes int
	DemoRunning    bool
	NextBreak      time.Time
	NextLongBreak  time.Time
	ResumeAt       time.Time
}

// Scheduler owns the break cadence. Every handler runs to completion under mu.
type Scheduler struct {
	mu            sync.Mutex
	alarms        Alarms
	settingsStore SettingsStore
	stateStore    StateStore
	sound         SoundSink
	now           func() time.Time

	applied     model.Settings
	state       State
	stage       int
	windowStart time.Time
	armed       map[string]uint64
	demoRunning bool
	demoStep    int
	events      []chan Event
}

// New creates a Scheduler in the Idle state. Call Start to arm the cadence.
func New(deps Deps) *Scheduler {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Settings == nil || deps.State == nil {
		memory := newMemoryStore()
		if deps.Settings == nil {
			deps.Settings = memory
		}
		if deps.State == nil {
			deps.State = memory
		}
	}
	return &Scheduler{
		alarms:        deps.Alarms,
		settingsStore: deps.Settings,
		stateStore:    deps.State,
		sound:         deps.Sound,
		now:           deps.Now,
		applied:       model.DefaultSettings(),
		state:         StateIdle,
		armed:         make(map[string]uint64),
	}
}

// Subscribe registers a new observer channel.
func (scheduler *Scheduler) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	scheduler.mu.Lock()
	scheduler.events = append(scheduler.events, ch)
	scheduler.mu.Unlock()
	return ch
}

// Start runs on install and on every launch. A demo interrupted by a restart is dropped;
// a temporary disable interrupted by a restart keeps its deadline.
func (scheduler *Scheduler) Start() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	counters := scheduler.loadCountersLocked()
	if counters.DemoStep != 0 {
		counters.DemoStep = 0
		scheduler.saveCountersLocked(counters)
	}
	scheduler.rescheduleLocked()

	if counters.ResumeAt.IsZero() {
		return
	}
	switch {
	case !scheduler.applied.Paused:
		scheduler.setResumeAtLocked(time.Time{})
	case scheduler.now().Before(counters.ResumeAt):
		scheduler.armLocked(AlarmResume, counters.ResumeAt, 0)
	default:
		logger.Info("temporary disable expired while stopped", "resume_at", counters.ResumeAt)
		scheduler.resumeLocked()
	}
}

// Stop clears every alarm and closes observers.
func (scheduler *Scheduler) Stop() {
	scheduler.mu.Lock()
	scheduler.clearAllLocked()
	events := scheduler.events
	scheduler.events = nil
	scheduler.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

// Reschedule clears pending cadence alarms and arms a fresh 20-minute window.
func (scheduler *Scheduler) Reschedule() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.rescheduleLocked()
}

// OnMainTick runs one cadence tick. It is a no-op while paused.
func (scheduler *Scheduler) OnMainTick() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.onMainTickLocked()
}

// OnStageTick moves the icon to the given stage (1..4).
func (scheduler *Scheduler) OnStageTick(stage int) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.onStageTickLocked(stage)
}

// HandleAlarm dispatches a fired alarm. Alarms superseded since they were armed are ignored.
func (scheduler *Scheduler) HandleAlarm(fired alarm.Alarm) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	id, ok := scheduler.armed[fired.Name]
	if !ok || id != fired.ID {
		logger.Debug("ignoring stale alarm", "name", fired.Name, "id", fired.ID)
		return
	}
	if !fired.Periodic() {
		delete(scheduler.armed, fired.Name)
	}

	switch {
	case fired.Name == AlarmMain:
		scheduler.onMainTickLocked()
	case strings.HasPrefix(fired.Name, stagePrefix):
		stage, err := strconv.Atoi(strings.TrimPrefix(fired.Name, stagePrefix))
		if err != nil {
			logger.Warn("malformed stage alarm", "name", fired.Name)
			return
		}
		scheduler.onStageTickLocked(stage)
	case fired.Name == AlarmLong:
		// The main tick that coincides with this deadline makes the decision.
		logger.Debug("long break deadline reached")
	case fired.Name == AlarmReset:
		scheduler.onResetLocked()
	case fired.Name == AlarmSnooze:
		scheduler.onSnoozeLocked()
	case fired.Name == AlarmResume:
		scheduler.resumeLocked()
	case fired.Name == AlarmDemo:
		scheduler.runDemoStepLocked()
	default:
		logger.Warn("unknown alarm", "name", fired.Name)
	}
}

// Pause stops the cadence until Resume.
func (scheduler *Scheduler) Pause() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.pauseLocked(false)
}

// Exit pauses and marks the session as exited.
func (scheduler *Scheduler) Exit() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.pauseLocked(true)
}

// Resume clears the pause and re-arms the cadence.
func (scheduler *Scheduler) Resume() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.resumeLocked()
}

// Snooze delays the next cadence tick. Non-positive minutes use the configured default.
// It reports false when reminders are paused and nothing was snoozed.
func (scheduler *Scheduler) Snooze(minutes int) bool {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	settings := scheduler.loadSettingsLocked()
	if settings.Paused {
		logger.Info("snooze ignored while paused")
		return false
	}
	delay := settings.SnoozeDuration()
	if minutes > 0 {
		delay = time.Duration(minutes) * time.Minute
	}

	scheduler.clearLocked(AlarmMain)
	scheduler.clearStagesLocked()
	scheduler.armLocked(AlarmSnooze, scheduler.now().Add(delay), 0)
	if scheduler.state != StateBreakActive {
		scheduler.setStateLocked(StateSnoozed)
	}
	logger.Info("snoozed", "delay", delay)
	return true
}

// ImmediateBreak shows a short break now without touching the cadence or counters.
func (scheduler *Scheduler) ImmediateBreak() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	settings := scheduler.loadSettingsLocked()
	scheduler.startBreakLocked(model.BreakShort, model.ShortBreakDuration, settings.Tone, scheduler.now())
}

// DisableTemporarily pauses for the given number of hours, then resumes.
func (scheduler *Scheduler) DisableTemporarily(hours int) error {
	if hours < 1 {
		return fmt.Errorf("disable temporarily: hours must be positive, got %d", hours)
	}

	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	scheduler.pauseLocked(false)
	resumeAt := scheduler.now().Add(time.Duration(hours) * time.Hour)
	scheduler.armLocked(AlarmResume, resumeAt, 0)
	scheduler.setResumeAtLocked(resumeAt)
	logger.Info("breaks disabled", "until", resumeAt)
	return nil
}

// SettingsChanged applies settings edited outside the Scheduler.
func (scheduler *Scheduler) SettingsChanged() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	previous := scheduler.applied
	next := scheduler.loadSettingsLocked()
	switch {
	case next.Paused && !previous.Paused:
		scheduler.pauseLocked(next.Exited)
	case !next.Paused && previous.Paused:
		scheduler.resumeLocked()
	case !next.CadenceEqual(previous):
		scheduler.rescheduleLocked()
	default:
		scheduler.applied = next
	}
}

// Status reports the current schedule.
func (scheduler *Scheduler) Status() Status {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	counters := scheduler.loadCountersLocked()
	status := Status{
		Paused:         scheduler.applied.Paused,
		Exited:         scheduler.applied.Exited,
		State:          scheduler.state,
		Stage:          scheduler.stage,
		ElapsedMinutes: counters.ElapsedMinutes,
		DemoRunning:    scheduler.demoRunning,
	}
	if next, ok := scheduler.alarms.Get(AlarmSnooze); ok {
		status.NextBreak = next.FireAt
	} else if next, ok := scheduler.alarms.Get(AlarmMain); ok {
		status.NextBreak = next.FireAt
	}
	if long, ok := scheduler.alarms.Get(AlarmLong); ok {
		status.NextLongBreak = long.FireAt
	}
	if resume, ok := scheduler.alarms.Get(AlarmResume); ok {
		status.ResumeAt = resume.FireAt
	}
	return status
}

// Decide computes the outcome of one cadence tick given the elapsed counter.
// The returned counter stays in [0, LongBreakEveryMinutes).
func Decide(settings model.Settings, elapsed int) (model.BreakKind, time.Duration, int) {
	every := settings.LongBreakEveryMinutes
	if every < model.MinLongBreakEveryMinutes {
		every = model.DefaultLongBreakEveryMinutes
	}
	if elapsed < 0 {
		elapsed = 0
	}
	next := elapsed + model.ShortIntervalMinutes
	if settings.LongBreakEnabled && next >= every {
		return model.BreakLong, settings.LongBreakDuration(), 0
	}
	return model.BreakShort, model.ShortBreakDuration, next % every
}

func (scheduler *Scheduler) rescheduleLocked() {
	settings := scheduler.loadSettingsLocked()
	scheduler.applied = settings

	scheduler.clearCadenceLocked()
	scheduler.setStageLocked(0)
	if settings.Paused {
		scheduler.setStateLocked(StatePaused)
		return
	}

	now := scheduler.now()
	scheduler.windowStart = now
	scheduler.armLocked(AlarmMain, now.Add(model.ShortInterval), model.ShortInterval)
	scheduler.armStagesLocked(now)
	scheduler.armLongLocked(settings, now)
	scheduler.setStateLocked(StateCountingDown)
}

func (scheduler *Scheduler) onMainTickLocked() {
	settings := scheduler.loadSettingsLocked()
	if settings.Paused {
		return
	}
	now := scheduler.now()
	scheduler.windowStart = now
	scheduler.cadenceTickLocked(settings, now)
}

func (scheduler *Scheduler) cadenceTickLocked(settings model.Settings, now time.Time) {
	counters := scheduler.loadCountersLocked()
	kind, duration, elapsed := Decide(settings, counters.ElapsedMinutes)
	counters.ElapsedMinutes = elapsed
	scheduler.saveCountersLocked(counters)

	scheduler.startBreakLocked(kind, duration, settings.Tone, now)
	scheduler.armLongLocked(settings, now)
}

func (scheduler *Scheduler) onStageTickLocked(stage int) {
	if stage < 1 || stage >= model.StageCount {
		logger.Warn("stage out of range", "stage", stage)
		return
	}
	scheduler.setStageLocked(stage)
}

// onResetLocked puts the icon back on the stage the current window has reached.
func (scheduler *Scheduler) onResetLocked() {
	settings := scheduler.loadSettingsLocked()
	switch {
	case settings.Paused:
		scheduler.setStageLocked(0)
		scheduler.setStateLocked(StatePaused)
	case scheduler.isArmedLocked(AlarmSnooze):
		scheduler.setStageLocked(0)
		scheduler.setStateLocked(StateSnoozed)
	default:
		scheduler.setStageLocked(stageAt(scheduler.now().Sub(scheduler.windowStart)))
		scheduler.armStagesLocked(scheduler.windowStart)
		scheduler.setStateLocked(StateCountingDown)
	}
}

// onSnoozeLocked re-arms the cadence before the tick so the break's reset alarm survives.
func (scheduler *Scheduler) onSnoozeLocked() {
	settings := scheduler.loadSettingsLocked()
	if settings.Paused {
		return
	}
	scheduler.rescheduleLocked()
	scheduler.cadenceTickLocked(settings, scheduler.now())
}

func (scheduler *Scheduler) startBreakLocked(kind model.BreakKind, duration time.Duration, tone model.Tone, now time.Time) {
	scheduler.setStageLocked(model.StageCount - 1)
	scheduler.setStateLocked(StateBreakActive)
	scheduler.emitLocked(Event{
		Type:     EventShowBreak,
		State:    StateBreakActive,
		Kind:     kind,
		Duration: duration,
		Tone:     tone,
		Stage:    scheduler.stage,
		At:       now,
	})
	scheduler.armLocked(AlarmReset, now.Add(duration), 0)

	record := model.BreakRecord{Kind: kind, At: now, Duration: duration}
	if err := scheduler.stateStore.RecordBreak(record); err != nil {
		logger.Warn("record break failed", "error", err)
	}
}

func (scheduler *Scheduler) pauseLocked(exit bool) {
	settings := scheduler.loadSettingsLocked()
	settings.Paused = true
	if exit {
		settings.Exited = true
	}
	scheduler.saveSettingsLocked(settings)
	scheduler.applied = settings

	scheduler.clearAllLocked()
	scheduler.setResumeAtLocked(time.Time{})
	scheduler.cancelDemoLocked()
	if scheduler.sound != nil {
		scheduler.sound.Stop()
	}
	scheduler.setStageLocked(0)
	scheduler.setStateLocked(StatePaused)
}

func (scheduler *Scheduler) resumeLocked() {
	settings := scheduler.loadSettingsLocked()
	settings.Paused = false
	settings.Exited = false
	scheduler.saveSettingsLocked(settings)
	scheduler.applied = settings

	scheduler.clearLocked(AlarmResume)
	scheduler.setResumeAtLocked(time.Time{})
	scheduler.rescheduleLocked()
}

func (scheduler *Scheduler) armStagesLocked(windowStart time.Time) {
	now := scheduler.now()
	for stage := 1; stage < model.StageCount; stage++ {
		when := windowStart.Add(time.Duration(stage) * model.StageStep)
		if !when.After(now) {
			continue
		}
		scheduler.armLocked(stageAlarmName(stage), when, 0)
	}
}

// setResumeAtLocked persists the temporary disable deadline so it survives a restart.
func (scheduler *Scheduler) setResumeAtLocked(resumeAt time.Time) {
	counters := scheduler.loadCountersLocked()
	if counters.ResumeAt.Equal(resumeAt) {
		return
	}
	counters.ResumeAt = resumeAt
	scheduler.saveCountersLocked(counters)
}

func (scheduler *Scheduler) armLongLocked(settings model.Settings, now time.Time) {
	if !settings.LongBreakEnabled {
		scheduler.clearLocked(AlarmLong)
		return
	}
	counters := scheduler.loadCountersLocked()
	ticks := 1
	for elapsed := counters.ElapsedMinutes + model.ShortIntervalMinutes; elapsed < settings.LongBreakEveryMinutes; elapsed += model.ShortIntervalMinutes {
		ticks++
	}
	scheduler.armLocked(AlarmLong, now.Add(time.Duration(ticks)*model.ShortInterval), 0)
}

func (scheduler *Scheduler) armLocked(name string, when time.Time, period time.Duration) {
	armed := scheduler.alarms.Create(name, when, period)
	scheduler.armed[name] = armed.ID
}

func (scheduler *Scheduler) clearLocked(name string) {
	scheduler.alarms.Clear(name)
	delete(scheduler.armed, name)
}

func (scheduler *Scheduler) isArmedLocked(name string) bool {
	_, ok := scheduler.armed[name]
	return ok
}

func (scheduler *Scheduler) clearStagesLocked() {
	for stage := 1; stage < model.StageCount; stage++ {
		scheduler.clearLocked(stageAlarmName(stage))
	}
}

// clearCadenceLocked leaves the resume and demo alarms armed.
func (scheduler *Scheduler) clearCadenceLocked() {
	for _, name := range []string{AlarmMain, AlarmLong, AlarmReset, AlarmSnooze} {
		scheduler.clearLocked(name)
	}
	scheduler.clearStagesLocked()
}

func (scheduler *Scheduler) clearAllLocked() {
	scheduler.clearCadenceLocked()
	scheduler.clearLocked(AlarmResume)
	scheduler.clearLocked(AlarmDemo)
}

func (scheduler *Scheduler) setStageLocked(stage int) {
	if scheduler.stage == stage {
		return
	}
	scheduler.stage = stage
	scheduler.emitLocked(Event{
		Type:  EventStageChange,
		State: scheduler.state,
		Stage: stage,
		At:    scheduler.now(),
	})
}

func (scheduler *Scheduler) setStateLocked(state State) {
	if scheduler.state == state {
		return
	}
	scheduler.state = state
	scheduler.emitLocked(Event{
		Type:  EventStateChange,
		State: state,
		Stage: scheduler.stage,
		At:    scheduler.now(),
	})
}

// loadSettingsLocked falls back to defaults on read failure, keeping the pause flags already applied.
func (scheduler *Scheduler) loadSettingsLocked() model.Settings {
	settings, err := scheduler.settingsStore.LoadSettings()
	if err != nil {
		logger.Warn("load settings failed, using defaults", "error", err)
		settings = model.DefaultSettings()
		settings.Paused = scheduler.applied.Paused
		settings.Exited = scheduler.applied.Exited
	}
	return settings.Validate()
}

func (scheduler *Scheduler) saveSettingsLocked(settings model.Settings) {
	if err := scheduler.settingsStore.SaveSettings(settings); err != nil {
		logger.Warn("save settings failed", "error", err)
	}
}

func (scheduler *Scheduler) loadCountersLocked() model.Counters {
	counters, err := scheduler.stateStore.LoadCounters()
	if err != nil {
		logger.Warn("load counters failed, starting from zero", "error", err)
		return model.Counters{DemoStep: scheduler.demoStep}
	}
	return counters
}

func (scheduler *Scheduler) saveCountersLocked(counters model.Counters) {
	if err := scheduler.stateStore.SaveCounters(counters); err != nil {
		logger.Warn("save counters failed", "error", err)
	}
}

func (scheduler *Scheduler) emitLocked(event Event) {
	events := append([]chan Event(nil), scheduler.events...)
	for _, ch := range events {
		select {
		case ch <- event:
		default:
			logger.Debug("event dropped", "type", event.Type)
		}
	}
}

// stageAt maps time into the window to a countdown stage. The last stage is reserved for breaks.
func stageAt(sinceWindowStart time.Duration) int {
	if sinceWindowStart <= 0 {
		return 0
	}
	return min(model.StageCount-2, int(sinceWindowStart/model.StageStep))
}

func stageAlarmName(stage int) string {
	return stagePrefix + strconv.Itoa(stage)
}
