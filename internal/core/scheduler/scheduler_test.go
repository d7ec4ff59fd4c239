package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gia/internal/core/alarm"
	"gia/internal/core/model"
)

type fakeAlarms struct {
	nextID uint64
	live   map[string]alarm.Alarm
}

func newFakeAlarms() *fakeAlarms {
	return &fakeAlarms{live: make(map[string]alarm.Alarm)}
}

func (fake *fakeAlarms) Create(name string, when time.Time, period time.Duration) alarm.Alarm {
	fake.nextID++
	created := alarm.Alarm{ID: fake.nextID, Name: name, FireAt: when, Period: period}
	fake.live[name] = created
	return created
}

func (fake *fakeAlarms) Clear(name string) bool {
	_, ok := fake.live[name]
	delete(fake.live, name)
	return ok
}

func (fake *fakeAlarms) Get(name string) (alarm.Alarm, bool) {
	current, ok := fake.live[name]
	return current, ok
}

type fakeSound struct {
	stops int
}

func (sound *fakeSound) Stop() {
	sound.stops++
}

type harness struct {
	t         *testing.T
	clock     time.Time
	alarms    *fakeAlarms
	store     *memoryStore
	sound     *fakeSound
	scheduler *Scheduler
	events    <-chan Event
}

func newHarness(t *testing.T, settings model.Settings) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		clock:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		alarms: newFakeAlarms(),
		store:  newMemoryStore(),
		sound:  &fakeSound{},
	}
	h.store.settings = settings
	h.scheduler = New(Deps{
		Alarms:   h.alarms,
		Settings: h.store,
		State:    h.store,
		Sound:    h.sound,
		Now:      func() time.Time { return h.clock },
	})
	h.events = h.scheduler.Subscribe(128)
	return h
}

// restart replaces the scheduler and its timers, keeping the store, as a relaunch would.
func (h *harness) restart() {
	h.t.Helper()
	h.scheduler.Stop()
	h.alarms = newFakeAlarms()
	h.scheduler = New(Deps{
		Alarms:   h.alarms,
		Settings: h.store,
		State:    h.store,
		Sound:    h.sound,
		Now:      func() time.Time { return h.clock },
	})
	h.events = h.scheduler.Subscribe(128)
}

func longSettings(every, duration int) model.Settings {
	settings := model.DefaultSettings()
	settings.LongBreakEnabled = true
	settings.LongBreakEveryMinutes = every
	settings.LongBreakDurationMinutes = duration
	return settings
}

// fire delivers the named alarm the way the alarm manager would.
func (h *harness) fire(name string) {
	h.t.Helper()
	fired, ok := h.alarms.Get(name)
	require.True(h.t, ok, "alarm %s is not armed", name)
	h.clock = fired.FireAt
	if fired.Periodic() {
		next := fired
		next.FireAt = fired.FireAt.Add(fired.Period)
		h.alarms.live[name] = next
	} else {
		delete(h.alarms.live, name)
	}
	h.scheduler.HandleAlarm(fired)
}

func (h *harness) drain() []Event {
	var drained []Event
	for {
		select {
		case event := <-h.events:
			drained = append(drained, event)
		default:
			return drained
		}
	}
}

func (h *harness) breaks() []Event {
	var shown []Event
	for _, event := range h.drain() {
		if event.Type == EventShowBreak {
			shown = append(shown, event)
		}
	}
	return shown
}

func (h *harness) elapsed() int {
	return h.store.counters.ElapsedMinutes
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name        string
		settings    model.Settings
		elapsed     int
		wantKind    model.BreakKind
		wantLength  time.Duration
		wantElapsed int
	}{
		{
			name:        "long break when threshold reached",
			settings:    longSettings(60, 10),
			elapsed:     40,
			wantKind:    model.BreakLong,
			wantLength:  10 * time.Minute,
			wantElapsed: 0,
		},
		{
			name:        "short break below threshold",
			settings:    longSettings(60, 10),
			elapsed:     0,
			wantKind:    model.BreakShort,
			wantLength:  20 * time.Second,
			wantElapsed: 20,
		},
		{
			name:        "threshold not a multiple of the cadence",
			settings:    longSettings(50, 5),
			elapsed:     40,
			wantKind:    model.BreakLong,
			wantLength:  5 * time.Minute,
			wantElapsed: 0,
		},
		{
			name: "long disabled wraps the counter",
			settings: func() model.Settings {
				settings := longSettings(60, 10)
				settings.LongBreakEnabled = false
				return settings
			}(),
			elapsed:     40,
			wantKind:    model.BreakShort,
			wantLength:  20 * time.Second,
			wantElapsed: 0,
		},
		{
			name:        "counter above a lowered threshold",
			settings:    longSettings(40, 10),
			elapsed:     80,
			wantKind:    model.BreakLong,
			wantLength:  10 * time.Minute,
			wantElapsed: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, length, elapsed := Decide(tt.settings, tt.elapsed)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantLength, length)
			assert.Equal(t, tt.wantElapsed, elapsed)
		})
	}
}

func TestElapsedStaysBelowThreshold(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		settings := model.DefaultSettings()
		settings.LongBreakEnabled = rapid.Bool().Draw(rt, "longEnabled")
		settings.LongBreakEveryMinutes = rapid.IntRange(model.MinLongBreakEveryMinutes, 240).Draw(rt, "every")
		settings.LongBreakDurationMinutes = rapid.IntRange(1, 30).Draw(rt, "duration")
		ticks := rapid.IntRange(1, 50).Draw(rt, "ticks")

		elapsed := 0
		for i := 0; i < ticks; i++ {
			var kind model.BreakKind
			kind, _, elapsed = Decide(settings, elapsed)
			if elapsed < 0 || elapsed >= settings.LongBreakEveryMinutes {
				rt.Fatalf("elapsed %d outside [0, %d)", elapsed, settings.LongBreakEveryMinutes)
			}
			if !settings.LongBreakEnabled && kind != model.BreakShort {
				rt.Fatalf("long break emitted with long breaks disabled")
			}
		}
	})
}

func TestMainTickEmitsLongBreakAtThreshold(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.store.counters.ElapsedMinutes = 40
	h.scheduler.Start()
	h.drain()

	h.fire(AlarmMain)

	shown := h.breaks()
	require.Len(t, shown, 1)
	assert.Equal(t, model.BreakLong, shown[0].Kind)
	assert.Equal(t, 600, shown[0].DurationSeconds())
	assert.Equal(t, 0, h.elapsed())

	reset, ok := h.alarms.Get(AlarmReset)
	require.True(t, ok)
	assert.Equal(t, h.clock.Add(10*time.Minute), reset.FireAt)
	assert.Len(t, h.store.history, 1)
}

func TestMainTickEmitsShortBreakBelowThreshold(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	h.drain()

	h.fire(AlarmMain)

	shown := h.breaks()
	require.Len(t, shown, 1)
	assert.Equal(t, model.BreakShort, shown[0].Kind)
	assert.Equal(t, 20, shown[0].DurationSeconds())
	assert.Equal(t, model.ToneMindful, shown[0].Tone)
	assert.Equal(t, 20, h.elapsed())
	assert.Equal(t, StateBreakActive, h.scheduler.Status().State)
	assert.Equal(t, 4, h.scheduler.Status().Stage)
}

func TestLongDisabledNeverEmitsLong(t *testing.T) {
	settings := longSettings(60, 10)
	settings.LongBreakEnabled = false
	h := newHarness(t, settings)
	h.scheduler.Start()
	h.drain()

	for i := 0; i < 9; i++ {
		h.fire(AlarmMain)
		h.fire(AlarmReset)
	}

	shown := h.breaks()
	require.Len(t, shown, 9)
	for _, event := range shown {
		assert.Equal(t, model.BreakShort, event.Kind)
	}
	_, ok := h.alarms.Get(AlarmLong)
	assert.False(t, ok)
}

func TestCadenceAlternatesShortAndLong(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	h.drain()

	var kinds []model.BreakKind
	for i := 0; i < 6; i++ {
		h.fire(AlarmMain)
		for _, event := range h.breaks() {
			kinds = append(kinds, event.Kind)
		}
	}

	assert.Equal(t, []model.BreakKind{
		model.BreakShort, model.BreakShort, model.BreakLong,
		model.BreakShort, model.BreakShort, model.BreakLong,
	}, kinds)
}

func TestPauseSuppressesStaleMainTick(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	stale, ok := h.alarms.Get(AlarmMain)
	require.True(t, ok)

	h.scheduler.Pause()
	h.drain()

	h.scheduler.HandleAlarm(stale)
	h.scheduler.OnMainTick()

	assert.Empty(t, h.breaks())
	assert.Empty(t, h.alarms.live)
	assert.Equal(t, 1, h.sound.stops)
	assert.True(t, h.scheduler.Status().Paused)
	assert.True(t, h.store.settings.Paused)
}

func TestPauseIsIdempotent(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()

	h.scheduler.Pause()
	h.scheduler.Pause()

	assert.Empty(t, h.alarms.live)
	assert.Equal(t, StatePaused, h.scheduler.Status().State)
}

func TestRescheduleIsIdempotent(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))

	h.scheduler.Reschedule()
	first := map[string]time.Time{}
	for name, armed := range h.alarms.live {
		first[name] = armed.FireAt
	}
	h.scheduler.Reschedule()

	second := map[string]time.Time{}
	for name, armed := range h.alarms.live {
		second[name] = armed.FireAt
	}
	assert.Equal(t, first, second)

	main, ok := h.alarms.Get(AlarmMain)
	require.True(t, ok)
	assert.Equal(t, model.ShortInterval, main.Period)
	long, ok := h.alarms.Get(AlarmLong)
	require.True(t, ok)
	assert.Equal(t, h.clock.Add(60*time.Minute), long.FireAt)
	assert.Equal(t, 0, h.scheduler.Status().Stage)
	assert.Equal(t, StateCountingDown, h.scheduler.Status().State)
}

func TestStaleAlarmAfterRescheduleIsIgnored(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	stale, ok := h.alarms.Get(AlarmMain)
	require.True(t, ok)

	h.scheduler.Reschedule()
	h.drain()
	h.scheduler.HandleAlarm(stale)

	assert.Empty(t, h.breaks())
	assert.Equal(t, 0, h.elapsed())
}

func TestStageProgression(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	h.drain()

	for stage := 1; stage <= 3; stage++ {
		h.fire(stageAlarmName(stage))
		assert.Equal(t, stage, h.scheduler.Status().Stage)
	}

	var stages []int
	for _, event := range h.drain() {
		if event.Type == EventStageChange {
			stages = append(stages, event.Stage)
		}
	}
	assert.Equal(t, []int{1, 2, 3}, stages)

	h.scheduler.OnStageTick(7)
	assert.Equal(t, 3, h.scheduler.Status().Stage)
}

func TestResetRestoresStageAndRearmsStages(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	h.fire(AlarmMain)
	tickAt := h.clock

	h.fire(AlarmReset)

	status := h.scheduler.Status()
	assert.Equal(t, 0, status.Stage)
	assert.Equal(t, StateCountingDown, status.State)
	for stage := 1; stage < model.StageCount; stage++ {
		armed, ok := h.alarms.Get(stageAlarmName(stage))
		require.True(t, ok)
		assert.Equal(t, tickAt.Add(time.Duration(stage)*model.StageStep), armed.FireAt)
	}
}

func TestResetAfterImmediateBreakKeepsWindowStage(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	windowStart := h.clock
	h.fire(stageAlarmName(1))
	h.fire(stageAlarmName(2))
	h.clock = windowStart.Add(12 * time.Minute)

	h.scheduler.ImmediateBreak()
	assert.Equal(t, model.StageCount-1, h.scheduler.Status().Stage)
	h.fire(AlarmReset)

	status := h.scheduler.Status()
	assert.Equal(t, 2, status.Stage)
	assert.Equal(t, StateCountingDown, status.State)
	for stage := 1; stage <= 2; stage++ {
		_, ok := h.alarms.Get(stageAlarmName(stage))
		assert.False(t, ok, "stage %d is in the past", stage)
	}
	for stage := 3; stage < model.StageCount; stage++ {
		armed, ok := h.alarms.Get(stageAlarmName(stage))
		require.True(t, ok)
		assert.Equal(t, windowStart.Add(time.Duration(stage)*model.StageStep), armed.FireAt)
	}
}

func TestStageAt(t *testing.T) {
	assert.Equal(t, 0, stageAt(-time.Minute))
	assert.Equal(t, 0, stageAt(20*time.Second))
	assert.Equal(t, 1, stageAt(model.StageStep))
	assert.Equal(t, 2, stageAt(12*time.Minute))
	assert.Equal(t, model.StageCount-2, stageAt(19*time.Minute))
	assert.Equal(t, model.StageCount-2, stageAt(time.Hour))
}

func TestSnoozeDelaysOneShortTick(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	h.drain()

	h.scheduler.Snooze(5)
	snoozedAt := h.clock

	_, ok := h.alarms.Get(AlarmMain)
	assert.False(t, ok)
	snooze, ok := h.alarms.Get(AlarmSnooze)
	require.True(t, ok)
	assert.Equal(t, snoozedAt.Add(5*time.Minute), snooze.FireAt)
	assert.Equal(t, StateSnoozed, h.scheduler.Status().State)
	assert.Equal(t, 0, h.elapsed())

	h.fire(AlarmSnooze)

	shown := h.breaks()
	require.Len(t, shown, 1)
	assert.Equal(t, model.BreakShort, shown[0].Kind)
	assert.Equal(t, 20, h.elapsed())
	assert.Equal(t, 60, h.store.settings.LongBreakEveryMinutes)

	main, ok := h.alarms.Get(AlarmMain)
	require.True(t, ok)
	assert.Equal(t, h.clock.Add(model.ShortInterval), main.FireAt)
	_, ok = h.alarms.Get(AlarmReset)
	assert.True(t, ok)
}

func TestSnoozedTickCanBeLong(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.store.counters.ElapsedMinutes = 40
	h.scheduler.Start()
	h.drain()

	require.True(t, h.scheduler.Snooze(5))
	h.fire(AlarmSnooze)

	shown := h.breaks()
	require.Len(t, shown, 1)
	assert.Equal(t, model.BreakLong, shown[0].Kind)
	assert.Equal(t, 10*time.Minute, shown[0].Duration)
	assert.Equal(t, 0, h.elapsed())
}

func TestSnoozeWhilePausedIsRejected(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	h.scheduler.Pause()

	assert.False(t, h.scheduler.Snooze(5))
	_, ok := h.alarms.Get(AlarmSnooze)
	assert.False(t, ok)
}

func TestSnoozeUsesConfiguredDefault(t *testing.T) {
	settings := longSettings(60, 10)
	settings.SnoozeMinutes = 7
	h := newHarness(t, settings)
	h.scheduler.Start()

	h.scheduler.Snooze(0)

	snooze, ok := h.alarms.Get(AlarmSnooze)
	require.True(t, ok)
	assert.Equal(t, h.clock.Add(7*time.Minute), snooze.FireAt)
}

func TestImmediateBreakLeavesCounters(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.store.counters.ElapsedMinutes = 40
	h.scheduler.Start()
	main, _ := h.alarms.Get(AlarmMain)
	h.drain()

	h.scheduler.ImmediateBreak()

	shown := h.breaks()
	require.Len(t, shown, 1)
	assert.Equal(t, model.BreakShort, shown[0].Kind)
	assert.Equal(t, 20, shown[0].DurationSeconds())
	assert.Equal(t, 40, h.elapsed())

	after, ok := h.alarms.Get(AlarmMain)
	require.True(t, ok)
	assert.Equal(t, main, after)
	_, ok = h.alarms.Get(AlarmReset)
	assert.True(t, ok)
}

func TestDisableTemporarilyResumesLater(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()

	require.NoError(t, h.scheduler.DisableTemporarily(2))
	assert.Error(t, h.scheduler.DisableTemporarily(0))

	status := h.scheduler.Status()
	assert.True(t, status.Paused)
	assert.Len(t, h.alarms.live, 1)
	assert.Equal(t, h.clock.Add(2*time.Hour), status.ResumeAt)

	h.fire(AlarmResume)

	status = h.scheduler.Status()
	assert.False(t, status.Paused)
	assert.Equal(t, StateCountingDown, status.State)
	_, ok := h.alarms.Get(AlarmMain)
	assert.True(t, ok)
}

func TestDisableSurvivesRestart(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	require.NoError(t, h.scheduler.DisableTemporarily(2))
	deadline := h.clock.Add(2 * time.Hour)
	assert.Equal(t, deadline, h.store.counters.ResumeAt)

	h.clock = h.clock.Add(time.Hour)
	h.restart()
	h.scheduler.Start()

	status := h.scheduler.Status()
	assert.True(t, status.Paused)
	assert.Equal(t, StatePaused, status.State)
	assert.Equal(t, deadline, status.ResumeAt)
	_, ok := h.alarms.Get(AlarmMain)
	assert.False(t, ok)

	h.fire(AlarmResume)
	assert.False(t, h.scheduler.Status().Paused)
	assert.True(t, h.store.counters.ResumeAt.IsZero())
}

func TestExpiredDisableResumesOnStart(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	require.NoError(t, h.scheduler.DisableTemporarily(1))

	h.clock = h.clock.Add(2 * time.Hour)
	h.restart()
	h.scheduler.Start()

	status := h.scheduler.Status()
	assert.False(t, status.Paused)
	assert.Equal(t, StateCountingDown, status.State)
	assert.True(t, status.ResumeAt.IsZero())
	assert.Equal(t, h.clock.Add(model.ShortInterval), status.NextBreak)
	assert.False(t, h.store.settings.Paused)
	assert.True(t, h.store.counters.ResumeAt.IsZero())
}

func TestManualPauseDropsDisableDeadline(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	require.NoError(t, h.scheduler.DisableTemporarily(1))

	h.scheduler.Pause()
	assert.True(t, h.store.counters.ResumeAt.IsZero())

	h.clock = h.clock.Add(2 * time.Hour)
	h.restart()
	h.scheduler.Start()
	assert.True(t, h.scheduler.Status().Paused)
	_, ok := h.alarms.Get(AlarmResume)
	assert.False(t, ok)
}

func TestExitAndResume(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()

	h.scheduler.Exit()
	status := h.scheduler.Status()
	assert.True(t, status.Paused)
	assert.True(t, status.Exited)
	assert.True(t, h.store.settings.Exited)

	h.scheduler.Resume()
	status = h.scheduler.Status()
	assert.False(t, status.Paused)
	assert.False(t, status.Exited)
	assert.False(t, h.store.settings.Paused)
	_, ok := h.alarms.Get(AlarmMain)
	assert.True(t, ok)
}

func TestStartDemoRunsOnce(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	h.drain()

	assert.True(t, h.scheduler.StartDemo())
	assert.False(t, h.scheduler.StartDemo())
	assert.True(t, h.scheduler.Status().DemoRunning)
	assert.Equal(t, 1, h.store.counters.DemoStep)

	h.fire(AlarmDemo)
	first := h.breaks()
	require.Len(t, first, 1)
	assert.Equal(t, model.BreakShort, first[0].Kind)
	assert.Equal(t, model.ToneMindful, first[0].Tone)

	h.fire(AlarmDemo)
	second := h.drain()
	require.Len(t, second, 2)
	assert.Equal(t, EventDismissBreak, second[0].Type)
	assert.Equal(t, EventShowBreak, second[1].Type)
	assert.Equal(t, model.BreakLong, second[1].Kind)
	assert.Equal(t, model.ToneGoofy, second[1].Tone)
	assert.Equal(t, 30, second[1].DurationSeconds())

	_, ok := h.alarms.Get(AlarmDemo)
	assert.False(t, ok)
	assert.False(t, h.scheduler.Status().DemoRunning)
	assert.Equal(t, 0, h.store.counters.DemoStep)
	assert.Equal(t, 0, h.elapsed())
	assert.True(t, h.scheduler.StartDemo())
}

func TestPauseCancelsDemo(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	require.True(t, h.scheduler.StartDemo())

	h.scheduler.Pause()

	_, ok := h.alarms.Get(AlarmDemo)
	assert.False(t, ok)
	assert.False(t, h.scheduler.Status().DemoRunning)
}

func TestRescheduleKeepsDemo(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	require.True(t, h.scheduler.StartDemo())

	h.scheduler.Reschedule()

	_, ok := h.alarms.Get(AlarmDemo)
	assert.True(t, ok)
}

func TestSettingsChanged(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()

	h.store.settings.LongBreakEveryMinutes = 40
	h.clock = h.clock.Add(3 * time.Minute)
	h.scheduler.SettingsChanged()

	long, ok := h.alarms.Get(AlarmLong)
	require.True(t, ok)
	assert.Equal(t, h.clock.Add(40*time.Minute), long.FireAt)

	h.store.settings.Paused = true
	h.scheduler.SettingsChanged()
	assert.True(t, h.scheduler.Status().Paused)
	assert.Empty(t, h.alarms.live)

	h.store.settings.Paused = false
	h.scheduler.SettingsChanged()
	assert.False(t, h.scheduler.Status().Paused)
	_, ok = h.alarms.Get(AlarmMain)
	assert.True(t, ok)
}

func TestToneChangeDoesNotReschedule(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	before, _ := h.alarms.Get(AlarmMain)

	h.store.settings.Tone = model.ToneGoofy
	h.clock = h.clock.Add(time.Minute)
	h.scheduler.SettingsChanged()

	after, _ := h.alarms.Get(AlarmMain)
	assert.Equal(t, before, after)
}

func TestStartClearsInterruptedDemo(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.store.counters.DemoStep = 2

	h.scheduler.Start()

	assert.Equal(t, 0, h.store.counters.DemoStep)
}

func TestStopClosesSubscribers(t *testing.T) {
	h := newHarness(t, longSettings(60, 10))
	h.scheduler.Start()
	h.drain()

	h.scheduler.Stop()

	_, open := <-h.events
	assert.False(t, open)
	assert.Empty(t, h.alarms.live)
}
