package alarm

import (
	"sort"
	"sync"
	"time"
)

// Alarm is a named timer. A zero Period means the alarm fires once.
type Alarm struct {
	ID     uint64
	Name   string
	FireAt time.Time
	Period time.Duration
}

// Periodic reports whether the alarm re-arms itself after firing.
func (alarm Alarm) Periodic() bool {
	return alarm.Period > 0
}

type entry struct {
	alarm Alarm
	timer *time.Timer
	gen   uint64
}

// Manager keeps at most one live alarm per name.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
	handler func(Alarm)
	nextID  uint64
	gen     uint64
	now     func() time.Time
}

// NewManager creates an alarm manager that dispatches fired alarms to handler.
func NewManager(handler func(Alarm)) *Manager {
	return &Manager{
		entries: make(map[string]*entry),
		handler: handler,
		now:     time.Now,
	}
}

// SetHandler replaces the fire handler.
func (manager *Manager) SetHandler(handler func(Alarm)) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	manager.handler = handler
}

// Create arms an alarm, replacing any live alarm with the same name.
func (manager *Manager) Create(name string, when time.Time, period time.Duration) Alarm {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	manager.clearLocked(name)
	manager.nextID++
	alarm := Alarm{
		ID:     manager.nextID,
		Name:   name,
		FireAt: when,
		Period: period,
	}
	manager.armLocked(&entry{alarm: alarm})
	return alarm
}

// Clear removes the named alarm. It reports whether one was live.
func (manager *Manager) Clear(name string) bool {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	return manager.clearLocked(name)
}

// ClearAll removes every alarm.
func (manager *Manager) ClearAll() {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	for name := range manager.entries {
		manager.clearLocked(name)
	}
}

// Get returns the live alarm with the given name.
func (manager *Manager) Get(name string) (Alarm, bool) {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	current, ok := manager.entries[name]
	if !ok {
		return Alarm{}, false
	}
	return current.alarm, true
}

// All returns the live alarms ordered by fire time.
func (manager *Manager) All() []Alarm {
	manager.mu.Lock()
	alarms := make([]Alarm, 0, len(manager.entries))
	for _, current := range manager.entries {
		alarms = append(alarms, current.alarm)
	}
	manager.mu.Unlock()

	sort.Slice(alarms, func(i, j int) bool {
		if alarms[i].FireAt.Equal(alarms[j].FireAt) {
			return alarms[i].Name < alarms[j].Name
		}
		return alarms[i].FireAt.Before(alarms[j].FireAt)
	})
	return alarms
}

func (manager *Manager) armLocked(current *entry) {
	manager.gen++
	gen := manager.gen
	current.gen = gen
	delay := current.alarm.FireAt.Sub(manager.now())
	if delay < 0 {
		delay = 0
	}
	name := current.alarm.Name
	current.timer = time.AfterFunc(delay, func() {
		manager.fire(name, gen)
	})
	manager.entries[name] = current
}

func (manager *Manager) clearLocked(name string) bool {
	current, ok := manager.entries[name]
	if !ok {
		return false
	}
	current.timer.Stop()
	delete(manager.entries, name)
	return true
}

func (manager *Manager) fire(name string, gen uint64) {
	manager.mu.Lock()
	current, ok := manager.entries[name]
	if !ok || current.gen != gen {
		// Cleared or replaced after the timer was already running.
		manager.mu.Unlock()
		return
	}
	fired := current.alarm
	if fired.Periodic() {
		next := fired.FireAt.Add(fired.Period)
		// Skip periods missed while the machine was asleep.
		for now := manager.now(); !next.After(now); {
			next = next.Add(fired.Period)
		}
		current.alarm.FireAt = next
		manager.armLocked(current)
	} else {
		delete(manager.entries, name)
	}
	handler := manager.handler
	manager.mu.Unlock()

	if handler != nil {
		handler(fired)
	}
}
