package scheduler

import (
	"sync"

	"gia/internal/core/model"
)

// memoryStore keeps settings and counters in process when no persistent store is wired.
type memoryStore struct {
	mu       sync.Mutex
	settings model.Settings
	counters model.Counters
	history  []model.BreakRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{settings: model.DefaultSettings()}
}

func (store *memoryStore) LoadSettings() (model.Settings, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.settings, nil
}

func (store *memoryStore) SaveSettings(settings model.Settings) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.settings = settings
	return nil
}

func (store *memoryStore) LoadCounters() (model.Counters, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.counters, nil
}

func (store *memoryStore) SaveCounters(counters model.Counters) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.counters = counters
	return nil
}

func (store *memoryStore) RecordBreak(record model.BreakRecord) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.history = append(store.history, record)
	return nil
}
