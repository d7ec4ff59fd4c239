package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gia/internal/core/model"
)

// StateFileName is the SQLite database under the config directory.
const StateFileName = "state.db"

// StateDB persists counters and the break history in SQLite.
type StateDB struct {
	path string
	db   *sql.DB
}

// OpenState opens (creating if needed) the state database and applies migrations.
func OpenState(path string) (*StateDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	// Alarm handlers and the control API write concurrently.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure state database: %w", err)
	}
	if _, err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state database: %w", err)
	}

	return &StateDB{path: path, db: db}, nil
}

// Path returns the database file location.
func (store *StateDB) Path() string {
	return store.path
}

// Close releases the database handle.
func (store *StateDB) Close() error {
	if store.db == nil {
		return nil
	}
	return store.db.Close()
}

// LoadCounters returns the persisted cadence counters.
func (store *StateDB) LoadCounters() (model.Counters, error) {
	var (
		counters   model.Counters
		resumeAtMs int64
	)
	err := store.db.QueryRow(`SELECT elapsed_minutes, demo_step, resume_at_ms FROM counters WHERE id = 1`).
		Scan(&counters.ElapsedMinutes, &counters.DemoStep, &resumeAtMs)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Counters{}, nil
	}
	if err != nil {
		return model.Counters{}, fmt.Errorf("load counters: %w", err)
	}
	if resumeAtMs > 0 {
		counters.ResumeAt = time.UnixMilli(resumeAtMs)
	}
	return counters, nil
}

// SaveCounters replaces the persisted cadence counters.
func (store *StateDB) SaveCounters(counters model.Counters) error {
	_, err := store.db.Exec(`
		INSERT INTO counters (id, elapsed_minutes, demo_step, resume_at_ms, updated_at) VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			elapsed_minutes = excluded.elapsed_minutes,
			demo_step = excluded.demo_step,
			resume_at_ms = excluded.resume_at_ms,
			updated_at = excluded.updated_at`,
		counters.ElapsedMinutes, counters.DemoStep, resumeAtMillis(counters.ResumeAt), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save counters: %w", err)
	}
	return nil
}

func resumeAtMillis(resumeAt time.Time) int64 {
	if resumeAt.IsZero() {
		return 0
	}
	return resumeAt.UnixMilli()
}

// RecordBreak appends a break to the history. A missing ID is generated.
func (store *StateDB) RecordBreak(record model.BreakRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	_, err := store.db.Exec(
		`INSERT INTO breaks (id, kind, at_ms, duration_seconds) VALUES (?, ?, ?, ?)`,
		record.ID, string(record.Kind), record.At.UnixMilli(), int64(record.Duration/time.Second))
	if err != nil {
		return fmt.Errorf("record break: %w", err)
	}
	return nil
}

// RecentBreaks returns up to limit breaks, newest first.
func (store *StateDB) RecentBreaks(limit int) ([]model.BreakRecord, error) {
	rows, err := store.db.Query(
		`SELECT id, kind, at_ms, duration_seconds FROM breaks ORDER BY at_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query breaks: %w", err)
	}
	defer rows.Close()

	var records []model.BreakRecord
	for rows.Next() {
		var (
			record   model.BreakRecord
			kind     string
			atMillis int64
			seconds  int64
		)
		if err := rows.Scan(&record.ID, &kind, &atMillis, &seconds); err != nil {
			return nil, fmt.Errorf("scan break: %w", err)
		}
		record.Kind = model.BreakKind(kind)
		record.At = time.UnixMilli(atMillis)
		record.Duration = time.Duration(seconds) * time.Second
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate breaks: %w", err)
	}
	return records, nil
}

// Stats summarizes the break history relative to now, using now's location for day boundaries.
func (store *StateDB) Stats(now time.Time) (model.Stats, error) {
	var stats model.Stats
	err := store.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN kind = 'short' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'long' THEN 1 ELSE 0 END), 0)
		FROM breaks`).Scan(&stats.Total, &stats.Short, &stats.Long)
	if err != nil {
		return model.Stats{}, fmt.Errorf("count breaks: %w", err)
	}
	if stats.Total == 0 {
		return stats, nil
	}

	rows, err := store.db.Query(`SELECT at_ms FROM breaks ORDER BY at_ms DESC`)
	if err != nil {
		return model.Stats{}, fmt.Errorf("query break times: %w", err)
	}
	defer rows.Close()

	location := now.Location()
	today := startOfDay(now)
	days := make(map[string]bool)
	for rows.Next() {
		var atMillis int64
		if err := rows.Scan(&atMillis); err != nil {
			return model.Stats{}, fmt.Errorf("scan break time: %w", err)
		}
		at := time.UnixMilli(atMillis).In(location)
		if stats.LastBreak.IsZero() {
			stats.LastBreak = at
		}
		day := startOfDay(at)
		if day.Equal(today) {
			stats.Today++
		}
		days[dayKey(day)] = true
	}
	if err := rows.Err(); err != nil {
		return model.Stats{}, fmt.Errorf("iterate break times: %w", err)
	}

	stats.StreakDays = streak(days, today)
	return stats, nil
}

// streak counts consecutive days with a break, ending today or, if today
// has none yet, yesterday.
func streak(days map[string]bool, today time.Time) int {
	day := today
	if !days[dayKey(day)] {
		day = day.AddDate(0, 0, -1)
	}
	count := 0
	for days[dayKey(day)] {
		count++
		day = day.AddDate(0, 0, -1)
	}
	return count
}

func dayKey(day time.Time) string {
	return day.Format(time.DateOnly)
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
