package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/alexanderramin/tempus/internal/domain"
	"github.com/alexanderramin/tempus/internal/recurrence"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Store persists alarms, timers, presets, and Pomodoro stats in SQLite.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListAlarms(ctx context.Context) ([]domain.Alarm, error) {
	query := `SELECT id, label, hour, minute, recurrence, enabled,
		snoozed_until, last_triggered, created_at
		FROM alarms ORDER BY hour, minute, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing alarms: %w", err)
	}
	defer rows.Close()

	var alarms []domain.Alarm
	for rows.Next() {
		a, err := scanAlarm(rows)
		if err != nil {
			return nil, err
		}
		alarms = append(alarms, a)
	}
	return alarms, rows.Err()
}

func (s *Store) GetAlarm(ctx context.Context, id string) (domain.Alarm, error) {
	query := `SELECT id, label, hour, minute, recurrence, enabled,
		snoozed_until, last_triggered, created_at
		FROM alarms WHERE id = ?`
	a, err := scanAlarm(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Alarm{}, fmt.Errorf("alarm %s: %w", id, ErrNotFound)
	}
	return a, err
}

func (s *Store) PutAlarm(ctx context.Context, a domain.Alarm) error {
	query := `INSERT OR REPLACE INTO alarms
		(id, label, hour, minute, recurrence, enabled, snoozed_until, last_triggered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		a.ID,
		a.Label,
		a.Time.Hour,
		a.Time.Minute,
		recurrence.Encode(a.Recurrence),
		a.Enabled,
		millisPtr(a.SnoozedUntil),
		millisPtr(a.LastTriggered),
		a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upserting alarm: %w", err)
	}
	return nil
}

func (s *Store) DeleteAlarm(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting alarm: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("alarm %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) ListTimers(ctx context.Context) ([]domain.Timer, error) {
	query := `SELECT id, label, seconds, end_time, created_at
		FROM timers ORDER BY end_time, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing timers: %w", err)
	}
	defer rows.Close()

	var timers []domain.Timer
	for rows.Next() {
		var (
			t       domain.Timer
			seconds int64
			end     int64
			created int64
		)
		if err := rows.Scan(&t.ID, &t.Label, &seconds, &end, &created); err != nil {
			return nil, fmt.Errorf("scanning timer: %w", err)
		}
		t.Duration = time.Duration(seconds) * time.Second
		t.EndTime = time.UnixMilli(end).UTC()
		t.CreatedAt = time.UnixMilli(created).UTC()
		timers = append(timers, t)
	}
	return timers, rows.Err()
}

func (s *Store) PutTimer(ctx context.Context, t domain.Timer) error {
	query := `INSERT OR REPLACE INTO timers
		(id, label, seconds, end_time, created_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		t.ID,
		t.Label,
		int64(t.Duration/time.Second),
		t.EndTime.UnixMilli(),
		t.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upserting timer: %w", err)
	}
	return nil
}

func (s *Store) DeleteTimer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM timers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting timer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("timer %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) ListPresets(ctx context.Context) ([]domain.Preset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, seconds, label FROM presets ORDER BY seconds`)
	if err != nil {
		return nil, fmt.Errorf("listing presets: %w", err)
	}
	defer rows.Close()

	var presets []domain.Preset
	for rows.Next() {
		var p domain.Preset
		if err := rows.Scan(&p.ID, &p.Seconds, &p.Label); err != nil {
			return nil, fmt.Errorf("scanning preset: %w", err)
		}
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

func (s *Store) SavePreset(ctx context.Context, p domain.Preset) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO presets (id, seconds, label) VALUES (?, ?, ?)`,
		p.ID, p.Seconds, p.Label)
	if err != nil {
		return fmt.Errorf("saving preset: %w", err)
	}
	return nil
}

func (s *Store) DeletePreset(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting preset: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("preset %s: %w", id, ErrNotFound)
	}
	return nil
}

// EnsureDefaultPresets seeds the classic preset durations on first run.
func (s *Store) EnsureDefaultPresets(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM presets`).Scan(&count); err != nil {
		return fmt.Errorf("counting presets: %w", err)
	}
	if count > 0 {
		return nil
	}
	defaults := []domain.Preset{
		{ID: "preset-5", Seconds: 300, Label: "5 minutes"},
		{ID: "preset-10", Seconds: 600, Label: "10 minutes"},
		{ID: "preset-15", Seconds: 900, Label: "15 minutes"},
		{ID: "preset-30", Seconds: 1800, Label: "30 minutes"},
		{ID: "preset-60", Seconds: 3600, Label: "1 hour"},
	}
	for _, p := range defaults {
		if err := s.SavePreset(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// LoadCycle reads the persisted in-flight Pomodoro state, so a cycle
// started by one process invocation survives into the next.
func (s *Store) LoadCycle(ctx context.Context) (domain.PomodoroCycle, error) {
	var (
		c     domain.PomodoroCycle
		phase string
		end   sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT phase, session_idx, cycle_idx, phase_end FROM pomodoro_state WHERE id = 1`).
		Scan(&phase, &c.SessionIndex, &c.CycleIndex, &end)
	if err != nil {
		return c, fmt.Errorf("loading pomodoro state: %w", err)
	}
	c.Phase = domain.Phase(phase)
	c.PhaseEndEpoch = timePtr(end)
	return c, nil
}

func (s *Store) SaveCycle(ctx context.Context, c domain.PomodoroCycle) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pomodoro_state SET
		phase = ?, session_idx = ?, cycle_idx = ?, phase_end = ? WHERE id = 1`,
		string(c.Phase), c.SessionIndex, c.CycleIndex, millisPtr(c.PhaseEndEpoch))
	if err != nil {
		return fmt.Errorf("saving pomodoro state: %w", err)
	}
	return nil
}

// RecordPhase accumulates one completed phase into the lifetime totals and
// the day row. day is the local calendar date "2006-01-02".
func (s *Store) RecordPhase(ctx context.Context, day string, focusSec, breakSec int64, sessions, cycles int) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO pomodoro_days
		(day, focus_seconds, break_seconds, sessions) VALUES (?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			focus_seconds = focus_seconds + excluded.focus_seconds,
			break_seconds = break_seconds + excluded.break_seconds,
			sessions = sessions + excluded.sessions`,
		day, focusSec, breakSec, sessions)
	if err != nil {
		return fmt.Errorf("recording day stats: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE pomodoro_totals SET
		focus_seconds = focus_seconds + ?,
		break_seconds = break_seconds + ?,
		sessions_completed = sessions_completed + ?,
		cycles_completed = cycles_completed + ?
		WHERE id = 1`,
		focusSec, breakSec, sessions, cycles)
	if err != nil {
		return fmt.Errorf("recording totals: %w", err)
	}
	return nil
}

// LoadStats assembles the cumulative stats, including streaks derived
// from consecutive days with at least one completed session, counted
// back from today (or yesterday, if today has none yet).
func (s *Store) LoadStats(ctx context.Context, today time.Time) (domain.PomodoroStats, error) {
	var stats domain.PomodoroStats
	err := s.db.QueryRowContext(ctx, `SELECT focus_seconds, break_seconds,
		sessions_completed, cycles_completed FROM pomodoro_totals WHERE id = 1`).
		Scan(&stats.FocusSeconds, &stats.BreakSeconds,
			&stats.SessionsCompleted, &stats.CyclesCompleted)
	if err != nil {
		return stats, fmt.Errorf("loading totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT day, focus_seconds, break_seconds, sessions FROM pomodoro_days`)
	if err != nil {
		return stats, fmt.Errorf("loading day stats: %w", err)
	}
	defer rows.Close()

	stats.Daily = make(map[string]domain.DayStats)
	for rows.Next() {
		var day string
		var d domain.DayStats
		if err := rows.Scan(&day, &d.FocusSeconds, &d.BreakSeconds, &d.Sessions); err != nil {
			return stats, fmt.Errorf("scanning day stats: %w", err)
		}
		stats.Daily[day] = d
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	stats.CurrentStreakDays, stats.BestStreakDays = streaks(stats.Daily, today)
	return stats, nil
}

// ResetStats is the destructive reset of all cumulative counters.
func (s *Store) ResetStats(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pomodoro_days`); err != nil {
		return fmt.Errorf("resetting day stats: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `UPDATE pomodoro_totals SET
		focus_seconds = 0, break_seconds = 0,
		sessions_completed = 0, cycles_completed = 0 WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("resetting totals: %w", err)
	}
	return nil
}

const dayFormat = "2006-01-02"

func streaks(daily map[string]domain.DayStats, today time.Time) (current, best int) {
	active := make(map[string]bool, len(daily))
	days := make([]string, 0, len(daily))
	for day, d := range daily {
		if d.Sessions > 0 {
			active[day] = true
			days = append(days, day)
		}
	}
	sort.Strings(days)

	// Best: longest run of consecutive calendar days.
	run := 0
	var prev time.Time
	for _, day := range days {
		t, err := time.Parse(dayFormat, day)
		if err != nil {
			continue
		}
		if run > 0 && t.Sub(prev) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
		prev = t
	}

	// Current: count back from today; a day without sessions yet today
	// does not break the streak.
	cursor := today
	if !active[cursor.Format(dayFormat)] {
		cursor = cursor.AddDate(0, 0, -1)
	}
	for active[cursor.Format(dayFormat)] {
		current++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return current, best
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlarm(row rowScanner) (domain.Alarm, error) {
	var a domain.Alarm
	var recur string
	var snoozed, triggered sql.NullInt64
	var created int64
	err := row.Scan(&a.ID, &a.Label, &a.Time.Hour, &a.Time.Minute,
		&recur, &a.Enabled, &snoozed, &triggered, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return a, err
		}
		return a, fmt.Errorf("scanning alarm: %w", err)
	}
	rec, err := recurrence.Parse(recur)
	if err != nil {
		return a, fmt.Errorf("decoding recurrence for alarm %s: %w", a.ID, err)
	}
	a.Recurrence = rec
	a.SnoozedUntil = timePtr(snoozed)
	a.LastTriggered = timePtr(triggered)
	a.CreatedAt = time.UnixMilli(created).UTC()
	return a, nil
}

func millisPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
