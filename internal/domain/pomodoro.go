package domain

import "time"

// PomodoroConfig holds the phase durations and cycle shape for the focus
// timer. Values mirror the backend's user settings.
type PomodoroConfig struct {
	WorkDuration           time.Duration
	ShortBreakDuration     time.Duration
	LongBreakDuration      time.Duration
	SessionsUntilLongBreak int
	SuspendBehavior        SuspendBehavior
}

// DefaultPomodoroConfig returns the classic 25/5/15 cycle with a long
// break every fourth session.
func DefaultPomodoroConfig() PomodoroConfig {
	return PomodoroConfig{
		WorkDuration:           25 * time.Minute,
		ShortBreakDuration:     5 * time.Minute,
		LongBreakDuration:      15 * time.Minute,
		SessionsUntilLongBreak: 4,
		SuspendBehavior:        SuspendPause,
	}
}

// Normalized replaces non-positive durations and cycle length with the
// defaults. A zero-length phase would elapse the instant it is entered,
// so malformed settings fall back rather than propagate.
func (c PomodoroConfig) Normalized() PomodoroConfig {
	def := DefaultPomodoroConfig()
	if c.WorkDuration <= 0 {
		c.WorkDuration = def.WorkDuration
	}
	if c.ShortBreakDuration <= 0 {
		c.ShortBreakDuration = def.ShortBreakDuration
	}
	if c.LongBreakDuration <= 0 {
		c.LongBreakDuration = def.LongBreakDuration
	}
	if c.SessionsUntilLongBreak <= 0 {
		c.SessionsUntilLongBreak = def.SessionsUntilLongBreak
	}
	return c
}

// PomodoroCycle is the in-flight phase state. SessionIndex counts work
// sessions monotonically from 1; a long break falls exactly on multiples
// of SessionsUntilLongBreak. PhaseEndEpoch is nil while idle.
type PomodoroCycle struct {
	Phase         Phase
	SessionIndex  int
	CycleIndex    int
	PhaseEndEpoch *time.Time
}

// DayStats is one calendar day's focus record, keyed by local date.
type DayStats struct {
	FocusSeconds int64
	BreakSeconds int64
	Sessions     int
}

// PomodoroStats are cumulative lifetime counters. They are owned and
// persisted by the backend; the core only mirrors them for display and
// zeroes the mirror after a confirmed reset.
type PomodoroStats struct {
	FocusSeconds      int64
	BreakSeconds      int64
	SessionsCompleted int
	CyclesCompleted   int
	Daily             map[string]DayStats
	CurrentStreakDays int
	BestStreakDays    int
}
