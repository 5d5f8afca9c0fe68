package contract

import (
	"time"

	"github.com/alexanderramin/tempus/internal/domain"
)

// NoticeKind labels a one-time informational signal surfaced to the
// presentation layer. Notices are edge-triggered: each appears in exactly
// one projection, the one published by the pass that raised it.
type NoticeKind string

const (
	NoticeLapCapacityReached NoticeKind = "lap_capacity_reached"
	NoticeAutoResetTriggered NoticeKind = "auto_reset_triggered"
	NoticeTriggerFired       NoticeKind = "trigger_fired"
	NoticePhaseMissed        NoticeKind = "phase_missed"
)

type Notice struct {
	Kind  NoticeKind
	At    time.Time
	Label string
}

// AlarmView is the presentation-ready derivation of one alarm.
type AlarmView struct {
	ID       string
	Label    string
	Time     domain.TimeOfDay
	Enabled  bool
	Snoozed  bool
	NextText string // "Today", "Tomorrow", a weekday name, or "Next week"
}

type TimerView struct {
	ID              string
	Label           string
	RemainingMillis int64
}

type StopwatchView struct {
	Status        domain.IntervalStatus
	ElapsedMillis int64
	Laps          []domain.Lap
	LapText       string
}

type PomodoroView struct {
	Phase           domain.Phase
	SessionIndex    int
	CycleIndex      int
	RemainingMillis int64
	IsLongBreakNext bool
	Stats           domain.PomodoroStats
}

// Projection is the immutable derived-state snapshot the presentation
// layer reads. A new value is published at the end of every
// reconciliation pass; readers never observe a partially updated one.
type Projection struct {
	TakenAt   time.Time
	Alarms    []AlarmView
	Timers    []TimerView
	Stopwatch StopwatchView
	Pomodoro  PomodoroView
	Notices   []Notice
}
