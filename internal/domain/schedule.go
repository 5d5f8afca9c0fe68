package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTimeOfDay indicates an hour or minute outside the valid range.
// Malformed times are a caller contract violation and are never clamped.
var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// TimeOfDay is a wall-clock time without a date, in 24h convention.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidTimeOfDay, t.Hour, t.Minute)
	}
	return nil
}

// MinuteOfDay returns the time as minutes since midnight.
func (t TimeOfDay) MinuteOfDay() int {
	return t.Hour*60 + t.Minute
}

// AfterInstant reports whether the time of day is still ahead of now on
// now's calendar day.
func (t TimeOfDay) AfterInstant(now time.Time) bool {
	return t.MinuteOfDay() > now.Hour()*60+now.Minute()
}

// Recurrence is the tagged union describing which days a schedule fires on.
// Days is populated only for RecurDaySet and is always sorted ascending in
// the Monday-first convention (0 = Monday). It is decided once at the
// boundary and never re-parsed downstream.
type Recurrence struct {
	Kind RecurrenceKind
	Days []int
}

// Alarm is a recurring wall-clock schedule. Durable state is owned by the
// backend; this type is the in-memory mirror the reconciliation core works
// with.
type Alarm struct {
	ID            string
	Label         string
	Time          TimeOfDay
	Recurrence    Recurrence
	Enabled       bool
	SnoozedUntil  *time.Time
	LastTriggered *time.Time
	CreatedAt     time.Time
}

// Timer is a one-shot countdown owned by the backend.
type Timer struct {
	ID        string
	Label     string
	Duration  time.Duration
	EndTime   time.Time
	CreatedAt time.Time
}

// Remaining returns the countdown time left at now, floored at zero.
func (t Timer) Remaining(now time.Time) time.Duration {
	if r := t.EndTime.Sub(now); r > 0 {
		return r
	}
	return 0
}

// Preset is a saved timer duration shortcut.
type Preset struct {
	ID      string
	Seconds int
	Label   string
}
