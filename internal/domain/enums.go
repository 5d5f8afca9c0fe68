package domain

type RecurrenceKind string

const (
	RecurOnce     RecurrenceKind = "once"
	RecurDaily    RecurrenceKind = "daily"
	RecurWeekdays RecurrenceKind = "weekdays"
	RecurWeekends RecurrenceKind = "weekends"
	RecurDaySet   RecurrenceKind = "dayset"
)

type IntervalStatus string

const (
	IntervalIdle    IntervalStatus = "idle"
	IntervalRunning IntervalStatus = "running"
	IntervalPaused  IntervalStatus = "paused"
)

type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseWork       Phase = "work"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

// IsBreak reports whether the phase is either kind of break.
func (p Phase) IsBreak() bool {
	return p == PhaseShortBreak || p == PhaseLongBreak
}

type SuspendBehavior string

const (
	SuspendPause    SuspendBehavior = "pause"
	SuspendContinue SuspendBehavior = "continue"
)

type TriggerKind string

const (
	TriggerAlarm TriggerKind = "alarm"
	TriggerTimer TriggerKind = "timer"
)

// weekdayNames is indexed by the Monday-first day convention (0 = Monday)
// used throughout this codebase.
var weekdayNames = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// WeekdayName returns the English name for a Monday-first day index.
// Out-of-range indices return an empty string.
func WeekdayName(day int) string {
	if day < 0 || day > 6 {
		return ""
	}
	return weekdayNames[day]
}
