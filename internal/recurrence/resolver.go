// Package recurrence resolves schedule recurrence rules into concrete
// next-occurrence descriptions using the Monday-first day convention
// (0 = Monday).
package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/tempus/internal/domain"
)

var (
	// ErrInvalidDaySet indicates a day index outside 0..6.
	ErrInvalidDaySet = errors.New("invalid day set")

	// ErrUnknownRecurrence indicates a recurrence string that is neither a
	// named kind nor a comma-separated day list.
	ErrUnknownRecurrence = errors.New("unknown recurrence")
)

// When classifies how soon the next occurrence falls.
type When string

const (
	WhenToday    When = "today"
	WhenTomorrow When = "tomorrow"
	WhenWeekday  When = "weekday"
	WhenNextWeek When = "next_week"
)

// Next describes the next time a schedule fires. Weekday is a
// Monday-first index and is meaningful only when When is WhenWeekday.
type Next struct {
	When    When
	Weekday int
	At      domain.TimeOfDay
}

// TodayIndex remaps Go's Sunday-first time.Weekday into the Monday-first
// convention.
func TodayIndex(now time.Time) int {
	return (int(now.Weekday()) + 6) % 7
}

// EffectiveDays expands a recurrence into the set of Monday-first day
// indices it fires on. A one-shot recurrence expands to the empty set.
func EffectiveDays(rec domain.Recurrence) [7]bool {
	var days [7]bool
	switch rec.Kind {
	case domain.RecurDaily:
		for i := range days {
			days[i] = true
		}
	case domain.RecurWeekdays:
		for i := 0; i < 5; i++ {
			days[i] = true
		}
	case domain.RecurWeekends:
		days[5], days[6] = true, true
	case domain.RecurDaySet:
		for _, d := range rec.Days {
			if d >= 0 && d <= 6 {
				days[d] = true
			}
		}
	}
	return days
}

// NextOccurrence returns when a schedule with the given time of day and
// recurrence next fires relative to now.
//
// A one-shot schedule fires today if the time of day is still ahead,
// otherwise tomorrow. A recurring schedule scans forward from today: day
// offset 0 only counts while the time of day is still ahead of now.
func NextOccurrence(at domain.TimeOfDay, rec domain.Recurrence, now time.Time) (Next, error) {
	if err := at.Validate(); err != nil {
		return Next{}, err
	}

	days := EffectiveDays(rec)
	todayIdx := TodayIndex(now)
	stillAhead := at.AfterInstant(now)

	empty := true
	for _, d := range days {
		if d {
			empty = false
			break
		}
	}
	if empty {
		if stillAhead {
			return Next{When: WhenToday, At: at}, nil
		}
		return Next{When: WhenTomorrow, At: at}, nil
	}

	for offset := 0; offset <= 7; offset++ {
		candidate := (todayIdx + offset) % 7
		if !days[candidate] {
			continue
		}
		switch {
		case offset == 0:
			if stillAhead {
				return Next{When: WhenToday, At: at}, nil
			}
			// Time already passed today; keep scanning.
		case offset == 1:
			return Next{When: WhenTomorrow, At: at}, nil
		default:
			return Next{When: WhenWeekday, Weekday: candidate, At: at}, nil
		}
	}

	// Unreachable for any non-empty day set: the scan covers eight
	// consecutive days. Kept as a fallback rather than a panic so a logic
	// error can never take down the reconciliation loop.
	return Next{When: WhenNextWeek, At: at}, nil
}

// Canonicalize normalizes an arbitrary day set into its canonical
// recurrence kind: the empty set is a one-shot, all weekdays is
// RecurWeekdays, both weekend days is RecurWeekends, every day is
// RecurDaily. Anything else stays a RecurDaySet with sorted, deduplicated
// days. It is idempotent over its own output.
func Canonicalize(days []int) (domain.Recurrence, error) {
	var set [7]bool
	for _, d := range days {
		if d < 0 || d > 6 {
			return domain.Recurrence{}, fmt.Errorf("%w: day %d", ErrInvalidDaySet, d)
		}
		set[d] = true
	}

	count := 0
	weekdayCount := 0
	weekendCount := 0
	for i, on := range set {
		if !on {
			continue
		}
		count++
		if i < 5 {
			weekdayCount++
		} else {
			weekendCount++
		}
	}

	switch {
	case count == 0:
		return domain.Recurrence{Kind: domain.RecurOnce}, nil
	case count == 7:
		return domain.Recurrence{Kind: domain.RecurDaily}, nil
	case weekdayCount == 5 && weekendCount == 0:
		return domain.Recurrence{Kind: domain.RecurWeekdays}, nil
	case weekendCount == 2 && weekdayCount == 0:
		return domain.Recurrence{Kind: domain.RecurWeekends}, nil
	}

	sorted := make([]int, 0, count)
	for i, on := range set {
		if on {
			sorted = append(sorted, i)
		}
	}
	return domain.Recurrence{Kind: domain.RecurDaySet, Days: sorted}, nil
}

// Parse decodes the backend wire encoding of a recurrence: a named kind
// ("once", "daily", "weekdays", "weekends") or a comma-separated list of
// Monday-first day indices ("0,2,4"). Day lists are canonicalized, so
// "0,1,2,3,4" decodes to the weekdays kind. This is the only place the
// string form is interpreted.
func Parse(s string) (domain.Recurrence, error) {
	switch domain.RecurrenceKind(s) {
	case domain.RecurOnce:
		return domain.Recurrence{Kind: domain.RecurOnce}, nil
	case domain.RecurDaily:
		return domain.Recurrence{Kind: domain.RecurDaily}, nil
	case domain.RecurWeekdays:
		return domain.Recurrence{Kind: domain.RecurWeekdays}, nil
	case domain.RecurWeekends:
		return domain.Recurrence{Kind: domain.RecurWeekends}, nil
	}

	parts := strings.Split(s, ",")
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return domain.Recurrence{}, fmt.Errorf("%w: %q", ErrUnknownRecurrence, s)
		}
		days = append(days, d)
	}
	rec, err := Canonicalize(days)
	if err != nil {
		return domain.Recurrence{}, fmt.Errorf("%w: %q", ErrUnknownRecurrence, s)
	}
	return rec, nil
}

// Encode renders a recurrence back into its wire form.
func Encode(rec domain.Recurrence) string {
	if rec.Kind != domain.RecurDaySet {
		return string(rec.Kind)
	}
	days := append([]int(nil), rec.Days...)
	sort.Ints(days)
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}
