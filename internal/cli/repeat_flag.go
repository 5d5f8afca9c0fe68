package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/alexanderramin/tempus/internal/domain"
	"github.com/alexanderramin/tempus/internal/recurrence"
)

// dayNames maps the short weekday names accepted on the command line to
// Monday-first indices.
var dayNames = map[string]int{
	"mon": 0, "tue": 1, "wed": 2, "thu": 3, "fri": 4, "sat": 5, "sun": 6,
}

// repeatFlag is a pflag.Value for the --repeat flag. It accepts the named
// kinds ("once", "daily", "weekdays", "weekends") or a comma-separated
// list of short day names ("mon,wed,fri"), which is canonicalized.
type repeatFlag struct {
	rec *domain.Recurrence
}

var _ pflag.Value = (*repeatFlag)(nil)

func newRepeatFlag(rec *domain.Recurrence) *repeatFlag {
	return &repeatFlag{rec: rec}
}

func (f *repeatFlag) String() string {
	if f.rec == nil || f.rec.Kind == "" {
		return string(domain.RecurOnce)
	}
	return recurrence.Encode(*f.rec)
}

func (f *repeatFlag) Set(s string) error {
	rec, err := parseRepeat(s)
	if err != nil {
		return err
	}
	*f.rec = rec
	return nil
}

func (f *repeatFlag) Type() string { return "repeat" }

func parseRepeat(s string) (domain.Recurrence, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch domain.RecurrenceKind(s) {
	case domain.RecurOnce, domain.RecurDaily, domain.RecurWeekdays, domain.RecurWeekends:
		return domain.Recurrence{Kind: domain.RecurrenceKind(s)}, nil
	}

	parts := strings.Split(s, ",")
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		d, ok := dayNames[strings.TrimSpace(p)]
		if !ok {
			return domain.Recurrence{}, fmt.Errorf(
				"invalid repeat %q: want once|daily|weekdays|weekends or day names like mon,wed,fri", s)
		}
		days = append(days, d)
	}
	rec, err := recurrence.Canonicalize(days)
	if err != nil {
		return domain.Recurrence{}, fmt.Errorf("invalid repeat %q: %w", s, err)
	}
	return rec, nil
}

// describeRepeat renders a recurrence for list output.
func describeRepeat(rec domain.Recurrence) string {
	switch rec.Kind {
	case domain.RecurOnce:
		return "once"
	case domain.RecurDaily:
		return "daily"
	case domain.RecurWeekdays:
		return "weekdays"
	case domain.RecurWeekends:
		return "weekends"
	}
	names := make([]string, 0, len(rec.Days))
	for _, d := range rec.Days {
		if name := domain.WeekdayName(d); name != "" {
			names = append(names, strings.ToLower(name[:3]))
		}
	}
	return strings.Join(names, ",")
}
