package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/tempus/internal/domain"
)

// Clock renders a time of day as "14:05" (24h) or "2:05 PM" (12h).
func Clock(t domain.TimeOfDay, use24h bool) string {
	if use24h {
		return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
	}
	suffix := "AM"
	hour := t.Hour
	if hour >= 12 {
		suffix = "PM"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, t.Minute, suffix)
}

// Duration renders whole-second durations as "H:MM:SS".
func Duration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	s := ms / 1000
	return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// Millis renders stopwatch-resolution durations as "M:SS.cc".
func Millis(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	s := ms / 1000
	return fmt.Sprintf("%d:%02d.%02d", s/60, s%60, (ms%1000)/10)
}

// LapLine renders one lap as "label  +split  absolute".
func LapLine(lap domain.Lap) string {
	return fmt.Sprintf("%-12s +%s  %s",
		lap.Label, Millis(lap.SplitMillis), Millis(lap.AbsoluteMillis))
}

// LapTable renders laps newest-first, one line each.
func LapTable(laps []domain.Lap) string {
	var b strings.Builder
	for i := len(laps) - 1; i >= 0; i-- {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(LapLine(laps[i]))
	}
	return b.String()
}
