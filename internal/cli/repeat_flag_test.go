package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/tempus/internal/domain"
)

func TestParseRepeat(t *testing.T) {
	tests := []struct {
		input string
		want  domain.Recurrence
	}{
		{"once", domain.Recurrence{Kind: domain.RecurOnce}},
		{"daily", domain.Recurrence{Kind: domain.RecurDaily}},
		{"Weekdays", domain.Recurrence{Kind: domain.RecurWeekdays}},
		{"weekends", domain.Recurrence{Kind: domain.RecurWeekends}},
		{"mon,wed,fri", domain.Recurrence{Kind: domain.RecurDaySet, Days: []int{0, 2, 4}}},
		// A full named set canonicalizes back to its kind.
		{"mon,tue,wed,thu,fri", domain.Recurrence{Kind: domain.RecurWeekdays}},
		{"sat,sun", domain.Recurrence{Kind: domain.RecurWeekends}},
		{"mon,tue,wed,thu,fri,sat,sun", domain.Recurrence{Kind: domain.RecurDaily}},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, err := parseRepeat(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRepeat_Invalid(t *testing.T) {
	for _, input := range []string{"", "lundi", "mon,xyz", "everyday"} {
		t.Run(input, func(t *testing.T) {
			_, err := parseRepeat(input)
			assert.Error(t, err)
		})
	}
}

func TestRepeatFlag_SetAndString(t *testing.T) {
	var rec domain.Recurrence
	f := newRepeatFlag(&rec)

	assert.Equal(t, "repeat", f.Type())
	assert.Equal(t, "once", f.String())

	require.NoError(t, f.Set("mon,wed"))
	assert.Equal(t, domain.RecurDaySet, rec.Kind)
	assert.Equal(t, "0,2", f.String())

	require.NoError(t, f.Set("daily"))
	assert.Equal(t, "daily", f.String())
}

func TestDescribeRepeat(t *testing.T) {
	assert.Equal(t, "daily", describeRepeat(domain.Recurrence{Kind: domain.RecurDaily}))
	assert.Equal(t, "mon,wed,fri", describeRepeat(domain.Recurrence{
		Kind: domain.RecurDaySet, Days: []int{0, 2, 4},
	}))
}

func TestParseClockTime(t *testing.T) {
	hour, minute, err := parseClockTime("07:30")
	require.NoError(t, err)
	assert.Equal(t, 7, hour)
	assert.Equal(t, 30, minute)

	hour, minute, err = parseClockTime("23:59")
	require.NoError(t, err)
	assert.Equal(t, 23, hour)
	assert.Equal(t, 59, minute)

	for _, input := range []string{"", "7", "24:00", "12:60", "ab:cd", "12:30:00"} {
		_, _, err := parseClockTime(input)
		assert.Error(t, err, "input %q", input)
	}
}
