package formatter

import (
	"testing"

	"github.com/alexanderramin/tempus/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestClock_24h(t *testing.T) {
	assert.Equal(t, "00:00", Clock(domain.TimeOfDay{Hour: 0, Minute: 0}, true))
	assert.Equal(t, "07:05", Clock(domain.TimeOfDay{Hour: 7, Minute: 5}, true))
	assert.Equal(t, "23:59", Clock(domain.TimeOfDay{Hour: 23, Minute: 59}, true))
}

func TestClock_12h(t *testing.T) {
	tests := []struct {
		in   domain.TimeOfDay
		want string
	}{
		{domain.TimeOfDay{Hour: 0, Minute: 0}, "12:00 AM"},
		{domain.TimeOfDay{Hour: 7, Minute: 5}, "7:05 AM"},
		{domain.TimeOfDay{Hour: 12, Minute: 0}, "12:00 PM"},
		{domain.TimeOfDay{Hour: 13, Minute: 30}, "1:30 PM"},
		{domain.TimeOfDay{Hour: 23, Minute: 59}, "11:59 PM"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Clock(tc.in, false))
	}
}

func TestDuration_HMMSS(t *testing.T) {
	assert.Equal(t, "0:00:00", Duration(0))
	assert.Equal(t, "0:00:59", Duration(59_999))
	assert.Equal(t, "0:01:00", Duration(60_000))
	assert.Equal(t, "1:01:05", Duration(3_665_000))
	assert.Equal(t, "25:00:00", Duration(90_000_000))
	assert.Equal(t, "0:00:00", Duration(-5), "negative input clamps to zero")
}

func TestMillis_Centiseconds(t *testing.T) {
	assert.Equal(t, "0:00.00", Millis(0))
	assert.Equal(t, "0:00.99", Millis(999))
	assert.Equal(t, "1:01.50", Millis(61_500))
	assert.Equal(t, "10:00.07", Millis(600_070))
}

func TestLapTable_NewestFirst(t *testing.T) {
	laps := []domain.Lap{
		{Label: "lap 1", SplitMillis: 60_000, AbsoluteMillis: 60_000},
		{Label: "lap 2", SplitMillis: 30_000, AbsoluteMillis: 90_000},
	}
	got := LapTable(laps)
	assert.Equal(t,
		"lap 2        +0:30.00  1:30.00\nlap 1        +1:00.00  1:00.00", got)
}
