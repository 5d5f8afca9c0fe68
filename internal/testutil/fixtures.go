package testutil

import (
	"time"

	"github.com/alexanderramin/tempus/internal/domain"
	"github.com/google/uuid"
)

// Alarm options
type AlarmOption func(*domain.Alarm)

func WithAlarmTime(hour, minute int) AlarmOption {
	return func(a *domain.Alarm) {
		a.Time = domain.TimeOfDay{Hour: hour, Minute: minute}
	}
}

func WithRecurrence(rec domain.Recurrence) AlarmOption {
	return func(a *domain.Alarm) {
		a.Recurrence = rec
	}
}

func WithDisabled() AlarmOption {
	return func(a *domain.Alarm) {
		a.Enabled = false
	}
}

func WithSnoozedUntil(t time.Time) AlarmOption {
	return func(a *domain.Alarm) {
		a.SnoozedUntil = &t
	}
}

func NewTestAlarm(label string, opts ...AlarmOption) domain.Alarm {
	a := domain.Alarm{
		ID:         uuid.New().String()[:8],
		Label:      label,
		Time:       domain.TimeOfDay{Hour: 7, Minute: 30},
		Recurrence: domain.Recurrence{Kind: domain.RecurDaily},
		Enabled:    true,
		CreatedAt:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func NewTestTimer(label string, d time.Duration, now time.Time) domain.Timer {
	return domain.Timer{
		ID:        uuid.New().String()[:8],
		Label:     label,
		Duration:  d,
		EndTime:   now.Add(d),
		CreatedAt: now,
	}
}
