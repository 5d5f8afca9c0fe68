// Package contract holds the DTOs exchanged between the backend, the
// reconciliation controller, and the presentation layer.
package contract

import (
	"time"

	"github.com/alexanderramin/tempus/internal/domain"
)

type EventKind string

const (
	EventTriggerFired    EventKind = "trigger_fired"
	EventTick            EventKind = "tick"
	EventPhaseChanged    EventKind = "phase_changed"
	EventSnapshotUpdated EventKind = "snapshot_updated"

	// EventResyncRequired is raised after the backend had to drop pushes
	// because the consumer fell behind. The consumer should reload the
	// full snapshot; incremental events since the drop are gone.
	EventResyncRequired EventKind = "resync_required"
)

type EntityKind string

const (
	EntityAlarm     EntityKind = "alarm"
	EntityTimer     EntityKind = "timer"
	EntityStopwatch EntityKind = "stopwatch"
	EntityPomodoro  EntityKind = "pomodoro"
	EntityStats     EntityKind = "stats"
)

// PushEvent is one asynchronous notification from the backend. Exactly
// the payload fields implied by Kind are populated.
type PushEvent struct {
	Kind   EventKind
	Entity EntityKind
	ID     string

	// EventTriggerFired
	TriggerKind domain.TriggerKind
	Label       string

	// EventTick
	RemainingMillis int64

	// EventPhaseChanged / EventSnapshotUpdated payloads. A nil payload
	// with Removed set means the entity was deleted.
	Cycle    *domain.PomodoroCycle
	Stats    *domain.PomodoroStats
	Alarm    *domain.Alarm
	Timer    *domain.Timer
	Interval *domain.RunningInterval
	Removed  bool

	// Notice carries a backend-raised one-time signal alongside the
	// entity update that caused it (e.g. lap capacity reached).
	Notice *Notice
}

// BackendSnapshot is the authoritative full state supplied on demand, from
// which the controller reconstructs every entity it tracks.
type BackendSnapshot struct {
	TakenAt   time.Time
	Alarms    []domain.Alarm
	Timers    []domain.Timer
	Stopwatch domain.RunningInterval
	Pomodoro  domain.PomodoroCycle
	Stats     domain.PomodoroStats
	Config    domain.PomodoroConfig
}
