// Package pomodoro implements the four-state focus cycle machine:
// Idle, Work, ShortBreak, LongBreak.
package pomodoro

import (
	"errors"
	"time"

	"github.com/alexanderramin/tempus/internal/domain"
)

// ErrNotIdle indicates Start was called while a cycle is already active.
var ErrNotIdle = errors.New("pomodoro already active")

// PhaseChange records one resolved transition. Missed is set when the
// phase elapsed while the host was suspended under the continue policy
// and was resolved on the first reconciliation after resume.
type PhaseChange struct {
	From   domain.Phase
	To     domain.Phase
	At     time.Time
	Missed bool
}

// Engine drives the phase state machine from phase-duration configuration
// and wall-clock reconciliation. It mirrors cumulative stats owned by the
// backend and never mutates them locally except to zero the mirror after
// a confirmed reset. Not safe for concurrent use; the reconciliation loop
// is its single writer.
type Engine struct {
	cfg     domain.PomodoroConfig
	phase   domain.Phase
	session int // 1-based, monotonically increasing across cycles
	cycle   int
	end     time.Time // phase end epoch, zero while idle

	suspendedAt   time.Time // set while suspended under the pause policy
	suspended     bool
	missedPending bool

	stats domain.PomodoroStats
}

func New(cfg domain.PomodoroConfig) *Engine {
	return &Engine{cfg: cfg.Normalized(), phase: domain.PhaseIdle}
}

func (e *Engine) Phase() domain.Phase { return e.phase }
func (e *Engine) SessionIndex() int   { return e.session }
func (e *Engine) CycleIndex() int     { return e.cycle }

// Cycle exports the in-flight state in the snapshot shape.
func (e *Engine) Cycle() domain.PomodoroCycle {
	c := domain.PomodoroCycle{
		Phase:        e.phase,
		SessionIndex: e.session,
		CycleIndex:   e.cycle,
	}
	if !e.end.IsZero() {
		end := e.end
		c.PhaseEndEpoch = &end
	}
	return c
}

// Restore replaces the in-flight state wholesale from an authoritative
// backend snapshot.
func (e *Engine) Restore(c domain.PomodoroCycle) {
	e.phase = c.Phase
	e.session = c.SessionIndex
	e.cycle = c.CycleIndex
	e.end = time.Time{}
	if c.PhaseEndEpoch != nil {
		e.end = *c.PhaseEndEpoch
	}
	e.suspended = false
	e.suspendedAt = time.Time{}
	e.missedPending = false
}

// Start begins a work phase from Idle. The session index restarts at 1;
// the cycle index is preserved from a prior run, or starts at 1.
func (e *Engine) Start(now time.Time) error {
	if e.phase != domain.PhaseIdle {
		return ErrNotIdle
	}
	e.phase = domain.PhaseWork
	e.session = 1
	if e.cycle < 1 {
		e.cycle = 1
	}
	e.end = now.Add(e.cfg.WorkDuration)
	return nil
}

// Stop returns to Idle from any state, discarding in-flight phase timing.
// Cumulative stats are untouched.
func (e *Engine) Stop() {
	e.phase = domain.PhaseIdle
	e.end = time.Time{}
	e.suspended = false
	e.suspendedAt = time.Time{}
	e.missedPending = false
}

// Skip forces the same transition PhaseElapsed would perform, without
// waiting for the timer.
func (e *Engine) Skip(now time.Time) *PhaseChange {
	if e.phase == domain.PhaseIdle {
		return nil
	}
	change := e.transition(now)
	return &change
}

// Reconcile resolves any phase ends at or before now and returns the
// transitions taken, oldest first. Multiple phases can resolve in one
// call after a long suspend under the continue policy.
func (e *Engine) Reconcile(now time.Time) []PhaseChange {
	if e.phase == domain.PhaseIdle || e.suspended && !e.suspendedAt.IsZero() {
		return nil
	}
	var changes []PhaseChange
	for !e.end.IsZero() && !e.end.After(now) {
		change := e.transition(e.end)
		if e.missedPending {
			change.Missed = true
		}
		changes = append(changes, change)
	}
	e.missedPending = false
	return changes
}

// transition advances Work -> ShortBreak|LongBreak, or Break -> Work. The
// break is long exactly when the just-completed session index is a
// multiple of the sessions-until-long-break setting. Completing a long
// break increments the cycle index.
func (e *Engine) transition(at time.Time) PhaseChange {
	from := e.phase
	switch {
	case e.phase == domain.PhaseWork:
		if e.session%e.cfg.SessionsUntilLongBreak == 0 {
			e.phase = domain.PhaseLongBreak
			e.end = at.Add(e.cfg.LongBreakDuration)
		} else {
			e.phase = domain.PhaseShortBreak
			e.end = at.Add(e.cfg.ShortBreakDuration)
		}
	case e.phase.IsBreak():
		if e.phase == domain.PhaseLongBreak {
			e.cycle++
		}
		e.session++
		e.phase = domain.PhaseWork
		e.end = at.Add(e.cfg.WorkDuration)
	}
	return PhaseChange{From: from, To: e.phase, At: at}
}

// Suspend records a host suspend. Under the pause policy the phase clock
// freezes; under the continue policy the end epoch is left untouched and
// an elapse during suspend is reported as missed on resume.
func (e *Engine) Suspend(now time.Time) {
	if e.phase == domain.PhaseIdle || e.suspended {
		return
	}
	e.suspended = true
	if e.cfg.SuspendBehavior == domain.SuspendPause {
		e.suspendedAt = now
	}
}

// Resume ends a host suspend. Under the pause policy the end epoch shifts
// forward by the suspended interval.
func (e *Engine) Resume(now time.Time) {
	if !e.suspended {
		return
	}
	e.suspended = false
	if !e.suspendedAt.IsZero() {
		e.end = e.end.Add(now.Sub(e.suspendedAt))
		e.suspendedAt = time.Time{}
		return
	}
	// Continue policy: a phase that elapsed while away is resolved by the
	// first reconciliation after resume and flagged as missed.
	if !e.end.IsZero() && !e.end.After(now) {
		e.missedPending = true
	}
}

// Remaining returns the time left in the current phase, floored at zero.
// While suspended under the pause policy the value is frozen at the
// instant of suspend.
func (e *Engine) Remaining(now time.Time) time.Duration {
	if e.phase == domain.PhaseIdle || e.end.IsZero() {
		return 0
	}
	ref := now
	if e.suspended && !e.suspendedAt.IsZero() {
		ref = e.suspendedAt
	}
	if r := e.end.Sub(ref); r > 0 {
		return r
	}
	return 0
}

// IsLongBreakNext reports whether the upcoming break, if the current work
// phase completes next, would be the long one. Display hint only; the
// transition logic does not consult it.
func (e *Engine) IsLongBreakNext() bool {
	return e.phase == domain.PhaseWork && e.session%e.cfg.SessionsUntilLongBreak == 0
}

// Stats returns the mirrored cumulative stats.
func (e *Engine) Stats() domain.PomodoroStats { return e.stats }

// SetStats replaces the stats mirror from an authoritative snapshot.
func (e *Engine) SetStats(s domain.PomodoroStats) { e.stats = s }

// ConfirmStatsReset zeroes the stats mirror. Call only after the backend
// confirmed the destructive reset; the mirror is never zeroed
// optimistically.
func (e *Engine) ConfirmStatsReset() {
	e.stats = domain.PomodoroStats{}
}
