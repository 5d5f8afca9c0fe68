// Package stopwatch maintains a drift-free elapsed time display for a
// running interval. The displayed value is always recomputed as
// accumulated + (now - start epoch); it is never advanced by per-tick
// increments, which would compound timer-granularity drift.
package stopwatch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/tempus/internal/domain"
)

var (
	// ErrResetWhileRunning indicates Reset was called on a running
	// interval, which is a caller contract violation.
	ErrResetWhileRunning = errors.New("reset while running")

	// ErrNotRunning indicates an operation that requires a running
	// interval was called while paused or idle.
	ErrNotRunning = errors.New("interval not running")

	// ErrAlreadyRunning indicates Start was called on a running interval.
	ErrAlreadyRunning = errors.New("interval already running")
)

const (
	// DefaultLapCapacity bounds the lap ring buffer.
	DefaultLapCapacity = 100

	// DefaultMaxRuntime is the elapsed ceiling that triggers an automatic
	// reset.
	DefaultMaxRuntime = 24 * time.Hour
)

// Signal is a one-time informational notification raised by the
// reconciler. Signals are edge-triggered: each fires once when its
// condition first becomes true, not on every check while it holds.
type Signal string

const (
	SignalLapCapacityReached Signal = "lap_capacity_reached"
	SignalAutoResetTriggered Signal = "auto_reset_triggered"
)

// Option configures a Reconciler.
type Option func(*Reconciler)

func WithLapCapacity(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.capacity = n
		}
	}
}

func WithMaxRuntime(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.maxRuntime = d
		}
	}
}

// Reconciler derives the displayed elapsed duration for one stopwatch or
// count-up timer. It is not safe for concurrent use; the reconciliation
// loop is its single writer.
type Reconciler struct {
	status      domain.IntervalStatus
	startEpoch  time.Time // zero unless running
	accumulated int64     // frozen millis while paused/idle
	laps        []domain.Lap
	capacity    int
	maxRuntime  time.Duration

	capacityNotified bool
}

func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		status:     domain.IntervalIdle,
		capacity:   DefaultLapCapacity,
		maxRuntime: DefaultMaxRuntime,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewFromInterval rebuilds a reconciler from an authoritative backend
// snapshot, replacing local state wholesale.
func NewFromInterval(ri domain.RunningInterval, opts ...Option) *Reconciler {
	r := New(opts...)
	r.status = ri.Status
	r.accumulated = ri.AccumulatedMillis
	if ri.Status == domain.IntervalRunning && ri.StartEpoch != nil {
		r.startEpoch = *ri.StartEpoch
	}
	r.laps = append(r.laps, ri.Laps...)
	if len(r.laps) > r.capacity {
		r.laps = r.laps[len(r.laps)-r.capacity:]
		r.capacityNotified = true
	}
	return r
}

func (r *Reconciler) Status() domain.IntervalStatus { return r.status }

// Start begins or resumes timing from now. Accumulated time from previous
// run segments is kept.
func (r *Reconciler) Start(now time.Time) error {
	if r.status == domain.IntervalRunning {
		return ErrAlreadyRunning
	}
	r.startEpoch = now
	r.status = domain.IntervalRunning
	return nil
}

// Resume is Start: it sets a fresh start epoch and keeps the accumulated
// total.
func (r *Reconciler) Resume(now time.Time) error {
	return r.Start(now)
}

// Pause folds the current run segment into the accumulated total and
// freezes the display.
func (r *Reconciler) Pause(now time.Time) error {
	if r.status != domain.IntervalRunning {
		return ErrNotRunning
	}
	r.accumulated += now.Sub(r.startEpoch).Milliseconds()
	r.startEpoch = time.Time{}
	r.status = domain.IntervalPaused
	return nil
}

// Reset zeroes the interval and clears all laps. It is only valid while
// paused or idle; resetting a running interval is reported, not silently
// ignored.
func (r *Reconciler) Reset() error {
	if r.status == domain.IntervalRunning {
		return ErrResetWhileRunning
	}
	r.reset()
	return nil
}

func (r *Reconciler) reset() {
	r.status = domain.IntervalIdle
	r.startEpoch = time.Time{}
	r.accumulated = 0
	r.laps = nil
	r.capacityNotified = false
}

// DisplayedElapsed returns the elapsed milliseconds to show at now.
func (r *Reconciler) DisplayedElapsed(now time.Time) int64 {
	if r.status != domain.IntervalRunning {
		return r.accumulated
	}
	return r.accumulated + now.Sub(r.startEpoch).Milliseconds()
}

// Lap records a checkpoint at now. The split is the delta from the
// previous lap's absolute elapsed time. When the ring buffer is full the
// oldest lap is evicted, and SignalLapCapacityReached is raised exactly
// once, on the insert that first crosses capacity.
func (r *Reconciler) Lap(label string, now time.Time) (domain.Lap, []Signal, error) {
	if r.status != domain.IntervalRunning {
		return domain.Lap{}, nil, ErrNotRunning
	}

	abs := r.DisplayedElapsed(now)
	var prev int64
	if n := len(r.laps); n > 0 {
		prev = r.laps[n-1].AbsoluteMillis
	}
	lap := domain.Lap{
		Label:          label,
		SplitMillis:    abs - prev,
		AbsoluteMillis: abs,
	}

	r.laps = append(r.laps, lap)
	var signals []Signal
	if len(r.laps) > r.capacity {
		r.laps = r.laps[1:]
		if !r.capacityNotified {
			r.capacityNotified = true
			signals = append(signals, SignalLapCapacityReached)
		}
	}
	return lap, signals, nil
}

// CheckAutoReset compares the displayed elapsed time against the runtime
// ceiling and, when exceeded, resets the interval and reports
// SignalAutoResetTriggered. Subsequent checks after the reset are quiet
// until the ceiling is crossed again.
func (r *Reconciler) CheckAutoReset(now time.Time) []Signal {
	if r.status == domain.IntervalIdle {
		return nil
	}
	if r.DisplayedElapsed(now) < r.maxRuntime.Milliseconds() {
		return nil
	}
	r.reset()
	return []Signal{SignalAutoResetTriggered}
}

// Laps returns a copy of the recorded laps, oldest first.
func (r *Reconciler) Laps() []domain.Lap {
	return append([]domain.Lap(nil), r.laps...)
}

// LapsAsText renders one line per lap: label, split, absolute.
func (r *Reconciler) LapsAsText() string {
	var b strings.Builder
	for i, lap := range r.laps {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s\t+%s\t%s", lap.Label,
			formatMillis(lap.SplitMillis), formatMillis(lap.AbsoluteMillis))
	}
	return b.String()
}

// Interval exports the current state in the backend snapshot shape.
func (r *Reconciler) Interval() domain.RunningInterval {
	ri := domain.RunningInterval{
		Status:            r.status,
		AccumulatedMillis: r.accumulated,
		Laps:              r.Laps(),
	}
	if r.status == domain.IntervalRunning {
		epoch := r.startEpoch
		ri.StartEpoch = &epoch
	}
	return ri
}

func formatMillis(ms int64) string {
	s := ms / 1000
	return fmt.Sprintf("%d:%02d.%02d", s/60, s%60, (ms%1000)/10)
}
