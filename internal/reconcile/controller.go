// Package reconcile owns the client-side reconciliation loop: one
// periodic tick source and the backend push-event stream converge on a
// single-writer loop that re-derives presentation-ready state from
// authoritative snapshots plus elapsed wall-clock time.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/tempus/internal/contract"
	"github.com/alexanderramin/tempus/internal/domain"
	"github.com/alexanderramin/tempus/internal/pomodoro"
	"github.com/alexanderramin/tempus/internal/recurrence"
	"github.com/alexanderramin/tempus/internal/stopwatch"
)

// ErrBackendCall indicates a start/stop/reset request to the backend
// failed. Local state is left unchanged; the caller may retry.
var ErrBackendCall = errors.New("backend call failed")

// DefaultTickInterval is the local derivation cadence. The backend pushes
// its own coarser ticks on top of this.
const DefaultTickInterval = 100 * time.Millisecond

// Backend is the schedule backend port: the external collaborator owning
// all durable alarm/timer/stopwatch/Pomodoro state. The controller only
// requests state and actions here; it never writes durable state itself.
type Backend interface {
	Snapshot(ctx context.Context) (contract.BackendSnapshot, error)
	Events() <-chan contract.PushEvent

	StartStopwatch(ctx context.Context) error
	PauseStopwatch(ctx context.Context) error
	ResumeStopwatch(ctx context.Context) error
	ResetStopwatch(ctx context.Context) error
	LapStopwatch(ctx context.Context, label string) error

	StartPomodoro(ctx context.Context) error
	StopPomodoro(ctx context.Context) error
	SkipPhase(ctx context.Context) error
	ResetStats(ctx context.Context) error
}

// Option configures a Controller.
type Option func(*Controller)

func WithTickInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.tick = d
		}
	}
}

func WithObserver(obs Observer) Option {
	return func(c *Controller) { c.obs = observerOrNoop(obs) }
}

// WithClock overrides the wall-clock source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller is the composition root of the reconciliation core. All
// entity state is owned by its loop goroutine; external mutations arrive
// as posted commands, reads take the latest immutable projection.
type Controller struct {
	backend Backend
	obs     Observer
	now     func() time.Time
	tick    time.Duration

	// Loop-owned state. Only the Run goroutine touches these.
	alarms  map[string]domain.Alarm
	timers  map[string]domain.Timer
	watch   *stopwatch.Reconciler
	engine  *pomodoro.Engine
	notices []contract.Notice

	projection atomic.Pointer[contract.Projection]

	commands chan func()
	quit     chan struct{}
	loopDone chan struct{}

	lifeMu  sync.Mutex
	running bool
	closed  bool
}

func New(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:  backend,
		obs:      NoopObserver{},
		now:      time.Now,
		tick:     DefaultTickInterval,
		alarms:   make(map[string]domain.Alarm),
		timers:   make(map[string]domain.Timer),
		watch:    stopwatch.New(),
		engine:   pomodoro.New(domain.DefaultPomodoroConfig()),
		commands: make(chan func(), 16),
		quit:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.projection.Store(&contract.Projection{TakenAt: c.now()})
	return c
}

// Run loads the initial backend snapshot and drives the reconciliation
// loop until ctx is cancelled or Close is called. After it returns no
// further ticks or event callbacks touch controller state. Run after
// Close returns immediately without touching the backend.
func (c *Controller) Run(ctx context.Context) error {
	c.lifeMu.Lock()
	if c.closed {
		c.lifeMu.Unlock()
		return nil
	}
	c.running = true
	c.lifeMu.Unlock()
	defer close(c.loopDone)

	snap, err := c.backend.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("loading initial snapshot: %w", err)
	}
	c.restore(snap)
	c.publish(ctx)

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	events := c.backend.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.quit:
			return nil
		case cmd := <-c.commands:
			cmd()
			c.pass(ctx)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.safely(ctx, "route_event", func() { c.route(ctx, ev) })
			c.pass(ctx)
		case <-ticker.C:
			c.pass(ctx)
		}
	}
}

// Close tears the controller down deterministically. It is safe to call
// more than once and waits for the loop to stop. The lifecycle lock
// makes Close and Run order themselves: whichever acquires it first
// wins, so a Run racing Close either never starts or is fully waited
// out.
func (c *Controller) Close() {
	c.lifeMu.Lock()
	if !c.closed {
		c.closed = true
		close(c.quit)
	}
	running := c.running
	c.lifeMu.Unlock()
	if running {
		<-c.loopDone
	}
}

// Projection returns the latest immutable derived-state snapshot.
func (c *Controller) Projection() contract.Projection {
	return *c.projection.Load()
}

// Suspend tells the loop the host is about to suspend.
func (c *Controller) Suspend() { c.post(func() { c.engine.Suspend(c.now()) }) }

// ResumeFromSuspend tells the loop the host resumed; the next pass
// resolves any phase that elapsed while away.
func (c *Controller) ResumeFromSuspend() { c.post(func() { c.engine.Resume(c.now()) }) }

func (c *Controller) post(cmd func()) {
	select {
	case c.commands <- cmd:
	case <-c.loopDone:
	}
}

// Backend request passthroughs. Local state is never mutated here; the
// authoritative result arrives later as a push event. Destructive actions
// are confirmed-only by construction.

func (c *Controller) StartStopwatch(ctx context.Context) error {
	return c.request("start stopwatch", c.backend.StartStopwatch(ctx))
}

func (c *Controller) PauseStopwatch(ctx context.Context) error {
	return c.request("pause stopwatch", c.backend.PauseStopwatch(ctx))
}

func (c *Controller) ResumeStopwatch(ctx context.Context) error {
	return c.request("resume stopwatch", c.backend.ResumeStopwatch(ctx))
}

func (c *Controller) ResetStopwatch(ctx context.Context) error {
	return c.request("reset stopwatch", c.backend.ResetStopwatch(ctx))
}

func (c *Controller) LapStopwatch(ctx context.Context, label string) error {
	return c.request("lap stopwatch", c.backend.LapStopwatch(ctx, label))
}

func (c *Controller) StartPomodoro(ctx context.Context) error {
	return c.request("start pomodoro", c.backend.StartPomodoro(ctx))
}

func (c *Controller) StopPomodoro(ctx context.Context) error {
	return c.request("stop pomodoro", c.backend.StopPomodoro(ctx))
}

func (c *Controller) SkipPhase(ctx context.Context) error {
	return c.request("skip phase", c.backend.SkipPhase(ctx))
}

// ResetStats requests the destructive stats reset and zeroes the local
// mirror only after the backend confirms.
func (c *Controller) ResetStats(ctx context.Context) error {
	if err := c.request("reset stats", c.backend.ResetStats(ctx)); err != nil {
		return err
	}
	c.post(func() { c.engine.ConfirmStatsReset() })
	return nil
}

func (c *Controller) request(op string, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrBackendCall, err)
	}
	return nil
}

// restore rebuilds every tracked entity wholesale from an authoritative
// snapshot.
func (c *Controller) restore(snap contract.BackendSnapshot) {
	c.alarms = make(map[string]domain.Alarm, len(snap.Alarms))
	for _, a := range snap.Alarms {
		c.alarms[a.ID] = a
	}
	c.timers = make(map[string]domain.Timer, len(snap.Timers))
	for _, t := range snap.Timers {
		c.timers[t.ID] = t
	}
	c.watch = stopwatch.NewFromInterval(snap.Stopwatch)
	c.engine = pomodoro.New(snap.Config)
	c.engine.Restore(snap.Pomodoro)
	c.engine.SetStats(snap.Stats)
}

// route applies one push event to loop-owned state. Events referencing
// entities no longer tracked are stale: logged and dropped, never fatal.
func (c *Controller) route(ctx context.Context, ev contract.PushEvent) {
	switch ev.Kind {
	case contract.EventTriggerFired:
		c.routeTrigger(ctx, ev)

	case contract.EventTick:
		t, ok := c.timers[ev.ID]
		if !ok {
			c.dropStale(ctx, ev)
			return
		}
		// The backend tick is authoritative for the countdown endpoint.
		t.EndTime = c.now().Add(time.Duration(ev.RemainingMillis) * time.Millisecond)
		c.timers[ev.ID] = t

	case contract.EventPhaseChanged:
		if ev.Cycle == nil {
			c.dropStale(ctx, ev)
			return
		}
		c.engine.Restore(*ev.Cycle)
		if ev.Stats != nil {
			c.engine.SetStats(*ev.Stats)
		}

	case contract.EventSnapshotUpdated:
		c.routeSnapshotUpdate(ctx, ev)

	case contract.EventResyncRequired:
		// The backend dropped pushes; incremental state is suspect. Reload
		// wholesale, same as startup.
		snap, err := c.backend.Snapshot(ctx)
		if err != nil {
			c.obs.ObserveLoop(ctx, LoopEvent{
				Name: "resync_failed",
				At:   c.now(),
				Err:  err,
			})
			return
		}
		c.restore(snap)

	default:
		c.dropStale(ctx, ev)
		return
	}

	if ev.Notice != nil {
		c.notices = append(c.notices, *ev.Notice)
	}
}

func (c *Controller) routeTrigger(ctx context.Context, ev contract.PushEvent) {
	switch ev.TriggerKind {
	case domain.TriggerAlarm:
		if _, ok := c.alarms[ev.ID]; !ok {
			c.dropStale(ctx, ev)
			return
		}
	case domain.TriggerTimer:
		if _, ok := c.timers[ev.ID]; !ok {
			c.dropStale(ctx, ev)
			return
		}
		delete(c.timers, ev.ID)
	default:
		c.dropStale(ctx, ev)
		return
	}
	c.notices = append(c.notices, contract.Notice{
		Kind:  contract.NoticeTriggerFired,
		At:    c.now(),
		Label: ev.Label,
	})
}

func (c *Controller) routeSnapshotUpdate(ctx context.Context, ev contract.PushEvent) {
	switch ev.Entity {
	case contract.EntityAlarm:
		switch {
		case ev.Removed:
			if _, ok := c.alarms[ev.ID]; !ok {
				c.dropStale(ctx, ev)
				return
			}
			delete(c.alarms, ev.ID)
		case ev.Alarm != nil:
			c.alarms[ev.Alarm.ID] = *ev.Alarm
		default:
			c.dropStale(ctx, ev)
		}
	case contract.EntityTimer:
		switch {
		case ev.Removed:
			if _, ok := c.timers[ev.ID]; !ok {
				c.dropStale(ctx, ev)
				return
			}
			delete(c.timers, ev.ID)
		case ev.Timer != nil:
			c.timers[ev.Timer.ID] = *ev.Timer
		default:
			c.dropStale(ctx, ev)
		}
	case contract.EntityStopwatch:
		if ev.Interval == nil {
			c.dropStale(ctx, ev)
			return
		}
		c.watch = stopwatch.NewFromInterval(*ev.Interval)
	case contract.EntityPomodoro:
		if ev.Cycle == nil {
			c.dropStale(ctx, ev)
			return
		}
		c.engine.Restore(*ev.Cycle)
	case contract.EntityStats:
		if ev.Stats == nil {
			c.dropStale(ctx, ev)
			return
		}
		c.engine.SetStats(*ev.Stats)
	default:
		c.dropStale(ctx, ev)
	}
}

func (c *Controller) dropStale(ctx context.Context, ev contract.PushEvent) {
	c.obs.ObserveLoop(ctx, LoopEvent{
		Name: "stale_event_dropped",
		At:   c.now(),
		Fields: map[string]any{
			"kind":   string(ev.Kind),
			"entity": string(ev.Entity),
			"id":     ev.ID,
		},
	})
}

// pass runs one reconciliation pass: resolve elapsed phases and the
// stopwatch ceiling, then publish a fresh projection. Each derivation is
// isolated so one malformed entity cannot stall ticking for the others.
func (c *Controller) pass(ctx context.Context) {
	now := c.now()

	c.safely(ctx, "pomodoro_reconcile", func() {
		for _, change := range c.engine.Reconcile(now) {
			if change.Missed {
				c.notices = append(c.notices, contract.Notice{
					Kind: contract.NoticePhaseMissed,
					At:   change.At,
				})
			}
		}
	})

	c.safely(ctx, "stopwatch_ceiling", func() {
		for range c.watch.CheckAutoReset(now) {
			c.notices = append(c.notices, contract.Notice{
				Kind: contract.NoticeAutoResetTriggered,
				At:   now,
			})
		}
	})

	c.publish(ctx)
}

// publish derives and atomically swaps in a new immutable projection.
// Pending notices ride out on exactly one projection.
func (c *Controller) publish(ctx context.Context) {
	now := c.now()
	proj := &contract.Projection{
		TakenAt: now,
		Notices: c.notices,
	}
	c.notices = nil

	for _, a := range c.alarms {
		alarm := a
		c.safely(ctx, "derive_alarm", func() {
			proj.Alarms = append(proj.Alarms, c.deriveAlarm(ctx, alarm, now))
		})
	}
	sort.Slice(proj.Alarms, func(i, j int) bool {
		ai, aj := proj.Alarms[i], proj.Alarms[j]
		if ai.Time.MinuteOfDay() != aj.Time.MinuteOfDay() {
			return ai.Time.MinuteOfDay() < aj.Time.MinuteOfDay()
		}
		return ai.ID < aj.ID
	})

	for _, t := range c.timers {
		proj.Timers = append(proj.Timers, contract.TimerView{
			ID:              t.ID,
			Label:           t.Label,
			RemainingMillis: t.Remaining(now).Milliseconds(),
		})
	}
	sort.Slice(proj.Timers, func(i, j int) bool {
		if proj.Timers[i].RemainingMillis != proj.Timers[j].RemainingMillis {
			return proj.Timers[i].RemainingMillis < proj.Timers[j].RemainingMillis
		}
		return proj.Timers[i].ID < proj.Timers[j].ID
	})

	proj.Stopwatch = contract.StopwatchView{
		Status:        c.watch.Status(),
		ElapsedMillis: c.watch.DisplayedElapsed(now),
		Laps:          c.watch.Laps(),
		LapText:       c.watch.LapsAsText(),
	}

	proj.Pomodoro = contract.PomodoroView{
		Phase:           c.engine.Phase(),
		SessionIndex:    c.engine.SessionIndex(),
		CycleIndex:      c.engine.CycleIndex(),
		RemainingMillis: c.engine.Remaining(now).Milliseconds(),
		IsLongBreakNext: c.engine.IsLongBreakNext(),
		Stats:           c.engine.Stats(),
	}

	c.projection.Store(proj)
}

// deriveAlarm recomputes the next-occurrence phrase on every pass, which
// also covers the day-boundary rollover of "Today"/"Tomorrow".
func (c *Controller) deriveAlarm(ctx context.Context, a domain.Alarm, now time.Time) contract.AlarmView {
	view := contract.AlarmView{
		ID:      a.ID,
		Label:   a.Label,
		Time:    a.Time,
		Enabled: a.Enabled,
		Snoozed: a.SnoozedUntil != nil && a.SnoozedUntil.After(now),
	}
	if !a.Enabled {
		return view
	}
	next, err := recurrence.NextOccurrence(a.Time, a.Recurrence, now)
	if err != nil {
		// Malformed entity: shown without a next-occurrence phrase, the
		// rest of the pass proceeds.
		c.obs.ObserveLoop(ctx, LoopEvent{
			Name:   "derivation_failed",
			At:     now,
			Fields: map[string]any{"derivation": "alarm_next", "id": a.ID},
			Err:    err,
		})
		return view
	}
	view.NextText = nextPhrase(next)
	return view
}

func nextPhrase(n recurrence.Next) string {
	switch n.When {
	case recurrence.WhenToday:
		return "Today"
	case recurrence.WhenTomorrow:
		return "Tomorrow"
	case recurrence.WhenWeekday:
		return domain.WeekdayName(n.Weekday)
	default:
		return "Next week"
	}
}

// safely isolates one per-entity derivation so a panic is reported to the
// observer instead of killing the loop.
func (c *Controller) safely(ctx context.Context, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.obs.ObserveLoop(ctx, LoopEvent{
				Name:   "derivation_failed",
				At:     c.now(),
				Fields: map[string]any{"derivation": name},
				Err:    fmt.Errorf("recovered: %v", r),
			})
		}
	}()
	fn()
}
