package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alexanderramin/tempus/internal/contract"
	"github.com/alexanderramin/tempus/internal/domain"
	"github.com/alexanderramin/tempus/internal/pomodoro"
	"github.com/alexanderramin/tempus/internal/recurrence"
	"github.com/alexanderramin/tempus/internal/stopwatch"
)

// ErrInvalidDuration indicates a non-positive timer or snooze duration.
var ErrInvalidDuration = errors.New("duration must be positive")

const (
	// triggerGrace is how far past its instant an alarm may still fire.
	// A process that was asleep across the exact minute catches up within
	// this window; beyond it the occurrence is considered missed.
	triggerGrace = 90 * time.Second

	// retriggerSuppression keeps an alarm from firing twice for the same
	// occurrence when checks straddle the grace window.
	retriggerSuppression = 120 * time.Second

	defaultCheckInterval = time.Second
)

// LocalOption configures a Local backend.
type LocalOption func(*Local)

// WithLocalClock overrides the wall-clock source, for tests.
func WithLocalClock(now func() time.Time) LocalOption {
	return func(l *Local) {
		if now != nil {
			l.now = now
		}
	}
}

func WithPomodoroConfig(cfg domain.PomodoroConfig) LocalOption {
	return func(l *Local) { l.cfg = cfg.Normalized() }
}

func WithCheckInterval(d time.Duration) LocalOption {
	return func(l *Local) {
		if d > 0 {
			l.checkInterval = d
		}
	}
}

// Local is the in-process schedule backend: it owns the authoritative
// alarm, timer, stopwatch, and Pomodoro state, persists the durable parts
// in SQLite, and pushes change events to the reconciliation loop.
type Local struct {
	store *Store
	now   func() time.Time
	cfg   domain.PomodoroConfig

	checkInterval time.Duration

	mu         sync.Mutex
	alarms     map[string]domain.Alarm
	timers     map[string]domain.Timer
	watch      *stopwatch.Reconciler
	engine     *pomodoro.Engine
	phaseStart time.Time

	events    chan contract.PushEvent
	dropped   atomic.Bool
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// OpenLocal opens the SQLite database at path, loads the persisted
// schedule, and starts the periodic due-check loop. Timers that expired
// while the process was away are pruned rather than fired late.
func OpenLocal(ctx context.Context, path string, opts ...LocalOption) (*Local, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	l := &Local{
		store:         NewStore(db),
		now:           time.Now,
		cfg:           domain.DefaultPomodoroConfig(),
		checkInterval: defaultCheckInterval,
		alarms:        make(map[string]domain.Alarm),
		timers:        make(map[string]domain.Timer),
		watch:         stopwatch.New(),
		events:        make(chan contract.PushEvent, 32),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.engine = pomodoro.New(l.cfg)

	if err := l.store.EnsureDefaultPresets(ctx); err != nil {
		db.Close()
		return nil, err
	}

	alarms, err := l.store.ListAlarms(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, a := range alarms {
		l.alarms[a.ID] = a
	}

	now := l.now()
	timers, err := l.store.ListTimers(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	for _, t := range timers {
		if !t.EndTime.After(now) {
			if err := l.store.DeleteTimer(ctx, t.ID); err != nil && !errors.Is(err, ErrNotFound) {
				db.Close()
				return nil, err
			}
			continue
		}
		l.timers[t.ID] = t
	}

	stats, err := l.store.LoadStats(ctx, now)
	if err != nil {
		db.Close()
		return nil, err
	}
	l.engine.SetStats(stats)

	cycle, err := l.store.LoadCycle(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	if cycle.Phase != "" && cycle.Phase != domain.PhaseIdle {
		l.engine.Restore(cycle)
		l.phaseStart = now
	}

	go l.checkLoop()
	return l, nil
}

// Close stops the due-check loop, closes the event stream, and closes the
// database. Safe to call more than once.
func (l *Local) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.quit)
		<-l.done
		close(l.events)
		err = l.store.db.Close()
	})
	return err
}

// Events returns the push stream. Events are dropped, never blocked on,
// when the consumer falls behind; the next check pass then pushes a
// resync event so the consumer reloads the full snapshot.
func (l *Local) Events() <-chan contract.PushEvent {
	return l.events
}

func (l *Local) emit(ev contract.PushEvent) {
	select {
	case l.events <- ev:
	default:
		l.dropped.Store(true)
	}
}

// Config returns the Pomodoro cycle configuration in effect.
func (l *Local) Config() domain.PomodoroConfig { return l.cfg }

// Snapshot assembles the full authoritative state.
func (l *Local) Snapshot(ctx context.Context) (contract.BackendSnapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := contract.BackendSnapshot{
		TakenAt:   l.now(),
		Alarms:    make([]domain.Alarm, 0, len(l.alarms)),
		Timers:    make([]domain.Timer, 0, len(l.timers)),
		Stopwatch: l.watch.Interval(),
		Pomodoro:  l.engine.Cycle(),
		Stats:     l.engine.Stats(),
		Config:    l.cfg,
	}
	for _, a := range l.alarms {
		snap.Alarms = append(snap.Alarms, a)
	}
	for _, t := range l.timers {
		snap.Timers = append(snap.Timers, t)
	}
	return snap, nil
}

// Alarm operations.

func (l *Local) CreateAlarm(ctx context.Context, label string, at domain.TimeOfDay, rec domain.Recurrence) (domain.Alarm, error) {
	if err := at.Validate(); err != nil {
		return domain.Alarm{}, err
	}
	a := domain.Alarm{
		ID:         uuid.NewString(),
		Label:      label,
		Time:       at,
		Recurrence: rec,
		Enabled:    true,
		CreatedAt:  l.now(),
	}
	if err := l.store.PutAlarm(ctx, a); err != nil {
		return domain.Alarm{}, err
	}
	l.mu.Lock()
	l.alarms[a.ID] = a
	l.mu.Unlock()
	l.emitAlarm(a)
	return a, nil
}

// UpdateAlarm replaces an alarm's schedule. Editing re-enables the alarm
// and discards any pending snooze, matching what a user expects after
// changing the time.
func (l *Local) UpdateAlarm(ctx context.Context, id, label string, at domain.TimeOfDay, rec domain.Recurrence) (domain.Alarm, error) {
	if err := at.Validate(); err != nil {
		return domain.Alarm{}, err
	}
	l.mu.Lock()
	a, ok := l.alarms[id]
	l.mu.Unlock()
	if !ok {
		return domain.Alarm{}, fmt.Errorf("alarm %s: %w", id, ErrNotFound)
	}
	a.Label = label
	a.Time = at
	a.Recurrence = rec
	a.Enabled = true
	a.SnoozedUntil = nil
	a.LastTriggered = nil
	if err := l.store.PutAlarm(ctx, a); err != nil {
		return domain.Alarm{}, err
	}
	l.mu.Lock()
	l.alarms[a.ID] = a
	l.mu.Unlock()
	l.emitAlarm(a)
	return a, nil
}

func (l *Local) DeleteAlarm(ctx context.Context, id string) error {
	if err := l.store.DeleteAlarm(ctx, id); err != nil {
		return err
	}
	l.mu.Lock()
	delete(l.alarms, id)
	l.mu.Unlock()
	l.emit(contract.PushEvent{
		Kind:    contract.EventSnapshotUpdated,
		Entity:  contract.EntityAlarm,
		ID:      id,
		Removed: true,
	})
	return nil
}

// ToggleAlarm flips the enabled flag and returns the new value. Disabling
// discards a pending snooze.
func (l *Local) ToggleAlarm(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	a, ok := l.alarms[id]
	l.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("alarm %s: %w", id, ErrNotFound)
	}
	a.Enabled = !a.Enabled
	a.SnoozedUntil = nil
	if err := l.store.PutAlarm(ctx, a); err != nil {
		return false, err
	}
	l.mu.Lock()
	l.alarms[a.ID] = a
	l.mu.Unlock()
	l.emitAlarm(a)
	return a.Enabled, nil
}

// SnoozeAlarm postpones the next firing by the given interval and
// re-enables the alarm if it was disabled by a one-shot trigger.
func (l *Local) SnoozeAlarm(ctx context.Context, id string, d time.Duration) (domain.Alarm, error) {
	if d <= 0 {
		return domain.Alarm{}, fmt.Errorf("snooze: %w", ErrInvalidDuration)
	}
	l.mu.Lock()
	a, ok := l.alarms[id]
	l.mu.Unlock()
	if !ok {
		return domain.Alarm{}, fmt.Errorf("alarm %s: %w", id, ErrNotFound)
	}
	until := l.now().Add(d)
	a.SnoozedUntil = &until
	a.Enabled = true
	if err := l.store.PutAlarm(ctx, a); err != nil {
		return domain.Alarm{}, err
	}
	l.mu.Lock()
	l.alarms[a.ID] = a
	l.mu.Unlock()
	l.emitAlarm(a)
	return a, nil
}

func (l *Local) Alarms(ctx context.Context) ([]domain.Alarm, error) {
	return l.store.ListAlarms(ctx)
}

func (l *Local) emitAlarm(a domain.Alarm) {
	alarm := a
	l.emit(contract.PushEvent{
		Kind:   contract.EventSnapshotUpdated,
		Entity: contract.EntityAlarm,
		ID:     a.ID,
		Alarm:  &alarm,
	})
}

// Timer operations.

func (l *Local) CreateTimer(ctx context.Context, label string, d time.Duration) (domain.Timer, error) {
	if d <= 0 {
		return domain.Timer{}, fmt.Errorf("timer: %w", ErrInvalidDuration)
	}
	now := l.now()
	t := domain.Timer{
		ID:        uuid.NewString(),
		Label:     label,
		Duration:  d,
		EndTime:   now.Add(d),
		CreatedAt: now,
	}
	if err := l.store.PutTimer(ctx, t); err != nil {
		return domain.Timer{}, err
	}
	l.mu.Lock()
	l.timers[t.ID] = t
	l.mu.Unlock()
	timer := t
	l.emit(contract.PushEvent{
		Kind:   contract.EventSnapshotUpdated,
		Entity: contract.EntityTimer,
		ID:     t.ID,
		Timer:  &timer,
	})
	return t, nil
}

func (l *Local) CancelTimer(ctx context.Context, id string) error {
	if err := l.store.DeleteTimer(ctx, id); err != nil {
		return err
	}
	l.mu.Lock()
	delete(l.timers, id)
	l.mu.Unlock()
	l.emit(contract.PushEvent{
		Kind:    contract.EventSnapshotUpdated,
		Entity:  contract.EntityTimer,
		ID:      id,
		Removed: true,
	})
	return nil
}

// Preset operations delegate straight to the store.

func (l *Local) Presets(ctx context.Context) ([]domain.Preset, error) {
	return l.store.ListPresets(ctx)
}

func (l *Local) SavePreset(ctx context.Context, p domain.Preset) error {
	if p.Seconds <= 0 {
		return fmt.Errorf("preset: %w", ErrInvalidDuration)
	}
	return l.store.SavePreset(ctx, p)
}

func (l *Local) DeletePreset(ctx context.Context, id string) error {
	return l.store.DeletePreset(ctx, id)
}

// Stopwatch operations.

func (l *Local) StartStopwatch(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.watch.Start(l.now()); err != nil {
		return err
	}
	l.emitStopwatch(nil)
	return nil
}

func (l *Local) PauseStopwatch(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.watch.Pause(l.now()); err != nil {
		return err
	}
	l.emitStopwatch(nil)
	return nil
}

func (l *Local) ResumeStopwatch(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.watch.Resume(l.now()); err != nil {
		return err
	}
	l.emitStopwatch(nil)
	return nil
}

func (l *Local) ResetStopwatch(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.watch.Reset(); err != nil {
		return err
	}
	l.emitStopwatch(nil)
	return nil
}

func (l *Local) LapStopwatch(ctx context.Context, label string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	_, signals, err := l.watch.Lap(label, now)
	if err != nil {
		return err
	}
	var notice *contract.Notice
	for _, sig := range signals {
		if sig == stopwatch.SignalLapCapacityReached {
			notice = &contract.Notice{
				Kind:  contract.NoticeLapCapacityReached,
				At:    now,
				Label: label,
			}
		}
	}
	l.emitStopwatch(notice)
	return nil
}

// emitStopwatch pushes the current interval wholesale. Caller holds mu.
func (l *Local) emitStopwatch(notice *contract.Notice) {
	interval := l.watch.Interval()
	l.emit(contract.PushEvent{
		Kind:     contract.EventSnapshotUpdated,
		Entity:   contract.EntityStopwatch,
		Interval: &interval,
		Notice:   notice,
	})
}

// Pomodoro operations.

func (l *Local) StartPomodoro(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if err := l.engine.Start(now); err != nil {
		return err
	}
	l.phaseStart = now
	l.saveCycle(ctx)
	l.emitCycle()
	return nil
}

// StopPomodoro returns the cycle to idle. Time spent in the abandoned
// phase still counts toward the daily totals, without a completed session.
func (l *Local) StopPomodoro(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	phase := l.engine.Phase()
	if phase != domain.PhaseIdle {
		l.recordPartial(ctx, phase, now)
	}
	l.engine.Stop()
	l.saveCycle(ctx)
	l.emitCycle()
	return nil
}

func (l *Local) SkipPhase(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	phase := l.engine.Phase()
	change := l.engine.Skip(now)
	if change == nil {
		return nil
	}
	l.recordPartial(ctx, phase, now)
	l.phaseStart = now
	l.saveCycle(ctx)
	l.emit(contract.PushEvent{
		Kind:   contract.EventPhaseChanged,
		Entity: contract.EntityPomodoro,
		Cycle:  cyclePtr(l.engine.Cycle()),
		Stats:  statsPtr(l.engine.Stats()),
	})
	return nil
}

// ResetStats wipes all persisted Pomodoro history. The in-flight cycle is
// untouched.
func (l *Local) ResetStats(ctx context.Context) error {
	if err := l.store.ResetStats(ctx); err != nil {
		return err
	}
	l.mu.Lock()
	l.engine.SetStats(domain.PomodoroStats{})
	stats := l.engine.Stats()
	l.mu.Unlock()
	l.emit(contract.PushEvent{
		Kind:   contract.EventSnapshotUpdated,
		Entity: contract.EntityStats,
		Stats:  &stats,
	})
	return nil
}

// recordPartial persists the elapsed slice of an interrupted phase.
// Caller holds mu.
func (l *Local) recordPartial(ctx context.Context, phase domain.Phase, now time.Time) {
	if l.phaseStart.IsZero() {
		return
	}
	elapsed := int64(now.Sub(l.phaseStart) / time.Second)
	if elapsed <= 0 {
		return
	}
	day := now.Format(dayFormat)
	var err error
	if phase == domain.PhaseWork {
		err = l.store.RecordPhase(ctx, day, elapsed, 0, 0, 0)
	} else {
		err = l.store.RecordPhase(ctx, day, 0, elapsed, 0, 0)
	}
	if err == nil {
		l.refreshStats(ctx, now)
	}
}

// recordCompleted persists one naturally finished phase. Caller holds mu.
func (l *Local) recordCompleted(ctx context.Context, change pomodoro.PhaseChange) {
	day := change.At.Format(dayFormat)
	var err error
	switch change.From {
	case domain.PhaseWork:
		err = l.store.RecordPhase(ctx, day, int64(l.cfg.WorkDuration/time.Second), 0, 1, 0)
	case domain.PhaseShortBreak:
		err = l.store.RecordPhase(ctx, day, 0, int64(l.cfg.ShortBreakDuration/time.Second), 0, 0)
	case domain.PhaseLongBreak:
		err = l.store.RecordPhase(ctx, day, 0, int64(l.cfg.LongBreakDuration/time.Second), 0, 1)
	}
	if err == nil {
		l.refreshStats(ctx, change.At)
	}
}

// saveCycle persists the in-flight cycle as recovery state. Best effort:
// the in-memory engine stays authoritative either way. Caller holds mu.
func (l *Local) saveCycle(ctx context.Context) {
	_ = l.store.SaveCycle(ctx, l.engine.Cycle())
}

// refreshStats reloads cumulative stats so streak math stays store-owned.
// Caller holds mu.
func (l *Local) refreshStats(ctx context.Context, now time.Time) {
	stats, err := l.store.LoadStats(ctx, now)
	if err != nil {
		return
	}
	l.engine.SetStats(stats)
}

// emitCycle pushes the current Pomodoro cycle. Caller holds mu.
func (l *Local) emitCycle() {
	l.emit(contract.PushEvent{
		Kind:   contract.EventPhaseChanged,
		Entity: contract.EntityPomodoro,
		Cycle:  cyclePtr(l.engine.Cycle()),
		Stats:  statsPtr(l.engine.Stats()),
	})
}

func cyclePtr(c domain.PomodoroCycle) *domain.PomodoroCycle { return &c }
func statsPtr(s domain.PomodoroStats) *domain.PomodoroStats { return &s }

// checkLoop is the due-check ticker: alarms, timer expiry, and phase ends
// are all evaluated against the wall clock once per interval.
func (l *Local) checkLoop() {
	defer close(l.done)
	ticker := time.NewTicker(l.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.quit:
			return
		case <-ticker.C:
			l.check(context.Background())
		}
	}
}

func (l *Local) check(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()

	// Events lost to a full stream invalidate all incremental state
	// downstream. Keep retrying the resync marker until it fits.
	if l.dropped.Load() {
		select {
		case l.events <- contract.PushEvent{Kind: contract.EventResyncRequired}:
			l.dropped.Store(false)
		default:
		}
	}

	l.checkAlarms(ctx, now)
	l.checkTimers(ctx, now)

	// Runtime ceiling. The reconciliation loop derives its own notice from
	// the same rule; here only the durable state converges.
	if signals := l.watch.CheckAutoReset(now); len(signals) > 0 {
		l.emitStopwatch(nil)
	}

	changes := l.engine.Reconcile(now)
	for _, change := range changes {
		l.recordCompleted(ctx, change)
		l.phaseStart = change.At
		l.emit(contract.PushEvent{
			Kind:   contract.EventPhaseChanged,
			Entity: contract.EntityPomodoro,
			Cycle:  cyclePtr(l.engine.Cycle()),
			Stats:  statsPtr(l.engine.Stats()),
		})
	}
	if len(changes) > 0 {
		l.saveCycle(ctx)
	}
}

func (l *Local) checkAlarms(ctx context.Context, now time.Time) {
	for id, a := range l.alarms {
		if !a.Enabled {
			continue
		}
		if a.SnoozedUntil != nil && now.Sub(*a.SnoozedUntil) > triggerGrace {
			// Snooze instant missed entirely, e.g. across a long host
			// sleep. Clear it so the regular schedule applies again.
			a.SnoozedUntil = nil
			if err := l.store.PutAlarm(ctx, a); err != nil {
				continue
			}
			l.alarms[id] = a
			l.emitAlarm(a)
		}
		due := dueInstant(a, now)
		if due == nil {
			continue
		}
		if a.LastTriggered != nil && now.Sub(*a.LastTriggered) < retriggerSuppression {
			continue
		}

		fired := a
		triggered := now
		fired.LastTriggered = &triggered
		fired.SnoozedUntil = nil
		if fired.Recurrence.Kind == domain.RecurOnce {
			fired.Enabled = false
		}
		if err := l.store.PutAlarm(ctx, fired); err != nil {
			continue
		}
		l.alarms[id] = fired

		l.emit(contract.PushEvent{
			Kind:        contract.EventTriggerFired,
			Entity:      contract.EntityAlarm,
			ID:          fired.ID,
			TriggerKind: domain.TriggerAlarm,
			Label:       fired.Label,
		})
		l.emitAlarm(fired)
	}
}

func (l *Local) checkTimers(ctx context.Context, now time.Time) {
	for id, t := range l.timers {
		if t.EndTime.After(now) {
			l.emit(contract.PushEvent{
				Kind:            contract.EventTick,
				Entity:          contract.EntityTimer,
				ID:              id,
				RemainingMillis: t.Remaining(now).Milliseconds(),
			})
			continue
		}
		delete(l.timers, id)
		if err := l.store.DeleteTimer(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
			continue
		}
		l.emit(contract.PushEvent{
			Kind:        contract.EventTriggerFired,
			Entity:      contract.EntityTimer,
			ID:          id,
			TriggerKind: domain.TriggerTimer,
			Label:       t.Label,
		})
	}
}

// dueInstant returns the occurrence instant currently inside the grace
// window, or nil when nothing is due. A pending snooze overrides the
// schedule entirely.
func dueInstant(a domain.Alarm, now time.Time) *time.Time {
	if a.SnoozedUntil != nil {
		t := *a.SnoozedUntil
		if !now.Before(t) && now.Sub(t) <= triggerGrace {
			return &t
		}
		return nil
	}

	candidate := time.Date(now.Year(), now.Month(), now.Day(),
		a.Time.Hour, a.Time.Minute, 0, 0, now.Location())
	if now.Before(candidate) || now.Sub(candidate) > triggerGrace {
		return nil
	}
	if a.Recurrence.Kind != domain.RecurOnce {
		days := recurrence.EffectiveDays(a.Recurrence)
		if !days[recurrence.TodayIndex(now)] {
			return nil
		}
	}
	return &candidate
}
