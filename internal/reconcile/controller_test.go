package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/tempus/internal/contract"
	"github.com/alexanderramin/tempus/internal/domain"
	"github.com/alexanderramin/tempus/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	poll    = 2 * time.Millisecond
)

// Wednesday 14:00.
var t0 = time.Date(2025, 3, 19, 14, 0, 0, 0, time.UTC)

// capturingObserver records loop events for assertions.
type capturingObserver struct {
	mu     sync.Mutex
	events []LoopEvent
}

func (o *capturingObserver) ObserveLoop(_ context.Context, ev LoopEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *capturingObserver) named(name string) []LoopEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []LoopEvent
	for _, ev := range o.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// startController runs a controller over the fake backend with a manual
// clock and a tick interval long enough that passes happen only on
// events and posted commands, keeping tests deterministic.
func startController(t *testing.T, clock *testutil.Clock, backend *testutil.FakeBackend, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{
		WithClock(clock.Now),
		WithTickInterval(time.Hour),
	}, opts...)
	c := New(backend, opts...)
	initial := c.projection.Load()

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()
	t.Cleanup(func() {
		c.Close()
		require.NoError(t, <-done)
	})

	// Wait for the initial snapshot pass. The constructor pre-publishes a
	// projection stamped with the same fake-clock instant, so comparing
	// TakenAt cannot distinguish it from the snapshot pass; wait for the
	// projection pointer to be swapped instead.
	require.Eventually(t, func() bool {
		return c.projection.Load() != initial
	}, waitFor, poll)
	return c
}

func baseSnapshot(clock *testutil.Clock) contract.BackendSnapshot {
	return contract.BackendSnapshot{
		TakenAt:  clock.Now(),
		Pomodoro: domain.PomodoroCycle{Phase: domain.PhaseIdle},
		Config:   domain.DefaultPomodoroConfig(),
	}
}

func TestRun_InitialSnapshotProjected(t *testing.T) {
	clock := testutil.NewClock(t0)
	snap := baseSnapshot(clock)
	snap.Alarms = []domain.Alarm{
		testutil.NewTestAlarm("wake", testutil.WithAlarmTime(15, 0)),
		testutil.NewTestAlarm("gym", testutil.WithAlarmTime(6, 0),
			testutil.WithRecurrence(domain.Recurrence{Kind: domain.RecurWeekdays})),
	}
	snap.Timers = []domain.Timer{testutil.NewTestTimer("tea", 5*time.Minute, t0)}
	snap.Stats = domain.PomodoroStats{FocusSeconds: 1200}

	c := startController(t, clock, testutil.NewFakeBackend(snap))

	proj := c.Projection()
	require.Len(t, proj.Alarms, 2)
	assert.Equal(t, "gym", proj.Alarms[0].Label, "alarms sorted by time of day")
	assert.Equal(t, "Tomorrow", proj.Alarms[0].NextText, "06:00 weekday alarm already passed on Wednesday afternoon")
	assert.Equal(t, "Today", proj.Alarms[1].NextText)

	require.Len(t, proj.Timers, 1)
	assert.Equal(t, int64(5*60*1000), proj.Timers[0].RemainingMillis)

	assert.Equal(t, domain.IntervalIdle, proj.Stopwatch.Status)
	assert.Equal(t, int64(1200), proj.Pomodoro.Stats.FocusSeconds)
}

func TestRun_InitialSnapshotFailureReturnsError(t *testing.T) {
	backend := testutil.NewFakeBackend(contract.BackendSnapshot{})
	backend.FailSnapshot(errors.New("backend gone"))

	c := New(backend, WithTickInterval(time.Hour))
	err := c.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial snapshot")
}

func TestStaleEvent_LoggedAndDropped(t *testing.T) {
	clock := testutil.NewClock(t0)
	backend := testutil.NewFakeBackend(baseSnapshot(clock))
	obs := &capturingObserver{}
	c := startController(t, clock, backend, WithObserver(obs))

	backend.Push(contract.PushEvent{
		Kind: contract.EventTick, ID: "no-such-timer", RemainingMillis: 1000,
	})

	require.Eventually(t, func() bool {
		return len(obs.named("stale_event_dropped")) == 1
	}, waitFor, poll)
	assert.Empty(t, c.Projection().Timers, "stale tick must not create state")
}

func TestTriggerFired_RemovesTimerAndRaisesOneNotice(t *testing.T) {
	clock := testutil.NewClock(t0)
	snap := baseSnapshot(clock)
	timer := testutil.NewTestTimer("tea", time.Minute, t0)
	snap.Timers = []domain.Timer{timer}
	backend := testutil.NewFakeBackend(snap)
	c := startController(t, clock, backend)

	clock.Advance(time.Minute)
	backend.Push(contract.PushEvent{
		Kind:        contract.EventTriggerFired,
		TriggerKind: domain.TriggerTimer,
		ID:          timer.ID,
		Label:       "tea",
	})

	require.Eventually(t, func() bool {
		return len(c.Projection().Timers) == 0
	}, waitFor, poll)

	proj := c.Projection()
	require.Len(t, proj.Notices, 1, "notice rides exactly one projection")
	assert.Equal(t, contract.NoticeTriggerFired, proj.Notices[0].Kind)
	assert.Equal(t, "tea", proj.Notices[0].Label)
}

func TestSnapshotUpdated_ReplacesEntityWholesale(t *testing.T) {
	clock := testutil.NewClock(t0)
	snap := baseSnapshot(clock)
	alarm := testutil.NewTestAlarm("wake", testutil.WithAlarmTime(15, 0))
	snap.Alarms = []domain.Alarm{alarm}
	backend := testutil.NewFakeBackend(snap)
	c := startController(t, clock, backend)

	updated := alarm
	updated.Time = domain.TimeOfDay{Hour: 13, Minute: 0}
	backend.Push(contract.PushEvent{
		Kind:   contract.EventSnapshotUpdated,
		Entity: contract.EntityAlarm,
		Alarm:  &updated,
	})

	require.Eventually(t, func() bool {
		proj := c.Projection()
		return len(proj.Alarms) == 1 && proj.Alarms[0].NextText == "Tomorrow"
	}, waitFor, poll)

	backend.Push(contract.PushEvent{
		Kind:    contract.EventSnapshotUpdated,
		Entity:  contract.EntityAlarm,
		ID:      alarm.ID,
		Removed: true,
	})
	require.Eventually(t, func() bool {
		return len(c.Projection().Alarms) == 0
	}, waitFor, poll)
}

func TestPhaseChanged_RestoresEngineState(t *testing.T) {
	clock := testutil.NewClock(t0)
	backend := testutil.NewFakeBackend(baseSnapshot(clock))
	c := startController(t, clock, backend)

	end := t0.Add(25 * time.Minute)
	backend.Push(contract.PushEvent{
		Kind: contract.EventPhaseChanged,
		Cycle: &domain.PomodoroCycle{
			Phase:         domain.PhaseWork,
			SessionIndex:  4,
			CycleIndex:    1,
			PhaseEndEpoch: &end,
		},
	})

	require.Eventually(t, func() bool {
		return c.Projection().Pomodoro.Phase == domain.PhaseWork
	}, waitFor, poll)

	proj := c.Projection()
	assert.Equal(t, 4, proj.Pomodoro.SessionIndex)
	assert.True(t, proj.Pomodoro.IsLongBreakNext, "session 4 of 4 precedes the long break")
	assert.Equal(t, (25 * time.Minute).Milliseconds(), proj.Pomodoro.RemainingMillis)
}

func TestSuspendContinue_MissedPhaseNoticeAfterResume(t *testing.T) {
	clock := testutil.NewClock(t0)
	snap := baseSnapshot(clock)
	cfg := domain.DefaultPomodoroConfig()
	cfg.SuspendBehavior = domain.SuspendContinue
	snap.Config = cfg
	end := t0.Add(25 * time.Minute)
	snap.Pomodoro = domain.PomodoroCycle{
		Phase: domain.PhaseWork, SessionIndex: 1, CycleIndex: 1, PhaseEndEpoch: &end,
	}
	backend := testutil.NewFakeBackend(snap)
	c := startController(t, clock, backend)

	c.Suspend()
	clock.Advance(40 * time.Minute) // work phase elapses while away
	c.ResumeFromSuspend()

	require.Eventually(t, func() bool {
		return c.Projection().Pomodoro.Phase == domain.PhaseShortBreak
	}, waitFor, poll)

	proj := c.Projection()
	require.Len(t, proj.Notices, 1)
	assert.Equal(t, contract.NoticePhaseMissed, proj.Notices[0].Kind)
}

func TestBackendFailure_SurfacedAndLocalStateUnchanged(t *testing.T) {
	clock := testutil.NewClock(t0)
	snap := baseSnapshot(clock)
	snap.Stats = domain.PomodoroStats{FocusSeconds: 999}
	backend := testutil.NewFakeBackend(snap)
	backend.FailOp("reset_stats", errors.New("io error"))
	c := startController(t, clock, backend)

	err := c.ResetStats(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendCall)
	assert.Equal(t, int64(999), c.Projection().Pomodoro.Stats.FocusSeconds,
		"destructive action must not be applied optimistically")
}

func TestResetStats_ConfirmedZeroesMirror(t *testing.T) {
	clock := testutil.NewClock(t0)
	snap := baseSnapshot(clock)
	snap.Stats = domain.PomodoroStats{FocusSeconds: 999}
	backend := testutil.NewFakeBackend(snap)
	c := startController(t, clock, backend)

	require.NoError(t, c.ResetStats(context.Background()))
	require.Eventually(t, func() bool {
		return c.Projection().Pomodoro.Stats.FocusSeconds == 0
	}, waitFor, poll)
	assert.Equal(t, []string{"reset_stats"}, backend.Calls())
}

func TestRequests_PassThroughToBackend(t *testing.T) {
	clock := testutil.NewClock(t0)
	backend := testutil.NewFakeBackend(baseSnapshot(clock))
	c := startController(t, clock, backend)
	ctx := context.Background()

	require.NoError(t, c.StartStopwatch(ctx))
	require.NoError(t, c.LapStopwatch(ctx, "split"))
	require.NoError(t, c.PauseStopwatch(ctx))
	require.NoError(t, c.ResumeStopwatch(ctx))
	require.NoError(t, c.ResetStopwatch(ctx))
	require.NoError(t, c.StartPomodoro(ctx))
	require.NoError(t, c.SkipPhase(ctx))
	require.NoError(t, c.StopPomodoro(ctx))

	assert.Equal(t, []string{
		"start_stopwatch", "lap_stopwatch:split", "pause_stopwatch",
		"resume_stopwatch", "reset_stopwatch", "start_pomodoro",
		"skip_phase", "stop_pomodoro",
	}, backend.Calls())
}

func TestClose_NoFurtherDerivationsAfterTeardown(t *testing.T) {
	clock := testutil.NewClock(t0)
	backend := testutil.NewFakeBackend(baseSnapshot(clock))

	c := New(backend, WithClock(clock.Now), WithTickInterval(time.Millisecond))
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()
	require.Eventually(t, func() bool {
		return c.Projection().TakenAt.Equal(clock.Now())
	}, waitFor, poll)

	c.Close()
	require.NoError(t, <-done)

	frozen := c.Projection().TakenAt
	clock.Advance(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, frozen, c.Projection().TakenAt,
		"no pass may run after teardown")

	// Closing again is safe.
	c.Close()
}

func TestClose_BeforeRunSkipsBackendEntirely(t *testing.T) {
	clock := testutil.NewClock(t0)
	backend := testutil.NewFakeBackend(baseSnapshot(clock))
	c := New(backend, WithClock(clock.Now), WithTickInterval(time.Hour))

	c.Close()
	require.NoError(t, c.Run(context.Background()))
	assert.Zero(t, backend.SnapshotCalls(),
		"a closed controller must not load a snapshot or publish")
}

func TestResyncRequired_ReloadsSnapshotWholesale(t *testing.T) {
	clock := testutil.NewClock(t0)
	snap := baseSnapshot(clock)
	snap.Alarms = []domain.Alarm{testutil.NewTestAlarm("wake", testutil.WithAlarmTime(15, 0))}
	backend := testutil.NewFakeBackend(snap)
	c := startController(t, clock, backend)
	require.Len(t, c.Projection().Alarms, 1)

	// The backend dropped pushes while we were behind; its authoritative
	// state moved on without us.
	fresh := baseSnapshot(clock)
	fresh.Alarms = []domain.Alarm{testutil.NewTestAlarm("gym", testutil.WithAlarmTime(6, 0))}
	backend.SetSnapshot(fresh)
	backend.Push(contract.PushEvent{Kind: contract.EventResyncRequired})

	require.Eventually(t, func() bool {
		proj := c.Projection()
		return len(proj.Alarms) == 1 && proj.Alarms[0].Label == "gym"
	}, waitFor, poll)
	assert.Equal(t, 2, backend.SnapshotCalls())
}

func TestZeroDurationConfigSnapshot_PassStillTerminates(t *testing.T) {
	clock := testutil.NewClock(t0)
	snap := baseSnapshot(clock)
	snap.Config = domain.PomodoroConfig{SessionsUntilLongBreak: 4}
	end := t0
	snap.Pomodoro = domain.PomodoroCycle{
		Phase: domain.PhaseWork, SessionIndex: 1, CycleIndex: 1, PhaseEndEpoch: &end,
	}
	backend := testutil.NewFakeBackend(snap)
	c := startController(t, clock, backend)

	// Any event forces a pass over the already-elapsed phase.
	backend.Push(contract.PushEvent{Kind: contract.EventTick, ID: "no-such-timer"})
	require.Eventually(t, func() bool {
		return c.Projection().Pomodoro.Phase == domain.PhaseShortBreak
	}, waitFor, poll)
	assert.Positive(t, c.Projection().Pomodoro.RemainingMillis,
		"break runs on the default duration")
}

func TestRun_CancelledContextReturnsItsError(t *testing.T) {
	clock := testutil.NewClock(t0)
	backend := testutil.NewFakeBackend(baseSnapshot(clock))
	c := New(backend, WithClock(clock.Now), WithTickInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestMalformedAlarm_IsolatedFromOtherEntities(t *testing.T) {
	clock := testutil.NewClock(t0)
	snap := baseSnapshot(clock)
	bad := testutil.NewTestAlarm("bad")
	bad.Time = domain.TimeOfDay{Hour: 99, Minute: 0}
	good := testutil.NewTestAlarm("good", testutil.WithAlarmTime(15, 0))
	snap.Alarms = []domain.Alarm{bad, good}
	backend := testutil.NewFakeBackend(snap)
	obs := &capturingObserver{}
	c := startController(t, clock, backend, WithObserver(obs))

	proj := c.Projection()
	require.Len(t, proj.Alarms, 2, "malformed alarm must not evict the pass")
	for _, a := range proj.Alarms {
		if a.Label == "good" {
			assert.Equal(t, "Today", a.NextText)
		} else {
			assert.Empty(t, a.NextText)
		}
	}
	assert.NotEmpty(t, obs.named("derivation_failed"))
}
