package pomodoro

import (
	"testing"
	"time"

	"github.com/alexanderramin/tempus/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func testConfig() domain.PomodoroConfig {
	return domain.PomodoroConfig{
		WorkDuration:           25 * time.Minute,
		ShortBreakDuration:     5 * time.Minute,
		LongBreakDuration:      15 * time.Minute,
		SessionsUntilLongBreak: 4,
		SuspendBehavior:        domain.SuspendPause,
	}
}

func TestStart_FromIdle(t *testing.T) {
	e := New(testConfig())
	require.NoError(t, e.Start(t0))

	assert.Equal(t, domain.PhaseWork, e.Phase())
	assert.Equal(t, 1, e.SessionIndex())
	assert.Equal(t, 1, e.CycleIndex())
	assert.Equal(t, 25*time.Minute, e.Remaining(t0))
}

func TestStart_WhileActiveFails(t *testing.T) {
	e := New(testConfig())
	require.NoError(t, e.Start(t0))
	assert.ErrorIs(t, e.Start(t0), ErrNotIdle)
}

func TestReconcile_WorkToShortBreak(t *testing.T) {
	e := New(testConfig())
	require.NoError(t, e.Start(t0))

	changes := e.Reconcile(t0.Add(25 * time.Minute))
	require.Len(t, changes, 1)
	assert.Equal(t, domain.PhaseWork, changes[0].From)
	assert.Equal(t, domain.PhaseShortBreak, changes[0].To)
	assert.False(t, changes[0].Missed)
	assert.Equal(t, 5*time.Minute, e.Remaining(t0.Add(25*time.Minute)))
}

func TestReconcile_BeforePhaseEndIsQuiet(t *testing.T) {
	e := New(testConfig())
	require.NoError(t, e.Start(t0))
	assert.Empty(t, e.Reconcile(t0.Add(24*time.Minute)))
	assert.Equal(t, domain.PhaseWork, e.Phase())
}

// TestFullCycle_LongBreakOnFourthSession walks four complete work+break
// rounds with Skip and verifies the fourth break is the long one and the
// cycle index increments exactly once, when that long break completes.
func TestFullCycle_LongBreakOnFourthSession(t *testing.T) {
	e := New(testConfig())
	now := t0
	require.NoError(t, e.Start(now))

	for session := 1; session <= 4; session++ {
		assert.Equal(t, session, e.SessionIndex())
		assert.Equal(t, session == 4, e.IsLongBreakNext())

		change := e.Skip(now) // end work
		require.NotNil(t, change)
		if session == 4 {
			assert.Equal(t, domain.PhaseLongBreak, change.To)
		} else {
			assert.Equal(t, domain.PhaseShortBreak, change.To)
		}
		assert.Equal(t, 1, e.CycleIndex(), "cycle advances only after the long break completes")

		change = e.Skip(now) // end break
		require.NotNil(t, change)
		assert.Equal(t, domain.PhaseWork, change.To)
	}

	assert.Equal(t, 2, e.CycleIndex())
	assert.Equal(t, 5, e.SessionIndex())
}

// TestNew_ZeroDurationsFallBackToDefaults guards the reconciliation
// loop: a config with zero-length phases would re-arm the phase end at
// the same instant forever, so New must refuse to run with one.
func TestNew_ZeroDurationsFallBackToDefaults(t *testing.T) {
	e := New(domain.PomodoroConfig{SessionsUntilLongBreak: 4})
	require.NoError(t, e.Start(t0))
	assert.Equal(t, 25*time.Minute, e.Remaining(t0))
}

func TestReconcile_ZeroDurationConfigTerminates(t *testing.T) {
	e := New(domain.PomodoroConfig{SessionsUntilLongBreak: 4})
	end := t0
	e.Restore(domain.PomodoroCycle{
		Phase:         domain.PhaseWork,
		SessionIndex:  1,
		CycleIndex:    1,
		PhaseEndEpoch: &end,
	})

	changes := e.Reconcile(t0.Add(time.Minute))
	require.Len(t, changes, 1)
	assert.Equal(t, domain.PhaseShortBreak, changes[0].To)
	assert.Equal(t, 4*time.Minute, e.Remaining(t0.Add(time.Minute)),
		"break runs on the default duration")
}

func TestSkip_WhileIdleIsNil(t *testing.T) {
	e := New(testConfig())
	assert.Nil(t, e.Skip(t0))
}

func TestStop_PreservesStatsAndCycle(t *testing.T) {
	e := New(testConfig())
	e.SetStats(domain.PomodoroStats{FocusSeconds: 9000, SessionsCompleted: 6})
	require.NoError(t, e.Start(t0))
	e.Skip(t0)

	e.Stop()
	assert.Equal(t, domain.PhaseIdle, e.Phase())
	assert.Zero(t, e.Remaining(t0.Add(time.Hour)))
	assert.Equal(t, int64(9000), e.Stats().FocusSeconds, "stats untouched by stop")

	// Restarting preserves the cycle index from the prior run.
	require.NoError(t, e.Start(t0.Add(time.Hour)))
	assert.Equal(t, 1, e.CycleIndex())
	assert.Equal(t, 1, e.SessionIndex())
}

func TestSuspendPause_ShiftsPhaseEnd(t *testing.T) {
	e := New(testConfig())
	require.NoError(t, e.Start(t0))

	e.Suspend(t0.Add(10 * time.Minute))
	assert.Equal(t, 15*time.Minute, e.Remaining(t0.Add(20*time.Minute)),
		"remaining frozen while suspended")

	e.Resume(t0.Add(30 * time.Minute)) // away 20 minutes
	assert.Equal(t, 15*time.Minute, e.Remaining(t0.Add(30*time.Minute)))

	// Phase now ends 45 minutes after start.
	changes := e.Reconcile(t0.Add(45 * time.Minute))
	require.Len(t, changes, 1)
	assert.False(t, changes[0].Missed)
}

func TestSuspendContinue_ReportsMissedCompletion(t *testing.T) {
	cfg := testConfig()
	cfg.SuspendBehavior = domain.SuspendContinue
	e := New(cfg)
	require.NoError(t, e.Start(t0))

	e.Suspend(t0.Add(10 * time.Minute))
	e.Resume(t0.Add(40 * time.Minute)) // work phase elapsed while away

	changes := e.Reconcile(t0.Add(40 * time.Minute))
	require.Len(t, changes, 1)
	assert.Equal(t, domain.PhaseShortBreak, changes[0].To)
	assert.True(t, changes[0].Missed, "elapse during suspend reported as missed")

	// The missed flag is a one-time report.
	changes = e.Reconcile(t0.Add(46 * time.Minute))
	require.Len(t, changes, 1)
	assert.False(t, changes[0].Missed)
}

func TestSuspendContinue_LongAbsenceResolvesMultiplePhases(t *testing.T) {
	cfg := testConfig()
	cfg.SuspendBehavior = domain.SuspendContinue
	e := New(cfg)
	require.NoError(t, e.Start(t0))

	e.Suspend(t0.Add(time.Minute))
	// Away until minute 57: work (ends 25), short break (ends 30) and the
	// second work session (ends 55) all completed while suspended.
	e.Resume(t0.Add(57 * time.Minute))

	changes := e.Reconcile(t0.Add(57 * time.Minute))
	require.Len(t, changes, 3)
	for _, c := range changes {
		assert.True(t, c.Missed)
	}
	assert.Equal(t, domain.PhaseShortBreak, e.Phase())
	assert.Equal(t, 2, e.SessionIndex())
	assert.Equal(t, 3*time.Minute, e.Remaining(t0.Add(57*time.Minute)))
}

func TestSuspend_WhileIdleIsNoop(t *testing.T) {
	e := New(testConfig())
	e.Suspend(t0)
	e.Resume(t0.Add(time.Minute))
	assert.Equal(t, domain.PhaseIdle, e.Phase())
	assert.Empty(t, e.Reconcile(t0.Add(time.Hour)))
}

func TestRestore_ReplacesInFlightState(t *testing.T) {
	e := New(testConfig())
	end := t0.Add(3 * time.Minute)
	e.Restore(domain.PomodoroCycle{
		Phase:         domain.PhaseLongBreak,
		SessionIndex:  4,
		CycleIndex:    1,
		PhaseEndEpoch: &end,
	})

	assert.Equal(t, domain.PhaseLongBreak, e.Phase())
	assert.Equal(t, 3*time.Minute, e.Remaining(t0))

	changes := e.Reconcile(t0.Add(3 * time.Minute))
	require.Len(t, changes, 1)
	assert.Equal(t, domain.PhaseWork, changes[0].To)
	assert.Equal(t, 2, e.CycleIndex())
	assert.Equal(t, 5, e.SessionIndex())
}

func TestConfirmStatsReset_ZeroesMirrorOnly(t *testing.T) {
	e := New(testConfig())
	e.SetStats(domain.PomodoroStats{FocusSeconds: 100, CyclesCompleted: 2})
	require.NoError(t, e.Start(t0))

	e.ConfirmStatsReset()
	assert.Zero(t, e.Stats().FocusSeconds)
	assert.Equal(t, domain.PhaseWork, e.Phase(), "reset does not touch phase state")
}

func TestIsLongBreakNext_OnlyDuringWork(t *testing.T) {
	e := New(testConfig())
	assert.False(t, e.IsLongBreakNext())

	require.NoError(t, e.Start(t0))
	assert.False(t, e.IsLongBreakNext(), "session 1 of 4")

	e.Skip(t0) // to short break
	assert.False(t, e.IsLongBreakNext())
}
