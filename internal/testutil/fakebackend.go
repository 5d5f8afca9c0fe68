package testutil

import (
	"context"
	"sync"

	"github.com/alexanderramin/tempus/internal/contract"
)

// FakeBackend is an in-memory schedule backend double. Requests record
// their operation name and return a configured error, if any; pushes are
// delivered through the same channel a real backend would use.
type FakeBackend struct {
	mu        sync.Mutex
	snapshot  contract.BackendSnapshot
	snapErr   error
	snapCalls int
	calls     []string
	failOps   map[string]error

	events chan contract.PushEvent
}

func NewFakeBackend(snap contract.BackendSnapshot) *FakeBackend {
	return &FakeBackend{
		snapshot: snap,
		failOps:  make(map[string]error),
		events:   make(chan contract.PushEvent, 32),
	}
}

func (f *FakeBackend) Snapshot(context.Context) (contract.BackendSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapCalls++
	return f.snapshot, f.snapErr
}

// SetSnapshot replaces the snapshot returned by subsequent Snapshot calls.
func (f *FakeBackend) SetSnapshot(snap contract.BackendSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = snap
}

// SnapshotCalls returns how many times Snapshot was served.
func (f *FakeBackend) SnapshotCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapCalls
}

func (f *FakeBackend) Events() <-chan contract.PushEvent { return f.events }

// Push delivers one event to the controller.
func (f *FakeBackend) Push(ev contract.PushEvent) { f.events <- ev }

// FailSnapshot makes Snapshot return err.
func (f *FakeBackend) FailSnapshot(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapErr = err
}

// FailOp makes the named request operation return err.
func (f *FakeBackend) FailOp(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOps[op] = err
}

// Calls returns the recorded request operations, in order.
func (f *FakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeBackend) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.failOps[op]
}

func (f *FakeBackend) StartStopwatch(context.Context) error  { return f.record("start_stopwatch") }
func (f *FakeBackend) PauseStopwatch(context.Context) error  { return f.record("pause_stopwatch") }
func (f *FakeBackend) ResumeStopwatch(context.Context) error { return f.record("resume_stopwatch") }
func (f *FakeBackend) ResetStopwatch(context.Context) error  { return f.record("reset_stopwatch") }
func (f *FakeBackend) LapStopwatch(_ context.Context, label string) error {
	return f.record("lap_stopwatch:" + label)
}
func (f *FakeBackend) StartPomodoro(context.Context) error { return f.record("start_pomodoro") }
func (f *FakeBackend) StopPomodoro(context.Context) error  { return f.record("stop_pomodoro") }
func (f *FakeBackend) SkipPhase(context.Context) error     { return f.record("skip_phase") }
func (f *FakeBackend) ResetStats(context.Context) error    { return f.record("reset_stats") }
