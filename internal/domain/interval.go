package domain

import "time"

// Lap is a stopwatch checkpoint: a split relative to the previous lap and
// the absolute elapsed time at the moment it was taken.
type Lap struct {
	Label          string
	SplitMillis    int64
	AbsoluteMillis int64
}

// RunningInterval is the snapshot shape of a stopwatch or countdown
// interval. StartEpoch is set only while running; AccumulatedMillis holds
// the frozen total while paused or idle. The displayed elapsed time is
// always accumulated + (now - start epoch), never a per-tick counter.
type RunningInterval struct {
	Status            IntervalStatus
	StartEpoch        *time.Time
	AccumulatedMillis int64
	Laps              []Lap
}
