package reconcile

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// LoopEvent captures lightweight telemetry for one reconciliation loop
// occurrence: a dropped stale event, an isolated entity failure, a
// teardown.
type LoopEvent struct {
	Name   string
	At     time.Time
	Fields map[string]any
	Err    error
}

// Observer receives reconciliation loop events.
type Observer interface {
	ObserveLoop(ctx context.Context, event LoopEvent)
}

// NoopObserver ignores all events.
type NoopObserver struct{}

func (NoopObserver) ObserveLoop(context.Context, LoopEvent) {}

type logObserver struct {
	logger *slog.Logger
}

// NewLogObserver writes loop events to the provided writer.
func NewLogObserver(w io.Writer) Observer {
	if w == nil {
		return NoopObserver{}
	}
	return &logObserver{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}
}

func (o *logObserver) ObserveLoop(ctx context.Context, event LoopEvent) {
	attrs := make([]any, 0, 4+len(event.Fields)*2)
	attrs = append(attrs, "event", event.Name)
	for k, v := range event.Fields {
		attrs = append(attrs, k, v)
	}
	if event.Err != nil {
		attrs = append(attrs, "error", event.Err.Error())
		o.logger.WarnContext(ctx, "reconcile_loop", attrs...)
		return
	}
	o.logger.InfoContext(ctx, "reconcile_loop", attrs...)
}

func observerOrNoop(obs Observer) Observer {
	if obs != nil {
		return obs
	}
	return NoopObserver{}
}
