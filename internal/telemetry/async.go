package telemetry

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// emitTimeout bounds a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is the longest Drain should be given during shutdown. It covers one emitTimeout.
const ShutdownDrainDuration = emitTimeout

const drainPoll = 10 * time.Millisecond

var inflight atomic.Int64

// EmitAsync emits event on its own goroutine with a detached emitTimeout context, so request
// cancellation never aborts it. Failures are logged. Nil emitter or event is a no-op.
func EmitAsync(emitter EventEmitter, event *Event) {
	if emitter == nil || event == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	inflight.Add(1)
	go func() {
		defer inflight.Add(-1)
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil {
			slog.Warn("telemetry: async emit failed", "event_type", event.EventType, "error", err)
		}
	}()
}

// Drain waits until every emit started by EmitAsync has finished or ctx is done.
// It reports whether all emits finished.
func Drain(ctx context.Context) bool {
	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()
	for inflight.Load() > 0 {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return false
		}
	}
	return true
}
