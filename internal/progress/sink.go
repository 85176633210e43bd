package progress

import (
	"context"

	"go.uber.org/zap"
)

// Sink consumes progress events. Sinks are called synchronously from the
// crawl loop and must not block for long.
type Sink interface {
	Consume(ctx context.Context, evt Event) error
}

// Emitter publishes individual events; Fanout satisfies this interface so the
// crawler stays agnostic about where events end up.
type Emitter interface {
	Emit(ctx context.Context, evt Event)
}

// Fanout delivers each valid event to every registered sink in order. Sink
// failures are logged and never interrupt the crawl.
type Fanout struct {
	sinks  []Sink
	logger *zap.Logger
}

// NewFanout builds a Fanout over sinks.
func NewFanout(logger *zap.Logger, sinks ...Sink) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{sinks: append([]Sink(nil), sinks...), logger: logger}
}

// Emit implements Emitter.
func (f *Fanout) Emit(ctx context.Context, evt Event) {
	if f == nil {
		return
	}
	if err := evt.Validate(); err != nil {
		f.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}
	for _, s := range f.sinks {
		if err := s.Consume(ctx, evt); err != nil {
			f.logger.Warn("progress sink failed", zap.String("stage", string(evt.Stage)), zap.Error(err))
		}
	}
}

// Nop discards every event.
type Nop struct{}

// Emit implements Emitter.
func (Nop) Emit(context.Context, Event) {}
