package sinks

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/speech-scraper/internal/progress"
)

// LogSink emits structured logs for each progress event. Page and run
// milestones log at info level, per-record outcomes at debug level.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the event using structured fields.
func (s *LogSink) Consume(_ context.Context, evt progress.Event) error {
	fields := []zap.Field{
		zap.String("run_id", evt.RunID),
		zap.String("stage", string(evt.Stage)),
		zap.String("url", evt.URL),
		zap.Int("page", evt.Page),
		zap.Int("accepted", evt.Accepted),
	}
	if evt.Index > 0 {
		fields = append(fields, zap.Int("index", evt.Index))
	}
	if evt.Bytes > 0 {
		fields = append(fields, zap.Int64("bytes", evt.Bytes))
	}
	if evt.Dur > 0 {
		fields = append(fields, zap.Duration("dur", evt.Dur))
	}
	if evt.Note != "" {
		fields = append(fields, zap.String("note", evt.Note))
	}
	s.logger.Log(levelFor(evt.Stage), "progress event", fields...)
	return nil
}

func levelFor(stage progress.Stage) zapcore.Level {
	switch stage {
	case progress.StageRunError:
		return zapcore.ErrorLevel
	case progress.StageRunStart, progress.StageRunDone, progress.StagePageStart:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
