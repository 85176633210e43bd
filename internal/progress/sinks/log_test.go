package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/speech-scraper/internal/progress"
)

func TestLogSinkLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewLogSink(zap.New(core))

	now := time.Now()
	require.NoError(t, sink.Consume(context.Background(), progress.Event{
		RunID: "run-1", TS: now, Stage: progress.StagePageStart, Page: 2, URL: "https://example.com/list?page=1",
	}))
	require.NoError(t, sink.Consume(context.Background(), progress.Event{
		RunID: "run-1", TS: now, Stage: progress.StageRecordRejected, URL: "https://example.com/doc", Index: 3,
	}))
	require.NoError(t, sink.Consume(context.Background(), progress.Event{
		RunID: "run-1", TS: now, Stage: progress.StageRunError, Note: "boom",
	}))

	entries := logs.All()
	require.Len(t, entries, 3)
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, zapcore.DebugLevel, entries[1].Level)
	require.Equal(t, int64(3), entries[1].ContextMap()["index"])
	require.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	require.Equal(t, "boom", entries[2].ContextMap()["note"])
}
