package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CourtMonitor/internal/domain"
)

type failingWriter struct{ calls int }

func (f *failingWriter) Write([]byte) (int, error) {
	f.calls++
	return 0, errors.New("broken pipe")
}

func TestSSEFramesEvents(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	s := NewSSE(rec, slog.New(slog.NewTextHandler(io.Discard, nil)))

	s.Emit(domain.ProgressEvent{Step: domain.StepQueued, Progress: domain.At(0), Message: "u redu"})
	s.Comment("keep-alive")

	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, "data: "), body)
	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	require.Len(t, frames, 2)

	var event map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &event))
	assert.Equal(t, "queued", event["step"])
	assert.Equal(t, float64(0), event["progress"])
	assert.NotContains(t, event, "data")
	assert.Equal(t, ": keep-alive", frames[1])
	assert.True(t, rec.Flushed)
}

func TestSSEDropsWritesAfterClose(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	s := NewSSE(&buf, nil)
	s.Close()
	s.Emit(domain.ProgressEvent{Step: domain.StepComplete})

	assert.True(t, s.Closed())
	assert.Zero(t, buf.Len())
}

func TestSSEClosesOnWriteError(t *testing.T) {
	t.Parallel()

	w := &failingWriter{}
	s := NewSSE(w, slog.New(slog.NewTextHandler(io.Discard, nil)))

	s.Emit(domain.ProgressEvent{Step: domain.StepStarting})
	s.Emit(domain.ProgressEvent{Step: domain.StepScraping})

	assert.True(t, s.Closed())
	assert.Equal(t, 1, w.calls)
}

func TestLogSinkLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sink := NewLogSink(logger, "subscription_id", 7)

	sink.Emit(domain.ProgressEvent{Step: domain.StepScraping, Message: "hidden"})
	sink.Emit(domain.ProgressEvent{Step: domain.StepError, Progress: domain.At(100), Message: "failed"})

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "subscription_id=7")
	assert.Contains(t, out, "progress=100")
}
