// Package stream delivers progress events to clients and logs.
package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"CourtMonitor/internal/domain"
)

// SSE writes progress events as server-sent events. Once the client is gone
// or Close was called every further write is dropped.
type SSE struct {
	mu     sync.Mutex
	w      io.Writer
	flush  func()
	closed bool
	logger *slog.Logger
}

// NewSSE wraps w; it flushes after every event when w supports it.
func NewSSE(w io.Writer, logger *slog.Logger) *SSE {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SSE{w: w, flush: func() {}, logger: logger}
	if f, ok := w.(http.Flusher); ok {
		s.flush = f.Flush
	}
	return s
}

// Emit writes one event frame.
func (s *SSE) Emit(event domain.ProgressEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("encode progress event", "step", event.Step, "error", err)
		return
	}
	s.write("data: " + string(payload) + "\n\n")
}

// Comment writes an SSE comment line, used as a keep-alive.
func (s *SSE) Comment(text string) {
	s.write(": " + strings.ReplaceAll(text, "\n", " ") + "\n\n")
}

// Close marks the stream finished.
func (s *SSE) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Closed reports whether writes are being dropped.
func (s *SSE) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *SSE) write(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		s.logger.Debug("client stream closed", "error", err)
		s.closed = true
		return
	}
	s.flush()
}

// LogSink records progress events in the log, for runs without a client.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink logs through logger with the given attributes attached.
func NewLogSink(logger *slog.Logger, args ...any) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With(args...)}
}

// Emit logs the event; terminal events are logged at a higher level.
func (l *LogSink) Emit(event domain.ProgressEvent) {
	args := []any{"step", event.Step, "message", event.Message}
	if event.Progress != nil {
		args = append(args, "progress", *event.Progress)
	}
	switch event.Step {
	case domain.StepError:
		l.logger.Warn("pipeline progress", args...)
	case domain.StepComplete:
		l.logger.Info("pipeline progress", args...)
	default:
		l.logger.Debug("pipeline progress", args...)
	}
}
