// Package runlog records runtime events in the durable store.
//
// Logging is best effort: a failed write never reaches the caller. It is
// reported once on the console and the event is dropped.
package runlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"studytimer/internal/session"
)

// DefaultMaxLength bounds a persisted message, in runes.
const DefaultMaxLength = 1000

// Sink accepts runtime log events.
type Sink interface {
	Log(ctx context.Context, level session.Level, message string)
}

// Writer is the slice of the store the sink needs.
type Writer interface {
	AppendLog(ctx context.Context, e session.LogEntry) (int64, error)
}

// StoreSink writes every event to a Writer and mirrors error-and-above
// events to the console.
type StoreSink struct {
	w         Writer
	mu        sync.Mutex // guards console
	console   *slog.Logger
	maxLength int
	now       func() time.Time
}

type Option func(*StoreSink)

// WithConsole sets where error events and write failures are printed.
// Defaults to stderr.
func WithConsole(w io.Writer) Option {
	return func(s *StoreSink) {
		s.console = newConsole(w)
	}
}

// WithMaxLength sets the message truncation length in runes.
func WithMaxLength(n int) Option {
	return func(s *StoreSink) {
		if n > 0 {
			s.maxLength = n
		}
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *StoreSink) {
		s.now = now
	}
}

func NewStoreSink(w Writer, opts ...Option) *StoreSink {
	s := &StoreSink{
		w:         w,
		console:   newConsole(os.Stderr),
		maxLength: DefaultMaxLength,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetConsole redirects console output from now on.
func (s *StoreSink) SetConsole(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.console = newConsole(w)
}

func (s *StoreSink) printf(ctx context.Context, level slog.Level, msg string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.console.Log(ctx, level, msg, args...)
}

func newConsole(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (s *StoreSink) Log(ctx context.Context, level session.Level, message string) {
	message = Clean(message, s.maxLength)
	entry := session.LogEntry{
		Timestamp: s.now().UTC(),
		Level:     level,
		Message:   message,
	}

	if level >= session.LevelError {
		s.printf(ctx, level.Slog(), message)
	}

	if _, err := s.w.AppendLog(ctx, entry); err != nil {
		s.printf(ctx, slog.LevelWarn, "runtime log not persisted", "error", err, "level", level.String(), "message", message)
	}
}

// Clean makes message safe to persist: invalid UTF-8 is replaced, surrounding
// whitespace trimmed, and the result cut to max runes.
func Clean(message string, max int) string {
	message = strings.TrimSpace(strings.ToValidUTF8(message, "�"))
	if message == "" {
		return "(empty)"
	}
	if max > 0 && utf8.RuneCountInString(message) > max {
		runes := []rune(message)
		if max == 1 {
			return string(runes[:1])
		}
		return string(runes[:max-1]) + "…"
	}
	return message
}

// Discard drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Log(context.Context, session.Level, string) {}

// Func adapts a plain function to Sink.
type Func func(ctx context.Context, level session.Level, message string)

func (f Func) Log(ctx context.Context, level session.Level, message string) {
	f(ctx, level, message)
}
