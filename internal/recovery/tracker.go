// Package recovery keeps an in-progress marker for the running repetition
// so that a run cut short by a crash is reported on the next start.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studytimer/internal/runlog"
	"studytimer/internal/session"
	"studytimer/internal/store"
)

// State of a Tracker.
type State int

const (
	Idle State = iota
	InProgress
)

func (s State) String() string {
	if s == InProgress {
		return "in-progress"
	}
	return "idle"
}

// ErrBusy is returned by Begin while a repetition is already in progress.
var ErrBusy = errors.New("a repetition is already in progress")

// Markers is the slice of the store the tracker needs.
type Markers interface {
	InsertTempSession(ctx context.Context, ts session.TempSession) (session.TempSession, error)
	DeleteTempSession(ctx context.Context, id string) error
	TakeTempSessions(ctx context.Context) ([]session.TempSession, error)
}

// Run describes the run a tracker is following.
type Run struct {
	DurationMinutes int
	Repetitions     int
	Label           string
}

// Tracker holds at most one live marker at a time.
type Tracker struct {
	markers Markers
	sink    runlog.Sink
	now     func() time.Time

	state   State
	current session.TempSession
}

func NewTracker(markers Markers, sink runlog.Sink) *Tracker {
	if sink == nil {
		sink = runlog.Discard
	}
	return &Tracker{markers: markers, sink: sink, now: time.Now}
}

// SetClock replaces time.Now for marker start times.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

func (t *Tracker) State() State {
	return t.state
}

// Current returns the live marker, if any.
func (t *Tracker) Current() (session.TempSession, bool) {
	return t.current, t.state == InProgress
}

// Begin writes the marker for repetition index (1-based) and moves to
// InProgress. On a storage failure the tracker stays Idle, the failure is
// logged, and the error wraps store.ErrWrite; the caller should stop the run.
func (t *Tracker) Begin(ctx context.Context, run Run, index int) error {
	if t.state == InProgress {
		return fmt.Errorf("begin repetition %d: %w", index, ErrBusy)
	}
	ts, err := t.markers.InsertTempSession(ctx, session.TempSession{
		StartTime:       t.now(),
		DurationMinutes: run.DurationMinutes,
		Repetitions:     run.Repetitions,
		Label:           run.Label,
		RepetitionIndex: index,
	})
	if err != nil {
		t.sink.Log(ctx, session.LevelError,
			fmt.Sprintf("could not record start of repetition %d/%d of %q: %v", index, run.Repetitions, run.Label, err))
		return fmt.Errorf("begin repetition %d: %w", index, err)
	}
	t.current = ts
	t.state = InProgress
	return nil
}

// Complete deletes the live marker after a clean finish and returns to Idle.
// It is a no-op when Idle. A marker that has already vanished is logged as a
// warning and not treated as a failure.
func (t *Tracker) Complete(ctx context.Context) error {
	return t.clear(ctx, "complete")
}

// Abandon clears the live marker when the user stops a run on purpose, so
// the next start does not report it as a crash.
func (t *Tracker) Abandon(ctx context.Context) error {
	if t.state == InProgress {
		t.sink.Log(ctx, session.LevelInfo,
			fmt.Sprintf("run %q stopped by user during repetition %d/%d",
				t.current.Label, t.current.RepetitionIndex, t.current.Repetitions))
	}
	return t.clear(ctx, "abandon")
}

func (t *Tracker) clear(ctx context.Context, op string) error {
	if t.state == Idle {
		return nil
	}
	cur := t.current
	err := t.markers.DeleteTempSession(ctx, cur.ID)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		t.sink.Log(ctx, session.LevelWarn,
			fmt.Sprintf("marker for repetition %d of %q was already gone", cur.RepetitionIndex, cur.Label))
	default:
		t.sink.Log(ctx, session.LevelError,
			fmt.Sprintf("could not clear repetition %d/%d of %q: %v", cur.RepetitionIndex, cur.Repetitions, cur.Label, err))
		return fmt.Errorf("%s repetition %d: %w", op, cur.RepetitionIndex, err)
	}
	t.current = session.TempSession{}
	t.state = Idle
	return nil
}

// Recover removes every marker left by a previous process and logs one
// warning per marker. It does not resume anything. The returned markers are
// for display; an error here should be reported, not treated as fatal.
func Recover(ctx context.Context, markers Markers, sink runlog.Sink) ([]session.TempSession, error) {
	if sink == nil {
		sink = runlog.Discard
	}
	leftover, err := markers.TakeTempSessions(ctx)
	if err != nil {
		sink.Log(ctx, session.LevelWarn, fmt.Sprintf("crash recovery scan failed: %v", err))
		return nil, fmt.Errorf("recover interrupted sessions: %w", err)
	}
	for _, ts := range leftover {
		sink.Log(ctx, session.LevelWarn, Describe(ts))
	}
	return leftover, nil
}

// Describe renders a leftover marker as the warning Recover logs.
func Describe(ts session.TempSession) string {
	return fmt.Sprintf("interrupted study session: label=%q repetition_index=%d of %d duration_minutes=%d start_time=%s",
		ts.Label, ts.RepetitionIndex, ts.Repetitions, ts.DurationMinutes, ts.StartTime.UTC().Format(time.RFC3339))
}
