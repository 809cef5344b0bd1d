package study

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studytimer/internal/recovery"
)

// ErrRunOver is returned by operations on a finished or aborted run.
var ErrRunOver = errors.New("run is over")

// Tracker is the crash-recovery state machine a run drives.
type Tracker interface {
	Begin(ctx context.Context, run recovery.Run, index int) error
	Complete(ctx context.Context) error
	Abandon(ctx context.Context) error
}

// Run sequences the repetitions of one study run. A marker is written when a
// repetition starts and cleared when it ends; after the last repetition the
// marker is cleared first and then the study session is recorded.
//
// A Run with Repetitions == 0 is open-ended (pomodoro): it never finishes on
// its own and records the repetitions completed so far when stopped.
type Run struct {
	rec     *Recorder
	tracker Tracker
	in      Input

	started   time.Time
	current   int // 1-based index of the repetition in progress, 0 when none
	completed int
	sessionID string
	over      bool
}

// NewRun validates in and returns a run that has not started yet. For an
// open-ended run in.Repetitions must be 0; only the duration and label are
// validated.
func NewRun(rec *Recorder, tracker Tracker, in Input) (*Run, error) {
	check := in
	if check.Repetitions == 0 {
		check.Repetitions = 1
	}
	valid, err := rec.Validate(check)
	if err != nil {
		return nil, err
	}
	in.Label = valid.Label
	return &Run{rec: rec, tracker: tracker, in: in}, nil
}

func (r *Run) Input() Input { return r.in }

// OpenEnded reports a pomodoro-style run with no fixed repetition count.
func (r *Run) OpenEnded() bool { return r.in.Repetitions == 0 }

// Current is the 1-based repetition in progress, 0 between repetitions.
func (r *Run) Current() int { return r.current }

func (r *Run) Completed() int { return r.completed }

func (r *Run) Over() bool { return r.over }

// SessionID is set once the run has been recorded.
func (r *Run) SessionID() string { return r.sessionID }

// Next is the index StartRepetition will use.
func (r *Run) Next() int {
	return r.completed + 1
}

// Remaining reports whether another repetition should start.
func (r *Run) Remaining() bool {
	return !r.over && (r.OpenEnded() || r.completed < r.in.Repetitions)
}

func (r *Run) trackedRun() recovery.Run {
	return recovery.Run{
		DurationMinutes: r.in.DurationMinutes,
		Repetitions:     r.in.Repetitions,
		Label:           r.in.Label,
	}
}

// StartRepetition marks the next repetition as in progress. A storage error
// aborts the run.
func (r *Run) StartRepetition(ctx context.Context) error {
	if !r.Remaining() {
		return ErrRunOver
	}
	if r.current != 0 {
		return fmt.Errorf("repetition %d: %w", r.current, recovery.ErrBusy)
	}
	if r.started.IsZero() {
		r.started = r.rec.now()
	}
	idx := r.Next()
	if err := r.tracker.Begin(ctx, r.trackedRun(), idx); err != nil {
		r.over = true
		return err
	}
	r.current = idx
	return nil
}

// CompleteRepetition clears the marker of the running repetition. When it was
// the last one the session is recorded and done is true.
func (r *Run) CompleteRepetition(ctx context.Context) (done bool, err error) {
	if r.over {
		return false, ErrRunOver
	}
	if r.current == 0 {
		return false, errors.New("no repetition in progress")
	}
	if err := r.tracker.Complete(ctx); err != nil {
		r.over = true
		return false, err
	}
	r.current = 0
	r.completed++

	if r.OpenEnded() || r.completed < r.in.Repetitions {
		return false, nil
	}
	r.over = true
	if err := r.record(ctx, r.in.Repetitions); err != nil {
		return false, err
	}
	return true, nil
}

// Stop ends the run early on the user's request. The live marker is
// cleared. An open-ended run records the repetitions completed so far; a
// fixed run records nothing.
func (r *Run) Stop(ctx context.Context) error {
	if r.over {
		return nil
	}
	r.over = true
	if err := r.tracker.Abandon(ctx); err != nil {
		return err
	}
	r.current = 0
	if r.OpenEnded() && r.completed > 0 {
		return r.record(ctx, r.completed)
	}
	return nil
}

func (r *Run) record(ctx context.Context, repetitions int) error {
	id, err := r.rec.RecordSession(ctx, Input{
		DurationMinutes: r.in.DurationMinutes,
		Repetitions:     repetitions,
		Label:           r.in.Label,
		StartedAt:       r.started,
	})
	if err != nil {
		return err
	}
	r.sessionID = id
	return nil
}

// Abort marks the run over without touching storage. Callers use it after a
// storage error has already been reported.
func (r *Run) Abort() {
	r.over = true
}

// Summary describes the run for display.
func (r *Run) Summary() string {
	total := r.in.Repetitions
	if r.OpenEnded() {
		return fmt.Sprintf("%s: %d x %d min (open-ended)", r.in.Label, r.completed, r.in.DurationMinutes)
	}
	return fmt.Sprintf("%s: %d/%d x %d min", r.in.Label, r.completed, total, r.in.DurationMinutes)
}

var _ Tracker = (*recovery.Tracker)(nil)
