// Package study records completed study sessions and sequences the
// repetitions of a single run.
package study

import (
	"context"
	"fmt"
	"time"

	"studytimer/internal/runlog"
	"studytimer/internal/session"
)

// Sessions is the slice of the store the recorder needs.
type Sessions interface {
	InsertSession(ctx context.Context, ss session.StudySession) (session.StudySession, error)
}

// Input is a session to record.
type Input struct {
	DurationMinutes int
	Repetitions     int
	Label           string
	// StartedAt defaults to now minus the total study time.
	StartedAt time.Time
}

// Recorder validates and stores completed sessions.
type Recorder struct {
	sessions Sessions
	limits   session.Limits
	sink     runlog.Sink
	now      func() time.Time
}

func NewRecorder(sessions Sessions, limits session.Limits, sink runlog.Sink) *Recorder {
	if sink == nil {
		sink = runlog.Discard
	}
	return &Recorder{sessions: sessions, limits: limits, sink: sink, now: time.Now}
}

// SetClock replaces time.Now for end times.
func (r *Recorder) SetClock(now func() time.Time) {
	r.now = now
}

// Limits returns the bounds the recorder enforces.
func (r *Recorder) Limits() session.Limits {
	return r.limits
}

// Validate checks in against the limits and returns it with the label
// trimmed. Errors wrap session.ErrValidation.
func (r *Recorder) Validate(in Input) (Input, error) {
	if err := r.limits.ValidateMinutes(in.DurationMinutes); err != nil {
		return Input{}, err
	}
	if err := r.limits.ValidateRepetitions(in.Repetitions); err != nil {
		return Input{}, err
	}
	label, err := r.limits.ValidateLabel(in.Label)
	if err != nil {
		return Input{}, err
	}
	in.Label = label
	return in, nil
}

// RecordSession validates in and writes one study session. It returns the
// new session's ID. Nothing is written when validation fails.
func (r *Recorder) RecordSession(ctx context.Context, in Input) (string, error) {
	in, err := r.Validate(in)
	if err != nil {
		r.sink.Log(ctx, session.LevelWarn, fmt.Sprintf("rejected study session: %v", err))
		return "", err
	}

	end := r.now()
	start := in.StartedAt
	if start.IsZero() || start.After(end) {
		start = end.Add(-time.Duration(in.DurationMinutes*in.Repetitions) * time.Minute)
	}

	saved, err := r.sessions.InsertSession(ctx, session.StudySession{
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: in.DurationMinutes,
		Repetitions:     in.Repetitions,
		Label:           in.Label,
	})
	if err != nil {
		r.sink.Log(ctx, session.LevelError, fmt.Sprintf("failed to record study session %q: %v", in.Label, err))
		return "", err
	}

	r.sink.Log(ctx, session.LevelInfo,
		fmt.Sprintf("recorded study session %s: %d x %d min %q", saved.ID, saved.Repetitions, saved.DurationMinutes, saved.Label))
	return saved.ID, nil
}
