package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"studytimer/internal/session"
)

// newTestStore opens a fresh store in a temp directory.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "study.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var baseTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func testSession(label string, end time.Time) session.StudySession {
	return session.StudySession{
		StartTime:       end.Add(-90 * time.Minute),
		EndTime:         end,
		DurationMinutes: 30,
		Repetitions:     3,
		Label:           label,
	}
}

func testLog(msg string) session.LogEntry {
	return session.LogEntry{Timestamp: baseTime, Level: session.LevelInfo, Message: msg}
}

func assertSameSession(t *testing.T, want, got session.StudySession) {
	t.Helper()
	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.Label, got.Label)
	require.Equal(t, want.DurationMinutes, got.DurationMinutes)
	require.Equal(t, want.Repetitions, got.Repetitions)
	require.True(t, want.StartTime.Equal(got.StartTime), "start %v != %v", want.StartTime, got.StartTime)
	require.True(t, want.EndTime.Equal(got.EndTime), "end %v != %v", want.EndTime, got.EndTime)
}
