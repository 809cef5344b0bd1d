package store

import (
	"context"
	"database/sql"

	"studytimer/internal/session"
)

// InsertSession writes one completed study session and returns it with its
// generated ID. Field validation is the caller's job; the schema only
// rejects non-positive counts.
func (s *Store) InsertSession(ctx context.Context, ss session.StudySession) (session.StudySession, error) {
	ss.ID = newID()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO study_sessions (id, start_time, end_time, duration_minutes, repetitions, label)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			ss.ID,
			formatTime(ss.StartTime),
			formatTime(ss.EndTime),
			ss.DurationMinutes,
			ss.Repetitions,
			ss.Label,
		)
		return err
	})
	if err != nil {
		return session.StudySession{}, writeErr("insert study session", err)
	}
	ss.StartTime = ss.StartTime.UTC()
	ss.EndTime = ss.EndTime.UTC()
	return ss, nil
}

// CountSessions returns the number of stored study sessions.
func (s *Store) CountSessions(ctx context.Context) (int, error) {
	var n int
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM study_sessions").Scan(&n)
	})
	if err != nil {
		return 0, readErr("count study sessions", err)
	}
	return n, nil
}
