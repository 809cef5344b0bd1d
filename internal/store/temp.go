package store

import (
	"context"
	"database/sql"

	"studytimer/internal/session"
)

// InsertTempSession writes an in-progress marker and returns it with its
// generated ID.
func (s *Store) InsertTempSession(ctx context.Context, ts session.TempSession) (session.TempSession, error) {
	ts.ID = newID()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO temp_sessions (id, start_time, duration_minutes, repetitions, label, repetition_index)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			ts.ID,
			formatTime(ts.StartTime),
			ts.DurationMinutes,
			ts.Repetitions,
			ts.Label,
			ts.RepetitionIndex,
		)
		return err
	})
	if err != nil {
		return session.TempSession{}, writeErr("insert temp session", err)
	}
	ts.StartTime = ts.StartTime.UTC()
	return ts, nil
}

// DeleteTempSession removes the marker with the given ID. A missing row is
// reported as ErrNotFound wrapped in ErrWrite.
func (s *Store) DeleteTempSession(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM temp_sessions WHERE id = ?", id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return writeErr("delete temp session "+id, err)
	}
	return nil
}

// TempSessions lists the live markers, oldest first.
func (s *Store) TempSessions(ctx context.Context) ([]session.TempSession, error) {
	var out []session.TempSession
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, selectTempSessions)
		if err != nil {
			return err
		}
		out, err = scanTempSessions(rows)
		return err
	})
	if err != nil {
		return nil, readErr("list temp sessions", err)
	}
	return out, nil
}

// TakeTempSessions returns every live marker and deletes them in the same
// transaction.
func (s *Store) TakeTempSessions(ctx context.Context) ([]session.TempSession, error) {
	var out []session.TempSession
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, selectTempSessions)
		if err != nil {
			return err
		}
		out, err = scanTempSessions(rows)
		if err != nil {
			return err
		}
		for _, ts := range out {
			if _, err := tx.ExecContext(ctx, "DELETE FROM temp_sessions WHERE id = ?", ts.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, writeErr("take temp sessions", err)
	}
	return out, nil
}

const selectTempSessions = `SELECT id, start_time, duration_minutes, repetitions, label, repetition_index
	FROM temp_sessions ORDER BY start_time, rowid`

func scanTempSessions(rows *sql.Rows) ([]session.TempSession, error) {
	defer rows.Close()

	var out []session.TempSession
	for rows.Next() {
		var ts session.TempSession
		var startTime string
		if err := rows.Scan(&ts.ID, &startTime, &ts.DurationMinutes, &ts.Repetitions, &ts.Label, &ts.RepetitionIndex); err != nil {
			return nil, err
		}
		t, err := parseTime(startTime)
		if err != nil {
			return nil, err
		}
		ts.StartTime = t
		out = append(out, ts)
	}
	return out, rows.Err()
}
