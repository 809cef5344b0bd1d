package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"studytimer/internal/session"
)

// HistoryQuery narrows StudyHistory. Zero values disable a filter.
type HistoryQuery struct {
	Limit int
	// Since keeps sessions that ended at or after this instant.
	Since time.Time
}

// LogQuery narrows RuntimeLogs. A nil MinLevel returns every level.
type LogQuery struct {
	Limit    int
	MinLevel *session.Level
}

// StudyHistory returns study sessions, most recent first. The result is a
// materialized slice; no cursor stays open after the call.
func (s *Store) StudyHistory(ctx context.Context, q HistoryQuery) ([]session.StudySession, error) {
	var (
		where []string
		args  []any
	)
	if !q.Since.IsZero() {
		where = append(where, "end_time >= ?")
		args = append(args, formatTime(q.Since))
	}

	query := "SELECT id, start_time, end_time, duration_minutes, repetitions, label FROM study_sessions"
	query += whereClause(where)
	query += " ORDER BY end_time DESC, rowid DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	var out []session.StudySession
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var ss session.StudySession
			var start, end string
			if err := rows.Scan(&ss.ID, &start, &end, &ss.DurationMinutes, &ss.Repetitions, &ss.Label); err != nil {
				return err
			}
			if ss.StartTime, err = parseTime(start); err != nil {
				return err
			}
			if ss.EndTime, err = parseTime(end); err != nil {
				return err
			}
			out = append(out, ss)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, readErr("study history", err)
	}
	return out, nil
}

// RuntimeLogs returns runtime log entries, most recent first.
func (s *Store) RuntimeLogs(ctx context.Context, q LogQuery) ([]session.LogEntry, error) {
	var (
		where []string
		args  []any
	)
	if q.MinLevel != nil {
		where = append(where, "level >= ?")
		args = append(args, int(*q.MinLevel))
	}

	query := "SELECT id, timestamp, level, message FROM runtime_logs"
	query += whereClause(where)
	query += " ORDER BY timestamp DESC, id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	var out []session.LogEntry
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var e session.LogEntry
			var ts string
			var level int
			if err := rows.Scan(&e.ID, &ts, &level, &e.Message); err != nil {
				return err
			}
			if e.Timestamp, err = parseTime(ts); err != nil {
				return err
			}
			e.Level = session.Level(level)
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, readErr("runtime logs", err)
	}
	return out, nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
