package store

import (
	"context"
	"database/sql"

	"studytimer/internal/session"
)

// AppendLog writes one runtime log record and returns its ID.
func (s *Store) AppendLog(ctx context.Context, e session.LogEntry) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO runtime_logs (timestamp, level, message) VALUES (?, ?, ?)",
			formatTime(e.Timestamp), int(e.Level), e.Message,
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, writeErr("append runtime log", err)
	}
	return id, nil
}
