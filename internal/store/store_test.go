package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesDatabaseWithOwnerOnlyPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "study.db")

	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())
}

func TestOpen_TightensExistingFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.db")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestOpen_CreatesAllTables(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, table := range Tables {
		var name string
		err := s.withConn(ctx, func(conn *sql.Conn) error {
			return conn.QueryRowContext(ctx,
				"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
			).Scan(&name)
		})
		assert.NoError(t, err, "table %q missing", table)
	}

	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestOpen_Idempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "study.db")

	s1, err := Open(ctx, path)
	require.NoError(t, err)
	saved, err := s1.InsertSession(ctx, testSession("Physics", baseTime))
	require.NoError(t, err)
	_, err = s1.AppendLog(ctx, testLog("first open"))
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	for i := 0; i < 2; i++ {
		s, err := Open(ctx, path)
		require.NoError(t, err, "reopen %d", i)
		require.NoError(t, s.Close())
	}

	s2, err := Open(ctx, path)
	require.NoError(t, err)
	defer s2.Close()

	history, err := s2.StudyHistory(ctx, HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assertSameSession(t, saved, history[0])

	logs, err := s2.RuntimeLogs(ctx, LogQuery{})
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	v, err := s2.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, v)
}

func TestOpen_UnwritablePath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := Open(context.Background(), filepath.Join(blocker, "study.db"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInit)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.ErrorIs(t, err, ErrInit)
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "study.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	err = s.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, "PRAGMA user_version = 99")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, path)
	assert.ErrorIs(t, err, ErrInit)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	boom := assert.AnError
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO study_sessions (id, start_time, end_time, duration_minutes, repetitions, label)
			 VALUES ('x', 'a', 'b', 1, 1, 'half written')`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := s.CountSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.withTx(ctx, func(tx *sql.Tx) error {
			_, _ = tx.ExecContext(ctx,
				`INSERT INTO study_sessions (id, start_time, end_time, duration_minutes, repetitions, label)
				 VALUES ('x', 'a', 'b', 1, 1, 'half written')`)
			panic("interrupted")
		})
	})

	n, err := s.CountSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestClosedStore_ReturnsTaxonomyErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Close())

	_, err := s.InsertSession(ctx, testSession("Physics", baseTime))
	assert.ErrorIs(t, err, ErrWrite)

	_, err = s.StudyHistory(ctx, HistoryQuery{})
	assert.ErrorIs(t, err, ErrRead)

	_, err = s.RuntimeLogs(ctx, LogQuery{})
	assert.ErrorIs(t, err, ErrRead)
}

func TestIsConflict(t *testing.T) {
	assert.True(t, IsConflict(assertErr("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, IsLocked(assertErr("database is locked")))
	assert.False(t, IsConflict(nil))
	assert.False(t, IsConflict(assertErr("no such table")))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
