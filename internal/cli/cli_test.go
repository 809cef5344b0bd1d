package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studytimer/internal/runlog"
	"studytimer/internal/session"
	"studytimer/internal/store"
)

type testEnv struct {
	ConfigDir string
	DataDir   string
}

type result struct {
	Stdout string
	Stderr string
	Err    error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	return &testEnv{
		ConfigDir: filepath.Join(dir, "config"),
		DataDir:   filepath.Join(dir, "data"),
	}
}

func (e *testEnv) run(args ...string) result {
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	root := a.rootCmd()
	root.SetArgs(append([]string{"--config-dir", e.ConfigDir, "--data-dir", e.DataDir}, args...))
	err := root.ExecuteContext(context.Background())
	a.close()
	return result{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}

func (e *testEnv) mustRun(t *testing.T, args ...string) result {
	t.Helper()
	r := e.run(args...)
	require.NoError(t, r.Err, "stderr: %s", r.Stderr)
	return r
}

func (e *testEnv) history(t *testing.T) []session.StudySession {
	t.Helper()
	r := e.mustRun(t, "history", "--json", "--limit", "0")
	var out []session.StudySession
	require.NoError(t, json.Unmarshal([]byte(r.Stdout), &out))
	return out
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	r := env.mustRun(t, "version")
	assert.Contains(t, r.Stdout, "studytimer v"+Version)

	_, err := os.Stat(filepath.Join(env.DataDir, "study.db"))
	assert.True(t, os.IsNotExist(err), "version must not create the database")
}

func TestInit(t *testing.T) {
	env := newTestEnv(t)
	r := env.mustRun(t, "init", "--json")

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(r.Stdout), &out))
	assert.EqualValues(t, 1, out["schema_version"])
	assert.Equal(t, filepath.Join(env.DataDir, "study.db"), out["database"])

	assert.FileExists(t, filepath.Join(env.ConfigDir, "config.yaml"))
	info, err := os.Stat(filepath.Join(env.DataDir, "study.db"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRecordAndHistory(t *testing.T) {
	env := newTestEnv(t)

	r := env.mustRun(t, "record", "30", "3", "Physics")
	id := strings.TrimSpace(r.Stdout)
	require.NotEmpty(t, id)

	env.mustRun(t, "record", "45", "2", "Organic", "Chemistry")

	sessions := env.history(t)
	require.Len(t, sessions, 2)
	assert.Equal(t, "Organic Chemistry", sessions[0].Label)
	assert.Equal(t, id, sessions[1].ID)
	assert.Equal(t, 30, sessions[1].DurationMinutes)
	assert.Equal(t, 3, sessions[1].Repetitions)
	assert.Equal(t, "Physics", sessions[1].Label)

	r = env.mustRun(t, "history", "--limit", "1")
	assert.Contains(t, r.Stdout, "Organic Chemistry")
	assert.NotContains(t, r.Stdout, "Physics")
	assert.Contains(t, r.Stdout, "Total: 1 session(s)")
}

func TestRecord_ValidationFailure(t *testing.T) {
	env := newTestEnv(t)

	cases := [][]string{
		{"record", "0", "3", "Physics"},
		{"record", "481", "3", "Physics"},
		{"record", "30", "0", "Physics"},
		{"record", "30", "101", "Physics"},
		{"record", "30", "3", "Phys!cs"},
		{"record", "30", "3", strings.Repeat("a", 101)},
	}
	for _, args := range cases {
		r := env.run(args...)
		require.Error(t, r.Err, "%v", args)
		assert.ErrorIs(t, r.Err, session.ErrValidation, "%v", args)
		assert.Equal(t, exitUserError, exitCode(r.Err))
	}
	assert.Empty(t, env.history(t))

	r := env.mustRun(t, "logs", "--json", "--level", "warn")
	var entries []session.LogEntry
	require.NoError(t, json.Unmarshal([]byte(r.Stdout), &entries))
	require.Len(t, entries, len(cases))
	for _, e := range entries {
		assert.Equal(t, session.LevelWarn, e.Level)
		assert.Contains(t, e.Message, "rejected study session")
	}
}

func TestRecord_BadArguments(t *testing.T) {
	env := newTestEnv(t)

	r := env.run("record", "thirty", "3", "Physics")
	require.Error(t, r.Err)
	assert.Equal(t, exitUserError, exitCode(r.Err))

	r = env.run("record", "30", "3")
	require.Error(t, r.Err)

	r = env.run("record", "30", "3", "Physics", "--started", "yesterday")
	require.Error(t, r.Err)
}

func TestRecord_StartedFlag(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "record", "30", "2", "Physics", "--started", "2026-10-14T09:00:00Z")

	sessions := env.history(t)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].StartTime.Equal(time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)))
}

func TestRunHeadless(t *testing.T) {
	env := newTestEnv(t)

	r := env.mustRun(t, "run", "2", "1", "Phys!cs", "--no-tui", "--break", "0", "--tick", "1ms", "--json")
	assert.Contains(t, r.Stderr, `shortened to "Physcs"`)
	assert.Contains(t, r.Stdout, "Study 1/2 (Physcs)")
	assert.Contains(t, r.Stdout, "Study 2/2 (Physcs)")

	start := strings.Index(r.Stdout, "{")
	require.GreaterOrEqual(t, start, 0)
	var res runResult
	require.NoError(t, json.Unmarshal([]byte(r.Stdout[start:]), &res))
	assert.True(t, res.Recorded)
	assert.Equal(t, 2, res.Completed)

	sessions := env.history(t)
	require.Len(t, sessions, 1)
	assert.Equal(t, res.SessionID, sessions[0].ID)
	assert.Equal(t, "Physcs", sessions[0].Label)
	assert.Equal(t, 2, sessions[0].Repetitions)
	assert.Equal(t, 1, sessions[0].DurationMinutes)

	r = env.mustRun(t, "recover", "--json")
	assert.JSONEq(t, "[]", r.Stdout)
}

func TestRunHeadless_WithBreaks(t *testing.T) {
	env := newTestEnv(t)

	r := env.mustRun(t, "run", "2", "1", "Maths", "--no-tui", "--break", "1", "--tick", "1ms")
	assert.Contains(t, r.Stdout, "Break 1/2 (Maths)")
	assert.NotContains(t, r.Stdout, "Break 2/2")
	assert.Contains(t, r.Stdout, "Recorded Maths: 2/2 x 1 min")
}

func TestHoldConsole_DefersErrorsUntilFlush(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "study.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr)
	a.sink = runlog.NewStoreSink(st, runlog.WithConsole(&stderr))

	flush := a.holdConsole()
	a.sink.Log(ctx, session.LevelError, "record failed mid-run")
	assert.Empty(t, stderr.String())

	flush()
	assert.Contains(t, stderr.String(), "record failed mid-run")

	a.sink.Log(ctx, session.LevelError, "after the run")
	assert.Contains(t, stderr.String(), "after the run")
}

func TestRun_RejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	r := env.run("run", "0", "30", "Physics", "--no-tui")
	require.Error(t, r.Err)
	assert.ErrorIs(t, r.Err, session.ErrValidation)

	r = env.run("run", "three", "--no-tui")
	require.Error(t, r.Err)
	assert.Equal(t, exitUserError, exitCode(r.Err))

	r = env.run("run", "1", "30", "Physics", "--no-tui", "--break", "-1")
	require.Error(t, r.Err)

	assert.Empty(t, env.history(t))
}

func TestRecover_ReportsInterruptedRun(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init")

	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(env.DataDir, "study.db"))
	require.NoError(t, err)
	_, err = st.InsertTempSession(ctx, session.TempSession{
		StartTime:       time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		Repetitions:     3,
		Label:           "History",
		RepetitionIndex: 2,
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	r := env.mustRun(t, "recover")
	assert.Contains(t, r.Stdout, `label="History" repetition_index=2 of 3`)
	assert.Contains(t, r.Stdout, "Cleared 1 interrupted session(s).")
	assert.Empty(t, r.Stderr)

	r = env.mustRun(t, "recover")
	assert.Contains(t, r.Stdout, "No interrupted sessions.")

	r = env.mustRun(t, "logs", "--json", "--level", "warn")
	var entries []session.LogEntry
	require.NoError(t, json.Unmarshal([]byte(r.Stdout), &entries))
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "interrupted study session")
}

func TestStartup_WarnsAboutInterruptedRun(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "init")

	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(env.DataDir, "study.db"))
	require.NoError(t, err)
	_, err = st.InsertTempSession(ctx, session.TempSession{
		StartTime:       time.Now(),
		DurationMinutes: 25,
		Repetitions:     0,
		Label:           "Pomodoro",
		RepetitionIndex: 4,
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	r := env.mustRun(t, "history")
	assert.Contains(t, r.Stderr, "warning: interrupted study session")
	assert.Contains(t, r.Stdout, "No study sessions recorded.")
}

func TestConfig(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("STUDYTIMER_TIMER_DEFAULT_MINUTES", "45")

	r := env.mustRun(t, "config", "--json")
	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(r.Stdout), &out))
	assert.Equal(t, "45", out["timer.default_minutes"])
	assert.Equal(t, "Unspecified", out["timer.default_label"])
	assert.Equal(t, env.DataDir, out["data_dir"])
}

func TestConfig_InvalidFile(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(env.ConfigDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(env.ConfigDir, "config.yaml"),
		[]byte("limits:\n  max_minutes: 0\n"), 0o600))

	r := env.run("history")
	require.Error(t, r.Err)
}

func TestLogs_BadLevel(t *testing.T) {
	env := newTestEnv(t)
	r := env.run("logs", "--level", "loud")
	require.Error(t, r.Err)
	assert.Equal(t, exitUserError, exitCode(r.Err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitSuccess, exitCode(nil))
	assert.Equal(t, exitUserError, exitCode(usagef("bad")))
	assert.Equal(t, exitUserError, exitCode(fmt.Errorf("record: %w", session.ErrValidation)))
	assert.Equal(t, exitSysError, exitCode(fmt.Errorf("x: %w", store.ErrWrite)))
	assert.Equal(t, exitSysError, exitCode(fmt.Errorf("x: %w", store.ErrInit)))
	assert.Equal(t, exitSysError, exitCode(fmt.Errorf("x: %w", store.ErrRead)))
}

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	got, err := parseSince("2026-10-14T09:00:00Z", now)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)))

	got, err = parseSince("48h", now)
	require.NoError(t, err)
	assert.True(t, got.Equal(now.Add(-48*time.Hour)))

	got, err = parseSince("2026-10-01", now)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Day())

	_, err = parseSince("last week", now)
	assert.Error(t, err)
}
