package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"studytimer/internal"
	"studytimer/internal/recovery"
	"studytimer/internal/session"
	"studytimer/internal/store"
	"studytimer/internal/study"
	"studytimer/internal/timer"
)

// pomodoroLabel is recorded for open-ended runs.
const pomodoroLabel = "Pomodoro"

type runFlags struct {
	noTUI        bool
	breakMinutes int
	tick         time.Duration
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noTUI, "no-tui", false, "print progress lines instead of the full-screen timer")
	cmd.Flags().IntVar(&f.breakMinutes, "break", 0, "break length in minutes between repetitions, 0 for none (default: timer.break_minutes)")
	cmd.Flags().DurationVar(&f.tick, "tick", time.Second, "wall-clock interval of one timer second")
	_ = cmd.Flags().MarkHidden("tick")
}

func (a *app) newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [repetitions] [minutes] [label]",
		Short: "Time a study run and record it when every repetition is done",
		Long: `Run times the given number of study repetitions with a break between
consecutive repetitions. The run is recorded once the last repetition ends.
Quitting early records nothing.

Missing arguments fall back to timer.default_* in config.yaml. Characters
outside the label whitelist are removed from the label.

Example:
  studytimer run
  studytimer run 3 30 Physics
  studytimer run 2 45 "Linear Algebra" --break 10`,
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.runInput(args)
			if err != nil {
				return err
			}
			return a.execRun(cmd, in, f)
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) newPomodoroCmd() *cobra.Command {
	var (
		f       runFlags
		minutes int
	)
	cmd := &cobra.Command{
		Use:   "pomodoro",
		Short: "Run pomodoro repetitions until you quit",
		Long: `Pomodoro repeats study phases of timer.pomodoro_minutes separated by
breaks until you quit. The repetitions completed so far are then recorded
under the label "Pomodoro".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if minutes == 0 {
				minutes = a.cfg.Timer.PomodoroMinutes
			}
			in := study.Input{DurationMinutes: minutes, Label: pomodoroLabel}
			return a.execRun(cmd, in, f)
		},
	}
	f.register(cmd)
	cmd.Flags().IntVar(&minutes, "minutes", 0, "study phase length (default: timer.pomodoro_minutes)")
	return cmd
}

// runInput fills missing positional arguments from the configured defaults.
func (a *app) runInput(args []string) (study.Input, error) {
	in := study.Input{
		Repetitions:     a.cfg.Timer.DefaultRepetitions,
		DurationMinutes: a.cfg.Timer.DefaultMinutes,
		Label:           a.cfg.Timer.DefaultLabel,
	}
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return in, usagef("repetitions must be a whole number, got %q", args[0])
		}
		in.Repetitions = n
	}
	// Zero repetitions would make an open-ended run; that is what pomodoro is for.
	if err := a.limits.ValidateRepetitions(in.Repetitions); err != nil {
		return in, err
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return in, usagef("minutes must be a whole number, got %q", args[1])
		}
		in.DurationMinutes = n
	}
	if len(args) > 2 {
		label := a.limits.CleanLabel(args[2])
		switch {
		case label == "":
			fmt.Fprintf(a.stderr, "warning: label %q has no usable characters, using %q\n", args[2], a.cfg.Timer.DefaultLabel)
			label = a.cfg.Timer.DefaultLabel
		case label != args[2]:
			fmt.Fprintf(a.stderr, "warning: label %q shortened to %q\n", args[2], label)
		}
		in.Label = label
	}
	return in, nil
}

func (a *app) execRun(cmd *cobra.Command, in study.Input, f runFlags) error {
	breakMinutes := a.cfg.Timer.BreakMinutes
	if cmd.Flags().Changed("break") {
		breakMinutes = f.breakMinutes
	}
	if breakMinutes < 0 || breakMinutes > a.limits.MaxMinutes {
		return usagef("break must be between 0 and %d minutes", a.limits.MaxMinutes)
	}
	if f.tick <= 0 {
		return usagef("tick must be positive")
	}

	rec := study.NewRecorder(a.store, a.limits, a.sink)
	run, err := study.NewRun(rec, recovery.NewTracker(a.store, a.sink), in)
	if err != nil {
		return err
	}

	// Storage calls made while stopping must outlive a cancelled command.
	ctx := context.WithoutCancel(cmd.Context())
	m := internal.NewModel(ctx, internal.Options{
		Run: run,
		Plan: timer.Plan{
			Study:       time.Duration(in.DurationMinutes) * time.Minute,
			Break:       time.Duration(breakMinutes) * time.Minute,
			Repetitions: in.Repetitions,
		},
		History: a.history,
	})

	if f.noTUI {
		err = runHeadless(cmd.Context(), a.stdout, m, f.tick)
	} else {
		flush := a.holdConsole()
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		flush()
		if err != nil {
			m.Quit()
		}
	}
	if err != nil {
		return err
	}
	if m.Err != nil {
		return m.Err
	}
	return a.printRunResult(run)
}

// holdConsole buffers the sink's console output until flush is called, so
// error events logged mid-run do not draw over the full-screen timer.
func (a *app) holdConsole() (flush func()) {
	if a.sink == nil {
		return func() {}
	}
	var buf bytes.Buffer
	a.sink.SetConsole(&buf)
	return func() {
		a.sink.SetConsole(a.stderr)
		_, _ = a.stderr.Write(buf.Bytes())
	}
}

func (a *app) history(ctx context.Context, limit int) ([]session.StudySession, error) {
	return a.store.StudyHistory(ctx, store.HistoryQuery{Limit: limit})
}

// runHeadless drives the model from a wall-clock ticker until the run ends
// or ctx is cancelled. Each tick advances the timer by one second.
func runHeadless(ctx context.Context, out io.Writer, m *internal.Model, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	phase := -1
	for m.Active() {
		if m.PhaseIndex != phase {
			phase = m.PhaseIndex
			fmt.Fprintln(out, describePhase(m))
		}
		select {
		case <-ctx.Done():
			m.Quit()
			fmt.Fprintln(out, "stopped:", m.Run().Summary())
			return nil
		case <-ticker.C:
			m.Update(internal.MsgTick{})
		}
	}
	return nil
}

func describePhase(m *internal.Model) string {
	run := m.Run()
	in := run.Input()
	if run.OpenEnded() {
		return fmt.Sprintf("%s %d (%s): %s", m.Phase.Kind, m.Phase.Repetition, in.Label, internal.FormatDuration(m.Phase.Length))
	}
	return fmt.Sprintf("%s %d/%d (%s): %s", m.Phase.Kind, m.Phase.Repetition, in.Repetitions, in.Label, internal.FormatDuration(m.Phase.Length))
}

type runResult struct {
	SessionID   string `json:"session_id,omitempty"`
	Label       string `json:"label"`
	Minutes     int    `json:"duration_minutes"`
	Completed   int    `json:"completed_repetitions"`
	Repetitions int    `json:"repetitions"`
	Recorded    bool   `json:"recorded"`
}

func (a *app) printRunResult(run *study.Run) error {
	in := run.Input()
	res := runResult{
		SessionID:   run.SessionID(),
		Label:       in.Label,
		Minutes:     in.DurationMinutes,
		Completed:   run.Completed(),
		Repetitions: in.Repetitions,
		Recorded:    run.SessionID() != "",
	}
	if a.flags.jsonMode {
		output, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Fprintln(a.stdout, string(output))
		return nil
	}
	if res.Recorded {
		fmt.Fprintf(a.stdout, "Recorded %s (%s)\n", run.Summary(), res.SessionID)
	} else {
		fmt.Fprintf(a.stdout, "Not recorded: %s\n", run.Summary())
	}
	return nil
}
