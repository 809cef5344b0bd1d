package internal

import (
	"context"
	"log/slog"
	"time"

	"studytimer/internal/session"
	"studytimer/internal/study"
	"studytimer/internal/timer"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	summarySize = 5
	historySize = 50
)

// MsgTick advances the countdown by one step.
type MsgTick struct{}

// HistoryFunc loads recent study sessions for display.
type HistoryFunc func(ctx context.Context, limit int) ([]session.StudySession, error)

// Options configures a Model.
type Options struct {
	Run     *study.Run
	Plan    timer.Plan
	History HistoryFunc
	// Step is the tick interval and how much time each tick removes.
	// Defaults to one second.
	Step time.Duration
}

// Model owns all timer state for one run. Every change happens inside
// Update, so storage calls and ticks never overlap.
type Model struct {
	ctx     context.Context
	run     *study.Run
	plan    timer.Plan
	history HistoryFunc
	step    time.Duration

	Timer      *timer.Timer
	PhaseIndex int
	Phase      timer.Phase
	ticking    bool

	Err      error
	Finished bool
	Recent   []session.StudySession

	ShowHistory   bool
	HistoryScroll int
}

func NewModel(ctx context.Context, opts Options) *Model {
	step := opts.Step
	if step <= 0 {
		step = time.Second
	}
	m := &Model{
		ctx:     ctx,
		run:     opts.Run,
		plan:    opts.Plan,
		history: opts.History,
		step:    step,
		Timer:   timer.New(opts.Plan.Study),
	}
	m.enterPhase(0)
	return m
}

func (m *Model) Init() tea.Cmd {
	return m.startTicking()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case MsgTick:
		if !m.Timer.Running() {
			// Stopped: let the tick chain end here.
			m.ticking = false
			return m, nil
		}
		if m.Timer.Tick(m.step) {
			m.ticking = false
			return m, m.finishPhase()
		}
		return m, m.nextTick()
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		return m, nil
	}
	return m, nil
}

func (m *Model) View() string {
	if m.ShowHistory {
		return m.historyView()
	}
	if m.Err != nil {
		return m.errorView()
	}
	if m.Finished {
		return m.summaryView()
	}
	return m.mainView()
}

// Run exposes the run being timed.
func (m *Model) Run() *study.Run {
	return m.run
}

// Active reports whether the run still has time to count down.
func (m *Model) Active() bool {
	return m.Err == nil && !m.Finished && !m.run.Over()
}

func (m *Model) startTicking() tea.Cmd {
	if m.ticking || !m.Timer.Running() {
		return nil
	}
	m.ticking = true
	return m.nextTick()
}

func (m *Model) nextTick() tea.Cmd {
	return tea.Tick(m.step, func(time.Time) tea.Msg { return MsgTick{} })
}

// enterPhase starts phase i, writing the repetition marker when it is a
// study phase.
func (m *Model) enterPhase(i int) {
	phase, ok := m.plan.Phase(i)
	if !ok {
		m.Finished = true
		return
	}
	if phase.Kind == timer.Study {
		if err := m.run.StartRepetition(m.ctx); err != nil {
			m.fail(err)
			return
		}
	}
	m.PhaseIndex = i
	m.Phase = phase
	m.Timer.Restart(phase.Length)
	m.Timer.Start()
}

func (m *Model) finishPhase() tea.Cmd {
	if m.Phase.Kind == timer.Study {
		done, err := m.run.CompleteRepetition(m.ctx)
		if err != nil {
			m.fail(err)
			return nil
		}
		if done {
			m.Finished = true
			m.loadRecent(summarySize)
			return nil
		}
	}
	m.enterPhase(m.PhaseIndex + 1)
	if !m.Active() {
		return nil
	}
	return m.startTicking()
}

func (m *Model) fail(err error) {
	m.Err = err
	m.Timer.Stop()
	m.run.Abort()
	slog.Error("study run aborted", "label", m.run.Input().Label, "error", err)
}

func (m *Model) loadRecent(limit int) {
	if m.history == nil {
		return
	}
	recent, err := m.history(m.ctx, limit)
	if err != nil {
		slog.Warn("could not load recent sessions", "error", err)
		return
	}
	m.Recent = recent
	// The list may have shrunk under an open history view.
	m.HistoryScroll = min(m.HistoryScroll, max(len(recent)-1, 0))
}

// Quit stops an unfinished run so its marker is not mistaken for a crash.
func (m *Model) Quit() {
	if !m.Active() {
		return
	}
	m.Timer.Stop()
	if err := m.run.Stop(m.ctx); err != nil {
		m.Err = err
		slog.Error("could not stop run cleanly", "error", err)
	}
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ShowHistory {
		return m.handleHistoryInput(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.Quit()
		return m, tea.Quit
	case " ", "p":
		if !m.Active() {
			break
		}
		m.Timer.Toggle()
		return m, m.startTicking()
	case "r":
		if !m.Active() {
			break
		}
		running := m.Timer.Running()
		m.Timer.Reset()
		if running {
			m.Timer.Start()
		}
	case "s":
		// Only breaks can be skipped; a skipped study phase would count
		// as completed.
		if m.Active() && m.Phase.Kind == timer.Break {
			m.Timer.Stop()
			return m, m.finishPhase()
		}
	case "h":
		m.loadRecent(historySize)
		m.ShowHistory = true
		m.HistoryScroll = 0
	}
	return m, nil
}

func (m *Model) handleHistoryInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.Quit()
		return m, tea.Quit
	case "q", "esc", "h":
		m.ShowHistory = false
	case "up", "k":
		if m.HistoryScroll > 0 {
			m.HistoryScroll--
		}
	case "down", "j":
		maxScroll := max(len(m.Recent)-1, 0)
		if m.HistoryScroll < maxScroll {
			m.HistoryScroll++
		}
	}
	return m, nil
}
