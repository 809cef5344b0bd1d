package internal

import (
	"fmt"
	"strings"
	"time"

	"studytimer/internal/session"
	"studytimer/internal/timer"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true).
			Align(lipgloss.Center)

	timerDisplayStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("69")).
				Bold(true)

	timerRunningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("82")).
				Bold(true)

	breakStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	logHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	logTagStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170"))

	logTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	inactiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	runningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)
)

// FormatDuration renders d as m:ss or h:mm:ss.
func FormatDuration(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func (m *Model) mainView() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Width(50).Render("Study Timer"))
	sb.WriteString("\n\n")

	in := m.run.Input()
	var repetition string
	if m.run.OpenEnded() {
		repetition = fmt.Sprintf("Repetition %d", m.Phase.Repetition)
	} else {
		repetition = fmt.Sprintf("Repetition %d of %d", m.Phase.Repetition, in.Repetitions)
	}

	phase := timerDisplayStyle.Render(m.Phase.Kind.String())
	if m.Phase.Kind == timer.Break {
		phase = breakStyle.Render(m.Phase.Kind.String())
	}

	clock := timerDisplayStyle.Render(FormatDuration(m.Timer.Remaining()))
	status := inactiveStyle.Render("Paused")
	if m.Timer.Running() {
		clock = timerRunningStyle.Render(FormatDuration(m.Timer.Remaining()))
		status = runningStyle.Render("Running")
	}

	body := fmt.Sprintf("Subject: %s\n%s\n\n%s  %s\n\n%s",
		logTagStyle.Render(in.Label), repetition, phase, clock, status)
	sb.WriteString(boxStyle.Width(50).Render(body))
	sb.WriteString("\n\n")

	help := "Pause/Resume: Space | Reset: r | History: h | Quit: q"
	if m.Phase.Kind == timer.Break {
		help = "Pause/Resume: Space | Skip break: s | Reset: r | History: h | Quit: q"
	}
	sb.WriteString(helpStyle.Render(help))
	return sb.String()
}

func (m *Model) summaryView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Width(50).Render("Session Complete"))
	sb.WriteString("\n\n")
	sb.WriteString(m.run.Summary())
	sb.WriteString("\n")

	if len(m.Recent) > 0 {
		sb.WriteString("\n")
		sb.WriteString(logHeaderStyle.Render("Recent Sessions"))
		sb.WriteString("\n")
		for _, s := range m.Recent {
			sb.WriteString(FormatSessionEntry(s))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("History: h | Quit: q"))
	return boxStyle.Width(60).Render(sb.String())
}

func (m *Model) errorView() string {
	var sb strings.Builder
	sb.WriteString(errorStyle.Render("Run stopped"))
	sb.WriteString("\n\n")
	sb.WriteString(m.Err.Error())
	sb.WriteString("\n\n")
	sb.WriteString(inactiveStyle.Render(m.run.Summary()))
	sb.WriteString("\n\n")
	sb.WriteString(helpStyle.Render("Quit: q"))
	return boxStyle.Width(60).Render(sb.String())
}

func (m *Model) historyView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Width(60).Render("Study History"))
	sb.WriteString("\n\n")

	if len(m.Recent) == 0 {
		sb.WriteString(inactiveStyle.Render("No sessions recorded yet."))
	} else {
		start := min(max(m.HistoryScroll, 0), len(m.Recent)-1)
		end := min(start+15, len(m.Recent))
		for _, s := range m.Recent[start:end] {
			sb.WriteString(FormatSessionEntry(s))
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("Scroll: Up/Down | Back: h/esc"))
	return sb.String()
}

// FormatSessionEntry renders one history line.
func FormatSessionEntry(s session.StudySession) string {
	timeStr := logTimeStyle.Render(s.EndTime.Local().Format("Jan 02 15:04"))
	plan := fmt.Sprintf("%d x %d min", s.Repetitions, s.DurationMinutes)
	return fmt.Sprintf("  %s  %-14s %s", timeStr, plan, logTagStyle.Render("["+s.Label+"]"))
}
