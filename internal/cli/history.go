package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"studytimer/internal/session"
	"studytimer/internal/store"
)

var headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)

func (a *app) newHistoryCmd() *cobra.Command {
	var (
		limit int
		since string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded study sessions, most recent first",
		Long: `History lists recorded study sessions ordered by end time, newest first.

--since accepts an RFC3339 timestamp, a date (2006-01-02, local time) or a
duration back from now (e.g. 72h).

Example:
  studytimer history
  studytimer history --limit 5
  studytimer history --since 2026-10-01 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return usagef("--limit must be >= 0")
			}
			q := store.HistoryQuery{Limit: limit}
			if since != "" {
				t, err := parseSince(since, time.Now())
				if err != nil {
					return err
				}
				q.Since = t
			}

			sessions, err := a.store.StudyHistory(cmd.Context(), q)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(a.stdout, sessions)
			}
			printSessionTable(a.stdout, sessions)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results (0 = no limit)")
	cmd.Flags().StringVar(&since, "since", "", "only sessions that ended at or after this time")
	return cmd
}

func (a *app) newLogsCmd() *cobra.Command {
	var (
		limit int
		level string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List runtime log entries, most recent first",
		Long: `Logs lists the runtime log kept in the database, newest first.

Example:
  studytimer logs
  studytimer logs --level warn --limit 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return usagef("--limit must be >= 0")
			}
			q := store.LogQuery{Limit: limit}
			if level != "" {
				l, err := session.ParseLevel(level)
				if err != nil {
					return usageError{err}
				}
				q.MinLevel = &l
			}

			entries, err := a.store.RuntimeLogs(cmd.Context(), q)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(a.stdout, entries)
			}
			printLogTable(a.stdout, entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results (0 = no limit)")
	cmd.Flags().StringVar(&level, "level", "", "minimum level: debug, info, warn, error, critical")
	return cmd
}

// parseSince accepts RFC3339, a plain date in local time, or a duration
// back from now.
func parseSince(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return now.Add(-d), nil
	}
	return time.Time{}, usagef("--since: cannot parse %q as a time, date or duration", s)
}

func writeJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(output))
	return nil
}

// printSessionTable prints sessions in a human-readable table format.
func printSessionTable(w io.Writer, sessions []session.StudySession) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No study sessions recorded.")
		return
	}

	fmt.Fprintln(w, headerStyle.Render("Study history"))
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENDED\tREPS\tMINUTES\tTOTAL\tLABEL")
	fmt.Fprintln(tw, "-----\t----\t-------\t-----\t-----")
	var total time.Duration
	for _, s := range sessions {
		total += s.Duration()
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n",
			s.EndTime.Local().Format("2006-01-02 15:04"),
			s.Repetitions,
			s.DurationMinutes,
			s.Duration(),
			s.Label,
		)
	}
	tw.Flush()
	writeTrimmed(w, sb.String())
	fmt.Fprintf(w, "Total: %d session(s), %s studied\n", len(sessions), total)
}

// printLogTable prints log entries in a human-readable table format.
func printLogTable(w io.Writer, entries []session.LogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No log entries.")
		return
	}

	fmt.Fprintln(w, headerStyle.Render("Runtime log"))
	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tLEVEL\tMESSAGE")
	fmt.Fprintln(tw, "----\t-----\t-------")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			e.Level,
			e.Message,
		)
	}
	tw.Flush()
	writeTrimmed(w, sb.String())
}

func writeTrimmed(w io.Writer, s string) {
	for _, line := range strings.Split(strings.TrimRight(s, "\n"), "\n") {
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
