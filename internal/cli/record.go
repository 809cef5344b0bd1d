package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"studytimer/internal/study"
)

func (a *app) newRecordCmd() *cobra.Command {
	var started string
	cmd := &cobra.Command{
		Use:   "record <minutes> <repetitions> <label>",
		Short: "Record a study session without running the timer",
		Long: `Record validates and stores one completed study session. Unlike run, the
label is not cleaned: a label with characters outside the whitelist is
rejected and nothing is written.

Example:
  studytimer record 30 3 Physics
  studytimer record 45 2 "Organic Chemistry" --started 2026-10-14T09:00:00Z`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[0])
			if err != nil {
				return usagef("minutes must be a whole number, got %q", args[0])
			}
			reps, err := strconv.Atoi(args[1])
			if err != nil {
				return usagef("repetitions must be a whole number, got %q", args[1])
			}
			in := study.Input{
				DurationMinutes: minutes,
				Repetitions:     reps,
				Label:           strings.Join(args[2:], " "),
			}
			if started != "" {
				t, err := time.Parse(time.RFC3339, started)
				if err != nil {
					return usagef("--started must be RFC3339, got %q", started)
				}
				in.StartedAt = t
			}

			rec := study.NewRecorder(a.store, a.limits, a.sink)
			id, err := rec.RecordSession(cmd.Context(), in)
			if err != nil {
				return err
			}

			if a.flags.jsonMode {
				output, err := json.MarshalIndent(map[string]string{"id": id}, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal id: %w", err)
				}
				fmt.Fprintln(a.stdout, string(output))
				return nil
			}
			fmt.Fprintln(a.stdout, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&started, "started", "", "start time in RFC3339 (default: now minus the total study time)")
	return cmd
}
