package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"studytimer/internal/recovery"
	"studytimer/internal/session"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration file and the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := a.store.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return writeJSON(a.stdout, map[string]any{
					"config_dir":     a.configDir,
					"data_dir":       a.dataDir,
					"database":       a.store.Path(),
					"schema_version": version,
				})
			}
			fmt.Fprintln(a.stdout, "Studytimer initialized successfully")
			fmt.Fprintln(a.stdout, "  config:  ", a.configDir)
			fmt.Fprintln(a.stdout, "  data:    ", a.dataDir)
			fmt.Fprintln(a.stdout, "  database:", a.store.Path())
			fmt.Fprintln(a.stdout, "  schema:  ", version)
			return nil
		},
	}
}

func (a *app) newRecoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Report and clear study runs interrupted by a crash",
		Long: `Recover lists the repetitions that were in progress when a previous
process died. Every command clears these on start and logs a warning for
each; recover shows them instead of printing warnings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.flags.jsonMode {
				leftover := a.recovered
				if leftover == nil {
					leftover = []session.TempSession{}
				}
				return writeJSON(a.stdout, leftover)
			}
			if len(a.recovered) == 0 {
				fmt.Fprintln(a.stdout, "No interrupted sessions.")
				return nil
			}
			for _, ts := range a.recovered {
				fmt.Fprintln(a.stdout, recovery.Describe(ts))
			}
			fmt.Fprintf(a.stdout, "Cleared %d interrupted session(s).\n", len(a.recovered))
			return nil
		},
	}
}

func (a *app) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "config",
		Short:       "Print the effective configuration",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.cfg
			rows := [][2]string{
				{"config_file", filepath.Join(a.configDir, "config.yaml")},
				{"data_dir", a.dataDir},
				{"db_file", c.DBFile},
				{"log_level", c.Level().String()},
				{"limits.max_minutes", fmt.Sprint(c.Limits.MaxMinutes)},
				{"limits.max_repetitions", fmt.Sprint(c.Limits.MaxRepetitions)},
				{"limits.max_label_length", fmt.Sprint(c.Limits.MaxLabelLength)},
				{"limits.label_pattern", c.Limits.LabelPattern},
				{"limits.max_log_message_length", fmt.Sprint(c.Limits.MaxLogMessageLength)},
				{"timer.default_minutes", fmt.Sprint(c.Timer.DefaultMinutes)},
				{"timer.default_repetitions", fmt.Sprint(c.Timer.DefaultRepetitions)},
				{"timer.default_label", c.Timer.DefaultLabel},
				{"timer.break_minutes", fmt.Sprint(c.Timer.BreakMinutes)},
				{"timer.pomodoro_minutes", fmt.Sprint(c.Timer.PomodoroMinutes)},
			}
			if a.flags.jsonMode {
				out := make(map[string]string, len(rows))
				for _, r := range rows {
					out[r[0]] = r[1]
				}
				return writeJSON(a.stdout, out)
			}
			var sb strings.Builder
			tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
			}
			tw.Flush()
			writeTrimmed(a.stdout, sb.String())
			return nil
		},
	}
}
