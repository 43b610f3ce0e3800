package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/stats"
	"github.com/joescharf/pomo/internal/store"
)

var (
	logLimit int
	logToday bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List completed focus sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		return logRun(cmd.Context(), s)
	},
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "l", 20, "Maximum number of sessions to show")
	logCmd.Flags().BoolVar(&logToday, "today", false, "Only sessions completed today")
	rootCmd.AddCommand(logCmd)
}

func logRun(ctx context.Context, s store.Store) error {
	if logLimit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", logLimit)
	}

	filter := store.SessionFilter{Kind: models.SessionKindFocus, Limit: logLimit}
	if logToday {
		filter.Since = stats.StartOfDay(nowFunc())
	}

	sessions, err := s.ListSessions(ctx, filter)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		ui.Info("No completed sessions yet. Run 'pomo start' to begin one.")
		return nil
	}

	printSessions(sessions)
	return nil
}

// printSessions renders sessions as a table in local time.
func printSessions(sessions []*models.CompletedSession) {
	table := ui.Table([]string{"Completed", "Duration", "ID"})
	for _, sess := range sessions {
		_ = table.Append([]string{
			sess.CompletedAt.Local().Format("Mon Jan 2 15:04"),
			output.FormatDuration(sess.DurationSeconds),
			output.Cyan(sess.ID),
		})
	}
	_ = table.Render()
}
