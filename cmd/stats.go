package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/stats"
	"github.com/joescharf/pomo/internal/store"
)

// nowFunc is the reporting clock, replaceable in tests.
var nowFunc = time.Now

const chartWidth = 30

var insightsAI bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show today, this week, streak and the last 7 days",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		return statsRun(cmd.Context(), s)
	},
}

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Suggestions based on your focus log",
	Long: `Show rule-based suggestions derived from your focus log.

With --ai the week's figures are sent to the Anthropic API for a short
written review. Requires anthropic.api_key or $ANTHROPIC_API_KEY.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		return insightsRun(cmd.Context(), s)
	},
}

func init() {
	insightsCmd.Flags().BoolVar(&insightsAI, "ai", false, "Ask Claude for a weekly review")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(insightsCmd)
}

// loadFocusSessions returns the whole focus log, newest first.
func loadFocusSessions(ctx context.Context, s store.Store) ([]*models.CompletedSession, error) {
	sessions, err := s.ListSessions(ctx, store.SessionFilter{Kind: models.SessionKindFocus})
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	return sessions, nil
}

func statsRun(ctx context.Context, s store.Store) error {
	sessions, err := loadFocusSessions(ctx, s)
	if err != nil {
		return err
	}
	now := nowFunc()
	summary := stats.Summarize(sessions, now)

	fmt.Fprintf(ui.Out, "%s  %d sessions\n", output.Cyan("Today     "), summary.Today)
	fmt.Fprintf(ui.Out, "%s  %d sessions\n", output.Cyan("This week "), summary.Week)
	fmt.Fprintf(ui.Out, "%s  %s days\n", output.Cyan("Streak    "), output.StreakColor(summary.Streak))
	fmt.Fprintf(ui.Out, "%s  %d sessions, %s focused\n", output.Cyan("All time  "), summary.TotalSessions, output.FormatDuration(summary.TotalFocusSeconds))

	fmt.Fprintln(ui.Out)
	printDays(stats.LastDays(sessions, now, 7))

	if len(summary.Recent) > 0 {
		fmt.Fprintln(ui.Out)
		printSessions(summary.Recent)
	}

	fmt.Fprintln(ui.Out)
	printInsights(stats.Insights(summary, now))
	return nil
}

// printDays draws the per-day focus minutes as a horizontal bar chart.
func printDays(days []stats.Day) {
	peak := 0
	for _, d := range days {
		peak = max(peak, d.FocusMinutes)
	}
	for _, d := range days {
		fmt.Fprintf(ui.Out, "  %s  %-*s %3d min\n", d.Label(), chartWidth, output.Bar(d.FocusMinutes, peak, chartWidth), d.FocusMinutes)
	}
}

func printInsights(insights []stats.Insight) {
	for _, in := range insights {
		ui.Info("%s", in.Text)
	}
}

func insightsRun(ctx context.Context, s store.Store) error {
	sessions, err := loadFocusSessions(ctx, s)
	if err != nil {
		return err
	}
	now := nowFunc()
	summary := stats.Summarize(sessions, now)
	printInsights(stats.Insights(summary, now))

	if !insightsAI {
		return nil
	}

	client := newLLMClient()
	if client == nil {
		return fmt.Errorf("no Anthropic API key configured; set anthropic.api_key or ANTHROPIC_API_KEY")
	}
	ui.VerboseLog("Requesting weekly review")
	review, err := client.WeeklyReview(ctx, summary, stats.LastDays(sessions, now, 7))
	if err != nil {
		return fmt.Errorf("weekly review: %w", err)
	}
	fmt.Fprintln(ui.Out)
	fmt.Fprintln(ui.Out, review)
	return nil
}
