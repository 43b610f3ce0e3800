package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/pomo/internal/stats"
	"github.com/joescharf/pomo/internal/store"
	"github.com/joescharf/pomo/internal/timer"
	"github.com/joescharf/pomo/internal/tui"
)

var (
	startFocus int
	startBreak int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the interactive timer",
	Long: `Open the timer screen. Space or enter starts and pauses, r resets,
q quits. A focus session is recorded when its countdown reaches zero;
quitting or resetting mid-phase records nothing.

--focus and --break override timer.focus_minutes and timer.break_minutes
for this run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRun(cmd.Context())
	},
}

func init() {
	startCmd.Flags().IntVar(&startFocus, "focus", 0, "Focus minutes (default from config)")
	startCmd.Flags().IntVar(&startBreak, "break", 0, "Break minutes (default from config)")
	rootCmd.AddCommand(startCmd)
}

// startConfig applies the flag overrides to the configured durations.
func startConfig() timer.Config {
	cfg := timerConfig()
	if startFocus > 0 {
		cfg.FocusSeconds = startFocus * 60
	}
	if startBreak > 0 {
		cfg.BreakSeconds = startBreak * 60
	}
	return cfg
}

func startRun(ctx context.Context) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	// Anything written to the terminal would corrupt the timer screen.
	logger, err := newLogger(io.Discard)
	if err != nil {
		return err
	}
	defer logger.Close()

	lt, err := startLiveTimer(ctx, startConfig(), s, logger.Logger)
	if err != nil {
		return err
	}

	events, unsubscribe := lt.runner.Subscribe(32)
	defer unsubscribe()

	// The screen rings the bell itself; only the external command is
	// delivered from here.
	notifier := newNotifier(nil)

	runErr := tui.Run(ctx, lt.runner, tui.Options{
		Events:  events,
		Summary: summaryFunc(s),
		Bell:    viper.GetBool("notify.bell"),
		OnPhaseComplete: func(e timer.Event) {
			deliver(ctx, notifier, e, logger.Logger)
		},
	})
	if err := lt.stop(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return fmt.Errorf("timer: %w", runErr)
	}

	summary, err := summaryFunc(s)(ctx)
	if err == nil {
		ui.Info("Today: %d sessions, streak %d days", summary.Today, summary.Streak)
	}
	return nil
}

// summaryFunc loads the focus log and summarizes it as of now.
func summaryFunc(s store.Store) tui.SummaryFunc {
	return func(ctx context.Context) (stats.Summary, error) {
		sessions, err := loadFocusSessions(ctx, s)
		if err != nil {
			return stats.Summary{}, err
		}
		return stats.Summarize(sessions, nowFunc()), nil
	}
}
