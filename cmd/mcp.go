package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/pomo/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio with a live timer.

This lets Claude Code start, pause and inspect your pomodoro timer and read
your focus log. Configure in Claude Code with:

  {
    "mcpServers": {
      "pomo": { "command": "pomo", "args": ["mcp"] }
    }
  }

Available tools: pomo_timer_status, pomo_timer_start, pomo_timer_pause,
pomo_timer_reset, pomo_timer_configure, pomo_list_sessions, pomo_stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	s, err := getStore()
	if err != nil {
		return err
	}

	// stdout carries the protocol; logs and the bell go to stderr.
	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer logger.Close()

	lt, err := startLiveTimer(ctx, timerConfig(), s, logger.Logger)
	if err != nil {
		return err
	}
	go notifyLoop(ctx, lt.runner, newNotifier(os.Stderr), logger.Logger)
	watchTimerConfig(ctx, lt.runner, logger.Logger)

	serveErr := mcp.NewServer(lt.runner, s, buildVersion).ServeStdio(ctx)
	if ctx.Err() != nil {
		serveErr = nil
	}
	if err := lt.stop(); err != nil && serveErr == nil {
		serveErr = err
	}
	if serveErr != nil {
		return fmt.Errorf("mcp server: %w", serveErr)
	}
	return nil
}
