package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/pomo/internal/daemon"
)

var (
	stopForce   bool
	stopTimeout = 5 * time.Second
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running timer (start, serve or mcp)",
	Long: `Ask the running pomo timer to shut down. An unfinished focus phase
is not recorded.

With --force the process is killed if it has not exited in time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopRun()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a timer is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun()
	},
}

func init() {
	stopCmd.Flags().BoolVarP(&stopForce, "force", "f", false, "Kill the process if it does not exit")
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
}

func statusRun() error {
	pf := daemon.NewPIDFile(pidFilePath())
	if pid, running := pf.IsRunning(); running {
		ui.Success("Timer running (pid %d)", pid)
		ui.VerboseLog("PID file: %s", pf.Path)
		return nil
	}
	ui.Info("No running timer")
	return nil
}

func stopRun() error {
	pf := daemon.NewPIDFile(pidFilePath())

	pid, running := pf.IsRunning()
	if !running {
		if pid != 0 {
			ui.VerboseLog("Removing stale PID file for pid %d", pid)
			if err := pf.Remove(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("remove stale PID file: %w", err)
			}
		}
		ui.Info("No running timer")
		return nil
	}

	if err := pf.Signal(sigTERM()); err != nil {
		return fmt.Errorf("signal pid %d: %w", pid, err)
	}
	if waitForExit(pf, stopTimeout) {
		ui.Success("Stopped timer (pid %d)", pid)
		return nil
	}

	if !stopForce {
		return fmt.Errorf("timer (pid %d) did not exit within %s; retry with --force", pid, stopTimeout)
	}
	if err := pf.Signal(sigKILL()); err != nil {
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	_ = pf.Remove()
	ui.Warning("Killed timer (pid %d)", pid)
	return nil
}

// waitForExit polls until the PID file's process is gone or timeout passes.
func waitForExit(pf *daemon.PIDFile, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, running := pf.IsRunning(); !running {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
