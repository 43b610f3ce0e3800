package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/joescharf/pomo/internal/daemon"
	"github.com/joescharf/pomo/internal/notify"
	"github.com/joescharf/pomo/internal/runner"
	"github.com/joescharf/pomo/internal/store"
	"github.com/joescharf/pomo/internal/timer"
)

// liveTimer is a running timer instance: the PID lock, the runner loop and
// the store it appends to.
type liveTimer struct {
	runner *runner.Runner
	lock   *daemon.Lock
	cancel context.CancelFunc
	errc   chan error
}

// startLiveTimer takes the single-instance lock and starts a runner loop in
// the background. Call stop to shut it down.
func startLiveTimer(ctx context.Context, cfg timer.Config, s store.Store, logger *slog.Logger) (*liveTimer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lock, err := daemon.Acquire(pidFilePath())
	if err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return nil, fmt.Errorf("%w; stop it with 'pomo stop'", err)
		}
		return nil, err
	}

	r, err := runner.New(cfg, s, runner.WithLogger(logger))
	if err != nil {
		_ = lock.Release()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	lt := &liveTimer{runner: r, lock: lock, cancel: cancel, errc: make(chan error, 1)}
	go func() { lt.errc <- r.Run(runCtx) }()

	logger.Info("timer started", "focus_seconds", cfg.FocusSeconds, "break_seconds", cfg.BreakSeconds, "pid_file", lock.Path())
	return lt, nil
}

// stop ends the run loop and releases the lock.
func (lt *liveTimer) stop() error {
	lt.cancel()
	err := <-lt.errc
	if rerr := lt.lock.Release(); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

// newNotifier builds the phase-completion notifier from notify.* config.
// The bell writes to bellOut. It returns nil when nothing is configured.
func newNotifier(bellOut io.Writer) notify.Notifier {
	var ns notify.Multi
	if viper.GetBool("notify.bell") && bellOut != nil {
		ns = append(ns, notify.NewBell(bellOut))
	}
	if c := notify.ParseCommand(viper.GetString("notify.command")); c != nil {
		ns = append(ns, c)
	}
	if len(ns) == 0 {
		return nil
	}
	return ns
}

// deliver sends the notification for e, if it has one, and logs failures.
func deliver(ctx context.Context, n notify.Notifier, e timer.Event, logger *slog.Logger) {
	if n == nil {
		return
	}
	msg, ok := notify.FromEvent(e)
	if !ok {
		return
	}
	if err := n.Notify(ctx, msg); err != nil {
		logger.Warn("notification failed", "event", e.Type, "error", err)
	}
}

// notifyLoop delivers a notification for every completed phase until the
// runner stops.
func notifyLoop(ctx context.Context, r *runner.Runner, n notify.Notifier, logger *slog.Logger) {
	events, unsubscribe := r.Subscribe(16)
	defer unsubscribe()
	for e := range events {
		if e.PhaseCompleted() {
			logger.Info("phase completed", "event", e.Type, "state", e.State)
			deliver(ctx, n, e, logger)
		}
	}
}

// watchTimerConfig applies edited timer.* durations from the config file to
// the live timer. Changes made while a phase is active are rejected and
// logged; they apply the next time the timer is launched.
func watchTimerConfig(ctx context.Context, r *runner.Runner, logger *slog.Logger) {
	if viper.ConfigFileUsed() == "" {
		return
	}
	viper.OnConfigChange(func(e fsnotify.Event) {
		reloadTimerConfig(ctx, r, logger, e.Name)
	})
	viper.WatchConfig()
}

type configurable interface {
	UpdateConfig(ctx context.Context, cfg timer.Config) error
}

func reloadTimerConfig(ctx context.Context, t configurable, logger *slog.Logger, file string) {
	cfg := timerConfig()
	if err := t.UpdateConfig(ctx, cfg); err != nil {
		logger.Warn("config change not applied", "file", file, "error", err)
		return
	}
	logger.Info("timer config reloaded", "file", file, "focus_seconds", cfg.FocusSeconds, "break_seconds", cfg.BreakSeconds)
}
