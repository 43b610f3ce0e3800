package cmd

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pomo/internal/daemon"
	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/notify"
	"github.com/joescharf/pomo/internal/timer"
)

type recordingNotifier struct {
	got []notify.Notification
	err error
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.got = append(r.got, n)
	return r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestStartLiveTimer_LocksAndReleases(t *testing.T) {
	dir, _ := testEnv(t)
	s := testStore(t, dir)

	lt, err := startLiveTimer(context.Background(), timerConfig(), s, discardLogger())
	require.NoError(t, err)

	data, err := os.ReadFile(pidFilePath())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(bytes.TrimSpace(data)))

	snap, err := lt.runner.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, timer.StateIdle, snap.State)
	assert.Equal(t, 25*60, snap.FocusSeconds)

	require.NoError(t, lt.stop())
	_, err = os.Stat(pidFilePath())
	assert.True(t, os.IsNotExist(err), "PID file should be removed on stop")
}

func TestStartLiveTimer_InvalidConfig(t *testing.T) {
	dir, _ := testEnv(t)
	s := testStore(t, dir)

	_, err := startLiveTimer(context.Background(), timer.Config{FocusSeconds: 0, BreakSeconds: 60}, s, discardLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, timer.ErrInvalidConfig))

	_, err = os.Stat(pidFilePath())
	assert.True(t, os.IsNotExist(err), "no lock taken for an invalid config")
}

func TestStartLiveTimer_AlreadyRunning(t *testing.T) {
	dir, _ := testEnv(t)
	s := testStore(t, dir)

	if runtime.GOOS == "windows" {
		t.Skip("liveness probe needs signal 0")
	}
	// The test runner that started us is alive and is not us.
	require.NoError(t, os.WriteFile(pidFilePath(), []byte(strconv.Itoa(os.Getppid())), 0644))

	_, err := startLiveTimer(context.Background(), timerConfig(), s, discardLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, daemon.ErrAlreadyRunning))
	assert.Contains(t, err.Error(), "pomo stop")
}

func TestStartConfig_FlagOverrides(t *testing.T) {
	testEnv(t)
	origFocus, origBreak := startFocus, startBreak
	t.Cleanup(func() { startFocus, startBreak = origFocus, origBreak })

	startFocus, startBreak = 0, 0
	assert.Equal(t, timer.DefaultConfig(), startConfig())

	startFocus, startBreak = 50, 10
	cfg := startConfig()
	assert.Equal(t, 50*60, cfg.FocusSeconds)
	assert.Equal(t, 10*60, cfg.BreakSeconds)
}

func TestNewNotifier(t *testing.T) {
	testEnv(t)

	var bell bytes.Buffer
	n := newNotifier(&bell)
	require.NotNil(t, n)
	require.NoError(t, n.Notify(context.Background(), notify.Notification{Title: "Pomodoro complete!", Body: "Time for a break!"}))
	assert.Equal(t, "\aPomodoro complete! Time for a break!\n", bell.String())

	viper.Set("notify.bell", false)
	assert.Nil(t, newNotifier(&bell))

	viper.Set("notify.command", "notify-send -a pomo")
	multi, ok := newNotifier(nil).(notify.Multi)
	require.True(t, ok)
	require.Len(t, multi, 1)
	cmd, ok := multi[0].(*notify.Command)
	require.True(t, ok)
	assert.Equal(t, "notify-send", cmd.Name)
	assert.Equal(t, []string{"-a", "pomo"}, cmd.Args)
}

func TestDeliver(t *testing.T) {
	ctx := context.Background()
	rec := &recordingNotifier{}

	deliver(ctx, rec, timer.Event{Type: timer.EventTick}, discardLogger())
	assert.Empty(t, rec.got)

	deliver(ctx, rec, timer.Event{Type: timer.EventFocusCompleted, Session: &models.CompletedSession{ID: "x"}}, discardLogger())
	deliver(ctx, rec, timer.Event{Type: timer.EventBreakCompleted}, discardLogger())
	require.Len(t, rec.got, 2)
	assert.Equal(t, "Pomodoro complete!", rec.got[0].Title)
	assert.Equal(t, "Break time is over!", rec.got[1].Title)

	// Failures are logged, not returned.
	rec.err = errors.New("boom")
	deliver(ctx, rec, timer.Event{Type: timer.EventBreakCompleted}, discardLogger())
	deliver(ctx, nil, timer.Event{Type: timer.EventBreakCompleted}, discardLogger())
}

func TestNotifyLoop_ExitsWhenTimerStops(t *testing.T) {
	dir, _ := testEnv(t)
	s := testStore(t, dir)

	lt, err := startLiveTimer(context.Background(), timerConfig(), s, discardLogger())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		notifyLoop(context.Background(), lt.runner, &recordingNotifier{}, discardLogger())
		close(done)
	}()

	require.NoError(t, lt.stop())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notify loop did not exit")
	}
}

func TestPIDFilePath(t *testing.T) {
	dir, _ := testEnv(t)
	assert.Equal(t, filepath.Join(dir, "pomo.pid"), pidFilePath())
}

func TestReloadTimerConfig(t *testing.T) {
	dir, _ := testEnv(t)
	s := testStore(t, dir)
	ctx := context.Background()

	lt, err := startLiveTimer(ctx, timerConfig(), s, discardLogger())
	require.NoError(t, err)
	defer lt.stop()

	viper.Set("timer.focus_minutes", 40)
	reloadTimerConfig(ctx, lt.runner, discardLogger(), "config.yaml")
	snap, err := lt.runner.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40*60, snap.FocusSeconds)

	// Rejected while a phase is running.
	require.NoError(t, lt.runner.Start(ctx))
	viper.Set("timer.focus_minutes", 15)
	reloadTimerConfig(ctx, lt.runner, discardLogger(), "config.yaml")
	snap, err = lt.runner.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40*60, snap.FocusSeconds)
}
