package cmd

import (
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopRun_NothingRunning(t *testing.T) {
	_, out := testEnv(t)

	require.NoError(t, stopRun())
	assert.Contains(t, out.String(), "No running timer")
}

func TestStopRun_RemovesStalePIDFile(t *testing.T) {
	_, out := testEnv(t)
	require.NoError(t, os.WriteFile(pidFilePath(), []byte("999999999"), 0644))

	require.NoError(t, stopRun())
	assert.Contains(t, out.String(), "No running timer")
	_, err := os.Stat(pidFilePath())
	assert.True(t, os.IsNotExist(err))
}

func TestStopRun_SignalsRunningProcess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("SIGTERM is not deliverable on Windows")
	}
	_, out := testEnv(t)

	child := exec.Command("sleep", "30")
	require.NoError(t, child.Start())
	exited := make(chan struct{})
	go func() {
		_ = child.Wait()
		close(exited)
	}()
	t.Cleanup(func() { _ = child.Process.Kill() })

	require.NoError(t, os.WriteFile(pidFilePath(), []byte(strconv.Itoa(child.Process.Pid)), 0644))

	// Wait above reaps the child, so the liveness probe sees it gone.
	origTimeout := stopTimeout
	stopTimeout = 3 * time.Second
	t.Cleanup(func() { stopTimeout = origTimeout })

	require.NoError(t, stopRun())
	assert.Contains(t, out.String(), "Stopped timer")

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("child did not exit")
	}
}

func TestStatusRun(t *testing.T) {
	_, out := testEnv(t)

	require.NoError(t, statusRun())
	assert.Contains(t, out.String(), "No running timer")

	out.Reset()
	require.NoError(t, os.WriteFile(pidFilePath(), []byte(strconv.Itoa(os.Getpid())), 0644))
	require.NoError(t, statusRun())
	assert.Contains(t, out.String(), "Timer running (pid")
}
