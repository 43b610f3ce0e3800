package cmd

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeRun_ShutsDownOnCancel(t *testing.T) {
	dir, out := testEnv(t)
	testStore(t, dir)
	viper.Set("port", 0)
	viper.Set("notify.bell", false)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- serveRun(ctx) }()

	// The PID file appears once the timer is live.
	require.Eventually(t, func() bool {
		_, err := os.Stat(pidFilePath())
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not shut down")
	}

	assert.Contains(t, out.String(), "Serving timer at http://127.0.0.1:")
	_, err := os.Stat(pidFilePath())
	assert.True(t, os.IsNotExist(err), "PID file should be removed on shutdown")
}

func TestServeRun_AlreadyRunning(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("liveness probe needs signal 0")
	}
	dir, _ := testEnv(t)
	testStore(t, dir)
	require.NoError(t, os.WriteFile(pidFilePath(), []byte(strconv.Itoa(os.Getppid())), 0644))

	err := serveRun(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestMCPRun_AlreadyRunning(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("liveness probe needs signal 0")
	}
	dir, _ := testEnv(t)
	testStore(t, dir)
	require.NoError(t, os.WriteFile(pidFilePath(), []byte(strconv.Itoa(os.Getppid())), 0644))

	err := mcpRun(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}
