package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/store"
)

// testEnv sets up isolated config dir, viper, and output for testing.
func testEnv(t *testing.T) (string, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()

	// Override configDirFunc for tests
	origFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origFunc })

	viper.Reset()
	setDefaults(dir)

	color.NoColor = true

	var out bytes.Buffer
	ui = output.New()
	ui.Out = &out
	ui.ErrOut = &out

	return dir, &out
}

// testStore opens a migrated store in dir and installs it as the shared store.
func testStore(t *testing.T, dir string) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(dir, "pomo.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))

	dataStore = s
	t.Cleanup(func() {
		dataStore = nil
		s.Close()
	})
	return s
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir, _ := testEnv(t)

	err := configInitRun()
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "config.yaml")
	info, err := os.Stat(cfgPath)
	require.NoError(t, err, "config file should exist")
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pomo configuration")
	assert.Contains(t, string(data), "focus_minutes: 25")
	assert.Contains(t, string(data), "break_minutes: 5")
	assert.Contains(t, string(data), "port: 8787")
}

func TestConfigInit_RoundTripsThroughViper(t *testing.T) {
	dir, _ := testEnv(t)
	viper.Set("timer.focus_minutes", 50)
	require.NoError(t, configInitRun())

	viper.Reset()
	viper.SetConfigFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, viper.ReadInConfig())

	assert.Equal(t, 50, viper.GetInt("timer.focus_minutes"))
	assert.Equal(t, 5, viper.GetInt("timer.break_minutes"))
	assert.True(t, viper.GetBool("notify.bell"))
	assert.Equal(t, "INFO", viper.GetString("log.level"))
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	dir, _ := testEnv(t)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = false
	err := configInitRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigInit_ForceOverwrite(t *testing.T) {
	dir, _ := testEnv(t)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = true
	defer func() { configForce = false }()
	err := configInitRun()
	require.NoError(t, err)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pomo configuration")
}

func TestConfigShow_NoFile(t *testing.T) {
	_, out := testEnv(t)

	err := configShowRun()
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "Config file: (none)")
	assert.Contains(t, out.String(), "timer.focus_minutes")
	assert.Contains(t, out.String(), "(default)")
}

func TestConfigShow_WithFile(t *testing.T) {
	_, out := testEnv(t)

	require.NoError(t, configInitRun())
	out.Reset()

	err := configShowRun()
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "(file)")
}

func TestConfigShow_MasksAPIKey(t *testing.T) {
	_, out := testEnv(t)
	viper.Set("anthropic.api_key", "sk-ant-secret-1234")

	require.NoError(t, configShowRun())
	assert.NotContains(t, out.String(), "sk-ant-secret")
	assert.Contains(t, out.String(), "****1234")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("abc"))
	assert.Equal(t, "****wxyz", maskSecret("abcdwxyz"))
}

func TestConfigEdit_NoEditor(t *testing.T) {
	testEnv(t)
	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "")

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "$EDITOR is not set")
}

func TestConfigEdit_NoConfigFile(t *testing.T) {
	testEnv(t)
	t.Setenv("EDITOR", "echo")

	err := configEditRun()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestDetectSource(t *testing.T) {
	fileValues := map[string]bool{"timer.focus_minutes": true}

	t.Setenv("POMO_TEST_KEY", "val")
	assert.Contains(t, detectSource("test_key", "POMO_TEST_KEY", fileValues), "env")

	assert.Contains(t, detectSource("timer.focus_minutes", "POMO_KEY_A_NONEXISTENT", fileValues), "file")

	assert.Contains(t, detectSource("key_b", "POMO_KEY_B_NONEXISTENT", fileValues), "default")
}

func TestFlattenKeys(t *testing.T) {
	input := map[string]any{
		"port": 8787,
		"timer": map[string]any{
			"focus_minutes": 25,
			"break_minutes": 5,
		},
	}

	result := make(map[string]bool)
	flattenKeys("", input, result)

	assert.True(t, result["port"])
	assert.True(t, result["timer.focus_minutes"])
	assert.True(t, result["timer.break_minutes"])
	assert.False(t, result["timer"])
}

func TestTimerConfig(t *testing.T) {
	testEnv(t)

	cfg := timerConfig()
	assert.Equal(t, 25*60, cfg.FocusSeconds)
	assert.Equal(t, 5*60, cfg.BreakSeconds)

	viper.Set("timer.focus_minutes", 50)
	viper.Set("timer.break_minutes", 10)
	cfg = timerConfig()
	assert.Equal(t, 50*60, cfg.FocusSeconds)
	assert.Equal(t, 10*60, cfg.BreakSeconds)
}

func TestGetStore_CreatesDatabase(t *testing.T) {
	dir, _ := testEnv(t)
	dbPath := filepath.Join(dir, "nested", "pomo.db")
	viper.Set("db_path", dbPath)
	t.Cleanup(func() {
		if dataStore != nil {
			dataStore.Close()
			dataStore = nil
		}
	})

	s, err := getStore()
	require.NoError(t, err)
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)

	again, err := getStore()
	require.NoError(t, err)
	assert.Same(t, s, again)
}
