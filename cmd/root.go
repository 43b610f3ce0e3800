package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/pomo/internal/logging"
	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/store"
	"github.com/joescharf/pomo/internal/timer"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui        *output.UI
	dataStore store.Store

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pomo",
	Short: "Pomodoro focus timer",
	Long: `pomo is a pomodoro focus timer for the terminal.
It runs focus and break phases, records every completed focus session
in a local database and reports today's count, the weekly total and
your daily streak.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return rootRun(cmd)
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/pomo/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("POMO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configDir, _ := configDirFunc()
	setDefaults(configDir)

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

// setDefaults registers every config key's default, rooted at stateDir.
func setDefaults(stateDir string) {
	viper.SetDefault("state_dir", stateDir)
	viper.SetDefault("db_path", filepath.Join(stateDir, "pomo.db"))
	viper.SetDefault("timer.focus_minutes", timer.DefaultFocusSeconds/60)
	viper.SetDefault("timer.break_minutes", timer.DefaultBreakSeconds/60)
	viper.SetDefault("notify.bell", true)
	viper.SetDefault("notify.command", "")
	viper.SetDefault("port", 8787)
	viper.SetDefault("log.level", logging.LevelInfo)
	viper.SetDefault("log.file", "")
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose

	// Initialize store lazily, only when commands actually need it.
	// This allows config/version commands to run without a db.
}

// rootRun handles `pomo` with no subcommand: show the stats dashboard.
func rootRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		ui.Warning("%v", err)
		return cmd.Help()
	}
	return statsRun(commandContext(cmd), s)
}

// commandContext is cmd's context, or Background when cmd is not executing.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// getStore returns the shared store, initializing it on first call.
func getStore() (store.Store, error) {
	if dataStore != nil {
		return dataStore, nil
	}

	dbPath := viper.GetString("db_path")
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := s.Migrate(commandContext(rootCmd)); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	dataStore = s
	return dataStore, nil
}

// newLogger builds the structured logger from log.* config. Without a log
// file, lines go to fallback.
func newLogger(fallback io.Writer) (*logging.Logger, error) {
	return logging.New(viper.GetString("log.file"), viper.GetString("log.level"), fallback)
}

// timerConfig reads the phase durations from config.
func timerConfig() timer.Config {
	return timer.Config{
		FocusSeconds: viper.GetInt("timer.focus_minutes") * 60,
		BreakSeconds: viper.GetInt("timer.break_minutes") * 60,
	}
}

// pidFilePath is where the running timer instance records its PID.
func pidFilePath() string {
	return filepath.Join(viper.GetString("state_dir"), "pomo.pid")
}
