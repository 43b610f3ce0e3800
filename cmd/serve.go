package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/pomo/internal/api"
	webui "github.com/joescharf/pomo/internal/ui"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the timer behind a local web page and HTTP API",
	Long: `Start a live timer and serve it on localhost: a timer page at /
and a JSON API under /api/v1.

Routes:
  GET  /api/v1/timer            current state and remaining time
  POST /api/v1/timer/start      start or resume
  POST /api/v1/timer/pause      pause
  POST /api/v1/timer/reset      abandon the current phase
  PUT  /api/v1/timer/config     {"focusSeconds":1500,"breakSeconds":300}
  GET  /api/v1/timer/events     server-sent events
  GET  /api/v1/sessions         completed focus sessions
  GET  /api/v1/stats            today, week, streak, last 7 days

By default it listens on port 8787. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8787, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func serveRun(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	s, err := getStore()
	if err != nil {
		return err
	}

	logger, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer logger.Close()

	lt, err := startLiveTimer(ctx, timerConfig(), s, logger.Logger)
	if err != nil {
		return err
	}
	handler, err := webui.WithAPI(api.NewServer(lt.runner, s).Router())
	if err != nil {
		_ = lt.stop()
		return fmt.Errorf("failed to initialize UI handler: %w", err)
	}
	go notifyLoop(ctx, lt.runner, newNotifier(os.Stderr), logger.Logger)
	watchTimerConfig(ctx, lt.runner, logger.Logger)

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(viper.GetInt("port")))
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	ui.Info("Serving timer at http://%s", addr)
	logger.Info("http server listening", "addr", addr)

	var serveErr error
	select {
	case serveErr = <-errc:
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		serveErr = srv.Shutdown(shutdownCtx)
		cancel()
	}
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	if err := lt.stop(); err != nil && serveErr == nil {
		serveErr = err
	}
	if serveErr != nil {
		return fmt.Errorf("serve: %w", serveErr)
	}
	return nil
}
