package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/output"
	"github.com/joescharf/pomo/internal/stats"
	"github.com/joescharf/pomo/internal/store"
	"github.com/joescharf/pomo/internal/timer"
)

// Timer is the live timer the tools drive, normally a runner.Runner.
type Timer interface {
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Reset(ctx context.Context) error
	UpdateConfig(ctx context.Context, cfg timer.Config) error
	Snapshot(ctx context.Context) (timer.Snapshot, error)
}

// Server exposes the timer and the session log as MCP tools.
type Server struct {
	timer   Timer
	store   store.Store
	version string
	now     func() time.Time
}

// NewServer creates the MCP server wrapper with all required dependencies.
func NewServer(t Timer, s store.Store, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{
		timer:   t,
		store:   s,
		version: version,
		now:     time.Now,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("pomo", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.timerStatusTool())
	srv.AddTool(s.timerStartTool())
	srv.AddTool(s.timerPauseTool())
	srv.AddTool(s.timerResetTool())
	srv.AddTool(s.timerConfigureTool())
	srv.AddTool(s.listSessionsTool())
	srv.AddTool(s.statsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

type timerOut struct {
	timer.Snapshot
	Label     string `json:"label"`
	Remaining string `json:"remaining,omitempty"`
}

func (s *Server) timerResult(ctx context.Context) (*mcp.CallToolResult, error) {
	snap, err := s.timer.Snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read timer: %v", err)), nil
	}
	out := timerOut{Snapshot: snap, Label: snap.State.Label()}
	if snap.RemainingSeconds != nil {
		out.Remaining = output.FormatClock(*snap.RemainingSeconds)
	}
	return jsonResult(out)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// timerOpError turns a rejected timer operation into a tool error.
func timerOpError(op string, err error) *mcp.CallToolResult {
	if errors.Is(err, timer.ErrInvalidTransition) || errors.Is(err, timer.ErrInvalidConfig) {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("failed to %s timer: %v", op, err))
}

// pomo_timer_status
func (s *Server) timerStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_timer_status",
		mcp.WithDescription("Show the pomodoro timer: state (idle, focus_running, focus_paused, break_running, break_paused), remaining time as MM:SS and the configured durations."),
	)
	return tool, s.handleTimerStatus
}

func (s *Server) handleTimerStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.timerResult(ctx)
}

// pomo_timer_start
func (s *Server) timerStartTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_timer_start",
		mcp.WithDescription("Start a focus session, or resume a paused focus or break. Fails if the timer is already running."),
	)
	return tool, s.handleTimerStart
}

func (s *Server) handleTimerStart(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.timer.Start(ctx); err != nil {
		return timerOpError("start", err), nil
	}
	return s.timerResult(ctx)
}

// pomo_timer_pause
func (s *Server) timerPauseTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_timer_pause",
		mcp.WithDescription("Pause the running focus or break. The remaining time is kept."),
	)
	return tool, s.handleTimerPause
}

func (s *Server) handleTimerPause(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.timer.Pause(ctx); err != nil {
		return timerOpError("pause", err), nil
	}
	return s.timerResult(ctx)
}

// pomo_timer_reset
func (s *Server) timerResetTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_timer_reset",
		mcp.WithDescription("Abandon the current phase and return to idle. An unfinished focus session is not recorded."),
	)
	return tool, s.handleTimerReset
}

func (s *Server) handleTimerReset(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.timer.Reset(ctx); err != nil {
		return timerOpError("reset", err), nil
	}
	return s.timerResult(ctx)
}

// pomo_timer_configure
func (s *Server) timerConfigureTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_timer_configure",
		mcp.WithDescription("Change the focus and break durations. Only allowed while the timer is idle."),
		mcp.WithNumber("focus_minutes", mcp.Required(), mcp.Description("Focus duration in minutes")),
		mcp.WithNumber("break_minutes", mcp.Required(), mcp.Description("Break duration in minutes")),
	)
	return tool, s.handleTimerConfigure
}

func (s *Server) handleTimerConfigure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	focus, err := request.RequireFloat("focus_minutes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	brk, err := request.RequireFloat("break_minutes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cfg := timer.Config{
		FocusSeconds: int(focus * 60),
		BreakSeconds: int(brk * 60),
	}
	if err := s.timer.UpdateConfig(ctx, cfg); err != nil {
		return timerOpError("configure", err), nil
	}
	return s.timerResult(ctx)
}

// pomo_list_sessions
func (s *Server) listSessionsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_list_sessions",
		mcp.WithDescription("List completed focus sessions, newest first. Returns a JSON array with id, completedAt and durationSeconds."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of sessions (default 20)")),
		mcp.WithBoolean("today", mcp.Description("Only sessions completed today")),
	)
	return tool, s.handleListSessions
}

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.SessionFilter{
		Kind:  models.SessionKindFocus,
		Limit: request.GetInt("limit", 20),
	}
	if filter.Limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}
	if request.GetBool("today", false) {
		filter.Since = stats.StartOfDay(s.now())
	}

	sessions, err := s.store.ListSessions(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list sessions: %v", err)), nil
	}
	if sessions == nil {
		sessions = []*models.CompletedSession{}
	}
	return jsonResult(sessions)
}

// pomo_stats
func (s *Server) statsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("pomo_stats",
		mcp.WithDescription("Focus statistics: sessions today and this week, current daily streak, focus minutes for each of the last 7 days, and suggestions."),
	)
	return tool, s.handleStats
}

func (s *Server) handleStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions, err := s.store.ListSessions(ctx, store.SessionFilter{Kind: models.SessionKindFocus})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load sessions: %v", err)), nil
	}

	now := s.now()
	summary := stats.Summarize(sessions, now)

	type statsOut struct {
		Today      int             `json:"today"`
		Week       int             `json:"week"`
		Streak     int             `json:"streak"`
		Total      int             `json:"totalSessions"`
		FocusTotal string          `json:"focusTotal"`
		Days       []stats.Day     `json:"days"`
		Insights   []stats.Insight `json:"insights"`
	}
	return jsonResult(statsOut{
		Today:      summary.Today,
		Week:       summary.Week,
		Streak:     summary.Streak,
		Total:      summary.TotalSessions,
		FocusTotal: output.FormatDuration(summary.TotalFocusSeconds),
		Days:       stats.LastDays(sessions, now, 7),
		Insights:   stats.Insights(summary, now),
	})
}
