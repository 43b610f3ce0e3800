package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joescharf/pomo/internal/models"
	"github.com/joescharf/pomo/internal/stats"
	"github.com/joescharf/pomo/internal/store"
	"github.com/joescharf/pomo/internal/timer"
)

const (
	defaultSessionLimit = 50
	maxSessionLimit     = 500
	statsWindowDays     = 7
)

// Timer is the live timer the API controls, normally a runner.Runner.
type Timer interface {
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Reset(ctx context.Context) error
	UpdateConfig(ctx context.Context, cfg timer.Config) error
	Snapshot(ctx context.Context) (timer.Snapshot, error)
	Subscribe(buffer int) (<-chan timer.Event, func())
}

// Server provides the REST API handlers.
type Server struct {
	timer Timer
	store store.Store
	now   func() time.Time
}

// NewServer creates a new API server.
func NewServer(t Timer, s store.Store) *Server {
	return &Server{
		timer: t,
		store: s,
		now:   time.Now,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/timer", s.getTimer)
	mux.HandleFunc("POST /api/v1/timer/start", s.startTimer)
	mux.HandleFunc("POST /api/v1/timer/pause", s.pauseTimer)
	mux.HandleFunc("POST /api/v1/timer/reset", s.resetTimer)
	mux.HandleFunc("PUT /api/v1/timer/config", s.updateConfig)
	mux.HandleFunc("GET /api/v1/timer/events", s.streamEvents)

	mux.HandleFunc("GET /api/v1/sessions", s.listSessions)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.getSession)

	mux.HandleFunc("GET /api/v1/stats", s.getStats)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// timerStatus maps controller errors onto HTTP status codes.
func timerStatus(err error) int {
	switch {
	case errors.Is(err, timer.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, timer.ErrInvalidConfig):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// --- Timer ---

func (s *Server) getTimer(w http.ResponseWriter, r *http.Request) {
	snap, err := s.timer.Snapshot(r.Context())
	if err != nil {
		writeError(w, timerStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// runAndReport performs a timer operation and answers with the resulting snapshot.
func (s *Server) runAndReport(w http.ResponseWriter, r *http.Request, op func(context.Context) error) {
	if err := op(r.Context()); err != nil {
		writeError(w, timerStatus(err), err.Error())
		return
	}
	s.getTimer(w, r)
}

func (s *Server) startTimer(w http.ResponseWriter, r *http.Request) {
	s.runAndReport(w, r, s.timer.Start)
}

func (s *Server) pauseTimer(w http.ResponseWriter, r *http.Request) {
	s.runAndReport(w, r, s.timer.Pause)
}

func (s *Server) resetTimer(w http.ResponseWriter, r *http.Request) {
	s.runAndReport(w, r, s.timer.Reset)
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg timer.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	s.runAndReport(w, r, func(ctx context.Context) error {
		return s.timer.UpdateConfig(ctx, cfg)
	})
}

// streamEvents sends every timer event as a server-sent event until the
// client disconnects or the timer stops.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, unsubscribe := s.timer.Subscribe(32)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Open with the current state so clients can render immediately.
	if snap, err := s.timer.Snapshot(r.Context()); err == nil {
		if err := writeEvent(w, "snapshot", snap); err != nil {
			return
		}
		flusher.Flush()
	}

	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, string(e.Type), e); err != nil {
				slog.Debug("sse write failed", "error", err)
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

// --- Sessions ---

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	filter := store.SessionFilter{Limit: defaultSessionLimit, Kind: models.SessionKindFocus}

	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = min(n, maxSessionLimit)
	}
	if v := r.URL.Query().Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}

	sessions, err := s.store.ListSessions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []*models.CompletedSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// --- Stats ---

type statsResponse struct {
	stats.Summary
	Days     []stats.Day     `json:"days"`
	Insights []stats.Insight `json:"insights"`
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	sessions, err := s.store.ListSessions(r.Context(), store.SessionFilter{Kind: models.SessionKindFocus})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	summary := stats.Summarize(sessions, now)
	writeJSON(w, http.StatusOK, statsResponse{
		Summary:  summary,
		Days:     stats.LastDays(sessions, now, statsWindowDays),
		Insights: stats.Insights(summary, now),
	})
}
