// Package timer implements the pomodoro session state machine.
//
// A Controller moves between Idle, FocusRunning, FocusPaused, BreakRunning and
// BreakPaused. It arms and disarms an injected Clock, counts the remaining
// seconds of the current phase down on every Tick, and appends one
// models.CompletedSession to its SessionLog each time a focus phase reaches
// zero. Break completion returns to Idle; the next focus phase needs an
// explicit Start.
//
// The controller is not safe for concurrent use. All operations, ticks
// included, must run on one execution context; runner.Runner provides one.
package timer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/pomo/internal/models"
)

// SessionLog is the append-only sink for completed focus sessions.
type SessionLog interface {
	AppendSession(ctx context.Context, session models.CompletedSession) error
}

// Snapshot is a read-only view of the controller for display.
type Snapshot struct {
	State            State   `json:"state"`
	Phase            Phase   `json:"phase,omitempty"`
	RemainingSeconds *int    `json:"remainingSeconds,omitempty"`
	FocusSeconds     int     `json:"focusSeconds"`
	BreakSeconds     int     `json:"breakSeconds"`
	Progress         float64 `json:"progress"`
}

// Controller is the pomodoro state machine.
type Controller struct {
	config    Config
	state     State
	remaining int

	clock  Clock
	log    SessionLog
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	subs   []subscription
	nextID uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithNow overrides the wall clock used to stamp events and sessions.
func WithNow(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDFunc overrides the session ID generator.
func WithIDFunc(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// New creates an Idle controller. It fails with ErrInvalidConfig when either
// duration is not positive. A nil log discards completed sessions.
func New(cfg Config, clock Clock, log SessionLog, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = NewManualClock()
	}

	c := &Controller{
		config: cfg,
		state:  StateIdle,
		clock:  clock,
		log:    log,
		logger: slog.Default(),
		now:    time.Now,
		newID:  newULID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// newULID generates a new ULID string.
func newULID() string {
	return ulid.Make().String()
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Config returns the active configuration.
func (c *Controller) Config() Config { return c.config }

// Remaining returns the seconds left in the current phase. ok is false while Idle.
func (c *Controller) Remaining() (seconds int, ok bool) {
	if c.state == StateIdle {
		return 0, false
	}
	return c.remaining, true
}

// Snapshot returns the current view of the controller.
func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		State:        c.state,
		Phase:        c.state.Phase(),
		FocusSeconds: c.config.FocusSeconds,
		BreakSeconds: c.config.BreakSeconds,
	}
	if remaining, ok := c.Remaining(); ok {
		snap.RemainingSeconds = &remaining
		total := c.config.duration(snap.Phase)
		snap.Progress = float64(total-remaining) / float64(total)
	}
	return snap
}

// Subscribe registers a handler for every subsequent event and returns a
// function that removes it.
func (c *Controller) Subscribe(h Handler) (unsubscribe func()) {
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription{id: id, handler: h})
	return func() {
		for i, sub := range c.subs {
			if sub.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// Start begins a focus phase from Idle, or resumes a paused phase with its
// remaining time intact. It is invalid while a phase is running.
func (c *Controller) Start() error {
	switch c.state {
	case StateIdle:
		c.enter(StateFocusRunning)
		c.clock.Start()
		c.emit(Event{Type: EventStarted})
	case StateFocusPaused:
		c.state = StateFocusRunning
		c.clock.Start()
		c.emit(Event{Type: EventResumed})
	case StateBreakPaused:
		c.state = StateBreakRunning
		c.clock.Start()
		c.emit(Event{Type: EventResumed})
	default:
		return invalidTransition("start", c.state)
	}
	return nil
}

// Pause freezes a running phase.
func (c *Controller) Pause() error {
	switch c.state {
	case StateFocusRunning:
		c.clock.Stop()
		c.state = StateFocusPaused
	case StateBreakRunning:
		c.clock.Stop()
		c.state = StateBreakPaused
	default:
		return invalidTransition("pause", c.state)
	}
	c.emit(Event{Type: EventPaused})
	return nil
}

// Reset discards any in-progress phase without recording it and returns to
// Idle. It is valid from every state.
func (c *Controller) Reset() {
	c.clock.Stop()
	c.state = StateIdle
	c.remaining = 0
	c.emit(Event{Type: EventReset})
}

// UpdateConfig replaces the durations. It is only valid while Idle; changes
// are never queued for a later phase.
func (c *Controller) UpdateConfig(cfg Config) error {
	if c.state != StateIdle {
		return invalidTransition("update config", c.state)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.config = cfg
	c.emit(Event{Type: EventConfigUpdated})
	return nil
}

// Tick advances a running phase by one second. Outside the running states it
// does nothing.
//
// When a focus phase reaches zero the completed session is appended to the
// log and the controller moves straight to BreakRunning with the clock still
// armed. A failed append is returned wrapped in ErrAppendFailed, after the
// transition. When a break reaches zero the controller returns to Idle and
// disarms the clock.
func (c *Controller) Tick(ctx context.Context) error {
	if !c.state.Running() {
		return nil
	}

	c.remaining--
	if c.remaining > 0 {
		c.emit(Event{Type: EventTick})
		return nil
	}

	if c.state == StateBreakRunning {
		c.clock.Stop()
		c.state = StateIdle
		c.remaining = 0
		c.emit(Event{Type: EventBreakCompleted})
		return nil
	}

	session := models.CompletedSession{
		ID:              c.newID(),
		CompletedAt:     c.now().UTC(),
		DurationSeconds: c.config.FocusSeconds,
		Kind:            models.SessionKindFocus,
	}

	var appendErr error
	if c.log != nil {
		if err := c.log.AppendSession(ctx, session); err != nil {
			appendErr = fmt.Errorf("%w: %w", ErrAppendFailed, err)
			c.logger.Warn("session log append failed", "session_id", session.ID, "error", err)
		}
	}

	c.enter(StateBreakRunning)
	c.logger.Debug("focus phase completed", "session_id", session.ID, "duration_seconds", session.DurationSeconds)
	c.emit(Event{Type: EventFocusCompleted, Session: &session, Err: appendErr})
	return appendErr
}

// enter switches to the running state of a fresh phase with its full duration.
func (c *Controller) enter(s State) {
	c.state = s
	c.remaining = c.config.duration(s.Phase())
}

func (c *Controller) emit(e Event) {
	e.State = c.state
	if remaining, ok := c.Remaining(); ok {
		e.RemainingSeconds = remaining
	}
	e.At = c.now()

	subs := append([]subscription(nil), c.subs...)
	for _, sub := range subs {
		c.safeCall(sub.handler, e)
	}
}

// safeCall invokes a handler and recovers from any panic so one handler
// cannot break the transition or starve the others.
func (c *Controller) safeCall(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event handler panicked", "event", e.Type, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	h(e)
}
