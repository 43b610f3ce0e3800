package timer

import (
	"time"

	"github.com/joescharf/pomo/internal/models"
)

// EventType defines the kind of controller transition an Event reports.
type EventType string

const (
	EventStarted        EventType = "started"
	EventResumed        EventType = "resumed"
	EventPaused         EventType = "paused"
	EventReset          EventType = "reset"
	EventTick           EventType = "tick"
	EventFocusCompleted EventType = "focus_completed"
	EventBreakCompleted EventType = "break_completed"
	EventConfigUpdated  EventType = "config_updated"
)

// Event is published to subscribers after every transition.
type Event struct {
	Type             EventType                `json:"type"`
	State            State                    `json:"state"`
	RemainingSeconds int                      `json:"remainingSeconds"`
	Session          *models.CompletedSession `json:"session,omitempty"`
	Err              error                    `json:"-"`
	At               time.Time                `json:"at"`
}

// PhaseCompleted reports whether the event ends a focus or break phase.
func (e Event) PhaseCompleted() bool {
	return e.Type == EventFocusCompleted || e.Type == EventBreakCompleted
}

// Handler receives controller events. It runs synchronously inside the
// controller operation that produced the event and must not call back into
// the controller.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}
