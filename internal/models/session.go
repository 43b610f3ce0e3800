package models

import "time"

// SessionKind identifies which phase of a pomodoro cycle a record describes.
type SessionKind string

const (
	SessionKindFocus SessionKind = "focus"
)

// CompletedSession is an immutable record of one finished focus phase.
type CompletedSession struct {
	ID              string      `json:"id"`
	CompletedAt     time.Time   `json:"completedAt"`
	DurationSeconds int         `json:"durationSeconds"`
	Kind            SessionKind `json:"kind"`
}

