package store

import (
	"context"
	"time"

	"github.com/joescharf/pomo/internal/models"
)

// SessionFilter specifies filters for listing completed sessions.
// Zero values mean no bound.
type SessionFilter struct {
	Since time.Time
	Until time.Time
	Kind  models.SessionKind
	Limit int
}

// Store defines the persistence interface for pomo.
// The session log is append-only: there is no update or delete.
type Store interface {
	// Sessions
	AppendSession(ctx context.Context, session models.CompletedSession) error
	GetSession(ctx context.Context, id string) (*models.CompletedSession, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]*models.CompletedSession, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
