package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joescharf/pomo/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrDuplicateSession is returned when a session with the same ID was already appended.
	ErrDuplicateSession = errors.New("session already recorded")
	// ErrSessionNotFound is returned by GetSession for an unknown ID.
	ErrSessionNotFound = errors.New("session not found")
)

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. The timer, the API and the
	// CLI can all touch the log at once, so serialize through one connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Sessions ---

// AppendSession records a completed session. Sessions are immutable, so an ID
// that is already present is rejected with ErrDuplicateSession.
func (s *SQLiteStore) AppendSession(ctx context.Context, session models.CompletedSession) error {
	if session.ID == "" {
		return fmt.Errorf("append session: id is required")
	}
	if session.Kind == "" {
		session.Kind = models.SessionKindFocus
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions WHERE id = ?", session.ID).Scan(&count); err != nil {
		return fmt.Errorf("append session: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("append session %s: %w", session.ID, ErrDuplicateSession)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, kind, duration_seconds, completed_at) VALUES (?, ?, ?, ?)`,
		session.ID, string(session.Kind), session.DurationSeconds, session.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.CompletedSession, error) {
	session := &models.CompletedSession{}
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, duration_seconds, completed_at FROM sessions WHERE id = ?`, id,
	).Scan(&session.ID, &kind, &session.DurationSeconds, &session.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	session.Kind = models.SessionKind(kind)
	session.CompletedAt = session.CompletedAt.UTC()
	return session, nil
}

// ListSessions returns sessions matching the filter, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]*models.CompletedSession, error) {
	query := `SELECT id, kind, duration_seconds, completed_at FROM sessions`
	var conditions []string
	var args []any

	if !filter.Since.IsZero() {
		conditions = append(conditions, "completed_at >= ?")
		args = append(args, filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		conditions = append(conditions, "completed_at < ?")
		args = append(args, filter.Until.UTC())
	}
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(filter.Kind))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY completed_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*models.CompletedSession
	for rows.Next() {
		session := &models.CompletedSession{}
		var kind string
		if err := rows.Scan(&session.ID, &kind, &session.DurationSeconds, &session.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		session.Kind = models.SessionKind(kind)
		session.CompletedAt = session.CompletedAt.UTC()
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
