package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/conversa/conversa-backend/internal/repository"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new PostgreSQL session repository
func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &SessionRepository{db: db}
}

// Create creates a new session
func (r *SessionRepository) Create(ctx context.Context, session *repository.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastActivityAt.IsZero() {
		session.LastActivityAt = now
	}

	query := `
		INSERT INTO sessions (id, created_at, last_activity_at, is_active, message_count, token_count)
		VALUES (:id, :created_at, :last_activity_at, :is_active, :message_count, :token_count)
	`

	_, err := r.db.NamedExecContext(ctx, query, session)
	return err
}

// Get retrieves a session by ID regardless of its active flag
func (r *SessionRepository) Get(ctx context.Context, id string) (*repository.Session, error) {
	var session repository.Session
	query := `
		SELECT id, created_at, last_activity_at, is_active, message_count, token_count
		FROM sessions
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &session, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrSessionNotFound
		}
		return nil, err
	}

	return &session, nil
}

// GetActive retrieves a session by ID only if it is still active
func (r *SessionRepository) GetActive(ctx context.Context, id string) (*repository.Session, error) {
	var session repository.Session
	query := `
		SELECT id, created_at, last_activity_at, is_active, message_count, token_count
		FROM sessions
		WHERE id = $1 AND is_active = TRUE
	`

	err := r.db.GetContext(ctx, &session, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrSessionNotFound
		}
		return nil, err
	}

	return &session, nil
}

// Update persists the session's counters and activity timestamp
func (r *SessionRepository) Update(ctx context.Context, session *repository.Session) error {
	query := `
		UPDATE sessions
		SET last_activity_at = :last_activity_at,
		    is_active = :is_active,
		    message_count = :message_count,
		    token_count = :token_count
		WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, session)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrSessionNotFound
	}

	return nil
}

// Deactivate soft-closes a session. The WHERE clause makes the transition
// atomic, so two concurrent calls cannot both observe a transition.
func (r *SessionRepository) Deactivate(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE sessions
		SET is_active = FALSE, last_activity_at = $2
		WHERE id = $1 AND is_active = TRUE
	`

	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return rows > 0, nil
}
