package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/conversa/conversa-backend/internal/repository"
)

// MessageRepository implements repository.MessageRepository using PostgreSQL
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new PostgreSQL message repository
func NewMessageRepository(db *sqlx.DB) repository.MessageRepository {
	return &MessageRepository{db: db}
}

// Create creates a new message
func (r *MessageRepository) Create(ctx context.Context, message *repository.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO messages (id, session_id, role, content, token_count, created_at)
		VALUES (:id, :session_id, :role, :content, :token_count, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, message)
	return err
}

// ListBySession retrieves messages for a session, oldest first
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string) ([]repository.Message, error) {
	var messages []repository.Message
	query := `
		SELECT id, session_id, role, content, token_count, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC
	`

	err := r.db.SelectContext(ctx, &messages, query, sessionID)
	if err != nil {
		return nil, err
	}

	return messages, nil
}
