package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/conversa/conversa-backend/internal/repository"
)

// SummaryRepository implements repository.SummaryRepository using PostgreSQL
type SummaryRepository struct {
	db *sqlx.DB
}

// NewSummaryRepository creates a new PostgreSQL summary repository
func NewSummaryRepository(db *sqlx.DB) repository.SummaryRepository {
	return &SummaryRepository{db: db}
}

// GetBySession retrieves the session's summary. A missing summary is normal
// and reported as nil, not as an error.
func (r *SummaryRepository) GetBySession(ctx context.Context, sessionID string) (*repository.ConversationSummary, error) {
	var summary repository.ConversationSummary
	query := `
		SELECT id, session_id, content, token_count, created_at
		FROM conversation_summaries
		WHERE session_id = $1
	`

	err := r.db.GetContext(ctx, &summary, query, sessionID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return &summary, nil
}
