package repository

import (
	"context"
	"errors"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ErrSessionNotFound is returned when a session does not exist or is inactive.
var ErrSessionNotFound = errors.New("session not found")

// Session represents a chat session with its accumulated counters.
type Session struct {
	ID             string    `db:"id" json:"id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	LastActivityAt time.Time `db:"last_activity_at" json:"last_activity_at"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	MessageCount   int       `db:"message_count" json:"message_count"`
	TokenCount     int       `db:"token_count" json:"token_count"`
}

// Message represents a single chat message. Messages are immutable once created.
type Message struct {
	ID         string    `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	Role       Role      `db:"role" json:"role"`
	Content    string    `db:"content" json:"content"`
	TokenCount int       `db:"token_count" json:"token_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ConversationSummary is a compacted representation of older truncated history.
// A session has at most one summary; its token cost is reserved from the
// context budget before any message is considered.
type ConversationSummary struct {
	ID         string    `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"session_id"`
	Content    string    `db:"content" json:"content"`
	TokenCount int       `db:"token_count" json:"token_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SessionRepository defines session storage operations
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	GetActive(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, session *Session) error
	// Deactivate soft-closes a session. It reports whether a transition from
	// active to inactive actually happened.
	Deactivate(ctx context.Context, id string) (bool, error)
}

// MessageRepository defines message storage operations
type MessageRepository interface {
	Create(ctx context.Context, message *Message) error
	// ListBySession returns all messages of a session, oldest first.
	ListBySession(ctx context.Context, sessionID string) ([]Message, error)
}

// SummaryRepository defines conversation summary storage operations
type SummaryRepository interface {
	// GetBySession returns the session's summary, or nil when none exists.
	GetBySession(ctx context.Context, sessionID string) (*ConversationSummary, error)
}
