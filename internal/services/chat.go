package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/conversa/conversa-backend/internal/agent"
	"github.com/conversa/conversa-backend/internal/repository"
)

// ErrSessionRace reports that the owning session vanished between the
// message insert and the session counter update. The message write is not
// rolled back; that half of the operation is at-least-once.
var ErrSessionRace = errors.New("session vanished during message record")

// ReplyGenerator produces the assistant reply for a bounded window and one
// new user utterance. It never fails; degraded replies come back as ordinary
// responses with zero token cost.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, window []repository.Message, utterance string) agent.Response
}

// ChatService manages chat sessions and drives the conversation flow.
//
// Session counters are updated read-modify-write. The service does not
// serialize requests; callers that allow concurrent requests on one session
// must supply their own per-session serialization.
type ChatService struct {
	sessionRepo repository.SessionRepository
	messageRepo repository.MessageRepository
	summaryRepo repository.SummaryRepository
	generator   ReplyGenerator
	estimator   Estimator
	tokenBudget int
	logger      *logrus.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	sessionRepo repository.SessionRepository,
	messageRepo repository.MessageRepository,
	summaryRepo repository.SummaryRepository,
	generator ReplyGenerator,
	estimator Estimator,
	tokenBudget int,
	logger *logrus.Logger,
) *ChatService {
	if logger == nil {
		logger = logrus.New()
	}
	if tokenBudget <= 0 {
		tokenBudget = 4000
	}
	return &ChatService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		summaryRepo: summaryRepo,
		generator:   generator,
		estimator:   estimator,
		tokenBudget: tokenBudget,
		logger:      logger,
	}
}

// CreateSession creates a new active session with zeroed counters
func (s *ChatService) CreateSession(ctx context.Context) (*repository.Session, error) {
	now := time.Now().UTC()
	session := &repository.Session{
		ID:             uuid.New().String(),
		CreatedAt:      now,
		LastActivityAt: now,
		IsActive:       true,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// RecordMessage persists a message, then loads the owning session and bumps
// its counters and activity timestamp. The two writes are not transactional:
// when the session vanishes in between, the message has already been written
// and the session half surfaces ErrSessionRace for the caller to decide on.
func (s *ChatService) RecordMessage(ctx context.Context, sessionID string, role repository.Role, content string, tokenCount int) (*repository.Message, *repository.Session, error) {
	message := &repository.Message{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		Role:       role,
		Content:    content,
		TokenCount: tokenCount,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, nil, fmt.Errorf("failed to create message: %w", err)
	}

	session, err := s.sessionRepo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return message, nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionRace)
		}
		return message, nil, err
	}

	session.MessageCount++
	session.TokenCount += message.TokenCount
	session.LastActivityAt = time.Now().UTC()

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return message, nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionRace)
		}
		return message, nil, fmt.Errorf("failed to update session: %w", err)
	}

	return message, session, nil
}

// GetActiveSession retrieves a session that is still active
func (s *ChatService) GetActiveSession(ctx context.Context, id string) (*repository.Session, error) {
	return s.sessionRepo.GetActive(ctx, id)
}

// GetMessages returns a session's full history, oldest first
func (s *ChatService) GetMessages(ctx context.Context, sessionID string) ([]repository.Message, error) {
	return s.messageRepo.ListBySession(ctx, sessionID)
}

// DeactivateSession soft-closes a session. Idempotent: it reports whether a
// transition actually happened.
func (s *ChatService) DeactivateSession(ctx context.Context, id string) (bool, error) {
	return s.sessionRepo.Deactivate(ctx, id)
}

// Conversation returns the budget-bounded trailing window of the session's
// history along with its summary, if one exists.
func (s *ChatService) Conversation(ctx context.Context, sessionID string) ([]repository.Message, *repository.ConversationSummary, error) {
	messages, err := s.messageRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list messages: %w", err)
	}

	summary, err := s.summaryRepo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load summary: %w", err)
	}

	return BuildWindow(messages, summary, s.tokenBudget), summary, nil
}

// Exchange is the outcome of one send-message round trip.
type Exchange struct {
	UserMessage      *repository.Message `json:"user_message"`
	AssistantMessage *repository.Message `json:"assistant_message"`
	Session          *repository.Session `json:"session"`
}

// Respond runs the full flow for one user utterance: record it, build the
// bounded window, invoke the agent, and record the reply.
func (s *ChatService) Respond(ctx context.Context, sessionID, content string) (*Exchange, error) {
	if _, err := s.sessionRepo.GetActive(ctx, sessionID); err != nil {
		return nil, err
	}

	userMsg, _, err := s.RecordMessage(ctx, sessionID, repository.RoleUser, content, s.estimator.Estimate(content))
	if err != nil {
		return nil, err
	}

	window, summary, err := s.Conversation(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		// The summary rides along as a pinned prefix; BuildWindow already
		// reserved its share of the budget.
		pinned := repository.Message{
			SessionID:  sessionID,
			Role:       repository.RoleSystem,
			Content:    summary.Content,
			TokenCount: summary.TokenCount,
		}
		window = append([]repository.Message{pinned}, window...)
	}

	resp := s.generator.GenerateReply(ctx, window, content)

	replyTokens := resp.TokenCount
	if replyTokens <= 0 {
		// Degraded and usage-less replies still get persisted; fall back to
		// the local estimate so message costs stay at least 1.
		replyTokens = s.estimator.Estimate(resp.Content)
	}

	assistantMsg, session, err := s.RecordMessage(ctx, sessionID, repository.RoleAssistant, resp.Content, replyTokens)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id":   sessionID,
		"reply_tokens": replyTokens,
	}).Debug("Recorded assistant reply")

	return &Exchange{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Session:          session,
	}, nil
}
