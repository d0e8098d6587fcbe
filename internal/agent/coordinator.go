package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/conversa/conversa-backend/internal/repository"
)

const (
	noResponseContent = "No response generated from agent."
	noContentFallback = "No content in response."
)

// Coordinator drives one remote agent invocation per request: it opens an
// ephemeral context seeded with the window, consumes the first complete
// reply, and tears the context down on every exit path.
type Coordinator struct {
	agent        RemoteAgent
	logger       *logrus.Logger
	closeTimeout time.Duration
}

// NewCoordinator creates a new invocation coordinator
func NewCoordinator(remote RemoteAgent, logger *logrus.Logger) *Coordinator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Coordinator{
		agent:        remote,
		logger:       logger,
		closeTimeout: 10 * time.Second,
	}
}

// GenerateReply produces the assistant reply for a bounded window and one new
// user utterance. It never returns an error: every failure degrades into a
// Response carrying an explanation and zero token cost, so the caller always
// has a value to persist and display.
func (c *Coordinator) GenerateReply(ctx context.Context, window []repository.Message, utterance string) Response {
	seed := translateWindow(window)

	handle, err := c.agent.OpenContext(ctx, seed)
	if err != nil {
		c.logger.WithError(err).Error("Failed to open remote conversation context")
		return degraded(err)
	}
	defer func() {
		// The context is released on every path, including caller
		// cancellation, so teardown runs on its own deadline.
		closeCtx, cancel := context.WithTimeout(context.Background(), c.closeTimeout)
		defer cancel()
		if err := c.agent.CloseContext(closeCtx, handle); err != nil {
			c.logger.WithError(err).WithField("context", string(handle)).
				Warn("Failed to close remote conversation context")
		}
	}()

	// Cancelling the invoke abandons whatever the stream still holds; only
	// the first complete reply is consumed.
	invokeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	replies, err := c.agent.Invoke(invokeCtx, handle, utterance)
	if err != nil {
		c.logger.WithError(err).Error("Agent invocation failed")
		return degraded(err)
	}

	select {
	case reply, ok := <-replies:
		if !ok {
			// The stream ended without producing anything. Normal, not
			// exceptional.
			return Response{Content: noResponseContent, TokenCount: 0}
		}
		if reply.Err != nil {
			c.logger.WithError(reply.Err).Error("Agent returned an error reply")
			return degraded(reply.Err)
		}
		content := reply.Content
		if content == "" {
			content = noContentFallback
		}
		return Response{
			Content:    content,
			TokenCount: ExtractTokenCost(reply.Usage),
		}
	case <-ctx.Done():
		c.logger.WithError(ctx.Err()).Warn("Agent invocation cancelled")
		return degraded(ctx.Err())
	}
}

func degraded(err error) Response {
	return Response{
		Content:    fmt.Sprintf("I encountered an error while processing your request: %v", err),
		TokenCount: 0,
	}
}

// translateWindow maps stored messages onto the remote protocol. The remote
// side only understands user and assistant authors, so system messages fold
// into the user role; the content survives, the original role does not.
func translateWindow(window []repository.Message) []ContextMessage {
	seed := make([]ContextMessage, len(window))
	for i, m := range window {
		role := "user"
		if m.Role == repository.RoleAssistant {
			role = "assistant"
		}
		seed[i] = ContextMessage{Role: role, Content: m.Content}
	}
	return seed
}
