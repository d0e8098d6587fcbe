package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/conversa/conversa-backend/internal/agent"
	"github.com/conversa/conversa-backend/internal/config"
)

// Agent drives a hosted assistant through the threads API. Each invocation
// runs against an ephemeral thread: OpenContext creates it seeded with the
// window, Invoke appends the utterance and executes a run, CloseContext
// deletes the thread.
type Agent struct {
	client         *openai.Client
	assistantID    string
	model          string
	pollInterval   time.Duration
	requestTimeout time.Duration
}

// NewAgent creates a new assistant-backed remote agent
func NewAgent(cfg config.AgentConfig) (*Agent, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if cfg.AssistantID == "" {
		return nil, errors.New("assistant id is required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}

	return &Agent{
		client:         openai.NewClientWithConfig(clientCfg),
		assistantID:    cfg.AssistantID,
		model:          cfg.Model,
		pollInterval:   pollInterval,
		requestTimeout: cfg.RequestTimeout,
	}, nil
}

// OpenContext creates a thread seeded with the translated window
func (a *Agent) OpenContext(ctx context.Context, seed []agent.ContextMessage) (agent.ContextHandle, error) {
	req := openai.ThreadRequest{}
	for _, m := range seed {
		req.Messages = append(req.Messages, openai.ThreadMessage{
			Role:    openai.ThreadMessageRole(m.Role),
			Content: m.Content,
		})
	}

	thread, err := a.client.CreateThread(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}

	return agent.ContextHandle(thread.ID), nil
}

// Invoke appends the utterance to the thread, starts a run, and delivers the
// run's outcome as a single-reply stream
func (a *Agent) Invoke(ctx context.Context, handle agent.ContextHandle, utterance string) (<-chan agent.Reply, error) {
	threadID := string(handle)

	_, err := a.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    string(openai.ThreadMessageRoleUser),
		Content: utterance,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append utterance: %w", err)
	}

	run, err := a.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: a.assistantID,
		Model:       a.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	replies := make(chan agent.Reply, 1)
	go func() {
		defer close(replies)

		pollCtx := ctx
		if a.requestTimeout > 0 {
			var cancel context.CancelFunc
			pollCtx, cancel = context.WithTimeout(ctx, a.requestTimeout)
			defer cancel()
		}

		reply, ok := a.awaitReply(pollCtx, threadID, run.ID)
		if !ok {
			return
		}
		select {
		case replies <- reply:
		case <-ctx.Done():
		}
	}()

	return replies, nil
}

// CloseContext deletes the thread
func (a *Agent) CloseContext(ctx context.Context, handle agent.ContextHandle) error {
	if _, err := a.client.DeleteThread(ctx, string(handle)); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}

// awaitReply polls the run until it reaches a terminal state. The second
// return value is false when the run completed without producing an
// assistant message.
func (a *Agent) awaitReply(ctx context.Context, threadID, runID string) (agent.Reply, bool) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		run, err := a.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return agent.Reply{Err: fmt.Errorf("failed to poll run: %w", err)}, true
		}

		switch run.Status {
		case openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling:
			// still working

		case openai.RunStatusCompleted:
			content, found, err := a.latestAssistantMessage(ctx, threadID)
			if err != nil {
				return agent.Reply{Err: err}, true
			}
			if !found {
				return agent.Reply{}, false
			}
			return agent.Reply{
				Content: content,
				Usage: agent.RunUsage{
					PromptTokens:     int64(run.Usage.PromptTokens),
					CompletionTokens: int64(run.Usage.CompletionTokens),
					TotalTokens:      int64(run.Usage.TotalTokens),
				},
			}, true

		default:
			if run.LastError != nil {
				return agent.Reply{Err: fmt.Errorf("run %s: %s", run.Status, run.LastError.Message)}, true
			}
			return agent.Reply{Err: fmt.Errorf("run ended with status %s", run.Status)}, true
		}

		select {
		case <-ctx.Done():
			return agent.Reply{Err: ctx.Err()}, true
		case <-ticker.C:
		}
	}
}

// latestAssistantMessage returns the newest assistant message in the thread
func (a *Agent) latestAssistantMessage(ctx context.Context, threadID string) (string, bool, error) {
	limit := 20
	order := "desc"
	list, err := a.client.ListMessage(ctx, threadID, &limit, &order, nil, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to list thread messages: %w", err)
	}

	for _, msg := range list.Messages {
		if msg.Role != "assistant" {
			continue
		}
		var sb strings.Builder
		for _, part := range msg.Content {
			if part.Text != nil {
				sb.WriteString(part.Text.Value)
			}
		}
		return sb.String(), true, nil
	}

	return "", false, nil
}
