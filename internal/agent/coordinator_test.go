package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conversa/conversa-backend/internal/repository"
)

// fakeRemote counts context opens and closes and serves scripted replies.
type fakeRemote struct {
	opens   int
	closes  int
	invokes int

	openErr   error
	invokeErr error
	closeErr  error
	replies   []Reply

	// blockInvoke leaves the reply stream open forever, so only caller
	// cancellation can end the invocation.
	blockInvoke bool

	seed         []ContextMessage
	gotUtterance string
}

func (f *fakeRemote) OpenContext(ctx context.Context, seed []ContextMessage) (ContextHandle, error) {
	f.opens++
	f.seed = seed
	if f.openErr != nil {
		return "", f.openErr
	}
	return "ctx-1", nil
}

func (f *fakeRemote) Invoke(ctx context.Context, handle ContextHandle, utterance string) (<-chan Reply, error) {
	f.invokes++
	f.gotUtterance = utterance
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	if f.blockInvoke {
		return make(chan Reply), nil
	}
	ch := make(chan Reply, len(f.replies))
	for _, r := range f.replies {
		ch <- r
	}
	close(ch)
	return ch, nil
}

func (f *fakeRemote) CloseContext(ctx context.Context, handle ContextHandle) error {
	f.closes++
	return f.closeErr
}

func userWindow(contents ...string) []repository.Message {
	window := make([]repository.Message, len(contents))
	for i, c := range contents {
		window[i] = repository.Message{Role: repository.RoleUser, Content: c, TokenCount: 1}
	}
	return window
}

func TestCoordinator_GenerateReply_Success(t *testing.T) {
	remote := &fakeRemote{
		replies: []Reply{{Content: "All good.", Usage: ChatUsage{TotalTokens: 42}}},
	}
	coordinator := NewCoordinator(remote, nil)

	resp := coordinator.GenerateReply(context.Background(), userWindow("hi"), "how are you?")

	assert.Equal(t, "All good.", resp.Content)
	assert.Equal(t, 42, resp.TokenCount)
	assert.Equal(t, "how are you?", remote.gotUtterance)
	assert.Equal(t, 1, remote.opens)
	assert.Equal(t, 1, remote.closes)
	assert.Equal(t, 1, remote.invokes)
}

func TestCoordinator_GenerateReply_ConsumesOnlyFirstReply(t *testing.T) {
	remote := &fakeRemote{
		replies: []Reply{
			{Content: "first", Usage: RunUsage{TotalTokens: 7}},
			{Content: "second", Usage: RunUsage{TotalTokens: 900}},
		},
	}
	coordinator := NewCoordinator(remote, nil)

	resp := coordinator.GenerateReply(context.Background(), nil, "hello")

	assert.Equal(t, "first", resp.Content)
	assert.Equal(t, 7, resp.TokenCount)
	assert.Equal(t, 1, remote.closes)
}

func TestCoordinator_GenerateReply_EmptyStream(t *testing.T) {
	remote := &fakeRemote{}
	coordinator := NewCoordinator(remote, nil)

	resp := coordinator.GenerateReply(context.Background(), nil, "hello")

	assert.Equal(t, "No response generated from agent.", resp.Content)
	assert.Zero(t, resp.TokenCount)
	assert.Equal(t, 1, remote.opens)
	assert.Equal(t, 1, remote.closes)
}

func TestCoordinator_GenerateReply_OpenFails(t *testing.T) {
	remote := &fakeRemote{openErr: errors.New("remote unavailable")}
	coordinator := NewCoordinator(remote, nil)

	resp := coordinator.GenerateReply(context.Background(), nil, "hello")

	assert.Contains(t, resp.Content, "remote unavailable")
	assert.Zero(t, resp.TokenCount)
	// The context was never acquired, so there is nothing to release.
	assert.Equal(t, 1, remote.opens)
	assert.Equal(t, 0, remote.closes)
	assert.Equal(t, 0, remote.invokes)
}

func TestCoordinator_GenerateReply_InvokeFails(t *testing.T) {
	remote := &fakeRemote{invokeErr: errors.New("network down")}
	coordinator := NewCoordinator(remote, nil)

	resp := coordinator.GenerateReply(context.Background(), nil, "hello")

	assert.Contains(t, resp.Content, "network down")
	assert.Zero(t, resp.TokenCount)
	assert.Equal(t, 1, remote.opens)
	assert.Equal(t, 1, remote.closes)
}

func TestCoordinator_GenerateReply_ErrorReply(t *testing.T) {
	remote := &fakeRemote{
		replies: []Reply{{Err: errors.New("run failed: rate limited")}},
	}
	coordinator := NewCoordinator(remote, nil)

	resp := coordinator.GenerateReply(context.Background(), nil, "hello")

	assert.Contains(t, resp.Content, "rate limited")
	assert.Zero(t, resp.TokenCount)
	assert.Equal(t, 1, remote.opens)
	assert.Equal(t, 1, remote.closes)
}

func TestCoordinator_GenerateReply_EmptyContentReply(t *testing.T) {
	remote := &fakeRemote{
		replies: []Reply{{Content: "", Usage: ChatUsage{TotalTokens: 3}}},
	}
	coordinator := NewCoordinator(remote, nil)

	resp := coordinator.GenerateReply(context.Background(), nil, "hello")

	assert.Equal(t, "No content in response.", resp.Content)
	assert.Equal(t, 3, resp.TokenCount)
	assert.Equal(t, 1, remote.closes)
}

func TestCoordinator_GenerateReply_CancellationStillCloses(t *testing.T) {
	remote := &fakeRemote{blockInvoke: true}
	coordinator := NewCoordinator(remote, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	resp := coordinator.GenerateReply(ctx, nil, "hello")

	assert.Contains(t, resp.Content, context.DeadlineExceeded.Error())
	assert.Zero(t, resp.TokenCount)
	assert.Equal(t, 1, remote.opens)
	assert.Equal(t, 1, remote.closes)
}

func TestCoordinator_GenerateReply_SystemRoleFoldsToUser(t *testing.T) {
	window := []repository.Message{
		{Role: repository.RoleSystem, Content: "summary of earlier talk"},
		{Role: repository.RoleUser, Content: "question"},
		{Role: repository.RoleAssistant, Content: "answer"},
	}
	remote := &fakeRemote{replies: []Reply{{Content: "ok"}}}
	coordinator := NewCoordinator(remote, nil)

	coordinator.GenerateReply(context.Background(), window, "next question")

	require.Len(t, remote.seed, 3)
	assert.Equal(t, "user", remote.seed[0].Role)
	assert.Equal(t, "summary of earlier talk", remote.seed[0].Content)
	assert.Equal(t, "user", remote.seed[1].Role)
	assert.Equal(t, "assistant", remote.seed[2].Role)
}
