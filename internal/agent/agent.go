package agent

import "context"

// ContextMessage is one element of the seed used when opening an ephemeral
// remote conversation context. Role is a remote-protocol role, either
// "user" or "assistant"; the coordinator folds anything else before it
// reaches this type.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContextHandle identifies an open remote conversation context.
type ContextHandle string

// Reply is one streamed result from a remote invocation. Err is set when the
// remote side failed mid-stream.
type Reply struct {
	Content string
	Usage   UsageSignal
	Err     error
}

// Response is the value the coordinator always produces, degraded or not.
// It is not persisted here; the caller records it as a new message.
type Response struct {
	Content    string `json:"content"`
	TokenCount int    `json:"token_count"`
}

// RemoteAgent is the external reasoning agent. A context is a scoped remote
// resource: opened with a seed window, invoked against, and always closed.
type RemoteAgent interface {
	// OpenContext creates an ephemeral remote conversation seeded with the
	// given messages.
	OpenContext(ctx context.Context, seed []ContextMessage) (ContextHandle, error)

	// Invoke sends one user utterance against an open context and returns a
	// lazy stream of replies. The stream may be empty; it is closed when the
	// remote side has nothing further to say.
	Invoke(ctx context.Context, handle ContextHandle, utterance string) (<-chan Reply, error)

	// CloseContext releases the remote conversation context.
	CloseContext(ctx context.Context, handle ContextHandle) error
}
