package llm

import "context"

// RemoteAdapter sends a conversation to a hosted chat-completion service.
// Failures are returned as *AdapterError.
type RemoteAdapter interface {
	Chat(ctx context.Context, req ChatRequest) (*Response, error)
}

// LocalAdapter runs a local text generator over a single prompt.
// The returned content is expected to contain the prompt as a prefix followed
// by the newly generated text. Failures are returned as *AdapterError.
type LocalAdapter interface {
	Generate(ctx context.Context, req GenerateRequest) (*Response, error)
}
