package chat

import "context"

// Tool is a function the model may call during generation.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Call(ctx context.Context, args map[string]any) (string, error)
}

// Turn is one prior conversation exchange, oldest first.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}
