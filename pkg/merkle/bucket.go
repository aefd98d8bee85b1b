package merkle

import "github.com/papercomputeco/parley/pkg/llm"

// Bucket is the content stored in a transcript node.
type Bucket struct {
	Type    string   `json:"type"`              // "message"
	Role    llm.Role `json:"role"`              // "user", "assistant"
	Content string   `json:"content"`           // The turn text
	Backend string   `json:"backend,omitempty"` // Backend that produced an assistant turn
	Model   string   `json:"model,omitempty"`   // Model that produced an assistant turn
}

// TurnBucket builds the bucket for a conversation turn.
func TurnBucket(turn llm.Turn, backend, model string) Bucket {
	return Bucket{
		Type:    "message",
		Role:    turn.Role,
		Content: turn.Content,
		Backend: backend,
		Model:   model,
	}
}

// Turn converts the bucket back into a conversation turn.
func (b Bucket) Turn() llm.Turn {
	return llm.Turn{Role: b.Role, Content: b.Content}
}
