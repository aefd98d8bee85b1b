package llm

import "time"

// Response is the text produced by an adapter call.
type Response struct {
	Content string `json:"content"` // Generated text
	Model   string `json:"model"`   // Model that generated the response

	// Metrics (zero when the backend does not report them)
	PromptTokens     int           `json:"prompt_tokens,omitempty"`
	CompletionTokens int           `json:"completion_tokens,omitempty"`
	Duration         time.Duration `json:"duration,omitempty"`
}
