package llm

// Options contains the sampling parameters of a single generation call.
type Options struct {
	// Temperature controls randomness (0.0-1.0).
	Temperature float64 `json:"temperature"`

	// MaxTokens is the number of additional tokens the backend may generate.
	MaxTokens int `json:"max_tokens,omitempty"`
}
