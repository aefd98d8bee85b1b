package openai

import "time"

// Config holds the OpenAI adapter configuration.
type Config struct {
	BaseURL   string        `toml:"base_url"`
	Model     string        `toml:"model"`
	MaxTokens int           `toml:"max_tokens"`
	Timeout   time.Duration `toml:"timeout"`
}

// DefaultConfig returns the defaults used by the chatbot.
func DefaultConfig() Config {
	return Config{
		BaseURL:   "https://api.openai.com",
		Model:     "gpt-3.5-turbo",
		MaxTokens: 600,
		Timeout:   2 * time.Minute,
	}
}
