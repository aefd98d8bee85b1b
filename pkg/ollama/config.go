package ollama

import "time"

// Config holds the local generator configuration.
type Config struct {
	Enabled bool          `toml:"enabled"`
	URL     string        `toml:"url"`
	Model   string        `toml:"model"`
	Seed    int           `toml:"seed"`
	Timeout time.Duration `toml:"timeout"`
}

// DefaultConfig returns sensible defaults for a local Ollama server.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		URL:     "http://localhost:11434",
		Model:   "llama3.2",
		Seed:    42,
		Timeout: 5 * time.Minute,
	}
}
