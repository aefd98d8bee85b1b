package chat

import (
	"github.com/papercomputeco/parley/pkg/backend"
)

// Settings are the per-session generation controls.
type Settings struct {
	// Mode is the declared backend preference.
	Mode backend.Mode `json:"mode"`

	// Temperature is the sampling temperature for both backends (0.0-1.0).
	Temperature float64 `json:"temperature"`

	// MaxTokens is the additional-token budget of the local generator.
	MaxTokens int `json:"max_tokens"`

	// Credential is the remote API key. It is never serialized.
	Credential string `json:"-"`
}

// DefaultSettings returns automatic mode, temperature 0.7 and a 150-token local budget.
func DefaultSettings() Settings {
	return Settings{
		Mode:        backend.ModeAuto,
		Temperature: 0.7,
		MaxTokens:   150,
	}
}
