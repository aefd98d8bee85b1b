// Package backend decides, per user turn, whether generation is served by the
// remote chat-completion service or by the local generator.
package backend

import (
	"fmt"
	"strings"
)

// Mode is the user's declared backend preference.
type Mode string

const (
	// ModeAuto prefers the remote service when a credential is present.
	ModeAuto Mode = "auto"

	// ModeRemote always uses the remote service.
	ModeRemote Mode = "remote"

	// ModeLocal always uses the local generator.
	ModeLocal Mode = "local"
)

// Modes lists every valid mode.
var Modes = []Mode{ModeAuto, ModeRemote, ModeLocal}

// Backend is a generation path.
type Backend string

const (
	Remote Backend = "remote"
	Local  Backend = "local"
)

// ParseMode parses a mode name. Aliases used by the settings surfaces
// ("automatic", "openai", "force-remote", "ollama", "force-local") are accepted.
// The empty string parses to ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "automatic":
		return ModeAuto, nil
	case "remote", "openai", "force-remote":
		return ModeRemote, nil
	case "local", "ollama", "force-local":
		return ModeLocal, nil
	}

	return "", fmt.Errorf("unknown backend mode %q (want one of auto, remote, local)", s)
}

// Valid reports whether m is one of Modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeAuto, ModeRemote, ModeLocal:
		return true
	}
	return false
}

func (m Mode) String() string {
	return string(m)
}

// Select returns the generation path for a mode and an optional credential.
// Forced modes ignore the credential. In automatic mode, a non-empty
// credential selects Remote and an empty one selects Local.
func Select(mode Mode, credential string) Backend {
	switch mode {
	case ModeRemote:
		return Remote
	case ModeLocal:
		return Local
	}

	if credential != "" {
		return Remote
	}
	return Local
}
