package llm

import (
	"errors"

	"github.com/papercomputeco/parley/pkg/backend"
)

// Fixed diagnostic texts shown in place of an assistant answer.
const (
	DiagRemoteMissing       = "OpenAI library missing."
	DiagRemoteNoKey         = "No OpenAI API key provided."
	DiagRemoteFailedPrefix  = "OpenAI request failed: "
	DiagLocalMissing        = "Local model not available. Configure a local generator, or provide an OpenAI key."
	DiagLocalFailedPrefix   = "Local model generation failed: "
	diagUnknownFailedPrefix = "Generation failed: "
)

// Diagnostic renders a generation failure as the human-readable text that is
// appended to the conversation as the assistant's turn. The three failure
// kinds stay distinguishable in the rendered text.
func Diagnostic(err error) string {
	if err == nil {
		return ""
	}

	var ae *AdapterError
	if !errors.As(err, &ae) {
		return diagUnknownFailedPrefix + err.Error()
	}

	detail := ""
	if ae.Err != nil {
		detail = ae.Err.Error()
	}

	switch ae.Backend {
	case backend.Remote:
		switch ae.Kind {
		case KindMissingDependency:
			return DiagRemoteMissing
		case KindMissingCredential:
			return DiagRemoteNoKey
		default:
			return DiagRemoteFailedPrefix + detail
		}
	case backend.Local:
		switch ae.Kind {
		case KindMissingDependency:
			return DiagLocalMissing
		default:
			return DiagLocalFailedPrefix + detail
		}
	}

	return diagUnknownFailedPrefix + ae.Error()
}
