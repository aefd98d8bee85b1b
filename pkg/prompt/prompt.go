// Package prompt renders a window of conversation turns into a single text
// prompt for a local generator and extracts the generated answer from the
// generator's raw output.
package prompt

import (
	"strings"

	"github.com/papercomputeco/parley/pkg/llm"
)

// DefaultWindow is the number of most recent turns fed to the local generator.
const DefaultWindow = 6

// Role labels used in the flattened prompt.
const (
	UserLabel      = "User:"
	AssistantLabel = "Assistant:"
)

// Build renders turns as one line per turn, each prefixed with its role label,
// followed by an empty trailing assistant label marking where the continuation
// begins. Callers window the turns first; see DefaultWindow.
func Build(turns []llm.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		if t.Role == llm.RoleUser {
			b.WriteString(UserLabel)
		} else {
			b.WriteString(AssistantLabel)
		}
		b.WriteString(" ")
		b.WriteString(t.Content)
		b.WriteString("\n")
	}
	b.WriteString(AssistantLabel)
	return b.String()
}

// ExtractAnswer returns the newly generated continuation contained in raw.
//
// raw is expected to start with prompt. When it does, the prefix is removed;
// when it does not, the whole of raw is used. Generators without stop-token
// control may invent further turns, so the result is cut at the first
// UserLabel. Surrounding whitespace is trimmed.
func ExtractAnswer(raw, prompt string) string {
	var answer string
	if strings.HasPrefix(raw, prompt) {
		answer = strings.TrimSpace(raw[len(prompt):])
	} else {
		answer = strings.TrimSpace(raw)
	}

	if before, _, found := strings.Cut(answer, UserLabel); found {
		answer = strings.TrimSpace(before)
	}

	return answer
}
