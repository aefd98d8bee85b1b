// Package conversation provides the ordered, append-only turn log of one chat session.
package conversation

import "github.com/papercomputeco/parley/pkg/llm"

// Conversation is an ordered log of turns, oldest first.
// Role alternation is not enforced and duplicate turns are valid.
//
// A Conversation is owned by a single session and is not safe for concurrent use.
type Conversation struct {
	turns []llm.Turn
}

// New creates an empty conversation.
func New() *Conversation {
	return &Conversation{}
}

// Append adds a turn to the end of the conversation.
func (c *Conversation) Append(turn llm.Turn) {
	c.turns = append(c.turns, turn)
}

// Clear replaces the conversation with an empty one.
func (c *Conversation) Clear() {
	c.turns = nil
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Window returns the last n turns in their original order, or every turn if
// the conversation is shorter than n. A non-positive n yields an empty slice.
// The returned slice is a copy.
func (c *Conversation) Window(n int) []llm.Turn {
	if n <= 0 {
		return []llm.Turn{}
	}

	start := len(c.turns) - n
	if start < 0 {
		start = 0
	}

	out := make([]llm.Turn, len(c.turns)-start)
	copy(out, c.turns[start:])
	return out
}

// Turns returns a copy of every turn, oldest first.
func (c *Conversation) Turns() []llm.Turn {
	return c.Window(len(c.turns))
}
