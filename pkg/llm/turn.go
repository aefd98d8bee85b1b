package llm

// Turn is one message in a conversation. Turns are values and are never
// modified after creation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn creates a turn authored by the user.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn creates a turn authored by the assistant.
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// Message converts the turn to the remote adapter's message format.
func (t Turn) Message() Message {
	return Message{Role: t.Role, Content: t.Content}
}

// Messages converts an ordered slice of turns to chat messages, preserving order.
func Messages(turns []Turn) []Message {
	msgs := make([]Message, len(turns))
	for i, t := range turns {
		msgs[i] = t.Message()
	}
	return msgs
}
