package llm

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message represents a single role/content pair sent to a chat-completion API.
type Message struct {
	Role    Role   `json:"role"`    // "system", "user", "assistant"
	Content string `json:"content"` // The message content
}
