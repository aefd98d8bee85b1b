package server

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/papercomputeco/parley/pkg/backend"
	"github.com/papercomputeco/parley/pkg/chat"
	"github.com/papercomputeco/parley/pkg/llm"
)

// SettingsRequest changes session settings. Omitted fields keep their value.
type SettingsRequest struct {
	Mode        string   `json:"mode,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

func (r SettingsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Mode, validation.By(func(value any) error {
			_, err := backend.ParseMode(value.(string))
			return err
		})),
		validation.Field(&r.Temperature, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&r.MaxTokens, validation.Min(50), validation.Max(512)),
	)
}

// apply returns base with the request's fields applied. r must be valid.
func (r SettingsRequest) apply(base chat.Settings) chat.Settings {
	if r.Mode != "" {
		base.Mode, _ = backend.ParseMode(r.Mode)
	}
	if r.Temperature != nil {
		base.Temperature = *r.Temperature
	}
	if r.MaxTokens != nil {
		base.MaxTokens = *r.MaxTokens
	}
	return base
}

// MessageRequest submits one user turn. Settings fields override the
// session's settings for this turn only.
type MessageRequest struct {
	Content string `json:"content"`
	SettingsRequest
}

// SessionResponse describes a session.
type SessionResponse struct {
	ID        string        `json:"id"`
	State     string        `json:"state"`
	Turns     []llm.Turn    `json:"turns"`
	HeadHash  string        `json:"head_hash,omitempty"`
	Settings  chat.Settings `json:"settings"`
	CreatedAt time.Time     `json:"created_at"`
}

// ReplyResponse is the assistant turn produced by a submission.
type ReplyResponse struct {
	Role       llm.Role `json:"role"`
	Content    string   `json:"content"`
	Backend    string   `json:"backend"`
	Model      string   `json:"model,omitempty"`
	HeadHash   string   `json:"head_hash,omitempty"`
	DurationMS int64    `json:"duration_ms"`

	// Diagnostic is set when Content is an adapter failure message.
	Diagnostic string `json:"diagnostic,omitempty"`
}

// HistoryResponse contains the transcript leading up to a given node.
type HistoryResponse struct {
	// Messages in chronological order (oldest first, up to and including the requested node)
	Messages []HistoryMessage `json:"messages"`
	// HeadHash is the hash of the node that was requested
	HeadHash string `json:"head_hash"`
	// Depth is the number of messages in the history
	Depth int `json:"depth"`
}

// HistoryMessage is one transcript turn.
type HistoryMessage struct {
	Hash       string   `json:"hash"`
	ParentHash *string  `json:"parent_hash,omitempty"`
	Role       llm.Role `json:"role"`
	Content    string   `json:"content"`
	Backend    string   `json:"backend,omitempty"`
	Model      string   `json:"model,omitempty"`
}

func sessionResponse(s *chat.Session) SessionResponse {
	turns := s.Turns()
	if turns == nil {
		turns = []llm.Turn{}
	}
	return SessionResponse{
		ID:        s.ID(),
		State:     s.State().String(),
		Turns:     turns,
		HeadHash:  s.HeadHash(),
		Settings:  s.Settings(),
		CreatedAt: s.CreatedAt(),
	}
}

func replyResponse(r *chat.Reply) ReplyResponse {
	resp := ReplyResponse{
		Role:       r.Turn.Role,
		Content:    r.Turn.Content,
		Backend:    string(r.Backend),
		Model:      r.Model,
		HeadHash:   r.HeadHash,
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		resp.Diagnostic = kindOf(r.Err)
	}
	return resp
}

func kindOf(err error) string {
	switch {
	case llm.IsMissingDependency(err):
		return llm.KindMissingDependency.String()
	case llm.IsMissingCredential(err):
		return llm.KindMissingCredential.String()
	default:
		return llm.KindRequestFailed.String()
	}
}
