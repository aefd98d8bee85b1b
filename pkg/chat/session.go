// Package chat ties a conversation to the backend dispatcher. A Session owns
// one conversation and runs the Idle -> AwaitingResponse -> Idle cycle for each
// submission; a Manager owns the sessions of a running service.
package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/backend"
	"github.com/papercomputeco/parley/pkg/conversation"
	"github.com/papercomputeco/parley/pkg/llm"
	"github.com/papercomputeco/parley/pkg/merkle"
)

var (
	// ErrEmptySubmission is returned for empty user input. No turn is appended.
	ErrEmptySubmission = errors.New("empty submission")

	// ErrSessionBusy is returned when a submission arrives while the previous
	// one is still awaiting its response.
	ErrSessionBusy = errors.New("session is awaiting a response")

	// ErrSessionNotFound is returned by Manager lookups for unknown ids.
	ErrSessionNotFound = errors.New("session not found")
)

// State is the dispatch state of a session.
type State int

const (
	Idle State = iota
	AwaitingResponse
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingResponse:
		return "awaiting_response"
	default:
		return "unknown"
	}
}

// Reply describes the assistant turn appended by a submission.
type Reply struct {
	Turn     llm.Turn
	Backend  backend.Backend
	Model    string
	Duration time.Duration
	HeadHash string // Transcript node of the reply; empty without a storer

	// Err is the adapter failure rendered into Turn.Content, if any.
	Err error
}

// Session is one interactive chat: a conversation, its settings and its
// position in the transcript DAG.
type Session struct {
	id         string
	dispatcher *Dispatcher
	storer     merkle.Storer
	logger     *zap.Logger
	createdAt  time.Time
	lastActive time.Time

	// turnMu is held for a whole submission or clear.
	turnMu sync.Mutex

	mu       sync.RWMutex
	conv     *conversation.Conversation
	state    State
	settings Settings
	head     *merkle.Node
}

// NewSession creates an empty session. storer may be nil to skip transcript recording.
func NewSession(id string, dispatcher *Dispatcher, storer merkle.Storer, settings Settings, logger *zap.Logger) *Session {
	now := time.Now()
	return &Session{
		id:         id,
		dispatcher: dispatcher,
		storer:     storer,
		logger:     logger.With(zap.String("session_id", id)),
		createdAt:  now,
		lastActive: now,
		conv:       conversation.New(),
		settings:   settings,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// LastActive returns when the session last started or finished a turn,
// changed its settings or cleared its history.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// idleSince reports whether the session has been Idle with no activity
// since cutoff.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == Idle && s.lastActive.Before(cutoff)
}

// State returns the current dispatch state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Turns returns a copy of the conversation, oldest first.
func (s *Session) Turns() []llm.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conv.Turns()
}

// HeadHash returns the transcript hash of the latest turn, or "" after a clear.
func (s *Session) HeadHash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.head == nil {
		return ""
	}
	return s.head.Hash
}

// Settings returns the session's current settings.
func (s *Session) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetSettings replaces the session's settings for later submissions.
func (s *Session) SetSettings(settings Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.lastActive = time.Now()
}

// Submit runs one submission with the session's settings.
func (s *Session) Submit(ctx context.Context, input string) (*Reply, error) {
	return s.SubmitWith(ctx, input, s.Settings())
}

// SubmitWith appends input as a user turn, dispatches it with settings and
// appends exactly one assistant turn holding either the answer or a diagnostic.
// The adapter call is not cancelled by ctx; it runs to completion or failure.
//
// Empty input returns ErrEmptySubmission and a submission overlapping another
// returns ErrSessionBusy; in both cases the conversation is unchanged.
func (s *Session) SubmitWith(ctx context.Context, input string, settings Settings) (*Reply, error) {
	if input == "" {
		return nil, ErrEmptySubmission
	}
	if !s.turnMu.TryLock() {
		return nil, ErrSessionBusy
	}
	defer s.turnMu.Unlock()

	ctx = context.WithoutCancel(ctx)

	userTurn := llm.UserTurn(input)
	s.mu.Lock()
	s.conv.Append(userTurn)
	s.state = AwaitingResponse
	s.lastActive = time.Now()
	s.mu.Unlock()
	s.record(ctx, userTurn, "", "")

	s.logger.Debug("dispatching submission",
		zap.String("mode", settings.Mode.String()),
		zap.Bool("has_credential", settings.Credential != ""),
		zap.String("content_preview", truncate(input, 50)),
	)

	// Only this goroutine mutates conv while turnMu is held.
	result := s.dispatcher.Dispatch(ctx, s.conv, settings)

	reply := llm.AssistantTurn(result.Text)
	s.mu.Lock()
	s.conv.Append(reply)
	s.state = Idle
	s.lastActive = time.Now()
	s.mu.Unlock()
	head := s.record(ctx, reply, string(result.Backend), result.Model)

	s.logger.Info("turn completed",
		zap.String("backend", string(result.Backend)),
		zap.Duration("duration", result.Duration),
		zap.Bool("diagnostic", result.Err != nil),
	)

	return &Reply{
		Turn:     reply,
		Backend:  result.Backend,
		Model:    result.Model,
		Duration: result.Duration,
		HeadHash: head,
		Err:      result.Err,
	}, nil
}

// ClearHistory empties the conversation and starts a new transcript chain.
// It waits for an in-flight submission to finish. Clearing is idempotent.
func (s *Session) ClearHistory() {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conv.Clear()
	s.head = nil
	s.lastActive = time.Now()

	s.logger.Info("history cleared")
}

// record appends turn to the transcript DAG and returns the new head hash.
// Storage failures are logged and never fail the submission.
func (s *Session) record(ctx context.Context, turn llm.Turn, backendName, model string) string {
	if s.storer == nil {
		return ""
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node := merkle.NewNode(merkle.TurnBucket(turn, backendName, model), s.head)
	if err := s.storer.Put(ctx, node); err != nil {
		s.logger.Error("failed to record turn", zap.Error(err))
	}
	s.head = node
	return node.Hash
}
