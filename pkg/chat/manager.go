package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papercomputeco/parley/pkg/merkle"
)

// Manager owns the sessions of a running service. Each session is used by a
// single client; the manager only guards the registry itself.
type Manager struct {
	dispatcher *Dispatcher
	storer     merkle.Storer
	defaults   Settings
	logger     *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session registry. storer may be nil.
func NewManager(dispatcher *Dispatcher, storer merkle.Storer, defaults Settings, logger *zap.Logger) *Manager {
	return &Manager{
		dispatcher: dispatcher,
		storer:     storer,
		defaults:   defaults,
		logger:     logger,
		sessions:   make(map[string]*Session),
	}
}

// Defaults returns the settings new sessions start with.
func (m *Manager) Defaults() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaults
}

// SetDefaults replaces the settings for sessions created from now on.
// Existing sessions keep the settings they were created with.
func (m *Manager) SetDefaults(defaults Settings) {
	m.mu.Lock()
	m.defaults = defaults
	m.mu.Unlock()

	m.logger.Info("session defaults updated",
		zap.String("mode", defaults.Mode.String()),
		zap.Float64("temperature", defaults.Temperature),
		zap.Int("max_tokens", defaults.MaxTokens),
		zap.Bool("has_credential", defaults.Credential != ""),
	)
}

// Create starts a new session with the given settings.
func (m *Manager) Create(settings Settings) *Session {
	id := uuid.NewString()
	s := NewSession(id, m.dispatcher, m.storer, settings, m.logger)

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	activeSessions.Inc()
	m.logger.Info("session created",
		zap.String("session_id", id),
		zap.String("mode", settings.Mode.String()),
	)
	return s
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// End removes a session. Its transcript stays in the DAG.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)

	activeSessions.Dec()
	m.logger.Info("session ended", zap.String("session_id", id))
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Expire ends every Idle session with no activity for longer than maxIdle
// and returns how many were ended. Sessions awaiting a response are kept.
func (m *Manager) Expire(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	expired := 0
	for id, s := range m.sessions {
		if !s.idleSince(cutoff) {
			continue
		}
		delete(m.sessions, id)
		activeSessions.Dec()
		expired++
		m.logger.Info("session expired",
			zap.String("session_id", id),
			zap.Time("last_active", s.LastActive()),
		)
	}
	return expired
}

// ExpireIdle calls Expire every interval until ctx is done.
func (m *Manager) ExpireIdle(ctx context.Context, maxIdle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Expire(maxIdle)
		}
	}
}
