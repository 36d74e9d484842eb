package terminal

import (
	"sync"

	"go.uber.org/zap"
)

// Registry tracks all live sessions by id. Safe for concurrent use from the
// HTTP and WebSocket layers.
type Registry struct {
	historyMaxBytes int
	logger          *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry. historyMaxBytes <= 0 selects the
// default scrollback cap.
func NewRegistry(historyMaxBytes int, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		historyMaxBytes: historyMaxBytes,
		logger:          logger,
		sessions:        make(map[string]*Session),
	}
}

// Create spawns a session and registers it. The session is only published
// after the process started successfully, so a spawn failure leaves no
// partial state behind.
func (r *Registry) Create(name, command, cwd string, onActivity ActivityFunc) (*Session, error) {
	session, err := newSession(name, command, cwd, r.historyMaxBytes, onActivity, r.logger)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()

	return session, nil
}

// Get looks up a session by id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return session, nil
}

// List returns a snapshot of all registered sessions. Callers iterate
// without holding the registry lock across I/O.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Delete removes and closes a session. A concurrent Attach observes either
// the live session or ErrNotFound; the close happens after removal so no
// new viewer is handed a half-closed session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	session, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	session.Close()
	return nil
}

// CloseAll tears down every session. Used on server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
