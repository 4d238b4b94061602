package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the signed-in state of a workspace.
type Session struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}

// SessionListener receives the new session, or nil after sign-out.
type SessionListener func(*Session)

// SessionNotifier fans session changes out to subscribers.
type SessionNotifier struct {
	mu        sync.Mutex
	current   *Session
	listeners map[int]SessionListener
	nextID    int
}

func NewSessionNotifier() *SessionNotifier {
	return &SessionNotifier{listeners: make(map[int]SessionListener)}
}

// Subscribe registers fn and returns a function that removes it.
func (n *SessionNotifier) Subscribe(fn SessionListener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

// Publish records s as current and calls every listener outside the lock.
func (n *SessionNotifier) Publish(s *Session) {
	n.mu.Lock()
	n.current = s
	listeners := make([]SessionListener, 0, len(n.listeners))
	for _, fn := range n.listeners {
		listeners = append(listeners, fn)
	}
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

func (n *SessionNotifier) Current() *Session {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}
