// Package session tracks live FIX sessions and implements
// cancel-on-disconnect fan-out (spec.md §4.6). Adapted from the teacher's
// internal/session/manager.go + client.go: the same map-of-handles-plus-
// mutex registry shape, generalized from "WebSocket connection with a
// subscription set" to "FIX session with an owning party and a
// cancel-on-disconnect flag", with the WebSocket transport coupling
// stripped out (that lives in cmd/matchengine's demo transport shim, not
// in the core).
package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openmarket-sim/matchcore/internal/repository"
)

// Session is one logical FIX connection.
type Session struct {
	ID                 uuid.UUID
	SenderCompID       string
	TargetCompID       string
	CancelOnDisconnect bool
}

// Registry tracks every live session. Grounded on the teacher's
// session.Manager{clients map[uint64]*Client}.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session // keyed by Session.ID.String()
	access   *repository.Accessor
}

// NewRegistry wires a Registry to access, used to broadcast
// NotifyClientDisconnected to every engine when a session terminates.
func NewRegistry(access *repository.Accessor) *Registry {
	return &Registry{sessions: make(map[string]*Session), access: access}
}

// Register adds a newly-established session.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID.String()] = s
}

// Get returns the session registered under id, if any.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Terminate removes a session and, if it has cancel-on-disconnect set,
// fans out NotifyClientDisconnected to every engine. Per spec.md's design
// note, this broadcast never runs on the registry's own goroutine — it is
// dispatched through the Accessor, so each engine processes the
// disconnection on its own ChainedMux in its own ordered turn, not
// synchronously inline with whatever triggered the disconnect (a transport
// read-loop goroutine dying, typically).
func (r *Registry) Terminate(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	log.Info().Str("session_id", id).Bool("cancel_on_disconnect", s.CancelOnDisconnect).Msg("session terminated")

	if !s.CancelOnDisconnect {
		return
	}

	r.access.Broadcast(func(e repository.Engine) func() {
		return func() {
			if notifiable, ok := e.(DisconnectNotifiable); ok {
				notifiable.NotifyClientDisconnected(id)
			}
		}
	})
}

// DisconnectNotifiable is implemented by trading engines that react to a
// session's disconnection by canceling its resting orders.
type DisconnectNotifiable interface {
	NotifyClientDisconnected(sessionID string)
}
