// Package runtime handles session tracking and event delivery. It
// orchestrates the system without containing business logic or domain
// rules.
package runtime

import (
	"sync"
	"time"

	"courier/contract"
)

// Session is one live connection bound to a user. Ephemeral: created on
// join, destroyed on disconnect, never persisted.
type Session struct {
	UserID   string
	Sink     contract.EventSink
	JoinedAt time.Time
}

// Registry is the process-wide map from user identity to live sessions.
// Several sessions may share a user (multiple tabs, devices); the registry
// is the only component holding this state, and it resets on restart.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[contract.EventSink]*Session
	owner  map[contract.EventSink]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[contract.EventSink]*Session),
		owner:  make(map[contract.EventSink]*Session),
	}
}

// Register binds a sink to a user. Registering the same sink twice moves it
// to the new user, so a re-join on a live connection never leaks the old
// binding.
func (r *Registry) Register(userID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.owner[sink]; ok {
		r.dropLocked(previous)
	}

	session := &Session{UserID: userID, Sink: sink, JoinedAt: time.Now().UTC()}
	if _, ok := r.byUser[userID]; !ok {
		r.byUser[userID] = make(map[contract.EventSink]*Session)
	}
	r.byUser[userID][sink] = session
	r.owner[sink] = session
}

// Unregister removes the sink from wherever it is held. Immediate: the
// session is excluded from all future dispatch targets as soon as this
// returns. Unknown sinks are a no-op.
func (r *Registry) Unregister(sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.owner[sink]
	if !ok {
		return
	}
	r.dropLocked(session)
}

func (r *Registry) dropLocked(session *Session) {
	delete(r.owner, session.Sink)
	if sinks, ok := r.byUser[session.UserID]; ok {
		delete(sinks, session.Sink)
		// No empty sets left behind, users come and go constantly.
		if len(sinks) == 0 {
			delete(r.byUser, session.UserID)
		}
	}
}

// SessionsFor returns a snapshot of the user's live sinks, possibly empty.
// Callers fan out over the snapshot; a session unregistered afterwards
// simply drops the push on its closed buffer.
func (r *Registry) SessionsFor(userID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sinks := make([]contract.EventSink, 0, len(r.byUser[userID]))
	for sink := range r.byUser[userID] {
		sinks = append(sinks, sink)
	}
	return sinks
}

// SessionCount reports how many sessions are currently registered, across
// all users. Used by the debug stats endpoint.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owner)
}
