// Package realtime holds the ephemeral session-side state of the server:
// live socket sessions, the user/session binding registry, room membership,
// and the optional Redis presence mirror and telemetry notifier.
package realtime

import "sync"

// RoomGeneral is the ambient room every authenticated session joins.
const RoomGeneral = "general"

// Registry is the bidirectional mapping between authenticated user ids and
// live session ids. A user is bound to at most one session and a session to
// at most one user.
type Registry struct {
	mu        sync.RWMutex
	byUser    map[string]string // user id -> session id
	bySession map[string]string // session id -> user id
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser:    make(map[string]string),
		bySession: make(map[string]string),
	}
}

// Bind associates userID with sessionID in both directions. Any prior
// binding for the user is displaced first and its session id returned, so
// the caller can decide what to do with the now-anonymous session. A prior
// binding of the session itself is also dropped.
func (r *Registry) Bind(userID, sessionID string) (displaced string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byUser[userID]; ok && old != sessionID {
		displaced = old
		delete(r.bySession, old)
	}
	if oldUser, ok := r.bySession[sessionID]; ok && oldUser != userID {
		delete(r.byUser, oldUser)
	}
	r.byUser[userID] = sessionID
	r.bySession[sessionID] = userID
	return displaced
}

// UnbindSession removes whichever user is bound to sessionID and returns
// that user id, or "" if the session was anonymous.
func (r *Registry) UnbindSession(sessionID string) (userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.bySession[sessionID]
	if !ok {
		return ""
	}
	delete(r.bySession, sessionID)
	if r.byUser[userID] == sessionID {
		delete(r.byUser, userID)
	}
	return userID
}

// SessionOf returns the session bound to userID, or "".
func (r *Registry) SessionOf(userID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byUser[userID]
}

// UserOf returns the user bound to sessionID, or "" for anonymous sessions.
func (r *Registry) UserOf(sessionID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bySession[sessionID]
}

// IsOnline reports whether userID has a bound session.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUser[userID]
	return ok
}

// BoundUsers returns the ids of every user currently bound to a session.
func (r *Registry) BoundUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	return ids
}
