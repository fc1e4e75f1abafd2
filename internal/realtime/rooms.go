package realtime

import (
	"sort"
	"sync"

	"warhorse/internal/observability"
)

// Rooms tracks which sessions are subscribed to which chat rooms.
// Membership belongs to the session, not the user: a displaced or logged-out
// session loses its rooms even though the account survives. A room exists
// exactly as long as it has at least one member.
type Rooms struct {
	mu        sync.RWMutex
	members   map[string]map[string]struct{} // room id -> session id set
	bySession map[string]map[string]struct{} // session id -> room id set
}

// NewRooms returns an empty room table.
func NewRooms() *Rooms {
	return &Rooms{
		members:   make(map[string]map[string]struct{}),
		bySession: make(map[string]map[string]struct{}),
	}
}

// Join subscribes sessionID to roomID. Joining twice is a no-op.
func (r *Rooms) Join(roomID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.members[roomID]
	if !ok {
		set = make(map[string]struct{})
		r.members[roomID] = set
	}
	if _, already := set[sessionID]; already {
		return
	}
	set[sessionID] = struct{}{}

	rooms, ok := r.bySession[sessionID]
	if !ok {
		rooms = make(map[string]struct{})
		r.bySession[sessionID] = rooms
	}
	rooms[roomID] = struct{}{}

	observability.RoomMembers.WithLabelValues(roomID).Set(float64(len(set)))
}

// Leave unsubscribes sessionID from roomID.
func (r *Rooms) Leave(roomID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(roomID, sessionID)
}

// LeaveAll unsubscribes sessionID from every room it is in and returns the
// rooms it left. Called on logout and disconnect.
func (r *Rooms) LeaveAll(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := r.bySession[sessionID]
	if len(rooms) == 0 {
		return nil
	}
	left := make([]string, 0, len(rooms))
	for roomID := range rooms {
		left = append(left, roomID)
	}
	sort.Strings(left)
	for _, roomID := range left {
		r.leaveLocked(roomID, sessionID)
	}
	return left
}

func (r *Rooms) leaveLocked(roomID, sessionID string) {
	set, ok := r.members[roomID]
	if !ok {
		return
	}
	if _, member := set[sessionID]; !member {
		return
	}
	delete(set, sessionID)
	if len(set) == 0 {
		delete(r.members, roomID)
	}

	if rooms, ok := r.bySession[sessionID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.bySession, sessionID)
		}
	}

	observability.RoomMembers.WithLabelValues(roomID).Set(float64(len(set)))
}

// IsMember reports whether sessionID is subscribed to roomID.
func (r *Rooms) IsMember(roomID, sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.members[roomID][sessionID]
	return ok
}

// Members returns the session ids subscribed to roomID, sorted for stable
// fan-out order. An unknown room returns nil.
func (r *Rooms) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.members[roomID]
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Exists reports whether roomID has at least one member.
func (r *Rooms) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[roomID]) > 0
}
