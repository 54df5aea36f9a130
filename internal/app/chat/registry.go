package chat

import "sync"

// Conn is a live client connection as seen by the registry and the broadcaster.
type Conn interface {
	// ID uniquely identifies the connection for its lifetime.
	ID() string

	// UserID is the authenticated user behind the connection.
	UserID() string

	// Enqueue hands an encoded frame to the connection without blocking. It reports false
	// when the frame was dropped (buffer full or connection closing).
	Enqueue(frame []byte) bool

	// Close terminates the connection.
	Close()
}

// Registry tracks which connections are in which rooms.
// Forward: room → connections (for fan-out).
// Reverse: connection → rooms (for O(rooms) disconnect).
// A third index maps users to their live connections.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn                // connection id → connection
	rooms map[string]map[string]Conn     // forward: room → connections
	joins map[string]map[string]struct{} // reverse: connection id → rooms
	users map[string]map[string]struct{} // user id → connection ids
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
		rooms: make(map[string]map[string]Conn),
		joins: make(map[string]map[string]struct{}),
		users: make(map[string]map[string]struct{}),
	}
}

func (r *Registry) registerLocked(c Conn) {
	id := c.ID()
	if _, ok := r.conns[id]; ok {
		return
	}

	r.conns[id] = c
	r.joins[id] = make(map[string]struct{})

	if r.users[c.UserID()] == nil {
		r.users[c.UserID()] = make(map[string]struct{})
	}
	r.users[c.UserID()][id] = struct{}{}
}

// Register records c as live without joining any room. It is idempotent.
func (r *Registry) Register(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(c)
}

// Join adds c to room, registering c first if needed. It is idempotent.
func (r *Registry) Join(c Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.registerLocked(c)

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[string]Conn)
	}
	r.rooms[room][c.ID()] = c
	r.joins[c.ID()][room] = struct{}{}
}

func (r *Registry) leaveLocked(connID, room string) {
	if members, ok := r.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if rooms, ok := r.joins[connID]; ok {
		delete(rooms, room)
	}
}

// Leave removes c from room. Leaving a room c is not in is a no-op.
func (r *Registry) Leave(c Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(c.ID(), room)
}

// Disconnect removes c from every room and forgets it. It reports whether c was the last
// live connection of its user. Disconnecting an unknown connection reports false.
func (r *Registry) Disconnect(c Conn) (lastForUser bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.ID()
	if _, ok := r.conns[id]; !ok {
		return false
	}

	for room := range r.joins[id] {
		r.leaveLocked(id, room)
	}
	delete(r.joins, id)
	delete(r.conns, id)

	userConns := r.users[c.UserID()]
	delete(userConns, id)
	if len(userConns) == 0 {
		delete(r.users, c.UserID())
		return true
	}
	return false
}

// EvictUser removes every connection of userID from room.
func (r *Registry) EvictUser(room, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.users[userID] {
		r.leaveLocked(id, room)
	}
}

// Dissolve removes every connection from room.
func (r *Registry) Dissolve(room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.rooms[room] {
		r.leaveLocked(id, room)
	}
}

// MembersOf returns a snapshot of the connections in room. The caller owns the slice.
func (r *Registry) MembersOf(room string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[room]
	if len(members) == 0 {
		return nil
	}

	result := make([]Conn, 0, len(members))
	for _, c := range members {
		result = append(result, c)
	}
	return result
}

// IsMember reports whether c is currently in room.
func (r *Registry) IsMember(c Conn, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[room][c.ID()]
	return ok
}

// RoomsOf returns a snapshot of the rooms c is in.
func (r *Registry) RoomsOf(c Conn) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := r.joins[c.ID()]
	if len(rooms) == 0 {
		return nil
	}

	result := make([]string, 0, len(rooms))
	for room := range rooms {
		result = append(result, room)
	}
	return result
}

// UserConnected reports whether userID has at least one live connection.
func (r *Registry) UserConnected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// All returns a snapshot of every live connection.
func (r *Registry) All() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		result = append(result, c)
	}
	return result
}

// Len returns the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
