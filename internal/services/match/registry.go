package match

import (
	"sort"
	"sync"

	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/services/simulation"
)

type entry struct {
	room    *simulation.Room
	players [2]*model.Session // Blue then red
}

// Registry tracks the active rooms and which user is playing in which room
type Registry struct {
	mu        sync.RWMutex
	rooms     map[model.RoomID]*entry
	userRooms map[model.UserID]model.RoomID
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		rooms:     make(map[model.RoomID]*entry),
		userRooms: make(map[model.UserID]model.RoomID),
	}
}

// Add registers a room and its two players
func (r *Registry) Add(room *simulation.Room, blue, red *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room.ID()]; ok {
		return model.ErrRoomExists
	}
	for _, s := range []*model.Session{blue, red} {
		if _, ok := r.userRooms[s.UserID]; ok {
			return model.ErrAlreadyInMatch
		}
	}

	r.rooms[room.ID()] = &entry{room: room, players: [2]*model.Session{blue, red}}
	r.userRooms[blue.UserID] = room.ID()
	r.userRooms[red.UserID] = room.ID()
	return nil
}

// Get returns a room by ID
func (r *Registry) Get(roomID model.RoomID) (*simulation.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.rooms[roomID]
	if !ok {
		return nil, false
	}
	return e.room, true
}

// RoomOf returns the room a user is playing in
func (r *Registry) RoomOf(userID model.UserID) (*simulation.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.userRooms[userID]
	if !ok {
		return nil, false
	}
	return r.rooms[roomID].room, true
}

// Has returns true if the room ID is in use
func (r *Registry) Has(roomID model.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID]
	return ok
}

// Remove unregisters a room and returns it with its players.
// Only the first call for a room succeeds.
func (r *Registry) Remove(roomID model.RoomID) (*simulation.Room, [2]*model.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[roomID]
	if !ok {
		return nil, [2]*model.Session{}, false
	}
	delete(r.rooms, roomID)
	for _, s := range e.players {
		if r.userRooms[s.UserID] == roomID {
			delete(r.userRooms, s.UserID)
		}
	}
	return e.room, e.players, true
}

// IDs returns the IDs of every active room, sorted
func (r *Registry) IDs() []model.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]model.RoomID, 0, len(r.rooms))
	for id := range r.rooms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of active rooms
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
