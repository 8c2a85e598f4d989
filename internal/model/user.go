package model

import (
	"sync"
	"time"
)

// UserID is the persistent sequence number of a user
type UserID int64

// SessionID identifies a single connected session
type SessionID string

// User represents a platform user
type User struct {
	ID        UserID
	Nickname  string
	IsGuest   bool // true for unregistered users
	CreatedAt time.Time
}

// RegisteredUser extends User with authentication data
// Stored separately so the password hash never travels with a session
type RegisteredUser struct {
	UserID       UserID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session identifies a connected player.
// The connection layer owns it; the match core only reads and writes the room ID.
type Session struct {
	ID       SessionID
	UserID   UserID
	Nickname string

	mu     sync.RWMutex
	roomID RoomID
}

// NewSession creates a session that is not in any room
func NewSession(id SessionID, userID UserID, nickname string) *Session {
	return &Session{
		ID:       id,
		UserID:   userID,
		Nickname: nickname,
	}
}

// RoomID returns the room the session is playing in, or "" if none
func (s *Session) RoomID() RoomID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID
}

// SetRoomID records the room the session was matched into
func (s *Session) SetRoomID(roomID RoomID) {
	s.mu.Lock()
	s.roomID = roomID
	s.mu.Unlock()
}

// ClearRoomID clears the room only if it still points at roomID.
// Returns false when the session has already moved on.
func (s *Session) ClearRoomID(roomID RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roomID != roomID {
		return false
	}
	s.roomID = ""
	return true
}

// InMatch returns true if the session is currently assigned to a room
func (s *Session) InMatch() bool {
	return s.RoomID() != ""
}

// Player returns the immutable player snapshot stored in match metadata
func (s *Session) Player() Player {
	return Player{
		SessionID: s.ID,
		UserID:    s.UserID,
		Nickname:  s.Nickname,
	}
}

// Player is a point-in-time snapshot of a session taken at match creation
type Player struct {
	SessionID SessionID
	UserID    UserID
	Nickname  string
}
