package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")

	// Rule errors
	ErrInvalidRule      = errors.New("invalid rule")
	ErrInvalidDirection = errors.New("invalid paddle direction")

	// Match errors
	ErrAlreadyInMatch = errors.New("user is already in a match")
	ErrNotInMatch     = errors.New("user is not in a match")
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomExists     = errors.New("room already exists")
	ErrMatchStarted   = errors.New("match has already started")
	ErrCannotPlaySelf = errors.New("cannot play against yourself")
	ErrAlreadyRunning = errors.New("room is already running")

	// Invitation errors
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrNotInvitee         = errors.New("user is not the invitee")

	// Match log errors
	ErrMatchLogNotFound  = errors.New("match log not found")
	ErrMatchLogFinalized = errors.New("match log already finalized with a different outcome")
)
