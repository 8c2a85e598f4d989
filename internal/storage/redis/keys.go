package redis

import (
	"fmt"

	"github.com/mcoot/pongmatch-go/internal/model"
)

// Key prefix for all pong-related data
const keyPrefix = "pong"

// Key generation functions for each entity type

// userSeqKey returns the Redis key for the user ID counter
func userSeqKey() string {
	return fmt.Sprintf("%s:seq:user", keyPrefix)
}

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%d", keyPrefix, id)
}

// registeredUserKey returns the Redis key for a RegisteredUser
func registeredUserKey(userID model.UserID) string {
	return fmt.Sprintf("%s:registered_user:%d", keyPrefix, userID)
}

// usernameIndexKey returns the Redis key for the username -> user_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// invitationKey returns the Redis key for an Invitation
func invitationKey(id model.InvitationID) string {
	return fmt.Sprintf("%s:invitation:%s", keyPrefix, id)
}

// invitationsForIndexKey returns the Redis key for the SET of invitations sent to a user
func invitationsForIndexKey(inviteeID model.UserID) string {
	return fmt.Sprintf("%s:idx:invitations_for:%d", keyPrefix, inviteeID)
}

// invitationsIndexKey returns the Redis key for the SET of all invitation IDs
func invitationsIndexKey() string {
	return fmt.Sprintf("%s:idx:invitations", keyPrefix)
}

// ratingsKey returns the Redis key for the ratings sorted set
func ratingsKey() string {
	return fmt.Sprintf("%s:ratings", keyPrefix)
}
