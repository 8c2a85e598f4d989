package model

import "time"

// InvitationID identifies a direct match invitation
type InvitationID string

// Invitation is a pending direct challenge from one user to another
type Invitation struct {
	ID        InvitationID
	InviterID UserID
	InviteeID UserID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired returns true if the invitation can no longer be accepted
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
