package storage

import (
	"context"
	"time"

	"github.com/mcoot/pongmatch-go/internal/model"
)

// RatingChange describes one adjustment of a user's rating.
// A user without a rating starts at Initial; the result never drops below Floor.
type RatingChange struct {
	UserID  model.UserID
	Delta   int
	Initial int
	Floor   int
}

// Apply returns the new rating given the current one
func (c RatingChange) Apply(current int, exists bool) int {
	if !exists {
		current = c.Initial
	}
	next := current + c.Delta
	if next < c.Floor {
		next = c.Floor
	}
	return next
}

// Storage defines the interface for data persistence
type Storage interface {
	// User operations
	NextUserID(ctx context.Context) (model.UserID, error)
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	DeleteUser(ctx context.Context, id model.UserID) error

	// Registered user operations
	SaveRegisteredUser(ctx context.Context, ru *model.RegisteredUser) error
	GetRegisteredUser(ctx context.Context, userID model.UserID) (*model.RegisteredUser, error)
	GetRegisteredUserByUsername(ctx context.Context, username string) (*model.RegisteredUser, error)

	// Invitation operations
	SaveInvitation(ctx context.Context, inv *model.Invitation) error
	GetInvitation(ctx context.Context, id model.InvitationID) (*model.Invitation, error)
	DeleteInvitation(ctx context.Context, id model.InvitationID) error
	ListInvitationsFor(ctx context.Context, inviteeID model.UserID) ([]*model.Invitation, error)
	DeleteExpiredInvitations(ctx context.Context, now time.Time) (int, error)

	// Rating operations
	AdjustRating(ctx context.Context, change RatingChange) (int, error)
	GetRating(ctx context.Context, userID model.UserID) (points int, ok bool, err error)
	TopRatings(ctx context.Context, limit int) ([]model.Rating, error)
}
