// Package storagetest holds the behaviour every storage backend must share
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/storage"
)

// StorageSuite runs against whatever NewStorage returns
type StorageSuite struct {
	suite.Suite
	NewStorage func() storage.Storage

	Storage storage.Storage
	ctx     context.Context
	now     time.Time
}

func (s *StorageSuite) SetupTest() {
	s.Storage = s.NewStorage()
	s.ctx = context.Background()
	s.now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// User tests

func (s *StorageSuite) TestNextUserIDIsSequential() {
	first, err := s.Storage.NextUserID(s.ctx)
	s.Require().NoError(err)
	second, err := s.Storage.NextUserID(s.ctx)
	s.Require().NoError(err)

	s.Positive(int64(first))
	s.Equal(first+1, second)
}

func (s *StorageSuite) TestSaveAndGetUser() {
	user := &model.User{ID: 7, Nickname: "Alice", IsGuest: true, CreatedAt: s.now}

	s.Require().NoError(s.Storage.SaveUser(s.ctx, user))

	retrieved, err := s.Storage.GetUser(s.ctx, 7)
	s.Require().NoError(err)
	s.Equal(user.ID, retrieved.ID)
	s.Equal("Alice", retrieved.Nickname)
	s.True(retrieved.IsGuest)
}

func (s *StorageSuite) TestGetUserNotFound() {
	_, err := s.Storage.GetUser(s.ctx, 404)
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *StorageSuite) TestDeleteUser() {
	_ = s.Storage.SaveUser(s.ctx, &model.User{ID: 7, Nickname: "Alice"})

	s.Require().NoError(s.Storage.DeleteUser(s.ctx, 7))

	_, err := s.Storage.GetUser(s.ctx, 7)
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Registered user tests

func (s *StorageSuite) TestSaveAndGetRegisteredUser() {
	ru := &model.RegisteredUser{UserID: 7, Username: "alice", PasswordHash: "hash", CreatedAt: s.now, UpdatedAt: s.now}

	s.Require().NoError(s.Storage.SaveRegisteredUser(s.ctx, ru))

	byID, err := s.Storage.GetRegisteredUser(s.ctx, 7)
	s.Require().NoError(err)
	s.Equal("alice", byID.Username)

	byName, err := s.Storage.GetRegisteredUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.UserID(7), byName.UserID)
	s.Equal("hash", byName.PasswordHash)
}

func (s *StorageSuite) TestGetRegisteredUserNotFound() {
	_, err := s.Storage.GetRegisteredUser(s.ctx, 404)
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.Storage.GetRegisteredUserByUsername(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Invitation tests

func (s *StorageSuite) invitation(id model.InvitationID, inviter, invitee model.UserID, createdAt time.Time) *model.Invitation {
	return &model.Invitation{
		ID:        id,
		InviterID: inviter,
		InviteeID: invitee,
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(time.Minute),
	}
}

func (s *StorageSuite) TestSaveAndGetInvitation() {
	inv := s.invitation("inv-1", 10, 20, s.now)
	s.Require().NoError(s.Storage.SaveInvitation(s.ctx, inv))

	retrieved, err := s.Storage.GetInvitation(s.ctx, "inv-1")
	s.Require().NoError(err)
	s.Equal(model.UserID(10), retrieved.InviterID)
	s.Equal(model.UserID(20), retrieved.InviteeID)
	s.True(inv.ExpiresAt.Equal(retrieved.ExpiresAt))
}

func (s *StorageSuite) TestGetInvitationNotFound() {
	_, err := s.Storage.GetInvitation(s.ctx, "nope")
	s.ErrorIs(err, model.ErrInvitationNotFound)
}

func (s *StorageSuite) TestDeleteInvitation() {
	_ = s.Storage.SaveInvitation(s.ctx, s.invitation("inv-1", 10, 20, s.now))

	s.Require().NoError(s.Storage.DeleteInvitation(s.ctx, "inv-1"))
	s.Require().NoError(s.Storage.DeleteInvitation(s.ctx, "inv-1"))

	_, err := s.Storage.GetInvitation(s.ctx, "inv-1")
	s.ErrorIs(err, model.ErrInvitationNotFound)
	list, err := s.Storage.ListInvitationsFor(s.ctx, 20)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *StorageSuite) TestListInvitationsForOldestFirst() {
	_ = s.Storage.SaveInvitation(s.ctx, s.invitation("inv-2", 11, 20, s.now.Add(time.Second)))
	_ = s.Storage.SaveInvitation(s.ctx, s.invitation("inv-1", 10, 20, s.now))
	_ = s.Storage.SaveInvitation(s.ctx, s.invitation("inv-3", 10, 30, s.now))

	list, err := s.Storage.ListInvitationsFor(s.ctx, 20)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(model.InvitationID("inv-1"), list[0].ID)
	s.Equal(model.InvitationID("inv-2"), list[1].ID)
}

func (s *StorageSuite) TestDeleteExpiredInvitations() {
	_ = s.Storage.SaveInvitation(s.ctx, s.invitation("old", 10, 20, s.now.Add(-time.Hour)))
	_ = s.Storage.SaveInvitation(s.ctx, s.invitation("fresh", 10, 20, s.now))

	removed, err := s.Storage.DeleteExpiredInvitations(s.ctx, s.now)
	s.Require().NoError(err)
	s.Equal(1, removed)

	_, err = s.Storage.GetInvitation(s.ctx, "old")
	s.ErrorIs(err, model.ErrInvitationNotFound)
	_, err = s.Storage.GetInvitation(s.ctx, "fresh")
	s.NoError(err)
}

// Rating tests

func (s *StorageSuite) TestAdjustRatingStartsFromInitial() {
	points, err := s.Storage.AdjustRating(s.ctx, storage.RatingChange{UserID: 10, Delta: 20, Initial: 1000})
	s.Require().NoError(err)
	s.Equal(1020, points)

	points, err = s.Storage.AdjustRating(s.ctx, storage.RatingChange{UserID: 10, Delta: -5, Initial: 1000})
	s.Require().NoError(err)
	s.Equal(1015, points)

	stored, ok, err := s.Storage.GetRating(s.ctx, 10)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(1015, stored)
}

func (s *StorageSuite) TestAdjustRatingRespectsFloor() {
	points, err := s.Storage.AdjustRating(s.ctx, storage.RatingChange{UserID: 10, Delta: -20, Initial: 10, Floor: 0})
	s.Require().NoError(err)
	s.Equal(0, points)
}

func (s *StorageSuite) TestGetRatingMissing() {
	_, ok, err := s.Storage.GetRating(s.ctx, 404)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StorageSuite) TestTopRatings() {
	_, _ = s.Storage.AdjustRating(s.ctx, storage.RatingChange{UserID: 1, Delta: 10})
	_, _ = s.Storage.AdjustRating(s.ctx, storage.RatingChange{UserID: 2, Delta: 30})
	_, _ = s.Storage.AdjustRating(s.ctx, storage.RatingChange{UserID: 3, Delta: 20})

	top, err := s.Storage.TopRatings(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal([]model.Rating{{UserID: 2, Points: 30}, {UserID: 3, Points: 20}}, top)

	all, err := s.Storage.TopRatings(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(all, 3)
}
