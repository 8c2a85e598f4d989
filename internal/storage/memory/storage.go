package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	lastUserID      model.UserID
	users           map[model.UserID]*model.User
	registeredUsers map[model.UserID]*model.RegisteredUser
	usernameIndex   map[string]model.UserID
	invitations     map[model.InvitationID]*model.Invitation
	ratings         map[model.UserID]int
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:           make(map[model.UserID]*model.User),
		registeredUsers: make(map[model.UserID]*model.RegisteredUser),
		usernameIndex:   make(map[string]model.UserID),
		invitations:     make(map[model.InvitationID]*model.Invitation),
		ratings:         make(map[model.UserID]int),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) NextUserID(ctx context.Context) (model.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUserID++
	return s.lastUserID, nil
}

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return user, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

// Registered user operations

func (s *Storage) SaveRegisteredUser(ctx context.Context, ru *model.RegisteredUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registeredUsers[ru.UserID] = ru
	s.usernameIndex[ru.Username] = ru.UserID
	return nil
}

func (s *Storage) GetRegisteredUser(ctx context.Context, userID model.UserID) (*model.RegisteredUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ru, ok := s.registeredUsers[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return ru, nil
}

func (s *Storage) GetRegisteredUserByUsername(ctx context.Context, username string) (*model.RegisteredUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	ru, ok := s.registeredUsers[userID]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return ru, nil
}

// Invitation operations

func (s *Storage) SaveInvitation(ctx context.Context, inv *model.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invitations[inv.ID] = inv
	return nil
}

func (s *Storage) GetInvitation(ctx context.Context, id model.InvitationID) (*model.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invitations[id]
	if !ok {
		return nil, model.ErrInvitationNotFound
	}
	return inv, nil
}

func (s *Storage) DeleteInvitation(ctx context.Context, id model.InvitationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.invitations, id)
	return nil
}

func (s *Storage) ListInvitationsFor(ctx context.Context, inviteeID model.UserID) ([]*model.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Invitation
	for _, inv := range s.invitations {
		if inv.InviteeID == inviteeID {
			result = append(result, inv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Storage) DeleteExpiredInvitations(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, inv := range s.invitations {
		if inv.IsExpired(now) {
			delete(s.invitations, id)
			removed++
		}
	}
	return removed, nil
}

// Rating operations

func (s *Storage) AdjustRating(ctx context.Context, change storage.RatingChange) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.ratings[change.UserID]
	next := change.Apply(current, ok)
	s.ratings[change.UserID] = next
	return next, nil
}

func (s *Storage) GetRating(ctx context.Context, userID model.UserID) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	points, ok := s.ratings[userID]
	return points, ok, nil
}

func (s *Storage) TopRatings(ctx context.Context, limit int) ([]model.Rating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ratings := make([]model.Rating, 0, len(s.ratings))
	for userID, points := range s.ratings {
		ratings = append(ratings, model.Rating{UserID: userID, Points: points})
	}
	// Highest first, lower user ID wins ties
	sort.Slice(ratings, func(i, j int) bool {
		if ratings[i].Points != ratings[j].Points {
			return ratings[i].Points > ratings[j].Points
		}
		return ratings[i].UserID < ratings[j].UserID
	})
	if limit > 0 && len(ratings) > limit {
		ratings = ratings[:limit]
	}
	return ratings, nil
}
