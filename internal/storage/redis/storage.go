package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/storage"
)

// adjustRatingScript applies a rating change atomically.
// KEYS[1] ratings zset; ARGV: member, delta, initial, floor.
var adjustRatingScript = redis.NewScript(`
local current = redis.call('ZSCORE', KEYS[1], ARGV[1])
if current then
	current = tonumber(current)
else
	current = tonumber(ARGV[3])
end
local nextScore = current + tonumber(ARGV[2])
if nextScore < tonumber(ARGV[4]) then
	nextScore = tonumber(ARGV[4])
end
redis.call('ZADD', KEYS[1], nextScore, ARGV[1])
return nextScore
`)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) NextUserID(ctx context.Context) (model.UserID, error) {
	id, err := s.client.Incr(ctx, userSeqKey()).Result()
	if err != nil {
		return 0, err
	}
	return model.UserID(id), nil
}

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	// Apply TTL only for guest users
	var ttl time.Duration
	if user.IsGuest {
		ttl = s.cfg.GuestUserTTL
	}
	return s.client.Set(ctx, userKey(user.ID), data, ttl).Err()
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	data, err := s.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	return s.client.Del(ctx, userKey(id)).Err()
}

// Registered user operations

func (s *Storage) SaveRegisteredUser(ctx context.Context, ru *model.RegisteredUser) error {
	data, err := json.Marshal(ru)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, registeredUserKey(ru.UserID), data, 0) // No TTL
	pipe.Set(ctx, usernameIndexKey(ru.Username), strconv.FormatInt(int64(ru.UserID), 10), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRegisteredUser(ctx context.Context, userID model.UserID) (*model.RegisteredUser, error) {
	data, err := s.client.Get(ctx, registeredUserKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var ru model.RegisteredUser
	if err := json.Unmarshal(data, &ru); err != nil {
		return nil, err
	}
	return &ru, nil
}

func (s *Storage) GetRegisteredUserByUsername(ctx context.Context, username string) (*model.RegisteredUser, error) {
	// Look up user ID from username index
	userID, err := s.client.Get(ctx, usernameIndexKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetRegisteredUser(ctx, model.UserID(userID))
}

// Invitation operations

func (s *Storage) SaveInvitation(ctx context.Context, inv *model.Invitation) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, invitationKey(inv.ID), data, 0)
	pipe.SAdd(ctx, invitationsIndexKey(), string(inv.ID))
	pipe.SAdd(ctx, invitationsForIndexKey(inv.InviteeID), string(inv.ID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetInvitation(ctx context.Context, id model.InvitationID) (*model.Invitation, error) {
	data, err := s.client.Get(ctx, invitationKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrInvitationNotFound
		}
		return nil, err
	}

	var inv model.Invitation
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Storage) DeleteInvitation(ctx context.Context, id model.InvitationID) error {
	inv, err := s.GetInvitation(ctx, id)
	if errors.Is(err, model.ErrInvitationNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, invitationKey(id))
	pipe.SRem(ctx, invitationsIndexKey(), string(id))
	pipe.SRem(ctx, invitationsForIndexKey(inv.InviteeID), string(id))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) ListInvitationsFor(ctx context.Context, inviteeID model.UserID) ([]*model.Invitation, error) {
	ids, err := s.client.SMembers(ctx, invitationsForIndexKey(inviteeID)).Result()
	if err != nil {
		return nil, err
	}
	invitations, err := s.getInvitations(ctx, ids)
	if err != nil {
		return nil, err
	}

	// SMEMBERS has no order
	sort.Slice(invitations, func(i, j int) bool {
		return invitations[i].CreatedAt.Before(invitations[j].CreatedAt)
	})
	return invitations, nil
}

func (s *Storage) DeleteExpiredInvitations(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.client.SMembers(ctx, invitationsIndexKey()).Result()
	if err != nil {
		return 0, err
	}
	invitations, err := s.getInvitations(ctx, ids)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, inv := range invitations {
		if !inv.IsExpired(now) {
			continue
		}
		if err := s.DeleteInvitation(ctx, inv.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (s *Storage) getInvitations(ctx context.Context, ids []string) ([]*model.Invitation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = invitationKey(model.InvitationID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	invitations := make([]*model.Invitation, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			// Deleted between SMEMBERS and MGET
			continue
		}
		var inv model.Invitation
		if err := json.Unmarshal([]byte(str), &inv); err != nil {
			return nil, err
		}
		invitations = append(invitations, &inv)
	}
	return invitations, nil
}

// Rating operations

func (s *Storage) AdjustRating(ctx context.Context, change storage.RatingChange) (int, error) {
	next, err := adjustRatingScript.Run(ctx, s.client,
		[]string{ratingsKey()},
		strconv.FormatInt(int64(change.UserID), 10),
		change.Delta,
		change.Initial,
		change.Floor,
	).Int()
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Storage) GetRating(ctx context.Context, userID model.UserID) (int, bool, error) {
	score, err := s.client.ZScore(ctx, ratingsKey(), strconv.FormatInt(int64(userID), 10)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return int(score), true, nil
}

func (s *Storage) TopRatings(ctx context.Context, limit int) ([]model.Rating, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	entries, err := s.client.ZRevRangeWithScores(ctx, ratingsKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	ratings := make([]model.Rating, 0, len(entries))
	for _, e := range entries {
		member, _ := e.Member.(string)
		userID, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, model.Rating{UserID: model.UserID(userID), Points: int(e.Score)})
	}
	return ratings, nil
}
