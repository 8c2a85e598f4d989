package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/pongmatch-go/internal/dependencies/clock"
	"github.com/mcoot/pongmatch-go/internal/dependencies/random"
	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUsernameExists     = errors.New("username already exists")
)

// Session represents an authenticated bearer token.
// Every token of the same user shares one Player session, which is what
// the match core reads and writes the room assignment on.
type Session struct {
	Token     string
	User      model.User
	Player    *model.Session
	CreatedAt time.Time
	ExpiresAt time.Time
}

type playerEntry struct {
	session *model.Session
	tokens  int
}

// Service handles authentication and session management
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	players  map[model.UserID]*playerEntry

	sessionDuration time.Duration
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
	}
}

// New creates a new AuthService
func New(storage storage.Storage, clock clock.Clock, random random.Random, cfg Config, logger *slog.Logger) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		storage:         storage,
		clock:           clock,
		random:          random,
		logger:          logger.With(slog.String("component", "auth")),
		sessions:        make(map[string]*Session),
		players:         make(map[model.UserID]*playerEntry),
		sessionDuration: cfg.SessionDuration,
	}
}

// CreateGuest creates an anonymous user and session
func (s *Service) CreateGuest(ctx context.Context, nickname string) (*Session, error) {
	userID, err := s.storage.NextUserID(ctx)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:        userID,
		Nickname:  nickname,
		IsGuest:   true,
		CreatedAt: s.clock.Now(),
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	return s.createSession(user), nil
}

// Register creates a registered user account and session
func (s *Service) Register(ctx context.Context, username, password, nickname string) (*Session, error) {
	// Check if username exists
	_, err := s.storage.GetRegisteredUserByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, err
	}

	// Hash password
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	userID, err := s.storage.NextUserID(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()

	user := &model.User{
		ID:        userID,
		Nickname:  nickname,
		IsGuest:   false,
		CreatedAt: now,
	}

	registered := &model.RegisteredUser{
		UserID:       userID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.storage.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	if err := s.storage.SaveRegisteredUser(ctx, registered); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.Int64("user_id", int64(userID)),
		slog.String("username", username))
	return s.createSession(user), nil
}

// Login authenticates a registered user and creates a session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	ru, err := s.storage.GetRegisteredUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(ru.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.storage.GetUser(ctx, ru.UserID)
	if err != nil {
		return nil, err
	}

	return s.createSession(user), nil
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.InvalidateSession(token)
		return nil, ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session.
// Returns the player session if this was the user's last token.
func (s *Service) InvalidateSession(token string) *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(token)
}

// SessionForUser returns the live player session of a user
func (s *Service) SessionForUser(userID model.UserID) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.players[userID]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return entry.session, nil
}

// OnlineCount returns the number of users with at least one live token
func (s *Service) OnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// createSession creates a new token for a user, joining the user's
// existing player session if there is one
func (s *Service) createSession(user *model.User) *Session {
	token := s.random.Token("sess_")
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.players[user.ID]
	if !ok {
		entry = &playerEntry{
			session: model.NewSession(model.SessionID(s.random.Token("ps_")), user.ID, user.Nickname),
		}
		s.players[user.ID] = entry
	}
	entry.tokens++

	session := &Session{
		Token:     token,
		User:      *user,
		Player:    entry.session,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}
	s.sessions[token] = session
	return session
}

func (s *Service) removeLocked(token string) *model.Session {
	session, ok := s.sessions[token]
	if !ok {
		return nil
	}
	delete(s.sessions, token)

	entry, ok := s.players[session.User.ID]
	if !ok {
		return nil
	}
	entry.tokens--
	if entry.tokens > 0 {
		return nil
	}
	delete(s.players, session.User.ID)
	return entry.session
}

// CleanExpiredSessions removes expired sessions (call periodically).
// Returns the player sessions that no longer have any token.
func (s *Service) CleanExpiredSessions() []*model.Session {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var gone []*model.Session
	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			if player := s.removeLocked(token); player != nil {
				gone = append(gone, player)
			}
		}
	}
	if len(gone) > 0 {
		s.logger.Info("expired sessions cleaned", slog.Int("players_gone", len(gone)))
	}
	return gone
}
