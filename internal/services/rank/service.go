package rank

import (
	"context"
	"log/slog"

	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/storage"
)

// Formula decides how much a finished ranked match moves a rating
type Formula interface {
	Delta(current int, won bool) int
}

// FixedFormula moves every rating by the same number of points
type FixedFormula struct {
	Points int
}

// Delta returns +Points for a win and -Points for a loss
func (f FixedFormula) Delta(current int, won bool) int {
	if won {
		return f.Points
	}
	return -f.Points
}

// Config holds configuration for the rank service
type Config struct {
	InitialRating int
	Floor         int
	Formula       Formula
}

// DefaultConfig returns default rank configuration
func DefaultConfig() Config {
	return Config{
		InitialRating: 1000,
		Floor:         0,
		Formula:       FixedFormula{Points: 20},
	}
}

// Service maintains the ranked ladder
type Service struct {
	storage storage.Storage
	cfg     Config
	logger  *slog.Logger
}

// New creates a new rank Service
func New(storage storage.Storage, cfg Config, logger *slog.Logger) *Service {
	if cfg.Formula == nil {
		cfg.Formula = DefaultConfig().Formula
	}
	return &Service{
		storage: storage,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "rank")),
	}
}

// UpdateRank applies the result of one ranked match to one user
func (s *Service) UpdateRank(ctx context.Context, userID model.UserID, won bool) (int, error) {
	current, err := s.GetRating(ctx, userID)
	if err != nil {
		return 0, err
	}

	delta := s.cfg.Formula.Delta(current, won)
	points, err := s.storage.AdjustRating(ctx, storage.RatingChange{
		UserID:  userID,
		Delta:   delta,
		Initial: s.cfg.InitialRating,
		Floor:   s.cfg.Floor,
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("rating updated",
		slog.Int64("user_id", int64(userID)),
		slog.Bool("won", won),
		slog.Int("delta", delta),
		slog.Int("rating", points))
	return points, nil
}

// GetRating returns a user's rating, or the initial rating if they never
// played a ranked match
func (s *Service) GetRating(ctx context.Context, userID model.UserID) (int, error) {
	points, ok, err := s.storage.GetRating(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return s.cfg.InitialRating, nil
	}
	return points, nil
}

// Leaderboard returns the highest rated users
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]model.Rating, error) {
	return s.storage.TopRatings(ctx, limit)
}
