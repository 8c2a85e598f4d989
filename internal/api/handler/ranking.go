package handler

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/pongmatch-go/internal/api/response"
	"github.com/mcoot/pongmatch-go/internal/services/rank"
	"github.com/mcoot/pongmatch-go/internal/storage"
)

const (
	defaultRankingLimit = 10
	maxRankingLimit     = 100
)

// RankingHandler serves the ranked ladder
type RankingHandler struct {
	rank    *rank.Service
	storage storage.Storage
	logger  *slog.Logger
}

// NewRankingHandler creates a new ranking handler
func NewRankingHandler(rank *rank.Service, storage storage.Storage, logger *slog.Logger) *RankingHandler {
	return &RankingHandler{
		rank:    rank,
		storage: storage,
		logger:  logger,
	}
}

// List handles GET /api/v1/rankings
func (h *RankingHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, defaultRankingLimit, maxRankingLimit)
	if err != nil {
		WriteError(w, err)
		return
	}

	ratings, err := h.rank.Leaderboard(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	rankings := make([]response.Ranking, 0, len(ratings))
	for i, rating := range ratings {
		row := response.Ranking{
			Position: i + 1,
			UserID:   int64(rating.UserID),
			Rating:   rating.Points,
		}
		if user, err := h.storage.GetUser(r.Context(), rating.UserID); err == nil {
			row.Nickname = user.Nickname
		} else {
			h.logger.Warn("ranked user not found",
				slog.Int64("user_id", int64(rating.UserID)),
				slog.String("error", err.Error()))
		}
		rankings = append(rankings, row)
	}

	response.JSON(w, http.StatusOK, response.RankingsResponse{Rankings: rankings})
}
