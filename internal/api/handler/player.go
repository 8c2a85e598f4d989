package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/pongmatch-go/internal/api/middleware"
	"github.com/mcoot/pongmatch-go/internal/api/request"
	"github.com/mcoot/pongmatch-go/internal/api/response"
	"github.com/mcoot/pongmatch-go/internal/matchlog"
	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/services/auth"
	"github.com/mcoot/pongmatch-go/internal/services/match"
	"github.com/mcoot/pongmatch-go/internal/services/rank"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	authService *auth.Service
	controller  match.ControllerInterface
	rank        *rank.Service
	matchLogs   matchlog.Gateway
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(authService *auth.Service, controller match.ControllerInterface, rank *rank.Service, matchLogs matchlog.Gateway) *PlayerHandler {
	return &PlayerHandler{
		authService: authService,
		controller:  controller,
		rank:        rank,
		matchLogs:   matchLogs,
	}
}

// CreateGuest handles POST /api/v1/players/guest
func (h *PlayerHandler) CreateGuest(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Nickname == "" {
		WriteError(w, NewInvalidRequestError("nickname is required"))
		return
	}

	session, err := h.authService.CreateGuest(r.Context(), req.Nickname)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AuthResponseFromSession(session))
}

// Register handles POST /api/v1/players/register
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}
	if req.Nickname == "" {
		WriteError(w, NewInvalidRequestError("nickname is required"))
		return
	}

	session, err := h.authService.Register(r.Context(), req.Username, req.Password, req.Nickname)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.AuthResponseFromSession(session))
}

// Login handles POST /api/v1/players/login
func (h *PlayerHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Username == "" {
		WriteError(w, NewInvalidRequestError("username is required"))
		return
	}
	if req.Password == "" {
		WriteError(w, NewInvalidRequestError("password is required"))
		return
	}

	session, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// GetMe handles GET /api/v1/players/me
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	rating, err := h.rank.GetRating(r.Context(), session.User.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MeResponse{
		User:   response.UserFromModel(session.User),
		Rating: rating,
		RoomID: string(session.Player.RoomID()),
	})
}

// Logout handles POST /api/v1/players/logout
// The player is disconnected once their last token is gone.
func (h *PlayerHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	if gone := h.authService.InvalidateSession(session.Token); gone != nil {
		h.controller.HandleDisconnect(gone)
	}

	response.NoContent(w)
}

// Matches handles GET /api/v1/players/{id}/matches
func (h *PlayerHandler) Matches(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		WriteError(w, NewInvalidRequestError("invalid user id"))
		return
	}

	limit, err := parseLimit(r, defaultHistoryLimit, maxHistoryLimit)
	if err != nil {
		WriteError(w, err)
		return
	}

	records, err := h.matchLogs.ListMatches(r.Context(), model.UserID(id), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	matches := make([]response.MatchRecord, 0, len(records))
	for _, rec := range records {
		matches = append(matches, response.MatchRecordFromLog(rec))
	}
	response.JSON(w, http.StatusOK, response.MatchHistoryResponse{Matches: matches})
}

func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, NewInvalidRequestError("limit must be a positive integer")
	}
	return min(limit, maxLimit), nil
}
