package handler

import (
	"net/http"

	"github.com/mcoot/pongmatch-go/internal/api/middleware"
	"github.com/mcoot/pongmatch-go/internal/api/request"
	"github.com/mcoot/pongmatch-go/internal/api/response"
	"github.com/mcoot/pongmatch-go/internal/events"
	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/services/match"
)

// MatchHandler handles queue and in-match endpoints
type MatchHandler struct {
	controller match.ControllerInterface
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(controller match.ControllerInterface) *MatchHandler {
	return &MatchHandler{controller: controller}
}

// Enqueue handles POST /api/v1/queue
func (h *MatchHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req events.RuleRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.controller.HandleEnqueue(r.Context(), player, req.ToModel()); err != nil {
		WriteError(w, err)
		return
	}

	// The enqueue may have paired us straight away
	roomID := player.RoomID()
	if roomID != "" {
		response.JSON(w, http.StatusOK, response.QueueResponse{Queued: false, RoomID: string(roomID)})
		return
	}
	response.JSON(w, http.StatusAccepted, response.QueueResponse{Queued: true})
}

// Dequeue handles DELETE /api/v1/queue
func (h *MatchHandler) Dequeue(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req events.RuleRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	removed := h.controller.HandleDequeue(player, req.ToModel())
	response.JSON(w, http.StatusOK, response.DequeueResponse{Removed: removed})
}

// Get handles GET /api/v1/match
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	game, err := h.controller.MatchOf(player.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, events.GameFromModel(game))
}

// Paddle handles POST /api/v1/match/paddle
func (h *MatchHandler) Paddle(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.PaddleRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Direction == nil {
		WriteError(w, NewInvalidRequestError("direction is required"))
		return
	}

	if err := h.controller.HandlePaddle(player.RoomID(), player.UserID, model.Direction(*req.Direction)); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Ready handles POST /api/v1/match/ready
func (h *MatchHandler) Ready(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.ReadyRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	isReady := true
	if req.IsReady != nil {
		isReady = *req.IsReady
	}

	if err := h.controller.HandleReady(player.UserID, isReady); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Rule handles PATCH /api/v1/match/rule
func (h *MatchHandler) Rule(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req events.RulePatch
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	rule, err := h.controller.HandleRule(player.UserID, req.ToModel())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, events.RuleFromModel(rule))
}

// Abandon handles POST /api/v1/match/abandon
func (h *MatchHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	if err := h.controller.Abandon(player.UserID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}
