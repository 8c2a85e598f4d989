package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/pongmatch-go/internal/api/middleware"
	"github.com/mcoot/pongmatch-go/internal/api/response"
	"github.com/mcoot/pongmatch-go/internal/events"
	"github.com/mcoot/pongmatch-go/internal/gateway"
	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/services/match"
	"github.com/mcoot/pongmatch-go/internal/sse"
)

// RoomHandler serves active rooms to spectators and the player sockets
type RoomHandler struct {
	controller match.ControllerInterface
	hubManager *sse.HubManager
	gateway    *gateway.Gateway
	logger     *slog.Logger
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(controller match.ControllerInterface, hubManager *sse.HubManager, gw *gateway.Gateway, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{
		controller: controller,
		hubManager: hubManager,
		gateway:    gw,
		logger:     logger,
	}
}

// List handles GET /api/v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	ids := h.controller.ActiveRooms()
	rooms := make([]string, 0, len(ids))
	for _, id := range ids {
		rooms = append(rooms, string(id))
	}
	response.JSON(w, http.StatusOK, response.RoomsResponse{Rooms: rooms})
}

// Get handles GET /api/v1/rooms/{room_id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	roomID := model.RoomID(mux.Vars(r)["room_id"])

	game, err := h.controller.Snapshot(roomID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, events.GameFromModel(game))
}

// Events handles GET /api/v1/rooms/{room_id}/events
// Streams the room's events as SSE, starting with a snapshot.
func (h *RoomHandler) Events(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())
	roomID := model.RoomID(mux.Vars(r)["room_id"])

	game, err := h.controller.Snapshot(roomID)
	if err != nil {
		WriteError(w, err)
		return
	}

	snapshot, err := json.Marshal(events.GameFromModel(game))
	if err != nil {
		h.logger.Error("failed to encode snapshot",
			slog.String("room_id", string(roomID)),
			slog.String("error", err.Error()))
		WriteError(w, err)
		return
	}

	hub := h.hubManager.GetOrCreateHub(roomID)
	sse.ServeSSE(w, r, hub, session.User.Nickname, snapshot)
}

// Socket handles GET /api/v1/ws
func (h *RoomHandler) Socket(w http.ResponseWriter, r *http.Request) {
	h.gateway.ServeWS(w, r, middleware.MustGetPlayer(r.Context()))
}
