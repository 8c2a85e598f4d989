package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/pongmatch-go/internal/api/middleware"
	"github.com/mcoot/pongmatch-go/internal/api/request"
	"github.com/mcoot/pongmatch-go/internal/api/response"
	"github.com/mcoot/pongmatch-go/internal/events"
	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/services/match"
)

// InvitationHandler handles direct challenge endpoints
type InvitationHandler struct {
	controller match.ControllerInterface
}

// NewInvitationHandler creates a new invitation handler
func NewInvitationHandler(controller match.ControllerInterface) *InvitationHandler {
	return &InvitationHandler{controller: controller}
}

// Create handles POST /api/v1/invitations
func (h *InvitationHandler) Create(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.InviteRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.UserID == 0 {
		WriteError(w, NewInvalidRequestError("user_id is required"))
		return
	}

	inv, err := h.controller.CreateInvitation(r.Context(), player, model.UserID(req.UserID))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, events.InvitationFromModel(inv))
}

// List handles GET /api/v1/invitations
func (h *InvitationHandler) List(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	invs, err := h.controller.ListInvitations(r.Context(), player.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.InvitationsFromModel(invs))
}

// Accept handles POST /api/v1/invitations/{id}/accept
func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())
	id := model.InvitationID(mux.Vars(r)["id"])

	game, err := h.controller.HandleAcceptInvite(r.Context(), id, player)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, events.GameFromModel(game))
}
