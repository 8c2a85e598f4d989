package gateway

import (
	"context"
	"fmt"

	"github.com/mcoot/pongmatch-go/internal/api/apierr"
	"github.com/mcoot/pongmatch-go/internal/events"
	"github.com/mcoot/pongmatch-go/internal/model"
)

// Command types accepted from clients
const (
	CommandEnqueue      = "enqueue"
	CommandDequeue      = "dequeue"
	CommandPaddle       = "paddle"
	CommandReady        = "ready"
	CommandRule         = "rule"
	CommandWatch        = "watch"
	CommandUnwatch      = "unwatch"
	CommandInvite       = "invite"
	CommandAcceptInvite = "accept_invite"
	CommandAbandon      = "abandon"
)

// Reply types sent back for commands
const (
	ReplyAck   = "ack"
	ReplyError = "error"
)

// Command is one inbound client message
type Command struct {
	Type         string              `json:"type"`
	Rule         *events.RuleRequest `json:"rule,omitempty"`
	Patch        *events.RulePatch   `json:"patch,omitempty"`
	Direction    *int                `json:"direction,omitempty"`
	IsReady      *bool               `json:"is_ready,omitempty"`
	RoomID       string              `json:"room_id,omitempty"`
	UserID       int64               `json:"user_id,omitempty"`
	InvitationID string              `json:"invitation_id,omitempty"`
}

// Reply answers a single command
type Reply struct {
	Type    string           `json:"type"`
	Command string           `json:"command,omitempty"`
	Data    any              `json:"data,omitempty"`
	Error   *apierr.APIError `json:"error,omitempty"`
}

func errorReply(command string, err error) Reply {
	_, apiError := apierr.Lookup(err)
	return Reply{Type: ReplyError, Command: command, Error: &apiError}
}

// handle runs one command and returns the data to acknowledge it with
func (g *Gateway) handle(ctx context.Context, c *Conn, cmd Command) (any, error) {
	session := c.session

	switch cmd.Type {
	case CommandEnqueue:
		rule := events.RuleRequest{}.ToModel()
		if cmd.Rule != nil {
			rule = cmd.Rule.ToModel()
		}
		return nil, g.controller.HandleEnqueue(ctx, session, rule)

	case CommandDequeue:
		rule := events.RuleRequest{}.ToModel()
		if cmd.Rule != nil {
			rule = cmd.Rule.ToModel()
		}
		return map[string]bool{"removed": g.controller.HandleDequeue(session, rule)}, nil

	case CommandPaddle:
		if cmd.Direction == nil {
			return nil, apierr.NewInvalidRequestError("direction is required")
		}
		return nil, g.controller.HandlePaddle(session.RoomID(), session.UserID, model.Direction(*cmd.Direction))

	case CommandReady:
		isReady := true
		if cmd.IsReady != nil {
			isReady = *cmd.IsReady
		}
		return nil, g.controller.HandleReady(session.UserID, isReady)

	case CommandRule:
		if cmd.Patch == nil {
			return nil, apierr.NewInvalidRequestError("patch is required")
		}
		rule, err := g.controller.HandleRule(session.UserID, cmd.Patch.ToModel())
		if err != nil {
			return nil, err
		}
		return events.RuleFromModel(rule), nil

	case CommandWatch:
		if cmd.RoomID == "" {
			return nil, apierr.NewInvalidRequestError("room_id is required")
		}
		if err := g.watch(c, model.RoomID(cmd.RoomID)); err != nil {
			return nil, err
		}
		game, err := g.controller.Snapshot(model.RoomID(cmd.RoomID))
		if err != nil {
			return nil, err
		}
		return events.GameFromModel(game), nil

	case CommandUnwatch:
		g.unwatch(c, model.RoomID(cmd.RoomID))
		return nil, nil

	case CommandInvite:
		if cmd.UserID == 0 {
			return nil, apierr.NewInvalidRequestError("user_id is required")
		}
		inv, err := g.controller.CreateInvitation(ctx, session, model.UserID(cmd.UserID))
		if err != nil {
			return nil, err
		}
		return events.InvitationFromModel(inv), nil

	case CommandAcceptInvite:
		if cmd.InvitationID == "" {
			return nil, apierr.NewInvalidRequestError("invitation_id is required")
		}
		game, err := g.controller.HandleAcceptInvite(ctx, model.InvitationID(cmd.InvitationID), session)
		if err != nil {
			return nil, err
		}
		return events.GameFromModel(game), nil

	case CommandAbandon:
		return nil, g.controller.Abandon(session.UserID)

	default:
		return nil, apierr.NewInvalidRequestError(fmt.Sprintf("%s: %q", errUnknownCommand, cmd.Type))
	}
}
