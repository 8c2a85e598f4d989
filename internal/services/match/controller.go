// Package match orchestrates the life of a match: pairing sessions from the
// queue or an invitation, registering the room and starting its timer,
// relaying player commands, and tearing the room down when it ends.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/pongmatch-go/internal/dependencies/clock"
	"github.com/mcoot/pongmatch-go/internal/dependencies/random"
	"github.com/mcoot/pongmatch-go/internal/matchlog"
	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/physics"
	"github.com/mcoot/pongmatch-go/internal/services/matchmaking"
	"github.com/mcoot/pongmatch-go/internal/services/simulation"
)

// SessionDirectory resolves the live session of a user
type SessionDirectory interface {
	SessionForUser(userID model.UserID) (*model.Session, error)
}

// InvitationStore persists pending invitations
type InvitationStore interface {
	SaveInvitation(ctx context.Context, inv *model.Invitation) error
	GetInvitation(ctx context.Context, id model.InvitationID) (*model.Invitation, error)
	DeleteInvitation(ctx context.Context, id model.InvitationID) error
	ListInvitationsFor(ctx context.Context, inviteeID model.UserID) ([]*model.Invitation, error)
}

// MatchRecorder persists match logs in the background
type MatchRecorder interface {
	RecordInitial(meta model.MetaData, rule model.RuleData, onSaved func(model.LogID))
	RecordFinal(final matchlog.FinalMatch)
}

// RankUpdater applies a ranked result to one user
type RankUpdater interface {
	UpdateRank(ctx context.Context, userID model.UserID, won bool) (int, error)
}

// Config holds configuration for the match controller
type Config struct {
	InvitationTTL  time.Duration
	RankTimeout    time.Duration
	RoomIDAttempts int
}

// DefaultConfig returns default match configuration
func DefaultConfig() Config {
	return Config{
		InvitationTTL:  5 * time.Minute,
		RankTimeout:    5 * time.Second,
		RoomIDAttempts: 5,
	}
}

// Controller owns the registry of active rooms
type Controller struct {
	cfg         Config
	registry    *Registry
	queue       *matchmaking.Queue
	engine      *simulation.Engine
	publisher   simulation.Publisher
	sessions    SessionDirectory
	invitations InvitationStore
	recorder    MatchRecorder
	rank        RankUpdater
	clock       clock.Clock
	random      random.Random
	logger      *slog.Logger

	// Serializes room creation so a session cannot be matched twice
	createMu sync.Mutex
	wg       sync.WaitGroup
}

// NewController creates a Controller and installs it as the engine's end handler
func NewController(
	cfg Config,
	registry *Registry,
	queue *matchmaking.Queue,
	engine *simulation.Engine,
	publisher simulation.Publisher,
	sessions SessionDirectory,
	invitations InvitationStore,
	recorder MatchRecorder,
	rank RankUpdater,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
) *Controller {
	c := &Controller{
		cfg:         cfg,
		registry:    registry,
		queue:       queue,
		engine:      engine,
		publisher:   publisher,
		sessions:    sessions,
		invitations: invitations,
		recorder:    recorder,
		rank:        rank,
		clock:       clock,
		random:      random,
		logger:      logger.With(slog.String("component", "match")),
	}
	engine.SetEndHandler(c.EndGame)
	return c
}

// HandleEnqueue puts a session in the casual or ranked queue and starts a
// match if that completes a pair
func (c *Controller) HandleEnqueue(ctx context.Context, session *model.Session, rule model.RuleData) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	if session.InMatch() {
		return model.ErrAlreadyInMatch
	}
	return c.enqueue(ctx, matchmaking.Entry{Session: session, Rule: rule})
}

func (c *Controller) enqueue(ctx context.Context, e matchmaking.Entry) error {
	pair, ok := c.queue.Enqueue(e.Session, e.Rule)
	if !ok {
		return nil
	}

	initiator, responder := pair.Initiator, pair.Responder
	_, err := c.createMatch(ctx, initiator.Session, responder.Session, model.MergeRules(initiator.Rule, responder.Rule))
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrAlreadyInMatch) && !errors.Is(err, model.ErrCannotPlaySelf) {
		return err
	}

	// A stale or duplicate entry was paired; whoever can still play goes back in line
	c.logger.Warn("dropping unplayable pairing",
		slog.String("initiator", string(initiator.Session.ID)),
		slog.String("responder", string(responder.Session.ID)),
		slog.String("error", err.Error()))
	for _, back := range requeueable(pair) {
		if err := c.enqueue(ctx, back); err != nil {
			return err
		}
	}
	return nil
}

func requeueable(pair *matchmaking.Pair) []matchmaking.Entry {
	var entries []matchmaking.Entry
	for _, e := range []matchmaking.Entry{pair.Initiator, pair.Responder} {
		if e.Session.InMatch() {
			continue
		}
		if len(entries) > 0 && entries[0].Session.ID == e.Session.ID {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// HandleDequeue removes a session from the queue selected by the rule
func (c *Controller) HandleDequeue(session *model.Session, rule model.RuleData) bool {
	return c.queue.Dequeue(session, rule)
}

// CreateInvitation records a direct challenge to another online user
func (c *Controller) CreateInvitation(ctx context.Context, inviter *model.Session, inviteeID model.UserID) (*model.Invitation, error) {
	if inviter.UserID == inviteeID {
		return nil, model.ErrCannotPlaySelf
	}
	if inviter.InMatch() {
		return nil, model.ErrAlreadyInMatch
	}
	if _, err := c.sessions.SessionForUser(inviteeID); err != nil {
		return nil, err
	}

	now := c.clock.Now()
	inv := &model.Invitation{
		ID:        model.InvitationID(c.random.UUID()),
		InviterID: inviter.UserID,
		InviteeID: inviteeID,
		CreatedAt: now,
		ExpiresAt: now.Add(c.cfg.InvitationTTL),
	}
	if err := c.invitations.SaveInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to save invitation: %w", err)
	}

	c.logger.Info("invitation created",
		slog.String("invitation_id", string(inv.ID)),
		slog.Int64("inviter", int64(inv.InviterID)),
		slog.Int64("invitee", int64(inv.InviteeID)))
	return inv, nil
}

// ListInvitations returns the pending invitations addressed to a user
func (c *Controller) ListInvitations(ctx context.Context, userID model.UserID) ([]*model.Invitation, error) {
	all, err := c.invitations.ListInvitationsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := c.clock.Now()
	pending := make([]*model.Invitation, 0, len(all))
	for _, inv := range all {
		if !inv.IsExpired(now) {
			pending = append(pending, inv)
		}
	}
	return pending, nil
}

// HandleAcceptInvite starts a match between the inviter (blue) and the
// invitee (red) with the default rules
func (c *Controller) HandleAcceptInvite(ctx context.Context, id model.InvitationID, accepter *model.Session) (*model.GameData, error) {
	inv, err := c.invitations.GetInvitation(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.InviteeID != accepter.UserID {
		return nil, model.ErrNotInvitee
	}
	if inv.IsExpired(c.clock.Now()) {
		c.deleteInvitation(ctx, id)
		return nil, model.ErrInvitationExpired
	}

	inviter, err := c.sessions.SessionForUser(inv.InviterID)
	if err != nil {
		return nil, err
	}

	game, err := c.createMatch(ctx, inviter, accepter, model.DefaultRuleData())
	if err != nil {
		return nil, err
	}
	c.deleteInvitation(ctx, id)
	return game, nil
}

func (c *Controller) deleteInvitation(ctx context.Context, id model.InvitationID) {
	if err := c.invitations.DeleteInvitation(ctx, id); err != nil {
		c.logger.Error("failed to delete invitation",
			slog.String("invitation_id", string(id)),
			slog.String("error", err.Error()))
	}
}

// createMatch registers a new room for blue and red and starts its timer
func (c *Controller) createMatch(ctx context.Context, blue, red *model.Session, rule model.RuleData) (*model.GameData, error) {
	if blue.UserID == red.UserID {
		return nil, model.ErrCannotPlaySelf
	}

	c.createMu.Lock()
	defer c.createMu.Unlock()

	if blue.InMatch() || red.InMatch() {
		return nil, model.ErrAlreadyInMatch
	}

	roomID, err := c.newRoomID()
	if err != nil {
		return nil, err
	}

	meta := model.MetaData{
		RoomID:     roomID,
		PlayerBlue: blue.Player(),
		PlayerRed:  red.Player(),
		IsRankGame: rule.IsRankGame,
	}
	room := simulation.NewRoom(&model.GameData{
		Meta:   meta,
		Rule:   rule,
		InGame: physics.NewInGameData(c.engine.Config().Geometry),
	})

	if err := c.registry.Add(room, blue, red); err != nil {
		return nil, err
	}
	blue.SetRoomID(roomID)
	red.SetRoomID(roomID)
	c.queue.RemoveAll(blue.ID)
	c.queue.RemoveAll(red.ID)

	c.publish(model.NewMatchEvent(model.EventMatchReady, meta, model.MatchReadyPayload{
		Rule:     rule,
		BlueUser: meta.PlayerBlue,
		RedUser:  meta.PlayerRed,
	}))

	if err := c.engine.Start(room); err != nil {
		c.registry.Remove(roomID)
		blue.ClearRoomID(roomID)
		red.ClearRoomID(roomID)
		return nil, fmt.Errorf("failed to start room: %w", err)
	}

	c.recorder.RecordInitial(meta, rule, room.SetLogID)

	c.logger.Info("match created",
		slog.String("room_id", string(roomID)),
		slog.Int64("blue", int64(blue.UserID)),
		slog.Int64("red", int64(red.UserID)),
		slog.Bool("ranked", rule.IsRankGame))
	return room.Snapshot(), nil
}

func (c *Controller) newRoomID() (model.RoomID, error) {
	for i := 0; i < c.cfg.RoomIDAttempts; i++ {
		id := model.RoomID(c.random.UUID())
		if !c.registry.Has(id) {
			return id, nil
		}
	}
	return "", model.ErrRoomExists
}

// HandlePaddle sets a player's paddle direction. Commands for unknown rooms
// or from users not playing in the room are dropped.
func (c *Controller) HandlePaddle(roomID model.RoomID, userID model.UserID, dir model.Direction) error {
	if !dir.Valid() {
		return model.ErrInvalidDirection
	}
	room, ok := c.registry.Get(roomID)
	if !ok {
		c.logger.Debug("paddle input for unknown room", slog.String("room_id", string(roomID)))
		return nil
	}
	if !room.SetPaddle(userID, dir) {
		c.logger.Debug("paddle input dropped",
			slog.String("room_id", string(roomID)),
			slog.Int64("user_id", int64(userID)))
	}
	return nil
}

// HandleReady marks a player ready during warm-up and tells both players.
// Once both are ready play starts on the next tick.
func (c *Controller) HandleReady(userID model.UserID, isReady bool) error {
	room, ok := c.registry.RoomOf(userID)
	if !ok {
		return model.ErrNotInMatch
	}
	if err := room.SetReady(userID, isReady); err != nil {
		return err
	}
	c.publish(model.NewMatchEvent(model.EventPlayerReady, room.Snapshot().Meta, model.PlayerReadyPayload{
		UserID:  userID,
		IsReady: isReady,
	}))
	return nil
}

// HandleRule applies a rule patch during warm-up and relays the result
func (c *Controller) HandleRule(userID model.UserID, patch model.RulePatch) (model.RuleData, error) {
	if patch.IsEmpty() {
		return model.RuleData{}, fmt.Errorf("%w: empty patch", model.ErrInvalidRule)
	}
	room, ok := c.registry.RoomOf(userID)
	if !ok {
		return model.RuleData{}, model.ErrNotInMatch
	}
	rule, err := room.ApplyRule(userID, patch)
	if err != nil {
		return model.RuleData{}, err
	}
	c.publish(model.NewMatchEvent(model.EventMatchRule, room.Snapshot().Meta, model.MatchRulePayload{
		UserID: userID,
		Patch:  patch,
		Rule:   rule,
	}))
	return rule, nil
}

// EndGame tears a room down: it stops the timer and hands the result to the
// match log and, for ranked matches, the ladder. Both players are freed
// last. Calls after the first for a room are no-ops.
func (c *Controller) EndGame(roomID model.RoomID) {
	room, players, ok := c.registry.Remove(roomID)
	if !ok {
		c.logger.Debug("end of unknown room", slog.String("room_id", string(roomID)))
		return
	}
	c.engine.Stop(roomID)

	final := room.Snapshot()
	defer func() {
		for _, s := range players {
			s.ClearRoomID(roomID)
		}
	}()

	c.recorder.RecordFinal(matchlog.NewFinalMatch(final))

	c.logger.Info("match ended",
		slog.String("room_id", string(roomID)),
		slog.Int("score_blue", final.InGame.ScoreBlue),
		slog.Int("score_red", final.InGame.ScoreRed),
		slog.Int64("winner", int64(final.InGame.WinnerUserID)))

	if !final.Meta.IsRankGame {
		return
	}
	if !final.InGame.HasWinner() {
		c.logger.Error("ranked match ended without a winner, skipping rank update",
			slog.String("room_id", string(roomID)),
			slog.String("status", string(final.InGame.Status)))
		return
	}
	c.updateRanks(final.InGame.WinnerUserID, final.LoserUserID())
}

func (c *Controller) updateRanks(winner, loser model.UserID) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RankTimeout)
		defer cancel()

		for _, r := range []struct {
			userID model.UserID
			won    bool
		}{{winner, true}, {loser, false}} {
			if _, err := c.rank.UpdateRank(ctx, r.userID, r.won); err != nil {
				c.logger.Error("failed to update rank",
					slog.Int64("user_id", int64(r.userID)),
					slog.String("error", err.Error()))
			}
		}
	}()
}

// Abandon forfeits the match the user is playing; the opponent wins
func (c *Controller) Abandon(userID model.UserID) error {
	room, ok := c.registry.RoomOf(userID)
	if !ok {
		return model.ErrNotInMatch
	}

	final, ok := room.Forfeit(userID)
	if !ok {
		// Already over; the engine's end handler does the teardown
		return nil
	}
	c.publish(model.NewMatchEvent(model.EventMatchEnd, final.Meta, model.MatchEndPayload{
		Meta:   final.Meta,
		InGame: final.InGame,
	}))
	c.EndGame(room.ID())
	return nil
}

// HandleDisconnect drops every queue entry of a departed session and
// forfeits its match
func (c *Controller) HandleDisconnect(session *model.Session) {
	if n := c.queue.RemoveAll(session.ID); n > 0 {
		c.logger.Info("removed disconnected session from queue",
			slog.String("session_id", string(session.ID)),
			slog.Int("entries", n))
	}
	if !session.InMatch() {
		return
	}
	if err := c.Abandon(session.UserID); err != nil {
		c.logger.Warn("failed to abandon match on disconnect",
			slog.String("session_id", string(session.ID)),
			slog.String("error", err.Error()))
	}
}

// Snapshot returns a copy of a room's state
func (c *Controller) Snapshot(roomID model.RoomID) (*model.GameData, error) {
	room, ok := c.registry.Get(roomID)
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room.Snapshot(), nil
}

// MatchOf returns a copy of the state of the match a user is playing
func (c *Controller) MatchOf(userID model.UserID) (*model.GameData, error) {
	room, ok := c.registry.RoomOf(userID)
	if !ok {
		return nil, model.ErrNotInMatch
	}
	return room.Snapshot(), nil
}

// ActiveRooms returns the IDs of every running match
func (c *Controller) ActiveRooms() []model.RoomID {
	return c.registry.IDs()
}

// QueueLen returns the number of waiting entries in one queue
func (c *Controller) QueueLen(ranked bool) int {
	return c.queue.Len(ranked)
}

// Wait blocks until every in-flight rank update has returned
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) publish(event model.Event) {
	if c.publisher == nil {
		return
	}
	event.Timestamp = c.clock.Now()
	c.publisher.Publish(event)
}

// Interface for dependency injection
type ControllerInterface interface {
	HandleEnqueue(ctx context.Context, session *model.Session, rule model.RuleData) error
	HandleDequeue(session *model.Session, rule model.RuleData) bool
	CreateInvitation(ctx context.Context, inviter *model.Session, inviteeID model.UserID) (*model.Invitation, error)
	ListInvitations(ctx context.Context, userID model.UserID) ([]*model.Invitation, error)
	HandleAcceptInvite(ctx context.Context, id model.InvitationID, accepter *model.Session) (*model.GameData, error)
	HandlePaddle(roomID model.RoomID, userID model.UserID, dir model.Direction) error
	HandleReady(userID model.UserID, isReady bool) error
	HandleRule(userID model.UserID, patch model.RulePatch) (model.RuleData, error)
	EndGame(roomID model.RoomID)
	Abandon(userID model.UserID) error
	HandleDisconnect(session *model.Session)
	Snapshot(roomID model.RoomID) (*model.GameData, error)
	MatchOf(userID model.UserID) (*model.GameData, error)
	ActiveRooms() []model.RoomID
	QueueLen(ranked bool) int
}

var _ ControllerInterface = (*Controller)(nil)
