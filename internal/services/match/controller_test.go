package match

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pongmatch-go/internal/dependencies/mocks"
	matchlogmemory "github.com/mcoot/pongmatch-go/internal/matchlog/memory"
	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/services/matchmaking"
	"github.com/mcoot/pongmatch-go/internal/services/rank"
	"github.com/mcoot/pongmatch-go/internal/services/recorder"
	"github.com/mcoot/pongmatch-go/internal/services/simulation"
	"github.com/mcoot/pongmatch-go/internal/storage/memory"
	"github.com/mcoot/pongmatch-go/internal/testutil"
)

type fakeDirectory struct {
	mu       sync.Mutex
	sessions map[model.UserID]*model.Session
}

func (d *fakeDirectory) add(userID model.UserID, nickname string) *model.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := model.NewSession(model.SessionID(fmt.Sprintf("ps_%d", userID)), userID, nickname)
	d.sessions[userID] = s
	return s
}

func (d *fakeDirectory) remove(userID model.UserID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.sessions, userID)
}

func (d *fakeDirectory) SessionForUser(userID model.UserID) (*model.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[userID]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return s, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *recordingPublisher) Publish(event model.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) ofType(eventType model.EventType) []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) all() []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Event(nil), p.events...)
}

type ControllerSuite struct {
	suite.Suite
	clock      *mocks.MockClock
	random     *mocks.MockRandom
	publisher  *recordingPublisher
	directory  *fakeDirectory
	storage    *memory.Storage
	gateway    *matchlogmemory.Gateway
	recorder   *recorder.Recorder
	rank       *rank.Service
	engine     *simulation.Engine
	controller *Controller
	ctx        context.Context

	blue *model.Session
	red  *model.Session
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.publisher = &recordingPublisher{}
	s.directory = &fakeDirectory{sessions: make(map[model.UserID]*model.Session)}
	s.storage = memory.New()
	s.gateway = matchlogmemory.New(s.clock, mocks.NewMockRandom())
	s.recorder = recorder.New(s.gateway, recorder.DefaultConfig(), logger)
	s.rank = rank.New(s.storage, rank.DefaultConfig(), logger)
	s.ctx = context.Background()

	s.blue = s.directory.add(10, "blue")
	s.red = s.directory.add(20, "red")

	// Matches sit in warm-up unless a test asks for a short one
	s.build(1_000_000)
}

func (s *ControllerSuite) TearDownTest() {
	s.engine.Shutdown()
	s.controller.Wait()
	s.recorder.Wait()
}

func (s *ControllerSuite) build(warmupFrames int64) {
	if s.engine != nil {
		s.engine.Shutdown()
	}
	logger := testutil.NopLogger()
	cfg := simulation.DefaultConfig()
	cfg.TickInterval = time.Millisecond
	cfg.WarmupFrames = warmupFrames
	s.engine = simulation.New(cfg, s.publisher, s.clock, logger)
	s.controller = NewController(
		DefaultConfig(),
		NewRegistry(),
		matchmaking.New(logger),
		s.engine,
		s.publisher,
		s.directory,
		s.storage,
		s.recorder,
		s.rank,
		s.clock,
		s.random,
		logger,
	)
}

func rule(matchScore int, ranked bool) model.RuleData {
	r := model.DefaultRuleData()
	r.MatchScore = matchScore
	r.IsRankGame = ranked
	return r
}

// pair matches blue and red and returns the room
func (s *ControllerSuite) pair(r model.RuleData) model.RoomID {
	s.Require().NoError(s.controller.HandleEnqueue(s.ctx, s.blue, r))
	s.Require().NoError(s.controller.HandleEnqueue(s.ctx, s.red, r))
	s.Require().True(s.blue.InMatch())
	return s.blue.RoomID()
}

func (s *ControllerSuite) waitForTeardown() {
	s.Eventually(func() bool {
		return !s.blue.InMatch() && !s.red.InMatch()
	}, 5*time.Second, time.Millisecond)
}

func (s *ControllerSuite) flushRecorder() {
	s.recorder.Wait()
	s.recorder.RetryPending(s.ctx)
}

func (s *ControllerSuite) lastEnd() model.MatchEndPayload {
	ends := s.publisher.ofType(model.EventMatchEnd)
	s.Require().NotEmpty(ends)
	return ends[len(ends)-1].Payload.(model.MatchEndPayload)
}

// Queue tests

func (s *ControllerSuite) TestEnqueueWaitsForOpponent() {
	err := s.controller.HandleEnqueue(s.ctx, s.blue, model.DefaultRuleData())
	s.Require().NoError(err)

	s.Equal(1, s.controller.QueueLen(false))
	s.Empty(s.controller.ActiveRooms())
	s.False(s.blue.InMatch())
}

func (s *ControllerSuite) TestEnqueueRejectsInvalidRule() {
	err := s.controller.HandleEnqueue(s.ctx, s.blue, rule(0, false))

	s.ErrorIs(err, model.ErrInvalidRule)
	s.Zero(s.controller.QueueLen(false))
}

func (s *ControllerSuite) TestDequeue() {
	_ = s.controller.HandleEnqueue(s.ctx, s.blue, model.DefaultRuleData())

	s.True(s.controller.HandleDequeue(s.blue, model.DefaultRuleData()))
	s.False(s.controller.HandleDequeue(s.blue, model.DefaultRuleData()))
	s.Zero(s.controller.QueueLen(false))
}

func (s *ControllerSuite) TestPairingCreatesMatch() {
	s.random.QueueUUID("room-a")
	initiator := model.RuleData{PaddleSize: 0.5, BallSpeed: 1.5, MatchScore: 3}
	responder := model.RuleData{PaddleSize: 2.0, BallSpeed: 0.5, MatchScore: 9}

	s.Require().NoError(s.controller.HandleEnqueue(s.ctx, s.blue, initiator))
	s.Require().NoError(s.controller.HandleEnqueue(s.ctx, s.red, responder))

	s.Equal(model.RoomID("room-a"), s.blue.RoomID())
	s.Equal(model.RoomID("room-a"), s.red.RoomID())
	s.Equal([]model.RoomID{"room-a"}, s.controller.ActiveRooms())
	s.Zero(s.controller.QueueLen(false))
	s.True(s.engine.Running("room-a"))

	game, err := s.controller.Snapshot("room-a")
	s.Require().NoError(err)
	s.Equal(model.UserID(10), game.Meta.PlayerBlue.UserID)
	s.Equal(model.UserID(20), game.Meta.PlayerRed.UserID)
	s.Equal(model.RuleData{PaddleSize: 2.0, BallSpeed: 1.5, MatchScore: 3}, game.Rule)
	s.Equal(model.StatusReady, game.InGame.Status)

	events := s.publisher.all()
	s.Require().NotEmpty(events)
	s.Equal(model.EventMatchReady, events[0].Type)
	s.Equal([2]model.UserID{10, 20}, events[0].Players)
	s.Equal(s.clock.Now(), events[0].Timestamp)
	ready := events[0].Payload.(model.MatchReadyPayload)
	s.Equal(game.Rule, ready.Rule)
	s.Equal("blue", ready.BlueUser.Nickname)
	s.Equal("red", ready.RedUser.Nickname)
}

func (s *ControllerSuite) TestMatchOf() {
	roomID := s.pair(model.DefaultRuleData())

	game, err := s.controller.MatchOf(20)
	s.Require().NoError(err)
	s.Equal(roomID, game.Meta.RoomID)

	_, err = s.controller.MatchOf(30)
	s.ErrorIs(err, model.ErrNotInMatch)

	_, err = s.controller.Snapshot("nope")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *ControllerSuite) TestEnqueueWhileInMatchFails() {
	s.pair(model.DefaultRuleData())

	err := s.controller.HandleEnqueue(s.ctx, s.blue, model.DefaultRuleData())
	s.ErrorIs(err, model.ErrAlreadyInMatch)
}

func (s *ControllerSuite) TestRoomIDCollisionIsRetried() {
	s.random.QueueUUID("room-a", "room-a", "room-b")
	third := s.directory.add(30, "third")
	fourth := s.directory.add(40, "fourth")

	s.pair(model.DefaultRuleData())
	s.Require().NoError(s.controller.HandleEnqueue(s.ctx, third, model.DefaultRuleData()))
	s.Require().NoError(s.controller.HandleEnqueue(s.ctx, fourth, model.DefaultRuleData()))

	s.Equal([]model.RoomID{"room-a", "room-b"}, s.controller.ActiveRooms())
	s.Equal(model.RoomID("room-b"), third.RoomID())
}

func (s *ControllerSuite) TestDuplicateEntriesDoNotPairWithThemselves() {
	s.Require().NoError(s.controller.HandleEnqueue(s.ctx, s.blue, model.DefaultRuleData()))
	s.Require().NoError(s.controller.HandleEnqueue(s.ctx, s.blue, model.DefaultRuleData()))

	s.Empty(s.controller.ActiveRooms())
	s.Equal(1, s.controller.QueueLen(false))

	s.Require().NoError(s.controller.HandleEnqueue(s.ctx, s.red, model.DefaultRuleData()))
	s.Equal(s.blue.RoomID(), s.red.RoomID())
	s.True(s.blue.InMatch())
}

func (s *ControllerSuite) TestMatchedSessionLeavesOtherQueue() {
	s.Require().NoError(s.controller.HandleEnqueue(s.ctx, s.blue, rule(5, true)))
	s.pair(rule(5, false))

	s.Zero(s.controller.QueueLen(true))
	s.Zero(s.controller.QueueLen(false))
}

// Lifecycle tests

func (s *ControllerSuite) TestMatchRunsToEndAndTearsDown() {
	s.build(3)

	roomID := s.pair(rule(1, false))
	s.waitForTeardown()

	s.Len(s.publisher.ofType(model.EventMatchScore), 1)
	s.Len(s.publisher.ofType(model.EventMatchEnd), 1)
	end := s.lastEnd()
	s.Equal(roomID, end.Meta.RoomID)
	s.Equal(1, end.InGame.ScoreBlue+end.InGame.ScoreRed)
	s.Equal(model.StatusEnd, end.InGame.Status)

	s.Empty(s.controller.ActiveRooms())
	s.False(s.engine.Running(roomID))
	_, err := s.controller.MatchOf(10)
	s.ErrorIs(err, model.ErrNotInMatch)
}

func (s *ControllerSuite) TestFinishedMatchIsLogged() {
	s.build(3)

	roomID := s.pair(rule(1, false))
	s.waitForTeardown()
	s.flushRecorder()

	records, err := s.gateway.ListMatches(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(roomID, records[0].RoomID)
	s.True(records[0].Finished())
	s.Equal(1, records[0].ScoreBlue+records[0].ScoreRed)
	s.Equal(s.lastEnd().InGame.WinnerUserID, records[0].WinnerUserID)
}

func (s *ControllerSuite) TestRankedMatchUpdatesRatings() {
	s.build(3)

	s.pair(rule(1, true))
	s.waitForTeardown()
	s.controller.Wait()

	end := s.lastEnd()
	winner := end.InGame.WinnerUserID
	loser := model.UserID(10)
	if winner == 10 {
		loser = 20
	}

	points, err := s.rank.GetRating(s.ctx, winner)
	s.Require().NoError(err)
	s.Equal(1020, points)
	points, err = s.rank.GetRating(s.ctx, loser)
	s.Require().NoError(err)
	s.Equal(980, points)
}

func (s *ControllerSuite) TestCasualMatchLeavesRatings() {
	s.build(3)

	s.pair(rule(1, false))
	s.waitForTeardown()
	s.controller.Wait()

	_, ok, err := s.storage.GetRating(s.ctx, 10)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ControllerSuite) TestEndGameIsIdempotent() {
	roomID := s.pair(model.DefaultRuleData())

	s.controller.EndGame(roomID)
	s.controller.EndGame(roomID)

	s.False(s.blue.InMatch())
	s.False(s.red.InMatch())
	s.Empty(s.controller.ActiveRooms())
	s.False(s.engine.Running(roomID))

	s.flushRecorder()
	records, err := s.gateway.ListMatches(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Len(records, 1)
}

func (s *ControllerSuite) TestEndGameUnknownRoomIsNoop() {
	s.NotPanics(func() { s.controller.EndGame("nope") })
}

func (s *ControllerSuite) TestRankedEndWithoutWinnerSkipsRank() {
	roomID := s.pair(rule(5, true))

	s.controller.EndGame(roomID)
	s.controller.Wait()

	s.False(s.blue.InMatch())
	_, ok, err := s.storage.GetRating(s.ctx, 10)
	s.Require().NoError(err)
	s.False(ok)
	_, ok, err = s.storage.GetRating(s.ctx, 20)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ControllerSuite) TestAbandonForfeits() {
	roomID := s.pair(rule(5, true))

	s.Require().NoError(s.controller.Abandon(10))

	s.False(s.blue.InMatch())
	s.False(s.red.InMatch())
	s.False(s.engine.Running(roomID))
	end := s.lastEnd()
	s.Equal(model.UserID(20), end.InGame.WinnerUserID)
	s.Equal(roomID, end.Meta.RoomID)

	s.controller.Wait()
	points, err := s.rank.GetRating(s.ctx, 20)
	s.Require().NoError(err)
	s.Equal(1020, points)
	points, err = s.rank.GetRating(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal(980, points)
}

func (s *ControllerSuite) TestAbandonWhenNotInMatch() {
	s.ErrorIs(s.controller.Abandon(10), model.ErrNotInMatch)
}

func (s *ControllerSuite) TestHandleDisconnectClearsQueues() {
	_ = s.controller.HandleEnqueue(s.ctx, s.blue, rule(5, false))
	_ = s.controller.HandleEnqueue(s.ctx, s.blue, rule(5, true))

	s.controller.HandleDisconnect(s.blue)

	s.Zero(s.controller.QueueLen(false))
	s.Zero(s.controller.QueueLen(true))
}

func (s *ControllerSuite) TestHandleDisconnectForfeitsMatch() {
	s.pair(model.DefaultRuleData())

	s.controller.HandleDisconnect(s.red)

	s.Empty(s.controller.ActiveRooms())
	s.False(s.blue.InMatch())
	s.Equal(model.UserID(10), s.lastEnd().InGame.WinnerUserID)
}

// Command tests

func (s *ControllerSuite) TestHandlePaddle() {
	roomID := s.pair(model.DefaultRuleData())

	s.Require().NoError(s.controller.HandlePaddle(roomID, 10, model.DirectionUp))
	s.ErrorIs(s.controller.HandlePaddle(roomID, 10, model.Direction(3)), model.ErrInvalidDirection)
	s.NoError(s.controller.HandlePaddle("nope", 10, model.DirectionDown))
	s.NoError(s.controller.HandlePaddle(roomID, 99, model.DirectionDown))

	game, err := s.controller.Snapshot(roomID)
	s.Require().NoError(err)
	s.Equal(1.0, game.InGame.PaddleBlue.Velocity.Y)
	s.Equal(0.0, game.InGame.PaddleRed.Velocity.Y)
}

func (s *ControllerSuite) TestHandleReadyStartsPlay() {
	s.pair(model.DefaultRuleData())

	s.Require().NoError(s.controller.HandleReady(10, true))
	s.Require().NoError(s.controller.HandleReady(20, true))

	readies := s.publisher.ofType(model.EventPlayerReady)
	s.Require().Len(readies, 2)
	s.Equal(model.PlayerReadyPayload{UserID: 10, IsReady: true}, readies[0].Payload)
	s.Eventually(func() bool {
		return len(s.publisher.ofType(model.EventMatchStart)) == 1
	}, 5*time.Second, time.Millisecond)
}

func (s *ControllerSuite) TestHandleReadyNotInMatch() {
	s.ErrorIs(s.controller.HandleReady(10, true), model.ErrNotInMatch)
}

func (s *ControllerSuite) TestHandleRule() {
	roomID := s.pair(model.DefaultRuleData())
	size := 1.5

	updated, err := s.controller.HandleRule(20, model.RulePatch{PaddleSize: &size})
	s.Require().NoError(err)
	s.Equal(1.5, updated.PaddleSize)

	game, _ := s.controller.Snapshot(roomID)
	s.Equal(1.5, game.Rule.PaddleSize)
	rules := s.publisher.ofType(model.EventMatchRule)
	s.Require().Len(rules, 1)
	s.Equal(model.UserID(20), rules[0].Payload.(model.MatchRulePayload).UserID)
}

func (s *ControllerSuite) TestHandleRuleRejections() {
	size := 1.5
	_, err := s.controller.HandleRule(10, model.RulePatch{PaddleSize: &size})
	s.ErrorIs(err, model.ErrNotInMatch)

	s.pair(model.DefaultRuleData())
	_, err = s.controller.HandleRule(10, model.RulePatch{})
	s.ErrorIs(err, model.ErrInvalidRule)
}

// Invitation tests

func (s *ControllerSuite) TestInvitationAccepted() {
	s.random.QueueUUID("inv-1", "room-a")

	inv, err := s.controller.CreateInvitation(s.ctx, s.blue, 20)
	s.Require().NoError(err)
	s.Equal(model.InvitationID("inv-1"), inv.ID)
	s.Equal(s.clock.Now().Add(5*time.Minute), inv.ExpiresAt)

	pending, err := s.controller.ListInvitations(s.ctx, 20)
	s.Require().NoError(err)
	s.Len(pending, 1)

	game, err := s.controller.HandleAcceptInvite(s.ctx, "inv-1", s.red)
	s.Require().NoError(err)
	s.Equal(model.RoomID("room-a"), game.Meta.RoomID)
	s.Equal(model.UserID(10), game.Meta.PlayerBlue.UserID)
	s.Equal(model.UserID(20), game.Meta.PlayerRed.UserID)
	s.Equal(model.DefaultRuleData(), game.Rule)
	s.Equal(model.RoomID("room-a"), s.red.RoomID())

	_, err = s.storage.GetInvitation(s.ctx, "inv-1")
	s.ErrorIs(err, model.ErrInvitationNotFound)
}

func (s *ControllerSuite) TestInvitationOnlyForInvitee() {
	third := s.directory.add(30, "third")
	inv, _ := s.controller.CreateInvitation(s.ctx, s.blue, 20)

	_, err := s.controller.HandleAcceptInvite(s.ctx, inv.ID, third)
	s.ErrorIs(err, model.ErrNotInvitee)
	s.False(third.InMatch())
}

func (s *ControllerSuite) TestInvitationExpires() {
	inv, _ := s.controller.CreateInvitation(s.ctx, s.blue, 20)
	s.clock.Advance(6 * time.Minute)

	pending, err := s.controller.ListInvitations(s.ctx, 20)
	s.Require().NoError(err)
	s.Empty(pending)

	_, err = s.controller.HandleAcceptInvite(s.ctx, inv.ID, s.red)
	s.ErrorIs(err, model.ErrInvitationExpired)
	s.False(s.red.InMatch())
}

func (s *ControllerSuite) TestAcceptUnknownInvitation() {
	_, err := s.controller.HandleAcceptInvite(s.ctx, "nope", s.red)
	s.ErrorIs(err, model.ErrInvitationNotFound)
}

func (s *ControllerSuite) TestInvitationRejections() {
	_, err := s.controller.CreateInvitation(s.ctx, s.blue, 10)
	s.ErrorIs(err, model.ErrCannotPlaySelf)

	_, err = s.controller.CreateInvitation(s.ctx, s.blue, 99)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ControllerSuite) TestAcceptWhenInviterOffline() {
	inv, _ := s.controller.CreateInvitation(s.ctx, s.blue, 20)
	s.directory.remove(10)

	_, err := s.controller.HandleAcceptInvite(s.ctx, inv.ID, s.red)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *ControllerSuite) TestAcceptWhenInviterBusy() {
	inv, _ := s.controller.CreateInvitation(s.ctx, s.blue, 20)
	third := s.directory.add(30, "third")
	s.Require().NoError(s.controller.HandleEnqueue(s.ctx, s.blue, model.DefaultRuleData()))
	s.Require().NoError(s.controller.HandleEnqueue(s.ctx, third, model.DefaultRuleData()))

	_, err := s.controller.HandleAcceptInvite(s.ctx, inv.ID, s.red)
	s.ErrorIs(err, model.ErrAlreadyInMatch)
	s.False(s.red.InMatch())
}
