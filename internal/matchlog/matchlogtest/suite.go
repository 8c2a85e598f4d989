// Package matchlogtest holds the behaviour every match log gateway must share
package matchlogtest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/pongmatch-go/internal/dependencies/mocks"
	"github.com/mcoot/pongmatch-go/internal/matchlog"
	"github.com/mcoot/pongmatch-go/internal/model"
)

// GatewaySuite runs against any Gateway built by NewGateway
type GatewaySuite struct {
	suite.Suite
	NewGateway func(clock *mocks.MockClock) matchlog.Gateway

	Clock   *mocks.MockClock
	Gateway matchlog.Gateway
	ctx     context.Context
}

func (s *GatewaySuite) SetupTest() {
	s.Clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.Gateway = s.NewGateway(s.Clock)
	s.ctx = context.Background()
}

func meta(roomID model.RoomID, blue, red model.UserID) model.MetaData {
	return model.MetaData{
		RoomID:     roomID,
		PlayerBlue: model.Player{SessionID: "s-blue", UserID: blue, Nickname: "blue"},
		PlayerRed:  model.Player{SessionID: "s-red", UserID: red, Nickname: "red"},
		IsRankGame: true,
	}
}

func (s *GatewaySuite) TestSaveInitialMatch() {
	rule := model.RuleData{PaddleSize: 1.5, BallSpeed: 0.5, MatchScore: 7, IsRankGame: true}

	logID, err := s.Gateway.SaveInitialMatch(s.ctx, meta("room-1", 10, 20), rule)
	s.Require().NoError(err)
	s.NotEmpty(logID)

	rec, err := s.Gateway.GetMatch(s.ctx, logID)
	s.Require().NoError(err)
	s.Equal(model.RoomID("room-1"), rec.RoomID)
	s.True(rec.IsRankGame)
	s.Equal(model.UserID(10), rec.BlueUserID)
	s.Equal(model.UserID(20), rec.RedUserID)
	s.Equal("blue", rec.BlueNickname)
	s.Equal("red", rec.RedNickname)
	s.Equal(1.5, rec.PaddleSize)
	s.Equal(0.5, rec.BallSpeed)
	s.Equal(7, rec.MatchScore)
	s.False(rec.Finished())
	s.Equal(model.UserID(0), rec.WinnerUserID)
}

func (s *GatewaySuite) TestSaveFinalMatch() {
	logID, err := s.Gateway.SaveInitialMatch(s.ctx, meta("room-1", 10, 20), model.DefaultRuleData())
	s.Require().NoError(err)

	err = s.Gateway.SaveFinalMatch(s.ctx, matchlog.FinalMatch{
		LogID: logID, RoomID: "room-1", ScoreBlue: 5, ScoreRed: 2, WinnerUserID: 10,
	})
	s.Require().NoError(err)

	rec, err := s.Gateway.GetMatch(s.ctx, logID)
	s.Require().NoError(err)
	s.True(rec.Finished())
	s.Equal(5, rec.ScoreBlue)
	s.Equal(2, rec.ScoreRed)
	s.Equal(model.UserID(10), rec.WinnerUserID)
}

func (s *GatewaySuite) TestSaveFinalMatchTwiceIsIdempotent() {
	logID, _ := s.Gateway.SaveInitialMatch(s.ctx, meta("room-1", 10, 20), model.DefaultRuleData())
	final := matchlog.FinalMatch{LogID: logID, RoomID: "room-1", ScoreBlue: 1, ScoreRed: 5, WinnerUserID: 20}

	s.Require().NoError(s.Gateway.SaveFinalMatch(s.ctx, final))
	first, err := s.Gateway.GetMatch(s.ctx, logID)
	s.Require().NoError(err)

	s.Clock.Advance(time.Minute)
	s.Require().NoError(s.Gateway.SaveFinalMatch(s.ctx, final))
	second, err := s.Gateway.GetMatch(s.ctx, logID)
	s.Require().NoError(err)

	s.Equal(first, second)
}

func (s *GatewaySuite) TestSaveFinalMatchWithDifferentOutcomeFails() {
	logID, _ := s.Gateway.SaveInitialMatch(s.ctx, meta("room-1", 10, 20), model.DefaultRuleData())
	s.Require().NoError(s.Gateway.SaveFinalMatch(s.ctx, matchlog.FinalMatch{
		LogID: logID, ScoreBlue: 5, ScoreRed: 0, WinnerUserID: 10,
	}))

	err := s.Gateway.SaveFinalMatch(s.ctx, matchlog.FinalMatch{
		LogID: logID, ScoreBlue: 0, ScoreRed: 5, WinnerUserID: 20,
	})
	s.ErrorIs(err, model.ErrMatchLogFinalized)

	rec, _ := s.Gateway.GetMatch(s.ctx, logID)
	s.Equal(model.UserID(10), rec.WinnerUserID)
}

func (s *GatewaySuite) TestSaveFinalMatchFallsBackToRoom() {
	logID, _ := s.Gateway.SaveInitialMatch(s.ctx, meta("room-1", 10, 20), model.DefaultRuleData())
	_, _ = s.Gateway.SaveInitialMatch(s.ctx, meta("room-2", 30, 40), model.DefaultRuleData())

	err := s.Gateway.SaveFinalMatch(s.ctx, matchlog.FinalMatch{
		RoomID: "room-1", ScoreBlue: 5, ScoreRed: 1, WinnerUserID: 10,
	})
	s.Require().NoError(err)

	rec, _ := s.Gateway.GetMatch(s.ctx, logID)
	s.True(rec.Finished())
	s.Equal(5, rec.ScoreBlue)
}

func (s *GatewaySuite) TestSaveFinalMatchUnknown() {
	err := s.Gateway.SaveFinalMatch(s.ctx, matchlog.FinalMatch{LogID: "00000000-0000-4000-8000-999999999999"})
	s.ErrorIs(err, model.ErrMatchLogNotFound)

	err = s.Gateway.SaveFinalMatch(s.ctx, matchlog.FinalMatch{RoomID: "no-such-room"})
	s.ErrorIs(err, model.ErrMatchLogNotFound)
}

func (s *GatewaySuite) TestGetMatchNotFound() {
	_, err := s.Gateway.GetMatch(s.ctx, "00000000-0000-4000-8000-999999999999")
	s.ErrorIs(err, model.ErrMatchLogNotFound)
}

func (s *GatewaySuite) TestListMatchesNewestFirst() {
	first, _ := s.Gateway.SaveInitialMatch(s.ctx, meta("room-1", 10, 20), model.DefaultRuleData())
	s.Clock.Advance(time.Minute)
	_, _ = s.Gateway.SaveInitialMatch(s.ctx, meta("room-2", 30, 40), model.DefaultRuleData())
	s.Clock.Advance(time.Minute)
	third, _ := s.Gateway.SaveInitialMatch(s.ctx, meta("room-3", 20, 10), model.DefaultRuleData())

	records, err := s.Gateway.ListMatches(s.ctx, 10, 0)
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(third, records[0].LogID)
	s.Equal(first, records[1].LogID)

	limited, err := s.Gateway.ListMatches(s.ctx, 10, 1)
	s.Require().NoError(err)
	s.Require().Len(limited, 1)
	s.Equal(third, limited[0].LogID)
}

func (s *GatewaySuite) TestListMatchesEmpty() {
	records, err := s.Gateway.ListMatches(s.ctx, 99, 10)
	s.Require().NoError(err)
	s.Empty(records)
}
