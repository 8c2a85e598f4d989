package simulation

import (
	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/physics"
)

// Advance steps the match state machine by exactly one frame and returns the
// events the frame produced. An ended match is left untouched.
//
// startNow skips whatever is left of the warm-up.
func Advance(game *model.GameData, cfg Config, startNow bool) []model.Event {
	g := cfg.Geometry
	st := game.InGame
	var events []model.Event

	switch st.Status {
	case model.StatusEnd:
		return nil

	case model.StatusReady:
		st.Frame++
		if startNow || st.Frame >= cfg.WarmupFrames {
			st.Status = model.StatusPlaying
			events = append(events, model.NewMatchEvent(model.EventMatchStart, game.Meta,
				model.MatchStartPayload{Frame: st.Frame}))
		}

	case model.StatusPlaying:
		st.Frame++
		// Order matters: a goal is only counted after the paddle had its chance
		st = physics.MovePaddles(g, st, game.Rule)
		st = physics.MoveBall(g, st, game.Rule)
		if wall := physics.CheckWallBound(g, st); wall != physics.WallNone {
			st = physics.BounceWall(g, st, wall)
		}
		if paddle := physics.CheckPaddleBound(g, st, game.Rule); paddle != physics.PaddleNone {
			st = physics.BouncePaddle(g, st, game.Rule, paddle)
		}
		switch physics.CheckScorePosition(g, st) {
		case physics.ResultBlueWin:
			st.Status = model.StatusScoreBlue
		case physics.ResultRedWin:
			st.Status = model.StatusScoreRed
		}
		events = append(events, model.NewMatchEvent(model.EventMatchRender, game.Meta,
			model.MatchRenderPayload{
				Frame:      st.Frame,
				Ball:       st.Ball,
				PaddleBlue: st.PaddleBlue,
				PaddleRed:  st.PaddleRed,
			}))

	case model.StatusScoreBlue, model.StatusScoreRed:
		st.Frame++
		scorer := model.SideBlue
		if st.Status == model.StatusScoreRed {
			scorer = model.SideRed
		}
		if scorer == model.SideBlue {
			st.ScoreBlue++
		} else {
			st.ScoreRed++
		}
		st = physics.ResetRound(g, st, scorer.Opponent())
		events = append(events, model.NewMatchEvent(model.EventMatchScore, game.Meta,
			model.MatchScorePayload{
				ScoreBlue: st.ScoreBlue,
				ScoreRed:  st.ScoreRed,
				Scorer:    scorer,
			}))

		result := physics.CheckEndOfGame(st, game.Rule)
		if winner, ok := result.Side(); ok {
			st.Status = model.StatusEnd
			st.WinnerUserID = game.Meta.PlayerOn(winner).UserID
			events = append(events, model.NewMatchEvent(model.EventMatchEnd, game.Meta,
				model.MatchEndPayload{Meta: game.Meta, InGame: st}))
		} else {
			st.Status = model.StatusPlaying
		}
	}

	game.InGame = st
	return events
}
