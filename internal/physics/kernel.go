// Package physics advances paddle and ball positions and classifies
// collisions and goals. Every function is pure: values in, values out.
package physics

import (
	"math"

	"github.com/mcoot/pongmatch-go/internal/model"
)

// WallBound classifies a ball/wall contact
type WallBound int

const (
	WallNone WallBound = iota
	WallTop
	WallBottom
)

// PaddleBound classifies a ball/paddle contact
type PaddleBound int

const (
	PaddleNone PaddleBound = iota
	PaddleBlue
	PaddleRed
)

// Result classifies a round or a whole match
type Result int

const (
	ResultPlaying Result = iota
	ResultBlueWin
	ResultRedWin
)

// Side returns the winning side, or false while still playing
func (r Result) Side() (model.Side, bool) {
	switch r {
	case ResultBlueWin:
		return model.SideBlue, true
	case ResultRedWin:
		return model.SideRed, true
	default:
		return "", false
	}
}

// NewInGameData returns the state of a freshly created match
func NewInGameData(g Geometry) model.InGameData {
	st := model.InGameData{
		Frame:  0,
		Status: model.StatusReady,
	}
	st.PaddleBlue.Position = model.Vec2{X: g.PaddleX(model.SideBlue), Y: g.ArenaHeight / 2}
	st.PaddleRed.Position = model.Vec2{X: g.PaddleX(model.SideRed), Y: g.ArenaHeight / 2}
	return ResetRound(g, st, model.SideRed)
}

// MovePaddles applies each paddle's velocity and clamps it so the far edge
// stays inside the arena
func MovePaddles(g Geometry, st model.InGameData, rule model.RuleData) model.InGameData {
	half := g.PaddleHalfHeight(rule)
	for _, side := range []model.Side{model.SideBlue, model.SideRed} {
		p := st.Paddle(side)
		y := p.Position.Y + p.Velocity.Y*g.PaddleStep()
		p.Position.Y = clamp(y, half, g.ArenaHeight-half)
	}
	return st
}

// MoveBall applies the ball velocity scaled by the ball speed rule
func MoveBall(g Geometry, st model.InGameData, rule model.RuleData) model.InGameData {
	step := g.BallStep(rule)
	st.Ball.Position.X += st.Ball.Velocity.X * step
	st.Ball.Position.Y += st.Ball.Velocity.Y * step
	return st
}

// CheckWallBound reports whether the ball touches the top or bottom wall
func CheckWallBound(g Geometry, st model.InGameData) WallBound {
	switch {
	case st.Ball.Position.Y+g.BallRadius >= g.ArenaHeight:
		return WallTop
	case st.Ball.Position.Y-g.BallRadius <= 0:
		return WallBottom
	default:
		return WallNone
	}
}

// BounceWall reflects the vertical velocity away from the touched wall
// and pulls the ball back inside the arena
func BounceWall(g Geometry, st model.InGameData, wall WallBound) model.InGameData {
	switch wall {
	case WallTop:
		st.Ball.Velocity.Y = -math.Abs(st.Ball.Velocity.Y)
		st.Ball.Position.Y = g.ArenaHeight - g.BallRadius
	case WallBottom:
		st.Ball.Velocity.Y = math.Abs(st.Ball.Velocity.Y)
		st.Ball.Position.Y = g.BallRadius
	}
	return st
}

// CheckPaddleBound reports whether the ball is in contact with a paddle it
// is travelling towards
func CheckPaddleBound(g Geometry, st model.InGameData, rule model.RuleData) PaddleBound {
	ball := st.Ball
	reach := g.PaddleHalfHeight(rule) + g.BallRadius
	halfWidth := g.PaddleWidth / 2

	if ball.Velocity.X < 0 {
		x := g.PaddleX(model.SideBlue)
		if ball.Position.X-g.BallRadius <= x+halfWidth &&
			ball.Position.X+g.BallRadius >= x-halfWidth &&
			math.Abs(ball.Position.Y-st.PaddleBlue.Position.Y) <= reach {
			return PaddleBlue
		}
	}
	if ball.Velocity.X > 0 {
		x := g.PaddleX(model.SideRed)
		if ball.Position.X+g.BallRadius >= x-halfWidth &&
			ball.Position.X-g.BallRadius <= x+halfWidth &&
			math.Abs(ball.Position.Y-st.PaddleRed.Position.Y) <= reach {
			return PaddleRed
		}
	}
	return PaddleNone
}

// BouncePaddle deflects the ball off a paddle. The outgoing angle is
// proportional to the hit offset from the paddle centre, bounded by
// MaxBounceAngle.
func BouncePaddle(g Geometry, st model.InGameData, rule model.RuleData, bound PaddleBound) model.InGameData {
	var side model.Side
	var dirX float64
	switch bound {
	case PaddleBlue:
		side, dirX = model.SideBlue, 1
	case PaddleRed:
		side, dirX = model.SideRed, -1
	default:
		return st
	}

	paddle := st.Paddle(side)
	reach := g.PaddleHalfHeight(rule) + g.BallRadius
	offset := clamp((st.Ball.Position.Y-paddle.Position.Y)/reach, -1, 1)
	angle := offset * g.MaxBounceAngle

	st.Ball.Velocity = model.Vec2{
		X: dirX * math.Cos(angle),
		Y: math.Sin(angle),
	}
	// Put the ball on the paddle face so it cannot register twice
	st.Ball.Position.X = g.PaddleX(side) + dirX*(g.PaddleWidth/2+g.BallRadius)
	return st
}

// CheckScorePosition reports which side won the round, if the ball has
// crossed a goal line
func CheckScorePosition(g Geometry, st model.InGameData) Result {
	switch {
	case st.Ball.Position.X < 0:
		return ResultRedWin
	case st.Ball.Position.X > g.ArenaWidth:
		return ResultBlueWin
	default:
		return ResultPlaying
	}
}

// CheckEndOfGame compares cumulative scores to the target score
func CheckEndOfGame(st model.InGameData, rule model.RuleData) Result {
	switch {
	case st.ScoreBlue >= rule.MatchScore:
		return ResultBlueWin
	case st.ScoreRed >= rule.MatchScore:
		return ResultRedWin
	default:
		return ResultPlaying
	}
}

// ResetRound puts the ball and both paddles back at their start positions
// and serves towards the given side. Paddle inputs are kept.
func ResetRound(g Geometry, st model.InGameData, serveToward model.Side) model.InGameData {
	st.Ball.Position = g.Center()
	st.Ball.Velocity = ServeVelocity(g, serveToward, st.TotalScore())
	st.PaddleBlue.Position = model.Vec2{X: g.PaddleX(model.SideBlue), Y: g.ArenaHeight / 2}
	st.PaddleRed.Position = model.Vec2{X: g.PaddleX(model.SideRed), Y: g.ArenaHeight / 2}
	return st
}

// ServeVelocity returns the unit serve direction. The vertical sign
// alternates with the number of points played so serves are not repeated.
func ServeVelocity(g Geometry, toward model.Side, pointsPlayed int) model.Vec2 {
	dirX := 1.0
	if toward == model.SideBlue {
		dirX = -1
	}
	dirY := 1.0
	if pointsPlayed%2 == 1 {
		dirY = -1
	}
	return model.Vec2{
		X: dirX * math.Cos(g.ServeAngle),
		Y: dirY * math.Sin(g.ServeAngle),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
