package physics

import (
	"math"

	"github.com/mcoot/pongmatch-go/internal/model"
)

// Geometry holds the fixed arena, paddle and ball constants.
// The arena origin is the bottom-left corner with Y pointing up;
// blue defends the left goal line (x = 0) and red the right one (x = ArenaWidth).
type Geometry struct {
	ArenaWidth  float64
	ArenaHeight float64

	PaddleWidth  float64
	PaddleHeight float64 // Unscaled; multiplied by RuleData.PaddleSize
	PaddleGap    float64 // Distance from the goal line to the paddle centre
	PaddleSpeed  float64 // Units per frame

	BallRadius float64
	BallSpeed  float64 // Units per frame; multiplied by RuleData.BallSpeed

	MaxBounceAngle float64 // Radians; deflection at the very edge of a paddle
	ServeAngle     float64 // Radians from the horizontal
}

// DefaultGeometry returns the standard arena
func DefaultGeometry() Geometry {
	return Geometry{
		ArenaWidth:     1000,
		ArenaHeight:    600,
		PaddleWidth:    10,
		PaddleHeight:   100,
		PaddleGap:      30,
		PaddleSpeed:    8,
		BallRadius:     10,
		BallSpeed:      6,
		MaxBounceAngle: 5 * math.Pi / 12,
		ServeAngle:     math.Pi / 6,
	}
}

// Center returns the centre of the arena
func (g Geometry) Center() model.Vec2 {
	return model.Vec2{X: g.ArenaWidth / 2, Y: g.ArenaHeight / 2}
}

// PaddleX returns the fixed horizontal centre of a side's paddle
func (g Geometry) PaddleX(side model.Side) float64 {
	if side == model.SideBlue {
		return g.PaddleGap
	}
	return g.ArenaWidth - g.PaddleGap
}

// PaddleHalfHeight returns half the scaled paddle height
func (g Geometry) PaddleHalfHeight(rule model.RuleData) float64 {
	return g.PaddleHeight * rule.PaddleSize / 2
}

// PaddleStep returns the paddle displacement per frame at full input
func (g Geometry) PaddleStep() float64 {
	return g.PaddleSpeed
}

// BallStep returns the ball displacement per frame along its unit velocity
func (g Geometry) BallStep(rule model.RuleData) float64 {
	return g.BallSpeed * rule.BallSpeed
}
