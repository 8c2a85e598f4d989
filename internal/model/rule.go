package model

import "fmt"

// Rule bounds
const (
	MinPaddleSize = 0.5
	MaxPaddleSize = 2.0
	MinBallSpeed  = 0.5
	MaxBallSpeed  = 2.0
	MinMatchScore = 1
	MaxMatchScore = 21
)

// RuleData holds the negotiated rules of a match.
// PaddleSize and BallSpeed are multiplicative scale factors applied at use time.
type RuleData struct {
	PaddleSize float64
	BallSpeed  float64
	MatchScore int
	IsRankGame bool
}

// DefaultRuleData returns the rules used when nothing was negotiated
func DefaultRuleData() RuleData {
	return RuleData{
		PaddleSize: 1.0,
		BallSpeed:  1.0,
		MatchScore: 5,
		IsRankGame: false,
	}
}

// Validate checks every field is within its allowed range
func (r RuleData) Validate() error {
	if r.PaddleSize < MinPaddleSize || r.PaddleSize > MaxPaddleSize {
		return fmt.Errorf("%w: paddle size %.2f not in [%.1f, %.1f]", ErrInvalidRule, r.PaddleSize, MinPaddleSize, MaxPaddleSize)
	}
	if r.BallSpeed < MinBallSpeed || r.BallSpeed > MaxBallSpeed {
		return fmt.Errorf("%w: ball speed %.2f not in [%.1f, %.1f]", ErrInvalidRule, r.BallSpeed, MinBallSpeed, MaxBallSpeed)
	}
	if r.MatchScore < MinMatchScore || r.MatchScore > MaxMatchScore {
		return fmt.Errorf("%w: match score %d not in [%d, %d]", ErrInvalidRule, r.MatchScore, MinMatchScore, MaxMatchScore)
	}
	return nil
}

// RulePatch is a partial rule update sent during the ready phase.
// Nil fields are left unchanged. The rank flag cannot be patched.
type RulePatch struct {
	PaddleSize *float64
	BallSpeed  *float64
	MatchScore *int
}

// IsEmpty returns true if the patch changes nothing
func (p RulePatch) IsEmpty() bool {
	return p.PaddleSize == nil && p.BallSpeed == nil && p.MatchScore == nil
}

// Apply returns a copy of r with the patch merged in, validated
func (r RuleData) Apply(p RulePatch) (RuleData, error) {
	next := r
	if p.PaddleSize != nil {
		next.PaddleSize = *p.PaddleSize
	}
	if p.BallSpeed != nil {
		next.BallSpeed = *p.BallSpeed
	}
	if p.MatchScore != nil {
		next.MatchScore = *p.MatchScore
	}
	if err := next.Validate(); err != nil {
		return r, err
	}
	return next, nil
}

// MergeRules combines the rules requested by both sides of a pairing.
// Ball speed, match score and the rank flag come from the initiator,
// paddle size from the responder.
func MergeRules(initiator, responder RuleData) RuleData {
	return RuleData{
		PaddleSize: responder.PaddleSize,
		BallSpeed:  initiator.BallSpeed,
		MatchScore: initiator.MatchScore,
		IsRankGame: initiator.IsRankGame,
	}
}
