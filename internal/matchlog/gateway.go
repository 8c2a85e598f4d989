// Package matchlog defines how finished and in-progress matches are
// persisted. The match core only depends on Gateway; gormlog and memory
// provide the implementations.
package matchlog

import (
	"context"
	"time"

	"github.com/mcoot/pongmatch-go/internal/model"
)

// Gateway persists one record per match
type Gateway interface {
	// SaveInitialMatch creates the record for a new match and returns its handle
	SaveInitialMatch(ctx context.Context, meta model.MetaData, rule model.RuleData) (model.LogID, error)

	// SaveFinalMatch records the outcome. Submitting the same outcome for the
	// same log twice leaves the record unchanged. If LogID is empty the latest
	// record for RoomID is used.
	SaveFinalMatch(ctx context.Context, final FinalMatch) error

	// GetMatch returns a single record
	GetMatch(ctx context.Context, logID model.LogID) (*Record, error)

	// ListMatches returns the most recent records the user played in, newest first
	ListMatches(ctx context.Context, userID model.UserID, limit int) ([]Record, error)
}

// FinalMatch is the outcome of a match
type FinalMatch struct {
	LogID        model.LogID
	RoomID       model.RoomID
	ScoreBlue    int
	ScoreRed     int
	WinnerUserID model.UserID
}

// NewFinalMatch builds the outcome from the final state of a match
func NewFinalMatch(game *model.GameData) FinalMatch {
	return FinalMatch{
		LogID:        game.Meta.LogID,
		RoomID:       game.Meta.RoomID,
		ScoreBlue:    game.InGame.ScoreBlue,
		ScoreRed:     game.InGame.ScoreRed,
		WinnerUserID: game.InGame.WinnerUserID,
	}
}

// Record is a persisted match
type Record struct {
	LogID        model.LogID
	RoomID       model.RoomID
	IsRankGame   bool
	BlueUserID   model.UserID
	RedUserID    model.UserID
	BlueNickname string
	RedNickname  string
	WinnerUserID model.UserID // 0 while unfinished
	ScoreBlue    int
	ScoreRed     int
	PaddleSize   float64
	BallSpeed    float64
	MatchScore   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}

// Finished returns true once a final outcome has been saved
func (r *Record) Finished() bool {
	return r.FinishedAt != nil
}

// SameOutcome returns true if the record already holds exactly this outcome
func (r *Record) SameOutcome(final FinalMatch) bool {
	return r.ScoreBlue == final.ScoreBlue &&
		r.ScoreRed == final.ScoreRed &&
		r.WinnerUserID == final.WinnerUserID
}

// CheckFinal decides what to do with an outcome for an existing record.
// write is false when the record already holds the same outcome.
func CheckFinal(existing *Record, final FinalMatch) (write bool, err error) {
	if !existing.Finished() {
		return true, nil
	}
	if existing.SameOutcome(final) {
		return false, nil
	}
	return false, model.ErrMatchLogFinalized
}
