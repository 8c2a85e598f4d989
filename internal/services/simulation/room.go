package simulation

import (
	"sync"

	"github.com/mcoot/pongmatch-go/internal/model"
)

// Room guards the state of one match. Ticks and player commands for the
// same room are serialized by its mutex; rooms never share a lock.
type Room struct {
	id model.RoomID

	mu    sync.Mutex
	game  *model.GameData
	ready [2]bool // blue, red
}

// NewRoom wraps a freshly created match
func NewRoom(game *model.GameData) *Room {
	return &Room{
		id:   game.Meta.RoomID,
		game: game,
	}
}

// ID returns the room identifier
func (r *Room) ID() model.RoomID {
	return r.id
}

// Snapshot returns a copy of the current match state
func (r *Room) Snapshot() *model.GameData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.Clone()
}

// Step advances the room by one frame. ended is true only on the frame
// that moved the match into the end state.
func (r *Room) Step(cfg Config) (events []model.Event, ended bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasEnded := r.game.InGame.Status == model.StatusEnd
	events = Advance(r.game, cfg, r.ready[0] && r.ready[1])
	return events, !wasEnded && r.game.InGame.Status == model.StatusEnd
}

// SetPaddle sets the paddle velocity of the user's side.
// Returns false if the user is not a player or the match is over.
func (r *Room) SetPaddle(userID model.UserID, dir model.Direction) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	side, ok := r.game.Meta.SideOf(userID)
	if !ok || r.game.InGame.Status == model.StatusEnd {
		return false
	}
	r.game.InGame.Paddle(side).Velocity.Y = float64(dir)
	return true
}

// SetReady records a player's readiness during the warm-up.
// Once both players are ready the next frame starts play.
func (r *Room) SetReady(userID model.UserID, isReady bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	side, ok := r.game.Meta.SideOf(userID)
	if !ok {
		return model.ErrNotInMatch
	}
	if r.game.InGame.Status != model.StatusReady {
		return model.ErrMatchStarted
	}
	r.ready[sideIndex(side)] = isReady
	return nil
}

// ApplyRule merges a rule patch while the match is still warming up
func (r *Room) ApplyRule(userID model.UserID, patch model.RulePatch) (model.RuleData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.game.Meta.SideOf(userID); !ok {
		return r.game.Rule, model.ErrNotInMatch
	}
	if r.game.InGame.Status != model.StatusReady {
		return r.game.Rule, model.ErrMatchStarted
	}
	rule, err := r.game.Rule.Apply(patch)
	if err != nil {
		return r.game.Rule, err
	}
	r.game.Rule = rule
	return rule, nil
}

// SetLogID records the persisted match record handle
func (r *Room) SetLogID(logID model.LogID) {
	r.mu.Lock()
	r.game.Meta.LogID = logID
	r.mu.Unlock()
}

// Forfeit ends the match in favour of the opponent of loser.
// Returns the final state, or false if the match had already ended.
func (r *Room) Forfeit(loser model.UserID) (*model.GameData, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	side, ok := r.game.Meta.SideOf(loser)
	if !ok || r.game.InGame.Status == model.StatusEnd {
		return nil, false
	}
	r.game.InGame.Status = model.StatusEnd
	r.game.InGame.WinnerUserID = r.game.Meta.PlayerOn(side.Opponent()).UserID
	return r.game.Clone(), true
}

func sideIndex(side model.Side) int {
	if side == model.SideBlue {
		return 0
	}
	return 1
}
