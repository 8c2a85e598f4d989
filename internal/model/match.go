package model

// RoomID uniquely identifies an active match
type RoomID string

// LogID is the handle of a persisted match record
type LogID string

// GameStatus is the state of the per-match state machine
type GameStatus string

const (
	StatusReady     GameStatus = "ready"      // Warm-up before the first serve
	StatusPlaying   GameStatus = "playing"    // Ball in play
	StatusScoreBlue GameStatus = "score_blue" // Ball crossed red's goal line
	StatusScoreRed  GameStatus = "score_red"  // Ball crossed blue's goal line
	StatusEnd       GameStatus = "end"        // Terminal
)

// Side identifies one of the two players
type Side string

const (
	SideBlue Side = "blue"
	SideRed  Side = "red"
)

// Opponent returns the other side
func (s Side) Opponent() Side {
	if s == SideBlue {
		return SideRed
	}
	return SideBlue
}

// Direction is a paddle input command
type Direction int

const (
	DirectionUp   Direction = 1
	DirectionStop Direction = 0
	DirectionDown Direction = -1
)

// Valid returns true for UP, STOP and DOWN
func (d Direction) Valid() bool {
	return d == DirectionUp || d == DirectionStop || d == DirectionDown
}

// Vec2 is a 2D vector in arena units
type Vec2 struct {
	X float64
	Y float64
}

// Body is anything with a position and a velocity
type Body struct {
	Position Vec2
	Velocity Vec2
}

// MetaData is created once per match; only LogID is filled in later
type MetaData struct {
	RoomID     RoomID
	PlayerBlue Player
	PlayerRed  Player
	IsRankGame bool
	LogID      LogID
}

// PlayerOn returns the player on the given side
func (m MetaData) PlayerOn(side Side) Player {
	if side == SideBlue {
		return m.PlayerBlue
	}
	return m.PlayerRed
}

// SideOf returns the side the user plays on, or false if not a player
func (m MetaData) SideOf(userID UserID) (Side, bool) {
	switch userID {
	case m.PlayerBlue.UserID:
		return SideBlue, true
	case m.PlayerRed.UserID:
		return SideRed, true
	default:
		return "", false
	}
}

// InGameData is the per-frame state, mutated only by the simulation tick
type InGameData struct {
	Frame        int64
	Status       GameStatus
	ScoreBlue    int
	ScoreRed     int
	WinnerUserID UserID // 0 until a winner is known
	Ball         Body
	PaddleBlue   Body
	PaddleRed    Body
}

// HasWinner returns true once a winner has been recorded
func (g InGameData) HasWinner() bool {
	return g.WinnerUserID != 0
}

// TotalScore returns the sum of both scores
func (g InGameData) TotalScore() int {
	return g.ScoreBlue + g.ScoreRed
}

// Paddle returns the paddle of the given side
func (g *InGameData) Paddle(side Side) *Body {
	if side == SideBlue {
		return &g.PaddleBlue
	}
	return &g.PaddleRed
}

// GameData is the unit of state for one match
type GameData struct {
	Meta   MetaData
	Rule   RuleData
	InGame InGameData
}

// Clone returns a copy safe to hand out of the room lock
func (g *GameData) Clone() *GameData {
	c := *g
	return &c
}

// LoserUserID returns the user who did not win, or 0 if no winner yet
func (g *GameData) LoserUserID() UserID {
	switch g.InGame.WinnerUserID {
	case 0:
		return 0
	case g.Meta.PlayerBlue.UserID:
		return g.Meta.PlayerRed.UserID
	default:
		return g.Meta.PlayerBlue.UserID
	}
}
