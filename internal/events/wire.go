// Package events turns match events into the JSON messages delivered to
// players and spectators, and fans each event out to every delivery channel.
package events

import (
	"encoding/json"
	"time"

	"github.com/mcoot/pongmatch-go/internal/model"
)

// Vec is a 2D vector on the wire
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Body is a position and velocity on the wire
type Body struct {
	Position Vec `json:"position"`
	Velocity Vec `json:"velocity"`
}

// BodyFromModel converts a model.Body
func BodyFromModel(b model.Body) Body {
	return Body{
		Position: Vec{X: b.Position.X, Y: b.Position.Y},
		Velocity: Vec{X: b.Velocity.X, Y: b.Velocity.Y},
	}
}

// Rule is the negotiated rule set on the wire
type Rule struct {
	PaddleSize float64 `json:"paddle_size"`
	BallSpeed  float64 `json:"ball_speed"`
	MatchScore int     `json:"match_score"`
	IsRankGame bool    `json:"is_rank_game"`
}

// RuleFromModel converts a model.RuleData
func RuleFromModel(r model.RuleData) Rule {
	return Rule{
		PaddleSize: r.PaddleSize,
		BallSpeed:  r.BallSpeed,
		MatchScore: r.MatchScore,
		IsRankGame: r.IsRankGame,
	}
}

// RuleRequest is the rule set a player asks for. Omitted fields keep
// their default.
type RuleRequest struct {
	PaddleSize *float64 `json:"paddle_size,omitempty"`
	BallSpeed  *float64 `json:"ball_speed,omitempty"`
	MatchScore *int     `json:"match_score,omitempty"`
	IsRankGame bool     `json:"is_rank_game"`
}

// ToModel returns the requested rules over the defaults. The result is
// not validated.
func (r RuleRequest) ToModel() model.RuleData {
	rule := model.DefaultRuleData()
	if r.PaddleSize != nil {
		rule.PaddleSize = *r.PaddleSize
	}
	if r.BallSpeed != nil {
		rule.BallSpeed = *r.BallSpeed
	}
	if r.MatchScore != nil {
		rule.MatchScore = *r.MatchScore
	}
	rule.IsRankGame = r.IsRankGame
	return rule
}

// RulePatch is a warm-up rule change on the wire
type RulePatch struct {
	PaddleSize *float64 `json:"paddle_size,omitempty"`
	BallSpeed  *float64 `json:"ball_speed,omitempty"`
	MatchScore *int     `json:"match_score,omitempty"`
}

// ToModel converts to a model.RulePatch
func (p RulePatch) ToModel() model.RulePatch {
	return model.RulePatch{
		PaddleSize: p.PaddleSize,
		BallSpeed:  p.BallSpeed,
		MatchScore: p.MatchScore,
	}
}

// Player is a match participant on the wire
type Player struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
}

// PlayerFromModel converts a model.Player
func PlayerFromModel(p model.Player) Player {
	return Player{
		UserID:   int64(p.UserID),
		Nickname: p.Nickname,
	}
}

// Meta is the match metadata on the wire
type Meta struct {
	RoomID     string `json:"room_id"`
	BlueUser   Player `json:"blue_user"`
	RedUser    Player `json:"red_user"`
	IsRankGame bool   `json:"is_rank_game"`
	LogID      string `json:"log_id,omitempty"`
}

// MetaFromModel converts a model.MetaData
func MetaFromModel(m model.MetaData) Meta {
	return Meta{
		RoomID:     string(m.RoomID),
		BlueUser:   PlayerFromModel(m.PlayerBlue),
		RedUser:    PlayerFromModel(m.PlayerRed),
		IsRankGame: m.IsRankGame,
		LogID:      string(m.LogID),
	}
}

// InGame is the per-frame state on the wire
type InGame struct {
	Frame        int64  `json:"frame"`
	Status       string `json:"status"`
	ScoreBlue    int    `json:"score_blue"`
	ScoreRed     int    `json:"score_red"`
	WinnerUserID *int64 `json:"winner_user_id"`
	Ball         Body   `json:"ball"`
	PaddleBlue   Body   `json:"paddle_blue"`
	PaddleRed    Body   `json:"paddle_red"`
}

// InGameFromModel converts a model.InGameData
func InGameFromModel(g model.InGameData) InGame {
	out := InGame{
		Frame:      g.Frame,
		Status:     string(g.Status),
		ScoreBlue:  g.ScoreBlue,
		ScoreRed:   g.ScoreRed,
		Ball:       BodyFromModel(g.Ball),
		PaddleBlue: BodyFromModel(g.PaddleBlue),
		PaddleRed:  BodyFromModel(g.PaddleRed),
	}
	if g.HasWinner() {
		winner := int64(g.WinnerUserID)
		out.WinnerUserID = &winner
	}
	return out
}

// Game is a full match snapshot on the wire
type Game struct {
	MetaData   Meta   `json:"meta_data"`
	RuleData   Rule   `json:"rule_data"`
	InGameData InGame `json:"in_game_data"`
}

// GameFromModel converts a model.GameData
func GameFromModel(g *model.GameData) Game {
	return Game{
		MetaData:   MetaFromModel(g.Meta),
		RuleData:   RuleFromModel(g.Rule),
		InGameData: InGameFromModel(g.InGame),
	}
}

// Invitation is a pending challenge on the wire
type Invitation struct {
	ID        string    `json:"id"`
	InviterID int64     `json:"inviter_id"`
	InviteeID int64     `json:"invitee_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InvitationFromModel converts a model.Invitation
func InvitationFromModel(i *model.Invitation) Invitation {
	return Invitation{
		ID:        string(i.ID),
		InviterID: int64(i.InviterID),
		InviteeID: int64(i.InviteeID),
		CreatedAt: i.CreatedAt,
		ExpiresAt: i.ExpiresAt,
	}
}

// Message is one event as delivered to clients
type Message struct {
	Type      string    `json:"type"`
	RoomID    string    `json:"room_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// ReadyData is the data of match:ready
type ReadyData struct {
	RoomID   string `json:"room_id"`
	RuleData Rule   `json:"rule_data"`
	BlueUser Player `json:"blue_user"`
	RedUser  Player `json:"red_user"`
}

// StartData is the data of match:start
type StartData struct {
	RoomID string `json:"room_id"`
	Frame  int64  `json:"frame"`
}

// RenderData is the data of match:render
type RenderData struct {
	RoomID     string `json:"room_id"`
	Frame      int64  `json:"frame"`
	Ball       Body   `json:"ball"`
	PaddleBlue Body   `json:"paddle_blue"`
	PaddleRed  Body   `json:"paddle_red"`
}

// ScoreData is the data of match:score
type ScoreData struct {
	RoomID    string `json:"room_id"`
	ScoreBlue int    `json:"score_blue"`
	ScoreRed  int    `json:"score_red"`
	Scorer    string `json:"scorer"`
}

// EndData is the data of match:end
type EndData struct {
	RoomID     string `json:"room_id"`
	MetaData   Meta   `json:"meta_data"`
	InGameData InGame `json:"in_game_data"`
}

// RuleChangeData is the data of match:rule
type RuleChangeData struct {
	RoomID   string `json:"room_id"`
	UserID   int64  `json:"user_id"`
	RuleData Rule   `json:"rule_data"`
}

// PlayerReadyData is the data of match:player-ready
type PlayerReadyData struct {
	RoomID  string `json:"room_id"`
	UserID  int64  `json:"user_id"`
	IsReady bool   `json:"is_ready"`
}

// ToMessage converts an event to its wire message
func ToMessage(event model.Event) Message {
	roomID := string(event.RoomID)
	msg := Message{
		Type:      string(event.Type),
		RoomID:    roomID,
		Timestamp: event.Timestamp,
	}

	switch p := event.Payload.(type) {
	case model.MatchReadyPayload:
		msg.Data = ReadyData{
			RoomID:   roomID,
			RuleData: RuleFromModel(p.Rule),
			BlueUser: PlayerFromModel(p.BlueUser),
			RedUser:  PlayerFromModel(p.RedUser),
		}
	case model.MatchStartPayload:
		msg.Data = StartData{RoomID: roomID, Frame: p.Frame}
	case model.MatchRenderPayload:
		msg.Data = RenderData{
			RoomID:     roomID,
			Frame:      p.Frame,
			Ball:       BodyFromModel(p.Ball),
			PaddleBlue: BodyFromModel(p.PaddleBlue),
			PaddleRed:  BodyFromModel(p.PaddleRed),
		}
	case model.MatchScorePayload:
		msg.Data = ScoreData{
			RoomID:    roomID,
			ScoreBlue: p.ScoreBlue,
			ScoreRed:  p.ScoreRed,
			Scorer:    string(p.Scorer),
		}
	case model.MatchEndPayload:
		msg.Data = EndData{
			RoomID:     roomID,
			MetaData:   MetaFromModel(p.Meta),
			InGameData: InGameFromModel(p.InGame),
		}
	case model.MatchRulePayload:
		msg.Data = RuleChangeData{
			RoomID:   roomID,
			UserID:   int64(p.UserID),
			RuleData: RuleFromModel(p.Rule),
		}
	case model.PlayerReadyPayload:
		msg.Data = PlayerReadyData{
			RoomID:  roomID,
			UserID:  int64(p.UserID),
			IsReady: p.IsReady,
		}
	default:
		msg.Data = map[string]string{"room_id": roomID}
	}
	return msg
}

// Encode returns the JSON encoding of an event
func Encode(event model.Event) ([]byte, error) {
	return json.Marshal(ToMessage(event))
}
