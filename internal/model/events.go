package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	// Lifecycle events
	EventMatchReady EventType = "match:ready"
	EventMatchStart EventType = "match:start"
	EventMatchEnd   EventType = "match:end"

	// Per-frame events
	EventMatchRender EventType = "match:render"
	EventMatchScore  EventType = "match:score"

	// Ready-phase negotiation
	EventMatchRule   EventType = "match:rule"
	EventPlayerReady EventType = "match:player-ready"
)

// Event is the base structure for all match events
type Event struct {
	Type      EventType
	Timestamp time.Time
	RoomID    RoomID
	Players   [2]UserID // Blue then red; the players the event is delivered to
	Payload   any       // Type-specific data
}

// MatchReadyPayload contains data for match ready events
type MatchReadyPayload struct {
	Rule     RuleData
	BlueUser Player
	RedUser  Player
}

// MatchStartPayload contains data for match start events
type MatchStartPayload struct {
	Frame int64
}

// MatchRenderPayload contains the positions of one frame
type MatchRenderPayload struct {
	Frame      int64
	Ball       Body
	PaddleBlue Body
	PaddleRed  Body
}

// MatchScorePayload contains data for score events
type MatchScorePayload struct {
	ScoreBlue int
	ScoreRed  int
	Scorer    Side
}

// MatchEndPayload carries the final state of a match
type MatchEndPayload struct {
	Meta   MetaData
	InGame InGameData
}

// MatchRulePayload relays a rule change to both players
type MatchRulePayload struct {
	UserID UserID
	Patch  RulePatch
	Rule   RuleData
}

// PlayerReadyPayload relays a player's readiness to the opponent
type PlayerReadyPayload struct {
	UserID  UserID
	IsReady bool
}

// NewMatchEvent creates an event addressed to both players of a match.
// The timestamp is stamped by whoever publishes it.
func NewMatchEvent(eventType EventType, meta MetaData, payload any) Event {
	return Event{
		Type:    eventType,
		RoomID:  meta.RoomID,
		Players: [2]UserID{meta.PlayerBlue.UserID, meta.PlayerRed.UserID},
		Payload: payload,
	}
}
