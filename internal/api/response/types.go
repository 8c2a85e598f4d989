package response

import (
	"time"

	"github.com/mcoot/pongmatch-go/internal/events"
	"github.com/mcoot/pongmatch-go/internal/matchlog"
	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/services/auth"
)

// User represents a user in API responses
type User struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
	IsGuest  bool   `json:"is_guest"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u model.User) User {
	return User{
		ID:       int64(u.ID),
		Nickname: u.Nickname,
		IsGuest:  u.IsGuest,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	User         User      `json:"user"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		User:         UserFromModel(s.User),
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// MeResponse describes the authenticated user
type MeResponse struct {
	User   User   `json:"user"`
	Rating int    `json:"rating"`
	RoomID string `json:"room_id,omitempty"`
}

// QueueResponse is the response for joining a queue
type QueueResponse struct {
	Queued bool   `json:"queued"`
	RoomID string `json:"room_id,omitempty"`
}

// DequeueResponse is the response for leaving a queue
type DequeueResponse struct {
	Removed bool `json:"removed"`
}

// RoomsResponse lists the active rooms
type RoomsResponse struct {
	Rooms []string `json:"rooms"`
}

// InvitationsResponse lists pending invitations
type InvitationsResponse struct {
	Invitations []events.Invitation `json:"invitations"`
}

// InvitationsFromModel converts a slice of invitations
func InvitationsFromModel(invs []*model.Invitation) InvitationsResponse {
	out := make([]events.Invitation, 0, len(invs))
	for _, inv := range invs {
		out = append(out, events.InvitationFromModel(inv))
	}
	return InvitationsResponse{Invitations: out}
}

// Ranking is one row of the leaderboard
type Ranking struct {
	Position int    `json:"position"`
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname,omitempty"`
	Rating   int    `json:"rating"`
}

// RankingsResponse is the leaderboard
type RankingsResponse struct {
	Rankings []Ranking `json:"rankings"`
}

// MatchRecord is a persisted match in API responses
type MatchRecord struct {
	LogID        string      `json:"log_id"`
	RoomID       string      `json:"room_id"`
	IsRankGame   bool        `json:"is_rank_game"`
	Blue         User        `json:"blue"`
	Red          User        `json:"red"`
	ScoreBlue    int         `json:"score_blue"`
	ScoreRed     int         `json:"score_red"`
	WinnerUserID *int64      `json:"winner_user_id"`
	Rule         events.Rule `json:"rule_data"`
	CreatedAt    time.Time   `json:"created_at"`
	FinishedAt   *time.Time  `json:"finished_at"`
}

// MatchRecordFromLog converts a matchlog.Record
func MatchRecordFromLog(r matchlog.Record) MatchRecord {
	out := MatchRecord{
		LogID:      string(r.LogID),
		RoomID:     string(r.RoomID),
		IsRankGame: r.IsRankGame,
		Blue:       User{ID: int64(r.BlueUserID), Nickname: r.BlueNickname},
		Red:        User{ID: int64(r.RedUserID), Nickname: r.RedNickname},
		ScoreBlue:  r.ScoreBlue,
		ScoreRed:   r.ScoreRed,
		Rule: events.Rule{
			PaddleSize: r.PaddleSize,
			BallSpeed:  r.BallSpeed,
			MatchScore: r.MatchScore,
			IsRankGame: r.IsRankGame,
		},
		CreatedAt:  r.CreatedAt,
		FinishedAt: r.FinishedAt,
	}
	if r.WinnerUserID != 0 {
		winner := int64(r.WinnerUserID)
		out.WinnerUserID = &winner
	}
	return out
}

// MatchHistoryResponse lists a user's recent matches
type MatchHistoryResponse struct {
	Matches []MatchRecord `json:"matches"`
}
