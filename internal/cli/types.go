package cli

import "time"

// User response type (matches API)
type User struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
	IsGuest  bool   `json:"is_guest"`
}

// AuthResult combines user and token
type AuthResult struct {
	User         User      `json:"user"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// MeResult describes the authenticated user
type MeResult struct {
	User   User   `json:"user"`
	Rating int    `json:"rating"`
	RoomID string `json:"room_id,omitempty"`
}

// QueueResult is the outcome of joining a queue
type QueueResult struct {
	Queued bool   `json:"queued"`
	RoomID string `json:"room_id,omitempty"`
}

// DequeueResult is the outcome of leaving a queue
type DequeueResult struct {
	Removed bool `json:"removed"`
}

// Rule response type
type Rule struct {
	PaddleSize float64 `json:"paddle_size"`
	BallSpeed  float64 `json:"ball_speed"`
	MatchScore int     `json:"match_score"`
	IsRankGame bool    `json:"is_rank_game"`
}

// Participant is a match player
type Participant struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
}

// Meta response type
type Meta struct {
	RoomID     string      `json:"room_id"`
	BlueUser   Participant `json:"blue_user"`
	RedUser    Participant `json:"red_user"`
	IsRankGame bool        `json:"is_rank_game"`
	LogID      string      `json:"log_id,omitempty"`
}

// InGame response type
type InGame struct {
	Frame        int64  `json:"frame"`
	Status       string `json:"status"`
	ScoreBlue    int    `json:"score_blue"`
	ScoreRed     int    `json:"score_red"`
	WinnerUserID *int64 `json:"winner_user_id"`
}

// Game is a match snapshot
type Game struct {
	MetaData   Meta   `json:"meta_data"`
	RuleData   Rule   `json:"rule_data"`
	InGameData InGame `json:"in_game_data"`
}

// Invitation response type
type Invitation struct {
	ID        string    `json:"id"`
	InviterID int64     `json:"inviter_id"`
	InviteeID int64     `json:"invitee_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InvitationList response type
type InvitationList struct {
	Invitations []Invitation `json:"invitations"`
}

// RoomList response type
type RoomList struct {
	Rooms []string `json:"rooms"`
}

// Ranking is one leaderboard row
type Ranking struct {
	Position int    `json:"position"`
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname,omitempty"`
	Rating   int    `json:"rating"`
}

// RankingList response type
type RankingList struct {
	Rankings []Ranking `json:"rankings"`
}

// MatchRecord is a persisted match
type MatchRecord struct {
	LogID        string     `json:"log_id"`
	RoomID       string     `json:"room_id"`
	IsRankGame   bool       `json:"is_rank_game"`
	Blue         User       `json:"blue"`
	Red          User       `json:"red"`
	ScoreBlue    int        `json:"score_blue"`
	ScoreRed     int        `json:"score_red"`
	WinnerUserID *int64     `json:"winner_user_id"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at"`
}

// MatchHistory response type
type MatchHistory struct {
	Matches []MatchRecord `json:"matches"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
}
