package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutputGameText(t *testing.T) {
	var buf bytes.Buffer
	winner := int64(20)

	NewOutput(&buf, "text").Print(Game{
		MetaData: Meta{
			RoomID:     "room-a",
			BlueUser:   Participant{UserID: 10, Nickname: "Alice"},
			RedUser:    Participant{UserID: 20, Nickname: "Bob"},
			IsRankGame: true,
		},
		RuleData:   Rule{PaddleSize: 1, BallSpeed: 1.5, MatchScore: 5},
		InGameData: InGame{Frame: 420, Status: "end", ScoreBlue: 2, ScoreRed: 5, WinnerUserID: &winner},
	})

	assert.Equal(t, `Room: room-a (ranked)
Blue: Alice (10)
Red: Bob (20)
Status: end
Frame: 420
Score: 2 - 5
Winner: 20
Rule: paddle 1.00, ball 1.50, first to 5
`, buf.String())
}

func TestOutputHistoryText(t *testing.T) {
	var buf bytes.Buffer
	created := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	NewOutput(&buf, "text").Print(MatchHistory{Matches: []MatchRecord{
		{Blue: User{Nickname: "Alice"}, Red: User{Nickname: "Bob"}, ScoreBlue: 5, ScoreRed: 3, CreatedAt: created, FinishedAt: &created},
		{Blue: User{Nickname: "Alice"}, Red: User{Nickname: "Carol"}, IsRankGame: true, CreatedAt: created},
	}})

	assert.Equal(t, `2024-01-01 12:00  Alice 5 - 3 Bob
2024-01-01 12:00  Alice 0 - 0 Carol [ranked, unfinished]
`, buf.String())
}

func TestOutputEmptyLists(t *testing.T) {
	tests := []struct {
		name     string
		data     any
		expected string
	}{
		{name: "rooms", data: RoomList{}, expected: "No active rooms\n"},
		{name: "rankings", data: RankingList{}, expected: "No ranked players yet\n"},
		{name: "invitations", data: InvitationList{}, expected: "No pending invitations\n"},
		{name: "history", data: MatchHistory{}, expected: "No matches\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewOutput(&buf, "text").Print(tt.data)
			assert.Equal(t, tt.expected, buf.String())
		})
	}
}

func TestOutputJSONMessage(t *testing.T) {
	var buf bytes.Buffer

	NewOutput(&buf, "json").PrintMessage("Logged out")

	assert.JSONEq(t, `{"message":"Logged out"}`, buf.String())
}

func TestOutputUnknownTypeFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer

	NewOutput(&buf, "text").Print(DequeueResult{Removed: true})

	assert.JSONEq(t, `{"removed":true}`, buf.String())
}
