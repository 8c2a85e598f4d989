package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	w      io.Writer
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(w io.Writer, format string) *Output {
	return &Output{w: w, format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case AuthResult:
		o.printAuthResult(v)
	case MeResult:
		o.printMe(v)
	case QueueResult:
		o.printQueueResult(v)
	case Game:
		o.printGame(v)
	case Rule:
		o.printRule(v)
	case Invitation:
		o.printInvitation(v)
	case InvitationList:
		o.printInvitations(v)
	case RoomList:
		o.printRooms(v)
	case RankingList:
		o.printRankings(v)
	case MatchHistory:
		o.printHistory(v)
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printUser(u User) {
	guestStr := "no"
	if u.IsGuest {
		guestStr = "yes"
	}
	fmt.Fprintf(o.w, "Player: %s (%d)\n", u.Nickname, u.ID)
	fmt.Fprintf(o.w, "Guest: %s\n", guestStr)
}

func (o *Output) printAuthResult(a AuthResult) {
	o.printUser(a.User)
	fmt.Fprintf(o.w, "Token: %s\n", a.SessionToken)
}

func (o *Output) printMe(m MeResult) {
	o.printUser(m.User)
	fmt.Fprintf(o.w, "Rating: %d\n", m.Rating)
	if m.RoomID != "" {
		fmt.Fprintf(o.w, "Room: %s\n", m.RoomID)
	}
}

func (o *Output) printQueueResult(q QueueResult) {
	if q.RoomID != "" {
		fmt.Fprintf(o.w, "Matched: room %s\n", q.RoomID)
		return
	}
	fmt.Fprintln(o.w, "Queued, waiting for an opponent")
}

func (o *Output) printGame(g Game) {
	kind := "casual"
	if g.MetaData.IsRankGame {
		kind = "ranked"
	}
	fmt.Fprintf(o.w, "Room: %s (%s)\n", g.MetaData.RoomID, kind)
	fmt.Fprintf(o.w, "Blue: %s (%d)\n", g.MetaData.BlueUser.Nickname, g.MetaData.BlueUser.UserID)
	fmt.Fprintf(o.w, "Red: %s (%d)\n", g.MetaData.RedUser.Nickname, g.MetaData.RedUser.UserID)
	fmt.Fprintf(o.w, "Status: %s\n", g.InGameData.Status)
	fmt.Fprintf(o.w, "Frame: %d\n", g.InGameData.Frame)
	fmt.Fprintf(o.w, "Score: %d - %d\n", g.InGameData.ScoreBlue, g.InGameData.ScoreRed)
	if g.InGameData.WinnerUserID != nil {
		fmt.Fprintf(o.w, "Winner: %d\n", *g.InGameData.WinnerUserID)
	}
	o.printRule(g.RuleData)
}

func (o *Output) printRule(r Rule) {
	fmt.Fprintf(o.w, "Rule: paddle %.2f, ball %.2f, first to %d\n", r.PaddleSize, r.BallSpeed, r.MatchScore)
}

func (o *Output) printInvitation(i Invitation) {
	fmt.Fprintf(o.w, "Invitation %s: %d -> %d (expires %s)\n",
		i.ID, i.InviterID, i.InviteeID, i.ExpiresAt.Format("15:04:05"))
}

func (o *Output) printInvitations(l InvitationList) {
	if len(l.Invitations) == 0 {
		fmt.Fprintln(o.w, "No pending invitations")
		return
	}
	for _, i := range l.Invitations {
		o.printInvitation(i)
	}
}

func (o *Output) printRooms(l RoomList) {
	if len(l.Rooms) == 0 {
		fmt.Fprintln(o.w, "No active rooms")
		return
	}
	fmt.Fprintf(o.w, "Rooms (%d):\n", len(l.Rooms))
	for _, id := range l.Rooms {
		fmt.Fprintf(o.w, "  - %s\n", id)
	}
}

func (o *Output) printRankings(l RankingList) {
	if len(l.Rankings) == 0 {
		fmt.Fprintln(o.w, "No ranked players yet")
		return
	}
	for _, r := range l.Rankings {
		name := r.Nickname
		if name == "" {
			name = "?"
		}
		fmt.Fprintf(o.w, "%3d. %-20s %5d  (%d)\n", r.Position, name, r.Rating, r.UserID)
	}
}

func (o *Output) printHistory(h MatchHistory) {
	if len(h.Matches) == 0 {
		fmt.Fprintln(o.w, "No matches")
		return
	}
	for _, m := range h.Matches {
		tags := []string{}
		if m.IsRankGame {
			tags = append(tags, "ranked")
		}
		if m.FinishedAt == nil {
			tags = append(tags, "unfinished")
		}
		suffix := ""
		if len(tags) > 0 {
			suffix = " [" + strings.Join(tags, ", ") + "]"
		}
		fmt.Fprintf(o.w, "%s  %s %d - %d %s%s\n",
			m.CreatedAt.Format("2006-01-02 15:04"), m.Blue.Nickname, m.ScoreBlue, m.ScoreRed, m.Red.Nickname, suffix)
	}
}
