package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/pongmatch-go/internal/api"
	"github.com/mcoot/pongmatch-go/internal/cli"
	"github.com/mcoot/pongmatch-go/internal/factory"
	"github.com/mcoot/pongmatch-go/internal/testutil"
)

// cliRunner executes pongctl commands against a test server
type cliRunner struct {
	serverURL string
	tokenFile string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	return &cliRunner{
		serverURL: serverURL,
		tokenFile: filepath.Join(t.TempDir(), "token"),
	}
}

func (r *cliRunner) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--token-file", r.tokenFile,
		"--output", "json",
	}, args...)

	var out bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetArgs(fullArgs)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

// runJSON runs a command that must succeed and decodes its output
func runJSON[T any](t *testing.T, r *cliRunner, args ...string) T {
	t.Helper()

	output, err := r.run(args...)
	require.NoError(t, err, "output: %s", output)

	var result T
	require.NoError(t, json.Unmarshal([]byte(output), &result), "output: %s", output)
	return result
}

// startTestServer serves the API for an app whose matches never leave warm-up
func startTestServer(t *testing.T) (*httptest.Server, *factory.TestApp) {
	t.Helper()

	app := factory.NewTestApp(1_000_000)
	router := api.NewRouter(api.RouterConfig{
		Logger:          testutil.NopLogger(),
		AuthService:     app.AuthService,
		MatchController: app.MatchController,
		RankService:     app.RankService,
		MatchLogs:       app.MatchLogs,
		Storage:         app.Storage,
		HubManager:      app.HubManager,
		Gateway:         app.Gateway,
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		_ = app.Close()
		server.Close()
	})
	return server, app
}

// Response types for JSON parsing
type authResponse struct {
	User struct {
		ID       int64  `json:"id"`
		Nickname string `json:"nickname"`
		IsGuest  bool   `json:"is_guest"`
	} `json:"user"`
	SessionToken string `json:"session_token"`
}

type meResponse struct {
	User struct {
		ID       int64  `json:"id"`
		Nickname string `json:"nickname"`
	} `json:"user"`
	Rating int    `json:"rating"`
	RoomID string `json:"room_id"`
}

type queueResponse struct {
	Queued bool   `json:"queued"`
	RoomID string `json:"room_id"`
}

type ruleResponse struct {
	PaddleSize float64 `json:"paddle_size"`
	BallSpeed  float64 `json:"ball_speed"`
	MatchScore int     `json:"match_score"`
}

type gameResponse struct {
	MetaData struct {
		RoomID   string `json:"room_id"`
		BlueUser struct {
			UserID int64 `json:"user_id"`
		} `json:"blue_user"`
		RedUser struct {
			UserID int64 `json:"user_id"`
		} `json:"red_user"`
	} `json:"meta_data"`
	RuleData   ruleResponse `json:"rule_data"`
	InGameData struct {
		Status string `json:"status"`
	} `json:"in_game_data"`
}

type invitationResponse struct {
	ID        string `json:"id"`
	InviterID int64  `json:"inviter_id"`
	InviteeID int64  `json:"invitee_id"`
}

type historyResponse struct {
	Matches []struct {
		RoomID       string `json:"room_id"`
		WinnerUserID *int64 `json:"winner_user_id"`
	} `json:"matches"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts, _ := startTestServer(t)
	runner := newCLIRunner(t, ts.URL)

	resp := runJSON[struct {
		Status string `json:"status"`
	}](t, runner, "health")

	assert.Equal(t, "ok", resp.Status)
}

func TestCLI_PlayerCommands(t *testing.T) {
	ts, _ := startTestServer(t)
	runner := newCLIRunner(t, ts.URL)

	authResp := runJSON[authResponse](t, runner, "player", "guest", "--name", "Alice")
	assert.Equal(t, "Alice", authResp.User.Nickname)
	assert.True(t, authResp.User.IsGuest)
	assert.NotEmpty(t, authResp.SessionToken)

	// Token should be saved in token file
	saved, err := os.ReadFile(runner.tokenFile)
	require.NoError(t, err)
	assert.Equal(t, authResp.SessionToken, strings.TrimSpace(string(saved)))

	me := runJSON[meResponse](t, runner, "player", "me")
	assert.Equal(t, authResp.User.ID, me.User.ID)
	assert.Equal(t, 1000, me.Rating)
	assert.Empty(t, me.RoomID)

	msg := runJSON[messageResponse](t, runner, "player", "logout")
	assert.Equal(t, "Logged out", msg.Message)
	_, err = os.Stat(runner.tokenFile)
	assert.True(t, os.IsNotExist(err))

	output, err := runner.run("player", "me")
	require.Error(t, err)
	assert.Contains(t, output, "UNAUTHORIZED")
}

func TestCLI_RegisterAndLogin(t *testing.T) {
	ts, _ := startTestServer(t)
	runner := newCLIRunner(t, ts.URL)

	registered := runJSON[authResponse](t, runner,
		"player", "register", "--name", "Alice", "--user", "alice", "--pass", "password123")
	assert.False(t, registered.User.IsGuest)

	loggedIn := runJSON[authResponse](t, runner, "player", "login", "--user", "alice", "--pass", "password123")
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)
	assert.NotEqual(t, registered.SessionToken, loggedIn.SessionToken)

	output, err := runner.run("player", "login", "--user", "alice", "--pass", "wrong")
	require.Error(t, err)
	assert.Contains(t, output, "INVALID_CREDENTIALS")
}

func TestCLI_QueueAndMatchFlow(t *testing.T) {
	ts, app := startTestServer(t)

	alice := newCLIRunner(t, ts.URL)
	bob := newCLIRunner(t, ts.URL)
	aliceAuth := runJSON[authResponse](t, alice, "player", "guest", "--name", "Alice")
	bobAuth := runJSON[authResponse](t, bob, "player", "guest", "--name", "Bob")

	// Different rules never pair
	queued := runJSON[queueResponse](t, alice, "queue", "join", "--match-score", "3")
	assert.True(t, queued.Queued)
	other := runJSON[queueResponse](t, bob, "queue", "join", "--match-score", "7")
	assert.True(t, other.Queued)
	msg := runJSON[messageResponse](t, bob, "queue", "leave", "--match-score", "7")
	assert.Equal(t, "Left the queue", msg.Message)
	msg = runJSON[messageResponse](t, bob, "queue", "leave", "--match-score", "7")
	assert.Equal(t, "Not queued for those rules", msg.Message)

	paired := runJSON[queueResponse](t, bob, "queue", "join", "--match-score", "3")
	require.NotEmpty(t, paired.RoomID)

	game := runJSON[gameResponse](t, alice, "match", "get")
	assert.Equal(t, paired.RoomID, game.MetaData.RoomID)
	assert.Equal(t, aliceAuth.User.ID, game.MetaData.BlueUser.UserID)
	assert.Equal(t, bobAuth.User.ID, game.MetaData.RedUser.UserID)
	assert.Equal(t, "ready", game.InGameData.Status)
	assert.Equal(t, 3, game.RuleData.MatchScore)

	msg = runJSON[messageResponse](t, alice, "match", "paddle", "up")
	assert.Equal(t, "Paddle: up", msg.Message)
	_, err := alice.run("match", "paddle", "sideways")
	require.Error(t, err)

	rule := runJSON[ruleResponse](t, bob, "match", "rule", "--paddle-size", "1.5")
	assert.Equal(t, 1.5, rule.PaddleSize)
	assert.Equal(t, 3, rule.MatchScore)

	msg = runJSON[messageResponse](t, alice, "match", "ready")
	assert.Equal(t, "Ready", msg.Message)

	rooms := runJSON[struct {
		Rooms []string `json:"rooms"`
	}](t, bob, "rooms", "list")
	assert.Equal(t, []string{paired.RoomID}, rooms.Rooms)

	watched := runJSON[gameResponse](t, bob, "rooms", "get", paired.RoomID)
	assert.Equal(t, 1.5, watched.RuleData.PaddleSize)

	// A spectator stream opens with the connection and a snapshot
	output, err := bob.run("events", paired.RoomID, "--json", "--count", "2")
	require.NoError(t, err, "output: %s", output)
	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 2)
	var first, second cli.SSEEvent
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "connected", first.Event)
	assert.Equal(t, "match:snapshot", second.Event)

	msg = runJSON[messageResponse](t, alice, "match", "abandon")
	assert.Equal(t, "Match abandoned", msg.Message)

	output, err = alice.run("match", "get")
	require.Error(t, err)
	assert.Contains(t, output, "NOT_IN_MATCH")

	app.MatchController.Wait()
	app.Recorder.Wait()
	// The final save may have raced the initial one
	require.Zero(t, app.Recorder.RetryPending(context.Background()))
	history := runJSON[historyResponse](t, bob, "player", "history")
	require.Len(t, history.Matches, 1)
	assert.Equal(t, paired.RoomID, history.Matches[0].RoomID)
	require.NotNil(t, history.Matches[0].WinnerUserID)
	assert.Equal(t, bobAuth.User.ID, *history.Matches[0].WinnerUserID)

	aliceHistory := runJSON[historyResponse](t, bob, "player", "history", fmt.Sprint(aliceAuth.User.ID), "--limit", "5")
	assert.Len(t, aliceHistory.Matches, 1)
}

func TestCLI_InvitationFlow(t *testing.T) {
	ts, _ := startTestServer(t)

	alice := newCLIRunner(t, ts.URL)
	bob := newCLIRunner(t, ts.URL)
	runJSON[authResponse](t, alice, "player", "guest", "--name", "Alice")
	bobAuth := runJSON[authResponse](t, bob, "player", "guest", "--name", "Bob")

	inv := runJSON[invitationResponse](t, alice, "invite", "send", fmt.Sprint(bobAuth.User.ID))
	assert.Equal(t, bobAuth.User.ID, inv.InviteeID)

	pending := runJSON[struct {
		Invitations []invitationResponse `json:"invitations"`
	}](t, bob, "invite", "list")
	require.Len(t, pending.Invitations, 1)
	assert.Equal(t, inv.ID, pending.Invitations[0].ID)

	game := runJSON[gameResponse](t, bob, "invite", "accept", inv.ID)
	assert.NotEmpty(t, game.MetaData.RoomID)

	aliceGame := runJSON[gameResponse](t, alice, "match", "get")
	assert.Equal(t, game.MetaData.RoomID, aliceGame.MetaData.RoomID)

	output, err := bob.run("invite", "accept", inv.ID)
	require.Error(t, err)
	assert.Contains(t, output, "INVITATION_NOT_FOUND")
}

func TestCLI_RankingsStartEmpty(t *testing.T) {
	ts, _ := startTestServer(t)
	runner := newCLIRunner(t, ts.URL)

	resp := runJSON[struct {
		Rankings []json.RawMessage `json:"rankings"`
	}](t, runner, "rankings", "--limit", "5")

	assert.Empty(t, resp.Rankings)
}

func TestCLI_TextOutput(t *testing.T) {
	ts, _ := startTestServer(t)
	runner := newCLIRunner(t, ts.URL)

	var out bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetArgs([]string{"--server", runner.serverURL, "--token-file", runner.tokenFile, "player", "guest", "--name", "Alice"})
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "Player: Alice (")
	assert.Contains(t, out.String(), "Guest: yes")

	out.Reset()
	cmd = cli.NewRootCmd()
	cmd.SetArgs([]string{"--server", runner.serverURL, "--token-file", runner.tokenFile, "queue", "join"})
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "Queued, waiting for an opponent\n", out.String())
}

func TestCLI_EventsUnknownRoom(t *testing.T) {
	ts, _ := startTestServer(t)
	runner := newCLIRunner(t, ts.URL)
	runJSON[authResponse](t, runner, "player", "guest", "--name", "Alice")

	done := make(chan struct{})
	var output string
	var err error
	go func() {
		defer close(done)
		output, err = runner.run("events", "missing")
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("events command did not return")
	}
	require.Error(t, err)
	assert.Contains(t, output, "ROOM_NOT_FOUND")
}
