package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/pongmatch-go/internal/api"
	"github.com/mcoot/pongmatch-go/internal/api/apierr"
	"github.com/mcoot/pongmatch-go/internal/api/response"
	"github.com/mcoot/pongmatch-go/internal/events"
	"github.com/mcoot/pongmatch-go/internal/factory"
	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	// Matches stay in warm-up for the whole test
	app := factory.NewTestApp(1_000_000)
	t.Cleanup(func() { _ = app.Close() })

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

	return &testServer{
		handler: router,
		app:     app,
	}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// createGuest creates a guest and returns the auth response
func createGuest(t *testing.T, ts *testServer, nickname string) response.AuthResponse {
	t.Helper()

	rr := ts.request(http.MethodPost, "/api/v1/players/guest", map[string]string{"nickname": nickname}, "")
	require.Equal(t, http.StatusCreated, rr.Code)

	var resp response.AuthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apierr.ErrorResponse](t, rr).Error.Code
}

// pair queues both players casually and returns the room ID
func pair(t *testing.T, ts *testServer, blue, red string) string {
	t.Helper()

	rr := ts.request(http.MethodPost, "/api/v1/queue", nil, blue)
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.True(t, decode[response.QueueResponse](t, rr).Queued)

	rr = ts.request(http.MethodPost, "/api/v1/queue", nil, red)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[response.QueueResponse](t, rr)
	require.NotEmpty(t, resp.RoomID)
	return resp.RoomID
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
}

func TestCreateGuest(t *testing.T) {
	ts := newTestServer(t)

	resp := createGuest(t, ts, "Alice")

	assert.Equal(t, "Alice", resp.User.Nickname)
	assert.True(t, resp.User.IsGuest)
	assert.NotEmpty(t, resp.SessionToken)
}

func TestCreateGuestRequiresNickname(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players/guest", map[string]string{}, "")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	// Register
	registerBody := map[string]string{
		"username": "alice",
		"password": "secret123",
		"nickname": "Alice",
	}
	rr := ts.request(http.MethodPost, "/api/v1/players/register", registerBody, "")
	assert.Equal(t, http.StatusCreated, rr.Code)
	registerResp := decode[response.AuthResponse](t, rr)
	assert.False(t, registerResp.User.IsGuest)

	// Register again with the same username
	rr = ts.request(http.MethodPost, "/api/v1/players/register", registerBody, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeUsernameExists, errorCode(t, rr))

	// Login
	loginBody := map[string]string{
		"username": "alice",
		"password": "secret123",
	}
	rr = ts.request(http.MethodPost, "/api/v1/players/login", loginBody, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	loginResp := decode[response.AuthResponse](t, rr)
	assert.Equal(t, registerResp.User.ID, loginResp.User.ID)

	// Wrong password
	loginBody["password"] = "nope"
	rr = ts.request(http.MethodPost, "/api/v1/players/login", loginBody, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, errorCode(t, rr))
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)
	bob := createGuest(t, ts, "Bob")

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, bob.SessionToken)
	assert.Equal(t, http.StatusOK, rr.Code)

	me := decode[response.MeResponse](t, rr)
	assert.Equal(t, "Bob", me.User.Nickname)
	assert.Equal(t, 1000, me.Rating)
	assert.Empty(t, me.RoomID)
}

func TestTokenInQuery(t *testing.T) {
	ts := newTestServer(t)
	bob := createGuest(t, ts, "Bob")

	rr := ts.request(http.MethodGet, "/api/v1/players/me?token="+bob.SessionToken, nil, "")

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/players/me"},
		{http.MethodPost, "/api/v1/queue"},
		{http.MethodGet, "/api/v1/match"},
		{http.MethodPost, "/api/v1/invitations"},
		{http.MethodGet, "/api/v1/ws"},
	} {
		rr := ts.request(tc.method, tc.path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.path)
	}

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, "bogus")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestQueuePairsPlayers(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")
	bob := createGuest(t, ts, "Bob")

	roomID := pair(t, ts, alice.SessionToken, bob.SessionToken)

	// Both see the same match, the older entry plays blue
	for _, token := range []string{alice.SessionToken, bob.SessionToken} {
		rr := ts.request(http.MethodGet, "/api/v1/match", nil, token)
		require.Equal(t, http.StatusOK, rr.Code)
		game := decode[events.Game](t, rr)
		assert.Equal(t, roomID, game.MetaData.RoomID)
		assert.Equal(t, alice.User.ID, game.MetaData.BlueUser.UserID)
		assert.Equal(t, bob.User.ID, game.MetaData.RedUser.UserID)
		assert.Equal(t, "ready", game.InGameData.Status)
	}

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, alice.SessionToken)
	assert.Equal(t, roomID, decode[response.MeResponse](t, rr).RoomID)

	// Rooms are public
	rr = ts.request(http.MethodGet, "/api/v1/rooms", nil, "")
	assert.Equal(t, []string{roomID}, decode[response.RoomsResponse](t, rr).Rooms)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/"+roomID, nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	// A player in a match cannot queue again
	rr = ts.request(http.MethodPost, "/api/v1/queue", nil, alice.SessionToken)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeAlreadyInMatch, errorCode(t, rr))
}

func TestQueueRejectsInvalidRule(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")

	rr := ts.request(http.MethodPost, "/api/v1/queue", map[string]any{"ball_speed": 9.0}, alice.SessionToken)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRule, errorCode(t, rr))
}

func TestQueuesAreSeparate(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")
	bob := createGuest(t, ts, "Bob")

	rr := ts.request(http.MethodPost, "/api/v1/queue", map[string]any{"is_rank_game": true}, alice.SessionToken)
	require.Equal(t, http.StatusAccepted, rr.Code)
	rr = ts.request(http.MethodPost, "/api/v1/queue", nil, bob.SessionToken)
	require.Equal(t, http.StatusAccepted, rr.Code)

	assert.Empty(t, ts.app.MatchController.ActiveRooms())
}

func TestDequeue(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")
	bob := createGuest(t, ts, "Bob")

	ts.request(http.MethodPost, "/api/v1/queue", nil, alice.SessionToken)
	rr := ts.request(http.MethodDelete, "/api/v1/queue", nil, alice.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[response.DequeueResponse](t, rr).Removed)

	rr = ts.request(http.MethodDelete, "/api/v1/queue", nil, alice.SessionToken)
	assert.False(t, decode[response.DequeueResponse](t, rr).Removed)

	// Bob now waits alone
	rr = ts.request(http.MethodPost, "/api/v1/queue", nil, bob.SessionToken)
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestMatchCommands(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")
	bob := createGuest(t, ts, "Bob")
	roomID := pair(t, ts, alice.SessionToken, bob.SessionToken)

	rr := ts.request(http.MethodPost, "/api/v1/match/paddle", map[string]int{"direction": 1}, alice.SessionToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/match/paddle", map[string]int{"direction": 3}, alice.SessionToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidDirection, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/match/paddle", map[string]int{}, alice.SessionToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPatch, "/api/v1/match/rule", map[string]any{"match_score": 3}, bob.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 3, decode[events.Rule](t, rr).MatchScore)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/"+roomID, nil, "")
	assert.Equal(t, 3, decode[events.Game](t, rr).RuleData.MatchScore)

	rr = ts.request(http.MethodPatch, "/api/v1/match/rule", map[string]any{}, bob.SessionToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRule, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/match/ready", map[string]bool{"is_ready": true}, alice.SessionToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestMatchCommandsOutsideMatch(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")

	rr := ts.request(http.MethodGet, "/api/v1/match", nil, alice.SessionToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeNotInMatch, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/match/ready", nil, alice.SessionToken)
	assert.Equal(t, apierr.CodeNotInMatch, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/match/abandon", nil, alice.SessionToken)
	assert.Equal(t, apierr.CodeNotInMatch, errorCode(t, rr))

	rr = ts.request(http.MethodGet, "/api/v1/rooms/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeRoomNotFound, errorCode(t, rr))
}

func TestAbandonRankedMatch(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")
	bob := createGuest(t, ts, "Bob")

	ranked := map[string]any{"is_rank_game": true}
	ts.request(http.MethodPost, "/api/v1/queue", ranked, alice.SessionToken)
	rr := ts.request(http.MethodPost, "/api/v1/queue", ranked, bob.SessionToken)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/match/abandon", nil, alice.SessionToken)
	require.Equal(t, http.StatusNoContent, rr.Code)

	ts.app.MatchController.Wait()
	ts.app.Recorder.Wait()
	// The final save may have raced the initial one
	require.Zero(t, ts.app.Recorder.RetryPending(context.Background()))

	rr = ts.request(http.MethodGet, "/api/v1/rankings", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	rankings := decode[response.RankingsResponse](t, rr).Rankings
	require.Len(t, rankings, 2)
	assert.Equal(t, response.Ranking{Position: 1, UserID: bob.User.ID, Nickname: "Bob", Rating: 1020}, rankings[0])
	assert.Equal(t, response.Ranking{Position: 2, UserID: alice.User.ID, Nickname: "Alice", Rating: 980}, rankings[1])

	rr = ts.request(http.MethodGet, fmt.Sprintf("/api/v1/players/%d/matches", alice.User.ID), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	matches := decode[response.MatchHistoryResponse](t, rr).Matches
	require.Len(t, matches, 1)
	require.NotNil(t, matches[0].WinnerUserID)
	assert.Equal(t, bob.User.ID, *matches[0].WinnerUserID)
	assert.True(t, matches[0].IsRankGame)
	assert.NotNil(t, matches[0].FinishedAt)

	// Both players are free again
	rr = ts.request(http.MethodGet, "/api/v1/match", nil, bob.SessionToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRankingsLimit(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rankings?limit=0", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/rankings?limit=5", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[response.RankingsResponse](t, rr).Rankings)
}

func TestInvitationFlow(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")
	bob := createGuest(t, ts, "Bob")

	rr := ts.request(http.MethodPost, "/api/v1/invitations", map[string]int64{"user_id": bob.User.ID}, alice.SessionToken)
	require.Equal(t, http.StatusCreated, rr.Code)
	inv := decode[events.Invitation](t, rr)
	assert.Equal(t, alice.User.ID, inv.InviterID)

	rr = ts.request(http.MethodGet, "/api/v1/invitations", nil, bob.SessionToken)
	invs := decode[response.InvitationsResponse](t, rr).Invitations
	require.Len(t, invs, 1)
	assert.Equal(t, inv.ID, invs[0].ID)

	// Only the invitee can accept
	rr = ts.request(http.MethodPost, "/api/v1/invitations/"+inv.ID+"/accept", nil, alice.SessionToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeNotInvitee, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/invitations/"+inv.ID+"/accept", nil, bob.SessionToken)
	require.Equal(t, http.StatusCreated, rr.Code)
	game := decode[events.Game](t, rr)
	assert.Equal(t, alice.User.ID, game.MetaData.BlueUser.UserID)
	assert.Equal(t, bob.User.ID, game.MetaData.RedUser.UserID)

	rr = ts.request(http.MethodPost, "/api/v1/invitations/"+inv.ID+"/accept", nil, bob.SessionToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeInvitationNotFound, errorCode(t, rr))
}

func TestInvitationRejections(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")

	rr := ts.request(http.MethodPost, "/api/v1/invitations", map[string]int64{"user_id": alice.User.ID}, alice.SessionToken)
	assert.Equal(t, apierr.CodeCannotPlaySelf, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/invitations", map[string]int64{"user_id": 999}, alice.SessionToken)
	assert.Equal(t, apierr.CodeUserOffline, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/invitations", map[string]int64{}, alice.SessionToken)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))
}

func TestInvitationExpires(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")
	bob := createGuest(t, ts, "Bob")

	rr := ts.request(http.MethodPost, "/api/v1/invitations", map[string]int64{"user_id": bob.User.ID}, alice.SessionToken)
	inv := decode[events.Invitation](t, rr)

	ts.app.MockClock.Advance(10 * time.Minute)

	rr = ts.request(http.MethodPost, "/api/v1/invitations/"+inv.ID+"/accept", nil, bob.SessionToken)
	assert.Equal(t, http.StatusGone, rr.Code)
	assert.Equal(t, apierr.CodeInvitationExpired, errorCode(t, rr))
}

func TestLogoutLeavesQueue(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")
	bob := createGuest(t, ts, "Bob")

	ts.request(http.MethodPost, "/api/v1/queue", nil, alice.SessionToken)
	rr := ts.request(http.MethodPost, "/api/v1/players/logout", nil, alice.SessionToken)
	require.Equal(t, http.StatusNoContent, rr.Code)

	assert.Zero(t, ts.app.MatchController.QueueLen(false))
	rr = ts.request(http.MethodPost, "/api/v1/queue", nil, bob.SessionToken)
	assert.Equal(t, http.StatusAccepted, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, alice.SessionToken)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogoutForfeitsMatch(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")
	bob := createGuest(t, ts, "Bob")
	pair(t, ts, alice.SessionToken, bob.SessionToken)

	rr := ts.request(http.MethodPost, "/api/v1/players/logout", nil, alice.SessionToken)
	require.Equal(t, http.StatusNoContent, rr.Code)

	assert.Empty(t, ts.app.MatchController.ActiveRooms())
	rr = ts.request(http.MethodGet, "/api/v1/match", nil, bob.SessionToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRoomEventsUnknownRoom(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")

	rr := ts.request(http.MethodGet, "/api/v1/rooms/nope/events", nil, alice.SessionToken)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, 0, ts.app.HubManager.HubCount())
}

func TestRoomEventsStream(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuest(t, ts, "Alice")
	bob := createGuest(t, ts, "Bob")
	carol := createGuest(t, ts, "Carol")
	roomID := pair(t, ts, alice.SessionToken, bob.SessionToken)

	server := httptest.NewServer(ts.handler)
	defer server.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(server.URL + "/api/v1/rooms/" + roomID + "/events?token=" + carol.SessionToken)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Alice abandons, the stream ends with match:end
	go func() {
		assert.Eventually(t, func() bool {
			hub := ts.app.HubManager.GetHub(model.RoomID(roomID))
			return hub != nil && hub.ClientCount() == 1
		}, 5*time.Second, time.Millisecond)
		ts.request(http.MethodPost, "/api/v1/match/abandon", nil, alice.SessionToken)
	}()

	var eventNames []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			eventNames = append(eventNames, name)
		}
	}

	assert.Equal(t, []string{"connected", "match:snapshot", "match:end"}, eventNames)
}
