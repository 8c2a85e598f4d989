package apierr

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/services/auth"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: match score 0", model.ErrInvalidRule), http.StatusBadRequest, CodeInvalidRule},
		{model.ErrInvalidDirection, http.StatusBadRequest, CodeInvalidDirection},
		{model.ErrAlreadyInMatch, http.StatusConflict, CodeAlreadyInMatch},
		{model.ErrNotInMatch, http.StatusNotFound, CodeNotInMatch},
		{model.ErrRoomNotFound, http.StatusNotFound, CodeRoomNotFound},
		{model.ErrMatchStarted, http.StatusConflict, CodeMatchStarted},
		{model.ErrInvitationExpired, http.StatusGone, CodeInvitationExpired},
		{model.ErrNotInvitee, http.StatusForbidden, CodeNotInvitee},
		{model.ErrSessionNotFound, http.StatusConflict, CodeUserOffline},
		{auth.ErrInvalidSession, http.StatusUnauthorized, CodeUnauthorized},
		{NewInvalidRequestError("bad body"), http.StatusBadRequest, CodeInvalidRequest},
		{fmt.Errorf("boom"), http.StatusInternalServerError, CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, apiError := Lookup(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, apiError.Code)
		})
	}
}

func TestInvalidRuleKeepsDetail(t *testing.T) {
	_, apiError := Lookup(fmt.Errorf("%w: match score 0", model.ErrInvalidRule))
	assert.Equal(t, "invalid rule: match score 0", apiError.Message)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, model.ErrRoomNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, APIError{Code: CodeRoomNotFound, Message: "Room not found"}, body.Error)
}
