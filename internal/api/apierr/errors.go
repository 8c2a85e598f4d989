package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/pongmatch-go/internal/model"
	"github.com/mcoot/pongmatch-go/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidRule        = "INVALID_RULE"
	CodeInvalidDirection   = "INVALID_DIRECTION"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeUserOffline        = "USER_OFFLINE"
	CodeRoomNotFound       = "ROOM_NOT_FOUND"
	CodeAlreadyInMatch     = "ALREADY_IN_MATCH"
	CodeNotInMatch         = "NOT_IN_MATCH"
	CodeMatchStarted       = "MATCH_STARTED"
	CodeCannotPlaySelf     = "CANNOT_PLAY_SELF"
	CodeInvitationNotFound = "INVITATION_NOT_FOUND"
	CodeInvitationExpired  = "INVITATION_EXPIRED"
	CodeNotInvitee         = "NOT_INVITEE"
	CodeMatchNotFound      = "MATCH_NOT_FOUND"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternalError      = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	status, apiError := Lookup(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: apiError})
}

// Lookup returns the HTTP status and API error for an error
func Lookup(err error) (int, APIError) {
	he := toHTTPError(err)
	return he.status, he.apiError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Match errors
	case errors.Is(err, model.ErrInvalidRule):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRule, err.Error()}}
	case errors.Is(err, model.ErrInvalidDirection):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidDirection, "Direction must be 1, 0 or -1"}}
	case errors.Is(err, model.ErrAlreadyInMatch):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInMatch, "Already in a match"}}
	case errors.Is(err, model.ErrNotInMatch):
		return &httpError{http.StatusNotFound, APIError{CodeNotInMatch, "Not in a match"}}
	case errors.Is(err, model.ErrRoomNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeRoomNotFound, "Room not found"}}
	case errors.Is(err, model.ErrMatchStarted):
		return &httpError{http.StatusConflict, APIError{CodeMatchStarted, "Match has already started"}}
	case errors.Is(err, model.ErrCannotPlaySelf):
		return &httpError{http.StatusBadRequest, APIError{CodeCannotPlaySelf, "Cannot play against yourself"}}

	// Invitation errors
	case errors.Is(err, model.ErrInvitationNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeInvitationNotFound, "Invitation not found"}}
	case errors.Is(err, model.ErrInvitationExpired):
		return &httpError{http.StatusGone, APIError{CodeInvitationExpired, "Invitation has expired"}}
	case errors.Is(err, model.ErrNotInvitee):
		return &httpError{http.StatusForbidden, APIError{CodeNotInvitee, "Invitation is for another user"}}

	// User errors
	case errors.Is(err, model.ErrUserNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeUserNotFound, "User not found"}}
	case errors.Is(err, model.ErrSessionNotFound):
		return &httpError{http.StatusConflict, APIError{CodeUserOffline, "User is not online"}}
	case errors.Is(err, model.ErrMatchLogNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMatchNotFound, "Match not found"}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
