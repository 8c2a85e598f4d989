package request

// CreateGuestRequest is the request body for creating a guest user
type CreateGuestRequest struct {
	Nickname string `json:"nickname"`
}

// RegisterRequest is the request body for registering a user
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PaddleRequest is the request body for moving the paddle
type PaddleRequest struct {
	Direction *int `json:"direction"`
}

// ReadyRequest is the request body for the ready toggle
type ReadyRequest struct {
	IsReady *bool `json:"is_ready"`
}

// InviteRequest is the request body for challenging another user
type InviteRequest struct {
	UserID int64 `json:"user_id"`
}
