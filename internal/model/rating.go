package model

// Rating is a user's position on the ranked ladder
type Rating struct {
	UserID UserID
	Points int
}
