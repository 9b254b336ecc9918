package users

import "time"

type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Session is what a successful sign-up or login hands back.
type Session struct {
	AccessToken string
	User        User
}

type resetCode struct {
	code      string
	expiresAt time.Time
}
