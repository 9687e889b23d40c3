package user

import (
	"time"

	"bookkeeping/internal/auth"
)

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"` // bcrypt hash, never exposed
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Identity() auth.Identity {
	return auth.Identity{ID: u.ID, Username: u.Username}
}

// LoginResult is the body returned by a successful login.
type LoginResult struct {
	Token string        `json:"token"`
	User  auth.Identity `json:"user"`
}
