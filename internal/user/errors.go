package user

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is wrapped by both login failures below.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidUsername = fmt.Errorf("%w: unknown username", ErrInvalidCredentials)
	ErrInvalidPassword = fmt.Errorf("%w: wrong password", ErrInvalidCredentials)

	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameTaken  = errors.New("username already exists")
	ErrEmptyUsername  = errors.New("username cannot be empty")
	ErrEmptyPassword  = errors.New("password cannot be empty")
	ErrTokensDisabled = errors.New("token service not configured")
)
