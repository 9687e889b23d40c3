package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bookkeeping/internal/auth"
	"bookkeeping/internal/db"
	"bookkeeping/internal/utils"

	"github.com/sirupsen/logrus"
)

type UserService struct {
	repo   UserRepositoryInterface
	db     *db.DB
	tokens *auth.TokenService
}

type UserServiceInterface interface {
	CreateUser(ctx context.Context, username, password string) (*User, error)
	VerifyCredentials(ctx context.Context, username, password string) (*User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	SeedAdmin(ctx context.Context, username, password string) (bool, error)
}

// NewUserService wires the credential store. tokens may be nil for
// callers that only provision users.
func NewUserService(repo UserRepositoryInterface, database *db.DB, tokens *auth.TokenService) UserServiceInterface {
	return &UserService{
		repo:   repo,
		db:     database,
		tokens: tokens,
	}
}

// CreateUser hashes password and stores a new user.
func (s *UserService) CreateUser(ctx context.Context, username, password string) (*User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrEmptyUsername
	}
	if strings.TrimSpace(password) == "" {
		return nil, ErrEmptyPassword
	}

	if _, err := s.repo.GetByUsername(ctx, s.db, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("look up username: %w", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{Username: username, Password: hashed}
	if err := utils.WithTransaction(ctx, s.db.DB, func(tx *sql.Tx) error {
		id, err := s.repo.Create(ctx, tx, user)
		if err != nil {
			return err
		}
		user.ID = id
		return nil
	}); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// VerifyCredentials returns the stored user when password matches its hash.
// Failures wrap ErrInvalidCredentials.
func (s *UserService) VerifyCredentials(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.GetByUsername(ctx, s.db, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidUsername
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if err := auth.CheckPassword(user.Password, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("compare password: %w", err)
	}

	return user, nil
}

// Login verifies the credentials and issues a session token.
func (s *UserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if s.tokens == nil {
		return nil, ErrTokensDisabled
	}

	user, err := s.VerifyCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, User: user.Identity()}, nil
}

// SeedAdmin inserts the bootstrap account when no user exists yet and
// reports whether it did.
func (s *UserService) SeedAdmin(ctx context.Context, username, password string) (bool, error) {
	count, err := s.repo.Count(ctx, s.db)
	if err != nil {
		return false, fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		logrus.Debug("Users table not empty, skipping admin seed")
		return false, nil
	}

	if _, err := s.CreateUser(ctx, username, password); err != nil {
		return false, err
	}

	logrus.WithField("username", username).Info("Seeded admin user")
	return true, nil
}
