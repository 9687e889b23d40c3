package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	IdentityKey = "identity"

	DefaultTokenTTL = time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Identity is what a session token proves about its bearer.
type Identity struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

type Claims struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{ID: c.ID, Username: c.Username}
}

// TokenService issues and verifies stateless HS256 session tokens.
// There is no refresh and no revocation: a token lives until it expires.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for issuing and verifying tokens.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue signs a token for id that expires ttl after now.
func (s *TokenService) Issue(id Identity) (string, error) {
	now := s.now()
	claims := Claims{
		ID:       id.ID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded claims.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetIdentityFromContext returns the identity the auth middleware stored.
func GetIdentityFromContext(c *gin.Context) (Identity, error) {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return Identity{}, fmt.Errorf("identity not found in context")
	}

	id, ok := value.(Identity)
	if !ok {
		return Identity{}, fmt.Errorf("invalid identity type")
	}

	return id, nil
}
