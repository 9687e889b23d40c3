package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookkeeping/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

func setupAuthRouter(tokens *auth.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(tokens))
	router.GET("/protected", func(c *gin.Context) {
		identity, err := auth.GetIdentityFromContext(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, identity)
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokenService(testSecret, time.Hour)
	valid, err := tokens.Issue(auth.Identity{ID: 1, Username: "admin"})
	require.NoError(t, err)

	issuedAt := time.Now().Add(-2 * time.Hour)
	expired, err := auth.NewTokenService(testSecret, time.Hour).
		WithClock(func() time.Time { return issuedAt }).
		Issue(auth.Identity{ID: 1, Username: "admin"})
	require.NoError(t, err)

	foreign, err := auth.NewTokenService("another-secret", time.Hour).Issue(auth.Identity{ID: 1, Username: "admin"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "valid token", header: "Bearer " + valid, wantStatus: http.StatusOK, wantBody: `{"id":1,"username":"admin"}`},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized, wantBody: `{"message":"Access token required"}`},
		{name: "bearer without token", header: "Bearer ", wantStatus: http.StatusUnauthorized, wantBody: `{"message":"Access token required"}`},
		{name: "wrong scheme", header: "Basic " + valid, wantStatus: http.StatusUnauthorized, wantBody: `{"message":"Access token required"}`},
		{name: "garbage token", header: "Bearer not.a.jwt", wantStatus: http.StatusForbidden, wantBody: `{"message":"Invalid or expired token"}`},
		{name: "expired token", header: "Bearer " + expired, wantStatus: http.StatusForbidden, wantBody: `{"message":"Invalid or expired token"}`},
		{name: "foreign signature", header: "Bearer " + foreign, wantStatus: http.StatusForbidden, wantBody: `{"message":"Invalid or expired token"}`},
	}

	router := setupAuthRouter(tokens)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
