package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookkeeping/internal/auth"
	"bookkeeping/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserService is a mock implementation of UserServiceInterface
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, username, password string) (*User, error) {
	args := m.Called(username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserService) VerifyCredentials(ctx context.Context, username, password string) (*User, error) {
	args := m.Called(username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	args := m.Called(username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LoginResult), args.Error(1)
}

func (m *MockUserService) SeedAdmin(ctx context.Context, username, password string) (bool, error) {
	args := m.Called(username, password)
	return args.Bool(0), args.Error(1)
}

func setupTestRouter(service UserServiceInterface) (*gin.Engine, *observability.Metrics) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	controller := NewUserController(service, metrics)
	router.POST("/auth/login", controller.Login)

	return router, metrics
}

func doLogin(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLogin_Success(t *testing.T) {
	mockService := new(MockUserService)
	router, metrics := setupTestRouter(mockService)

	mockService.On("Login", "admin", "adminpassword").Return(&LoginResult{
		Token: "signed.jwt.token",
		User:  auth.Identity{ID: 1, Username: "admin"},
	}, nil)

	w := doLogin(router, `{"username":"admin","password":"adminpassword"}`)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "signed.jwt.token", response["token"])
	assert.Equal(t, map[string]interface{}{"id": float64(1), "username": "admin"}, response["user"])
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LoginAttemptsTotal.WithLabelValues("success")))

	mockService.AssertExpectations(t)
}

func TestLogin_UniformMessageForBadCredentials(t *testing.T) {
	for _, cause := range []error{ErrInvalidUsername, ErrInvalidPassword} {
		t.Run(cause.Error(), func(t *testing.T) {
			mockService := new(MockUserService)
			router, metrics := setupTestRouter(mockService)

			mockService.On("Login", "admin", "x").Return(nil, cause)

			w := doLogin(router, `{"username":"admin","password":"x"}`)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, "Invalid username or password", response["message"])
			assert.NotContains(t, response, "token")
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials")))
		})
	}
}

func TestLogin_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty object", body: `{}`},
		{name: "no password", body: `{"username":"admin"}`},
		{name: "empty username", body: `{"username":"","password":"x"}`},
		{name: "invalid JSON", body: `{"username": }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockUserService)
			router, _ := setupTestRouter(mockService)

			w := doLogin(router, tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "Username and password are required")
			mockService.AssertNotCalled(t, "Login")
		})
	}
}

func TestLogin_StorageError(t *testing.T) {
	mockService := new(MockUserService)
	router, _ := setupTestRouter(mockService)

	mockService.On("Login", "admin", "pw").Return(nil, errors.New("database is locked"))

	w := doLogin(router, `{"username":"admin","password":"pw"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "database is locked")
}
