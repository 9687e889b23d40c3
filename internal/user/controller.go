package user

import (
	"errors"
	"net/http"

	"bookkeeping/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UserController struct {
	userService UserServiceInterface
	metrics     *observability.Metrics
}

func NewUserController(userService UserServiceInterface, metrics *observability.Metrics) *UserController {
	return &UserController{
		userService: userService,
		metrics:     metrics,
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges a username and password for a session token.
func (uc *UserController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username and password are required"})
		return
	}

	result, err := uc.userService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			uc.metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
			// which half was wrong stays in the logs only
			logrus.WithFields(logrus.Fields{
				"username": req.Username,
				"reason":   err.Error(),
			}).Debug("Login rejected")
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid username or password"})
			return
		}

		uc.metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		logrus.WithError(err).Error("Login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
		return
	}

	uc.metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	c.JSON(http.StatusOK, result)
}
