package transaction

import (
	"errors"
	"net/http"
	"strconv"

	"bookkeeping/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type TransactionController struct {
	service TransactionServiceInterface
}

func NewTransactionController(service TransactionServiceInterface) *TransactionController {
	return &TransactionController{
		service: service,
	}
}

// RegisterRoutes mounts the ledger endpoints on a group that already
// runs the auth middleware.
func (tc *TransactionController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", tc.List)
	rg.POST("", tc.Add)
	rg.GET("/summary", tc.Summary)
	rg.GET("/totals", tc.Totals)
	rg.DELETE("/:id", tc.Delete)
}

// List handles GET /transactions
func (tc *TransactionController) List(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}

	filter, err := ParseFilter(c.Query("all"), c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid date filter, use from <= to as YYYY-MM-DD"})
		return
	}

	transactions, err := tc.service.List(c.Request.Context(), identity.ID, filter)
	if err != nil {
		internalError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// Add handles POST /transactions
func (tc *TransactionController) Add(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}

	var in AddInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	t, err := tc.service.Add(c.Request.Context(), identity.ID, in)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"message": verr.Message})
			return
		}
		internalError(c, err, "Failed to create transaction")
		return
	}

	c.JSON(http.StatusCreated, t)
}

// Summary handles GET /transactions/summary?period=
func (tc *TransactionController) Summary(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}

	buckets, err := tc.service.Summarize(c.Request.Context(), identity.ID, Period(c.Query("period")))
	if err != nil {
		if errors.Is(err, ErrInvalidPeriod) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid period. Choose 'daily', 'weekly' or 'monthly'"})
			return
		}
		internalError(c, err, "Failed to summarize transactions")
		return
	}

	c.JSON(http.StatusOK, buckets)
}

// Totals handles GET /transactions/totals
func (tc *TransactionController) Totals(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}

	filter, err := ParseFilter(c.Query("all"), c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid date filter, use from <= to as YYYY-MM-DD"})
		return
	}

	totals, err := tc.service.Totals(c.Request.Context(), identity.ID, filter)
	if err != nil {
		internalError(c, err, "Failed to compute totals")
		return
	}

	c.JSON(http.StatusOK, totals)
}

// Delete handles DELETE /transactions/:id
func (tc *TransactionController) Delete(c *gin.Context) {
	identity, ok := identityOrAbort(c)
	if !ok {
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid transaction ID"})
		return
	}

	if _, err := tc.service.Delete(c.Request.Context(), identity.ID, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Transaction not found"})
		case errors.Is(err, ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"message": "You are not allowed to delete this transaction"})
		default:
			internalError(c, err, "Failed to delete transaction")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transaction deleted",
		"id":      id,
	})
}

func identityOrAbort(c *gin.Context) (auth.Identity, bool) {
	identity, err := auth.GetIdentityFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
		return auth.Identity{}, false
	}
	return identity, true
}

func internalError(c *gin.Context, err error, msg string) {
	logrus.WithError(err).Error(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
}
