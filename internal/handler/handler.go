package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bookkeeping/internal/auth"
	"bookkeeping/internal/cache"
	"bookkeeping/internal/config"
	"bookkeeping/internal/db"
	"bookkeeping/internal/middleware"
	"bookkeeping/internal/observability"
	"bookkeeping/internal/queue"
	"bookkeeping/internal/transaction"
	"bookkeeping/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// Dependencies are the process-wide handles built in main. Redis and
// Publisher are optional.
type Dependencies struct {
	DB        *db.DB
	Redis     *redis.Client
	Publisher *queue.Publisher
	Metrics   *observability.Metrics
	Config    *config.Config
}

// SetupHandler seeds the admin account, initializes all dependencies and routes
func SetupHandler(ctx context.Context, deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config

	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL)

	// Initialize repositories
	userRepo := user.NewUserRepository(deps.DB.Dialect)
	transactionRepo := transaction.NewTransactionRepository(deps.DB.Dialect)

	// Initialize services
	userService := user.NewUserService(userRepo, deps.DB, tokens)

	var opts []transaction.Option
	if deps.Redis != nil {
		opts = append(opts, transaction.WithCache(cache.NewLedgerCache(deps.Redis)))
	}
	if deps.Publisher != nil {
		opts = append(opts, transaction.WithPublisher(deps.Publisher))
	}
	transactionService := transaction.NewTransactionService(transactionRepo, deps.DB, deps.Metrics, opts...)

	if _, err := userService.SeedAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		return nil, fmt.Errorf("seed admin user: %w", err)
	}

	// Initialize controllers
	userController := user.NewUserController(userService, deps.Metrics)
	transactionController := transaction.NewTransactionController(transactionService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.PrometheusMiddleware(deps.Metrics))
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	setupRoutes(r, deps, tokens, userController, transactionController)

	return r, nil
}

// setupRoutes configures all application routes
func setupRoutes(r *gin.Engine, deps Dependencies, tokens *auth.TokenService, userCtrl *user.UserController, txCtrl *transaction.TransactionController) {
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "%s is running", deps.Config.AppName)
	})
	r.GET("/health", healthCheck(deps))
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	// Public routes - Authentication
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login",
			middleware.RateLimiterMiddleware(deps.Redis, middleware.StrictRateLimiter(), middleware.ByClientIP),
			userCtrl.Login,
		)
	}

	// Protected routes - ledger of the authenticated user
	ledger := r.Group("/transactions")
	ledger.Use(middleware.AuthMiddleware(tokens))
	ledger.Use(middleware.RateLimiterMiddleware(deps.Redis, middleware.DefaultRateLimiterConfig(), middleware.ByUser))
	txCtrl.RegisterRoutes(ledger)
}

func healthCheck(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := deps.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
