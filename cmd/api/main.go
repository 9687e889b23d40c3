package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bookkeeping/internal/cache"
	"bookkeeping/internal/config"
	"bookkeeping/internal/db"
	"bookkeeping/internal/handler"
	"bookkeeping/internal/logging"
	"bookkeeping/internal/observability"
	"bookkeeping/internal/queue"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.Log)

	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Init(ctx, &cfg.DB)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close database connection")
		}
	}()

	// Initialize Prometheus metrics
	metrics := observability.NewMetrics(observability.NewRegistry())
	if err := metrics.RegisterDBStats(database.DB, cfg.DB.Driver); err != nil {
		logrus.WithError(err).Warn("Failed to register database stats collector")
	}
	logrus.Info("Metrics initialized")

	rdb, err := cache.SetupRedis(ctx, &cfg.Redis)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Redis")
	}
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close redis connection")
			}
		}()
	}

	conn, err := queue.SetupRabbitMQ(ctx, &cfg.RabbitMQ)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to RabbitMQ")
	}
	var publisher *queue.Publisher
	if conn != nil {
		defer func() {
			if err := conn.Close(); err != nil {
				logrus.WithError(err).Error("Failed to close RabbitMQ connection")
			}
		}()

		publisher, err = queue.NewPublisher(conn, cfg.RabbitMQ.Queue, metrics)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to set up ledger event publisher")
		}
	}

	r, err := handler.SetupHandler(ctx, handler.Dependencies{
		DB:        database,
		Redis:     rdb,
		Publisher: publisher,
		Metrics:   metrics,
		Config:    cfg,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to set up HTTP handler")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Starting server on :%s", cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}
	logrus.Info("Server exited")
}
