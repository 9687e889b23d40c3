package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bookkeeping/internal/audit"
	"bookkeeping/internal/config"
	"bookkeeping/internal/db"
	"bookkeeping/internal/logging"
	"bookkeeping/internal/observability"
	"bookkeeping/internal/queue"
	"bookkeeping/internal/worker"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.Log)

	if !cfg.RabbitMQ.Enabled() {
		logrus.Fatal("RABBITMQ_URL is required for the audit worker")
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

	conn, err := queue.SetupRabbitMQ(ctx, &cfg.RabbitMQ)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to RabbitMQ")
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close RabbitMQ connection")
		}
	}()

	consumerChannel, err := queue.CreateChannel(conn)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create RabbitMQ channel")
	}
	if _, err := queue.DeclareQueue(consumerChannel, cfg.RabbitMQ.Queue); err != nil {
		logrus.WithError(err).Fatal("Failed to declare RabbitMQ queue")
	}
	if err := consumerChannel.Close(); err != nil {
		logrus.WithError(err).Fatal("Failed to close RabbitMQ channel")
	}

	// Initialize Prometheus metrics
	metrics := observability.NewMetrics(observability.NewRegistry())
	if err := metrics.RegisterDBStats(database.DB, cfg.DB.Driver); err != nil {
		logrus.WithError(err).Warn("Failed to register database stats collector")
	}
	logrus.Info("Metrics initialized")

	// Start metrics HTTP server for Prometheus scraping
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	metricsServer := &http.Server{
		Addr:              ":" + cfg.Worker.MetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logrus.Infof("Worker metrics server started on :%s", cfg.Worker.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start metrics server")
		}
	}()

	proc := worker.NewProcessor(audit.NewAuditRepository(database.Dialect), database, metrics)

	var wg sync.WaitGroup
	for i := 1; i <= cfg.Worker.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := worker.StartWorker(ctx, conn, cfg.RabbitMQ.Queue, proc, metrics, id); err != nil {
				logrus.WithError(err).Errorf("Worker %d exited", id)
				stop()
			}
		}(i)
	}

	<-ctx.Done()
	logrus.Info("Shutting down workers...")
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Metrics server forced to shutdown")
	}
}
