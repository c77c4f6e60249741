package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"profile_hub/internal/audit"
	"profile_hub/internal/cache"
	"profile_hub/internal/config"
	"profile_hub/internal/db"
	"profile_hub/internal/handler"
	"profile_hub/internal/observability"
	"profile_hub/internal/queue"
	"profile_hub/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg := config.Load()
	mongoDB := db.InitMongo(&cfg.Mongo)

	// Audit trail reads go straight to the worker's Postgres store
	auditDB := db.InitPostgres(&cfg.Audit)
	defer func() {
		if err := auditDB.Close(); err != nil {
			logrus.WithError(err).Fatal("Failed to close database connection")
		}
	}()

	// Unique email index and the text index behind search
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := user.NewUserRepository(mongoDB).EnsureIndexes(ctx); err != nil {
		logrus.WithError(err).Fatal("Failed to ensure user indexes")
	}
	cancel()

	rdb := cache.SetupRedis(&cfg.Redis)
	defer func() {
		if err := rdb.Close(); err != nil {
			logrus.WithError(err).Fatal("Failed to close redis connection")
		}
	}()

	conn := queue.SetupRabbitMQ(&cfg.RabbitMQ)
	defer func() {
		if err := conn.Close(); err != nil {
			logrus.WithError(err).Fatal("Failed to close RabbitMQ connection")
		}
	}()

	// Declare the audit queue up front so events published before the
	// worker starts are not dropped
	ch, err := queue.CreateChannel(conn)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open RabbitMQ channel")
	}
	if _, err := queue.DeclareQueue(ch, audit.QueueName); err != nil {
		logrus.WithError(err).Fatal("Failed to declare audit queue")
	}
	ch.Close()

	// Initialize Prometheus metrics
	observability.InitMetrics()
	logrus.Info("Metrics initialized")

	r := handler.SetupHandler(mongoDB, auditDB, conn, rdb, cfg)

	// Expose /metrics endpoint for Prometheus to scrape
	r.GET("/metrics", func(c *gin.Context) {
		promhttp.Handler().ServeHTTP(c.Writer, c.Request)
	})
	logrus.Info("Metrics endpoint exposed at /metrics")

	addr := ":" + cfg.AppPort
	if cfg.AppPort == "" {
		addr = ":8085"
	}

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logrus.Info("Starting server on ", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")
}
