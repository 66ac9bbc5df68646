package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/halcyonmd/voice-scheduler/internal/api/router"
	"github.com/halcyonmd/voice-scheduler/internal/compliance"
	appconfig "github.com/halcyonmd/voice-scheduler/internal/config"
	"github.com/halcyonmd/voice-scheduler/internal/emr"
	"github.com/halcyonmd/voice-scheduler/internal/emr/nextech"
	"github.com/halcyonmd/voice-scheduler/internal/emr/schedulecache"
	"github.com/halcyonmd/voice-scheduler/internal/http/handlers"
	"github.com/halcyonmd/voice-scheduler/internal/observability/metrics"
	"github.com/halcyonmd/voice-scheduler/internal/schedule"
	"github.com/halcyonmd/voice-scheduler/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting voice-scheduler API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	policy, err := schedule.LoadPolicy(cfg.SchedulingPolicyPath)
	if err != nil {
		logger.Error("failed to load scheduling policy", "path", cfg.SchedulingPolicyPath, "error", err)
		os.Exit(1)
	}

	schedMetrics := metrics.NewSchedulingMetrics(prometheus.DefaultRegisterer)

	// Schedule source: Nextech EMR behind a short-lived Redis snapshot cache.
	emrClient, err := nextech.New(nextech.Config{
		BaseURL:      cfg.NextechBaseURL,
		ClientID:     cfg.NextechClientID,
		ClientSecret: cfg.NextechClientSecret,
		Timeout:      cfg.NextechTimeout,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("failed to create EMR client", "error", err)
		os.Exit(1)
	}

	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(redisOpts)
	cachedEMR := schedulecache.New(emrClient, rdb, cfg.ScheduleCacheTTL, logger)
	provider := emr.NewScheduleAdapter(cachedEMR, logger, schedMetrics)

	// Audit trail
	var audit schedule.AuditEmitter
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		audit = compliance.NewAuditService(db)
	} else {
		logger.Warn("DATABASE_URL not set; decision audit trail disabled")
	}

	engine, err := schedule.NewEngine(schedule.EngineConfig{
		Provider: provider,
		Policy:   policy,
		Audit:    audit,
		Metrics:  schedMetrics,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to create conflict engine", "error", err)
		os.Exit(1)
	}

	// Setup router
	scheduleHandler := handlers.NewScheduleHandler(engine, logger, cfg.MaxSuggestions)
	r := router.New(&router.Config{
		Logger:          logger,
		ScheduleHandler: scheduleHandler,
		MetricsHandler:  promhttp.Handler(),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
