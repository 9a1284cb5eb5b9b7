package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/tasklane/tasklane/internal/allocations"
	"github.com/tasklane/tasklane/internal/auth"
	"github.com/tasklane/tasklane/internal/config"
	"github.com/tasklane/tasklane/internal/database"
	"github.com/tasklane/tasklane/internal/health"
	"github.com/tasklane/tasklane/internal/logging"
	"github.com/tasklane/tasklane/internal/mailer"
	"github.com/tasklane/tasklane/internal/notify"
	"github.com/tasklane/tasklane/internal/scheduler"
	"github.com/tasklane/tasklane/internal/sendlog"
	"github.com/tasklane/tasklane/internal/summaries"
	"github.com/tasklane/tasklane/internal/users"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logger.Error("Failed to run migrations", "error", err.Error())
		os.Exit(1)
	}

	if cfg.Env == "development" && cfg.SeedDevData {
		if err := database.SeedDevData(db); err != nil {
			logger.Warn("Failed to seed dev data", "error", err.Error())
		}
	}

	var mail mailer.Mailer
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	} else {
		logger.Warn("SMTP_HOST not set, emails will be logged instead of sent")
		mail = mailer.NewLogMailer(logger)
	}

	deps := scheduler.Deps{
		Users:       users.NewDirectory(db),
		Preferences: notify.NewStore(db, logger),
		Allocations: allocations.NewRepository(db),
		Ledger:      sendlog.New(db, logger),
		Mailer:      mail,
	}

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("Invalid REDIS_URL, running without tick lock", "error", err.Error())
		} else {
			deps.TickLock = scheduler.NewRedisTickLock(redis.NewClient(opt), cfg.TickInterval)
		}
	}

	sched := scheduler.New(cfg.TickInterval, logger, deps)
	sched.Start()

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sessions.Sessions("tasklane_session", cookie.NewStore([]byte(cfg.SessionSecret))))

	router.GET("/health", gin.WrapF(health.Handler))

	api := router.Group("/api", auth.RequireAuth())
	api.POST("/summaries/test/daily", summaries.SendTestDailyHandler(sched))
	api.POST("/summaries/test/weekly", summaries.SendTestWeeklyHandler(sched))

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		logger.Info("HTTP server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err.Error())
	}
}
