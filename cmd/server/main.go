// Package main runs the webinar lifecycle HTTP server with the reminder
// sweeper and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumenlive/backend/config"
	"github.com/lumenlive/backend/internal/attendance"
	"github.com/lumenlive/backend/internal/audience"
	"github.com/lumenlive/backend/internal/auth"
	"github.com/lumenlive/backend/internal/cta"
	"github.com/lumenlive/backend/internal/emaillogs"
	"github.com/lumenlive/backend/internal/middleware"
	"github.com/lumenlive/backend/internal/notify"
	"github.com/lumenlive/backend/internal/realtime"
	"github.com/lumenlive/backend/internal/reminders"
	"github.com/lumenlive/backend/internal/webinars"
	"github.com/lumenlive/backend/pkg/database"
	"github.com/lumenlive/backend/pkg/queue"
	"github.com/lumenlive/backend/pkg/redis"
	"github.com/lumenlive/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.JWT.Secret)
	redisPubSub := realtime.NewRedisPubSub(rdb, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	notifier := notify.New(notify.Config{
		Provider:        cfg.Email.Provider,
		FromAddress:     cfg.Email.FromAddress,
		FromName:        cfg.Email.FromName,
		Region:          cfg.Email.SES.Region,
		AccessKeyID:     cfg.Email.SES.AccessKeyID,
		SecretAccessKey: cfg.Email.SES.SecretAccessKey,
	}, logger)

	// Webinars
	webinarRepo := webinars.NewRepository(pool)
	webinarHandler := webinars.NewHandler(webinarRepo, hub)

	// Attendance
	attendanceRepo := attendance.NewRepository(pool)
	attendanceSvc := attendance.NewService(attendanceRepo, webinarRepo, logger)
	attendanceHandler := attendance.NewHandler(attendanceSvc, logger)

	// CTA visibility
	ctaRepo := cta.NewRepository(pool)
	ctaSvc := cta.NewService(ctaRepo, webinarRepo)
	ctaHandler := cta.NewHandler(ctaSvc, hub)

	// Audience reconciliation
	listClient := audience.NewClient(nil, cfg.AudienceList.BaseURL, cfg.AudienceList.APIKey, cfg.AudienceList.PageSize, logger)
	reconciler := audience.NewReconciler(webinarRepo, attendanceRepo, listClient, logger)
	audienceHandler := audience.NewHandler(reconciler, logger)

	// Reminders
	emailLogsRepo := emaillogs.NewRepository(pool)
	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo)
	jobQueue := queue.NewQueue(rdb, logger)
	sweeper := reminders.NewSweeper(webinarRepo, attendanceRepo, notifier, emailLogsRepo, jobQueue, logger, reminders.Options{
		Interval:   cfg.Scheduler.SweepInterval,
		LeadTime:   cfg.Scheduler.LeadTime,
		Tolerance:  cfg.Scheduler.Tolerance,
		TemplateID: cfg.Email.ReminderTemplateID,
		BaseURL:    cfg.Server.PublicBaseURL,
		Locale:     cfg.Scheduler.Locale,
	})
	reminderHandler := reminders.NewHandler(sweeper, webinarRepo, logger)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Webinars
		api.GET("/webinars", webinarHandler.List)
		api.POST("/webinars", middleware.RequireRole("admin"), webinarHandler.Create)
		api.GET("/webinars/:id", webinarHandler.GetByID)
		api.PATCH("/webinars/:id/status", middleware.RequireRole("admin"), webinarHandler.AdvanceStatus)
		api.POST("/webinars/:id/ctas", middleware.RequireRole("admin"), webinarHandler.AppendCTA)

		// Attendance
		api.POST("/webinars/:id/register", attendanceHandler.Register)
		api.DELETE("/webinars/:id/register", attendanceHandler.Unregister)
		api.POST("/webinars/:id/attend", attendanceHandler.Attend)
		api.POST("/webinars/:id/watch", attendanceHandler.Watch)
		api.GET("/webinars/:id/attendees", middleware.RequireRole("admin"), attendanceHandler.ListAttendees)

		// CTA visibility
		api.GET("/webinars/:id/cta", ctaHandler.GetActive)
		api.POST("/webinars/:id/cta/:index/activate", middleware.RequireRole("admin"), ctaHandler.Activate)
		api.POST("/webinars/:id/cta/:index/deactivate", middleware.RequireRole("admin"), ctaHandler.Deactivate)

		// Reminders and audience sync
		api.POST("/webinars/:id/test-reminder", middleware.RequireRole("admin"), reminderHandler.TestReminder)
		api.POST("/webinars/:id/sync-audience", middleware.RequireRole("admin"), audienceHandler.Sync)
		api.GET("/webinars/:id/emails", middleware.RequireRole("admin"), emailLogsHandler.ListByWebinar)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Reminder sweeper runs in-process unless the worker owns it
	// (RUN_SWEEPER=true there). Concurrent sweeps are safe either way; the
	// reminder claim makes dispatch at-most-once per webinar.
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	if os.Getenv("RUN_SWEEPER") != "true" {
		go sweeper.Run(sweepCtx)
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sweepCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
