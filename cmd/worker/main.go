// Package main runs the background worker that drains the audience sync queue.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumenlive/backend/config"
	"github.com/lumenlive/backend/internal/attendance"
	"github.com/lumenlive/backend/internal/audience"
	"github.com/lumenlive/backend/internal/emaillogs"
	"github.com/lumenlive/backend/internal/notify"
	"github.com/lumenlive/backend/internal/reminders"
	"github.com/lumenlive/backend/internal/webinars"
	"github.com/lumenlive/backend/internal/worker"
	"github.com/lumenlive/backend/pkg/database"
	"github.com/lumenlive/backend/pkg/queue"
	"github.com/lumenlive/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	webinarRepo := webinars.NewRepository(pool)
	attendanceRepo := attendance.NewRepository(pool)
	listClient := audience.NewClient(nil, cfg.AudienceList.BaseURL, cfg.AudienceList.APIKey, cfg.AudienceList.PageSize, logger)
	reconciler := audience.NewReconciler(webinarRepo, attendanceRepo, listClient, logger)

	jobQueue := queue.NewQueue(rdb, logger)
	processor := worker.NewAudienceSyncProcessor(reconciler, jobQueue, logger)

	// The reminder sweeper normally runs inside the server process. Setting
	// RUN_SWEEPER=true moves it here instead, for deployments that keep the
	// API tier stateless.
	if os.Getenv("RUN_SWEEPER") == "true" {
		notifier := notify.New(notify.Config{
			Provider:        cfg.Email.Provider,
			FromAddress:     cfg.Email.FromAddress,
			FromName:        cfg.Email.FromName,
			Region:          cfg.Email.SES.Region,
			AccessKeyID:     cfg.Email.SES.AccessKeyID,
			SecretAccessKey: cfg.Email.SES.SecretAccessKey,
		}, logger)
		emailLogsRepo := emaillogs.NewRepository(pool)
		sweeper := reminders.NewSweeper(webinarRepo, attendanceRepo, notifier, emailLogsRepo, jobQueue, logger, reminders.Options{
			Interval:   cfg.Scheduler.SweepInterval,
			LeadTime:   cfg.Scheduler.LeadTime,
			Tolerance:  cfg.Scheduler.Tolerance,
			TemplateID: cfg.Email.ReminderTemplateID,
			BaseURL:    cfg.Server.PublicBaseURL,
			Locale:     cfg.Scheduler.Locale,
		})
		go sweeper.Run(ctx)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("worker shutting down")
		cancel()
	}()

	logger.Info("worker started")
	processor.Run(ctx)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
