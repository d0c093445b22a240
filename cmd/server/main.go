package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lessonmarket/backend/internal/app"
	"github.com/lessonmarket/backend/internal/config"
	"github.com/lessonmarket/backend/internal/notify"
	"github.com/lessonmarket/backend/internal/repository"
	"github.com/lessonmarket/backend/internal/server"
	"github.com/lessonmarket/backend/internal/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting lesson market backend",
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr),
	)

	// База данных
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create connection pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	// Миграции
	migrator, err := app.NewMigrator(pool, "migrations", logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	// Уведомления: Redis pub/sub, либо заглушка если брокер не настроен
	var notifier notify.Notifier = notify.Noop{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		notifier = notify.NewRedisNotifier(redisClient, logger)
		logger.Info("Notifications enabled", zap.String("redis_addr", cfg.RedisAddr))
	} else {
		logger.Warn("REDIS_ADDR not set, notifications disabled")
	}

	// Репозитории и сервисы
	availabilityRepo := repository.NewAvailabilityRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	contactRepo := repository.NewContactRepository(pool)

	availabilityService := service.NewAvailabilityService(availabilityRepo, bookingRepo, notifier, logger)
	bookingService := service.NewBookingService(bookingRepo, contactRepo, notifier, logger)

	// Фоновая чистка просроченной доступности
	scheduler := app.NewScheduler(availabilityService, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// HTTP-сервер
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.New(availabilityService, bookingService, logger).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Ждём SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
