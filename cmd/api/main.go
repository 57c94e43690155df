package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"habittracker/internal/config"
	"habittracker/internal/db"
	"habittracker/internal/handler"
	"habittracker/internal/httpserver"
	"habittracker/internal/mq"
	"habittracker/internal/realtime"
	redisclient "habittracker/internal/redis"
	"habittracker/internal/reminder"
	"habittracker/internal/repository"
	"habittracker/internal/service"
	"habittracker/pkg/logger"
)

func main() {
	// Load config
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init DB. The listener comes up even if the database is down; the
	// monitor gates store-backed routes until a ping succeeds.
	pool, err := db.NewPool(cfg.DB, log)
	if err != nil {
		log.Fatal("DB initialization failed", zap.Error(err))
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Warn("Schema not applied yet, retrying when the database comes up", zap.Error(err))
	}

	monitor := db.NewMonitor(pool, log, 5*time.Second, func(ctx context.Context) {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			log.Error("Failed to apply schema", zap.Error(err))
		}
	})
	go monitor.Run(ctx)

	// Init Redis and the realtime hub
	rdb := redisclient.NewClient(cfg.Redis, log)
	defer rdb.Close()

	hub := realtime.NewHub(rdb, log)
	go hub.Run(ctx)

	// Init RabbitMQ publisher, optional by config
	var publisher *mq.Publisher
	if cfg.MQ.URL != "" {
		publisher, err = mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Warn("RabbitMQ unavailable, reminder events disabled", zap.Error(err))
		} else {
			defer publisher.Close()
		}
	}

	// Init Repositories
	userRepo := repository.NewUserRepository(pool)
	habitRepo := repository.NewHabitRepository(pool, log)
	progressRepo := repository.NewProgressRepository(pool, log)

	// Init Services
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, log)
	habitService := service.NewHabitService(habitRepo, hub, log)
	progressService := service.NewProgressService(progressRepo, habitRepo, hub, log)

	// Reminder scheduler, deduplicated across instances through Redis
	var schedulerPublisher reminder.EventPublisher
	if publisher != nil {
		schedulerPublisher = publisher
	}
	scheduler := reminder.NewScheduler(habitRepo, schedulerPublisher, hub, reminder.NewRedisDeduper(rdb, log), log)
	go scheduler.Run(ctx)

	// Init Handlers
	authHandler := handler.NewAuthHandler(authService, log)
	habitHandler := handler.NewHabitHandler(habitService, log)
	progressHandler := handler.NewProgressHandler(progressService, log)
	healthHandler := handler.NewHealthHandler(monitor)
	wsHandler := handler.NewWSHandler(hub, cfg.JWT.Secret, log)

	// Router
	router := httpserver.NewRouter(
		authHandler,
		habitHandler,
		progressHandler,
		healthHandler,
		wsHandler,
		monitor,
		cfg.JWT.Secret,
	)

	// Start API server
	if err := router.Run(cfg.Server.Port); err != nil {
		log.Fatal("server start failed", zap.Error(err))
	}
}
