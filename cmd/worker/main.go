// Package main is the entry point for the Course Hub background worker.
//
// The worker runs the scheduled jobs without serving HTTP traffic:
//   - the daily promotion sweep that starts courses whose start date
//     has arrived
//
// Deploying it separately from the API server lets a slow sweep never
// compete with request latency. Exactly one worker instance should run
// per environment; the sweep is idempotent, so an accidental second
// instance causes repeated work, not corruption.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/edu-hub/course-hub/config"
	"github.com/edu-hub/course-hub/internal/application/command"
	"github.com/edu-hub/course-hub/internal/application/eventhandler"
	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/internal/infrastructure/messaging"
	"github.com/edu-hub/course-hub/internal/infrastructure/persistence/memory"
	"github.com/edu-hub/course-hub/internal/infrastructure/persistence/postgres"
	"github.com/edu-hub/course-hub/internal/infrastructure/persistence/redis"
	"github.com/edu-hub/course-hub/internal/infrastructure/scheduler"
	"github.com/edu-hub/course-hub/internal/infrastructure/scheduler/jobs"
	"github.com/edu-hub/course-hub/pkg/logger"
)

// eventBus is the subset of bus behavior the worker needs.
type eventBus interface {
	shared.EventBus
	SubscribeAll(handler shared.EventHandler) error
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION & LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	appLog := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})

	log.Info("starting Course Hub worker",
		"env", string(cfg.App.Environment),
		"timezone", cfg.App.Timezone,
		"promotion_cron", cfg.Scheduler.PromotionCron,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE GATEWAY
	// ─────────────────────────────────────────────────────────────────────────
	var gateway storage.Gateway

	if cfg.Database.URL != "" {
		dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer dbConn.Close()

		if err := dbConn.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}

		// Migrations belong to the API server; the worker assumes the
		// schema already exists.
		gateway = postgres.NewGateway(dbConn)
		log.Info("database connection established")
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		gateway = memory.NewGateway()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	// The Redis bus is preferred so promotion events reach API
	// instances that cache course state.
	var bus eventBus

	var redisCache *redis.Cache
	if !cfg.Redis.Disabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, using in-memory bus", "error", err)
			redisCache = nil
		}
	}

	if redisCache != nil {
		defer redisCache.Close()
		hostname, _ := os.Hostname()
		bus = messaging.NewRedisEventBus(redisCache.Client(), hostname, log)
	} else {
		busCfg := messaging.DefaultInMemoryEventBusConfig()
		busCfg.Logger = log
		bus = messaging.NewInMemoryEventBus(busCfg)
	}
	defer func() { _ = bus.Close() }()

	if err := bus.SubscribeAll(eventhandler.NewAuditHandler(log)); err != nil {
		return fmt.Errorf("failed to subscribe audit handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	rules := command.Rules{
		MaxEnrollmentsPerStudent: cfg.Rules.MaxEnrollmentsPerStudent,
		MinLessonsPerCourse:      cfg.Rules.MinLessonsPerCourse,
		PassThreshold:            cfg.Rules.PassThreshold,
	}

	updateStatus := command.NewUpdateCourseStatusHandler(gateway, rules, bus, appLog)
	promoteCourses := command.NewPromoteCoursesHandler(gateway, updateStatus, appLog)

	cronSchedule, err := scheduler.ParseCron(cfg.Scheduler.PromotionCron)
	if err != nil {
		return fmt.Errorf("invalid promotion cron %q: %w", cfg.Scheduler.PromotionCron, err)
	}

	sched := scheduler.NewScheduler(scheduler.SchedulerConfig{
		Logger:        log,
		Timezone:      cfg.App.Location,
		EnableMetrics: true,
	})

	promoteJob := jobs.NewPromoteCoursesJob(promoteCourses, cfg.App.Location, log)
	if err := sched.Register(promoteJob, cronSchedule); err != nil {
		return fmt.Errorf("failed to register promotion job: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() {
		log.Info("stopping scheduler...")
		_ = sched.Stop()
	}()

	log.Info("worker is running")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. WAIT FOR SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	return nil
}

// setupLogger configures the process-wide structured logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
