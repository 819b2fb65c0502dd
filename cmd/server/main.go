// Package main is the entry point for the Course Hub API server.
//
// The server wires the full stack: storage gateway (PostgreSQL or the
// in-memory store), read-side Redis cache, event bus, command/query
// handlers, the daily promotion scheduler, and the REST API.
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
	"github.com/edu-hub/course-hub/internal/application/query"
	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/internal/infrastructure/messaging"
	"github.com/edu-hub/course-hub/internal/infrastructure/persistence/memory"
	"github.com/edu-hub/course-hub/internal/infrastructure/persistence/postgres"
	"github.com/edu-hub/course-hub/internal/infrastructure/persistence/redis"
	"github.com/edu-hub/course-hub/internal/infrastructure/scheduler"
	"github.com/edu-hub/course-hub/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/edu-hub/course-hub/internal/interface/http"
	"github.com/edu-hub/course-hub/internal/interface/http/handlers"
	"github.com/edu-hub/course-hub/pkg/logger"
)

// eventBus is the subset of bus behavior the wiring needs. Both the
// in-memory and the Redis bus satisfy it.
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
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	appLog := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.Observability.LogLevel),
	})

	log.Info("starting Course Hub API server",
		"env", string(cfg.App.Environment),
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. STORAGE GATEWAY (PostgreSQL or in-memory)
	// ─────────────────────────────────────────────────────────────────────────
	var gateway storage.Gateway
	var dbConn *postgres.Connection

	if cfg.Database.URL != "" {
		log.Info("connecting to database...")
		dbConn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		if err := dbConn.Ping(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		log.Info("database connection established")

		if cfg.Database.AutoMigrate {
			log.Info("running database migrations...")
			migrator := postgres.NewMigrator(dbConn)
			if err := migrator.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("migrations completed")
		}

		gateway = postgres.NewGateway(dbConn)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory store")
		gateway = memory.NewGateway()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (read-side cache, optional)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	var markCache query.CourseMarkCache
	var invalidator eventhandler.MarkCacheInvalidator

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		if cfg.Redis.PoolSize > 0 {
			redisCfg.PoolSize = cfg.Redis.PoolSize
		}

		redisCache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			cmCache := redis.NewCourseMarkCache(redisCache)
			markCache = cmCache
			invalidator = cmCache
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	var bus eventBus
	if redisCache != nil {
		hostname, _ := os.Hostname()
		bus = messaging.NewRedisEventBus(redisCache.Client(), hostname, log)
		log.Info("using Redis event bus", "instance", hostname)
	} else {
		busCfg := messaging.DefaultInMemoryEventBusConfig()
		busCfg.Logger = log
		bus = messaging.NewInMemoryEventBus(busCfg)
		log.Info("using in-memory event bus")
	}
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	if invalidator != nil {
		upserted := eventhandler.NewOnCourseMarkUpsertedHandler(invalidator, log)
		if err := bus.Subscribe(shared.EventCourseMarkUpserted, upserted); err != nil {
			return fmt.Errorf("failed to subscribe cache invalidator: %w", err)
		}
		if err := bus.Subscribe(shared.EventCourseMarkFinalized, upserted); err != nil {
			return fmt.Errorf("failed to subscribe cache invalidator: %w", err)
		}

		deleted := eventhandler.NewOnCourseDeletedHandler(invalidator, log)
		if err := bus.Subscribe(shared.EventCourseDeleted, deleted); err != nil {
			return fmt.Errorf("failed to subscribe course deletion handler: %w", err)
		}
	}

	if err := bus.SubscribeAll(eventhandler.NewAuditHandler(log)); err != nil {
		return fmt.Errorf("failed to subscribe audit handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION LAYER (Commands and Queries)
	// ─────────────────────────────────────────────────────────────────────────
	rules := command.Rules{
		MaxEnrollmentsPerStudent: cfg.Rules.MaxEnrollmentsPerStudent,
		MinLessonsPerCourse:      cfg.Rules.MinLessonsPerCourse,
		PassThreshold:            cfg.Rules.PassThreshold,
	}

	createCourse := command.NewCreateCourseHandler(gateway, rules, bus, appLog)
	updateStatus := command.NewUpdateCourseStatusHandler(gateway, rules, bus, appLog)
	deleteCourse := command.NewDeleteCourseHandler(gateway, bus, appLog)
	assignInstructor := command.NewAssignInstructorHandler(gateway, bus, appLog)
	applyForCourse := command.NewApplyForCourseHandler(gateway, rules, bus, appLog)
	removeEnrollment := command.NewRemoveEnrollmentHandler(gateway, bus, appLog)
	submitHomework := command.NewSubmitHomeworkHandler(gateway, bus, appLog)
	setMark := command.NewSetMarkHandler(gateway, rules, bus, appLog)
	finishCourse := command.NewFinishCourseHandler(gateway, rules, bus, appLog)
	promoteCourses := command.NewPromoteCoursesHandler(gateway, updateStatus, appLog)

	getCourseMark := query.NewGetCourseMarkHandler(gateway, markCache, appLog)
	isAssigned := query.NewIsAssignedHandler(gateway)
	listCourses := query.NewListCoursesHandler(gateway)

	// ─────────────────────────────────────────────────────────────────────────
	// 8. SCHEDULER (daily promotion sweep)
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Scheduler.Enabled {
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

		log.Info("scheduler started", "promotion_cron", cfg.Scheduler.PromotionCron)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker("v1")
	if dbConn != nil {
		health.AddCheck("database", handlers.NewDatabaseCheck(dbConn))
	}
	if redisCache != nil {
		health.AddCheck("cache", handlers.NewCacheCheck(redisCache))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 10. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpserver.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.APIKeys = cfg.HTTP.APIKeys

	server := httpserver.NewServer(httpCfg, httpserver.Dependencies{
		CreateCourse:       createCourse,
		UpdateCourseStatus: updateStatus,
		DeleteCourse:       deleteCourse,
		AssignInstructor:   assignInstructor,
		ApplyForCourse:     applyForCourse,
		RemoveEnrollment:   removeEnrollment,
		SubmitHomework:     submitHomework,
		SetMark:            setMark,
		FinishCourse:       finishCourse,
		PromoteCourses:     promoteCourses,
		GetCourseMark:      getCourseMark,
		IsAssigned:         isAssigned,
		ListCourses:        listCourses,
		Logger:             appLog,
		HealthChecker:      health,
	})

	errCh := server.StartAsync()

	log.Info("Course Hub API server is running", "address", server.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 11. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			log.Error("server error", "error", err)
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", "error", err)
		return err
	}

	log.Info("shutdown completed")
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
