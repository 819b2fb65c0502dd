// Package main seeds a development database with a usable set of
// accounts and a demo course so the API can be exercised immediately.
//
// The seeder is idempotent: accounts that already exist are skipped,
// not duplicated.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/edu-hub/course-hub/config"
	"github.com/edu-hub/course-hub/internal/application/command"
	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/internal/domain/user"
	"github.com/edu-hub/course-hub/internal/infrastructure/messaging"
	"github.com/edu-hub/course-hub/internal/infrastructure/persistence/postgres"
	"github.com/edu-hub/course-hub/pkg/logger"
)

type seedAccount struct {
	Email       string
	DisplayName string
	Role        user.Role
	Password    string
}

var accounts = []seedAccount{
	{"admin@coursehub.dev", "Admin", user.RoleAdmin, "admin-dev-password"},
	{"knuth@coursehub.dev", "Donald Knuth", user.RoleInstructor, "instructor-dev-password"},
	{"hopper@coursehub.dev", "Grace Hopper", user.RoleInstructor, "instructor-dev-password"},
	{"alice@coursehub.dev", "Alice", user.RoleStudent, "student-dev-password"},
	{"bob@coursehub.dev", "Bob", user.RoleStudent, "student-dev-password"},
	{"carol@coursehub.dev", "Carol", user.RoleStudent, "student-dev-password"},
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required for seeding")
	}
	if cfg.IsProduction() {
		return errors.New("refusing to seed a production environment")
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	conn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	if cfg.Database.AutoMigrate {
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	gateway := postgres.NewGateway(conn)

	// ─────────────────────────────────────────────────────────────────────────
	// Accounts
	// ─────────────────────────────────────────────────────────────────────────
	created := 0
	err = gateway.Atomic(ctx, func(r *storage.Repos) error {
		for _, acc := range accounts {
			_, err := r.Users.ResolveByEmail(ctx, user.Email(acc.Email))
			if err == nil {
				log.Info("account exists, skipping", "email", acc.Email)
				continue
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}

			u, err := user.New(user.Email(acc.Email), acc.DisplayName, acc.Role)
			if err != nil {
				return err
			}
			if err := u.SetPassword(acc.Password); err != nil {
				return err
			}
			if err := r.Users.Create(ctx, u); err != nil {
				return err
			}
			created++
			log.Info("account created", "email", acc.Email, "role", string(acc.Role))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to seed accounts: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Demo course
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.AsyncMode = false
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer func() { _ = bus.Close() }()

	appLog := logger.Default()
	rules := command.Rules{
		MaxEnrollmentsPerStudent: cfg.Rules.MaxEnrollmentsPerStudent,
		MinLessonsPerCourse:      cfg.Rules.MinLessonsPerCourse,
		PassThreshold:            cfg.Rules.PassThreshold,
	}

	createCourse := command.NewCreateCourseHandler(gateway, rules, bus, appLog)
	result, err := createCourse.Handle(ctx, command.CreateCourseCommand{
		Name:            "Introduction to Algorithms",
		StartDate:       time.Now().AddDate(0, 0, 7),
		InstructorEmail: "knuth@coursehub.dev",
		LessonCount:     cfg.Rules.MinLessonsPerCourse,
	})
	switch {
	case err == nil:
		log.Info("demo course created",
			"course_id", result.Course.ID,
			"lessons", len(result.LessonIDs),
		)
	case errors.Is(err, shared.ErrAlreadyExists):
		log.Info("demo course exists, skipping")
	default:
		return fmt.Errorf("failed to seed demo course: %w", err)
	}

	log.Info("seeding complete", "accounts_created", created)
	return nil
}
