package command

import (
	"context"
	"strings"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/course"
	"github.com/edu-hub/course-hub/internal/domain/enrollment"
	"github.com/edu-hub/course-hub/internal/domain/grading"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/internal/domain/user"
	"github.com/edu-hub/course-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLY FOR COURSE COMMAND
// Enrolls a student and creates one unmarked homework placeholder per
// lesson. The enrollment-limit check reads the persisted count inside
// the same transaction that inserts, so two concurrent applications
// cannot both pass the limit.
// ══════════════════════════════════════════════════════════════════════════════

// ApplyForCourseCommand contains the data to enroll a student.
type ApplyForCourseCommand struct {
	// CourseName identifies the course by its unique name.
	CourseName string

	// ActorEmail is the identity performing the action. When the actor
	// is an admin, StudentEmail names the student being enrolled;
	// otherwise the actor is the student and StudentEmail is ignored.
	ActorEmail string

	// StudentEmail names the student when an admin acts on their behalf.
	StudentEmail string
}

// Validate validates the command.
func (c ApplyForCourseCommand) Validate() error {
	if strings.TrimSpace(c.CourseName) == "" {
		return shared.NewDomainError("enrollment", "ApplyForCourse", shared.ErrInvalidArgument, "course name is required")
	}
	if strings.TrimSpace(c.ActorEmail) == "" {
		return shared.NewDomainError("enrollment", "ApplyForCourse", shared.ErrInvalidArgument, "actor email is required")
	}
	return nil
}

// ApplyForCourseResult contains the created enrollment and placeholders.
type ApplyForCourseResult struct {
	Enrollment       *enrollment.Enrollment
	HomeworksCreated int
}

// ApplyForCourseHandler handles ApplyForCourseCommand.
type ApplyForCourseHandler struct {
	gateway storage.Gateway
	rules   Rules
	bus     shared.EventBus
	logger  *logger.Logger
}

// NewApplyForCourseHandler creates a new ApplyForCourseHandler.
func NewApplyForCourseHandler(gateway storage.Gateway, rules Rules, bus shared.EventBus, log *logger.Logger) *ApplyForCourseHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ApplyForCourseHandler{
		gateway: gateway,
		rules:   rules,
		bus:     bus,
		logger:  log.With(logger.Component("apply_for_course")),
	}
}

// Handle enrolls the student and creates the homework placeholders.
func (h *ApplyForCourseHandler) Handle(ctx context.Context, cmd ApplyForCourseCommand) (*ApplyForCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result := &ApplyForCourseResult{}
	err := h.gateway.Atomic(ctx, func(r *storage.Repos) error {
		// The gateway may restart the transaction, so the result counters
		// start over on each run.
		result.HomeworksCreated = 0

		c, err := r.Courses.GetByName(ctx, course.Name(strings.TrimSpace(cmd.CourseName)))
		if err != nil {
			return err
		}

		student, err := h.resolveStudent(ctx, r, cmd)
		if err != nil {
			return err
		}
		if !student.IsStudent() {
			return shared.NewDomainError("enrollment", "ApplyForCourse", shared.ErrRoleMismatch, "user is not a student")
		}

		held, err := r.Enrollments.CountByUser(ctx, student.ID)
		if err != nil {
			return err
		}
		if held >= h.rules.MaxEnrollmentsPerStudent {
			return shared.NewDomainError("enrollment", "ApplyForCourse", shared.ErrLimitExceeded, "student already holds the maximum number of enrollments")
		}

		exists, err := r.Enrollments.Exists(ctx, student.ID, c.ID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("enrollment", "ApplyForCourse", shared.ErrAlreadyAssigned, "student already enrolled in course")
		}

		enr, err := enrollment.New(student.ID, c.ID, user.RoleStudent)
		if err != nil {
			return err
		}
		if err := r.Enrollments.Create(ctx, enr); err != nil {
			return err
		}

		lessons, err := r.Lessons.ListByCourse(ctx, c.ID)
		if err != nil {
			return err
		}
		for _, l := range lessons {
			has, err := r.Homeworks.ExistsForUserAndLesson(ctx, student.ID, l.ID)
			if err != nil {
				return err
			}
			if has {
				continue
			}
			hw, err := grading.NewPlaceholder(student.ID, l.ID, c.ID)
			if err != nil {
				return err
			}
			if err := r.Homeworks.Create(ctx, hw); err != nil {
				return err
			}
			result.HomeworksCreated++
		}

		result.Enrollment = enr
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("student enrolled",
		logger.CourseID(result.Enrollment.CourseID),
		logger.UserID(result.Enrollment.UserID),
		logger.Int("homeworks_created", result.HomeworksCreated),
	)
	if h.bus != nil {
		enr := result.Enrollment
		event := shared.NewEnrollmentEvent(shared.EventEnrollmentCreated, enr.ID, enr.UserID, enr.CourseID, enr.Role.String())
		if err := h.bus.Publish(ctx, event); err != nil {
			h.logger.Warn("failed to publish enrollment event", logger.Err(err))
		}
	}
	return result, nil
}

// resolveStudent determines who is being enrolled: admins enroll the
// explicitly named student, everyone else enrolls themselves.
func (h *ApplyForCourseHandler) resolveStudent(ctx context.Context, r *storage.Repos, cmd ApplyForCourseCommand) (*user.User, error) {
	actor, err := r.Users.ResolveByEmail(ctx, user.Email(cmd.ActorEmail).Normalize())
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return actor, nil
	}
	if strings.TrimSpace(cmd.StudentEmail) == "" {
		return nil, shared.NewDomainError("enrollment", "ApplyForCourse", shared.ErrInvalidArgument, "student email is required when acting as admin")
	}
	return r.Users.ResolveByEmail(ctx, user.Email(cmd.StudentEmail).Normalize())
}
