package command

import (
	"context"
	"strings"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/course"
	"github.com/edu-hub/course-hub/internal/domain/enrollment"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/internal/domain/user"
	"github.com/edu-hub/course-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGN INSTRUCTOR COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// AssignInstructorCommand attaches an instructor to a course.
type AssignInstructorCommand struct {
	// CourseName identifies the course by its unique name.
	CourseName string

	// InstructorEmail identifies the instructor.
	InstructorEmail string
}

// Validate validates the command.
func (c AssignInstructorCommand) Validate() error {
	if strings.TrimSpace(c.CourseName) == "" {
		return shared.NewDomainError("enrollment", "AssignInstructor", shared.ErrInvalidArgument, "course name is required")
	}
	if strings.TrimSpace(c.InstructorEmail) == "" {
		return shared.NewDomainError("enrollment", "AssignInstructor", shared.ErrInvalidArgument, "instructor email is required")
	}
	return nil
}

// AssignInstructorHandler handles AssignInstructorCommand.
type AssignInstructorHandler struct {
	gateway storage.Gateway
	bus     shared.EventBus
	logger  *logger.Logger
}

// NewAssignInstructorHandler creates a new AssignInstructorHandler.
func NewAssignInstructorHandler(gateway storage.Gateway, bus shared.EventBus, log *logger.Logger) *AssignInstructorHandler {
	if log == nil {
		log = logger.Default()
	}
	return &AssignInstructorHandler{
		gateway: gateway,
		bus:     bus,
		logger:  log.With(logger.Component("assign_instructor")),
	}
}

// Handle creates the instructor enrollment.
func (h *AssignInstructorHandler) Handle(ctx context.Context, cmd AssignInstructorCommand) (*enrollment.Enrollment, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var created *enrollment.Enrollment
	err := h.gateway.Atomic(ctx, func(r *storage.Repos) error {
		c, err := r.Courses.GetByName(ctx, course.Name(strings.TrimSpace(cmd.CourseName)))
		if err != nil {
			return err
		}

		instructor, err := r.Users.ResolveByEmail(ctx, user.Email(cmd.InstructorEmail).Normalize())
		if err != nil {
			return err
		}
		if !instructor.IsInstructor() {
			return shared.NewDomainError("enrollment", "AssignInstructor", shared.ErrRoleMismatch, "user is not an instructor")
		}

		exists, err := r.Enrollments.Exists(ctx, instructor.ID, c.ID)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError("enrollment", "AssignInstructor", shared.ErrAlreadyAssigned, "instructor already assigned to course")
		}

		created, err = enrollment.New(instructor.ID, c.ID, user.RoleInstructor)
		if err != nil {
			return err
		}
		return r.Enrollments.Create(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("instructor assigned",
		logger.CourseID(created.CourseID),
		logger.UserID(created.UserID),
	)
	if h.bus != nil {
		event := shared.NewEnrollmentEvent(shared.EventEnrollmentCreated, created.ID, created.UserID, created.CourseID, created.Role.String())
		if err := h.bus.Publish(ctx, event); err != nil {
			h.logger.Warn("failed to publish enrollment event", logger.Err(err))
		}
	}
	return created, nil
}
