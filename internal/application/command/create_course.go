package command

import (
	"context"
	"strings"
	"time"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/course"
	"github.com/edu-hub/course-hub/internal/domain/enrollment"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/internal/domain/user"
	"github.com/edu-hub/course-hub/pkg/logger"
	"github.com/edu-hub/course-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE COURSE COMMAND
// Creates a course in WAIT state, generates its placeholder lessons,
// and assigns the named instructor in one transaction.
// ══════════════════════════════════════════════════════════════════════════════

// CreateCourseCommand contains the data to create a course.
type CreateCourseCommand struct {
	// Name is the unique course name.
	Name string

	// StartDate is the day the course is scheduled to start.
	StartDate time.Time

	// InstructorEmail identifies the instructor assigned at creation.
	InstructorEmail string

	// LessonCount is the number of placeholder lessons to generate.
	LessonCount int

	// Now is the reference time for the start-date check
	// (defaults to the current time if zero).
	Now time.Time
}

// Validate validates the command.
func (c CreateCourseCommand) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return shared.NewDomainError("course", "CreateCourse", shared.ErrInvalidArgument, "course name is required")
	}
	if c.StartDate.IsZero() {
		return shared.NewDomainError("course", "CreateCourse", shared.ErrInvalidArgument, "start date is required")
	}
	if strings.TrimSpace(c.InstructorEmail) == "" {
		return shared.NewDomainError("course", "CreateCourse", shared.ErrInvalidArgument, "instructor email is required")
	}
	return nil
}

// CreateCourseResult contains the result of creating a course.
type CreateCourseResult struct {
	Course       *course.Course
	LessonIDs    []string
	Enrollment   *enrollment.Enrollment
	InstructorID string
}

// CreateCourseHandler handles CreateCourseCommand.
type CreateCourseHandler struct {
	gateway storage.Gateway
	rules   Rules
	bus     shared.EventBus
	logger  *logger.Logger
}

// NewCreateCourseHandler creates a new CreateCourseHandler.
func NewCreateCourseHandler(gateway storage.Gateway, rules Rules, bus shared.EventBus, log *logger.Logger) *CreateCourseHandler {
	if log == nil {
		log = logger.Default()
	}
	return &CreateCourseHandler{
		gateway: gateway,
		rules:   rules,
		bus:     bus,
		logger:  log.With(logger.Component("create_course")),
	}
}

// Handle creates the course, its lessons, and the instructor enrollment.
func (h *CreateCourseHandler) Handle(ctx context.Context, cmd CreateCourseCommand) (*CreateCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := cmd.Now
	if now.IsZero() {
		now = time.Now()
	}
	if timeutil.IsPastDay(cmd.StartDate, now) {
		return nil, shared.NewDomainError("course", "CreateCourse", shared.ErrInvalidArgument, "start date is in the past")
	}
	if cmd.LessonCount < h.rules.MinLessonsPerCourse {
		return nil, shared.NewDomainError("course", "CreateCourse", shared.ErrInvalidArgument, "lesson count below minimum")
	}

	result := &CreateCourseResult{}
	err := h.gateway.Atomic(ctx, func(r *storage.Repos) error {
		name := course.Name(strings.TrimSpace(cmd.Name))
		if _, err := r.Courses.GetByName(ctx, name); err == nil {
			return shared.NewDomainError("course", "CreateCourse", shared.ErrAlreadyExists, "course name already taken")
		} else if !shared.IsNotFound(err) {
			return err
		}

		instructor, err := r.Users.ResolveByEmail(ctx, user.Email(cmd.InstructorEmail).Normalize())
		if err != nil {
			return err
		}
		if !instructor.IsInstructor() {
			return shared.NewDomainError("course", "CreateCourse", shared.ErrRoleMismatch, "assigned user is not an instructor")
		}

		c, err := course.New(name, cmd.StartDate)
		if err != nil {
			return err
		}
		if err := r.Courses.Create(ctx, c); err != nil {
			return err
		}

		lessons, err := course.PlaceholderLessons(c.ID, cmd.LessonCount)
		if err != nil {
			return err
		}
		if err := r.Lessons.CreateBatch(ctx, lessons); err != nil {
			return err
		}

		enr, err := enrollment.New(instructor.ID, c.ID, user.RoleInstructor)
		if err != nil {
			return err
		}
		if err := r.Enrollments.Create(ctx, enr); err != nil {
			return err
		}

		result.Course = c
		result.Enrollment = enr
		result.InstructorID = instructor.ID
		result.LessonIDs = make([]string, 0, len(lessons))
		for _, l := range lessons {
			result.LessonIDs = append(result.LessonIDs, l.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("course created",
		logger.CourseID(result.Course.ID),
		logger.String("name", result.Course.Name.String()),
		logger.Int("lessons", len(result.LessonIDs)),
	)
	h.publish(ctx, result)

	return result, nil
}

func (h *CreateCourseHandler) publish(ctx context.Context, result *CreateCourseResult) {
	if h.bus == nil {
		return
	}
	event := shared.NewCourseCreatedEvent(
		result.Course.ID,
		result.Course.Name.String(),
		result.Course.StartDate,
		len(result.LessonIDs),
	)
	if err := h.bus.Publish(ctx, event); err != nil {
		h.logger.Warn("failed to publish course created event", logger.Err(err))
	}
}
