package command

import (
	"context"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/course"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/internal/domain/user"
	"github.com/edu-hub/course-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE COURSE STATUS COMMAND
// Applies one lifecycle transition. Starting a course additionally
// requires an instructor enrollment and the minimum lesson count, both
// read inside the same transaction that writes the status.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateCourseStatusCommand contains the data for a status transition.
type UpdateCourseStatusCommand struct {
	// CourseID identifies the course.
	CourseID string

	// NewStatus is the target lifecycle state.
	NewStatus course.Status

	// promoted marks transitions applied by the scheduler; it only
	// changes which event is published.
	promoted bool
}

// Validate validates the command.
func (c UpdateCourseStatusCommand) Validate() error {
	if c.CourseID == "" {
		return shared.NewDomainError("course", "UpdateStatus", shared.ErrInvalidID, "course ID is required")
	}
	if !c.NewStatus.IsValid() {
		return shared.NewDomainError("course", "UpdateStatus", shared.ErrInvalidArgument, "unknown status")
	}
	return nil
}

// UpdateCourseStatusHandler handles UpdateCourseStatusCommand.
type UpdateCourseStatusHandler struct {
	gateway storage.Gateway
	rules   Rules
	bus     shared.EventBus
	logger  *logger.Logger
}

// NewUpdateCourseStatusHandler creates a new UpdateCourseStatusHandler.
func NewUpdateCourseStatusHandler(gateway storage.Gateway, rules Rules, bus shared.EventBus, log *logger.Logger) *UpdateCourseStatusHandler {
	if log == nil {
		log = logger.Default()
	}
	return &UpdateCourseStatusHandler{
		gateway: gateway,
		rules:   rules,
		bus:     bus,
		logger:  log.With(logger.Component("update_course_status")),
	}
}

// Handle applies the transition and returns the updated course.
func (h *UpdateCourseStatusHandler) Handle(ctx context.Context, cmd UpdateCourseStatusCommand) (*course.Course, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var (
		updated   *course.Course
		oldStatus course.Status
	)
	err := h.gateway.Atomic(ctx, func(r *storage.Repos) error {
		c, err := r.Courses.GetByID(ctx, cmd.CourseID)
		if err != nil {
			return err
		}
		oldStatus = c.Status

		if cmd.NewStatus == course.StatusStarted {
			if err := h.checkStartInvariants(ctx, r, c.ID); err != nil {
				return err
			}
		}

		if err := c.Transition(cmd.NewStatus); err != nil {
			return err
		}
		if err := r.Courses.Update(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("course status changed",
		logger.CourseID(updated.ID),
		logger.String("from", oldStatus.String()),
		logger.String("to", updated.Status.String()),
	)
	if h.bus != nil {
		event := shared.NewCourseStatusEvent(updated.ID, oldStatus.String(), updated.Status.String(), cmd.promoted)
		if err := h.bus.Publish(ctx, event); err != nil {
			h.logger.Warn("failed to publish status event", logger.Err(err))
		}
	}

	return updated, nil
}

// checkStartInvariants verifies that a course may enter STARTED:
// at least one instructor enrollment and the minimum lesson count.
func (h *UpdateCourseStatusHandler) checkStartInvariants(ctx context.Context, r *storage.Repos, courseID string) error {
	instructors, err := r.Enrollments.CountByCourseAndRole(ctx, courseID, user.RoleInstructor)
	if err != nil {
		return err
	}
	if instructors == 0 {
		return shared.NewDomainError("course", "UpdateStatus", shared.ErrInvariantViolation, "course has no instructor")
	}

	lessons, err := r.Lessons.CountByCourse(ctx, courseID)
	if err != nil {
		return err
	}
	if lessons < h.rules.MinLessonsPerCourse {
		return shared.NewDomainError("course", "UpdateStatus", shared.ErrInvariantViolation, "course has fewer lessons than the minimum")
	}
	return nil
}
