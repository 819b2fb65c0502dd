package command

import (
	"context"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE COURSE COMMAND
// Terminal admin action. Cascades to lessons, enrollments, homework
// rows, and course marks in one transaction.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteCourseCommand identifies the course to delete.
type DeleteCourseCommand struct {
	CourseID string
}

// Validate validates the command.
func (c DeleteCourseCommand) Validate() error {
	if c.CourseID == "" {
		return shared.NewDomainError("course", "DeleteCourse", shared.ErrInvalidID, "course ID is required")
	}
	return nil
}

// DeleteCourseHandler handles DeleteCourseCommand.
type DeleteCourseHandler struct {
	gateway storage.Gateway
	bus     shared.EventBus
	logger  *logger.Logger
}

// NewDeleteCourseHandler creates a new DeleteCourseHandler.
func NewDeleteCourseHandler(gateway storage.Gateway, bus shared.EventBus, log *logger.Logger) *DeleteCourseHandler {
	if log == nil {
		log = logger.Default()
	}
	return &DeleteCourseHandler{
		gateway: gateway,
		bus:     bus,
		logger:  log.With(logger.Component("delete_course")),
	}
}

// Handle deletes the course and everything it owns.
func (h *DeleteCourseHandler) Handle(ctx context.Context, cmd DeleteCourseCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	var courseName string
	err := h.gateway.Atomic(ctx, func(r *storage.Repos) error {
		c, err := r.Courses.GetByID(ctx, cmd.CourseID)
		if err != nil {
			return err
		}
		courseName = c.Name.String()

		// Order matters under foreign keys: rows referencing the course
		// go first, the course record last.
		if err := r.CourseMarks.DeleteByCourse(ctx, c.ID); err != nil {
			return err
		}
		if err := r.Homeworks.DeleteByCourse(ctx, c.ID); err != nil {
			return err
		}
		if err := r.Enrollments.DeleteByCourse(ctx, c.ID); err != nil {
			return err
		}
		if err := r.Lessons.DeleteByCourse(ctx, c.ID); err != nil {
			return err
		}
		return r.Courses.Delete(ctx, c.ID)
	})
	if err != nil {
		return err
	}

	h.logger.Info("course deleted", logger.CourseID(cmd.CourseID))
	if h.bus != nil {
		event := shared.NewCourseDeletedEvent(cmd.CourseID, courseName)
		if err := h.bus.Publish(ctx, event); err != nil {
			h.logger.Warn("failed to publish course deleted event", logger.Err(err))
		}
	}
	return nil
}
