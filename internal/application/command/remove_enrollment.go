package command

import (
	"context"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/enrollment"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/internal/domain/user"
	"github.com/edu-hub/course-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REMOVE ENROLLMENT COMMAND
// Detaches a user from a course. A course that has ever had an
// instructor must keep at least one; the count is read inside the same
// transaction that deletes, so two concurrent removals cannot both
// take the last two instructors.
// ══════════════════════════════════════════════════════════════════════════════

// RemoveEnrollmentCommand identifies the enrollment to remove.
type RemoveEnrollmentCommand struct {
	EnrollmentID string
}

// Validate validates the command.
func (c RemoveEnrollmentCommand) Validate() error {
	if c.EnrollmentID == "" {
		return shared.NewDomainError("enrollment", "RemoveEnrollment", shared.ErrInvalidID, "enrollment ID is required")
	}
	return nil
}

// RemoveEnrollmentHandler handles RemoveEnrollmentCommand.
type RemoveEnrollmentHandler struct {
	gateway storage.Gateway
	bus     shared.EventBus
	logger  *logger.Logger
}

// NewRemoveEnrollmentHandler creates a new RemoveEnrollmentHandler.
func NewRemoveEnrollmentHandler(gateway storage.Gateway, bus shared.EventBus, log *logger.Logger) *RemoveEnrollmentHandler {
	if log == nil {
		log = logger.Default()
	}
	return &RemoveEnrollmentHandler{
		gateway: gateway,
		bus:     bus,
		logger:  log.With(logger.Component("remove_enrollment")),
	}
}

// Handle removes the enrollment. For students, ungraded homework
// placeholders go with it; graded rows stay for history.
func (h *RemoveEnrollmentHandler) Handle(ctx context.Context, cmd RemoveEnrollmentCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	var removed *enrollment.Enrollment
	err := h.gateway.Atomic(ctx, func(r *storage.Repos) error {
		enr, err := r.Enrollments.GetByID(ctx, cmd.EnrollmentID)
		if err != nil {
			return err
		}

		if enr.IsInstructor() {
			instructors, err := r.Enrollments.CountByCourseAndRole(ctx, enr.CourseID, user.RoleInstructor)
			if err != nil {
				return err
			}
			if instructors <= 1 {
				return shared.NewDomainError("enrollment", "RemoveEnrollment", shared.ErrInvariantViolation, "course must retain at least one instructor")
			}
		} else {
			if err := r.Homeworks.DeleteUngraded(ctx, enr.UserID, enr.CourseID); err != nil {
				return err
			}
		}

		if err := r.Enrollments.Delete(ctx, enr.ID); err != nil {
			return err
		}
		removed = enr
		return nil
	})
	if err != nil {
		return err
	}

	h.logger.Info("enrollment removed",
		logger.EnrollmentID(removed.ID),
		logger.CourseID(removed.CourseID),
		logger.UserID(removed.UserID),
	)
	if h.bus != nil {
		event := shared.NewEnrollmentEvent(shared.EventEnrollmentRemoved, removed.ID, removed.UserID, removed.CourseID, removed.Role.String())
		if err := h.bus.Publish(ctx, event); err != nil {
			h.logger.Warn("failed to publish enrollment event", logger.Err(err))
		}
	}
	return nil
}
