package command

import (
	"context"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/grading"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// FINISH COURSE COMMAND
// Administrative override: marks the (user, course) aggregate as passed
// directly, regardless of ungraded homework.
// ══════════════════════════════════════════════════════════════════════════════

// FinishCourseCommand identifies the (user, course) pair to finalize.
type FinishCourseCommand struct {
	UserID   string
	CourseID string
}

// Validate validates the command.
func (c FinishCourseCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("grading", "FinishCourse", shared.ErrInvalidID, "user ID is required")
	}
	if c.CourseID == "" {
		return shared.NewDomainError("grading", "FinishCourse", shared.ErrInvalidID, "course ID is required")
	}
	return nil
}

// FinishCourseHandler handles FinishCourseCommand.
type FinishCourseHandler struct {
	gateway storage.Gateway
	rules   Rules
	bus     shared.EventBus
	logger  *logger.Logger
}

// NewFinishCourseHandler creates a new FinishCourseHandler.
func NewFinishCourseHandler(gateway storage.Gateway, rules Rules, bus shared.EventBus, log *logger.Logger) *FinishCourseHandler {
	if log == nil {
		log = logger.Default()
	}
	return &FinishCourseHandler{
		gateway: gateway,
		rules:   rules,
		bus:     bus,
		logger:  log.With(logger.Component("finish_course")),
	}
}

// Handle finalizes the aggregate as passed. When no CourseMark exists
// yet, one is created from the current homework state first.
func (h *FinishCourseHandler) Handle(ctx context.Context, cmd FinishCourseCommand) (*grading.CourseMark, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var mark *grading.CourseMark
	err := h.gateway.Atomic(ctx, func(r *storage.Repos) error {
		assigned, err := r.Enrollments.Exists(ctx, cmd.UserID, cmd.CourseID)
		if err != nil {
			return err
		}
		if !assigned {
			return shared.NewDomainError("grading", "FinishCourse", shared.ErrNotAssigned, "user has no enrollment in the course")
		}

		mark, err = r.CourseMarks.GetByUserAndCourse(ctx, cmd.UserID, cmd.CourseID)
		if shared.IsNotFound(err) {
			all, listErr := r.Homeworks.ListByUserAndCourse(ctx, cmd.UserID, cmd.CourseID)
			if listErr != nil {
				return listErr
			}
			mark = grading.Compute(cmd.UserID, cmd.CourseID, all, h.rules.PassThreshold)
		} else if err != nil {
			return err
		}

		mark.Finalize()
		return r.CourseMarks.Upsert(ctx, mark)
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("course finished manually",
		logger.UserID(cmd.UserID),
		logger.CourseID(cmd.CourseID),
		logger.Float64("total_score", mark.TotalScore),
	)
	if h.bus != nil {
		event := shared.NewCourseMarkUpsertedEvent(mark.UserID, mark.CourseID, mark.TotalScore, mark.Passed)
		if err := h.bus.Publish(ctx, event); err != nil {
			h.logger.Warn("failed to publish course mark event", logger.Err(err))
		}
	}
	return mark, nil
}
