package command

import (
	"context"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/grading"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET MARK COMMAND
// Writes a homework mark and recomputes the (user, course) aggregate in
// the same transaction. The upsert is keyed on the unique pair, so
// concurrent marks for different homeworks of the same pair serialize:
// the last committed recomputation wins whole, never a merged partial.
// ══════════════════════════════════════════════════════════════════════════════

// SetMarkCommand contains the data to assign a mark.
type SetMarkCommand struct {
	// HomeworkID identifies the homework row being marked.
	HomeworkID string

	// Mark is the score in the 0-100 range.
	Mark int
}

// Validate validates the command.
func (c SetMarkCommand) Validate() error {
	if c.HomeworkID == "" {
		return shared.NewDomainError("grading", "SetMark", shared.ErrInvalidID, "homework ID is required")
	}
	if c.Mark < grading.MinMark || c.Mark > grading.MaxMark {
		return shared.NewDomainError("grading", "SetMark", shared.ErrInvalidArgument, "mark must be between 0 and 100")
	}
	return nil
}

// SetMarkResult contains the updated homework and recomputed aggregate.
type SetMarkResult struct {
	Homework   *grading.Homework
	CourseMark *grading.CourseMark
}

// SetMarkHandler handles SetMarkCommand.
type SetMarkHandler struct {
	gateway storage.Gateway
	rules   Rules
	bus     shared.EventBus
	logger  *logger.Logger
}

// NewSetMarkHandler creates a new SetMarkHandler.
func NewSetMarkHandler(gateway storage.Gateway, rules Rules, bus shared.EventBus, log *logger.Logger) *SetMarkHandler {
	if log == nil {
		log = logger.Default()
	}
	return &SetMarkHandler{
		gateway: gateway,
		rules:   rules,
		bus:     bus,
		logger:  log.With(logger.Component("set_mark")),
	}
}

// Handle writes the mark and upserts the recomputed CourseMark.
func (h *SetMarkHandler) Handle(ctx context.Context, cmd SetMarkCommand) (*SetMarkResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result := &SetMarkResult{}
	err := h.gateway.Atomic(ctx, func(r *storage.Repos) error {
		hw, err := r.Homeworks.GetByID(ctx, cmd.HomeworkID)
		if err != nil {
			return err
		}

		assigned, err := r.Enrollments.Exists(ctx, hw.UserID, hw.CourseID)
		if err != nil {
			return err
		}
		if !assigned {
			return shared.NewDomainError("grading", "SetMark", shared.ErrNotAssigned, "homework's user is not enrolled in the course")
		}

		if err := hw.SetMark(cmd.Mark); err != nil {
			return err
		}
		if err := r.Homeworks.Update(ctx, hw); err != nil {
			return err
		}

		all, err := r.Homeworks.ListByUserAndCourse(ctx, hw.UserID, hw.CourseID)
		if err != nil {
			return err
		}
		mark := grading.Compute(hw.UserID, hw.CourseID, all, h.rules.PassThreshold)
		if err := r.CourseMarks.Upsert(ctx, mark); err != nil {
			return err
		}

		result.Homework = hw
		result.CourseMark = mark
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("mark assigned",
		logger.HomeworkID(result.Homework.ID),
		logger.UserID(result.Homework.UserID),
		logger.CourseID(result.Homework.CourseID),
		logger.Int("mark", cmd.Mark),
		logger.Float64("total_score", result.CourseMark.TotalScore),
		logger.Bool("passed", result.CourseMark.Passed),
	)
	h.publish(ctx, result)

	return result, nil
}

func (h *SetMarkHandler) publish(ctx context.Context, result *SetMarkResult) {
	if h.bus == nil {
		return
	}
	hw, mark := result.Homework, result.CourseMark

	assigned := shared.NewHomeworkEvent(shared.EventMarkAssigned, hw.ID, hw.UserID, hw.CourseID, hw.LessonID, hw.Mark)
	if err := h.bus.Publish(ctx, assigned); err != nil {
		h.logger.Warn("failed to publish mark assigned event", logger.Err(err))
	}

	upserted := shared.NewCourseMarkUpsertedEvent(mark.UserID, mark.CourseID, mark.TotalScore, mark.Passed)
	if err := h.bus.Publish(ctx, upserted); err != nil {
		h.logger.Warn("failed to publish course mark event", logger.Err(err))
	}
}
