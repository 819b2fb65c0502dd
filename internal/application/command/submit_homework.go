package command

import (
	"context"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/grading"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT HOMEWORK COMMAND
// Attaches an opaque file reference to a homework placeholder. The
// engine never reads the file bytes; the submission store owns those.
// A mark may be assigned whether or not a file was ever attached.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitHomeworkCommand contains the data to record a submission.
type SubmitHomeworkCommand struct {
	// HomeworkID identifies the placeholder row.
	HomeworkID string

	// FileRef is the reference handed out by the submission store.
	FileRef string
}

// Validate validates the command.
func (c SubmitHomeworkCommand) Validate() error {
	if c.HomeworkID == "" {
		return shared.NewDomainError("grading", "SubmitHomework", shared.ErrInvalidID, "homework ID is required")
	}
	if c.FileRef == "" {
		return shared.NewDomainError("grading", "SubmitHomework", shared.ErrEmptyValue, "file reference is required")
	}
	return nil
}

// SubmitHomeworkHandler handles SubmitHomeworkCommand.
type SubmitHomeworkHandler struct {
	gateway storage.Gateway
	bus     shared.EventBus
	logger  *logger.Logger
}

// NewSubmitHomeworkHandler creates a new SubmitHomeworkHandler.
func NewSubmitHomeworkHandler(gateway storage.Gateway, bus shared.EventBus, log *logger.Logger) *SubmitHomeworkHandler {
	if log == nil {
		log = logger.Default()
	}
	return &SubmitHomeworkHandler{
		gateway: gateway,
		bus:     bus,
		logger:  log.With(logger.Component("submit_homework")),
	}
}

// Handle records the submission reference on the homework row.
func (h *SubmitHomeworkHandler) Handle(ctx context.Context, cmd SubmitHomeworkCommand) (*grading.Homework, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var hw *grading.Homework
	err := h.gateway.Atomic(ctx, func(r *storage.Repos) error {
		var err error
		hw, err = r.Homeworks.GetByID(ctx, cmd.HomeworkID)
		if err != nil {
			return err
		}

		assigned, err := r.Enrollments.Exists(ctx, hw.UserID, hw.CourseID)
		if err != nil {
			return err
		}
		if !assigned {
			return shared.NewDomainError("grading", "SubmitHomework", shared.ErrNotAssigned, "homework's user is not enrolled in the course")
		}

		if err := hw.Attach(cmd.FileRef); err != nil {
			return err
		}
		return r.Homeworks.Update(ctx, hw)
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("homework submitted",
		logger.HomeworkID(hw.ID),
		logger.UserID(hw.UserID),
		logger.CourseID(hw.CourseID),
	)

	if h.bus != nil {
		event := shared.NewHomeworkEvent(shared.EventHomeworkSubmitted, hw.ID, hw.UserID, hw.CourseID, hw.LessonID, nil)
		if err := h.bus.Publish(ctx, event); err != nil {
			h.logger.Warn("failed to publish homework submitted event", logger.Err(err))
		}
	}
	return hw, nil
}
