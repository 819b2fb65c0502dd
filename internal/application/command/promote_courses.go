package command

import (
	"context"
	"time"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/course"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROMOTE COURSES COMMAND
// Finds every waiting course whose start date is today or earlier and
// applies the STARTED transition to each in its own transaction. One
// failing course never blocks the others; the next scheduled run
// retries whatever stayed unpromoted, including courses past their
// start day whose promotion had been blocked.
// ══════════════════════════════════════════════════════════════════════════════

// PromoteCoursesCommand carries the reference day for promotion.
type PromoteCoursesCommand struct {
	// Today is the day to promote for. The scheduler passes a fixed
	// value so runs are reproducible in tests.
	Today time.Time
}

// Validate validates the command.
func (c PromoteCoursesCommand) Validate() error {
	if c.Today.IsZero() {
		return shared.NewDomainError("course", "PromoteCourses", shared.ErrInvalidArgument, "reference day is required")
	}
	return nil
}

// PromotionOutcome reports the result for one course.
type PromotionOutcome struct {
	CourseID   string
	CourseName string
	Promoted   bool
	Err        error
}

// PromoteCoursesResult aggregates the per-course outcomes of one run.
type PromoteCoursesResult struct {
	Outcomes []PromotionOutcome
}

// Promoted returns the number of successfully promoted courses.
func (r *PromoteCoursesResult) Promoted() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Promoted {
			n++
		}
	}
	return n
}

// Failed returns the number of courses whose promotion was blocked.
func (r *PromoteCoursesResult) Failed() int {
	return len(r.Outcomes) - r.Promoted()
}

// PromoteCoursesHandler handles PromoteCoursesCommand.
type PromoteCoursesHandler struct {
	gateway storage.Gateway
	status  *UpdateCourseStatusHandler
	logger  *logger.Logger
}

// NewPromoteCoursesHandler creates a new PromoteCoursesHandler.
// The status handler is reused so promotion enforces exactly the same
// invariants as a manual WAIT -> STARTED transition.
func NewPromoteCoursesHandler(gateway storage.Gateway, status *UpdateCourseStatusHandler, log *logger.Logger) *PromoteCoursesHandler {
	if log == nil {
		log = logger.Default()
	}
	return &PromoteCoursesHandler{
		gateway: gateway,
		status:  status,
		logger:  log.With(logger.Component("promote_courses")),
	}
}

// Handle promotes all eligible courses, best-effort per course.
// The returned error is non-nil only when the eligible set could not be
// listed at all; individual failures live in the outcomes.
func (h *PromoteCoursesHandler) Handle(ctx context.Context, cmd PromoteCoursesCommand) (*PromoteCoursesResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var eligible []*course.Course
	err := h.gateway.View(ctx, func(r *storage.Repos) error {
		var err error
		eligible, err = r.Courses.ListDueForStart(ctx, cmd.Today)
		return err
	})
	if err != nil {
		return nil, err
	}

	result := &PromoteCoursesResult{Outcomes: make([]PromotionOutcome, 0, len(eligible))}
	for _, c := range eligible {
		outcome := PromotionOutcome{CourseID: c.ID, CourseName: c.Name.String()}

		_, err := h.status.Handle(ctx, UpdateCourseStatusCommand{
			CourseID:  c.ID,
			NewStatus: course.StatusStarted,
			promoted:  true,
		})
		if err != nil {
			outcome.Err = err
			h.logger.Warn("course promotion blocked",
				logger.CourseID(c.ID),
				logger.String("name", c.Name.String()),
				logger.Err(err),
			)
		} else {
			outcome.Promoted = true
			h.logger.Info("course promoted",
				logger.CourseID(c.ID),
				logger.String("name", c.Name.String()),
			)
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}
