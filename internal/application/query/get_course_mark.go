package query

import (
	"context"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/grading"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/pkg/logger"
	"github.com/edu-hub/course-hub/pkg/retry"
)

// CourseMarkCache is a read-side cache for the derived aggregate.
// Cache contents never feed invariant checks; commands always read the
// store. A nil cache disables caching.
type CourseMarkCache interface {
	Get(ctx context.Context, userID, courseID string) (*grading.CourseMark, error)
	Set(ctx context.Context, mark *grading.CourseMark) error
	Invalidate(ctx context.Context, userID, courseID string) error
}

// GetCourseMarkQuery identifies the (user, course) aggregate to read.
type GetCourseMarkQuery struct {
	UserID   string
	CourseID string
}

// Validate validates the query.
func (q GetCourseMarkQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("grading", "GetCourseMark", shared.ErrInvalidID, "user ID is required")
	}
	if q.CourseID == "" {
		return shared.NewDomainError("grading", "GetCourseMark", shared.ErrInvalidID, "course ID is required")
	}
	return nil
}

// GetCourseMarkHandler reads the pass/fail aggregate, cache first.
type GetCourseMarkHandler struct {
	gateway storage.Gateway
	cache   CourseMarkCache
	retry   retry.Config
	logger  *logger.Logger
}

// NewGetCourseMarkHandler creates a new GetCourseMarkHandler.
func NewGetCourseMarkHandler(gateway storage.Gateway, cache CourseMarkCache, log *logger.Logger) *GetCourseMarkHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetCourseMarkHandler{
		gateway: gateway,
		cache:   cache,
		retry:   retry.DefaultConfig(),
		logger:  log.With(logger.Component("get_course_mark")),
	}
}

// Handle returns the CourseMark for the pair.
// Returns shared.ErrNotFound when no mark has been recorded yet.
func (h *GetCourseMarkHandler) Handle(ctx context.Context, q GetCourseMarkQuery) (*grading.CourseMark, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil {
		if mark, err := h.cache.Get(ctx, q.UserID, q.CourseID); err == nil && mark != nil {
			return mark, nil
		}
	}

	var mark *grading.CourseMark
	err := retry.Do(ctx, h.retry, func(ctx context.Context) error {
		return markRetryable(h.gateway.View(ctx, func(r *storage.Repos) error {
			var err error
			mark, err = r.CourseMarks.GetByUserAndCourse(ctx, q.UserID, q.CourseID)
			return err
		}))
	})
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, mark); err != nil {
			h.logger.Debug("failed to cache course mark", logger.Err(err))
		}
	}
	return mark, nil
}
