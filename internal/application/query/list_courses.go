package query

import (
	"context"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/course"
	"github.com/edu-hub/course-hub/internal/domain/user"
	"github.com/edu-hub/course-hub/pkg/retry"
)

// CourseSummary is a course with its staffing and lesson counts,
// shaped for listing adapters.
type CourseSummary struct {
	Course      *course.Course
	LessonCount int
	Students    int
	Instructors int
}

// ListCoursesHandler returns all courses with their counts.
type ListCoursesHandler struct {
	gateway storage.Gateway
	retry   retry.Config
}

// NewListCoursesHandler creates a new ListCoursesHandler.
func NewListCoursesHandler(gateway storage.Gateway) *ListCoursesHandler {
	return &ListCoursesHandler{
		gateway: gateway,
		retry:   retry.DefaultConfig(),
	}
}

// Handle lists courses ordered by creation time.
func (h *ListCoursesHandler) Handle(ctx context.Context) ([]CourseSummary, error) {
	var summaries []CourseSummary
	err := retry.Do(ctx, h.retry, func(ctx context.Context) error {
		return markRetryable(h.gateway.View(ctx, func(r *storage.Repos) error {
			courses, err := r.Courses.List(ctx)
			if err != nil {
				return err
			}

			summaries = make([]CourseSummary, 0, len(courses))
			for _, c := range courses {
				lessons, err := r.Lessons.CountByCourse(ctx, c.ID)
				if err != nil {
					return err
				}
				students, err := r.Enrollments.CountByCourseAndRole(ctx, c.ID, user.RoleStudent)
				if err != nil {
					return err
				}
				instructors, err := r.Enrollments.CountByCourseAndRole(ctx, c.ID, user.RoleInstructor)
				if err != nil {
					return err
				}
				summaries = append(summaries, CourseSummary{
					Course:      c,
					LessonCount: lessons,
					Students:    students,
					Instructors: instructors,
				})
			}
			return nil
		}))
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
