package grading

import (
	"context"
)

// HomeworkRepository defines storage operations for homework rows.
type HomeworkRepository interface {
	// Create stores a new homework row.
	Create(ctx context.Context, h *Homework) error

	// GetByID returns a homework row by ID.
	// Returns shared.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Homework, error)

	// ExistsForUserAndLesson reports whether a row already exists for the
	// (user, lesson) pair. Enrollment placeholder creation is idempotent.
	ExistsForUserAndLesson(ctx context.Context, userID, lessonID string) (bool, error)

	// Update overwrites the homework row (file reference, mark).
	// Returns shared.ErrNotFound if it does not exist.
	Update(ctx context.Context, h *Homework) error

	// ListByUserAndCourse returns every homework row for the pair,
	// graded or not. This is the input of the CourseMark recomputation.
	ListByUserAndCourse(ctx context.Context, userID, courseID string) ([]*Homework, error)

	// DeleteUngraded removes the unmarked placeholder rows of a user in a
	// course. Graded rows are retained for history.
	DeleteUngraded(ctx context.Context, userID, courseID string) error

	// DeleteByCourse removes all homework rows of a course.
	DeleteByCourse(ctx context.Context, courseID string) error
}

// CourseMarkRepository defines storage operations for the derived
// (user, course) aggregate.
type CourseMarkRepository interface {
	// Upsert writes the aggregate keyed on the unique (user, course)
	// pair, replacing any existing row. Last committed write wins.
	Upsert(ctx context.Context, m *CourseMark) error

	// GetByUserAndCourse returns the aggregate for the pair.
	// Returns shared.ErrNotFound if no mark has been recorded yet.
	GetByUserAndCourse(ctx context.Context, userID, courseID string) (*CourseMark, error)

	// DeleteByCourse removes all aggregates of a course.
	DeleteByCourse(ctx context.Context, courseID string) error
}
