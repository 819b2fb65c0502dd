package course

import (
	"context"
	"time"
)

// Repository defines storage operations for courses.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Create stores a new course.
	// Returns shared.ErrAlreadyExists if the name is taken.
	Create(ctx context.Context, c *Course) error

	// GetByID returns a course by ID.
	// Returns shared.ErrNotFound if the course does not exist.
	GetByID(ctx context.Context, id string) (*Course, error)

	// GetByName returns a course by its unique name.
	// Returns shared.ErrNotFound if the course does not exist.
	GetByName(ctx context.Context, name Name) (*Course, error)

	// Update overwrites the course record.
	// Returns shared.ErrNotFound if the course does not exist.
	Update(ctx context.Context, c *Course) error

	// Delete removes the course record. Cascading deletion of lessons,
	// enrollments, and grading rows is the command's responsibility.
	Delete(ctx context.Context, id string) error

	// List returns all courses ordered by creation time.
	List(ctx context.Context) ([]*Course, error)

	// ListDueForStart returns waiting courses whose start date falls on
	// or before the given day and that have not yet been started. A
	// course whose promotion was blocked stays in the result of later
	// days until it is started or deleted. Used by scheduled promotion.
	ListDueForStart(ctx context.Context, day time.Time) ([]*Course, error)
}

// LessonRepository defines storage operations for lessons.
type LessonRepository interface {
	// CreateBatch stores the given lessons in one statement.
	CreateBatch(ctx context.Context, lessons []*Lesson) error

	// ListByCourse returns the lessons of a course ordered by position.
	ListByCourse(ctx context.Context, courseID string) ([]*Lesson, error)

	// CountByCourse returns the number of lessons a course owns.
	CountByCourse(ctx context.Context, courseID string) (int, error)

	// DeleteByCourse removes all lessons of a course.
	DeleteByCourse(ctx context.Context, courseID string) error
}
