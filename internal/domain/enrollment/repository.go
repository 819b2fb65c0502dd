package enrollment

import (
	"context"

	"github.com/edu-hub/course-hub/internal/domain/user"
)

// Repository defines storage operations for enrollments.
// Count methods must read the current persisted state; commands rely on
// them for limit and minimum-staffing checks inside a transaction.
type Repository interface {
	// Create stores a new enrollment.
	// Returns shared.ErrAlreadyAssigned if the (user, course) pair exists.
	Create(ctx context.Context, e *Enrollment) error

	// GetByID returns an enrollment by ID.
	// Returns shared.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id string) (*Enrollment, error)

	// Exists reports whether the (user, course) pair is enrolled.
	Exists(ctx context.Context, userID, courseID string) (bool, error)

	// Delete removes an enrollment by ID.
	// Returns shared.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id string) error

	// CountByUser returns the number of enrollments a user currently holds.
	CountByUser(ctx context.Context, userID string) (int, error)

	// CountByCourseAndRole returns the number of enrollments for a course
	// with the given assignment-time role.
	CountByCourseAndRole(ctx context.Context, courseID string, role user.Role) (int, error)

	// ListByCourse returns all enrollments of a course.
	ListByCourse(ctx context.Context, courseID string) ([]*Enrollment, error)

	// DeleteByCourse removes all enrollments of a course.
	DeleteByCourse(ctx context.Context, courseID string) error
}
