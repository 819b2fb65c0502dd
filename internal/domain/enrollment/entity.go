// Package enrollment contains the association of a user to a course.
// An enrollment records the user's role at assignment time. The
// (user, course) pair is unique; uniqueness and the instructor-minimum
// invariant are enforced transactionally by the application commands.
package enrollment

import (
	"time"

	"github.com/google/uuid"

	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/internal/domain/user"
)

// Enrollment links one user to one course.
type Enrollment struct {
	ID        string
	UserID    string
	CourseID  string
	Role      user.Role // the user's role at assignment time
	CreatedAt time.Time
}

// New creates an enrollment.
func New(userID, courseID string, role user.Role) (*Enrollment, error) {
	if userID == "" {
		return nil, shared.NewDomainError("enrollment", "New", shared.ErrInvalidID, "user ID is required")
	}
	if courseID == "" {
		return nil, shared.NewDomainError("enrollment", "New", shared.ErrInvalidID, "course ID is required")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("enrollment", "New", shared.ErrInvalidArgument, "invalid role")
	}
	return &Enrollment{
		ID:        uuid.NewString(),
		UserID:    userID,
		CourseID:  courseID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// IsInstructor reports whether this enrollment carries the instructor role.
func (e *Enrollment) IsInstructor() bool {
	return e.Role == user.RoleInstructor
}
