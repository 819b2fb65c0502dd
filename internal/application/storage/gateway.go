// Package storage defines the persistence gateway contract the
// application commands run against. The gateway exposes one primitive:
// run a function against the repositories inside a single atomic
// transaction. Read-check-write sequences in commands are correct only
// because every step inside Atomic sees and mutates the same
// transaction state.
package storage

import (
	"context"

	"github.com/edu-hub/course-hub/internal/domain/course"
	"github.com/edu-hub/course-hub/internal/domain/enrollment"
	"github.com/edu-hub/course-hub/internal/domain/grading"
	"github.com/edu-hub/course-hub/internal/domain/user"
)

// Repos bundles the per-domain repositories scoped to one transaction.
type Repos struct {
	Users       user.Repository
	Courses     course.Repository
	Lessons     course.LessonRepository
	Enrollments enrollment.Repository
	Homeworks   grading.HomeworkRepository
	CourseMarks grading.CourseMarkRepository
}

// Gateway is the "run in transaction" primitive over durable storage.
//
// Implementations must guarantee that fn observes a consistent snapshot,
// that all writes commit together or not at all, and that a non-nil
// error from fn rolls everything back. Transient failures (timeouts,
// lost connections) surface as shared.ErrUnavailable so callers can
// distinguish retryable conditions from business failures.
type Gateway interface {
	// Atomic runs fn inside one read-write transaction.
	Atomic(ctx context.Context, fn func(r *Repos) error) error

	// View runs fn inside one read-only transaction.
	View(ctx context.Context, fn func(r *Repos) error) error
}
