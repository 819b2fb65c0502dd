// Package query contains read operations (CQRS - Queries).
// Queries are idempotent; transient gateway failures are retried with
// backoff before surfacing to the caller.
package query

import (
	"context"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/pkg/retry"
)

// IsAssignedQuery identifies the (user, course) pair to check.
type IsAssignedQuery struct {
	UserID   string
	CourseID string
}

// Validate validates the query.
func (q IsAssignedQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("enrollment", "IsAssigned", shared.ErrInvalidID, "user ID is required")
	}
	if q.CourseID == "" {
		return shared.NewDomainError("enrollment", "IsAssigned", shared.ErrInvalidID, "course ID is required")
	}
	return nil
}

// IsAssignedHandler answers whether a user is enrolled in a course.
// It is a pure predicate used by grading and by adapter authorization.
type IsAssignedHandler struct {
	gateway storage.Gateway
	retry   retry.Config
}

// NewIsAssignedHandler creates a new IsAssignedHandler.
func NewIsAssignedHandler(gateway storage.Gateway) *IsAssignedHandler {
	return &IsAssignedHandler{
		gateway: gateway,
		retry:   retry.DefaultConfig(),
	}
}

// Handle returns true if the (user, course) pair is currently enrolled.
func (h *IsAssignedHandler) Handle(ctx context.Context, q IsAssignedQuery) (bool, error) {
	if err := q.Validate(); err != nil {
		return false, err
	}

	var assigned bool
	err := retry.Do(ctx, h.retry, func(ctx context.Context) error {
		return markRetryable(h.gateway.View(ctx, func(r *storage.Repos) error {
			var err error
			assigned, err = r.Enrollments.Exists(ctx, q.UserID, q.CourseID)
			return err
		}))
	})
	return assigned, err
}

// markRetryable classifies gateway errors for the retry loop: only
// transient persistence failures are retried, everything else is final.
func markRetryable(err error) error {
	if err == nil {
		return nil
	}
	if shared.IsRetryable(err) {
		return retry.Retryable(err)
	}
	return retry.Permanent(err)
}
