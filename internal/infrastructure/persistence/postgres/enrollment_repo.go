package postgres

import (
	"context"
	"fmt"

	"github.com/edu-hub/course-hub/internal/domain/enrollment"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements enrollment.Repository for PostgreSQL.
// The UNIQUE (user_id, course_id) constraint backs the at-most-one
// enrollment guarantee under concurrent writers.
type EnrollmentRepository struct {
	q Querier
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(q Querier) *EnrollmentRepository {
	return &EnrollmentRepository{q: q}
}

// Create stores a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	query := `
		INSERT INTO enrollments (id, user_id, course_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.q.Exec(ctx, query, e.ID, e.UserID, e.CourseID, e.Role.String(), e.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: user %s course %s", shared.ErrAlreadyAssigned, e.UserID, e.CourseID)
		}
		return fmt.Errorf("failed to create enrollment: %w", err)
	}

	return nil
}

// GetByID returns an enrollment by ID.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*enrollment.Enrollment, error) {
	query := `
		SELECT id, user_id, course_id, role, created_at
		FROM enrollments
		WHERE id = $1
	`

	var (
		e    enrollment.Enrollment
		role string
	)
	err := r.q.QueryRow(ctx, query, id).Scan(&e.ID, &e.UserID, &e.CourseID, &role, &e.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("%w: enrollment %s", shared.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to scan enrollment: %w", err)
	}

	e.Role = user.Role(role)
	return &e, nil
}

// Exists reports whether the (user, course) pair is enrolled.
func (r *EnrollmentRepository) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, userID, courseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return exists, nil
}

// Delete removes an enrollment by ID.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.Exec(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: enrollment %s", shared.ErrNotFound, id)
	}

	return nil
}

// CountByUser returns the number of enrollments a user currently holds.
func (r *EnrollmentRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM enrollments WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return n, nil
}

// CountByCourseAndRole returns enrollment count per course and role.
func (r *EnrollmentRepository) CountByCourseAndRole(ctx context.Context, courseID string, role user.Role) (int, error) {
	query := `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND role = $2`

	var n int
	if err := r.q.QueryRow(ctx, query, courseID, role.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return n, nil
}

// ListByCourse returns all enrollments of a course.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]*enrollment.Enrollment, error) {
	query := `
		SELECT id, user_id, course_id, role, created_at
		FROM enrollments
		WHERE course_id = $1
		ORDER BY created_at
	`

	rows, err := r.q.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var out []*enrollment.Enrollment
	for rows.Next() {
		var (
			e    enrollment.Enrollment
			role string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &role, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		e.Role = user.Role(role)
		out = append(out, &e)
	}
	return out, rows.Err()
}

// DeleteByCourse removes all enrollments of a course.
func (r *EnrollmentRepository) DeleteByCourse(ctx context.Context, courseID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM enrollments WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("failed to delete enrollments: %w", err)
	}
	return nil
}
