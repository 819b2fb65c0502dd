package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edu-hub/course-hub/internal/domain/grading"
	"github.com/edu-hub/course-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HOMEWORK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// HomeworkRepository implements grading.HomeworkRepository for PostgreSQL.
type HomeworkRepository struct {
	q Querier
}

// NewHomeworkRepository creates a new HomeworkRepository.
func NewHomeworkRepository(q Querier) *HomeworkRepository {
	return &HomeworkRepository{q: q}
}

const homeworkColumns = `id, user_id, lesson_id, course_id, file_ref, mark, submitted_at, created_at, updated_at`

// Create stores a new homework row.
func (r *HomeworkRepository) Create(ctx context.Context, h *grading.Homework) error {
	query := `
		INSERT INTO homeworks (id, user_id, lesson_id, course_id, file_ref, mark, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.Exec(ctx, query,
		h.ID,
		h.UserID,
		h.LessonID,
		h.CourseID,
		h.FileRef,
		h.Mark,
		h.SubmittedAt,
		h.CreatedAt,
		h.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: homework for user %s lesson %s", shared.ErrAlreadyExists, h.UserID, h.LessonID)
		}
		return fmt.Errorf("failed to create homework: %w", err)
	}

	return nil
}

// GetByID returns a homework row by ID.
func (r *HomeworkRepository) GetByID(ctx context.Context, id string) (*grading.Homework, error) {
	query := `SELECT ` + homeworkColumns + ` FROM homeworks WHERE id = $1`
	return r.scanHomework(r.q.QueryRow(ctx, query, id))
}

// ExistsForUserAndLesson reports whether a row exists for the pair.
func (r *HomeworkRepository) ExistsForUserAndLesson(ctx context.Context, userID, lessonID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM homeworks WHERE user_id = $1 AND lesson_id = $2)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, userID, lessonID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check homework: %w", err)
	}
	return exists, nil
}

// Update overwrites the homework row.
func (r *HomeworkRepository) Update(ctx context.Context, h *grading.Homework) error {
	query := `
		UPDATE homeworks SET
			file_ref = $1,
			mark = $2,
			submitted_at = $3,
			updated_at = $4
		WHERE id = $5
	`

	result, err := r.q.Exec(ctx, query, h.FileRef, h.Mark, h.SubmittedAt, h.UpdatedAt, h.ID)
	if err != nil {
		return fmt.Errorf("failed to update homework: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: homework %s", shared.ErrNotFound, h.ID)
	}

	return nil
}

// ListByUserAndCourse returns every homework row for the pair.
func (r *HomeworkRepository) ListByUserAndCourse(ctx context.Context, userID, courseID string) ([]*grading.Homework, error) {
	query := `
		SELECT ` + homeworkColumns + `
		FROM homeworks
		WHERE user_id = $1 AND course_id = $2
		ORDER BY created_at
	`

	rows, err := r.q.Query(ctx, query, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list homeworks: %w", err)
	}
	defer rows.Close()

	var out []*grading.Homework
	for rows.Next() {
		h, err := r.scanHomework(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// DeleteUngraded removes the unmarked rows of a user in a course.
func (r *HomeworkRepository) DeleteUngraded(ctx context.Context, userID, courseID string) error {
	query := `DELETE FROM homeworks WHERE user_id = $1 AND course_id = $2 AND mark IS NULL`

	if _, err := r.q.Exec(ctx, query, userID, courseID); err != nil {
		return fmt.Errorf("failed to delete ungraded homeworks: %w", err)
	}
	return nil
}

// DeleteByCourse removes all homework rows of a course.
func (r *HomeworkRepository) DeleteByCourse(ctx context.Context, courseID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM homeworks WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("failed to delete homeworks: %w", err)
	}
	return nil
}

func (r *HomeworkRepository) scanHomework(row pgx.Row) (*grading.Homework, error) {
	var h grading.Homework

	err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.LessonID,
		&h.CourseID,
		&h.FileRef,
		&h.Mark,
		&h.SubmittedAt,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("%w: homework", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan homework: %w", err)
	}

	return &h, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE MARK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CourseMarkRepository implements grading.CourseMarkRepository for
// PostgreSQL. Upsert rides the UNIQUE (user_id, course_id) constraint,
// so concurrent recomputations resolve to the last committed write.
type CourseMarkRepository struct {
	q Querier
}

// NewCourseMarkRepository creates a new CourseMarkRepository.
func NewCourseMarkRepository(q Querier) *CourseMarkRepository {
	return &CourseMarkRepository{q: q}
}

// Upsert writes the aggregate keyed on the (user, course) pair.
func (r *CourseMarkRepository) Upsert(ctx context.Context, m *grading.CourseMark) error {
	query := `
		INSERT INTO course_marks (id, user_id, course_id, total_score, passed, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, course_id) DO UPDATE SET
			total_score = EXCLUDED.total_score,
			passed = EXCLUDED.passed,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.q.Exec(ctx, query, m.ID, m.UserID, m.CourseID, m.TotalScore, m.Passed, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert course mark: %w", err)
	}
	return nil
}

// GetByUserAndCourse returns the aggregate for the pair.
func (r *CourseMarkRepository) GetByUserAndCourse(ctx context.Context, userID, courseID string) (*grading.CourseMark, error) {
	query := `
		SELECT id, user_id, course_id, total_score, passed, updated_at
		FROM course_marks
		WHERE user_id = $1 AND course_id = $2
	`

	var m grading.CourseMark
	err := r.q.QueryRow(ctx, query, userID, courseID).Scan(
		&m.ID,
		&m.UserID,
		&m.CourseID,
		&m.TotalScore,
		&m.Passed,
		&m.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("%w: course mark for user %s course %s", shared.ErrNotFound, userID, courseID)
		}
		return nil, fmt.Errorf("failed to scan course mark: %w", err)
	}

	return &m, nil
}

// DeleteByCourse removes all aggregates of a course.
func (r *CourseMarkRepository) DeleteByCourse(ctx context.Context, courseID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM course_marks WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("failed to delete course marks: %w", err)
	}
	return nil
}
