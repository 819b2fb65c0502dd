package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edu-hub/course-hub/internal/domain/course"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CourseRepository implements course.Repository for PostgreSQL.
type CourseRepository struct {
	q Querier
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(q Querier) *CourseRepository {
	return &CourseRepository{q: q}
}

const courseColumns = `id, name, status, start_date, started, created_at, updated_at`

// Create stores a new course.
func (r *CourseRepository) Create(ctx context.Context, c *course.Course) error {
	query := `
		INSERT INTO courses (id, name, status, start_date, started, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.Exec(ctx, query,
		c.ID,
		c.Name.String(),
		c.Status.String(),
		c.StartDate,
		c.Started,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: course %s", shared.ErrAlreadyExists, c.Name)
		}
		return fmt.Errorf("failed to create course: %w", err)
	}

	return nil
}

// GetByID returns a course by ID.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	return r.scanCourse(r.q.QueryRow(ctx, query, id))
}

// GetByName returns a course by its unique name.
func (r *CourseRepository) GetByName(ctx context.Context, name course.Name) (*course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE name = $1`
	return r.scanCourse(r.q.QueryRow(ctx, query, name.String()))
}

// Update overwrites the course record.
func (r *CourseRepository) Update(ctx context.Context, c *course.Course) error {
	query := `
		UPDATE courses SET
			name = $1,
			status = $2,
			start_date = $3,
			started = $4,
			updated_at = $5
		WHERE id = $6
	`

	result, err := r.q.Exec(ctx, query,
		c.Name.String(),
		c.Status.String(),
		c.StartDate,
		c.Started,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: course %s", shared.ErrNotFound, c.ID)
	}

	return nil
}

// Delete removes the course record.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: course %s", shared.ErrNotFound, id)
	}

	return nil
}

// List returns all courses ordered by creation time.
func (r *CourseRepository) List(ctx context.Context) ([]*course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses ORDER BY created_at`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	return r.collectCourses(rows)
}

// ListDueForStart returns waiting courses whose start date falls on or
// before the end of the given day. Courses left unpromoted on their
// start day keep showing up here until they are started or deleted.
func (r *CourseRepository) ListDueForStart(ctx context.Context, day time.Time) ([]*course.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses
		WHERE start_date <= $1 AND NOT started AND status = $2
		ORDER BY created_at
	`

	rows, err := r.q.Query(ctx, query, timeutil.EndOfDay(day), course.StatusWait.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list starting courses: %w", err)
	}
	defer rows.Close()

	return r.collectCourses(rows)
}

func (r *CourseRepository) scanCourse(row pgx.Row) (*course.Course, error) {
	var (
		c      course.Course
		name   string
		status string
	)

	err := row.Scan(
		&c.ID,
		&name,
		&status,
		&c.StartDate,
		&c.Started,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("%w: course", shared.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan course: %w", err)
	}

	c.Name = course.Name(name)
	c.Status = course.Status(status)
	return &c, nil
}

func (r *CourseRepository) collectCourses(rows pgx.Rows) ([]*course.Course, error) {
	var out []*course.Course
	for rows.Next() {
		c, err := r.scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LessonRepository implements course.LessonRepository for PostgreSQL.
type LessonRepository struct {
	q Querier
}

// NewLessonRepository creates a new LessonRepository.
func NewLessonRepository(q Querier) *LessonRepository {
	return &LessonRepository{q: q}
}

// CreateBatch stores the given lessons.
func (r *LessonRepository) CreateBatch(ctx context.Context, lessons []*course.Lesson) error {
	query := `
		INSERT INTO lessons (id, course_id, name, position, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, l := range lessons {
		if _, err := r.q.Exec(ctx, query, l.ID, l.CourseID, l.Name, l.Position, l.CreatedAt); err != nil {
			return fmt.Errorf("failed to create lesson: %w", err)
		}
	}

	return nil
}

// ListByCourse returns the lessons of a course ordered by position.
func (r *LessonRepository) ListByCourse(ctx context.Context, courseID string) ([]*course.Lesson, error) {
	query := `
		SELECT id, course_id, name, position, created_at
		FROM lessons
		WHERE course_id = $1
		ORDER BY position
	`

	rows, err := r.q.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	defer rows.Close()

	var out []*course.Lesson
	for rows.Next() {
		var l course.Lesson
		if err := rows.Scan(&l.ID, &l.CourseID, &l.Name, &l.Position, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// CountByCourse returns the number of lessons a course owns.
func (r *LessonRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM lessons WHERE course_id = $1`, courseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return n, nil
}

// DeleteByCourse removes all lessons of a course.
func (r *LessonRepository) DeleteByCourse(ctx context.Context, courseID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM lessons WHERE course_id = $1`, courseID); err != nil {
		return fmt.Errorf("failed to delete lessons: %w", err)
	}
	return nil
}
