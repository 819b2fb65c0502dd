// Package grading contains the homework and course mark domain model.
// A Homework is a per-(user, lesson) record carrying an optional mark;
// a CourseMark is the derived pass/fail aggregate for a (user, course)
// pair, recomputed on every mark change and written by upsert.
package grading

import (
	"time"

	"github.com/google/uuid"

	"github.com/edu-hub/course-hub/internal/domain/shared"
)

// Mark bounds. A mark is a percentage score an instructor assigns.
const (
	MinMark = 0
	MaxMark = 100
)

// DefaultPassThreshold is the default minimum average required to pass.
const DefaultPassThreshold = 80.0

// ══════════════════════════════════════════════════════════════════════════════
// HOMEWORK
// ══════════════════════════════════════════════════════════════════════════════

// Homework is a per-(user, lesson) submission record. The course ID is
// carried redundantly so aggregate queries never need a lesson join.
// A placeholder row (no file, no mark) is created for every lesson when
// a student enrolls.
type Homework struct {
	ID          string
	UserID      string
	LessonID    string
	CourseID    string
	FileRef     string // opaque reference into the submission store, empty until submitted
	Mark        *int
	SubmittedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPlaceholder creates an unmarked homework row for a lesson.
func NewPlaceholder(userID, lessonID, courseID string) (*Homework, error) {
	if userID == "" || lessonID == "" || courseID == "" {
		return nil, shared.NewDomainError("grading", "NewPlaceholder", shared.ErrInvalidID, "user, lesson, and course IDs are required")
	}
	now := time.Now().UTC()
	return &Homework{
		ID:        uuid.NewString(),
		UserID:    userID,
		LessonID:  lessonID,
		CourseID:  courseID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsGraded reports whether a mark has been assigned.
func (h *Homework) IsGraded() bool {
	return h.Mark != nil
}

// Attach records the submission file reference.
func (h *Homework) Attach(fileRef string) error {
	if fileRef == "" {
		return shared.NewDomainError("grading", "Attach", shared.ErrEmptyValue, "file reference is required")
	}
	now := time.Now().UTC()
	h.FileRef = fileRef
	h.SubmittedAt = &now
	h.UpdatedAt = now
	return nil
}

// SetMark assigns a mark in the [MinMark, MaxMark] range.
func (h *Homework) SetMark(mark int) error {
	if mark < MinMark || mark > MaxMark {
		return shared.NewDomainError("grading", "SetMark", shared.ErrInvalidArgument, "mark must be between 0 and 100")
	}
	h.Mark = &mark
	h.UpdatedAt = time.Now().UTC()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE MARK
// ══════════════════════════════════════════════════════════════════════════════

// CourseMark is the materialized pass/fail aggregate for one
// (user, course) pair. At most one row exists per pair; every
// recomputation replaces it in place.
type CourseMark struct {
	ID         string
	UserID     string
	CourseID   string
	TotalScore float64
	Passed     bool
	UpdatedAt  time.Time
}

// Compute derives the CourseMark for a (user, course) pair from all of
// its homework rows that exist at evaluation time.
//
// TotalScore is the arithmetic mean of the assigned marks; ungraded
// placeholders are excluded from the average but block passing.
// Passed is true only when every row is graded and the average reaches
// the threshold. A pair with no homework rows never passes.
func Compute(userID, courseID string, homeworks []*Homework, passThreshold float64) *CourseMark {
	var (
		sum    int
		graded int
	)
	for _, h := range homeworks {
		if h.IsGraded() {
			sum += *h.Mark
			graded++
		}
	}

	var totalScore float64
	if graded > 0 {
		totalScore = float64(sum) / float64(graded)
	}

	allGraded := len(homeworks) > 0 && graded == len(homeworks)

	return &CourseMark{
		ID:         uuid.NewString(),
		UserID:     userID,
		CourseID:   courseID,
		TotalScore: totalScore,
		Passed:     allGraded && totalScore >= passThreshold,
		UpdatedAt:  time.Now().UTC(),
	}
}

// Finalize marks the course as passed directly, keeping the current
// average. Used by the manual course completion override.
func (m *CourseMark) Finalize() {
	m.Passed = true
	m.UpdatedAt = time.Now().UTC()
}
