// Package course contains the course and lesson domain model,
// including the course lifecycle state machine. This is a pure domain
// layer; invariants that need persisted counts (instructor presence,
// lesson minimum) are enforced by the application commands that own
// the transaction.
package course

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edu-hub/course-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS STATE MACHINE
// ══════════════════════════════════════════════════════════════════════════════

// Status represents the lifecycle state of a course.
type Status string

const (
	// StatusWait is the initial state: created, not yet started.
	StatusWait Status = "WAIT"

	// StatusStarted means the course is actively taught.
	StatusStarted Status = "STARTED"

	// StatusStop means the course is paused and may resume.
	StatusStop Status = "STOP"

	// StatusFinished is terminal; no transition leaves it.
	StatusFinished Status = "FINISHED"
)

// IsValid checks if the status is one of the known states.
func (s Status) IsValid() bool {
	switch s {
	case StatusWait, StatusStarted, StatusStop, StatusFinished:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no transition may leave this status.
func (s Status) IsTerminal() bool {
	return s == StatusFinished
}

// CanTransitionTo reports whether the transition s -> next is permitted.
// Permitted: WAIT->STARTED, STARTED->STOP, STOP->STARTED, any->FINISHED.
func (s Status) CanTransitionTo(next Status) bool {
	if !next.IsValid() {
		return false
	}
	if s == StatusFinished {
		return false
	}
	if next == StatusFinished {
		return true
	}
	switch s {
	case StatusWait:
		return next == StatusStarted
	case StatusStarted:
		return next == StatusStop
	case StatusStop:
		return next == StatusStarted
	default:
		return false
	}
}

// ParseStatus parses a string into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.NewDomainError("course", "ParseStatus", shared.ErrInvalidArgument, "unknown status: "+s)
	}
	return st, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Name represents a course name, unique across all courses.
type Name string

// IsValid checks basic structural constraints on the name.
func (n Name) IsValid() bool {
	s := strings.TrimSpace(string(n))
	return len(s) >= 2 && len(s) <= 200
}

// String returns the string representation of the name.
func (n Name) String() string {
	return string(n)
}

// Course is a taught unit with a lifecycle status and a set of lessons.
type Course struct {
	ID        string
	Name      Name
	Status    Status
	StartDate time.Time
	Started   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a course in the initial WAIT state.
func New(name Name, startDate time.Time) (*Course, error) {
	if !name.IsValid() {
		return nil, shared.NewDomainError("course", "New", shared.ErrInvalidArgument, "invalid course name")
	}
	if startDate.IsZero() {
		return nil, shared.NewDomainError("course", "New", shared.ErrInvalidArgument, "start date is required")
	}

	now := time.Now().UTC()
	return &Course{
		ID:        uuid.NewString(),
		Name:      name,
		Status:    StatusWait,
		StartDate: startDate,
		Started:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Transition moves the course to the given status. Only the status,
// the started flag, and the update timestamp change.
func (c *Course) Transition(next Status) error {
	if !c.Status.CanTransitionTo(next) {
		return shared.NewDomainError("course", "Transition", shared.ErrStateTransition,
			fmt.Sprintf("cannot transition %s -> %s", c.Status, next))
	}
	c.Status = next
	if next == StatusStarted {
		c.Started = true
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Lesson belongs to exactly one course. Lessons are owned by the
// course and deleted with it.
type Lesson struct {
	ID        string
	CourseID  string
	Name      string
	Position  int
	CreatedAt time.Time
}

// NewLesson creates a lesson for the given course.
func NewLesson(courseID, name string, position int) (*Lesson, error) {
	if courseID == "" {
		return nil, shared.NewDomainError("course", "NewLesson", shared.ErrInvalidID, "course ID is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("course", "NewLesson", shared.ErrEmptyValue, "lesson name is required")
	}
	if position < 1 {
		return nil, shared.NewDomainError("course", "NewLesson", shared.ErrValueOutOfRange, "lesson position must be positive")
	}
	return &Lesson{
		ID:        uuid.NewString(),
		CourseID:  courseID,
		Name:      name,
		Position:  position,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// PlaceholderLessons generates the initial lesson set for a new course.
func PlaceholderLessons(courseID string, count int) ([]*Lesson, error) {
	lessons := make([]*Lesson, 0, count)
	for i := 1; i <= count; i++ {
		l, err := NewLesson(courseID, fmt.Sprintf("Lesson %d", i), i)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, nil
}
