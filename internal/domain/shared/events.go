// Package shared contains common domain types, errors, and events
// that are used across all domain packages.
package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant
// that happened in the engine and is of interest to subscribers
// (cache invalidation, audit logging).
const (
	// Course lifecycle events
	EventCourseCreated  EventType = "course.created"
	EventCoursePromoted EventType = "course.promoted"
	EventCourseStatus   EventType = "course.status_changed"
	EventCourseDeleted  EventType = "course.deleted"

	// Enrollment events
	EventEnrollmentCreated EventType = "enrollment.created"
	EventEnrollmentRemoved EventType = "enrollment.removed"

	// Grading events
	EventHomeworkSubmitted   EventType = "grading.homework_submitted"
	EventMarkAssigned        EventType = "grading.mark_assigned"
	EventCourseMarkUpserted  EventType = "grading.course_mark_upserted"
	EventCourseMarkFinalized EventType = "grading.course_mark_finalized"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a published event.
type EventHandler interface {
	// Name returns the unique handler name (used for logging).
	Name() string

	// Handle processes the event. A non-nil error is logged by the bus;
	// it never propagates back to the publishing command.
	Handle(ctx context.Context, event Event) error
}

// EventBus publishes domain events to subscribed handlers.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler) error
	Close() error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// CourseCreatedEvent is emitted when an admin creates a course.
type CourseCreatedEvent struct {
	BaseEvent
	CourseName  string    `json:"course_name"`
	StartDate   time.Time `json:"start_date"`
	LessonCount int       `json:"lesson_count"`
}

// Payload implements Event interface.
func (e CourseCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_name":  e.CourseName,
		"start_date":   e.StartDate,
		"lesson_count": e.LessonCount,
	}
}

// NewCourseCreatedEvent creates a new CourseCreatedEvent.
func NewCourseCreatedEvent(courseID, name string, startDate time.Time, lessons int) CourseCreatedEvent {
	return CourseCreatedEvent{
		BaseEvent:   NewBaseEvent(EventCourseCreated, courseID),
		CourseName:  name,
		StartDate:   startDate,
		LessonCount: lessons,
	}
}

// CourseStatusEvent is emitted on every course status transition,
// including scheduled promotion.
type CourseStatusEvent struct {
	BaseEvent
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	Promoted  bool   `json:"promoted"` // true when triggered by the scheduler
}

// Payload implements Event interface.
func (e CourseStatusEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_status": e.OldStatus,
		"new_status": e.NewStatus,
		"promoted":   e.Promoted,
	}
}

// NewCourseStatusEvent creates a new CourseStatusEvent.
func NewCourseStatusEvent(courseID, oldStatus, newStatus string, promoted bool) CourseStatusEvent {
	eventType := EventCourseStatus
	if promoted {
		eventType = EventCoursePromoted
	}
	return CourseStatusEvent{
		BaseEvent: NewBaseEvent(eventType, courseID),
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Promoted:  promoted,
	}
}

// CourseDeletedEvent is emitted after a course and everything it owns
// has been removed.
type CourseDeletedEvent struct {
	BaseEvent
	CourseName string `json:"course_name"`
}

// Payload implements Event interface.
func (e CourseDeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_name": e.CourseName,
	}
}

// NewCourseDeletedEvent creates a new CourseDeletedEvent.
func NewCourseDeletedEvent(courseID, name string) CourseDeletedEvent {
	return CourseDeletedEvent{
		BaseEvent:  NewBaseEvent(EventCourseDeleted, courseID),
		CourseName: name,
	}
}

// EnrollmentEvent is emitted when an enrollment is created or removed.
type EnrollmentEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	Role     string `json:"role"`
}

// Payload implements Event interface.
func (e EnrollmentEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":   e.UserID,
		"course_id": e.CourseID,
		"role":      e.Role,
	}
}

// NewEnrollmentEvent creates a new EnrollmentEvent.
func NewEnrollmentEvent(eventType EventType, enrollmentID, userID, courseID, role string) EnrollmentEvent {
	return EnrollmentEvent{
		BaseEvent: NewBaseEvent(eventType, enrollmentID),
		UserID:    userID,
		CourseID:  courseID,
		Role:      role,
	}
}

// HomeworkEvent carries a homework state change: a submission was
// attached (EventHomeworkSubmitted) or a mark was assigned
// (EventMarkAssigned).
type HomeworkEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	LessonID string `json:"lesson_id"`
	Mark     *int   `json:"mark,omitempty"`
}

// Payload implements Event interface.
func (e HomeworkEvent) Payload() map[string]interface{} {
	p := map[string]interface{}{
		"user_id":   e.UserID,
		"course_id": e.CourseID,
		"lesson_id": e.LessonID,
	}
	if e.Mark != nil {
		p["mark"] = *e.Mark
	}
	return p
}

// NewHomeworkEvent creates a new HomeworkEvent. Mark is nil for
// submission events.
func NewHomeworkEvent(eventType EventType, homeworkID, userID, courseID, lessonID string, mark *int) HomeworkEvent {
	return HomeworkEvent{
		BaseEvent: NewBaseEvent(eventType, homeworkID),
		UserID:    userID,
		CourseID:  courseID,
		LessonID:  lessonID,
		Mark:      mark,
	}
}

// CourseMarkUpsertedEvent is emitted after the derived (user, course)
// aggregate is recomputed and written. Subscribers invalidate read caches.
type CourseMarkUpsertedEvent struct {
	BaseEvent
	UserID     string  `json:"user_id"`
	CourseID   string  `json:"course_id"`
	TotalScore float64 `json:"total_score"`
	Passed     bool    `json:"passed"`
}

// Payload implements Event interface.
func (e CourseMarkUpsertedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id":     e.UserID,
		"course_id":   e.CourseID,
		"total_score": e.TotalScore,
		"passed":      e.Passed,
	}
}

// NewCourseMarkUpsertedEvent creates a new CourseMarkUpsertedEvent.
func NewCourseMarkUpsertedEvent(userID, courseID string, totalScore float64, passed bool) CourseMarkUpsertedEvent {
	return CourseMarkUpsertedEvent{
		BaseEvent:  NewBaseEvent(EventCourseMarkUpserted, userID+":"+courseID),
		UserID:     userID,
		CourseID:   courseID,
		TotalScore: totalScore,
		Passed:     passed,
	}
}
