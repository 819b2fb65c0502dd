// Package eventhandler contains subscribers for domain events. They
// run side effects after commands commit: dropping stale cache entries
// and writing the audit trail. A failing subscriber never affects the
// command that published the event.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edu-hub/course-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON COURSE MARK UPSERTED
// ═══════════════════════════════════════════════════════════════════════════

// MarkCacheInvalidator drops cached (user, course) aggregates.
// Implemented by the Redis cache; nil-safe wiring is the caller's job.
type MarkCacheInvalidator interface {
	Invalidate(ctx context.Context, userID, courseID string) error
	InvalidateCourse(ctx context.Context, courseID string) error
}

// OnCourseMarkUpsertedHandler drops the cached aggregate when the
// store's copy changes, so the next read refills from the store.
type OnCourseMarkUpsertedHandler struct {
	cache  MarkCacheInvalidator
	logger *slog.Logger
}

// NewOnCourseMarkUpsertedHandler creates the handler.
func NewOnCourseMarkUpsertedHandler(cache MarkCacheInvalidator, logger *slog.Logger) *OnCourseMarkUpsertedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnCourseMarkUpsertedHandler{cache: cache, logger: logger}
}

// Name implements shared.EventHandler.
func (h *OnCourseMarkUpsertedHandler) Name() string {
	return "on_course_mark_upserted"
}

// Handle invalidates the cached aggregate named by the event payload.
func (h *OnCourseMarkUpsertedHandler) Handle(ctx context.Context, event shared.Event) error {
	payload := event.Payload()

	userID, _ := payload["user_id"].(string)
	courseID, _ := payload["course_id"].(string)
	if userID == "" || courseID == "" {
		return fmt.Errorf("eventhandler: malformed payload for %s", event.EventType())
	}

	if err := h.cache.Invalidate(ctx, userID, courseID); err != nil {
		return fmt.Errorf("eventhandler: failed to invalidate course mark: %w", err)
	}

	h.logger.Debug("course mark cache invalidated",
		"user_id", userID,
		"course_id", courseID,
	)
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// ON COURSE DELETED
// ═══════════════════════════════════════════════════════════════════════════

// OnCourseDeletedHandler sweeps every cached aggregate of a deleted
// course. The cascade already removed the store rows.
type OnCourseDeletedHandler struct {
	cache  MarkCacheInvalidator
	logger *slog.Logger
}

// NewOnCourseDeletedHandler creates the handler.
func NewOnCourseDeletedHandler(cache MarkCacheInvalidator, logger *slog.Logger) *OnCourseDeletedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnCourseDeletedHandler{cache: cache, logger: logger}
}

// Name implements shared.EventHandler.
func (h *OnCourseDeletedHandler) Name() string {
	return "on_course_deleted"
}

// Handle drops all cached aggregates for the deleted course.
func (h *OnCourseDeletedHandler) Handle(ctx context.Context, event shared.Event) error {
	courseID := event.AggregateID()
	if courseID == "" {
		return fmt.Errorf("eventhandler: malformed payload for %s", event.EventType())
	}

	if err := h.cache.InvalidateCourse(ctx, courseID); err != nil {
		return fmt.Errorf("eventhandler: failed to sweep course marks: %w", err)
	}

	h.logger.Debug("course mark cache swept", "course_id", courseID)
	return nil
}
