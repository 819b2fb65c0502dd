package eventhandler

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-hub/course-hub/internal/domain/shared"
)

// trackingInvalidator records invalidation calls.
type trackingInvalidator struct {
	pairs   [][2]string
	courses []string
}

func (c *trackingInvalidator) Invalidate(_ context.Context, userID, courseID string) error {
	c.pairs = append(c.pairs, [2]string{userID, courseID})
	return nil
}

func (c *trackingInvalidator) InvalidateCourse(_ context.Context, courseID string) error {
	c.courses = append(c.courses, courseID)
	return nil
}

func TestOnCourseMarkUpserted_InvalidatesPair(t *testing.T) {
	cache := &trackingInvalidator{}
	h := NewOnCourseMarkUpsertedHandler(cache, nil)

	event := shared.NewCourseMarkUpsertedEvent("u1", "c1", 85, true)
	require.NoError(t, h.Handle(context.Background(), event))

	require.Len(t, cache.pairs, 1)
	assert.Equal(t, [2]string{"u1", "c1"}, cache.pairs[0])
}

func TestOnCourseMarkUpserted_MalformedPayload(t *testing.T) {
	cache := &trackingInvalidator{}
	h := NewOnCourseMarkUpsertedHandler(cache, nil)

	// A course event has no user_id in its payload.
	event := shared.NewCourseDeletedEvent("c1", "Go Fundamentals")
	err := h.Handle(context.Background(), event)
	assert.Error(t, err)
	assert.Empty(t, cache.pairs)
}

func TestOnCourseDeleted_SweepsCourse(t *testing.T) {
	cache := &trackingInvalidator{}
	h := NewOnCourseDeletedHandler(cache, nil)

	event := shared.NewCourseDeletedEvent("c1", "Go Fundamentals")
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Equal(t, []string{"c1"}, cache.courses)
}

func TestAuditHandler_LogsEvent(t *testing.T) {
	var buf bytes.Buffer
	h := NewAuditHandler(slog.New(slog.NewJSONHandler(&buf, nil)))

	event := shared.NewCourseMarkUpsertedEvent("u1", "c1", 85, true)
	require.NoError(t, h.Handle(context.Background(), event))

	out := buf.String()
	assert.Contains(t, out, "domain event")
	assert.Contains(t, out, string(shared.EventCourseMarkUpserted))
	assert.Contains(t, out, "u1:c1")
}
