package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-hub/course-hub/internal/domain/shared"
)

// captureHandler records the events it receives.
type captureHandler struct {
	name string
	err  error

	mu     sync.Mutex
	events []shared.Event
}

func (h *captureHandler) Name() string { return h.name }

func (h *captureHandler) Handle(_ context.Context, event shared.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return h.err
}

func (h *captureHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func newSyncBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := newSyncBus()
	courses := &captureHandler{name: "courses"}
	marks := &captureHandler{name: "marks"}

	require.NoError(t, bus.Subscribe(shared.EventCourseCreated, courses))
	require.NoError(t, bus.Subscribe(shared.EventCourseMarkUpserted, marks))

	event := shared.NewCourseCreatedEvent("c1", "Go Fundamentals", time.Now(), 5)
	require.NoError(t, bus.Publish(context.Background(), event))

	assert.Equal(t, 1, courses.count())
	assert.Zero(t, marks.count(), "unrelated handlers stay quiet")
}

func TestInMemoryEventBus_SubscribeAll(t *testing.T) {
	bus := newSyncBus()
	audit := &captureHandler{name: "audit"}
	require.NoError(t, bus.SubscribeAll(audit))

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, shared.NewCourseCreatedEvent("c1", "A", time.Now(), 5)))
	require.NoError(t, bus.Publish(ctx, shared.NewCourseDeletedEvent("c1", "A")))
	require.NoError(t, bus.Publish(ctx, shared.NewCourseMarkUpsertedEvent("u1", "c1", 85, true)))

	assert.Equal(t, 3, audit.count())
}

func TestInMemoryEventBus_HandlerErrorDoesNotPropagate(t *testing.T) {
	bus := newSyncBus()
	failing := &captureHandler{name: "failing", err: errors.New("handler broke")}
	after := &captureHandler{name: "after"}

	require.NoError(t, bus.Subscribe(shared.EventCourseCreated, failing))
	require.NoError(t, bus.Subscribe(shared.EventCourseCreated, after))

	err := bus.Publish(context.Background(), shared.NewCourseCreatedEvent("c1", "A", time.Now(), 5))
	assert.NoError(t, err, "publisher must not see handler failures")
	assert.Equal(t, 1, after.count(), "later handlers still run")
}

func TestInMemoryEventBus_Closed(t *testing.T) {
	bus := newSyncBus()
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close(), "closing twice is a no-op")

	err := bus.Publish(context.Background(), shared.NewCourseDeletedEvent("c1", "A"))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventCourseCreated, &captureHandler{name: "late"})
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestInMemoryEventBus_NilArguments(t *testing.T) {
	bus := newSyncBus()

	assert.ErrorIs(t, bus.Subscribe(shared.EventCourseCreated, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.SubscribeAll(nil), ErrNilHandler)
	assert.ErrorIs(t, bus.Publish(context.Background(), nil), ErrNilEvent)
}

func TestInMemoryEventBus_AsyncDelivery(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 4})
	audit := &captureHandler{name: "audit"}
	require.NoError(t, bus.SubscribeAll(audit))

	ctx := context.Background()
	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(ctx, shared.NewCourseCreatedEvent("c1", "A", time.Now(), 5)))
	}

	assert.Eventually(t, func() bool { return audit.count() == 20 },
		2*time.Second, 10*time.Millisecond)
	require.NoError(t, bus.Close())
}
