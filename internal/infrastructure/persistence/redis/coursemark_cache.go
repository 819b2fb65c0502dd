package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/edu-hub/course-hub/internal/domain/grading"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// COURSE MARK CACHE
// ══════════════════════════════════════════════════════════════════════════════

// CourseMarkCache implements query.CourseMarkCache over Redis.
// Writers invalidate after commit; the store of record stays
// authoritative for every invariant check.
//
// All calls go through a circuit breaker: when Redis starts failing,
// the breaker opens and reads fall through to the store immediately
// instead of waiting out a timeout per request. Cache misses do not
// count against the circuit.
type CourseMarkCache struct {
	cache   *Cache
	breaker *circuitbreaker.CircuitBreaker
}

// NewCourseMarkCache creates a new CourseMarkCache.
func NewCourseMarkCache(cache *Cache) *CourseMarkCache {
	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:             "coursemark-cache",
		FailureThreshold: 3,
		SuccessThreshold: 1,
		OpenTimeout:      15 * time.Second,
		IsFailure: func(err error) bool {
			return !errors.Is(err, ErrCacheMiss)
		},
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			slog.Warn("cache circuit state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return &CourseMarkCache{cache: cache, breaker: breaker}
}

// Get returns the cached aggregate for the pair.
// Returns shared.ErrNotFound on a miss so callers fall through to the store.
func (c *CourseMarkCache) Get(ctx context.Context, userID, courseID string) (*grading.CourseMark, error) {
	var mark grading.CourseMark
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Get(ctx, CourseMarkKey(userID, courseID), &mark)
	})
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &mark, nil
}

// Set caches the aggregate with the default TTL.
func (c *CourseMarkCache) Set(ctx context.Context, mark *grading.CourseMark) error {
	if mark == nil {
		return nil
	}
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Set(ctx, CourseMarkKey(mark.UserID, mark.CourseID), mark, TTLCourseMark)
	})
}

// Invalidate drops the cached aggregate for the pair.
func (c *CourseMarkCache) Invalidate(ctx context.Context, userID, courseID string) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.Delete(ctx, CourseMarkKey(userID, courseID))
	})
}

// InvalidateCourse drops every cached aggregate of a course.
// Used by the cascading course deletion.
func (c *CourseMarkCache) InvalidateCourse(ctx context.Context, courseID string) error {
	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.cache.DeleteByPattern(ctx, CourseMarkPattern(courseID))
	})
}
