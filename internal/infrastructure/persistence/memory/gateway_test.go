package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/course"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/internal/domain/user"
)

func newUser(t *testing.T, email string) *user.User {
	t.Helper()
	u, err := user.New(user.Email(email), "Test User", user.RoleStudent)
	require.NoError(t, err)
	return u
}

func TestAtomic_CommitsOnSuccess(t *testing.T) {
	gw := NewGateway()
	ctx := context.Background()
	u := newUser(t, "alice@example.com")

	require.NoError(t, gw.Atomic(ctx, func(r *storage.Repos) error {
		return r.Users.Create(ctx, u)
	}))

	require.NoError(t, gw.View(ctx, func(r *storage.Repos) error {
		got, err := r.Users.ResolveByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		return nil
	}))
}

func TestAtomic_RollsBackOnError(t *testing.T) {
	gw := NewGateway()
	ctx := context.Background()
	failure := errors.New("boom")

	err := gw.Atomic(ctx, func(r *storage.Repos) error {
		if err := r.Users.Create(ctx, newUser(t, "alice@example.com")); err != nil {
			return err
		}
		c, err := course.New("Doomed Course", time.Now().AddDate(0, 0, 1))
		if err != nil {
			return err
		}
		if err := r.Courses.Create(ctx, c); err != nil {
			return err
		}
		return failure
	})
	require.ErrorIs(t, err, failure)

	// Nothing from the failed transaction is visible.
	require.NoError(t, gw.View(ctx, func(r *storage.Repos) error {
		_, err := r.Users.ResolveByEmail(ctx, "alice@example.com")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = r.Courses.GetByName(ctx, "Doomed Course")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		return nil
	}))
}

func TestView_DoesNotPersistWrites(t *testing.T) {
	gw := NewGateway()
	ctx := context.Background()

	// View hands out a snapshot; writes against it are discarded.
	require.NoError(t, gw.View(ctx, func(r *storage.Repos) error {
		return r.Users.Create(ctx, newUser(t, "ghost@example.com"))
	}))

	require.NoError(t, gw.View(ctx, func(r *storage.Repos) error {
		_, err := r.Users.ResolveByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		return nil
	}))
}

func TestUserRepo_DuplicateEmail(t *testing.T) {
	gw := NewGateway()
	ctx := context.Background()

	require.NoError(t, gw.Atomic(ctx, func(r *storage.Repos) error {
		return r.Users.Create(ctx, newUser(t, "alice@example.com"))
	}))

	err := gw.Atomic(ctx, func(r *storage.Repos) error {
		return r.Users.Create(ctx, newUser(t, "alice@example.com"))
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestCourseRepo_ListDueForStart(t *testing.T) {
	gw := NewGateway()
	ctx := context.Background()
	today := time.Now()

	mk := func(name string, start time.Time, started bool) {
		c, err := course.New(course.Name(name), start)
		require.NoError(t, err)
		if started {
			require.NoError(t, c.Transition(course.StatusStarted))
		}
		require.NoError(t, gw.Atomic(ctx, func(r *storage.Repos) error {
			return r.Courses.Create(ctx, c)
		}))
	}

	mk("Due Today", today, false)
	mk("Overdue", today.AddDate(0, 0, -3), false)
	mk("Already Started", today, true)
	mk("Due Tomorrow", today.AddDate(0, 0, 1), false)

	require.NoError(t, gw.View(ctx, func(r *storage.Repos) error {
		due, err := r.Courses.ListDueForStart(ctx, today)
		require.NoError(t, err)
		require.Len(t, due, 2)
		names := []course.Name{due[0].Name, due[1].Name}
		assert.Contains(t, names, course.Name("Due Today"))
		assert.Contains(t, names, course.Name("Overdue"))
		return nil
	}))
}

func TestAtomic_CancelledContext(t *testing.T) {
	gw := NewGateway()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := gw.Atomic(ctx, func(r *storage.Repos) error {
		t.Fatal("fn must not run with a cancelled context")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
