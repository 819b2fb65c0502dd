package command

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/course"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/internal/domain/user"
	"github.com/edu-hub/course-hub/internal/infrastructure/persistence/memory"
)

// recordingBus captures published events for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *recordingBus) Publish(ctx context.Context, event shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) byType(t shared.EventType) []shared.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []shared.Event
	for _, e := range b.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

// testEnv bundles a memory gateway with all command handlers.
type testEnv struct {
	gw    storage.Gateway
	bus   *recordingBus
	rules Rules

	createCourse     *CreateCourseHandler
	updateStatus     *UpdateCourseStatusHandler
	deleteCourse     *DeleteCourseHandler
	assignInstructor *AssignInstructorHandler
	applyForCourse   *ApplyForCourseHandler
	removeEnrollment *RemoveEnrollmentHandler
	submitHomework   *SubmitHomeworkHandler
	setMark          *SetMarkHandler
	finishCourse     *FinishCourseHandler
	promoteCourses   *PromoteCoursesHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		gw:    memory.NewGateway(),
		bus:   &recordingBus{},
		rules: DefaultRules(),
	}
	env.createCourse = NewCreateCourseHandler(env.gw, env.rules, env.bus, nil)
	env.updateStatus = NewUpdateCourseStatusHandler(env.gw, env.rules, env.bus, nil)
	env.deleteCourse = NewDeleteCourseHandler(env.gw, env.bus, nil)
	env.assignInstructor = NewAssignInstructorHandler(env.gw, env.bus, nil)
	env.applyForCourse = NewApplyForCourseHandler(env.gw, env.rules, env.bus, nil)
	env.removeEnrollment = NewRemoveEnrollmentHandler(env.gw, env.bus, nil)
	env.submitHomework = NewSubmitHomeworkHandler(env.gw, env.bus, nil)
	env.setMark = NewSetMarkHandler(env.gw, env.rules, env.bus, nil)
	env.finishCourse = NewFinishCourseHandler(env.gw, env.rules, env.bus, nil)
	env.promoteCourses = NewPromoteCoursesHandler(env.gw, env.updateStatus, nil)
	return env
}

func (env *testEnv) seedUser(t *testing.T, email string, role user.Role) *user.User {
	t.Helper()
	u, err := user.New(user.Email(email), email, role)
	require.NoError(t, err)
	require.NoError(t, env.gw.Atomic(context.Background(), func(r *storage.Repos) error {
		return r.Users.Create(context.Background(), u)
	}))
	return u
}

// seedCourse creates a course with lessons and one instructor through
// the regular command path.
func (env *testEnv) seedCourse(t *testing.T, name, instructorEmail string, start time.Time) *CreateCourseResult {
	t.Helper()
	result, err := env.createCourse.Handle(context.Background(), CreateCourseCommand{
		Name:            name,
		StartDate:       start,
		InstructorEmail: instructorEmail,
		LessonCount:     env.rules.MinLessonsPerCourse,
	})
	require.NoError(t, err)
	return result
}

func tomorrow() time.Time {
	return time.Now().AddDate(0, 0, 1)
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateCourse
// ─────────────────────────────────────────────────────────────────────────────

func TestCreateCourse_Success(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)

	result := env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())

	assert.Equal(t, course.StatusWait, result.Course.Status)
	assert.Len(t, result.LessonIDs, env.rules.MinLessonsPerCourse)
	assert.Equal(t, user.RoleInstructor, result.Enrollment.Role)
	assert.Len(t, env.bus.byType(shared.EventCourseCreated), 1)
}

func TestCreateCourse_DuplicateName(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())

	_, err := env.createCourse.Handle(context.Background(), CreateCourseCommand{
		Name:            "Go Fundamentals",
		StartDate:       tomorrow(),
		InstructorEmail: "teacher@example.com",
		LessonCount:     env.rules.MinLessonsPerCourse,
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestCreateCourse_PastStartDate(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)

	_, err := env.createCourse.Handle(context.Background(), CreateCourseCommand{
		Name:            "Go Fundamentals",
		StartDate:       time.Now().AddDate(0, 0, -1),
		InstructorEmail: "teacher@example.com",
		LessonCount:     env.rules.MinLessonsPerCourse,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestCreateCourse_LessonCountBelowMinimum(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)

	_, err := env.createCourse.Handle(context.Background(), CreateCourseCommand{
		Name:            "Go Fundamentals",
		StartDate:       tomorrow(),
		InstructorEmail: "teacher@example.com",
		LessonCount:     env.rules.MinLessonsPerCourse - 1,
	})
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestCreateCourse_InstructorRoleRequired(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "student@example.com", user.RoleStudent)

	_, err := env.createCourse.Handle(context.Background(), CreateCourseCommand{
		Name:            "Go Fundamentals",
		StartDate:       tomorrow(),
		InstructorEmail: "student@example.com",
		LessonCount:     env.rules.MinLessonsPerCourse,
	})
	assert.ErrorIs(t, err, shared.ErrRoleMismatch)
}

// ─────────────────────────────────────────────────────────────────────────────
// ApplyForCourse
// ─────────────────────────────────────────────────────────────────────────────

func TestApplyForCourse_SelfEnroll(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	student := env.seedUser(t, "alice@example.com", user.RoleStudent)
	env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())

	result, err := env.applyForCourse.Handle(context.Background(), ApplyForCourseCommand{
		CourseName: "Go Fundamentals",
		ActorEmail: "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, student.ID, result.Enrollment.UserID)
	assert.Equal(t, user.RoleStudent, result.Enrollment.Role)
	assert.Equal(t, env.rules.MinLessonsPerCourse, result.HomeworksCreated,
		"one placeholder per lesson")
	assert.Len(t, env.bus.byType(shared.EventEnrollmentCreated), 1)
}

func TestApplyForCourse_AdminEnrollsStudent(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	env.seedUser(t, "admin@example.com", user.RoleAdmin)
	student := env.seedUser(t, "alice@example.com", user.RoleStudent)
	env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())

	result, err := env.applyForCourse.Handle(context.Background(), ApplyForCourseCommand{
		CourseName:   "Go Fundamentals",
		ActorEmail:   "admin@example.com",
		StudentEmail: "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, student.ID, result.Enrollment.UserID)

	// An admin acting without naming a student is an error.
	_, err = env.applyForCourse.Handle(context.Background(), ApplyForCourseCommand{
		CourseName: "Go Fundamentals",
		ActorEmail: "admin@example.com",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestApplyForCourse_AlreadyAssigned(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	env.seedUser(t, "alice@example.com", user.RoleStudent)
	env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())

	_, err := env.applyForCourse.Handle(context.Background(), ApplyForCourseCommand{
		CourseName: "Go Fundamentals",
		ActorEmail: "alice@example.com",
	})
	require.NoError(t, err)

	_, err = env.applyForCourse.Handle(context.Background(), ApplyForCourseCommand{
		CourseName: "Go Fundamentals",
		ActorEmail: "alice@example.com",
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyAssigned)
}

func TestApplyForCourse_EnrollmentLimit(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	env.seedUser(t, "alice@example.com", user.RoleStudent)

	names := []string{"Course A", "Course B", "Course C", "Course D", "Course E", "Course F"}
	for _, name := range names {
		env.seedCourse(t, name, "teacher@example.com", tomorrow())
	}

	for i := 0; i < env.rules.MaxEnrollmentsPerStudent; i++ {
		_, err := env.applyForCourse.Handle(context.Background(), ApplyForCourseCommand{
			CourseName: names[i],
			ActorEmail: "alice@example.com",
		})
		require.NoError(t, err)
	}

	_, err := env.applyForCourse.Handle(context.Background(), ApplyForCourseCommand{
		CourseName: names[env.rules.MaxEnrollmentsPerStudent],
		ActorEmail: "alice@example.com",
	})
	assert.ErrorIs(t, err, shared.ErrLimitExceeded)
}

func TestApplyForCourse_NonStudentRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	env.seedUser(t, "other@example.com", user.RoleInstructor)
	env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())

	_, err := env.applyForCourse.Handle(context.Background(), ApplyForCourseCommand{
		CourseName: "Go Fundamentals",
		ActorEmail: "other@example.com",
	})
	assert.ErrorIs(t, err, shared.ErrRoleMismatch)
}

func TestApplyForCourse_UnknownCourse(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "alice@example.com", user.RoleStudent)

	_, err := env.applyForCourse.Handle(context.Background(), ApplyForCourseCommand{
		CourseName: "No Such Course",
		ActorEmail: "alice@example.com",
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateCourseStatus
// ─────────────────────────────────────────────────────────────────────────────

func TestUpdateCourseStatus_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	created := env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())
	ctx := context.Background()

	c, err := env.updateStatus.Handle(ctx, UpdateCourseStatusCommand{
		CourseID: created.Course.ID, NewStatus: course.StatusStarted,
	})
	require.NoError(t, err)
	assert.True(t, c.Started)

	c, err = env.updateStatus.Handle(ctx, UpdateCourseStatusCommand{
		CourseID: created.Course.ID, NewStatus: course.StatusStop,
	})
	require.NoError(t, err)
	assert.True(t, c.Started, "started flag survives a stop")

	_, err = env.updateStatus.Handle(ctx, UpdateCourseStatusCommand{
		CourseID: created.Course.ID, NewStatus: course.StatusStarted,
	})
	require.NoError(t, err)

	_, err = env.updateStatus.Handle(ctx, UpdateCourseStatusCommand{
		CourseID: created.Course.ID, NewStatus: course.StatusFinished,
	})
	require.NoError(t, err)

	_, err = env.updateStatus.Handle(ctx, UpdateCourseStatusCommand{
		CourseID: created.Course.ID, NewStatus: course.StatusStarted,
	})
	assert.ErrorIs(t, err, shared.ErrStateTransition, "FINISHED is terminal")
}

func TestUpdateCourseStatus_InvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	created := env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())

	_, err := env.updateStatus.Handle(context.Background(), UpdateCourseStatusCommand{
		CourseID: created.Course.ID, NewStatus: course.StatusStop,
	})
	assert.ErrorIs(t, err, shared.ErrStateTransition, "WAIT -> STOP is not permitted")
}

func TestUpdateCourseStatus_StartWithoutInstructor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Build a course directly, bypassing the command that would have
	// attached an instructor.
	c, err := course.New("Orphan Course", tomorrow())
	require.NoError(t, err)
	require.NoError(t, env.gw.Atomic(ctx, func(r *storage.Repos) error {
		if err := r.Courses.Create(ctx, c); err != nil {
			return err
		}
		lessons, err := course.PlaceholderLessons(c.ID, env.rules.MinLessonsPerCourse)
		if err != nil {
			return err
		}
		return r.Lessons.CreateBatch(ctx, lessons)
	}))

	_, err = env.updateStatus.Handle(ctx, UpdateCourseStatusCommand{
		CourseID: c.ID, NewStatus: course.StatusStarted,
	})
	assert.ErrorIs(t, err, shared.ErrInvariantViolation)
}

// ─────────────────────────────────────────────────────────────────────────────
// AssignInstructor / RemoveEnrollment
// ─────────────────────────────────────────────────────────────────────────────

func TestAssignInstructor(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	second := env.seedUser(t, "second@example.com", user.RoleInstructor)
	env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())
	ctx := context.Background()

	enr, err := env.assignInstructor.Handle(ctx, AssignInstructorCommand{
		CourseName:      "Go Fundamentals",
		InstructorEmail: "second@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, second.ID, enr.UserID)

	_, err = env.assignInstructor.Handle(ctx, AssignInstructorCommand{
		CourseName:      "Go Fundamentals",
		InstructorEmail: "second@example.com",
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyAssigned)
}

func TestRemoveEnrollment_LastInstructorStays(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	env.seedUser(t, "second@example.com", user.RoleInstructor)
	created := env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())
	ctx := context.Background()

	// Only instructor: removal is blocked.
	err := env.removeEnrollment.Handle(ctx, RemoveEnrollmentCommand{
		EnrollmentID: created.Enrollment.ID,
	})
	assert.ErrorIs(t, err, shared.ErrInvariantViolation)

	// With a second instructor the first may leave.
	_, err = env.assignInstructor.Handle(ctx, AssignInstructorCommand{
		CourseName:      "Go Fundamentals",
		InstructorEmail: "second@example.com",
	})
	require.NoError(t, err)

	err = env.removeEnrollment.Handle(ctx, RemoveEnrollmentCommand{
		EnrollmentID: created.Enrollment.ID,
	})
	assert.NoError(t, err)
}

func TestRemoveEnrollment_StudentKeepsGradedHomework(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	student := env.seedUser(t, "alice@example.com", user.RoleStudent)
	created := env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())
	ctx := context.Background()

	applied, err := env.applyForCourse.Handle(ctx, ApplyForCourseCommand{
		CourseName: "Go Fundamentals",
		ActorEmail: "alice@example.com",
	})
	require.NoError(t, err)

	// Grade exactly one homework.
	var hwID string
	require.NoError(t, env.gw.View(ctx, func(r *storage.Repos) error {
		all, err := r.Homeworks.ListByUserAndCourse(ctx, student.ID, created.Course.ID)
		if err != nil {
			return err
		}
		hwID = all[0].ID
		return nil
	}))
	_, err = env.setMark.Handle(ctx, SetMarkCommand{HomeworkID: hwID, Mark: 90})
	require.NoError(t, err)

	require.NoError(t, env.removeEnrollment.Handle(ctx, RemoveEnrollmentCommand{
		EnrollmentID: applied.Enrollment.ID,
	}))

	require.NoError(t, env.gw.View(ctx, func(r *storage.Repos) error {
		all, err := r.Homeworks.ListByUserAndCourse(ctx, student.ID, created.Course.ID)
		if err != nil {
			return err
		}
		require.Len(t, all, 1, "graded homework survives, placeholders are gone")
		assert.Equal(t, hwID, all[0].ID)
		return nil
	}))
}

// ─────────────────────────────────────────────────────────────────────────────
// SubmitHomework / SetMark
// ─────────────────────────────────────────────────────────────────────────────

func TestSubmitHomework(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	student := env.seedUser(t, "alice@example.com", user.RoleStudent)
	created := env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())
	ctx := context.Background()

	_, err := env.applyForCourse.Handle(ctx, ApplyForCourseCommand{
		CourseName: "Go Fundamentals",
		ActorEmail: "alice@example.com",
	})
	require.NoError(t, err)

	var hwID string
	require.NoError(t, env.gw.View(ctx, func(r *storage.Repos) error {
		all, err := r.Homeworks.ListByUserAndCourse(ctx, student.ID, created.Course.ID)
		if err != nil {
			return err
		}
		hwID = all[0].ID
		return nil
	}))

	hw, err := env.submitHomework.Handle(ctx, SubmitHomeworkCommand{
		HomeworkID: hwID,
		FileRef:    "s3://submissions/alice/hw1.tar.gz",
	})
	require.NoError(t, err)
	assert.NotNil(t, hw.SubmittedAt)
	assert.Equal(t, "s3://submissions/alice/hw1.tar.gz", hw.FileRef)
	assert.Len(t, env.bus.byType(shared.EventHomeworkSubmitted), 1)
}

func TestSetMark_RecomputesAggregate(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	student := env.seedUser(t, "alice@example.com", user.RoleStudent)
	created := env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())
	ctx := context.Background()

	_, err := env.applyForCourse.Handle(ctx, ApplyForCourseCommand{
		CourseName: "Go Fundamentals",
		ActorEmail: "alice@example.com",
	})
	require.NoError(t, err)

	var hwIDs []string
	require.NoError(t, env.gw.View(ctx, func(r *storage.Repos) error {
		all, err := r.Homeworks.ListByUserAndCourse(ctx, student.ID, created.Course.ID)
		if err != nil {
			return err
		}
		for _, h := range all {
			hwIDs = append(hwIDs, h.ID)
		}
		return nil
	}))
	require.Len(t, hwIDs, 5)

	// Grade four of five: passing is blocked by the ungraded row.
	var last *SetMarkResult
	for _, id := range hwIDs[:4] {
		last, err = env.setMark.Handle(ctx, SetMarkCommand{HomeworkID: id, Mark: 85})
		require.NoError(t, err)
	}
	assert.InDelta(t, 85.0, last.CourseMark.TotalScore, 0.001)
	assert.False(t, last.CourseMark.Passed, "ungraded homework blocks passing")

	// Grade the fifth: all graded, average 85, passes.
	last, err = env.setMark.Handle(ctx, SetMarkCommand{HomeworkID: hwIDs[4], Mark: 85})
	require.NoError(t, err)
	assert.True(t, last.CourseMark.Passed)

	// Regrade one down to 60: average exactly 80 still passes.
	last, err = env.setMark.Handle(ctx, SetMarkCommand{HomeworkID: hwIDs[0], Mark: 60})
	require.NoError(t, err)
	assert.InDelta(t, 80.0, last.CourseMark.TotalScore, 0.001)
	assert.True(t, last.CourseMark.Passed)

	// One point lower and the pair fails again.
	last, err = env.setMark.Handle(ctx, SetMarkCommand{HomeworkID: hwIDs[0], Mark: 55})
	require.NoError(t, err)
	assert.InDelta(t, 79.0, last.CourseMark.TotalScore, 0.001)
	assert.False(t, last.CourseMark.Passed)

	assert.Len(t, env.bus.byType(shared.EventCourseMarkUpserted), 7, "one upsert per mark change")
	assert.Len(t, env.bus.byType(shared.EventMarkAssigned), 7)
}

func TestSetMark_RequiresEnrollment(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	student := env.seedUser(t, "alice@example.com", user.RoleStudent)
	created := env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())
	ctx := context.Background()

	applied, err := env.applyForCourse.Handle(ctx, ApplyForCourseCommand{
		CourseName: "Go Fundamentals",
		ActorEmail: "alice@example.com",
	})
	require.NoError(t, err)

	var hwID string
	require.NoError(t, env.gw.View(ctx, func(r *storage.Repos) error {
		all, err := r.Homeworks.ListByUserAndCourse(ctx, student.ID, created.Course.ID)
		if err != nil {
			return err
		}
		hwID = all[0].ID
		return nil
	}))

	// Keep one graded row so it survives enrollment removal, then
	// remove the student.
	_, err = env.setMark.Handle(ctx, SetMarkCommand{HomeworkID: hwID, Mark: 50})
	require.NoError(t, err)
	require.NoError(t, env.removeEnrollment.Handle(ctx, RemoveEnrollmentCommand{
		EnrollmentID: applied.Enrollment.ID,
	}))

	_, err = env.setMark.Handle(ctx, SetMarkCommand{HomeworkID: hwID, Mark: 60})
	assert.ErrorIs(t, err, shared.ErrNotAssigned)
}

// ─────────────────────────────────────────────────────────────────────────────
// FinishCourse
// ─────────────────────────────────────────────────────────────────────────────

func TestFinishCourse_FinalizesWithoutFullGrading(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	student := env.seedUser(t, "alice@example.com", user.RoleStudent)
	created := env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())
	ctx := context.Background()

	_, err := env.applyForCourse.Handle(ctx, ApplyForCourseCommand{
		CourseName: "Go Fundamentals",
		ActorEmail: "alice@example.com",
	})
	require.NoError(t, err)

	mark, err := env.finishCourse.Handle(ctx, FinishCourseCommand{
		UserID:   student.ID,
		CourseID: created.Course.ID,
	})
	require.NoError(t, err)
	assert.True(t, mark.Passed, "manual finish overrides the grading state")

	// The finalized row is durable.
	require.NoError(t, env.gw.View(ctx, func(r *storage.Repos) error {
		stored, err := r.CourseMarks.GetByUserAndCourse(ctx, student.ID, created.Course.ID)
		if err != nil {
			return err
		}
		assert.True(t, stored.Passed)
		return nil
	}))
}

func TestFinishCourse_RequiresEnrollment(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	student := env.seedUser(t, "alice@example.com", user.RoleStudent)
	created := env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())

	_, err := env.finishCourse.Handle(context.Background(), FinishCourseCommand{
		UserID:   student.ID,
		CourseID: created.Course.ID,
	})
	assert.ErrorIs(t, err, shared.ErrNotAssigned)
}

// ─────────────────────────────────────────────────────────────────────────────
// DeleteCourse
// ─────────────────────────────────────────────────────────────────────────────

func TestDeleteCourse_Cascades(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	student := env.seedUser(t, "alice@example.com", user.RoleStudent)
	created := env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())
	ctx := context.Background()

	_, err := env.applyForCourse.Handle(ctx, ApplyForCourseCommand{
		CourseName: "Go Fundamentals",
		ActorEmail: "alice@example.com",
	})
	require.NoError(t, err)
	_, err = env.finishCourse.Handle(ctx, FinishCourseCommand{
		UserID: student.ID, CourseID: created.Course.ID,
	})
	require.NoError(t, err)

	require.NoError(t, env.deleteCourse.Handle(ctx, DeleteCourseCommand{
		CourseID: created.Course.ID,
	}))

	require.NoError(t, env.gw.View(ctx, func(r *storage.Repos) error {
		_, err := r.Courses.GetByID(ctx, created.Course.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		n, err := r.Lessons.CountByCourse(ctx, created.Course.ID)
		require.NoError(t, err)
		assert.Zero(t, n, "lessons are deleted with the course")

		enrolled, err := r.Enrollments.Exists(ctx, student.ID, created.Course.ID)
		require.NoError(t, err)
		assert.False(t, enrolled)

		hws, err := r.Homeworks.ListByUserAndCourse(ctx, student.ID, created.Course.ID)
		require.NoError(t, err)
		assert.Empty(t, hws)

		_, err = r.CourseMarks.GetByUserAndCourse(ctx, student.ID, created.Course.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		return nil
	}))

	assert.Len(t, env.bus.byType(shared.EventCourseDeleted), 1)

	err = env.deleteCourse.Handle(ctx, DeleteCourseCommand{CourseID: created.Course.ID})
	assert.ErrorIs(t, err, shared.ErrNotFound, "double delete")
}

// ─────────────────────────────────────────────────────────────────────────────
// PromoteCourses
// ─────────────────────────────────────────────────────────────────────────────

func TestPromoteCourses_BestEffortSweep(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	ctx := context.Background()
	today := time.Now()

	// Eligible and valid.
	ok := env.seedCourse(t, "Starts Today", "teacher@example.com", today)

	// Starts today but has no instructor: promotion must be blocked
	// without aborting the sweep.
	orphan, err := course.New("Orphan Today", today)
	require.NoError(t, err)
	require.NoError(t, env.gw.Atomic(ctx, func(r *storage.Repos) error {
		if err := r.Courses.Create(ctx, orphan); err != nil {
			return err
		}
		lessons, err := course.PlaceholderLessons(orphan.ID, env.rules.MinLessonsPerCourse)
		if err != nil {
			return err
		}
		return r.Lessons.CreateBatch(ctx, lessons)
	}))

	// Starts tomorrow: not eligible.
	env.seedCourse(t, "Starts Tomorrow", "teacher@example.com", tomorrow())

	result, err := env.promoteCourses.Handle(ctx, PromoteCoursesCommand{Today: today})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, 1, result.Promoted())
	assert.Equal(t, 1, result.Failed())

	for _, o := range result.Outcomes {
		switch o.CourseID {
		case ok.Course.ID:
			assert.True(t, o.Promoted)
		case orphan.ID:
			assert.False(t, o.Promoted)
			assert.ErrorIs(t, o.Err, shared.ErrInvariantViolation)
		default:
			t.Fatalf("unexpected course in sweep: %s", o.CourseID)
		}
	}

	// A second sweep on the same day finds nothing: the promoted
	// course is started, the orphan... still fails but stays eligible.
	result, err = env.promoteCourses.Handle(ctx, PromoteCoursesCommand{Today: today})
	require.NoError(t, err)
	assert.Len(t, result.Outcomes, 1)
	assert.Equal(t, 0, result.Promoted())
}

func TestPromoteCourses_RetriesBlockedCourseOnLaterDays(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	ctx := context.Background()
	today := time.Now()

	// Due today but without an instructor, so day one blocks it.
	blocked, err := course.New("Blocked Course", today)
	require.NoError(t, err)
	require.NoError(t, env.gw.Atomic(ctx, func(r *storage.Repos) error {
		if err := r.Courses.Create(ctx, blocked); err != nil {
			return err
		}
		lessons, err := course.PlaceholderLessons(blocked.ID, env.rules.MinLessonsPerCourse)
		if err != nil {
			return err
		}
		return r.Lessons.CreateBatch(ctx, lessons)
	}))

	result, err := env.promoteCourses.Handle(ctx, PromoteCoursesCommand{Today: today})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, 1, result.Failed())

	// Fix the course between runs.
	_, err = env.assignInstructor.Handle(ctx, AssignInstructorCommand{
		CourseName:      "Blocked Course",
		InstructorEmail: "teacher@example.com",
	})
	require.NoError(t, err)

	// The course is past its start day now, but the next run still picks
	// it up and promotes it.
	result, err = env.promoteCourses.Handle(ctx, PromoteCoursesCommand{Today: today.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, blocked.ID, result.Outcomes[0].CourseID)
	assert.True(t, result.Outcomes[0].Promoted)

	// Once started it leaves the eligible set for good.
	result, err = env.promoteCourses.Handle(ctx, PromoteCoursesCommand{Today: today.AddDate(0, 0, 2)})
	require.NoError(t, err)
	assert.Empty(t, result.Outcomes)
}

// ─────────────────────────────────────────────────────────────────────────────
// Concurrent invariants
// ─────────────────────────────────────────────────────────────────────────────

func TestApplyForCourse_ConcurrentCallsRespectLimit(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	student := env.seedUser(t, "alice@example.com", user.RoleStudent)
	ctx := context.Background()

	limit := env.rules.MaxEnrollmentsPerStudent
	names := make([]string, limit+3)
	for i := range names {
		names[i] = fmt.Sprintf("Course %02d", i)
		env.seedCourse(t, names[i], "teacher@example.com", tomorrow())
	}

	// Each goroutine applies for a distinct course, so the unique
	// (user, course) key never collides and only the per-student limit
	// can stop them.
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			_, errs[i] = env.applyForCourse.Handle(ctx, ApplyForCourseCommand{
				CourseName: name,
				ActorEmail: "alice@example.com",
			})
		}(i, name)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, shared.ErrLimitExceeded)
		}
	}
	assert.Equal(t, limit, succeeded)

	require.NoError(t, env.gw.View(ctx, func(r *storage.Repos) error {
		held, err := r.Enrollments.CountByUser(ctx, student.ID)
		require.NoError(t, err)
		assert.Equal(t, limit, held)
		return nil
	}))
}

func TestRemoveEnrollment_ConcurrentRemovalsKeepOneInstructor(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "teacher@example.com", user.RoleInstructor)
	ctx := context.Background()

	created := env.seedCourse(t, "Go Fundamentals", "teacher@example.com", tomorrow())
	enrollmentIDs := []string{created.Enrollment.ID}
	for i := 0; i < 2; i++ {
		email := fmt.Sprintf("instructor%d@example.com", i)
		env.seedUser(t, email, user.RoleInstructor)
		enr, err := env.assignInstructor.Handle(ctx, AssignInstructorCommand{
			CourseName:      "Go Fundamentals",
			InstructorEmail: email,
		})
		require.NoError(t, err)
		enrollmentIDs = append(enrollmentIDs, enr.ID)
	}

	// All three instructors try to leave at once. The instructor-minimum
	// check runs in the same transaction as the delete, so exactly one
	// removal must be refused.
	errs := make([]error, len(enrollmentIDs))
	var wg sync.WaitGroup
	for i, id := range enrollmentIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = env.removeEnrollment.Handle(ctx, RemoveEnrollmentCommand{EnrollmentID: id})
		}(i, id)
	}
	wg.Wait()

	blocked := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, shared.ErrInvariantViolation)
			blocked++
		}
	}
	assert.Equal(t, 1, blocked)

	require.NoError(t, env.gw.View(ctx, func(r *storage.Repos) error {
		instructors, err := r.Enrollments.CountByCourseAndRole(ctx, created.Course.ID, user.RoleInstructor)
		require.NoError(t, err)
		assert.Equal(t, 1, instructors)
		return nil
	}))
}
