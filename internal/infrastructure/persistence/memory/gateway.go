// Package memory implements the persistence gateway on in-process maps.
// It backs development mode (no DATABASE_URL) and the engine's tests.
//
// Atomicity: a global mutex serializes transactions, and each Atomic
// call works on a deep copy of the state that replaces the live state
// only when the function succeeds. A failed transaction therefore
// rolls back completely, matching the PostgreSQL gateway's contract.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/course"
	"github.com/edu-hub/course-hub/internal/domain/enrollment"
	"github.com/edu-hub/course-hub/internal/domain/grading"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/internal/domain/user"
	"github.com/edu-hub/course-hub/pkg/timeutil"
)

// markKey builds the unique (user, course) aggregate key.
func markKey(userID, courseID string) string {
	return userID + ":" + courseID
}

// state holds all records by ID. Entities are stored by value; repos
// hand out copies so callers never mutate live state directly.
type state struct {
	users       map[string]user.User
	usersByMail map[string]string
	courses     map[string]course.Course
	lessons     map[string]course.Lesson
	enrollments map[string]enrollment.Enrollment
	homeworks   map[string]grading.Homework
	courseMarks map[string]grading.CourseMark
}

func newState() *state {
	return &state{
		users:       make(map[string]user.User),
		usersByMail: make(map[string]string),
		courses:     make(map[string]course.Course),
		lessons:     make(map[string]course.Lesson),
		enrollments: make(map[string]enrollment.Enrollment),
		homeworks:   make(map[string]grading.Homework),
		courseMarks: make(map[string]grading.CourseMark),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.usersByMail {
		c.usersByMail[k] = v
	}
	for k, v := range s.courses {
		c.courses[k] = v
	}
	for k, v := range s.lessons {
		c.lessons[k] = v
	}
	for k, v := range s.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range s.homeworks {
		c.homeworks[k] = v
	}
	for k, v := range s.courseMarks {
		c.courseMarks[k] = v
	}
	return c
}

// Gateway is the in-memory storage.Gateway implementation.
type Gateway struct {
	mu sync.Mutex
	st *state
}

// NewGateway creates an empty in-memory gateway.
func NewGateway() *Gateway {
	return &Gateway{st: newState()}
}

// Atomic runs fn against a working copy and commits it on success.
func (g *Gateway) Atomic(ctx context.Context, fn func(r *storage.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	work := g.st.clone()
	if err := fn(reposFor(work)); err != nil {
		return err
	}
	g.st = work
	return nil
}

// View runs fn against a copy of the current state.
func (g *Gateway) View(ctx context.Context, fn func(r *storage.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	snapshot := g.st.clone()
	g.mu.Unlock()

	return fn(reposFor(snapshot))
}

func reposFor(st *state) *storage.Repos {
	return &storage.Repos{
		Users:       &userRepo{st: st},
		Courses:     &courseRepo{st: st},
		Lessons:     &lessonRepo{st: st},
		Enrollments: &enrollmentRepo{st: st},
		Homeworks:   &homeworkRepo{st: st},
		CourseMarks: &courseMarkRepo{st: st},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type userRepo struct {
	st *state
}

func (r *userRepo) Create(_ context.Context, u *user.User) error {
	if _, taken := r.st.usersByMail[u.Email.String()]; taken {
		return fmt.Errorf("%w: email %s", shared.ErrAlreadyExists, u.Email)
	}
	r.st.users[u.ID] = *u
	r.st.usersByMail[u.Email.String()] = u.ID
	return nil
}

func (r *userRepo) ResolveByID(_ context.Context, id string) (*user.User, error) {
	u, ok := r.st.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, id)
	}
	return &u, nil
}

func (r *userRepo) ResolveByEmail(_ context.Context, email user.Email) (*user.User, error) {
	id, ok := r.st.usersByMail[email.Normalize().String()]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, email)
	}
	u := r.st.users[id]
	return &u, nil
}

func (r *userRepo) Update(_ context.Context, u *user.User) error {
	if _, ok := r.st.users[u.ID]; !ok {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, u.ID)
	}
	r.st.users[u.ID] = *u
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type courseRepo struct {
	st *state
}

func (r *courseRepo) Create(_ context.Context, c *course.Course) error {
	for _, existing := range r.st.courses {
		if existing.Name == c.Name {
			return fmt.Errorf("%w: course %s", shared.ErrAlreadyExists, c.Name)
		}
	}
	r.st.courses[c.ID] = *c
	return nil
}

func (r *courseRepo) GetByID(_ context.Context, id string) (*course.Course, error) {
	c, ok := r.st.courses[id]
	if !ok {
		return nil, fmt.Errorf("%w: course %s", shared.ErrNotFound, id)
	}
	return &c, nil
}

func (r *courseRepo) GetByName(_ context.Context, name course.Name) (*course.Course, error) {
	for _, c := range r.st.courses {
		if c.Name == name {
			cc := c
			return &cc, nil
		}
	}
	return nil, fmt.Errorf("%w: course %s", shared.ErrNotFound, name)
}

func (r *courseRepo) Update(_ context.Context, c *course.Course) error {
	if _, ok := r.st.courses[c.ID]; !ok {
		return fmt.Errorf("%w: course %s", shared.ErrNotFound, c.ID)
	}
	r.st.courses[c.ID] = *c
	return nil
}

func (r *courseRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.st.courses[id]; !ok {
		return fmt.Errorf("%w: course %s", shared.ErrNotFound, id)
	}
	delete(r.st.courses, id)
	return nil
}

func (r *courseRepo) List(_ context.Context) ([]*course.Course, error) {
	out := make([]*course.Course, 0, len(r.st.courses))
	for _, c := range r.st.courses {
		cc := c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *courseRepo) ListDueForStart(_ context.Context, day time.Time) ([]*course.Course, error) {
	out := make([]*course.Course, 0)
	for _, c := range r.st.courses {
		if !c.Started && c.Status == course.StatusWait && !c.StartDate.After(timeutil.EndOfDay(day)) {
			cc := c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type lessonRepo struct {
	st *state
}

func (r *lessonRepo) CreateBatch(_ context.Context, lessons []*course.Lesson) error {
	for _, l := range lessons {
		r.st.lessons[l.ID] = *l
	}
	return nil
}

func (r *lessonRepo) ListByCourse(_ context.Context, courseID string) ([]*course.Lesson, error) {
	out := make([]*course.Lesson, 0)
	for _, l := range r.st.lessons {
		if l.CourseID == courseID {
			ll := l
			out = append(out, &ll)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (r *lessonRepo) CountByCourse(_ context.Context, courseID string) (int, error) {
	n := 0
	for _, l := range r.st.lessons {
		if l.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (r *lessonRepo) DeleteByCourse(_ context.Context, courseID string) error {
	for id, l := range r.st.lessons {
		if l.CourseID == courseID {
			delete(r.st.lessons, id)
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type enrollmentRepo struct {
	st *state
}

func (r *enrollmentRepo) Create(_ context.Context, e *enrollment.Enrollment) error {
	for _, existing := range r.st.enrollments {
		if existing.UserID == e.UserID && existing.CourseID == e.CourseID {
			return fmt.Errorf("%w: user %s course %s", shared.ErrAlreadyAssigned, e.UserID, e.CourseID)
		}
	}
	r.st.enrollments[e.ID] = *e
	return nil
}

func (r *enrollmentRepo) GetByID(_ context.Context, id string) (*enrollment.Enrollment, error) {
	e, ok := r.st.enrollments[id]
	if !ok {
		return nil, fmt.Errorf("%w: enrollment %s", shared.ErrNotFound, id)
	}
	return &e, nil
}

func (r *enrollmentRepo) Exists(_ context.Context, userID, courseID string) (bool, error) {
	for _, e := range r.st.enrollments {
		if e.UserID == userID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (r *enrollmentRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.st.enrollments[id]; !ok {
		return fmt.Errorf("%w: enrollment %s", shared.ErrNotFound, id)
	}
	delete(r.st.enrollments, id)
	return nil
}

func (r *enrollmentRepo) CountByUser(_ context.Context, userID string) (int, error) {
	n := 0
	for _, e := range r.st.enrollments {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *enrollmentRepo) CountByCourseAndRole(_ context.Context, courseID string, role user.Role) (int, error) {
	n := 0
	for _, e := range r.st.enrollments {
		if e.CourseID == courseID && e.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *enrollmentRepo) ListByCourse(_ context.Context, courseID string) ([]*enrollment.Enrollment, error) {
	out := make([]*enrollment.Enrollment, 0)
	for _, e := range r.st.enrollments {
		if e.CourseID == courseID {
			ee := e
			out = append(out, &ee)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *enrollmentRepo) DeleteByCourse(_ context.Context, courseID string) error {
	for id, e := range r.st.enrollments {
		if e.CourseID == courseID {
			delete(r.st.enrollments, id)
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HOMEWORK REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type homeworkRepo struct {
	st *state
}

func (r *homeworkRepo) Create(_ context.Context, h *grading.Homework) error {
	r.st.homeworks[h.ID] = *h
	return nil
}

func (r *homeworkRepo) GetByID(_ context.Context, id string) (*grading.Homework, error) {
	h, ok := r.st.homeworks[id]
	if !ok {
		return nil, fmt.Errorf("%w: homework %s", shared.ErrNotFound, id)
	}
	return &h, nil
}

func (r *homeworkRepo) ExistsForUserAndLesson(_ context.Context, userID, lessonID string) (bool, error) {
	for _, h := range r.st.homeworks {
		if h.UserID == userID && h.LessonID == lessonID {
			return true, nil
		}
	}
	return false, nil
}

func (r *homeworkRepo) Update(_ context.Context, h *grading.Homework) error {
	if _, ok := r.st.homeworks[h.ID]; !ok {
		return fmt.Errorf("%w: homework %s", shared.ErrNotFound, h.ID)
	}
	r.st.homeworks[h.ID] = *h
	return nil
}

func (r *homeworkRepo) ListByUserAndCourse(_ context.Context, userID, courseID string) ([]*grading.Homework, error) {
	out := make([]*grading.Homework, 0)
	for _, h := range r.st.homeworks {
		if h.UserID == userID && h.CourseID == courseID {
			hh := h
			out = append(out, &hh)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *homeworkRepo) DeleteUngraded(_ context.Context, userID, courseID string) error {
	for id, h := range r.st.homeworks {
		if h.UserID == userID && h.CourseID == courseID && !h.IsGraded() {
			delete(r.st.homeworks, id)
		}
	}
	return nil
}

func (r *homeworkRepo) DeleteByCourse(_ context.Context, courseID string) error {
	for id, h := range r.st.homeworks {
		if h.CourseID == courseID {
			delete(r.st.homeworks, id)
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE MARK REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

type courseMarkRepo struct {
	st *state
}

func (r *courseMarkRepo) Upsert(_ context.Context, m *grading.CourseMark) error {
	key := markKey(m.UserID, m.CourseID)
	if existing, ok := r.st.courseMarks[key]; ok {
		// Replace in place, keeping the original row identity.
		m.ID = existing.ID
	}
	r.st.courseMarks[key] = *m
	return nil
}

func (r *courseMarkRepo) GetByUserAndCourse(_ context.Context, userID, courseID string) (*grading.CourseMark, error) {
	m, ok := r.st.courseMarks[markKey(userID, courseID)]
	if !ok {
		return nil, fmt.Errorf("%w: course mark for user %s course %s", shared.ErrNotFound, userID, courseID)
	}
	return &m, nil
}

func (r *courseMarkRepo) DeleteByCourse(_ context.Context, courseID string) error {
	for key, m := range r.st.courseMarks {
		if m.CourseID == courseID {
			delete(r.st.courseMarks, key)
		}
	}
	return nil
}
