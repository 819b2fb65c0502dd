package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-hub/course-hub/internal/application/command"
	"github.com/edu-hub/course-hub/internal/application/query"
	"github.com/edu-hub/course-hub/internal/application/storage"
	"github.com/edu-hub/course-hub/internal/domain/user"
	"github.com/edu-hub/course-hub/internal/infrastructure/persistence/memory"
)

// apiEnvelope mirrors the JSON response wrapper for decoding in tests.
type apiEnvelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	RequestID string          `json:"request_id"`
}

type apiFixture struct {
	gw     storage.Gateway
	server *Server
}

func newAPIFixture(t *testing.T, cfg Config) *apiFixture {
	t.Helper()

	gw := memory.NewGateway()
	rules := command.DefaultRules()

	updateStatus := command.NewUpdateCourseStatusHandler(gw, rules, nil, nil)
	deps := Dependencies{
		CreateCourse:       command.NewCreateCourseHandler(gw, rules, nil, nil),
		UpdateCourseStatus: updateStatus,
		DeleteCourse:       command.NewDeleteCourseHandler(gw, nil, nil),
		AssignInstructor:   command.NewAssignInstructorHandler(gw, nil, nil),
		ApplyForCourse:     command.NewApplyForCourseHandler(gw, rules, nil, nil),
		RemoveEnrollment:   command.NewRemoveEnrollmentHandler(gw, nil, nil),
		SubmitHomework:     command.NewSubmitHomeworkHandler(gw, nil, nil),
		SetMark:            command.NewSetMarkHandler(gw, rules, nil, nil),
		FinishCourse:       command.NewFinishCourseHandler(gw, rules, nil, nil),
		PromoteCourses:     command.NewPromoteCoursesHandler(gw, updateStatus, nil),
		GetCourseMark:      query.NewGetCourseMarkHandler(gw, nil, nil),
		IsAssigned:         query.NewIsAssignedHandler(gw),
		ListCourses:        query.NewListCoursesHandler(gw),
	}

	return &apiFixture{gw: gw, server: NewServer(cfg, deps)}
}

func (f *apiFixture) seedUser(t *testing.T, email string, role user.Role) *user.User {
	t.Helper()
	u, err := user.New(user.Email(email), email, role)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, f.gw.Atomic(ctx, func(r *storage.Repos) error {
		return r.Users.Create(ctx, u)
	}))
	return u
}

// do runs one request through the full middleware chain.
func (f *apiFixture) do(method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

func startDate() string {
	return time.Now().AddDate(0, 0, 7).Format("2006-01-02")
}

func TestAPI_CourseAndEnrollmentFlow(t *testing.T) {
	f := newAPIFixture(t, DefaultConfig())
	f.seedUser(t, "teacher@example.com", user.RoleInstructor)
	student := f.seedUser(t, "alice@example.com", user.RoleStudent)

	// Create a course.
	rec := f.do(http.MethodPost, "/api/v1/courses", `{
		"name": "Go Fundamentals",
		"start_date": "`+startDate()+`",
		"instructor_email": "teacher@example.com",
		"lesson_count": 5
	}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var created struct {
		Course struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"course"`
		LessonIDs []string `json:"lesson_ids"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "WAIT", created.Course.Status)
	assert.Len(t, created.LessonIDs, 5)

	// Duplicate name conflicts.
	rec = f.do(http.MethodPost, "/api/v1/courses", `{
		"name": "Go Fundamentals",
		"start_date": "`+startDate()+`",
		"instructor_email": "teacher@example.com",
		"lesson_count": 5
	}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	env = decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "conflict", env.Error.Code)

	// Enroll the student.
	rec = f.do(http.MethodPost, "/api/v1/enrollments", `{
		"course_name": "Go Fundamentals",
		"actor_email": "alice@example.com"
	}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Assignment query reflects the enrollment.
	rec = f.do(http.MethodGet, "/api/v1/users/"+student.ID+"/courses/"+created.Course.ID+"/assigned", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	var assigned map[string]bool
	require.NoError(t, json.Unmarshal(env.Data, &assigned))
	assert.True(t, assigned["assigned"])

	// Start the course, then list it.
	rec = f.do(http.MethodPatch, "/api/v1/courses/"+created.Course.ID+"/status", `{"status":"STARTED"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, "/api/v1/courses", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	var listed []struct {
		Course struct {
			Status string `json:"status"`
		} `json:"course"`
		Students    int `json:"students"`
		Instructors int `json:"instructors"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "STARTED", listed[0].Course.Status)
	assert.Equal(t, 1, listed[0].Students)
	assert.Equal(t, 1, listed[0].Instructors)
}

func TestAPI_GradingFlow(t *testing.T) {
	f := newAPIFixture(t, DefaultConfig())
	f.seedUser(t, "teacher@example.com", user.RoleInstructor)
	student := f.seedUser(t, "alice@example.com", user.RoleStudent)
	ctx := context.Background()

	rec := f.do(http.MethodPost, "/api/v1/courses", `{
		"name": "Go Fundamentals",
		"start_date": "`+startDate()+`",
		"instructor_email": "teacher@example.com",
		"lesson_count": 5
	}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Course struct {
			ID string `json:"id"`
		} `json:"course"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))

	rec = f.do(http.MethodPost, "/api/v1/enrollments", `{
		"course_name": "Go Fundamentals",
		"actor_email": "alice@example.com"
	}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// No mark recorded yet.
	rec = f.do(http.MethodGet, "/api/v1/users/"+student.ID+"/courses/"+created.Course.ID+"/mark", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var hwIDs []string
	require.NoError(t, f.gw.View(ctx, func(r *storage.Repos) error {
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

	// Submit and grade everything.
	rec = f.do(http.MethodPost, "/api/v1/homeworks/"+hwIDs[0]+"/submission",
		`{"file_ref":"s3://submissions/alice/hw1.tar.gz"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, id := range hwIDs {
		rec = f.do(http.MethodPut, "/api/v1/homeworks/"+id+"/mark", `{"mark":90}`, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = f.do(http.MethodGet, "/api/v1/users/"+student.ID+"/courses/"+created.Course.ID+"/mark", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mark struct {
		TotalScore float64 `json:"total_score"`
		Passed     bool    `json:"passed"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &mark))
	assert.InDelta(t, 90.0, mark.TotalScore, 0.001)
	assert.True(t, mark.Passed)

	// Marks outside 0-100 are rejected.
	rec = f.do(http.MethodPut, "/api/v1/homeworks/"+hwIDs[0]+"/mark", `{"mark":101}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ErrorMapping(t *testing.T) {
	f := newAPIFixture(t, DefaultConfig())
	f.seedUser(t, "teacher@example.com", user.RoleInstructor)
	f.seedUser(t, "alice@example.com", user.RoleStudent)

	// Student cannot be the course instructor.
	rec := f.do(http.MethodPost, "/api/v1/courses", `{
		"name": "Go Fundamentals",
		"start_date": "`+startDate()+`",
		"instructor_email": "alice@example.com",
		"lesson_count": 5
	}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "role_mismatch", env.Error.Code)

	// Unknown course.
	rec = f.do(http.MethodDelete, "/api/v1/courses/no-such-id", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Malformed JSON.
	rec = f.do(http.MethodPost, "/api/v1/courses", `{"name": `, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown fields are rejected.
	rec = f.do(http.MethodPost, "/api/v1/enrollments", `{"course_name":"X","bogus":true}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_HealthEndpoints(t *testing.T) {
	f := newAPIFixture(t, DefaultConfig())

	for _, path := range []string{"/health", "/healthz", "/ready", "/live"} {
		rec := f.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store", path)
	}

	rec := f.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAPI_AdminPromoteRequiresKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKeys = []string{"sekret"}
	f := newAPIFixture(t, cfg)

	rec := f.do(http.MethodPost, "/api/v1/admin/promote", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/admin/promote", "", map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/admin/promote", "", map[string]string{"X-API-Key": "sekret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sweep struct {
		Eligible int `json:"eligible"`
		Promoted int `json:"promoted"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &sweep))
	assert.Zero(t, sweep.Eligible)
}

func TestAPI_RateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 3
	f := newAPIFixture(t, cfg)

	for i := 0; i < 3; i++ {
		rec := f.do(http.MethodGet, "/live", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := f.do(http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
