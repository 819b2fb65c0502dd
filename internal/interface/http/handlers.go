// Package http implements the REST API for Course Hub.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/edu-hub/course-hub/internal/application/command"
	"github.com/edu-hub/course-hub/internal/application/query"
	"github.com/edu-hub/course-hub/internal/domain/course"
	"github.com/edu-hub/course-hub/internal/domain/enrollment"
	"github.com/edu-hub/course-hub/internal/domain/grading"
	"github.com/edu-hub/course-hub/internal/domain/shared"
	"github.com/edu-hub/course-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "Course Hub API",
		"version":     "v1",
		"description": "REST API for course enrollment, lifecycle, and grading",
		"endpoints": map[string]string{
			"health":      "/health",
			"courses":     "/api/v1/courses",
			"enrollments": "/api/v1/enrollments",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListCourses handles GET /api/v1/courses
func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	if s.deps.ListCourses == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Course listing not configured")
		return
	}

	summaries, err := s.deps.ListCourses.Handle(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	result := make([]courseSummaryDTO, 0, len(summaries))
	for _, sum := range summaries {
		result = append(result, courseSummaryDTO{
			Course:      toCourseDTO(sum.Course),
			LessonCount: sum.LessonCount,
			Students:    sum.Students,
			Instructors: sum.Instructors,
		})
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, &ResponseMeta{TotalCount: len(result)})
}

// handleCreateCourse handles POST /api/v1/courses
func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string `json:"name"`
		StartDate       string `json:"start_date"` // YYYY-MM-DD
		InstructorEmail string `json:"instructor_email"`
		LessonCount     int    `json:"lesson_count"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "start_date must be in YYYY-MM-DD format")
		return
	}

	result, err := s.deps.CreateCourse.Handle(r.Context(), command.CreateCourseCommand{
		Name:            req.Name,
		StartDate:       startDate,
		InstructorEmail: req.InstructorEmail,
		LessonCount:     req.LessonCount,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"course":        toCourseDTO(result.Course),
		"lesson_ids":    result.LessonIDs,
		"enrollment":    toEnrollmentDTO(result.Enrollment),
		"instructor_id": result.InstructorID,
	})
}

// handleUpdateCourseStatus handles PATCH /api/v1/courses/{id}/status
func (s *Server) handleUpdateCourseStatus(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("id")

	var req struct {
		Status string `json:"status"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}

	updated, err := s.deps.UpdateCourseStatus.Handle(r.Context(), command.UpdateCourseStatusCommand{
		CourseID:  courseID,
		NewStatus: course.Status(req.Status),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCourseDTO(updated))
}

// handleDeleteCourse handles DELETE /api/v1/courses/{id}
func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("id")

	err := s.deps.DeleteCourse.Handle(r.Context(), command.DeleteCourseCommand{CourseID: courseID})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleApplyForCourse handles POST /api/v1/enrollments
func (s *Server) handleApplyForCourse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CourseName   string `json:"course_name"`
		ActorEmail   string `json:"actor_email"`
		StudentEmail string `json:"student_email"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.ApplyForCourse.Handle(r.Context(), command.ApplyForCourseCommand{
		CourseName:   req.CourseName,
		ActorEmail:   req.ActorEmail,
		StudentEmail: req.StudentEmail,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"enrollment":        toEnrollmentDTO(result.Enrollment),
		"homeworks_created": result.HomeworksCreated,
	})
}

// handleAssignInstructor handles POST /api/v1/enrollments/instructors
func (s *Server) handleAssignInstructor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CourseName      string `json:"course_name"`
		InstructorEmail string `json:"instructor_email"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}

	enr, err := s.deps.AssignInstructor.Handle(r.Context(), command.AssignInstructorCommand{
		CourseName:      req.CourseName,
		InstructorEmail: req.InstructorEmail,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEnrollmentDTO(enr))
}

// handleRemoveEnrollment handles DELETE /api/v1/enrollments/{id}
func (s *Server) handleRemoveEnrollment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	err := s.deps.RemoveEnrollment.Handle(r.Context(), command.RemoveEnrollmentCommand{EnrollmentID: id})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleIsAssigned handles GET /api/v1/users/{userID}/courses/{courseID}/assigned
func (s *Server) handleIsAssigned(w http.ResponseWriter, r *http.Request) {
	assigned, err := s.deps.IsAssigned.Handle(r.Context(), query.IsAssignedQuery{
		UserID:   r.PathValue("userID"),
		CourseID: r.PathValue("courseID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"assigned": assigned})
}

// ══════════════════════════════════════════════════════════════════════════════
// GRADING HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleSubmitHomework handles POST /api/v1/homeworks/{id}/submission
func (s *Server) handleSubmitHomework(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FileRef string `json:"file_ref"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}

	hw, err := s.deps.SubmitHomework.Handle(r.Context(), command.SubmitHomeworkCommand{
		HomeworkID: r.PathValue("id"),
		FileRef:    req.FileRef,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toHomeworkDTO(hw))
}

// handleSetMark handles PUT /api/v1/homeworks/{id}/mark
func (s *Server) handleSetMark(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mark int `json:"mark"`
	}
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.SetMark.Handle(r.Context(), command.SetMarkCommand{
		HomeworkID: r.PathValue("id"),
		Mark:       req.Mark,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"homework":    toHomeworkDTO(result.Homework),
		"course_mark": toCourseMarkDTO(result.CourseMark),
	})
}

// handleFinishCourse handles POST /api/v1/users/{userID}/courses/{courseID}/finish
func (s *Server) handleFinishCourse(w http.ResponseWriter, r *http.Request) {
	mark, err := s.deps.FinishCourse.Handle(r.Context(), command.FinishCourseCommand{
		UserID:   r.PathValue("userID"),
		CourseID: r.PathValue("courseID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCourseMarkDTO(mark))
}

// handleGetCourseMark handles GET /api/v1/users/{userID}/courses/{courseID}/mark
func (s *Server) handleGetCourseMark(w http.ResponseWriter, r *http.Request) {
	mark, err := s.deps.GetCourseMark.Handle(r.Context(), query.GetCourseMarkQuery{
		UserID:   r.PathValue("userID"),
		CourseID: r.PathValue("courseID"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCourseMarkDTO(mark))
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handlePromoteCourses handles POST /api/v1/admin/promote
//
// Runs the promotion sweep immediately instead of waiting for the
// scheduled run. The sweep is best-effort per course; the response
// reports the outcome of each candidate.
func (s *Server) handlePromoteCourses(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.PromoteCourses.Handle(r.Context(), command.PromoteCoursesCommand{
		Today: time.Now(),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	outcomes := make([]map[string]interface{}, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		entry := map[string]interface{}{
			"course_id": o.CourseID,
			"promoted":  o.Promoted,
		}
		if o.Err != nil {
			entry["error"] = o.Err.Error()
		}
		outcomes = append(outcomes, entry)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"eligible": len(result.Outcomes),
		"promoted": result.Promoted(),
		"outcomes": outcomes,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// DTO MAPPING
// ══════════════════════════════════════════════════════════════════════════════

type courseDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StartDate string    `json:"start_date"`
	Started   bool      `json:"started"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type courseSummaryDTO struct {
	Course      *courseDTO `json:"course"`
	LessonCount int        `json:"lesson_count"`
	Students    int        `json:"students"`
	Instructors int        `json:"instructors"`
}

type enrollmentDTO struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type homeworkDTO struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	LessonID    string     `json:"lesson_id"`
	CourseID    string     `json:"course_id"`
	FileRef     string     `json:"file_ref,omitempty"`
	Mark        *int       `json:"mark"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

type courseMarkDTO struct {
	UserID     string    `json:"user_id"`
	CourseID   string    `json:"course_id"`
	TotalScore float64   `json:"total_score"`
	Passed     bool      `json:"passed"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toCourseDTO(c *course.Course) *courseDTO {
	if c == nil {
		return nil
	}
	return &courseDTO{
		ID:        c.ID,
		Name:      string(c.Name),
		Status:    c.Status.String(),
		StartDate: c.StartDate.Format("2006-01-02"),
		Started:   c.Started,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toEnrollmentDTO(e *enrollment.Enrollment) *enrollmentDTO {
	if e == nil {
		return nil
	}
	return &enrollmentDTO{
		ID:        e.ID,
		UserID:    e.UserID,
		CourseID:  e.CourseID,
		Role:      string(e.Role),
		CreatedAt: e.CreatedAt,
	}
}

func toHomeworkDTO(h *grading.Homework) *homeworkDTO {
	if h == nil {
		return nil
	}
	return &homeworkDTO{
		ID:          h.ID,
		UserID:      h.UserID,
		LessonID:    h.LessonID,
		CourseID:    h.CourseID,
		FileRef:     h.FileRef,
		Mark:        h.Mark,
		SubmittedAt: h.SubmittedAt,
	}
}

func toCourseMarkDTO(m *grading.CourseMark) *courseMarkDTO {
	if m == nil {
		return nil
	}
	return &courseMarkDTO{
		UserID:     m.UserID,
		CourseID:   m.CourseID,
		TotalScore: m.TotalScore,
		Passed:     m.Passed,
		UpdatedAt:  m.UpdatedAt,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST & ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes a JSON request body into dst. On failure it
// writes a 400 response and returns false. The body is already capped
// by the size-limit middleware.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}

// writeDomainError maps a domain error to an HTTP status and writes it.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case shared.IsNotFound(err), errors.Is(err, shared.ErrNotAssigned):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsConflict(err):
		writeJSONError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, shared.ErrRoleMismatch):
		writeJSONError(w, http.StatusForbidden, "role_mismatch", err.Error())
	case errors.Is(err, shared.ErrLimitExceeded):
		writeJSONError(w, http.StatusUnprocessableEntity, "limit_exceeded", err.Error())
	case errors.Is(err, shared.ErrStateTransition):
		writeJSONError(w, http.StatusConflict, "invalid_transition", err.Error())
	case shared.IsInvariantViolation(err):
		writeJSONError(w, http.StatusUnprocessableEntity, "invariant_violation", err.Error())
	case errors.Is(err, shared.ErrUnavailable), errors.Is(err, shared.ErrTimeout):
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", "Storage is temporarily unavailable")
	default:
		s.logger.Error("unhandled error",
			logger.Any("error", err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
	}
}
