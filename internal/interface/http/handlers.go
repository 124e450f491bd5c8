package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/application/command"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/application/query"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/student"
	"github.com/siakad-hub/siakad-enrollment-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "SIAKAD Enrollment Hub API",
		"version":     "v1",
		"description": "REST API for SIAKAD Enrollment Hub - Keputusan Pendaftaran Mata Kuliah",
		"endpoints": map[string]string{
			"health":       "GET /health",
			"enroll":       "POST /api/v1/enrollments",
			"drop":         "DELETE /api/v1/students/{studentID}/enrollments/{courseCode}",
			"credit_limit": "GET /api/v1/students/{studentID}/credit-limit?requested=N",
			"student":      "GET /api/v1/students/{studentID}",
			"availability": "GET /api/v1/courses/{courseCode}/availability",
		},
		"documentation": "https://github.com/siakad-hub/siakad-enrollment-hub",
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

	// Default health response
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

// handleNotFound serves JSON for unknown paths.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusNotFound, "not_found", "No such endpoint")
}

// handleMethodNotAllowed serves JSON for known paths hit with the wrong method.
func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed for this endpoint")
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// enrollRequest is the body of POST /api/v1/enrollments.
type enrollRequest struct {
	StudentID  string `json:"student_id"`
	CourseCode string `json:"course_code"`
}

// enrollmentResponse is the wire shape of an approved enrollment.
type enrollmentResponse struct {
	EnrollmentID     string    `json:"enrollment_id"`
	StudentID        string    `json:"student_id"`
	CourseCode       string    `json:"course_code"`
	CourseName       string    `json:"course_name"`
	Status           string    `json:"status"`
	SeatsLeft        int       `json:"seats_left"`
	NotificationSent bool      `json:"notification_sent"`
	EnrolledAt       time.Time `json:"enrolled_at"`
}

// handleEnroll handles POST /api/v1/enrollments
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	if s.deps.EnrollCourseHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Enrollment handler not configured")
		return
	}

	var req enrollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	cmd := command.EnrollCourseCommand{
		StudentID:     strings.TrimSpace(req.StudentID),
		CourseCode:    strings.TrimSpace(req.CourseCode),
		CorrelationID: getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	result, err := s.deps.EnrollCourseHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDecisionError(w, "enroll_course", err)
		return
	}

	writeJSON(w, http.StatusCreated, enrollmentResponse{
		EnrollmentID:     result.Enrollment.ID,
		StudentID:        result.Enrollment.StudentID,
		CourseCode:       result.Enrollment.CourseCode,
		CourseName:       result.CourseName,
		Status:           string(result.Enrollment.Status),
		SeatsLeft:        result.SeatsLeft,
		NotificationSent: result.NotificationSent,
		EnrolledAt:       result.Enrollment.EnrolledAt,
	})
}

// handleDrop handles DELETE /api/v1/students/{studentID}/enrollments/{courseCode}
//
// A successful drop returns 204 with no body. Dropping a course whose
// enrolled count is already zero is still a success.
func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	if s.deps.DropCourseHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Drop handler not configured")
		return
	}

	vars := mux.Vars(r)
	cmd := command.DropCourseCommand{
		StudentID:     vars["studentID"],
		CourseCode:    vars["courseCode"],
		CorrelationID: getRequestID(r.Context()),
	}

	if _, err := s.deps.DropCourseHandler.Handle(r.Context(), cmd); err != nil {
		s.writeDecisionError(w, "drop_course", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleValidateCreditLimit handles GET /api/v1/students/{studentID}/credit-limit?requested=N
func (s *Server) handleValidateCreditLimit(w http.ResponseWriter, r *http.Request) {
	if s.deps.ValidateCreditLimitHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Credit limit handler not configured")
		return
	}

	raw := r.URL.Query().Get("requested")
	if raw == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "requested query parameter is required")
		return
	}
	requested, err := strconv.Atoi(raw)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "requested must be an integer")
		return
	}

	q := query.ValidateCreditLimitQuery{
		StudentID:        mux.Vars(r)["studentID"],
		RequestedCredits: requested,
	}

	result, err := s.deps.ValidateCreditLimitHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDecisionError(w, "validate_credit_limit", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// READ-SIDE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetStudentRecord handles GET /api/v1/students/{studentID}
func (s *Server) handleGetStudentRecord(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetStudentRecordHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Student record handler not configured")
		return
	}

	q := query.GetStudentRecordQuery{
		StudentID:     mux.Vars(r)["studentID"],
		ActivityLimit: getQueryParamInt(r, "activity_limit", 0),
	}

	result, err := s.deps.GetStudentRecordHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDecisionError(w, "get_student_record", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetAvailability handles GET /api/v1/courses/{courseCode}/availability
//
// Snapshots are served from cache by default; ?fresh=true forces a catalog
// read for callers that cannot tolerate the cache TTL.
func (s *Server) handleGetAvailability(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetCourseAvailabilityHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Availability handler not configured")
		return
	}

	q := query.GetCourseAvailabilityQuery{
		CourseCode:  mux.Vars(r)["courseCode"],
		BypassCache: getQueryParamBool(r, "fresh"),
	}

	result, err := s.deps.GetCourseAvailabilityHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDecisionError(w, "get_course_availability", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMINISTRATIVE HANDLERS (registrar)
// ══════════════════════════════════════════════════════════════════════════════

// registerStudentRequest is the body of POST /api/v1/students.
type registerStudentRequest struct {
	NIM        string  `json:"nim"`
	FullName   string  `json:"full_name"`
	Email      string  `json:"email"`
	Program    string  `json:"program"`
	TermNumber int     `json:"term_number"`
	IPK        float64 `json:"ipk"`
	Status     string  `json:"status,omitempty"`
}

// studentResponse is the wire shape of a registered student.
type studentResponse struct {
	NIM        string  `json:"nim"`
	FullName   string  `json:"full_name"`
	Email      string  `json:"email"`
	Program    string  `json:"program"`
	TermNumber int     `json:"term_number"`
	IPK        float64 `json:"ipk"`
	Status     string  `json:"status"`
}

// handleRegisterStudent handles POST /api/v1/students
func (s *Server) handleRegisterStudent(w http.ResponseWriter, r *http.Request) {
	if s.deps.RegisterStudentHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Register handler not configured")
		return
	}

	var req registerStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	cmd := command.RegisterStudentCommand{
		NIM:           strings.TrimSpace(req.NIM),
		FullName:      strings.TrimSpace(req.FullName),
		Email:         strings.TrimSpace(req.Email),
		Program:       strings.TrimSpace(req.Program),
		TermNumber:    req.TermNumber,
		IPK:           req.IPK,
		Status:        req.Status,
		CorrelationID: getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	result, err := s.deps.RegisterStudentHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDecisionError(w, "register_student", err)
		return
	}

	stud := result.Student
	writeJSON(w, http.StatusCreated, studentResponse{
		NIM:        string(stud.NIM),
		FullName:   stud.FullName,
		Email:      string(stud.Email),
		Program:    stud.Program,
		TermNumber: stud.TermNumber,
		IPK:        float64(stud.IPK),
		Status:     string(stud.Status),
	})
}

// addCourseRequest is the body of POST /api/v1/courses.
type addCourseRequest struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Credits       int      `json:"credits"`
	Capacity      int      `json:"capacity"`
	Enrolled      int      `json:"enrolled,omitempty"`
	Instructor    string   `json:"instructor"`
	Prerequisites []string `json:"prerequisites,omitempty"`
}

// courseResponse is the wire shape of a course offering.
type courseResponse struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Credits       int      `json:"credits"`
	Capacity      int      `json:"capacity"`
	Enrolled      int      `json:"enrolled"`
	SeatsLeft     int      `json:"seats_left"`
	Instructor    string   `json:"instructor"`
	Prerequisites []string `json:"prerequisites,omitempty"`
}

// handleAddCourse handles POST /api/v1/courses
func (s *Server) handleAddCourse(w http.ResponseWriter, r *http.Request) {
	if s.deps.AddCourseHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Course handler not configured")
		return
	}

	var req addCourseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	cmd := command.AddCourseCommand{
		Code:          strings.TrimSpace(req.Code),
		Name:          strings.TrimSpace(req.Name),
		Credits:       req.Credits,
		Capacity:      req.Capacity,
		Enrolled:      req.Enrolled,
		Instructor:    strings.TrimSpace(req.Instructor),
		Prerequisites: req.Prerequisites,
		CorrelationID: getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	result, err := s.deps.AddCourseHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDecisionError(w, "add_course", err)
		return
	}

	crs := result.Course
	writeJSON(w, http.StatusCreated, courseResponse{
		Code:          string(crs.Code),
		Name:          crs.Name,
		Credits:       crs.Credits,
		Capacity:      crs.Capacity,
		Enrolled:      crs.Enrolled,
		SeatsLeft:     crs.SeatsLeft(),
		Instructor:    crs.Instructor,
		Prerequisites: crs.Prerequisites,
	})
}

// recordCompletionRequest is the body of POST /api/v1/students/{studentID}/completions.
type recordCompletionRequest struct {
	CourseCode string `json:"course_code"`
	Grade      string `json:"grade"`

	// Credits is optional; zero resolves the weight from the catalog.
	Credits int `json:"credits,omitempty"`
}

// completionResponse is the wire shape of a transcript row.
type completionResponse struct {
	StudentID   string    `json:"student_id"`
	CourseCode  string    `json:"course_code"`
	Grade       string    `json:"grade"`
	Credits     int       `json:"credits"`
	CompletedAt time.Time `json:"completed_at"`
}

// handleRecordCompletion handles POST /api/v1/students/{studentID}/completions
func (s *Server) handleRecordCompletion(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordCompletionHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Completion handler not configured")
		return
	}

	var req recordCompletionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	cmd := command.RecordCompletionCommand{
		StudentID:     mux.Vars(r)["studentID"],
		CourseCode:    strings.TrimSpace(req.CourseCode),
		Grade:         strings.TrimSpace(req.Grade),
		Credits:       req.Credits,
		CorrelationID: getRequestID(r.Context()),
	}
	if err := cmd.Validate(); err != nil {
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())
		return
	}

	result, err := s.deps.RecordCompletionHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDecisionError(w, "record_completion", err)
		return
	}

	comp := result.Completion
	writeJSON(w, http.StatusCreated, completionResponse{
		StudentID:   string(comp.StudentID),
		CourseCode:  comp.CourseCode,
		Grade:       comp.Grade,
		Credits:     comp.Credits,
		CompletedAt: comp.CompletedAt,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDecisionError maps a decision failure onto the API contract. Every
// refusal kind keeps its own machine-readable code so clients can branch
// without parsing messages.
//
//	student not found     -> 404 student_not_found
//	course not found      -> 404 course_not_found
//	course full           -> 409 course_full
//	prerequisite not met  -> 422 prerequisite_not_met
//	enrollment blocked    -> 403 enrollment_blocked
func (s *Server) writeDecisionError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, student.ErrStudentNotFound):
		writeJSONError(w, http.StatusNotFound, "student_not_found", "Student not found")

	case errors.Is(err, course.ErrCourseNotFound):
		writeJSONError(w, http.StatusNotFound, "course_not_found", "Course not found")

	case errors.Is(err, course.ErrCourseFull), shared.IsNoCapacity(err):
		writeJSONError(w, http.StatusConflict, "course_full", "Course has no seats left")

	case errors.Is(err, course.ErrPrerequisiteNotMet), shared.IsPreconditionFailed(err):
		writeJSONError(w, http.StatusUnprocessableEntity, "prerequisite_not_met", "Course prerequisites are not satisfied")

	case errors.Is(err, enrollment.ErrEnrollmentBlocked), shared.IsForbidden(err):
		writeJSONError(w, http.StatusForbidden, "enrollment_blocked", "Student is suspended from enrollment")

	case errors.Is(err, student.ErrStudentAlreadyExists),
		errors.Is(err, course.ErrCourseAlreadyExists),
		errors.Is(err, student.ErrCompletionAlreadyExists),
		shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "already_exists", "Resource already exists")

	case isFieldRefusal(err), shared.IsValidation(err):
		writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Request failed validation", err.Error())

	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", "Resource not found")

	default:
		s.log.Error("request failed", logger.Operation(op), logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// fieldRefusals are the domain factory validation sentinels. The admin
// endpoints surface them as 400 so the registrar sees which field to fix.
var fieldRefusals = []error{
	student.ErrInvalidNIM,
	student.ErrInvalidEmail,
	student.ErrInvalidFullName,
	student.ErrInvalidProgram,
	student.ErrInvalidTermNumber,
	student.ErrInvalidIPK,
	student.ErrInvalidStatus,
	student.ErrInvalidGrade,
	student.ErrInvalidCredits,
	course.ErrInvalidCode,
	course.ErrInvalidName,
	course.ErrInvalidCredits,
	course.ErrInvalidCapacity,
	course.ErrInvalidInstructor,
	course.ErrEnrolledOutOfRange,
	enrollment.ErrInvalidStudentID,
	enrollment.ErrInvalidCourseCode,
}

// isFieldRefusal reports whether a domain factory rejected a field value.
func isFieldRefusal(err error) bool {
	for _, refusal := range fieldRefusals {
		if errors.Is(err, refusal) {
			return true
		}
	}
	return false
}

// decodeJSON decodes a JSON request body.
func decodeJSON(r *http.Request, dest interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dest)
}
