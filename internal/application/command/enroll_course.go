// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system.
package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/notification"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLL COURSE COMMAND
// The core decision of the enrollment engine. Checks run in a fixed order and
// the first failure wins; no state is touched until every check has passed:
//
//  1. student exists          -> student.ErrStudentNotFound
//  2. student not suspended   -> enrollment.ErrEnrollmentBlocked
//  3. course exists           -> course.ErrCourseNotFound
//  4. seats available         -> course.ErrCourseFull
//  5. prerequisites satisfied -> course.ErrPrerequisiteNotMet
//
// Only then the seat count goes up by exactly one, the course is persisted,
// and the student is notified. Notification runs after persistence and is
// best-effort: a failure is logged, never rolled back, never fails the call.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollCourseCommand contains the data to enroll a student in a course.
type EnrollCourseCommand struct {
	// StudentID is the NIM of the enrolling student.
	StudentID string

	// CourseCode is the code of the course to enroll in.
	CourseCode string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c EnrollCourseCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("enroll_course: student_id is required")
	}
	if c.CourseCode == "" {
		return errors.New("enroll_course: course_code is required")
	}
	return nil
}

// EnrollCourseResult contains the result of a successful enrollment.
type EnrollCourseResult struct {
	// Enrollment is the approved enrollment record.
	Enrollment *enrollment.Enrollment

	// CourseName is the display name of the enrolled course.
	CourseName string

	// SeatsLeft is the remaining capacity after this enrollment.
	SeatsLeft int

	// NotificationSent indicates whether the confirmation email went out.
	NotificationSent bool

	// Events contains domain events generated during enrollment.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// EnrollCourseHandler handles the EnrollCourseCommand.
type EnrollCourseHandler struct {
	directory student.Directory
	catalog   course.Catalog
	notifier  notification.Notifier
	idGen     enrollment.IDGenerator
	auditLog  enrollment.LogRepository
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewEnrollCourseHandler creates a new EnrollCourseHandler.
func NewEnrollCourseHandler(
	directory student.Directory,
	catalog course.Catalog,
	notifier notification.Notifier,
	idGen enrollment.IDGenerator,
	auditLog enrollment.LogRepository,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *EnrollCourseHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &EnrollCourseHandler{
		directory: directory,
		catalog:   catalog,
		notifier:  notifier,
		idGen:     idGen,
		auditLog:  auditLog,
		publisher: publisher,
		logger:    logger.With("handler", "enroll_course"),
	}
}

// Handle executes the enroll course command.
func (h *EnrollCourseHandler) Handle(ctx context.Context, cmd EnrollCourseCommand) (*EnrollCourseResult, error) {
	// Validate command
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("enroll_course: validation failed: %w", err)
	}

	// 1. The student must exist. The catalog is not consulted before this.
	stud, err := h.directory.FindByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("enroll_course: failed to get student: %w", err)
	}

	// 2. A suspended student is rejected regardless of the course state.
	if stud.IsSuspended() {
		return nil, fmt.Errorf("enroll_course: %w", enrollment.ErrEnrollmentBlocked)
	}

	// 3. The course must exist.
	crs, err := h.catalog.FindByCode(ctx, cmd.CourseCode)
	if err != nil {
		return nil, fmt.Errorf("enroll_course: failed to get course: %w", err)
	}

	// 4. Capacity is checked before prerequisites.
	if crs.IsFull() {
		return nil, fmt.Errorf("enroll_course: %w", course.ErrCourseFull)
	}

	// 5. Every prerequisite must be completed.
	ok, err := h.catalog.IsPrerequisiteSatisfied(ctx, cmd.StudentID, string(crs.Code))
	if err != nil {
		return nil, fmt.Errorf("enroll_course: failed to check prerequisites: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("enroll_course: %w", course.ErrPrerequisiteNotMet)
	}

	// All checks passed: build the approved enrollment.
	enr, err := enrollment.NewEnrollment(h.idGen.NextID(), cmd.StudentID, string(crs.Code))
	if err != nil {
		return nil, fmt.Errorf("enroll_course: failed to create enrollment: %w", err)
	}

	// Mutate a working copy, then hand it back to the catalog to persist.
	working := crs.Clone()
	if err := working.TakeSeat(); err != nil {
		return nil, fmt.Errorf("enroll_course: %w", err)
	}
	if err := h.catalog.Update(ctx, working); err != nil {
		return nil, fmt.Errorf("enroll_course: failed to persist course: %w", err)
	}

	result := &EnrollCourseResult{
		Enrollment:       enr,
		CourseName:       working.Name,
		SeatsLeft:        working.SeatsLeft(),
		NotificationSent: true,
		Events:           make([]shared.Event, 0, 1),
	}

	// Notify after persistence. A failure is logged but never fails the
	// enrollment; there is no rollback of the seat count.
	msg := notification.NewEnrollmentConfirmation(working.Name)
	if err := h.notifier.Send(ctx, string(stud.Email), msg.Subject, msg.Body); err != nil {
		result.NotificationSent = false
		h.logger.Warn("enrollment confirmation not delivered",
			"student_id", cmd.StudentID,
			"course_code", string(working.Code),
			"error", err,
		)
	}

	// Audit trail and domain event are best-effort as well.
	h.appendAuditLog(ctx, enrollment.ActionEnrolled, cmd.StudentID, string(working.Code), working.Enrolled)

	event := shared.NewEnrollmentApprovedEvent(enr.ID, cmd.StudentID, string(working.Code), working.Name, working.SeatsLeft())
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)

	// Publish domain events
	for _, e := range result.Events {
		if err := h.publisher.Publish(e); err != nil {
			h.logger.Warn("failed to publish event", "event_type", string(e.EventType()), "error", err)
		}
	}

	return result, nil
}

// appendAuditLog appends one audit trail row without failing the operation.
func (h *EnrollCourseHandler) appendAuditLog(ctx context.Context, action enrollment.Action, studentID, courseCode string, seatsAfter int) {
	entry, err := enrollment.NewLogEntry(action, studentID, courseCode, seatsAfter)
	if err != nil {
		h.logger.Warn("failed to build audit log entry", "action", string(action), "error", err)
		return
	}

	if err := h.auditLog.Append(ctx, entry); err != nil {
		h.logger.Warn("failed to append audit log entry", "action", string(action), "error", err)
	}
}
