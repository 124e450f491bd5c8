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
// DROP COURSE COMMAND
// Dropping is deliberately lenient: as long as the student and the course
// exist, the operation succeeds. The enrolled count goes down by one with a
// floor of zero; at zero nothing changes and that is not an error. The course
// is persisted and the student is notified either way.
// ══════════════════════════════════════════════════════════════════════════════

// DropCourseCommand contains the data to drop a student from a course.
type DropCourseCommand struct {
	// StudentID is the NIM of the student dropping the course.
	StudentID string

	// CourseCode is the code of the course to drop.
	CourseCode string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c DropCourseCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("drop_course: student_id is required")
	}
	if c.CourseCode == "" {
		return errors.New("drop_course: course_code is required")
	}
	return nil
}

// DropCourseResult contains the result of a drop operation.
type DropCourseResult struct {
	// CourseName is the display name of the dropped course.
	CourseName string

	// SeatsLeft is the remaining capacity after the drop.
	SeatsLeft int

	// SeatReleased indicates whether the enrolled count actually changed.
	SeatReleased bool

	// NotificationSent indicates whether the confirmation email went out.
	NotificationSent bool

	// Events contains domain events generated during the drop.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// DropCourseHandler handles the DropCourseCommand.
type DropCourseHandler struct {
	directory student.Directory
	catalog   course.Catalog
	notifier  notification.Notifier
	auditLog  enrollment.LogRepository
	publisher shared.EventPublisher
	logger    *slog.Logger
}

// NewDropCourseHandler creates a new DropCourseHandler.
func NewDropCourseHandler(
	directory student.Directory,
	catalog course.Catalog,
	notifier notification.Notifier,
	auditLog enrollment.LogRepository,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *DropCourseHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &DropCourseHandler{
		directory: directory,
		catalog:   catalog,
		notifier:  notifier,
		auditLog:  auditLog,
		publisher: publisher,
		logger:    logger.With("handler", "drop_course"),
	}
}

// Handle executes the drop course command.
func (h *DropCourseHandler) Handle(ctx context.Context, cmd DropCourseCommand) (*DropCourseResult, error) {
	// Validate command
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("drop_course: validation failed: %w", err)
	}

	// The student must exist. Suspension does not block a drop.
	stud, err := h.directory.FindByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("drop_course: failed to get student: %w", err)
	}

	// The course must exist.
	crs, err := h.catalog.FindByCode(ctx, cmd.CourseCode)
	if err != nil {
		return nil, fmt.Errorf("drop_course: failed to get course: %w", err)
	}

	// Release on a working copy. At zero the count stays untouched; the
	// course is persisted regardless so UpdatedAt reflects the request.
	working := crs.Clone()
	released := working.ReleaseSeat()
	if err := h.catalog.Update(ctx, working); err != nil {
		return nil, fmt.Errorf("drop_course: failed to persist course: %w", err)
	}

	result := &DropCourseResult{
		CourseName:       working.Name,
		SeatsLeft:        working.SeatsLeft(),
		SeatReleased:     released,
		NotificationSent: true,
		Events:           make([]shared.Event, 0, 1),
	}

	// The confirmation always goes out, also when the count did not change.
	msg := notification.NewDropConfirmation(working.Name)
	if err := h.notifier.Send(ctx, string(stud.Email), msg.Subject, msg.Body); err != nil {
		result.NotificationSent = false
		h.logger.Warn("drop confirmation not delivered",
			"student_id", cmd.StudentID,
			"course_code", string(working.Code),
			"error", err,
		)
	}

	// The audit trail records only real seat changes, so the net of
	// ENROLLED minus DROPPED in the log stays equal to the stored count.
	if released {
		h.appendAuditLog(ctx, cmd.StudentID, string(working.Code), working.Enrolled)
	}

	event := shared.NewEnrollmentDroppedEvent(cmd.StudentID, string(working.Code), working.Name, working.SeatsLeft())
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
func (h *DropCourseHandler) appendAuditLog(ctx context.Context, studentID, courseCode string, seatsAfter int) {
	entry, err := enrollment.NewLogEntry(enrollment.ActionDropped, studentID, courseCode, seatsAfter)
	if err != nil {
		h.logger.Warn("failed to build audit log entry", "action", string(enrollment.ActionDropped), "error", err)
		return
	}

	if err := h.auditLog.Append(ctx, entry); err != nil {
		h.logger.Warn("failed to append audit log entry", "action", string(enrollment.ActionDropped), "error", err)
	}
}
