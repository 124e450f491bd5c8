package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD COMPLETION COMMAND
// Admin operation: records a passed course on a student's transcript. These
// records are what prerequisite checks run against. Only passing grades are
// accepted; a failed course is not a completion.
// ══════════════════════════════════════════════════════════════════════════════

// RecordCompletionCommand contains the data to record a course completion.
type RecordCompletionCommand struct {
	// StudentID is the NIM of the student who passed.
	StudentID string

	// CourseCode is the code of the passed course.
	CourseCode string

	// Grade is the letter grade (A, AB, B, BC, C pass; D and E do not).
	Grade string

	// Credits is the SKS weight. Zero means look it up in the catalog;
	// required for historical courses no longer offered.
	Credits int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordCompletionCommand) Validate() error {
	if c.StudentID == "" {
		return errors.New("record_completion: student_id is required")
	}
	if c.CourseCode == "" {
		return errors.New("record_completion: course_code is required")
	}
	if c.Grade == "" {
		return errors.New("record_completion: grade is required")
	}
	return nil
}

// RecordCompletionResult contains the result of recording a completion.
type RecordCompletionResult struct {
	// Completion is the persisted transcript row.
	Completion *student.Completion

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordCompletionHandler handles the RecordCompletionCommand.
type RecordCompletionHandler struct {
	directory      student.Directory
	catalog        course.Catalog
	transcriptRepo student.TranscriptRepository
	eventPublisher shared.EventPublisher
}

// NewRecordCompletionHandler creates a new RecordCompletionHandler.
func NewRecordCompletionHandler(
	directory student.Directory,
	catalog course.Catalog,
	transcriptRepo student.TranscriptRepository,
	eventPublisher shared.EventPublisher,
) *RecordCompletionHandler {
	return &RecordCompletionHandler{
		directory:      directory,
		catalog:        catalog,
		transcriptRepo: transcriptRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the record completion command.
func (h *RecordCompletionHandler) Handle(ctx context.Context, cmd RecordCompletionCommand) (*RecordCompletionResult, error) {
	// Validate command
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_completion: validation failed: %w", err)
	}

	grade, err := shared.NewGrade(cmd.Grade)
	if err != nil {
		return nil, fmt.Errorf("record_completion: invalid grade: %w", err)
	}
	if !grade.IsPassing() {
		return nil, fmt.Errorf("record_completion: %w: grade %s does not pass", shared.ErrInvalidInput, grade)
	}

	// The student must exist.
	stud, err := h.directory.FindByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, fmt.Errorf("record_completion: failed to get student: %w", err)
	}

	// Credits come from the catalog unless given explicitly. Historical
	// courses dropped from the catalog need the explicit value.
	credits := cmd.Credits
	if credits == 0 {
		crs, err := h.catalog.FindByCode(ctx, cmd.CourseCode)
		if err != nil {
			return nil, fmt.Errorf("record_completion: failed to resolve credits: %w", err)
		}
		credits = crs.Credits
	}

	completed, err := h.transcriptRepo.HasCompleted(ctx, string(stud.NIM), cmd.CourseCode)
	if err != nil {
		return nil, fmt.Errorf("record_completion: failed to check transcript: %w", err)
	}
	if completed {
		return nil, fmt.Errorf("record_completion: %w", student.ErrCompletionAlreadyExists)
	}

	completion, err := student.NewCompletion(stud.NIM, cmd.CourseCode, string(grade), credits)
	if err != nil {
		return nil, fmt.Errorf("record_completion: invalid completion: %w", err)
	}

	if err := h.transcriptRepo.SaveCompletion(ctx, completion); err != nil {
		return nil, fmt.Errorf("record_completion: failed to save completion: %w", err)
	}

	result := &RecordCompletionResult{
		Completion: completion,
		Events:     make([]shared.Event, 0, 1),
	}

	event := shared.NewCompletionRecordedEvent(string(stud.NIM), completion.CourseCode, string(grade))
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)

	// Publish domain events
	for _, e := range result.Events {
		if err := h.eventPublisher.Publish(e); err != nil {
			// Log error but don't fail the operation
			continue
		}
	}

	return result, nil
}
