package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER STUDENT COMMAND
// Admin operation: puts a new student record into the directory so the
// enrollment engine can find it.
// ══════════════════════════════════════════════════════════════════════════════

// RegisterStudentCommand contains the data to register a new student.
type RegisterStudentCommand struct {
	// NIM is the student identification number (8-12 digits).
	NIM string

	// FullName is the student's full name.
	FullName string

	// Email is the address enrollment notifications go to.
	Email string

	// Program is the study program name.
	Program string

	// TermNumber is the current term, starting at 1.
	TermNumber int

	// IPK is the cumulative GPA on the 0.00-4.00 scale.
	IPK float64

	// Status is the academic status. Empty defaults to ACTIVE.
	Status string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RegisterStudentCommand) Validate() error {
	if c.NIM == "" {
		return errors.New("register_student: nim is required")
	}
	if c.FullName == "" {
		return errors.New("register_student: full_name is required")
	}
	if c.Email == "" {
		return errors.New("register_student: email is required")
	}
	if c.Program == "" {
		return errors.New("register_student: program is required")
	}
	return nil
}

// RegisterStudentResult contains the result of a registration.
type RegisterStudentResult struct {
	// Student is the persisted student record.
	Student *student.Student

	// Events contains domain events generated during registration.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RegisterStudentHandler handles the RegisterStudentCommand.
type RegisterStudentHandler struct {
	studentRepo    student.Repository
	eventPublisher shared.EventPublisher
}

// NewRegisterStudentHandler creates a new RegisterStudentHandler.
func NewRegisterStudentHandler(
	studentRepo student.Repository,
	eventPublisher shared.EventPublisher,
) *RegisterStudentHandler {
	return &RegisterStudentHandler{
		studentRepo:    studentRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the register student command.
func (h *RegisterStudentHandler) Handle(ctx context.Context, cmd RegisterStudentCommand) (*RegisterStudentResult, error) {
	// Validate command
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("register_student: validation failed: %w", err)
	}

	// The domain factory owns field validation.
	stud, err := student.NewStudent(student.NewStudentParams{
		NIM:        student.NIM(cmd.NIM),
		FullName:   cmd.FullName,
		Email:      student.Email(cmd.Email),
		Program:    cmd.Program,
		TermNumber: cmd.TermNumber,
		IPK:        student.IPK(cmd.IPK),
		Status:     student.Status(cmd.Status),
	})
	if err != nil {
		return nil, fmt.Errorf("register_student: invalid student: %w", err)
	}

	exists, err := h.studentRepo.Exists(ctx, string(stud.NIM))
	if err != nil {
		return nil, fmt.Errorf("register_student: failed to check existence: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("register_student: %w", student.ErrStudentAlreadyExists)
	}

	if err := h.studentRepo.Create(ctx, stud); err != nil {
		return nil, fmt.Errorf("register_student: failed to save student: %w", err)
	}

	result := &RegisterStudentResult{
		Student: stud,
		Events:  make([]shared.Event, 0, 1),
	}

	event := shared.NewStudentRegisteredEvent(string(stud.NIM), string(stud.Email), stud.FullName, stud.Program)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)

	// Publish domain events
	for _, e := range result.Events {
		if err := h.eventPublisher.Publish(e); err != nil {
			// Log error but don't fail the registration
			continue
		}
	}

	return result, nil
}
