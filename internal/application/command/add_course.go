package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD COURSE COMMAND
// Admin operation: puts a new course offering into the catalog, including its
// prerequisite codes. Prerequisite codes are validated structurally only; a
// code that never gets completions simply never satisfies.
// ══════════════════════════════════════════════════════════════════════════════

// AddCourseCommand contains the data to add a course offering.
type AddCourseCommand struct {
	// Code is the course code, e.g. "IF2110".
	Code string

	// Name is the course display name.
	Name string

	// Credits is the SKS weight (1-6).
	Credits int

	// Capacity is the seat capacity, fixed for the offering.
	Capacity int

	// Enrolled seeds the enrolled count when migrating existing offerings.
	// Zero for a fresh offering.
	Enrolled int

	// Instructor is the lecturer's name.
	Instructor string

	// Prerequisites lists course codes that must be completed first.
	Prerequisites []string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AddCourseCommand) Validate() error {
	if c.Code == "" {
		return errors.New("add_course: code is required")
	}
	if c.Name == "" {
		return errors.New("add_course: name is required")
	}
	if c.Instructor == "" {
		return errors.New("add_course: instructor is required")
	}
	return nil
}

// AddCourseResult contains the result of adding a course.
type AddCourseResult struct {
	// Course is the persisted course offering.
	Course *course.Course

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// AddCourseHandler handles the AddCourseCommand.
type AddCourseHandler struct {
	courseRepo     course.Repository
	eventPublisher shared.EventPublisher
}

// NewAddCourseHandler creates a new AddCourseHandler.
func NewAddCourseHandler(
	courseRepo course.Repository,
	eventPublisher shared.EventPublisher,
) *AddCourseHandler {
	return &AddCourseHandler{
		courseRepo:     courseRepo,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the add course command.
func (h *AddCourseHandler) Handle(ctx context.Context, cmd AddCourseCommand) (*AddCourseResult, error) {
	// Validate command
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_course: validation failed: %w", err)
	}

	// The domain factory owns field validation and code normalization.
	crs, err := course.NewCourse(course.NewCourseParams{
		Code:          course.Code(cmd.Code),
		Name:          cmd.Name,
		Credits:       cmd.Credits,
		Capacity:      cmd.Capacity,
		Enrolled:      cmd.Enrolled,
		Instructor:    cmd.Instructor,
		Prerequisites: cmd.Prerequisites,
	})
	if err != nil {
		return nil, fmt.Errorf("add_course: invalid course: %w", err)
	}

	exists, err := h.courseRepo.Exists(ctx, string(crs.Code))
	if err != nil {
		return nil, fmt.Errorf("add_course: failed to check existence: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("add_course: %w", course.ErrCourseAlreadyExists)
	}

	if err := h.courseRepo.Create(ctx, crs); err != nil {
		return nil, fmt.Errorf("add_course: failed to save course: %w", err)
	}

	result := &AddCourseResult{
		Course: crs,
		Events: make([]shared.Event, 0, 1),
	}

	event := shared.NewCourseAddedEvent(string(crs.Code), crs.Name, crs.Credits, crs.Capacity)
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
