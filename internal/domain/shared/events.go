// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Student events
	EventStudentRegistered EventType = "student.registered"
	EventStudentSuspended  EventType = "student.suspended"
	EventStudentReinstated EventType = "student.reinstated"

	// Course events
	EventCourseAdded           EventType = "course.added"
	EventCourseSeatsReconciled EventType = "course.seats_reconciled"

	// Enrollment events
	EventEnrollmentApproved EventType = "enrollment.approved"
	EventEnrollmentDropped  EventType = "enrollment.dropped"
	EventCompletionRecorded EventType = "enrollment.completion_recorded"

	// Notification events
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Student Events
// ═══════════════════════════════════════════════════════════════════════════

// StudentRegisteredEvent is emitted when a new student is registered.
type StudentRegisteredEvent struct {
	BaseEvent
	NIM      string `json:"nim"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Program  string `json:"program"`
}

// Payload implements Event interface.
func (e StudentRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"nim":       e.NIM,
		"email":     e.Email,
		"full_name": e.FullName,
		"program":   e.Program,
	}
}

// NewStudentRegisteredEvent creates a new StudentRegisteredEvent.
func NewStudentRegisteredEvent(nim, email, fullName, program string) StudentRegisteredEvent {
	return StudentRegisteredEvent{
		BaseEvent: NewBaseEvent(EventStudentRegistered, nim),
		NIM:       nim,
		Email:     email,
		FullName:  fullName,
		Program:   program,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Course Events
// ═══════════════════════════════════════════════════════════════════════════

// CourseAddedEvent is emitted when a course offering is added to the catalog.
type CourseAddedEvent struct {
	BaseEvent
	CourseCode string `json:"course_code"`
	Name       string `json:"name"`
	Credits    int    `json:"credits"`
	Capacity   int    `json:"capacity"`
}

// Payload implements Event interface.
func (e CourseAddedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_code": e.CourseCode,
		"name":        e.Name,
		"credits":     e.Credits,
		"capacity":    e.Capacity,
	}
}

// NewCourseAddedEvent creates a new CourseAddedEvent.
func NewCourseAddedEvent(courseCode, name string, credits, capacity int) CourseAddedEvent {
	return CourseAddedEvent{
		BaseEvent:  NewBaseEvent(EventCourseAdded, courseCode),
		CourseCode: courseCode,
		Name:       name,
		Credits:    credits,
		Capacity:   capacity,
	}
}

// CourseSeatsReconciledEvent is emitted when the reconciliation job corrects
// a drifted enrolled count.
type CourseSeatsReconciledEvent struct {
	BaseEvent
	CourseCode  string `json:"course_code"`
	OldEnrolled int    `json:"old_enrolled"`
	NewEnrolled int    `json:"new_enrolled"`
}

// Payload implements Event interface.
func (e CourseSeatsReconciledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_code":  e.CourseCode,
		"old_enrolled": e.OldEnrolled,
		"new_enrolled": e.NewEnrolled,
	}
}

// NewCourseSeatsReconciledEvent creates a new CourseSeatsReconciledEvent.
func NewCourseSeatsReconciledEvent(courseCode string, oldEnrolled, newEnrolled int) CourseSeatsReconciledEvent {
	return CourseSeatsReconciledEvent{
		BaseEvent:   NewBaseEvent(EventCourseSeatsReconciled, courseCode),
		CourseCode:  courseCode,
		OldEnrolled: oldEnrolled,
		NewEnrolled: newEnrolled,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// EnrollmentApprovedEvent is emitted when an enrollment request is approved
// and the updated seat count has been persisted.
type EnrollmentApprovedEvent struct {
	BaseEvent
	EnrollmentID string `json:"enrollment_id"`
	StudentID    string `json:"student_id"`
	CourseCode   string `json:"course_code"`
	CourseName   string `json:"course_name"`
	SeatsLeft    int    `json:"seats_left"`
}

// Payload implements Event interface.
func (e EnrollmentApprovedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id": e.EnrollmentID,
		"student_id":    e.StudentID,
		"course_code":   e.CourseCode,
		"course_name":   e.CourseName,
		"seats_left":    e.SeatsLeft,
	}
}

// NewEnrollmentApprovedEvent creates a new EnrollmentApprovedEvent.
func NewEnrollmentApprovedEvent(enrollmentID, studentID, courseCode, courseName string, seatsLeft int) EnrollmentApprovedEvent {
	return EnrollmentApprovedEvent{
		BaseEvent:    NewBaseEvent(EventEnrollmentApproved, enrollmentID),
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		CourseCode:   courseCode,
		CourseName:   courseName,
		SeatsLeft:    seatsLeft,
	}
}

// EnrollmentDroppedEvent is emitted when a student drops a course.
type EnrollmentDroppedEvent struct {
	BaseEvent
	StudentID  string `json:"student_id"`
	CourseCode string `json:"course_code"`
	CourseName string `json:"course_name"`
	SeatsLeft  int    `json:"seats_left"`
}

// Payload implements Event interface.
func (e EnrollmentDroppedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":  e.StudentID,
		"course_code": e.CourseCode,
		"course_name": e.CourseName,
		"seats_left":  e.SeatsLeft,
	}
}

// NewEnrollmentDroppedEvent creates a new EnrollmentDroppedEvent.
func NewEnrollmentDroppedEvent(studentID, courseCode, courseName string, seatsLeft int) EnrollmentDroppedEvent {
	return EnrollmentDroppedEvent{
		BaseEvent:  NewBaseEvent(EventEnrollmentDropped, studentID),
		StudentID:  studentID,
		CourseCode: courseCode,
		CourseName: courseName,
		SeatsLeft:  seatsLeft,
	}
}

// CompletionRecordedEvent is emitted when a passing grade is recorded on a
// student's transcript.
type CompletionRecordedEvent struct {
	BaseEvent
	StudentID  string `json:"student_id"`
	CourseCode string `json:"course_code"`
	Grade      string `json:"grade"`
}

// Payload implements Event interface.
func (e CompletionRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":  e.StudentID,
		"course_code": e.CourseCode,
		"grade":       e.Grade,
	}
}

// NewCompletionRecordedEvent creates a new CompletionRecordedEvent.
func NewCompletionRecordedEvent(studentID, courseCode, grade string) CompletionRecordedEvent {
	return CompletionRecordedEvent{
		BaseEvent:  NewBaseEvent(EventCompletionRecorded, studentID),
		StudentID:  studentID,
		CourseCode: courseCode,
		Grade:      grade,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
