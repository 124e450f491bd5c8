package command

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/student"
)

func newEnrollHandler(dir *fakeDirectory, cat *fakeCatalog, not *fakeNotifier, log *fakeAuditLog, pub *fakePublisher) *EnrollCourseHandler {
	return NewEnrollCourseHandler(dir, cat, not, &fakeIDGen{}, log, pub, discardLogger())
}

func TestEnrollCourse_Success(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	cat := newFakeCatalog(testCourse("IF2110", 40, 15))
	not := &fakeNotifier{}
	audit := &fakeAuditLog{}
	pub := &fakePublisher{}
	handler := newEnrollHandler(dir, cat, not, audit, pub)

	result, err := handler.Handle(context.Background(), EnrollCourseCommand{
		StudentID:  "13520001",
		CourseCode: "IF2110",
	})

	assert.NoError(t, err)
	assert.NotNil(t, result.Enrollment)
	assert.True(t, strings.HasPrefix(result.Enrollment.ID, enrollment.IDPrefix))
	assert.Equal(t, "13520001", result.Enrollment.StudentID)
	assert.Equal(t, "IF2110", result.Enrollment.CourseCode)
	assert.Equal(t, enrollment.StatusApproved, result.Enrollment.Status)
	assert.False(t, result.Enrollment.EnrolledAt.IsZero())

	// Seat count went up by exactly one and was persisted.
	assert.Len(t, cat.updateCalls, 1)
	assert.Equal(t, 16, cat.stored("IF2110").Enrolled)
	assert.Equal(t, 24, result.SeatsLeft)

	// Exactly one notification with the exact subject and body.
	assert.Len(t, not.sent, 1)
	assert.Equal(t, "budi@kampus.ac.id", not.sent[0].to)
	assert.Equal(t, "Enrollment Confirmation", not.sent[0].subject)
	assert.Equal(t, "You have been enrolled in: Algoritma dan Struktur Data", not.sent[0].body)
	assert.True(t, result.NotificationSent)

	// Audit trail and event.
	assert.Len(t, audit.entries, 1)
	assert.Equal(t, enrollment.ActionEnrolled, audit.entries[0].Action)
	assert.Equal(t, 16, audit.entries[0].SeatsAfter)
	assert.Len(t, pub.events, 1)
	assert.Equal(t, shared.EventEnrollmentApproved, pub.events[0].EventType())
}

func TestEnrollCourse_StudentNotFound(t *testing.T) {
	dir := newFakeDirectory()
	cat := newFakeCatalog(testCourse("IF2110", 40, 15))
	not := &fakeNotifier{}
	handler := newEnrollHandler(dir, cat, not, &fakeAuditLog{}, &fakePublisher{})

	result, err := handler.Handle(context.Background(), EnrollCourseCommand{
		StudentID:  "99999999",
		CourseCode: "IF2110",
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, student.ErrStudentNotFound)

	// The catalog was never consulted and nothing was sent or persisted.
	assert.Empty(t, cat.findCalls)
	assert.Empty(t, cat.updateCalls)
	assert.Empty(t, not.sent)
}

func TestEnrollCourse_SuspendedStudentBlocked(t *testing.T) {
	// The status check ignores case.
	for _, status := range []student.Status{"SUSPENDED", "suspended", "SusPended"} {
		dir := newFakeDirectory(testStudent("13520001", status))
		cat := newFakeCatalog(testCourse("IF2110", 40, 15))
		not := &fakeNotifier{}
		handler := newEnrollHandler(dir, cat, not, &fakeAuditLog{}, &fakePublisher{})

		result, err := handler.Handle(context.Background(), EnrollCourseCommand{
			StudentID:  "13520001",
			CourseCode: "IF2110",
		})

		assert.Nil(t, result, "status %q", status)
		assert.ErrorIs(t, err, enrollment.ErrEnrollmentBlocked, "status %q", status)
		assert.Empty(t, cat.findCalls, "status %q", status)
		assert.Empty(t, not.sent, "status %q", status)
	}
}

func TestEnrollCourse_NonSuspendedStatusesMayEnroll(t *testing.T) {
	// Any status other than SUSPENDED qualifies, including unknown ones.
	for _, status := range []student.Status{student.StatusActive, student.StatusLeave, "PROBATION"} {
		dir := newFakeDirectory(testStudent("13520001", status))
		cat := newFakeCatalog(testCourse("IF2110", 40, 15))
		handler := newEnrollHandler(dir, cat, &fakeNotifier{}, &fakeAuditLog{}, &fakePublisher{})

		result, err := handler.Handle(context.Background(), EnrollCourseCommand{
			StudentID:  "13520001",
			CourseCode: "IF2110",
		})

		assert.NoError(t, err, "status %q", status)
		assert.NotNil(t, result, "status %q", status)
	}
}

func TestEnrollCourse_CourseNotFound(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	cat := newFakeCatalog()
	not := &fakeNotifier{}
	handler := newEnrollHandler(dir, cat, not, &fakeAuditLog{}, &fakePublisher{})

	result, err := handler.Handle(context.Background(), EnrollCourseCommand{
		StudentID:  "13520001",
		CourseCode: "IF9999",
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, course.ErrCourseNotFound)
	assert.Empty(t, cat.updateCalls)
	assert.Empty(t, not.sent)
}

func TestEnrollCourse_CourseFull(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	cat := newFakeCatalog(testCourse("IF2110", 30, 30))
	not := &fakeNotifier{}
	handler := newEnrollHandler(dir, cat, not, &fakeAuditLog{}, &fakePublisher{})

	result, err := handler.Handle(context.Background(), EnrollCourseCommand{
		StudentID:  "13520001",
		CourseCode: "IF2110",
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, course.ErrCourseFull)

	// Capacity is checked before prerequisites; the count never moved.
	assert.Empty(t, cat.prereqCalls)
	assert.Empty(t, cat.updateCalls)
	assert.Equal(t, 30, cat.stored("IF2110").Enrolled)
	assert.Empty(t, not.sent)
}

func TestEnrollCourse_ZeroCapacityIsAlwaysFull(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	cat := newFakeCatalog(testCourse("IF2110", 0, 0))
	handler := newEnrollHandler(dir, cat, &fakeNotifier{}, &fakeAuditLog{}, &fakePublisher{})

	_, err := handler.Handle(context.Background(), EnrollCourseCommand{
		StudentID:  "13520001",
		CourseCode: "IF2110",
	})

	assert.ErrorIs(t, err, course.ErrCourseFull)
}

func TestEnrollCourse_PrerequisiteNotMet(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	cat := newFakeCatalog(testCourse("IF3110", 40, 15, "IF2110"))
	cat.prereqSatisfied = false
	not := &fakeNotifier{}
	handler := newEnrollHandler(dir, cat, not, &fakeAuditLog{}, &fakePublisher{})

	result, err := handler.Handle(context.Background(), EnrollCourseCommand{
		StudentID:  "13520001",
		CourseCode: "IF3110",
	})

	assert.Nil(t, result)
	assert.ErrorIs(t, err, course.ErrPrerequisiteNotMet)
	assert.Len(t, cat.prereqCalls, 1)
	assert.Empty(t, cat.updateCalls)
	assert.Equal(t, 15, cat.stored("IF3110").Enrolled)
	assert.Empty(t, not.sent)
}

func TestEnrollCourse_NotifierFailureDoesNotFailEnrollment(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	cat := newFakeCatalog(testCourse("IF2110", 40, 15))
	not := &fakeNotifier{sendErr: errors.New("smtp: connection refused")}
	audit := &fakeAuditLog{}
	pub := &fakePublisher{}
	handler := newEnrollHandler(dir, cat, not, audit, pub)

	result, err := handler.Handle(context.Background(), EnrollCourseCommand{
		StudentID:  "13520001",
		CourseCode: "IF2110",
	})

	// The enrollment stands; only the flag records the delivery failure.
	assert.NoError(t, err)
	assert.NotNil(t, result.Enrollment)
	assert.False(t, result.NotificationSent)
	assert.Equal(t, 16, cat.stored("IF2110").Enrolled)
	assert.Len(t, audit.entries, 1)
	assert.Len(t, pub.events, 1)
}

func TestEnrollCourse_PersistFailureFailsBeforeNotify(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	cat := newFakeCatalog(testCourse("IF2110", 40, 15))
	cat.updateErr = errors.New("pg: connection reset")
	not := &fakeNotifier{}
	handler := newEnrollHandler(dir, cat, not, &fakeAuditLog{}, &fakePublisher{})

	result, err := handler.Handle(context.Background(), EnrollCourseCommand{
		StudentID:  "13520001",
		CourseCode: "IF2110",
	})

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Empty(t, not.sent)
	assert.Equal(t, 15, cat.stored("IF2110").Enrolled)
}

func TestEnrollCourse_Validation(t *testing.T) {
	dir := newFakeDirectory()
	handler := newEnrollHandler(dir, newFakeCatalog(), &fakeNotifier{}, &fakeAuditLog{}, &fakePublisher{})

	_, err := handler.Handle(context.Background(), EnrollCourseCommand{CourseCode: "IF2110"})
	assert.Error(t, err)

	_, err = handler.Handle(context.Background(), EnrollCourseCommand{StudentID: "13520001"})
	assert.Error(t, err)

	assert.Empty(t, dir.findCalls)
}

func TestEnrollCourse_SeatCountNeverExceedsCapacity(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	cat := newFakeCatalog(testCourse("IF2110", 2, 0))
	handler := newEnrollHandler(dir, cat, &fakeNotifier{}, &fakeAuditLog{}, &fakePublisher{})

	cmd := EnrollCourseCommand{StudentID: "13520001", CourseCode: "IF2110"}

	_, err := handler.Handle(context.Background(), cmd)
	assert.NoError(t, err)
	_, err = handler.Handle(context.Background(), cmd)
	assert.NoError(t, err)

	// The third attempt hits the capacity wall.
	_, err = handler.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, course.ErrCourseFull)
	assert.Equal(t, 2, cat.stored("IF2110").Enrolled)
}
