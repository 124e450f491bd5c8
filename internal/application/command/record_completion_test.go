package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/student"
)

func TestRecordCompletion_Success(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	cat := newFakeCatalog(testCourse("IF2110", 40, 15))
	trans := newFakeTranscripts()
	pub := &fakePublisher{}
	handler := NewRecordCompletionHandler(dir, cat, trans, pub)

	result, err := handler.Handle(context.Background(), RecordCompletionCommand{
		StudentID:  "13520001",
		CourseCode: "IF2110",
		Grade:      "A",
	})

	assert.NoError(t, err)
	assert.NotNil(t, result.Completion)
	assert.Equal(t, "IF2110", result.Completion.CourseCode)
	assert.Equal(t, "A", result.Completion.Grade)

	// Credits came from the catalog.
	assert.Equal(t, 4, result.Completion.Credits)
	assert.Len(t, trans.saved, 1)

	assert.Len(t, pub.events, 1)
	assert.Equal(t, shared.EventCompletionRecorded, pub.events[0].EventType())
}

func TestRecordCompletion_ExplicitCreditsSkipCatalog(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	cat := newFakeCatalog()
	trans := newFakeTranscripts()
	handler := NewRecordCompletionHandler(dir, cat, trans, &fakePublisher{})

	// Historical course that is no longer offered.
	result, err := handler.Handle(context.Background(), RecordCompletionCommand{
		StudentID:  "13520001",
		CourseCode: "IF1100",
		Grade:      "B",
		Credits:    3,
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, result.Completion.Credits)
	assert.Empty(t, cat.findCalls)
}

func TestRecordCompletion_MissingCreditsNeedCatalogCourse(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	cat := newFakeCatalog()
	handler := NewRecordCompletionHandler(dir, cat, newFakeTranscripts(), &fakePublisher{})

	_, err := handler.Handle(context.Background(), RecordCompletionCommand{
		StudentID:  "13520001",
		CourseCode: "IF1100",
		Grade:      "B",
	})

	assert.ErrorIs(t, err, course.ErrCourseNotFound)
}

func TestRecordCompletion_NonPassingGradeRejected(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	trans := newFakeTranscripts()
	handler := NewRecordCompletionHandler(dir, newFakeCatalog(), trans, &fakePublisher{})

	for _, grade := range []string{"D", "E"} {
		_, err := handler.Handle(context.Background(), RecordCompletionCommand{
			StudentID:  "13520001",
			CourseCode: "IF2110",
			Grade:      grade,
			Credits:    4,
		})

		assert.Error(t, err, "grade %q", grade)
		assert.True(t, shared.IsValidation(err), "grade %q", grade)
	}

	assert.Empty(t, trans.saved)
}

func TestRecordCompletion_UnknownGradeRejected(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	handler := NewRecordCompletionHandler(dir, newFakeCatalog(), newFakeTranscripts(), &fakePublisher{})

	_, err := handler.Handle(context.Background(), RecordCompletionCommand{
		StudentID:  "13520001",
		CourseCode: "IF2110",
		Grade:      "F",
		Credits:    4,
	})

	assert.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestRecordCompletion_Duplicate(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	trans := newFakeTranscripts()
	handler := NewRecordCompletionHandler(dir, newFakeCatalog(), trans, &fakePublisher{})

	cmd := RecordCompletionCommand{
		StudentID:  "13520001",
		CourseCode: "IF2110",
		Grade:      "A",
		Credits:    4,
	}

	_, err := handler.Handle(context.Background(), cmd)
	assert.NoError(t, err)

	_, err = handler.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, student.ErrCompletionAlreadyExists)
	assert.Len(t, trans.saved, 1)
}

func TestRecordCompletion_StudentNotFound(t *testing.T) {
	handler := NewRecordCompletionHandler(newFakeDirectory(), newFakeCatalog(), newFakeTranscripts(), &fakePublisher{})

	_, err := handler.Handle(context.Background(), RecordCompletionCommand{
		StudentID:  "99999999",
		CourseCode: "IF2110",
		Grade:      "A",
		Credits:    4,
	})

	assert.ErrorIs(t, err, student.ErrStudentNotFound)
}

func TestRecordCompletion_FeedsPrerequisiteCheck(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", student.StatusActive))
	trans := newFakeTranscripts()
	handler := NewRecordCompletionHandler(dir, newFakeCatalog(), trans, &fakePublisher{})

	_, err := handler.Handle(context.Background(), RecordCompletionCommand{
		StudentID:  "13520001",
		CourseCode: "if2110",
		Grade:      "AB",
		Credits:    4,
	})
	assert.NoError(t, err)

	// The stored code is normalized, so the prerequisite lookup matches.
	ok, err := trans.HasCompleted(context.Background(), "13520001", "IF2110")
	assert.NoError(t, err)
	assert.True(t, ok)
}
