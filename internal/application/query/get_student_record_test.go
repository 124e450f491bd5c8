package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/student"
)

func seedCompletion(t *testing.T, trans *fakeTranscripts, nim, code, grade string, credits int) {
	t.Helper()
	c, err := student.NewCompletion(student.NIM(nim), code, grade, credits)
	assert.NoError(t, err)
	assert.NoError(t, trans.SaveCompletion(context.Background(), c))
}

func seedActivity(t *testing.T, audit *fakeAuditLog, action enrollment.Action, nim, code string, seats int) {
	t.Helper()
	e, err := enrollment.NewLogEntry(action, nim, code, seats)
	assert.NoError(t, err)
	assert.NoError(t, audit.Append(context.Background(), e))
}

func TestGetStudentRecord_Success(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", 3.25))
	trans := newFakeTranscripts()
	seedCompletion(t, trans, "13520001", "IF1210", "A", 3)
	seedCompletion(t, trans, "13520001", "IF1220", "B", 4)

	audit := &fakeAuditLog{}
	seedActivity(t, audit, enrollment.ActionEnrolled, "13520001", "IF2110", 16)
	seedActivity(t, audit, enrollment.ActionDropped, "13520001", "IF2110", 15)

	handler := NewGetStudentRecordHandler(dir, trans, audit)

	result, err := handler.Handle(context.Background(), GetStudentRecordQuery{StudentID: "13520001"})

	assert.NoError(t, err)
	assert.Equal(t, "13520001", result.Student.NIM)
	assert.Equal(t, "Budi Santoso", result.Student.FullName)
	assert.Equal(t, 3.25, result.Student.IPK)
	assert.True(t, result.Student.CanEnroll)

	assert.Len(t, result.Student.Completions, 2)
	assert.Equal(t, 7, result.Student.TotalCreditsEarned)

	// Newest activity first.
	assert.Len(t, result.Student.RecentActivity, 2)
	assert.Equal(t, "DROPPED", result.Student.RecentActivity[0].Action)
	assert.Equal(t, "ENROLLED", result.Student.RecentActivity[1].Action)
}

func TestGetStudentRecord_SuspendedStudentCannotEnroll(t *testing.T) {
	stud := testStudent("13520001", 3.25)
	stud.Suspend()
	handler := NewGetStudentRecordHandler(newFakeDirectory(stud), newFakeTranscripts(), &fakeAuditLog{})

	result, err := handler.Handle(context.Background(), GetStudentRecordQuery{StudentID: "13520001"})

	assert.NoError(t, err)
	assert.False(t, result.Student.CanEnroll)
	assert.Equal(t, "SUSPENDED", result.Student.Status)
}

func TestGetStudentRecord_StudentNotFound(t *testing.T) {
	handler := NewGetStudentRecordHandler(newFakeDirectory(), newFakeTranscripts(), &fakeAuditLog{})

	result, err := handler.Handle(context.Background(), GetStudentRecordQuery{StudentID: "99999999"})

	assert.Nil(t, result)
	assert.True(t, shared.IsNotFound(err))
}

func TestGetStudentRecord_ActivityFailureDegrades(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", 3.25))
	audit := &fakeAuditLog{getErr: errors.New("pg: connection reset")}
	handler := NewGetStudentRecordHandler(dir, newFakeTranscripts(), audit)

	result, err := handler.Handle(context.Background(), GetStudentRecordQuery{StudentID: "13520001"})

	// The record still comes back, just without the activity section.
	assert.NoError(t, err)
	assert.Empty(t, result.Student.RecentActivity)
}

func TestGetStudentRecord_TranscriptFailureFails(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", 3.25))
	trans := newFakeTranscripts()
	trans.getErr = errors.New("pg: connection reset")
	handler := NewGetStudentRecordHandler(dir, trans, &fakeAuditLog{})

	result, err := handler.Handle(context.Background(), GetStudentRecordQuery{StudentID: "13520001"})

	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestGetStudentRecord_NilAuditLog(t *testing.T) {
	dir := newFakeDirectory(testStudent("13520001", 3.25))
	handler := NewGetStudentRecordHandler(dir, newFakeTranscripts(), nil)

	result, err := handler.Handle(context.Background(), GetStudentRecordQuery{StudentID: "13520001"})

	assert.NoError(t, err)
	assert.Empty(t, result.Student.RecentActivity)
}

func TestGetStudentRecord_ActivityLimitDefaults(t *testing.T) {
	q := GetStudentRecordQuery{StudentID: "13520001"}
	assert.NoError(t, q.Validate())
	assert.Equal(t, 10, q.ActivityLimit)

	q = GetStudentRecordQuery{StudentID: "13520001", ActivityLimit: 500}
	assert.NoError(t, q.Validate())
	assert.Equal(t, 50, q.ActivityLimit)

	q = GetStudentRecordQuery{StudentID: "13520001", ActivityLimit: -1}
	assert.Error(t, q.Validate())
}
