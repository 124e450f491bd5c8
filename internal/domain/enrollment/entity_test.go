package enrollment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnrollment_Valid(t *testing.T) {
	e, err := NewEnrollment("ENR-123e4567-e89b-12d3-a456-426614174000", "2201234567", "if2110")
	require.NoError(t, err)

	assert.Equal(t, "ENR-123e4567-e89b-12d3-a456-426614174000", e.ID)
	assert.Equal(t, "2201234567", e.StudentID)
	assert.Equal(t, "IF2110", e.CourseCode)
	assert.Equal(t, StatusApproved, e.Status)
	assert.False(t, e.EnrolledAt.IsZero())
}

func TestNewEnrollment_RequiresPrefix(t *testing.T) {
	_, err := NewEnrollment("123e4567-e89b-12d3-a456-426614174000", "2201234567", "IF2110")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = NewEnrollment("ENR-", "2201234567", "IF2110")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestNewEnrollment_Validation(t *testing.T) {
	_, err := NewEnrollment("ENR-abc", "  ", "IF2110")
	assert.ErrorIs(t, err, ErrInvalidStudentID)

	_, err = NewEnrollment("ENR-abc", "2201234567", "")
	assert.ErrorIs(t, err, ErrInvalidCourseCode)
}

func TestNewLogEntry(t *testing.T) {
	entry, err := NewLogEntry(ActionEnrolled, "2201234567", "if2110", 11)
	require.NoError(t, err)

	assert.Equal(t, ActionEnrolled, entry.Action)
	assert.Equal(t, "IF2110", entry.CourseCode)
	assert.Equal(t, 11, entry.SeatsAfter)
	assert.False(t, entry.OccurredAt.IsZero())
}

func TestNewLogEntry_Validation(t *testing.T) {
	_, err := NewLogEntry(Action("PAUSED"), "2201234567", "IF2110", 1)
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = NewLogEntry(ActionDropped, "", "IF2110", 1)
	assert.ErrorIs(t, err, ErrInvalidStudentID)

	_, err = NewLogEntry(ActionDropped, "2201234567", "IF2110", -1)
	assert.ErrorIs(t, err, ErrInvalidSeatsAfter)
}
