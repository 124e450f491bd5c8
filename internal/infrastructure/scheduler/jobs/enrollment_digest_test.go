package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"
	"github.com/siakad-hub/siakad-enrollment-hub/pkg/timeutil"
)

func TestEnrollmentDigestSendsSummary(t *testing.T) {
	yesterday := timeutil.StartOfDay(time.Now().In(timeutil.WIB).AddDate(0, 0, -1))
	inWindow := yesterday.Add(10 * time.Hour)
	outOfWindow := yesterday.AddDate(0, 0, -3)

	log := &fakeAuditLog{entries: []*enrollment.LogEntry{
		logEntry(enrollment.ActionEnrolled, "13521001", "IF2040", inWindow),
		logEntry(enrollment.ActionEnrolled, "13521002", "IF2040", inWindow),
		logEntry(enrollment.ActionDropped, "13521003", "IF2040", inWindow),
		logEntry(enrollment.ActionEnrolled, "13521004", "MA1101", inWindow),
		logEntry(enrollment.ActionEnrolled, "13521005", "FI1201", outOfWindow),
	}}
	notifier := &fakeNotifier{}

	config := DefaultEnrollmentDigestConfig()
	config.RegistrarEmail = "registrar@kampus.ac.id"

	job := NewEnrollmentDigestJob(log, notifier, discardLogger(), config)
	err := job.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)

	msg := notifier.sent[0]
	assert.Equal(t, "registrar@kampus.ac.id", msg.to)
	assert.Contains(t, msg.subject, "Ringkasan Pendaftaran")
	assert.Contains(t, msg.body, "Pendaftaran baru  : 3")
	assert.Contains(t, msg.body, "Pembatalan        : 1")
	assert.Contains(t, msg.body, "Perubahan bersih  : +2")
	assert.Contains(t, msg.body, "IF2040: 2 daftar, 1 batal")
	assert.Contains(t, msg.body, "MA1101: 1 daftar, 0 batal")
	assert.NotContains(t, msg.body, "FI1201", "entries outside the window are excluded")

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.Equal(t, 3, stats.TotalEnrolled)
	assert.Equal(t, 1, stats.TotalDropped)
	assert.Equal(t, 2, stats.CoursesActive)
	assert.True(t, stats.Sent)
}

func TestEnrollmentDigestDisabled(t *testing.T) {
	notifier := &fakeNotifier{}

	config := DefaultEnrollmentDigestConfig()
	config.Enabled = false

	job := NewEnrollmentDigestJob(&fakeAuditLog{}, notifier, discardLogger(), config)
	err := job.Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, notifier.sent)
}

func TestEnrollmentDigestQuietDayStillMails(t *testing.T) {
	notifier := &fakeNotifier{}

	job := NewEnrollmentDigestJob(&fakeAuditLog{}, notifier, discardLogger(), DefaultEnrollmentDigestConfig())
	err := job.Run(context.Background())

	require.NoError(t, err)
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0].body, "Tidak ada aktivitas pendaftaran")
}

func TestEnrollmentDigestReportsNotifierFailure(t *testing.T) {
	notifier := &fakeNotifier{sendErr: assert.AnError}

	job := NewEnrollmentDigestJob(&fakeAuditLog{}, notifier, discardLogger(), DefaultEnrollmentDigestConfig())
	err := job.Run(context.Background())

	require.Error(t, err)

	stats := job.LastRunStats()
	require.NotNil(t, stats)
	assert.False(t, stats.Sent)
	assert.Len(t, stats.Errors, 1)
}

func TestAggregateByCourseOrdersBusiestFirst(t *testing.T) {
	now := time.Now()
	entries := []*enrollment.LogEntry{
		logEntry(enrollment.ActionEnrolled, "13521001", "MA1101", now),
		logEntry(enrollment.ActionEnrolled, "13521002", "IF2040", now),
		logEntry(enrollment.ActionDropped, "13521003", "IF2040", now),
		logEntry(enrollment.ActionEnrolled, "13521004", "IF2040", now),
		logEntry(enrollment.ActionEnrolled, "13521005", "FI1201", now),
	}

	activity := aggregateByCourse(entries)

	require.Len(t, activity, 3)
	assert.Equal(t, "IF2040", activity[0].CourseCode)
	assert.Equal(t, 2, activity[0].Enrolled)
	assert.Equal(t, 1, activity[0].Dropped)

	// Single-entry courses tie on volume and fall back to code order.
	assert.Equal(t, "FI1201", activity[1].CourseCode)
	assert.Equal(t, "MA1101", activity[2].CourseCode)
}
