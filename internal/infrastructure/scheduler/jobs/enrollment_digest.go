// Package jobs contains implementations of scheduled jobs for SIAKAD Enrollment Hub.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/notification"
	"github.com/siakad-hub/siakad-enrollment-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT DIGEST JOB
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentDigestJob mails the registrar a summary of yesterday's
// enrollment activity.
//
// The digest covers one full academic day in WIB (midnight to midnight) and
// is built entirely from the append-only audit log, so the numbers stay
// consistent even if course records changed since.
type EnrollmentDigestJob struct {
	// Dependencies
	logRepo  enrollment.LogRepository
	notifier notification.Notifier
	logger   *slog.Logger

	// Configuration
	config EnrollmentDigestConfig

	// State
	lastRunStats atomic.Value // *EnrollmentDigestStats
}

// EnrollmentDigestConfig contains configuration for the digest job.
type EnrollmentDigestConfig struct {
	// RegistrarEmail is the recipient of the digest.
	RegistrarEmail string

	// Timezone for computing the academic-day window.
	Timezone *time.Location

	// Enabled switches the digest on and off.
	Enabled bool

	// TopCourses is how many of the busiest courses the digest lists.
	TopCourses int

	// Timeout is the maximum duration for the job.
	Timeout time.Duration
}

// DefaultEnrollmentDigestConfig returns sensible defaults.
func DefaultEnrollmentDigestConfig() EnrollmentDigestConfig {
	return EnrollmentDigestConfig{
		RegistrarEmail: "registrar@siakad.ac.id",
		Timezone:       timeutil.WIB,
		Enabled:        true,
		TopCourses:     5,
		Timeout:        2 * time.Minute,
	}
}

// EnrollmentDigestStats contains statistics from a digest run.
type EnrollmentDigestStats struct {
	StartedAt     time.Time
	CompletedAt   time.Time
	Duration      time.Duration
	WindowFrom    time.Time
	WindowTo      time.Time
	TotalEnrolled int
	TotalDropped  int
	CoursesActive int
	Sent          bool
	Errors        []error
}

// NewEnrollmentDigestJob creates a new enrollment digest job.
func NewEnrollmentDigestJob(
	logRepo enrollment.LogRepository,
	notifier notification.Notifier,
	logger *slog.Logger,
	config EnrollmentDigestConfig,
) *EnrollmentDigestJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timezone == nil {
		config.Timezone = timeutil.WIB
	}
	if config.TopCourses <= 0 {
		config.TopCourses = 5
	}

	return &EnrollmentDigestJob{
		logRepo:  logRepo,
		notifier: notifier,
		logger:   logger,
		config:   config,
	}
}

// Name returns the job name.
func (j *EnrollmentDigestJob) Name() string {
	return "enrollment_digest"
}

// Description returns a human-readable description.
func (j *EnrollmentDigestJob) Description() string {
	return "Mails the registrar a summary of yesterday's enrollment activity"
}

// Run executes the digest job.
func (j *EnrollmentDigestJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &EnrollmentDigestStats{
		StartedAt: startedAt,
		Errors:    make([]error, 0),
	}

	j.logger.Info("starting enrollment_digest job")

	if !j.config.Enabled {
		j.logger.Info("enrollment digest is disabled")
		return nil
	}

	// Apply timeout
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	// Yesterday's full academic day in the campus timezone.
	yesterday := time.Now().In(j.config.Timezone).AddDate(0, 0, -1)
	stats.WindowFrom = timeutil.StartOfDay(yesterday)
	stats.WindowTo = timeutil.EndOfDay(yesterday)

	counts, err := j.logRepo.CountBetween(ctx, stats.WindowFrom, stats.WindowTo)
	if err != nil {
		return fmt.Errorf("failed to count log entries: %w", err)
	}
	stats.TotalEnrolled = counts[enrollment.ActionEnrolled]
	stats.TotalDropped = counts[enrollment.ActionDropped]

	entries, err := j.logRepo.GetBetween(ctx, stats.WindowFrom, stats.WindowTo)
	if err != nil {
		return fmt.Errorf("failed to load log entries: %w", err)
	}

	activity := aggregateByCourse(entries)
	stats.CoursesActive = len(activity)

	body := j.formatDigestBody(yesterday, stats, activity)
	subject := fmt.Sprintf("Ringkasan Pendaftaran %s", timeutil.FormatIndonesianDate(yesterday))

	if err := j.notifier.Send(ctx, j.config.RegistrarEmail, subject, body); err != nil {
		stats.Errors = append(stats.Errors, err)
	} else {
		stats.Sent = true
	}

	// Finalize stats
	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("enrollment_digest job completed",
		"duration", stats.Duration.String(),
		"enrolled", stats.TotalEnrolled,
		"dropped", stats.TotalDropped,
		"courses_active", stats.CoursesActive,
		"sent", stats.Sent,
	)

	if len(stats.Errors) > 0 {
		return fmt.Errorf("digest completed with %d errors", len(stats.Errors))
	}

	return nil
}

// courseActivity accumulates one course's enrollments and drops for the window.
type courseActivity struct {
	CourseCode string
	Enrolled   int
	Dropped    int
}

// aggregateByCourse folds log entries into per-course activity, busiest first.
func aggregateByCourse(entries []*enrollment.LogEntry) []courseActivity {
	byCourse := make(map[string]*courseActivity)

	for _, e := range entries {
		a, ok := byCourse[e.CourseCode]
		if !ok {
			a = &courseActivity{CourseCode: e.CourseCode}
			byCourse[e.CourseCode] = a
		}
		switch e.Action {
		case enrollment.ActionEnrolled:
			a.Enrolled++
		case enrollment.ActionDropped:
			a.Dropped++
		}
	}

	activity := make([]courseActivity, 0, len(byCourse))
	for _, a := range byCourse {
		activity = append(activity, *a)
	}

	sort.Slice(activity, func(i, k int) bool {
		ti, tk := activity[i].Enrolled+activity[i].Dropped, activity[k].Enrolled+activity[k].Dropped
		if ti != tk {
			return ti > tk
		}
		return activity[i].CourseCode < activity[k].CourseCode
	})

	return activity
}

// formatDigestBody renders the plain-text mail body for the registrar.
func (j *EnrollmentDigestJob) formatDigestBody(
	day time.Time,
	stats *EnrollmentDigestStats,
	activity []courseActivity,
) string {
	var sb strings.Builder

	sb.WriteString("RINGKASAN PENDAFTARAN HARIAN\n")
	sb.WriteString(fmt.Sprintf("%s, %s (WIB)\n",
		timeutil.WeekdayNameID(day),
		timeutil.FormatIndonesianDate(day),
	))
	sb.WriteString("-----------------------------\n\n")

	net := stats.TotalEnrolled - stats.TotalDropped
	sb.WriteString(fmt.Sprintf("Pendaftaran baru  : %d\n", stats.TotalEnrolled))
	sb.WriteString(fmt.Sprintf("Pembatalan        : %d\n", stats.TotalDropped))
	sb.WriteString(fmt.Sprintf("Perubahan bersih  : %+d\n", net))
	sb.WriteString(fmt.Sprintf("Mata kuliah aktif : %d\n", stats.CoursesActive))

	if len(activity) == 0 {
		sb.WriteString("\nTidak ada aktivitas pendaftaran pada hari ini.\n")
	} else {
		sb.WriteString("\nMata kuliah teraktif:\n")
		limit := j.config.TopCourses
		if limit > len(activity) {
			limit = len(activity)
		}
		for i := 0; i < limit; i++ {
			a := activity[i]
			sb.WriteString(fmt.Sprintf("  %d. %s: %d daftar, %d batal\n",
				i+1, a.CourseCode, a.Enrolled, a.Dropped))
		}
	}

	sb.WriteString("\n-----------------------------\n")
	sb.WriteString("Surel ini dibuat otomatis oleh SIAKAD Enrollment Hub.\n")

	return sb.String()
}

// LastRunStats returns statistics from the last digest run.
func (j *EnrollmentDigestJob) LastRunStats() *EnrollmentDigestStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*EnrollmentDigestStats)
}
