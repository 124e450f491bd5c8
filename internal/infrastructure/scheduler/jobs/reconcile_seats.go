package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE SEATS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ReconcileSeatsJob repairs drifted enrolled-counts from the audit log.
//
// The enrollment log is the source of truth: net seats per course are the
// ENROLLED entries minus the DROPPED entries. The stored count on a course
// can drift from that figure after manual corrections or a partial outage.
// This job recomputes the net counts, clamps them into [0, capacity], and
// rewrites any course whose stored count disagrees.
type ReconcileSeatsJob struct {
	// Dependencies
	courseRepo     course.Repository
	logRepo        enrollment.LogRepository
	eventPublisher shared.EventPublisher
	logger         *slog.Logger

	// Configuration
	config ReconcileSeatsConfig

	// State
	lastRunStats atomic.Value // *ReconcileSeatsStats
}

// ReconcileSeatsConfig contains configuration for the reconciliation job.
type ReconcileSeatsConfig struct {
	// DryRun reports drift without writing repairs.
	DryRun bool

	// Concurrency is the number of course repairs performed in parallel.
	// Repairs never touch the same course twice within one run.
	Concurrency int

	// PageSize is the catalog page size when scanning courses.
	PageSize int

	// Timeout is the maximum duration for the job.
	Timeout time.Duration
}

// DefaultReconcileSeatsConfig returns sensible defaults.
func DefaultReconcileSeatsConfig() ReconcileSeatsConfig {
	return ReconcileSeatsConfig{
		DryRun:      false,
		Concurrency: 5,
		PageSize:    200,
		Timeout:     5 * time.Minute,
	}
}

// ReconcileSeatsStats contains statistics from a reconciliation run.
type ReconcileSeatsStats struct {
	StartedAt       time.Time
	CompletedAt     time.Time
	Duration        time.Duration
	CoursesChecked  int
	CoursesDrifted  int
	CoursesRepaired int
	Errors          []error
}

// NewReconcileSeatsJob creates a new seat reconciliation job.
func NewReconcileSeatsJob(
	courseRepo course.Repository,
	logRepo enrollment.LogRepository,
	eventPublisher shared.EventPublisher,
	logger *slog.Logger,
	config ReconcileSeatsConfig,
) *ReconcileSeatsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 5
	}
	if config.PageSize <= 0 {
		config.PageSize = 200
	}

	return &ReconcileSeatsJob{
		courseRepo:     courseRepo,
		logRepo:        logRepo,
		eventPublisher: eventPublisher,
		logger:         logger,
		config:         config,
	}
}

// Name returns the job name.
func (j *ReconcileSeatsJob) Name() string {
	return "reconcile_seats"
}

// Description returns a human-readable description.
func (j *ReconcileSeatsJob) Description() string {
	return "Repairs drifted course seat counts from the enrollment audit log"
}

// Run executes the reconciliation job.
func (j *ReconcileSeatsJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &ReconcileSeatsStats{
		StartedAt: startedAt,
		Errors:    make([]error, 0),
	}

	j.logger.Info("starting reconcile_seats job", "dry_run", j.config.DryRun)

	// Apply timeout
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	// Net counts from the audit log; negatives are already trimmed to zero.
	netCounts, err := j.logRepo.NetCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to compute net counts: %w", err)
	}

	// Scan the catalog page by page and collect drifted courses.
	drifted, err := j.findDriftedCourses(ctx, netCounts, stats)
	if err != nil {
		return fmt.Errorf("failed to scan catalog: %w", err)
	}

	stats.CoursesDrifted = len(drifted)

	if len(drifted) > 0 && !j.config.DryRun {
		j.repairConcurrently(ctx, drifted, stats)
	}

	// Finalize stats
	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("reconcile_seats job completed",
		"duration", stats.Duration.String(),
		"checked", stats.CoursesChecked,
		"drifted", stats.CoursesDrifted,
		"repaired", stats.CoursesRepaired,
		"dry_run", j.config.DryRun,
	)

	if len(stats.Errors) > 0 {
		return fmt.Errorf("reconciliation completed with %d errors", len(stats.Errors))
	}

	return nil
}

// driftedCourse pairs a course with the count the audit log says it should have.
type driftedCourse struct {
	course   *course.Course
	expected int
}

// findDriftedCourses scans the catalog and returns courses whose stored
// count disagrees with the audit log.
func (j *ReconcileSeatsJob) findDriftedCourses(
	ctx context.Context,
	netCounts map[string]int,
	stats *ReconcileSeatsStats,
) ([]driftedCourse, error) {
	var drifted []driftedCourse
	offset := 0

	for {
		select {
		case <-ctx.Done():
			return drifted, ctx.Err()
		default:
		}

		batch, err := j.courseRepo.GetAll(ctx, course.ListOptions{
			Offset: offset,
			Limit:  j.config.PageSize,
		})
		if err != nil {
			return drifted, err
		}
		if len(batch) == 0 {
			break
		}

		for _, c := range batch {
			stats.CoursesChecked++

			expected := netCounts[string(c.Code)]
			if expected > c.Capacity {
				// More net enrollments logged than the course can hold.
				// The stored count must still honor the seat invariant.
				j.logger.Warn("audit log exceeds course capacity",
					"course_code", string(c.Code),
					"net_count", expected,
					"capacity", c.Capacity,
				)
				expected = c.Capacity
			}

			if expected == c.Enrolled {
				continue
			}

			j.logger.Info("seat count drift detected",
				"course_code", string(c.Code),
				"stored", c.Enrolled,
				"expected", expected,
				"dry_run", j.config.DryRun,
			)
			drifted = append(drifted, driftedCourse{course: c, expected: expected})
		}

		if len(batch) < j.config.PageSize {
			break
		}
		offset += j.config.PageSize
	}

	return drifted, nil
}

// repairConcurrently rewrites drifted courses using a worker pool.
func (j *ReconcileSeatsJob) repairConcurrently(
	ctx context.Context,
	drifted []driftedCourse,
	stats *ReconcileSeatsStats,
) {
	var (
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, j.config.Concurrency)
		mu        sync.Mutex
	)

	for _, d := range drifted {
		select {
		case <-ctx.Done():
			return
		default:
		}

		wg.Add(1)
		semaphore <- struct{}{} // Acquire

		go func(d driftedCourse) {
			defer wg.Done()
			defer func() { <-semaphore }() // Release

			err := j.repairCourse(ctx, d)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				stats.Errors = append(stats.Errors, err)
				j.logger.Error("failed to repair seat count",
					"course_code", string(d.course.Code),
					"error", err,
				)
			} else {
				stats.CoursesRepaired++
			}
		}(d)
	}

	wg.Wait()
}

// repairCourse writes the corrected count and announces the repair.
func (j *ReconcileSeatsJob) repairCourse(ctx context.Context, d driftedCourse) error {
	oldEnrolled := d.course.Enrolled

	repaired := d.course.Clone()
	if err := repaired.SetEnrolled(d.expected); err != nil {
		return fmt.Errorf("set enrolled on %s: %w", d.course.Code, err)
	}

	if err := j.courseRepo.Update(ctx, repaired); err != nil {
		return fmt.Errorf("update course %s: %w", d.course.Code, err)
	}

	if j.eventPublisher != nil {
		event := shared.NewCourseSeatsReconciledEvent(string(d.course.Code), oldEnrolled, d.expected)
		if err := j.eventPublisher.Publish(event); err != nil {
			j.logger.Warn("failed to publish reconciliation event",
				"course_code", string(d.course.Code),
				"error", err,
			)
		}
	}

	return nil
}

// LastRunStats returns statistics from the last reconciliation run.
func (j *ReconcileSeatsJob) LastRunStats() *ReconcileSeatsStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*ReconcileSeatsStats)
}
