package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH AVAILABILITY JOB
// ══════════════════════════════════════════════════════════════════════════════

// RefreshAvailabilityJob rebuilds the seat-availability cache from the catalog.
//
// The availability endpoint serves from Redis to survive registration-day
// spikes. Entries expire on their own; this job walks the catalog and
// rewrites every snapshot so a cold cache warms up within one interval.
type RefreshAvailabilityJob struct {
	// Dependencies
	courseRepo course.Repository
	cache      course.AvailabilityCache
	logger     *slog.Logger

	// Configuration
	config RefreshAvailabilityConfig

	// State
	lastRunStats atomic.Value // *RefreshAvailabilityStats
}

// RefreshAvailabilityConfig contains configuration for the refresh job.
type RefreshAvailabilityConfig struct {
	// Concurrency is the number of cache writes performed in parallel.
	Concurrency int

	// PageSize is the catalog page size when scanning courses.
	PageSize int

	// Timeout is the maximum duration for the job.
	Timeout time.Duration
}

// DefaultRefreshAvailabilityConfig returns sensible defaults.
func DefaultRefreshAvailabilityConfig() RefreshAvailabilityConfig {
	return RefreshAvailabilityConfig{
		Concurrency: 10,
		PageSize:    200,
		Timeout:     time.Minute,
	}
}

// RefreshAvailabilityStats contains statistics from a refresh run.
type RefreshAvailabilityStats struct {
	StartedAt        time.Time
	CompletedAt      time.Time
	Duration         time.Duration
	CoursesRefreshed int
	CoursesFailed    int
	Errors           []error
}

// NewRefreshAvailabilityJob creates a new availability refresh job.
func NewRefreshAvailabilityJob(
	courseRepo course.Repository,
	cache course.AvailabilityCache,
	logger *slog.Logger,
	config RefreshAvailabilityConfig,
) *RefreshAvailabilityJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 10
	}
	if config.PageSize <= 0 {
		config.PageSize = 200
	}

	return &RefreshAvailabilityJob{
		courseRepo: courseRepo,
		cache:      cache,
		logger:     logger,
		config:     config,
	}
}

// Name returns the job name.
func (j *RefreshAvailabilityJob) Name() string {
	return "refresh_availability"
}

// Description returns a human-readable description.
func (j *RefreshAvailabilityJob) Description() string {
	return "Rebuilds the Redis seat-availability cache from the course catalog"
}

// Run executes the refresh job.
func (j *RefreshAvailabilityJob) Run(ctx context.Context) error {
	startedAt := time.Now()
	stats := &RefreshAvailabilityStats{
		StartedAt: startedAt,
		Errors:    make([]error, 0),
	}

	j.logger.Info("starting refresh_availability job")

	// Apply timeout
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	var (
		wg        sync.WaitGroup
		semaphore = make(chan struct{}, j.config.Concurrency)
		mu        sync.Mutex
	)

	offset := 0
scan:
	for {
		select {
		case <-ctx.Done():
			break scan
		default:
		}

		batch, err := j.courseRepo.GetAll(ctx, course.ListOptions{
			Offset: offset,
			Limit:  j.config.PageSize,
		})
		if err != nil {
			wg.Wait()
			return fmt.Errorf("failed to scan catalog: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, c := range batch {
			wg.Add(1)
			semaphore <- struct{}{} // Acquire

			go func(c *course.Course) {
				defer wg.Done()
				defer func() { <-semaphore }() // Release

				err := j.cache.Set(ctx, course.NewAvailability(c))

				mu.Lock()
				defer mu.Unlock()

				if err != nil {
					stats.CoursesFailed++
					stats.Errors = append(stats.Errors, err)
					j.logger.Error("failed to refresh availability",
						"course_code", string(c.Code),
						"error", err,
					)
				} else {
					stats.CoursesRefreshed++
				}
			}(c)
		}

		if len(batch) < j.config.PageSize {
			break
		}
		offset += j.config.PageSize
	}

	wg.Wait()

	// Finalize stats
	stats.CompletedAt = time.Now()
	stats.Duration = stats.CompletedAt.Sub(startedAt)
	j.lastRunStats.Store(stats)

	j.logger.Info("refresh_availability job completed",
		"duration", stats.Duration.String(),
		"refreshed", stats.CoursesRefreshed,
		"failed", stats.CoursesFailed,
	)

	if len(stats.Errors) > 0 {
		return fmt.Errorf("refresh completed with %d errors", len(stats.Errors))
	}

	return nil
}

// LastRunStats returns statistics from the last refresh run.
func (j *RefreshAvailabilityJob) LastRunStats() *RefreshAvailabilityStats {
	stats := j.lastRunStats.Load()
	if stats == nil {
		return nil
	}
	return stats.(*RefreshAvailabilityStats)
}
