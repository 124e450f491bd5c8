// Package scheduler implements background job scheduling for SIAKAD Enrollment Hub.
// It provides cron-like scheduling for periodic tasks such as seat reconciliation,
// availability cache refresh, and the registrar's enrollment digest.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of periodic work.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job.
	// The context is cancelled when the scheduler is stopping.
	Run(ctx context.Context) error

	// Description returns a human-readable description of the job.
	Description() string
}

// Schedule decides when a job runs.
type Schedule interface {
	// Next returns the first run time after t.
	Next(t time.Time) time.Time

	// String returns a human-readable representation of the schedule.
	String() string
}

// JobResult records one finished execution.
type JobResult struct {
	JobName   string
	StartedAt time.Time
	Duration  time.Duration
	Err       error

	// Manual marks executions triggered through RunNow.
	Manual bool
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler runs registered jobs on their schedules. The loop sleeps until
// the soonest due time instead of polling, and is woken early when the job
// set changes.
type Scheduler struct {
	logger     *slog.Logger
	timezone   *time.Location
	maxHistory int
	metrics    *SchedulerMetrics

	mu        sync.Mutex
	entries   map[string]*entry
	history   []JobResult
	running   bool
	startedAt time.Time

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// entry is one registered job with its live scheduling state.
type entry struct {
	job      Job
	schedule Schedule
	enabled  bool

	next     time.Time
	lastRun  time.Time
	runs     int64
	failures int64
	last     *JobResult
}

// SchedulerConfig contains configuration for the Scheduler.
type SchedulerConfig struct {
	// Logger for structured logging.
	Logger *slog.Logger

	// Timezone for schedule calculations (default: WIB, the campus timezone).
	Timezone *time.Location

	// MaxHistorySize is the maximum number of job results to keep in history.
	MaxHistorySize int

	// EnableMetrics enables metrics collection.
	EnableMetrics bool
}

// DefaultSchedulerConfig returns sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Logger:         slog.Default(),
		Timezone:       timeutil.WIB,
		MaxHistorySize: 1000,
		EnableMetrics:  true,
	}
}

// NewScheduler creates a new Scheduler with the given configuration.
func NewScheduler(config SchedulerConfig) *Scheduler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timezone == nil {
		config.Timezone = timeutil.WIB
	}
	if config.MaxHistorySize <= 0 {
		config.MaxHistorySize = 1000
	}

	s := &Scheduler{
		logger:     config.Logger,
		timezone:   config.Timezone,
		maxHistory: config.MaxHistorySize,
		entries:    make(map[string]*entry),
		wake:       make(chan struct{}, 1),
	}

	if config.EnableMetrics {
		s.metrics = newSchedulerMetrics()
	}

	return s
}

func (s *Scheduler) now() time.Time {
	return time.Now().In(s.timezone)
}

// ══════════════════════════════════════════════════════════════════════════════
// JOB REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// Register adds a job to the scheduler with the given schedule.
// Registering while the scheduler runs is safe; the loop re-plans.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	if job == nil {
		return ErrNilJob
	}
	if schedule == nil {
		return ErrNilSchedule
	}

	name := job.Name()

	s.mu.Lock()
	if _, exists := s.entries[name]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	e := &entry{
		job:      job,
		schedule: schedule,
		enabled:  true,
		next:     schedule.Next(s.now()),
	}
	s.entries[name] = e
	s.mu.Unlock()

	s.logger.Info("job registered",
		"job", name,
		"description", job.Description(),
		"next_run", e.next.Format(time.RFC3339),
	)

	s.poke()
	return nil
}

// Unregister removes a job from the scheduler.
func (s *Scheduler) Unregister(jobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[jobName]; !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	delete(s.entries, jobName)
	s.logger.Info("job unregistered", "job", jobName)
	return nil
}

// EnableJob resumes a disabled job and recomputes its next run.
func (s *Scheduler) EnableJob(jobName string) error {
	s.mu.Lock()
	e, exists := s.entries[jobName]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}
	e.enabled = true
	e.next = e.schedule.Next(s.now())
	next := e.next
	s.mu.Unlock()

	s.logger.Info("job enabled", "job", jobName, "next_run", next)
	s.poke()
	return nil
}

// DisableJob pauses a job without unregistering it.
func (s *Scheduler) DisableJob(jobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[jobName]
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	e.enabled = false
	s.logger.Info("job disabled", "job", jobName)
	return nil
}

// poke wakes the loop so it re-plans after the job set changed.
func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.startedAt = time.Now()
	jobCount := len(s.entries)
	s.mu.Unlock()

	s.logger.Info("scheduler started", "jobs_count", jobCount)

	s.wg.Add(1)
	go s.loop()

	return nil
}

// Stop cancels running jobs' contexts and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.logger.Info("scheduler stopped",
		"uptime", time.Since(s.startedAt).String(),
	)
	return nil
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER LOOP
// ══════════════════════════════════════════════════════════════════════════════

// idleWait bounds the sleep when nothing is scheduled, so a woken loop
// never oversleeps a schedule change it somehow missed.
const idleWait = time.Hour

func (s *Scheduler) loop() {
	defer s.wg.Done()

	for {
		wait := idleWait
		if next, ok := s.soonest(); ok {
			wait = time.Until(next)
			if wait < 0 {
				wait = 0
			}
		}

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
			s.fireDue()
		}
	}
}

// soonest returns the earliest pending run time across enabled entries.
func (s *Scheduler) soonest() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var soonest time.Time
	found := false
	for _, e := range s.entries {
		if !e.enabled || e.next.IsZero() {
			continue
		}
		if !found || e.next.Before(soonest) {
			soonest = e.next
			found = true
		}
	}
	return soonest, found
}

// fireDue launches every entry whose time has come and advances its schedule.
func (s *Scheduler) fireDue() {
	now := s.now()

	s.mu.Lock()
	var due []*entry
	for _, e := range s.entries {
		if e.enabled && !e.next.IsZero() && !now.Before(e.next) {
			e.lastRun = now
			e.next = e.schedule.Next(now)
			due = append(due, e)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		s.wg.Add(1)
		go func(e *entry) {
			defer s.wg.Done()
			s.execute(s.ctx, e, false)
		}(e)
	}
}

// execute runs one job and records its result.
func (s *Scheduler) execute(ctx context.Context, e *entry, manual bool) JobResult {
	name := e.job.Name()
	started := s.now()

	s.logger.Info("job started", "job", name, "manual", manual)

	err := e.job.Run(ctx)
	result := JobResult{
		JobName:   name,
		StartedAt: started,
		Duration:  time.Since(started),
		Err:       err,
		Manual:    manual,
	}

	s.record(e, result)

	if err != nil {
		s.logger.Error("job failed",
			"job", name,
			"duration", result.Duration.String(),
			"error", err,
		)
	} else {
		s.logger.Info("job completed",
			"job", name,
			"duration", result.Duration.String(),
		)
	}

	return result
}

// record updates entry counters, history and metrics for one result.
func (s *Scheduler) record(e *entry, result JobResult) {
	s.mu.Lock()
	e.runs++
	if result.Err != nil {
		e.failures++
	}
	e.last = &result

	s.history = append(s.history, result)
	if overflow := len(s.history) - s.maxHistory; overflow > 0 {
		s.history = s.history[overflow:]
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.recordRun(result.JobName, result.Duration, result.Err == nil)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MANUAL EXECUTION
// ══════════════════════════════════════════════════════════════════════════════

// RunNow executes a job immediately, ignoring its schedule. The next
// scheduled run is unaffected.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (*JobResult, error) {
	s.mu.Lock()
	e, exists := s.entries[jobName]
	s.mu.Unlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}

	result := s.execute(ctx, e, true)
	return &result, result.Err
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS & INFO
// ══════════════════════════════════════════════════════════════════════════════

// JobInfo describes a registered job and its run counters.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	Enabled     bool
	LastRun     time.Time
	NextRun     time.Time
	Runs        int64
	Failures    int64
	LastResult  *JobResult
}

// ListJobs returns every registered job, sorted by name.
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.entries))
	for name, e := range s.entries {
		infos = append(infos, JobInfo{
			Name:        name,
			Description: e.job.Description(),
			Schedule:    e.schedule.String(),
			Enabled:     e.enabled,
			LastRun:     e.lastRun,
			NextRun:     e.next,
			Runs:        e.runs,
			Failures:    e.failures,
			LastResult:  e.last,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// History returns up to limit recent results, oldest first.
// A non-positive limit returns the full retained history.
func (s *Scheduler) History(limit int) []JobResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}

	out := make([]JobResult, limit)
	copy(out, s.history[len(s.history)-limit:])
	return out
}

// Metrics returns the scheduler counters, nil when metrics are disabled.
func (s *Scheduler) Metrics() *SchedulerMetrics {
	return s.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// SchedulerMetrics counts executions per job. Read through Snapshot.
type SchedulerMetrics struct {
	mu        sync.Mutex
	runs      map[string]int64
	failures  map[string]int64
	totalRuns int64
	totalFail int64
	busy      time.Duration
}

func newSchedulerMetrics() *SchedulerMetrics {
	return &SchedulerMetrics{
		runs:     make(map[string]int64),
		failures: make(map[string]int64),
	}
}

func (m *SchedulerMetrics) recordRun(jobName string, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRuns++
	m.busy += duration
	m.runs[jobName]++
	if !success {
		m.totalFail++
		m.failures[jobName]++
	}
}

// Snapshot returns a point-in-time copy of the counters.
func (m *SchedulerMetrics) Snapshot() SchedulerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	runs := make(map[string]int64, len(m.runs))
	for name, n := range m.runs {
		runs[name] = n
	}
	failures := make(map[string]int64, len(m.failures))
	for name, n := range m.failures {
		failures[name] = n
	}

	stats := SchedulerStats{
		TotalRuns:     m.totalRuns,
		TotalFailures: m.totalFail,
		RunsByJob:     runs,
		FailuresByJob: failures,
	}
	if m.totalRuns > 0 {
		stats.SuccessRate = float64(m.totalRuns-m.totalFail) / float64(m.totalRuns)
		stats.AvgDuration = m.busy / time.Duration(m.totalRuns)
	}
	return stats
}

// SchedulerStats is a point-in-time view of scheduler activity.
type SchedulerStats struct {
	TotalRuns     int64
	TotalFailures int64
	SuccessRate   float64
	AvgDuration   time.Duration
	RunsByJob     map[string]int64
	FailuresByJob map[string]int64
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNilJob is returned when registering a nil job.
	ErrNilJob = errors.New("job is nil")

	// ErrNilSchedule is returned when registering a job without a schedule.
	ErrNilSchedule = errors.New("schedule is nil")

	// ErrDuplicateJob is returned when a job name is already taken.
	ErrDuplicateJob = errors.New("job already registered")

	// ErrJobNotFound is returned when a job name is unknown.
	ErrJobNotFound = errors.New("job not found")

	// ErrAlreadyRunning is returned by Start on a running scheduler.
	ErrAlreadyRunning = errors.New("scheduler already running")

	// ErrNotRunning is returned by Stop on a stopped scheduler.
	ErrNotRunning = errors.New("scheduler not running")
)
