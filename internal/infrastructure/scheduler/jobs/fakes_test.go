package jobs

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
)

// Call-recording fakes shared by the job tests. Jobs run their work on
// worker pools, so every fake guards its recorded calls with a mutex.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ─────────────────────────────────────────────────────────────────────────────
// course.Repository
// ─────────────────────────────────────────────────────────────────────────────

type fakeCourseRepo struct {
	mu      sync.Mutex
	courses map[string]*course.Course

	updateCalls []*course.Course
	updateErr   error
	getAllErr   error
}

func newFakeCourseRepo(courses ...*course.Course) *fakeCourseRepo {
	r := &fakeCourseRepo{courses: make(map[string]*course.Course)}
	for _, c := range courses {
		r.courses[string(c.Code)] = c
	}
	return r
}

func (r *fakeCourseRepo) FindByCode(_ context.Context, code string) (*course.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, course.ErrCourseNotFound
	}
	return c, nil
}

func (r *fakeCourseRepo) IsPrerequisiteSatisfied(_ context.Context, _, _ string) (bool, error) {
	return true, nil
}

func (r *fakeCourseRepo) Update(_ context.Context, c *course.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	r.updateCalls = append(r.updateCalls, c.Clone())
	r.courses[string(c.Code)] = c.Clone()
	return nil
}

func (r *fakeCourseRepo) Create(_ context.Context, c *course.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.courses[string(c.Code)] = c
	return nil
}

func (r *fakeCourseRepo) GetAll(_ context.Context, opts course.ListOptions) ([]*course.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getAllErr != nil {
		return nil, r.getAllErr
	}

	codes := make([]string, 0, len(r.courses))
	for code := range r.courses {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]*course.Course, 0)
	for i, code := range codes {
		if i < opts.Offset {
			continue
		}
		if len(out) >= opts.Limit {
			break
		}
		out = append(out, r.courses[code])
	}
	return out, nil
}

func (r *fakeCourseRepo) GetPrerequisites(_ context.Context, code string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[code]
	if !ok {
		return nil, course.ErrCourseNotFound
	}
	return c.Prerequisites, nil
}

func (r *fakeCourseRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.courses), nil
}

func (r *fakeCourseRepo) Exists(_ context.Context, code string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.courses[code]
	return ok, nil
}

// stored returns the persisted state of a course, bypassing call recording.
func (r *fakeCourseRepo) stored(code string) *course.Course {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.courses[code]
}

// ─────────────────────────────────────────────────────────────────────────────
// enrollment.LogRepository
// ─────────────────────────────────────────────────────────────────────────────

type fakeAuditLog struct {
	entries []*enrollment.LogEntry
}

func (l *fakeAuditLog) Append(_ context.Context, entry *enrollment.LogEntry) error {
	l.entries = append(l.entries, entry)
	return nil
}

func (l *fakeAuditLog) GetByStudent(_ context.Context, studentID string, limit int) ([]*enrollment.LogEntry, error) {
	out := make([]*enrollment.LogEntry, 0)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if l.entries[i].StudentID == studentID {
			out = append(out, l.entries[i])
		}
	}
	return out, nil
}

func (l *fakeAuditLog) GetByCourse(_ context.Context, courseCode string, limit int) ([]*enrollment.LogEntry, error) {
	out := make([]*enrollment.LogEntry, 0)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if l.entries[i].CourseCode == courseCode {
			out = append(out, l.entries[i])
		}
	}
	return out, nil
}

func (l *fakeAuditLog) GetBetween(_ context.Context, from, to time.Time) ([]*enrollment.LogEntry, error) {
	out := make([]*enrollment.LogEntry, 0)
	for _, e := range l.entries {
		if !e.OccurredAt.Before(from) && e.OccurredAt.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (l *fakeAuditLog) NetCounts(_ context.Context) (map[string]int, error) {
	net := make(map[string]int)
	for _, e := range l.entries {
		switch e.Action {
		case enrollment.ActionEnrolled:
			net[e.CourseCode]++
		case enrollment.ActionDropped:
			net[e.CourseCode]--
		}
	}
	for code, n := range net {
		if n < 0 {
			net[code] = 0
		}
	}
	return net, nil
}

func (l *fakeAuditLog) CountBetween(_ context.Context, from, to time.Time) (map[enrollment.Action]int, error) {
	counts := make(map[enrollment.Action]int)
	for _, e := range l.entries {
		if !e.OccurredAt.Before(from) && e.OccurredAt.Before(to) {
			counts[e.Action]++
		}
	}
	return counts, nil
}

// logEntry builds an audit row with an explicit timestamp.
func logEntry(action enrollment.Action, studentID, courseCode string, occurredAt time.Time) *enrollment.LogEntry {
	return &enrollment.LogEntry{
		Action:     action,
		StudentID:  studentID,
		CourseCode: courseCode,
		SeatsAfter: 1,
		OccurredAt: occurredAt,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// notification.Notifier / shared.EventPublisher / course.AvailabilityCache
// ─────────────────────────────────────────────────────────────────────────────

type sentMessage struct {
	to      string
	subject string
	body    string
}

type fakeNotifier struct {
	sent    []sentMessage
	sendErr error
}

func (n *fakeNotifier) Send(_ context.Context, to, subject, body string) error {
	n.sent = append(n.sent, sentMessage{to: to, subject: subject, body: body})
	if n.sendErr != nil {
		return n.sendErr
	}
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *fakePublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) published() []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.Event, len(p.events))
	copy(out, p.events)
	return out
}

type fakeAvailabilityCache struct {
	mu        sync.Mutex
	snapshots map[string]course.Availability
	setErr    error
}

func newFakeAvailabilityCache() *fakeAvailabilityCache {
	return &fakeAvailabilityCache{snapshots: make(map[string]course.Availability)}
}

func (c *fakeAvailabilityCache) Get(_ context.Context, code string) (*course.Availability, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.snapshots[code]
	if !ok {
		return nil, course.ErrCourseNotFound
	}
	return &a, nil
}

func (c *fakeAvailabilityCache) Set(_ context.Context, availability course.Availability) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.snapshots[availability.Code] = availability
	return nil
}

func (c *fakeAvailabilityCache) Invalidate(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, code)
	return nil
}

func (c *fakeAvailabilityCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snapshots)
}

// ─────────────────────────────────────────────────────────────────────────────
// Builders
// ─────────────────────────────────────────────────────────────────────────────

func testCourse(code string, capacity, enrolled int) *course.Course {
	c, err := course.NewCourse(course.NewCourseParams{
		Code:       course.Code(code),
		Name:       "Algoritma dan Struktur Data",
		Credits:    4,
		Capacity:   capacity,
		Enrolled:   enrolled,
		Instructor: "Dr. Siti Rahayu",
	})
	if err != nil {
		panic(err)
	}
	return c
}
