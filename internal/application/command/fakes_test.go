package command

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/student"
)

// Call-recording fakes shared by the command handler tests. Every fake keeps
// the arguments it saw so tests can assert call order and absence of calls.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ─────────────────────────────────────────────────────────────────────────────
// student.Directory / student.Repository
// ─────────────────────────────────────────────────────────────────────────────

type fakeDirectory struct {
	students  map[string]*student.Student
	findCalls []string
	findErr   error
}

func newFakeDirectory(students ...*student.Student) *fakeDirectory {
	d := &fakeDirectory{students: make(map[string]*student.Student)}
	for _, s := range students {
		d.students[string(s.NIM)] = s
	}
	return d
}

func (d *fakeDirectory) FindByID(_ context.Context, id string) (*student.Student, error) {
	d.findCalls = append(d.findCalls, id)
	if d.findErr != nil {
		return nil, d.findErr
	}
	s, ok := d.students[id]
	if !ok {
		return nil, student.ErrStudentNotFound
	}
	return s, nil
}

type fakeStudentRepo struct {
	fakeDirectory
	created   []*student.Student
	createErr error
}

func newFakeStudentRepo(students ...*student.Student) *fakeStudentRepo {
	return &fakeStudentRepo{fakeDirectory: *newFakeDirectory(students...)}
}

func (r *fakeStudentRepo) Create(_ context.Context, s *student.Student) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.students[string(s.NIM)]; ok {
		return student.ErrStudentAlreadyExists
	}
	r.students[string(s.NIM)] = s
	r.created = append(r.created, s)
	return nil
}

func (r *fakeStudentRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := r.students[id]
	return ok, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// course.Catalog / course.Repository
// ─────────────────────────────────────────────────────────────────────────────

type fakeCatalog struct {
	courses map[string]*course.Course

	findCalls   []string
	prereqCalls []string
	updateCalls []*course.Course

	prereqSatisfied bool
	prereqErr       error
	updateErr       error
	createErr       error
}

func newFakeCatalog(courses ...*course.Course) *fakeCatalog {
	c := &fakeCatalog{
		courses:         make(map[string]*course.Course),
		prereqSatisfied: true,
	}
	for _, crs := range courses {
		c.courses[string(crs.Code)] = crs
	}
	return c
}

func (c *fakeCatalog) FindByCode(_ context.Context, code string) (*course.Course, error) {
	c.findCalls = append(c.findCalls, code)
	crs, ok := c.courses[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, course.ErrCourseNotFound
	}
	return crs, nil
}

func (c *fakeCatalog) IsPrerequisiteSatisfied(_ context.Context, studentID, courseCode string) (bool, error) {
	c.prereqCalls = append(c.prereqCalls, studentID+"/"+courseCode)
	if c.prereqErr != nil {
		return false, c.prereqErr
	}
	return c.prereqSatisfied, nil
}

func (c *fakeCatalog) Update(_ context.Context, crs *course.Course) error {
	if c.updateErr != nil {
		return c.updateErr
	}
	c.updateCalls = append(c.updateCalls, crs.Clone())
	c.courses[string(crs.Code)] = crs.Clone()
	return nil
}

func (c *fakeCatalog) Create(_ context.Context, crs *course.Course) error {
	if c.createErr != nil {
		return c.createErr
	}
	if _, ok := c.courses[string(crs.Code)]; ok {
		return course.ErrCourseAlreadyExists
	}
	c.courses[string(crs.Code)] = crs
	return nil
}

func (c *fakeCatalog) GetAll(_ context.Context, _ course.ListOptions) ([]*course.Course, error) {
	out := make([]*course.Course, 0, len(c.courses))
	for _, crs := range c.courses {
		out = append(out, crs)
	}
	return out, nil
}

func (c *fakeCatalog) GetPrerequisites(_ context.Context, code string) ([]string, error) {
	crs, ok := c.courses[code]
	if !ok {
		return nil, course.ErrCourseNotFound
	}
	return crs.Prerequisites, nil
}

func (c *fakeCatalog) Count(_ context.Context) (int, error) {
	return len(c.courses), nil
}

func (c *fakeCatalog) Exists(_ context.Context, code string) (bool, error) {
	_, ok := c.courses[strings.ToUpper(strings.TrimSpace(code))]
	return ok, nil
}

// stored returns the persisted state of a course, bypassing call recording.
func (c *fakeCatalog) stored(code string) *course.Course {
	return c.courses[code]
}

// ─────────────────────────────────────────────────────────────────────────────
// notification.Notifier
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

// ─────────────────────────────────────────────────────────────────────────────
// enrollment.IDGenerator / enrollment.LogRepository
// ─────────────────────────────────────────────────────────────────────────────

type fakeIDGen struct {
	id string
}

func (g *fakeIDGen) NextID() string {
	if g.id == "" {
		return "ENR-11111111-2222-3333-4444-555555555555"
	}
	return g.id
}

type fakeAuditLog struct {
	entries   []*enrollment.LogEntry
	appendErr error
}

func (l *fakeAuditLog) Append(_ context.Context, entry *enrollment.LogEntry) error {
	if l.appendErr != nil {
		return l.appendErr
	}
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

// ─────────────────────────────────────────────────────────────────────────────
// shared.EventPublisher / student.TranscriptRepository
// ─────────────────────────────────────────────────────────────────────────────

type fakePublisher struct {
	events     []shared.Event
	publishErr error
}

func (p *fakePublisher) Publish(event shared.Event) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.events = append(p.events, event)
	return nil
}

type fakeTranscripts struct {
	completions map[string][]*student.Completion
	saved       []*student.Completion
	saveErr     error
}

func newFakeTranscripts() *fakeTranscripts {
	return &fakeTranscripts{completions: make(map[string][]*student.Completion)}
}

func (t *fakeTranscripts) SaveCompletion(_ context.Context, c *student.Completion) error {
	if t.saveErr != nil {
		return t.saveErr
	}
	for _, existing := range t.completions[string(c.StudentID)] {
		if strings.EqualFold(existing.CourseCode, c.CourseCode) {
			return student.ErrCompletionAlreadyExists
		}
	}
	t.completions[string(c.StudentID)] = append(t.completions[string(c.StudentID)], c)
	t.saved = append(t.saved, c)
	return nil
}

func (t *fakeTranscripts) GetTranscript(_ context.Context, studentID string) (student.Transcript, error) {
	return student.Transcript(t.completions[studentID]), nil
}

func (t *fakeTranscripts) HasCompleted(_ context.Context, studentID, courseCode string) (bool, error) {
	return student.Transcript(t.completions[studentID]).Has(courseCode), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Builders
// ─────────────────────────────────────────────────────────────────────────────

func testStudent(nim string, status student.Status) *student.Student {
	s, err := student.NewStudent(student.NewStudentParams{
		NIM:        student.NIM(nim),
		FullName:   "Budi Santoso",
		Email:      student.Email("budi@kampus.ac.id"),
		Program:    "Teknik Informatika",
		TermNumber: 3,
		IPK:        student.IPK(3.25),
		Status:     status,
	})
	if err != nil {
		panic(err)
	}
	return s
}

func testCourse(code string, capacity, enrolled int, prereqs ...string) *course.Course {
	c, err := course.NewCourse(course.NewCourseParams{
		Code:          course.Code(code),
		Name:          "Algoritma dan Struktur Data",
		Credits:       4,
		Capacity:      capacity,
		Enrolled:      enrolled,
		Instructor:    "Dr. Siti Rahayu",
		Prerequisites: prereqs,
	})
	if err != nil {
		panic(err)
	}
	return c
}
