package query

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/student"
)

type fakeDirectory struct {
	students map[string]*student.Student
}

func newFakeDirectory(students ...*student.Student) *fakeDirectory {
	d := &fakeDirectory{students: make(map[string]*student.Student)}
	for _, s := range students {
		d.students[string(s.NIM)] = s
	}
	return d
}

func (d *fakeDirectory) FindByID(_ context.Context, id string) (*student.Student, error) {
	s, ok := d.students[id]
	if !ok {
		return nil, student.ErrStudentNotFound
	}
	return s, nil
}

type fixedPolicy struct {
	max int
}

func (p fixedPolicy) MaxCredits(_ float64) int {
	return p.max
}

type fakeCatalog struct {
	courses   map[string]*course.Course
	findCalls int
}

func newFakeCatalog(courses ...*course.Course) *fakeCatalog {
	c := &fakeCatalog{courses: make(map[string]*course.Course)}
	for _, crs := range courses {
		c.courses[string(crs.Code)] = crs
	}
	return c
}

func (c *fakeCatalog) FindByCode(_ context.Context, code string) (*course.Course, error) {
	c.findCalls++
	crs, ok := c.courses[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, course.ErrCourseNotFound
	}
	return crs, nil
}

func (c *fakeCatalog) IsPrerequisiteSatisfied(_ context.Context, _, _ string) (bool, error) {
	return true, nil
}

func (c *fakeCatalog) Update(_ context.Context, crs *course.Course) error {
	c.courses[string(crs.Code)] = crs
	return nil
}

type fakeAvailabilityCache struct {
	entries  map[string]course.Availability
	getErr   error
	setCalls int
}

func newFakeAvailabilityCache() *fakeAvailabilityCache {
	return &fakeAvailabilityCache{entries: make(map[string]course.Availability)}
}

func (c *fakeAvailabilityCache) Get(_ context.Context, code string) (*course.Availability, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	snap, ok := c.entries[code]
	if !ok {
		return nil, course.ErrCourseNotFound
	}
	return &snap, nil
}

func (c *fakeAvailabilityCache) Set(_ context.Context, snap course.Availability) error {
	c.setCalls++
	c.entries[snap.Code] = snap
	return nil
}

func (c *fakeAvailabilityCache) Invalidate(_ context.Context, code string) error {
	delete(c.entries, code)
	return nil
}

type fakeTranscripts struct {
	transcripts map[string]student.Transcript
	getErr      error
}

func newFakeTranscripts() *fakeTranscripts {
	return &fakeTranscripts{transcripts: make(map[string]student.Transcript)}
}

func (t *fakeTranscripts) SaveCompletion(_ context.Context, c *student.Completion) error {
	t.transcripts[string(c.StudentID)] = append(t.transcripts[string(c.StudentID)], c)
	return nil
}

func (t *fakeTranscripts) GetTranscript(_ context.Context, studentID string) (student.Transcript, error) {
	if t.getErr != nil {
		return nil, t.getErr
	}
	return t.transcripts[studentID], nil
}

func (t *fakeTranscripts) HasCompleted(_ context.Context, studentID, courseCode string) (bool, error) {
	return t.transcripts[studentID].Has(courseCode), nil
}

type fakeAuditLog struct {
	entries []*enrollment.LogEntry
	getErr  error
}

func (l *fakeAuditLog) Append(_ context.Context, entry *enrollment.LogEntry) error {
	l.entries = append(l.entries, entry)
	return nil
}

func (l *fakeAuditLog) GetByStudent(_ context.Context, studentID string, limit int) ([]*enrollment.LogEntry, error) {
	if l.getErr != nil {
		return nil, l.getErr
	}
	out := make([]*enrollment.LogEntry, 0)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if l.entries[i].StudentID == studentID {
			out = append(out, l.entries[i])
		}
	}
	return out, nil
}

func (l *fakeAuditLog) GetByCourse(_ context.Context, _ string, _ int) ([]*enrollment.LogEntry, error) {
	return nil, errors.New("not implemented")
}

func (l *fakeAuditLog) GetBetween(_ context.Context, _, _ time.Time) ([]*enrollment.LogEntry, error) {
	return nil, errors.New("not implemented")
}

func (l *fakeAuditLog) NetCounts(_ context.Context) (map[string]int, error) {
	return nil, errors.New("not implemented")
}

func (l *fakeAuditLog) CountBetween(_ context.Context, _, _ time.Time) (map[enrollment.Action]int, error) {
	return nil, errors.New("not implemented")
}

func testStudent(nim string, ipk float64) *student.Student {
	s, err := student.NewStudent(student.NewStudentParams{
		NIM:        student.NIM(nim),
		FullName:   "Budi Santoso",
		Email:      student.Email("budi@kampus.ac.id"),
		Program:    "Teknik Informatika",
		TermNumber: 3,
		IPK:        student.IPK(ipk),
	})
	if err != nil {
		panic(err)
	}
	return s
}

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
