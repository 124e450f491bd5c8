package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/application/command"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/application/query"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/student"
	"github.com/siakad-hub/siakad-enrollment-hub/pkg/logger"
)

// The API tests drive the fully assembled handler (middleware included)
// against real command and query handlers; only the persistence boundary
// is faked.

func discardSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func discardLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelFatal})
}

// ─────────────────────────────────────────────────────────────────────────────
// student.Repository
// ─────────────────────────────────────────────────────────────────────────────

type fakeStudentRepo struct {
	students map[string]*student.Student
}

func newFakeStudentRepo(students ...*student.Student) *fakeStudentRepo {
	r := &fakeStudentRepo{students: make(map[string]*student.Student)}
	for _, s := range students {
		r.students[string(s.NIM)] = s
	}
	return r
}

func (r *fakeStudentRepo) FindByID(_ context.Context, id string) (*student.Student, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, student.ErrStudentNotFound
	}
	return s, nil
}

func (r *fakeStudentRepo) Create(_ context.Context, s *student.Student) error {
	if _, ok := r.students[string(s.NIM)]; ok {
		return student.ErrStudentAlreadyExists
	}
	r.students[string(s.NIM)] = s
	return nil
}

func (r *fakeStudentRepo) Exists(_ context.Context, id string) (bool, error) {
	_, ok := r.students[id]
	return ok, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// course.Repository
// ─────────────────────────────────────────────────────────────────────────────

type fakeCatalog struct {
	courses map[string]*course.Course

	updateCalls []*course.Course

	prereqSatisfied bool
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
	crs, ok := c.courses[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, course.ErrCourseNotFound
	}
	return crs, nil
}

func (c *fakeCatalog) IsPrerequisiteSatisfied(_ context.Context, _, _ string) (bool, error) {
	return c.prereqSatisfied, nil
}

func (c *fakeCatalog) Update(_ context.Context, crs *course.Course) error {
	c.updateCalls = append(c.updateCalls, crs.Clone())
	c.courses[string(crs.Code)] = crs.Clone()
	return nil
}

func (c *fakeCatalog) Create(_ context.Context, crs *course.Course) error {
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

// stored returns the persisted state of a course.
func (c *fakeCatalog) stored(code string) *course.Course {
	return c.courses[code]
}

// ─────────────────────────────────────────────────────────────────────────────
// Remaining collaborator fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeNotifier struct {
	sent int
}

func (n *fakeNotifier) Send(_ context.Context, _, _, _ string) error {
	n.sent++
	return nil
}

type fakeIDGen struct{}

func (g *fakeIDGen) NextID() string {
	return "ENR-11111111-2222-3333-4444-555555555555"
}

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

type fakePublisher struct {
	events []shared.Event
}

func (p *fakePublisher) Publish(event shared.Event) error {
	p.events = append(p.events, event)
	return nil
}

type fakeTranscripts struct {
	completions map[string][]*student.Completion
}

func newFakeTranscripts() *fakeTranscripts {
	return &fakeTranscripts{completions: make(map[string][]*student.Completion)}
}

func (t *fakeTranscripts) SaveCompletion(_ context.Context, c *student.Completion) error {
	for _, existing := range t.completions[string(c.StudentID)] {
		if strings.EqualFold(existing.CourseCode, c.CourseCode) {
			return student.ErrCompletionAlreadyExists
		}
	}
	t.completions[string(c.StudentID)] = append(t.completions[string(c.StudentID)], c)
	return nil
}

func (t *fakeTranscripts) GetTranscript(_ context.Context, studentID string) (student.Transcript, error) {
	return student.Transcript(t.completions[studentID]), nil
}

func (t *fakeTranscripts) HasCompleted(_ context.Context, studentID, courseCode string) (bool, error) {
	return student.Transcript(t.completions[studentID]).Has(courseCode), nil
}

type fakeAvailabilityCache struct {
	snapshots map[string]course.Availability
	setCalls  int
}

func newFakeAvailabilityCache() *fakeAvailabilityCache {
	return &fakeAvailabilityCache{snapshots: make(map[string]course.Availability)}
}

func (c *fakeAvailabilityCache) Get(_ context.Context, code string) (*course.Availability, error) {
	snap, ok := c.snapshots[code]
	if !ok {
		return nil, course.ErrCourseNotFound
	}
	return &snap, nil
}

func (c *fakeAvailabilityCache) Set(_ context.Context, availability course.Availability) error {
	c.snapshots[availability.Code] = availability
	c.setCalls++
	return nil
}

func (c *fakeAvailabilityCache) Invalidate(_ context.Context, code string) error {
	delete(c.snapshots, code)
	return nil
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

// ─────────────────────────────────────────────────────────────────────────────
// Server fixture
// ─────────────────────────────────────────────────────────────────────────────

// fixture wires real command and query handlers over fakes.
type fixture struct {
	students    *fakeStudentRepo
	catalog     *fakeCatalog
	notifier    *fakeNotifier
	auditLog    *fakeAuditLog
	publisher   *fakePublisher
	transcripts *fakeTranscripts
	seats       *fakeAvailabilityCache
}

func newFixture(students []*student.Student, courses []*course.Course) *fixture {
	return &fixture{
		students:    newFakeStudentRepo(students...),
		catalog:     newFakeCatalog(courses...),
		notifier:    &fakeNotifier{},
		auditLog:    &fakeAuditLog{},
		publisher:   &fakePublisher{},
		transcripts: newFakeTranscripts(),
		seats:       newFakeAvailabilityCache(),
	}
}

func (f *fixture) dependencies() Dependencies {
	return Dependencies{
		EnrollCourseHandler: command.NewEnrollCourseHandler(
			f.students, f.catalog, f.notifier, &fakeIDGen{}, f.auditLog, f.publisher, discardSlog()),
		DropCourseHandler: command.NewDropCourseHandler(
			f.students, f.catalog, f.notifier, f.auditLog, f.publisher, discardSlog()),
		RegisterStudentHandler:  command.NewRegisterStudentHandler(f.students, f.publisher),
		AddCourseHandler:        command.NewAddCourseHandler(f.catalog, f.publisher),
		RecordCompletionHandler: command.NewRecordCompletionHandler(f.students, f.catalog, f.transcripts, f.publisher),
		ValidateCreditLimitHandler: query.NewValidateCreditLimitHandler(
			f.students, enrollment.NewStandardCreditPolicy()),
		GetStudentRecordHandler:      query.NewGetStudentRecordHandler(f.students, f.transcripts, f.auditLog),
		GetCourseAvailabilityHandler: query.NewGetCourseAvailabilityHandler(f.catalog, f.seats),
		Logger:                       discardLogger(),
	}
}

// testConfig disables rate limiting so tests can issue as many requests
// as they need; the rate-limit test opts back in.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	return cfg
}

func (f *fixture) server(cfg Config) *Server {
	return NewServer(cfg, f.dependencies())
}

// ─────────────────────────────────────────────────────────────────────────────
// Request helpers
// ─────────────────────────────────────────────────────────────────────────────

func doRequest(srv *Server, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// apiEnvelope mirrors the response envelope for decoding in assertions.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiErrorBody   `json:"error"`
}

type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.True(t, env.Success, "expected a success envelope, got %s", rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error, "expected an error envelope, got %s", rec.Body.String())
	return env.Error.Code
}
