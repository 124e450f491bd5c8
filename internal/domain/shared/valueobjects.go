// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// NIM represents a student number (nomor induk mahasiswa).
type NIM string

// NIM format: 8 to 12 digits, e.g. "2201234567".
var nimRegex = regexp.MustCompile(`^\d{8,12}$`)

// IsValid checks if the NIM format is valid.
func (n NIM) IsValid() bool {
	return nimRegex.MatchString(string(n))
}

// String returns the string representation.
func (n NIM) String() string {
	return string(n)
}

// IsEmpty checks if the NIM is empty.
func (n NIM) IsEmpty() bool {
	return n == ""
}

// NewNIM creates a new NIM with validation.
func NewNIM(value string) (NIM, error) {
	n := NIM(strings.TrimSpace(value))
	if !n.IsValid() {
		return "", ErrInvalidNIM
	}
	return n, nil
}

// CourseCode represents a unique course offering code.
type CourseCode string

// Course code format: subject letters followed by a number, e.g. "IF2110".
var courseCodeRegex = regexp.MustCompile(`^[A-Z]{2,6}\d{3,4}$`)

// IsValid checks if the course code format is valid.
func (c CourseCode) IsValid() bool {
	return courseCodeRegex.MatchString(string(c))
}

// String returns the string representation.
func (c CourseCode) String() string {
	return string(c)
}

// Normalize returns an uppercase version of the course code.
func (c CourseCode) Normalize() CourseCode {
	return CourseCode(strings.ToUpper(string(c)))
}

// NewCourseCode creates a new CourseCode with validation.
func NewCourseCode(value string) (CourseCode, error) {
	c := CourseCode(strings.TrimSpace(value)).Normalize()
	if !c.IsValid() {
		return "", ErrInvalidCourseCode
	}
	return c, nil
}

// EnrollmentIDPrefix is the stable prefix carried by every enrollment ID.
const EnrollmentIDPrefix = "ENR-"

// EnrollmentID represents a generated enrollment identifier ("ENR-" + UUID).
type EnrollmentID string

var enrollmentIDRegex = regexp.MustCompile(`^ENR-[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the enrollment ID carries the prefix and a UUID body.
func (e EnrollmentID) IsValid() bool {
	return enrollmentIDRegex.MatchString(string(e))
}

// String returns the string representation.
func (e EnrollmentID) String() string {
	return string(e)
}

// NewEnrollmentID creates a new EnrollmentID with validation.
func NewEnrollmentID(value string) (EnrollmentID, error) {
	id := EnrollmentID(strings.TrimSpace(value))
	if !id.IsValid() {
		return "", ErrInvalidEnrollmentID
	}
	return id, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Email Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Email represents a notification recipient address.
type Email string

// Deliberately loose: full RFC 5322 validation belongs to the mail server.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// IsValid checks if the email format is plausible.
func (e Email) IsValid() bool {
	return emailRegex.MatchString(string(e))
}

// String returns the string representation.
func (e Email) String() string {
	return string(e)
}

// Normalize returns a lowercase version of the address.
func (e Email) Normalize() Email {
	return Email(strings.ToLower(string(e)))
}

// NewEmail creates a new Email with validation.
func NewEmail(value string) (Email, error) {
	e := Email(strings.TrimSpace(value))
	if !e.IsValid() {
		return "", ErrInvalidRecipient
	}
	return e.Normalize(), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Credits Value Object (SKS)
// ═══════════════════════════════════════════════════════════════════════════

// Credits represents a credit-hour weight in SKS (satuan kredit semester).
type Credits int

const (
	// Credit boundaries for a single course offering
	MinCredits Credits = 1
	MaxCredits Credits = 6

	// MaxTermCredits is the hard ceiling a student may request in one term.
	MaxTermCredits Credits = 24
)

// IsValid checks if the credit weight is within valid range for one course.
func (c Credits) IsValid() bool {
	return c >= MinCredits && c <= MaxCredits
}

// Int returns the underlying int value.
func (c Credits) Int() int {
	return int(c)
}

// NewCredits creates a new Credits value with validation.
func NewCredits(value int) (Credits, error) {
	c := Credits(value)
	if !c.IsValid() {
		return 0, NewDomainError("shared", "NewCredits", ErrValueOutOfRange, "credits must be between 1 and 6 SKS")
	}
	return c, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// GPA Value Object (IPK)
// ═══════════════════════════════════════════════════════════════════════════

// GPA represents a grade-point average (IPK) on the 0.0-4.0 scale.
type GPA float64

const (
	MinGPA GPA = 0.0
	MaxGPA GPA = 4.0
)

// IsValid checks if the GPA is within the 0.0-4.0 scale.
func (g GPA) IsValid() bool {
	return g >= MinGPA && g <= MaxGPA
}

// Float64 returns the underlying float64 value.
func (g GPA) Float64() float64 {
	return float64(g)
}

// String formats the GPA with two decimals, e.g. "3.25".
func (g GPA) String() string {
	return fmt.Sprintf("%.2f", float64(g))
}

// NewGPA creates a new GPA with validation.
func NewGPA(value float64) (GPA, error) {
	g := GPA(value)
	if !g.IsValid() {
		return 0, ErrInvalidIPK
	}
	return g, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Grade Value Object (transcript letter grades)
// ═══════════════════════════════════════════════════════════════════════════

// Grade represents a letter grade on a completion record.
type Grade string

const (
	GradeA  Grade = "A"
	GradeAB Grade = "AB"
	GradeB  Grade = "B"
	GradeBC Grade = "BC"
	GradeC  Grade = "C"
	GradeD  Grade = "D"
	GradeE  Grade = "E"
)

// IsValid checks if the grade is a known letter grade.
func (g Grade) IsValid() bool {
	switch g {
	case GradeA, GradeAB, GradeB, GradeBC, GradeC, GradeD, GradeE:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (g Grade) String() string {
	return string(g)
}

// Points returns the grade-point value of the letter grade.
func (g Grade) Points() float64 {
	switch g {
	case GradeA:
		return 4.0
	case GradeAB:
		return 3.5
	case GradeB:
		return 3.0
	case GradeBC:
		return 2.5
	case GradeC:
		return 2.0
	case GradeD:
		return 1.0
	default:
		return 0.0
	}
}

// IsPassing returns true if the grade counts toward prerequisites (C or better).
func (g Grade) IsPassing() bool {
	return g.Points() >= 2.0
}

// NewGrade creates a new Grade with validation.
func NewGrade(value string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(value)))
	if !g.IsValid() {
		return "", NewDomainError("shared", "NewGrade", ErrInvalidInput, "unknown letter grade")
	}
	return g, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a time period.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks if the time range is valid.
func (t TimeRange) IsValid() bool {
	return !t.From.IsZero() && !t.To.IsZero() && !t.From.After(t.To)
}

// Duration returns the duration of the time range.
func (t TimeRange) Duration() time.Duration {
	return t.To.Sub(t.From)
}

// Contains checks if a time is within the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return (tm.Equal(t.From) || tm.After(t.From)) && (tm.Equal(t.To) || tm.Before(t.To))
}

// NewTimeRange creates a new TimeRange with validation.
func NewTimeRange(from, to time.Time) (TimeRange, error) {
	tr := TimeRange{From: from, To: to}
	if !tr.IsValid() {
		return TimeRange{}, NewDomainError("shared", "NewTimeRange", ErrInvalidInput, "'from' must be before 'to'")
	}
	return tr, nil
}

// Today returns a TimeRange for today (local time).
func Today() TimeRange {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.Add(24 * time.Hour).Add(-time.Nanosecond)
	return TimeRange{From: start, To: end}
}

// Last24Hours returns a TimeRange for the last 24 hours.
func Last24Hours() TimeRange {
	now := time.Now()
	return TimeRange{
		From: now.Add(-24 * time.Hour),
		To:   now,
	}
}

// LastNDays returns a TimeRange for the last N days.
func LastNDays(n int) TimeRange {
	now := time.Now()
	return TimeRange{
		From: now.AddDate(0, 0, -n),
		To:   now,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// DefaultPagination returns default pagination.
func DefaultPagination() Pagination {
	return NewPagination(1, DefaultPageSize)
}
