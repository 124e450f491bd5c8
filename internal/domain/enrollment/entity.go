// Package enrollment berisi hasil keputusan pendaftaran dan jejak auditnya.
package enrollment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// IDPrefix adalah prefiks stabil yang dibawa setiap ID pendaftaran.
const IDPrefix = "ENR-"

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status menyatakan status sebuah pendaftaran.
// Mesin keputusan hanya pernah membuat status APPROVED.
type Status string

const (
	// StatusApproved - pendaftaran disetujui.
	StatusApproved Status = "APPROVED"
)

// IsValid memeriksa apakah status dikenal.
func (s Status) IsValid() bool {
	return s == StatusApproved
}

// Action menyatakan jenis aksi pada jejak audit pendaftaran.
type Action string

const (
	// ActionEnrolled - mahasiswa mendaftar mata kuliah.
	ActionEnrolled Action = "ENROLLED"
	// ActionDropped - mahasiswa membatalkan mata kuliah.
	ActionDropped Action = "DROPPED"
)

// IsValid memeriksa apakah aksi dikenal.
func (a Action) IsValid() bool {
	return a == ActionEnrolled || a == ActionDropped
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEnrollmentBlocked - mahasiswa berstatus skorsing, pendaftaran ditolak.
	ErrEnrollmentBlocked = errors.New("enrollment blocked: student is suspended")

	// ErrInvalidID - ID pendaftaran tidak membawa prefiks ENR-.
	ErrInvalidID = errors.New("invalid enrollment id")

	// ErrInvalidStudentID - NIM kosong.
	ErrInvalidStudentID = errors.New("invalid student id: must not be empty")

	// ErrInvalidCourseCode - kode mata kuliah kosong.
	ErrInvalidCourseCode = errors.New("invalid course code: must not be empty")

	// ErrInvalidAction - aksi audit tidak dikenal.
	ErrInvalidAction = errors.New("invalid log action")

	// ErrInvalidSeatsAfter - jumlah kursi hasil aksi negatif.
	ErrInvalidSeatsAfter = errors.New("invalid seats_after: must be non-negative")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment adalah hasil keputusan enroll yang berhasil.
// Entitas ini immutable; kepemilikannya berpindah ke pemanggil.
type Enrollment struct {
	// ID - identitas hasil generate dengan prefiks ENR-.
	ID string

	// StudentID - NIM mahasiswa yang mendaftar.
	StudentID string

	// CourseCode - kode mata kuliah yang didaftarkan.
	CourseCode string

	// EnrolledAt - waktu keputusan dibuat.
	EnrolledAt time.Time

	// Status - selalu APPROVED untuk hasil mesin keputusan.
	Status Status
}

// NewEnrollment membuat hasil pendaftaran baru dengan validasi.
// Timestamp diambil dari jam sistem saat pemanggilan.
func NewEnrollment(id, studentID, courseCode string) (*Enrollment, error) {
	if !strings.HasPrefix(id, IDPrefix) || len(id) <= len(IDPrefix) {
		return nil, ErrInvalidID
	}

	if strings.TrimSpace(studentID) == "" {
		return nil, ErrInvalidStudentID
	}

	courseCode = strings.ToUpper(strings.TrimSpace(courseCode))
	if courseCode == "" {
		return nil, ErrInvalidCourseCode
	}

	return &Enrollment{
		ID:         id,
		StudentID:  studentID,
		CourseCode: courseCode,
		EnrolledAt: time.Now().UTC(),
		Status:     StatusApproved,
	}, nil
}

// String mengembalikan representasi string untuk logging.
func (e *Enrollment) String() string {
	return fmt.Sprintf(
		"Enrollment{ID: %s, Student: %s, Course: %s, Status: %s}",
		e.ID, e.StudentID, e.CourseCode, e.Status,
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// LOG ENTRY (jejak audit append-only)
// ══════════════════════════════════════════════════════════════════════════════

// LogEntry adalah satu baris jejak audit pendaftaran.
type LogEntry struct {
	// ID - nomor urut baris, diisi oleh penyimpanan.
	ID int64

	// Action - ENROLLED atau DROPPED.
	Action Action

	// StudentID - NIM mahasiswa.
	StudentID string

	// CourseCode - kode mata kuliah.
	CourseCode string

	// SeatsAfter - jumlah terdaftar setelah aksi dipersistenkan.
	SeatsAfter int

	// OccurredAt - waktu aksi terjadi.
	OccurredAt time.Time
}

// NewLogEntry membuat baris jejak audit baru dengan validasi.
func NewLogEntry(action Action, studentID, courseCode string, seatsAfter int) (*LogEntry, error) {
	if !action.IsValid() {
		return nil, ErrInvalidAction
	}

	if strings.TrimSpace(studentID) == "" {
		return nil, ErrInvalidStudentID
	}

	courseCode = strings.ToUpper(strings.TrimSpace(courseCode))
	if courseCode == "" {
		return nil, ErrInvalidCourseCode
	}

	if seatsAfter < 0 {
		return nil, ErrInvalidSeatsAfter
	}

	return &LogEntry{
		Action:     action,
		StudentID:  studentID,
		CourseCode: courseCode,
		SeatsAfter: seatsAfter,
		OccurredAt: time.Now().UTC(),
	}, nil
}
