package student

import (
	"errors"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION (catatan kelulusan mata kuliah)
// Satu baris transkrip: mata kuliah yang sudah dinyatakan lulus. Catatan ini
// menjadi dasar pemeriksaan prasyarat oleh katalog.
// ══════════════════════════════════════════════════════════════════════════════

// Completion mencatat satu mata kuliah yang sudah lulus.
type Completion struct {
	// StudentID - NIM pemilik catatan.
	StudentID NIM

	// CourseCode - kode mata kuliah yang lulus.
	CourseCode string

	// Grade - nilai huruf (A, AB, B, BC, C).
	Grade string

	// Credits - bobot SKS mata kuliah saat dinyatakan lulus.
	Credits int

	// CompletedAt - waktu pencatatan kelulusan.
	CompletedAt time.Time
}

var (
	// ErrInvalidCourseCode - kode mata kuliah kosong.
	ErrInvalidCourseCode = errors.New("invalid course code: must not be empty")

	// ErrInvalidGrade - nilai huruf kosong.
	ErrInvalidGrade = errors.New("invalid grade: must not be empty")

	// ErrInvalidCredits - bobot SKS di luar rentang wajar.
	ErrInvalidCredits = errors.New("invalid credits: must be between 1 and 6")

	// ErrCompletionNotFound - catatan kelulusan tidak ditemukan.
	ErrCompletionNotFound = errors.New("completion not found")

	// ErrCompletionAlreadyExists - mata kuliah sudah tercatat lulus.
	ErrCompletionAlreadyExists = errors.New("completion already recorded")
)

// NewCompletion membuat catatan kelulusan baru dengan validasi.
func NewCompletion(studentID NIM, courseCode, grade string, credits int) (*Completion, error) {
	if !studentID.IsValid() {
		return nil, ErrInvalidNIM
	}

	courseCode = strings.ToUpper(strings.TrimSpace(courseCode))
	if courseCode == "" {
		return nil, ErrInvalidCourseCode
	}

	grade = strings.ToUpper(strings.TrimSpace(grade))
	if grade == "" {
		return nil, ErrInvalidGrade
	}

	if credits < 1 || credits > 6 {
		return nil, ErrInvalidCredits
	}

	return &Completion{
		StudentID:   studentID,
		CourseCode:  courseCode,
		Grade:       grade,
		Credits:     credits,
		CompletedAt: time.Now().UTC(),
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSCRIPT
// ══════════════════════════════════════════════════════════════════════════════

// Transcript adalah kumpulan catatan kelulusan milik satu mahasiswa.
type Transcript []*Completion

// Has memeriksa apakah mata kuliah tertentu sudah lulus.
func (t Transcript) Has(courseCode string) bool {
	for _, c := range t {
		if strings.EqualFold(c.CourseCode, courseCode) {
			return true
		}
	}
	return false
}

// TotalCredits menjumlahkan SKS yang sudah lulus.
func (t Transcript) TotalCredits() int {
	total := 0
	for _, c := range t {
		total += c.Credits
	}
	return total
}
