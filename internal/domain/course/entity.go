// Package course berisi model domain mata kuliah dan kontrak katalog.
package course

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Code merepresentasikan kode mata kuliah, contoh "IF2110".
type Code string

// IsValid memeriksa format kode: 2-6 huruf kapital diikuti 3-4 digit.
func (c Code) IsValid() bool {
	s := string(c)
	if len(s) < 5 || len(s) > 10 {
		return false
	}

	letters := 0
	for letters < len(s) && s[letters] >= 'A' && s[letters] <= 'Z' {
		letters++
	}
	if letters < 2 || letters > 6 {
		return false
	}

	digits := len(s) - letters
	if digits < 3 || digits > 4 {
		return false
	}
	for i := letters; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String mengembalikan representasi string dari kode.
func (c Code) String() string {
	return string(c)
}

// Normalize mengembalikan kode dalam huruf kapital tanpa spasi pinggir.
func (c Code) Normalize() Code {
	return Code(strings.ToUpper(strings.TrimSpace(string(c))))
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: COURSE
// ══════════════════════════════════════════════════════════════════════════════

// Course merepresentasikan satu penawaran mata kuliah pada term berjalan.
//
// Invariant: 0 <= Enrolled <= Capacity. Factory dan seluruh metode mutasi
// menjaga invariant ini.
type Course struct {
	// Code - kode mata kuliah, unik dan tidak berubah.
	Code Code

	// Name - nama mata kuliah.
	Name string

	// Credits - bobot SKS.
	Credits int

	// Capacity - daya tampung kelas, tetap selama penawaran berjalan.
	Capacity int

	// Enrolled - jumlah mahasiswa terdaftar saat ini.
	Enrolled int

	// Instructor - nama dosen pengampu.
	Instructor string

	// Prerequisites - daftar kode mata kuliah prasyarat.
	Prerequisites []string

	// CreatedAt - waktu pembuatan record.
	CreatedAt time.Time

	// UpdatedAt - waktu pembaruan terakhir.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrCourseNotFound - mata kuliah tidak ditemukan.
	ErrCourseNotFound = errors.New("course not found")

	// ErrCourseAlreadyExists - kode mata kuliah sudah terpakai.
	ErrCourseAlreadyExists = errors.New("course already exists")

	// ErrCourseFull - daya tampung kelas sudah penuh.
	ErrCourseFull = errors.New("course is full")

	// ErrPrerequisiteNotMet - prasyarat mata kuliah belum terpenuhi.
	ErrPrerequisiteNotMet = errors.New("course prerequisites not met")

	// ErrInvalidCode - format kode mata kuliah tidak valid.
	ErrInvalidCode = errors.New("invalid course code")

	// ErrInvalidName - nama mata kuliah kosong.
	ErrInvalidName = errors.New("invalid course name: must not be empty")

	// ErrInvalidCredits - bobot SKS di luar rentang 1-6.
	ErrInvalidCredits = errors.New("invalid credits: must be between 1 and 6")

	// ErrInvalidCapacity - daya tampung negatif.
	ErrInvalidCapacity = errors.New("invalid capacity: must be non-negative")

	// ErrInvalidInstructor - nama dosen kosong.
	ErrInvalidInstructor = errors.New("invalid instructor: must not be empty")

	// ErrEnrolledOutOfRange - jumlah terdaftar melanggar invariant.
	ErrEnrolledOutOfRange = errors.New("enrolled count out of range")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewCourseParams berisi parameter untuk membuat penawaran mata kuliah.
type NewCourseParams struct {
	Code          Code
	Name          string
	Credits       int
	Capacity      int
	Enrolled      int
	Instructor    string
	Prerequisites []string
}

// NewCourse membuat penawaran mata kuliah baru dengan validasi seluruh field.
func NewCourse(params NewCourseParams) (*Course, error) {
	code := params.Code.Normalize()
	if !code.IsValid() {
		return nil, ErrInvalidCode
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	if params.Credits < 1 || params.Credits > 6 {
		return nil, ErrInvalidCredits
	}

	if params.Capacity < 0 {
		return nil, ErrInvalidCapacity
	}

	if params.Enrolled < 0 || params.Enrolled > params.Capacity {
		return nil, ErrEnrolledOutOfRange
	}

	instructor := strings.TrimSpace(params.Instructor)
	if instructor == "" {
		return nil, ErrInvalidInstructor
	}

	prereqs := make([]string, 0, len(params.Prerequisites))
	for _, p := range params.Prerequisites {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if p == string(code) {
			return nil, fmt.Errorf("%w: course cannot be its own prerequisite", ErrInvalidCode)
		}
		prereqs = append(prereqs, p)
	}

	now := time.Now().UTC()

	return &Course{
		Code:          code,
		Name:          name,
		Credits:       params.Credits,
		Capacity:      params.Capacity,
		Enrolled:      params.Enrolled,
		Instructor:    instructor,
		Prerequisites: prereqs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// IsFull memeriksa apakah daya tampung sudah terpakai seluruhnya.
func (c *Course) IsFull() bool {
	return c.Enrolled >= c.Capacity
}

// SeatsLeft mengembalikan jumlah kursi yang masih tersedia.
func (c *Course) SeatsLeft() int {
	left := c.Capacity - c.Enrolled
	if left < 0 {
		return 0
	}
	return left
}

// TakeSeat menaikkan jumlah terdaftar tepat satu.
// Mengembalikan ErrCourseFull jika kelas sudah penuh; invariant tetap terjaga.
func (c *Course) TakeSeat() error {
	if c.IsFull() {
		return ErrCourseFull
	}

	c.Enrolled++
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// ReleaseSeat menurunkan jumlah terdaftar satu, dengan batas bawah nol.
// Pada nol tidak terjadi apa-apa (bukan error); nilai balik menandakan
// apakah jumlah berubah.
func (c *Course) ReleaseSeat() bool {
	if c.Enrolled <= 0 {
		return false
	}

	c.Enrolled--
	c.UpdatedAt = time.Now().UTC()
	return true
}

// SetEnrolled menetapkan jumlah terdaftar secara langsung.
// Dipakai job rekonsiliasi; tetap menjaga invariant.
func (c *Course) SetEnrolled(n int) error {
	if n < 0 || n > c.Capacity {
		return ErrEnrolledOutOfRange
	}

	c.Enrolled = n
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// HasPrerequisites memeriksa apakah mata kuliah punya prasyarat.
func (c *Course) HasPrerequisites() bool {
	return len(c.Prerequisites) > 0
}

// String mengembalikan representasi string untuk logging.
func (c *Course) String() string {
	return fmt.Sprintf(
		"Course{Code: %s, Name: %s, Seats: %d/%d}",
		c.Code, c.Name, c.Enrolled, c.Capacity,
	)
}

// Clone membuat salinan lepas dari mata kuliah.
// Mesin pendaftaran memutasi salinan, lalu menyerahkannya kembali ke katalog
// untuk dipersistenkan.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}

	clone := *c
	clone.Prerequisites = append([]string(nil), c.Prerequisites...)
	return &clone
}
