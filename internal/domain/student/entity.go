// Package student berisi model domain mahasiswa SIAKAD Enrollment Hub.
// Ini inti logika bisnis - tidak ada dependensi eksternal di sini.
package student

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// NIM merepresentasikan nomor induk mahasiswa.
type NIM string

// IsValid memeriksa format NIM: hanya digit, panjang 8-12 karakter.
func (n NIM) IsValid() bool {
	s := string(n)
	if len(s) < 8 || len(s) > 12 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String mengembalikan representasi string dari NIM.
func (n NIM) String() string {
	return string(n)
}

// Email merepresentasikan alamat surel mahasiswa untuk notifikasi.
type Email string

// IsValid memeriksa bentuk dasar alamat surel.
// Validasi penuh RFC 5322 adalah urusan server mail, bukan domain.
func (e Email) IsValid() bool {
	s := string(e)
	at := strings.Index(s, "@")
	dot := strings.LastIndex(s, ".")
	return at > 0 && dot > at+1 && dot < len(s)-1 && !strings.ContainsAny(s, " \t\n\r")
}

// String mengembalikan representasi string dari alamat surel.
func (e Email) String() string {
	return string(e)
}

// IPK merepresentasikan indeks prestasi kumulatif pada skala 0.00-4.00.
type IPK float64

// IsValid memeriksa bahwa IPK berada pada rentang 0.00-4.00.
func (g IPK) IsValid() bool {
	return g >= 0.0 && g <= 4.0
}

// Float64 mengembalikan nilai float64 yang mendasari.
func (g IPK) Float64() float64 {
	return float64(g)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status menyatakan status akademik mahasiswa.
//
// Nilai lain yang ditetapkan institusi tetap diterima apa adanya; mesin
// pendaftaran hanya memperlakukan SUSPENDED secara khusus dan menganggap
// seluruh status lainnya memenuhi syarat mendaftar.
type Status string

const (
	// StatusActive - mahasiswa aktif mengikuti perkuliahan.
	StatusActive Status = "ACTIVE"
	// StatusSuspended - mahasiswa dikenai skorsing; tidak boleh mendaftar.
	StatusSuspended Status = "SUSPENDED"
	// StatusLeave - mahasiswa sedang cuti akademik.
	StatusLeave Status = "LEAVE"
	// StatusGraduated - mahasiswa sudah lulus.
	StatusGraduated Status = "GRADUATED"
)

// IsSuspended memeriksa status skorsing tanpa membedakan kapitalisasi.
func (s Status) IsSuspended() bool {
	return strings.EqualFold(string(s), string(StatusSuspended))
}

// IsKnown memeriksa apakah status termasuk nilai standar institusi.
func (s Status) IsKnown() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusLeave, StatusGraduated:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student adalah entitas pusat sistem yang merepresentasikan mahasiswa.
type Student struct {
	// NIM - nomor induk mahasiswa, identitas unik yang tidak berubah.
	NIM NIM

	// FullName - nama lengkap mahasiswa.
	FullName string

	// Email - alamat tujuan notifikasi pendaftaran.
	Email Email

	// Program - nama program studi.
	Program string

	// TermNumber - semester berjalan (dimulai dari 1).
	TermNumber int

	// IPK - indeks prestasi kumulatif terakhir.
	IPK IPK

	// Status - status akademik saat ini.
	Status Status

	// CreatedAt - waktu pembuatan record.
	CreatedAt time.Time

	// UpdatedAt - waktu pembaruan terakhir.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrStudentNotFound - mahasiswa tidak ditemukan.
	ErrStudentNotFound = errors.New("student not found")

	// ErrStudentAlreadyExists - mahasiswa dengan NIM tersebut sudah ada.
	ErrStudentAlreadyExists = errors.New("student already exists")

	// ErrInvalidNIM - format NIM tidak valid.
	ErrInvalidNIM = errors.New("invalid nim: must be 8-12 digits")

	// ErrInvalidEmail - alamat surel tidak valid.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidFullName - nama lengkap tidak valid.
	ErrInvalidFullName = errors.New("invalid full name: must be 1-150 chars")

	// ErrInvalidProgram - nama program studi tidak valid.
	ErrInvalidProgram = errors.New("invalid program: must not be empty")

	// ErrInvalidTermNumber - nomor semester tidak valid.
	ErrInvalidTermNumber = errors.New("invalid term number: must be between 1 and 14")

	// ErrInvalidIPK - nilai IPK di luar skala 0.00-4.00.
	ErrInvalidIPK = errors.New("invalid ipk: must be between 0.00 and 4.00")

	// ErrInvalidStatus - status akademik kosong.
	ErrInvalidStatus = errors.New("invalid status: must not be empty")

	// ErrNotSuspended - mahasiswa tidak sedang diskors.
	ErrNotSuspended = errors.New("student is not suspended")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY & VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// NewStudentParams berisi parameter untuk membuat mahasiswa baru.
type NewStudentParams struct {
	NIM        NIM
	FullName   string
	Email      Email
	Program    string
	TermNumber int
	IPK        IPK
	Status     Status
}

// NewStudent membuat mahasiswa baru dengan validasi seluruh field.
// Status kosong otomatis diisi ACTIVE.
func NewStudent(params NewStudentParams) (*Student, error) {
	if !params.NIM.IsValid() {
		return nil, ErrInvalidNIM
	}

	fullName := strings.TrimSpace(params.FullName)
	if len(fullName) == 0 || len(fullName) > 150 {
		return nil, ErrInvalidFullName
	}

	if !params.Email.IsValid() {
		return nil, ErrInvalidEmail
	}

	if strings.TrimSpace(params.Program) == "" {
		return nil, ErrInvalidProgram
	}

	if params.TermNumber < 1 || params.TermNumber > 14 {
		return nil, ErrInvalidTermNumber
	}

	if !params.IPK.IsValid() {
		return nil, ErrInvalidIPK
	}

	status := params.Status
	if status == "" {
		status = StatusActive
	}

	now := time.Now().UTC()

	return &Student{
		NIM:        params.NIM,
		FullName:   fullName,
		Email:      params.Email,
		Program:    strings.TrimSpace(params.Program),
		TermNumber: params.TermNumber,
		IPK:        params.IPK,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// IsSuspended memeriksa apakah mahasiswa sedang diskors.
// Perbandingan tidak membedakan huruf besar/kecil.
func (s *Student) IsSuspended() bool {
	return s.Status.IsSuspended()
}

// CanEnroll mengembalikan true jika mahasiswa berhak mendaftar mata kuliah.
// Semua status selain SUSPENDED dianggap memenuhi syarat.
func (s *Student) CanEnroll() bool {
	return !s.IsSuspended()
}

// Suspend menjatuhkan skorsing pada mahasiswa.
func (s *Student) Suspend() {
	s.Status = StatusSuspended
	s.UpdatedAt = time.Now().UTC()
}

// Reinstate memulihkan mahasiswa dari skorsing.
func (s *Student) Reinstate() error {
	if !s.IsSuspended() {
		return ErrNotSuspended
	}

	s.Status = StatusActive
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateIPK memperbarui IPK mahasiswa.
func (s *Student) UpdateIPK(newIPK IPK) error {
	if !newIPK.IsValid() {
		return ErrInvalidIPK
	}

	s.IPK = newIPK
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// AdvanceTerm menaikkan semester berjalan.
func (s *Student) AdvanceTerm() error {
	if s.TermNumber >= 14 {
		return ErrInvalidTermNumber
	}

	s.TermNumber++
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// String mengembalikan representasi string mahasiswa untuk logging.
func (s *Student) String() string {
	return fmt.Sprintf(
		"Student{NIM: %s, Name: %s, IPK: %.2f, Status: %s}",
		s.NIM, s.FullName, float64(s.IPK), s.Status,
	)
}

// Clone membuat salinan mahasiswa.
// Mesin pendaftaran bekerja pada snapshot, bukan pada record milik direktori.
func (s *Student) Clone() *Student {
	if s == nil {
		return nil
	}

	clone := *s
	return &clone
}
