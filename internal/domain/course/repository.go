package course

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG & REPOSITORY INTERFACES
// Implementasinya berada di infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Catalog adalah kontrak katalog yang dibutuhkan mesin pendaftaran.
//
// Katalog tidak melakukan penguncian internal. Baca-ubah-tulis pada jumlah
// terdaftar satu mata kuliah TIDAK atomik antar pemanggil konkuren; pemanggil
// wajib menserialisasi operasi enroll/drop per mata kuliah. Mesin pendaftaran
// sendiri stateless dan tidak pernah menyimpan snapshot antar pemanggilan.
type Catalog interface {
	// FindByCode mengembalikan mata kuliah berdasarkan kode.
	// Mengembalikan ErrCourseNotFound jika tidak ada.
	FindByCode(ctx context.Context, code string) (*Course, error)

	// IsPrerequisiteSatisfied memeriksa apakah mahasiswa sudah lulus seluruh
	// prasyarat mata kuliah. Mata kuliah tanpa prasyarat selalu terpenuhi.
	IsPrerequisiteSatisfied(ctx context.Context, studentID, code string) (bool, error)

	// Update mempersistenkan seluruh state mata kuliah, termasuk jumlah
	// terdaftar. Idempoten per pemanggilan.
	Update(ctx context.Context, course *Course) error
}

// Repository mendefinisikan operasi katalog lengkap.
type Repository interface {
	Catalog

	// Create menyimpan penawaran mata kuliah baru beserta prasyaratnya.
	// Mengembalikan ErrCourseAlreadyExists jika kode sudah terpakai.
	Create(ctx context.Context, course *Course) error

	// GetAll mengembalikan seluruh mata kuliah dengan paginasi.
	GetAll(ctx context.Context, opts ListOptions) ([]*Course, error)

	// GetPrerequisites mengembalikan daftar kode prasyarat sebuah mata kuliah.
	GetPrerequisites(ctx context.Context, code string) ([]string, error)

	// Count mengembalikan jumlah penawaran mata kuliah.
	Count(ctx context.Context) (int, error)

	// Exists memeriksa keberadaan mata kuliah berdasarkan kode.
	Exists(ctx context.Context, code string) (bool, error)
}

// ListOptions berisi parameter paginasi untuk daftar mata kuliah.
type ListOptions struct {
	// Offset - pergeseran (untuk paginasi).
	Offset int

	// Limit - jumlah maksimum record.
	Limit int
}

// DefaultListOptions mengembalikan parameter bawaan.
func DefaultListOptions() ListOptions {
	return ListOptions{Offset: 0, Limit: 100}
}

// ══════════════════════════════════════════════════════════════════════════════
// AVAILABILITY CACHE
// Cache ketersediaan kursi (biasanya diimplementasikan lewat Redis).
// ══════════════════════════════════════════════════════════════════════════════

// Availability adalah snapshot kursi sebuah mata kuliah.
type Availability struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Capacity  int    `json:"capacity"`
	Enrolled  int    `json:"enrolled"`
	SeatsLeft int    `json:"seats_left"`
	Full      bool   `json:"full"`
}

// NewAvailability membangun snapshot ketersediaan dari sebuah mata kuliah.
func NewAvailability(c *Course) Availability {
	return Availability{
		Code:      string(c.Code),
		Name:      c.Name,
		Capacity:  c.Capacity,
		Enrolled:  c.Enrolled,
		SeatsLeft: c.SeatsLeft(),
		Full:      c.IsFull(),
	}
}

// AvailabilityCache mendefinisikan cache snapshot ketersediaan kursi.
type AvailabilityCache interface {
	// Get mengambil snapshot dari cache.
	// Mengembalikan ErrCourseNotFound saat cache miss.
	Get(ctx context.Context, code string) (*Availability, error)

	// Set menyimpan snapshot ke cache.
	Set(ctx context.Context, availability Availability) error

	// Invalidate menghapus snapshot sebuah mata kuliah dari cache.
	Invalidate(ctx context.Context, code string) error
}
