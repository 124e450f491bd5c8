package student

import "context"

// Kontrak penyimpanan data mahasiswa. Implementasinya berada di
// infrastructure/persistence; lapisan aplikasi hanya bergantung pada
// antarmuka di berkas ini.

// Directory adalah kontrak pencarian yang dibutuhkan mesin pendaftaran.
// Mesin hanya membaca; snapshot yang dikembalikan tidak pernah di-cache
// antar pemanggilan.
type Directory interface {
	// FindByID mengembalikan mahasiswa berdasarkan NIM.
	// Mengembalikan ErrStudentNotFound jika tidak ada.
	FindByID(ctx context.Context, id string) (*Student, error)
}

// Repository menambahkan operasi tulis yang dipakai pendaftaran mahasiswa
// baru. Perubahan data akademik lain (IPK, status) datang dari sistem
// nilai institusi, bukan dari layanan ini.
type Repository interface {
	Directory

	// Create menyimpan mahasiswa baru.
	// Mengembalikan ErrStudentAlreadyExists jika NIM sudah terdaftar.
	Create(ctx context.Context, student *Student) error

	// Exists memeriksa keberadaan mahasiswa berdasarkan NIM.
	Exists(ctx context.Context, id string) (bool, error)
}

// TranscriptRepository mencatat kelulusan mata kuliah. Catatan ini menjadi
// dasar pemeriksaan prasyarat.
type TranscriptRepository interface {
	// SaveCompletion menyimpan catatan kelulusan.
	// Mengembalikan ErrCompletionAlreadyExists jika sudah tercatat.
	SaveCompletion(ctx context.Context, completion *Completion) error

	// GetTranscript mengembalikan seluruh catatan kelulusan mahasiswa,
	// urut kronologis.
	GetTranscript(ctx context.Context, studentID string) (Transcript, error)

	// HasCompleted memeriksa apakah satu mata kuliah sudah lulus.
	HasCompleted(ctx context.Context, studentID, courseCode string) (bool, error)
}
