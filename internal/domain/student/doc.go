// Package student berisi model domain mahasiswa untuk SIAKAD Enrollment Hub.
//
// Ini adalah inti logika bisnis sistem. Paket ini mendefinisikan:
//
//   - Entitas (Entities): Student, Completion, Transcript
//   - Value Objects: NIM, Email, IPK, Status
//   - Interface repositori: Directory, Repository, TranscriptRepository
//
// # Prinsip arsitektur
//
// Paket mengikuti prinsip Clean Architecture dan DDD:
//
//  1. Nol dependensi eksternal - hanya pustaka standar Go
//  2. Dependency Inversion - interface didefinisikan di sini, implementasinya
//     ada di infrastructure
//  3. Rich Domain Model - logika bisnis dienkapsulasi di dalam entitas
//
// # Entitas utama
//
// Student adalah entitas pusat yang merepresentasikan mahasiswa:
//
//	mhs, err := NewStudent(NewStudentParams{
//	    NIM:        NIM("2201234567"),
//	    FullName:   "Siti Rahma",
//	    Email:      Email("siti.rahma@kampus.ac.id"),
//	    Program:    "Teknik Informatika",
//	    TermNumber: 4,
//	    IPK:        IPK(3.25),
//	})
//
// Mesin pendaftaran hanya memperlakukan status SUSPENDED secara khusus.
// Perbandingan dilakukan tanpa membedakan huruf besar/kecil, sehingga nilai
// status lain yang ditetapkan institusi tetap diterima:
//
//	if mhs.IsSuspended() {
//	    // pendaftaran ditolak
//	}
//
// Completion mencatat mata kuliah yang sudah lulus (transkrip). Catatan ini
// menjadi dasar pemeriksaan prasyarat:
//
//	c, err := NewCompletion(mhs.NIM, "IF2110", "A", 4)
//
// # Repositori
//
// Paket mendefinisikan interface repositori (implementasi di infrastructure):
//
//   - Directory: kontrak pencarian yang dibutuhkan mesin pendaftaran
//   - Repository: operasi CRUD lengkap untuk mahasiswa
//   - TranscriptRepository: catatan kelulusan mata kuliah
package student
