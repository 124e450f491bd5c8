package enrollment

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOG REPOSITORY
// Jejak audit pendaftaran bersifat append-only; tidak ada update atau delete.
// ══════════════════════════════════════════════════════════════════════════════

// LogRepository mendefinisikan operasi jejak audit pendaftaran.
type LogRepository interface {
	// Append menambahkan satu baris jejak audit.
	Append(ctx context.Context, entry *LogEntry) error

	// GetByStudent mengembalikan baris terbaru milik seorang mahasiswa,
	// diurutkan dari yang paling baru.
	GetByStudent(ctx context.Context, studentID string, limit int) ([]*LogEntry, error)

	// GetByCourse mengembalikan baris terbaru sebuah mata kuliah,
	// diurutkan dari yang paling baru.
	GetByCourse(ctx context.Context, courseCode string, limit int) ([]*LogEntry, error)

	// GetBetween mengembalikan seluruh baris pada rentang waktu tertentu,
	// diurutkan dari yang paling lama. Dipakai job ringkasan harian.
	GetBetween(ctx context.Context, from, to time.Time) ([]*LogEntry, error)

	// NetCounts menghitung selisih ENROLLED dikurangi DROPPED per mata
	// kuliah dari seluruh jejak. Hasil negatif dipangkas ke nol.
	// Dipakai job rekonsiliasi kursi.
	NetCounts(ctx context.Context) (map[string]int, error)

	// CountBetween menghitung jumlah baris per aksi pada rentang waktu.
	CountBetween(ctx context.Context, from, to time.Time) (map[Action]int, error)
}
