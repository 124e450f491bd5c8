package query

import (
	"context"
	"errors"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/enrollment"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT RECORD QUERY
// Mengambil potret lengkap seorang mahasiswa: data diri, transkrip kelulusan,
// dan aktivitas pendaftaran terakhir. Ini query utama layar detail mahasiswa.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentRecordQuery berisi parameter permintaan potret mahasiswa.
type GetStudentRecordQuery struct {
	// StudentID - NIM mahasiswa.
	StudentID string

	// ActivityLimit - jumlah maksimum baris aktivitas terakhir (default 10).
	ActivityLimit int
}

// Validate memeriksa kebenaran parameter query.
func (q *GetStudentRecordQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id must be provided")
	}
	if q.ActivityLimit < 0 {
		return errors.New("activity_limit cannot be negative")
	}
	if q.ActivityLimit == 0 {
		q.ActivityLimit = 10
	}
	if q.ActivityLimit > 50 {
		q.ActivityLimit = 50
	}
	return nil
}

// StudentRecordDTO - potret mahasiswa untuk lapisan antarmuka.
type StudentRecordDTO struct {
	// ─────────────────────────────────────────────────────────────────────────
	// Identitas
	// ─────────────────────────────────────────────────────────────────────────

	// NIM - nomor induk mahasiswa.
	NIM string `json:"nim"`

	// FullName - nama lengkap.
	FullName string `json:"full_name"`

	// Email - alamat tujuan notifikasi.
	Email string `json:"email"`

	// Program - program studi.
	Program string `json:"program"`

	// ─────────────────────────────────────────────────────────────────────────
	// Akademik
	// ─────────────────────────────────────────────────────────────────────────

	// TermNumber - semester berjalan.
	TermNumber int `json:"term_number"`

	// IPK - indeks prestasi kumulatif.
	IPK float64 `json:"ipk"`

	// Status - status akademik saat ini.
	Status string `json:"status"`

	// CanEnroll - apakah mahasiswa berhak mendaftar mata kuliah.
	CanEnroll bool `json:"can_enroll"`

	// ─────────────────────────────────────────────────────────────────────────
	// Transkrip
	// ─────────────────────────────────────────────────────────────────────────

	// Completions - daftar mata kuliah yang sudah lulus.
	Completions []CompletionDTO `json:"completions"`

	// TotalCreditsEarned - total SKS lulus.
	TotalCreditsEarned int `json:"total_credits_earned"`

	// ─────────────────────────────────────────────────────────────────────────
	// Aktivitas pendaftaran
	// ─────────────────────────────────────────────────────────────────────────

	// RecentActivity - baris jejak audit terakhir, terbaru lebih dulu.
	RecentActivity []ActivityDTO `json:"recent_activity,omitempty"`
}

// CompletionDTO - satu baris transkrip.
type CompletionDTO struct {
	// CourseCode - kode mata kuliah.
	CourseCode string `json:"course_code"`

	// Grade - nilai huruf.
	Grade string `json:"grade"`

	// Credits - bobot SKS.
	Credits int `json:"credits"`

	// CompletedAt - waktu pencatatan kelulusan.
	CompletedAt time.Time `json:"completed_at"`
}

// ActivityDTO - satu baris aktivitas pendaftaran.
type ActivityDTO struct {
	// Action - ENROLLED atau DROPPED.
	Action string `json:"action"`

	// CourseCode - kode mata kuliah.
	CourseCode string `json:"course_code"`

	// SeatsAfter - jumlah terdaftar setelah aksi.
	SeatsAfter int `json:"seats_after"`

	// OccurredAt - waktu aksi.
	OccurredAt time.Time `json:"occurred_at"`
}

// GetStudentRecordResult berisi hasil permintaan potret mahasiswa.
type GetStudentRecordResult struct {
	// Student - potret mahasiswa.
	Student StudentRecordDTO `json:"student"`

	// GeneratedAt - waktu hasil dibuat.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetStudentRecordHandler menangani permintaan potret mahasiswa.
type GetStudentRecordHandler struct {
	directory      student.Directory
	transcriptRepo student.TranscriptRepository
	auditLog       enrollment.LogRepository
}

// NewGetStudentRecordHandler membuat handler baru.
// auditLog boleh nil; bagian aktivitas lalu dikosongkan.
func NewGetStudentRecordHandler(
	directory student.Directory,
	transcriptRepo student.TranscriptRepository,
	auditLog enrollment.LogRepository,
) *GetStudentRecordHandler {
	return &GetStudentRecordHandler{
		directory:      directory,
		transcriptRepo: transcriptRepo,
		auditLog:       auditLog,
	}
}

// Handle menjalankan permintaan potret mahasiswa.
func (h *GetStudentRecordHandler) Handle(ctx context.Context, query GetStudentRecordQuery) (*GetStudentRecordResult, error) {
	// Validasi
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetStudentRecord", shared.ErrValidation, err.Error(), err)
	}

	// Mahasiswa harus ada
	stud, err := h.directory.FindByID(ctx, query.StudentID)
	if err != nil {
		return nil, shared.WrapError("query", "GetStudentRecord", shared.ErrNotFound, "student not found", err)
	}

	// Transkrip kelulusan
	transcript, err := h.transcriptRepo.GetTranscript(ctx, query.StudentID)
	if err != nil {
		return nil, shared.WrapError("query", "GetStudentRecord", shared.ErrExternalService, "failed to load transcript", err)
	}

	// Aktivitas terakhir; kegagalan menurunkan hasil, bukan menggagalkannya
	var activity []*enrollment.LogEntry
	if h.auditLog != nil {
		activity, err = h.auditLog.GetByStudent(ctx, query.StudentID, query.ActivityLimit)
		if err != nil {
			activity = nil
		}
	}

	return &GetStudentRecordResult{
		Student:     h.buildDTO(stud, transcript, activity),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// buildDTO menyusun DTO dari objek domain.
func (h *GetStudentRecordHandler) buildDTO(
	stud *student.Student,
	transcript student.Transcript,
	activity []*enrollment.LogEntry,
) StudentRecordDTO {
	dto := StudentRecordDTO{
		NIM:                string(stud.NIM),
		FullName:           stud.FullName,
		Email:              string(stud.Email),
		Program:            stud.Program,
		TermNumber:         stud.TermNumber,
		IPK:                float64(stud.IPK),
		Status:             string(stud.Status),
		CanEnroll:          stud.CanEnroll(),
		Completions:        make([]CompletionDTO, 0, len(transcript)),
		TotalCreditsEarned: transcript.TotalCredits(),
	}

	for _, c := range transcript {
		dto.Completions = append(dto.Completions, CompletionDTO{
			CourseCode:  c.CourseCode,
			Grade:       c.Grade,
			Credits:     c.Credits,
			CompletedAt: c.CompletedAt,
		})
	}

	for _, e := range activity {
		dto.RecentActivity = append(dto.RecentActivity, ActivityDTO{
			Action:     string(e.Action),
			CourseCode: e.CourseCode,
			SeatsAfter: e.SeatsAfter,
			OccurredAt: e.OccurredAt,
		})
	}

	return dto
}
