// Package query contains read operations (CQRS - Queries).
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
// VALIDATE CREDIT LIMIT QUERY
// Memeriksa apakah jumlah SKS yang diminta mahasiswa masih dalam batas
// kebijakan berdasarkan IPK. Murni baca: tidak mengubah state apa pun.
// Batas bersifat inklusif - meminta tepat di batas maksimum diperbolehkan.
// ══════════════════════════════════════════════════════════════════════════════

// ValidateCreditLimitQuery berisi parameter pemeriksaan batas SKS.
type ValidateCreditLimitQuery struct {
	// StudentID - NIM mahasiswa.
	StudentID string

	// RequestedCredits - jumlah SKS yang ingin diambil semester ini.
	RequestedCredits int
}

// Validate memeriksa kebenaran parameter query.
func (q *ValidateCreditLimitQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id must be provided")
	}
	if q.RequestedCredits < 0 {
		return errors.New("requested_credits cannot be negative")
	}
	return nil
}

// ValidateCreditLimitResult berisi hasil pemeriksaan batas SKS.
type ValidateCreditLimitResult struct {
	// StudentID - NIM mahasiswa yang diperiksa.
	StudentID string `json:"student_id"`

	// IPK - IPK yang dipakai menentukan batas.
	IPK float64 `json:"ipk"`

	// MaxCredits - batas SKS menurut kebijakan.
	MaxCredits int `json:"max_credits"`

	// RequestedCredits - jumlah SKS yang diminta.
	RequestedCredits int `json:"requested_credits"`

	// Allowed - true jika requested <= max (inklusif).
	Allowed bool `json:"allowed"`

	// GeneratedAt - waktu hasil dibuat.
	GeneratedAt time.Time `json:"generated_at"`
}

// ValidateCreditLimitHandler menangani pemeriksaan batas SKS.
type ValidateCreditLimitHandler struct {
	directory student.Directory
	policy    enrollment.CreditLimitPolicy
}

// NewValidateCreditLimitHandler membuat handler baru.
func NewValidateCreditLimitHandler(
	directory student.Directory,
	policy enrollment.CreditLimitPolicy,
) *ValidateCreditLimitHandler {
	return &ValidateCreditLimitHandler{
		directory: directory,
		policy:    policy,
	}
}

// Handle menjalankan pemeriksaan batas SKS.
func (h *ValidateCreditLimitHandler) Handle(ctx context.Context, query ValidateCreditLimitQuery) (*ValidateCreditLimitResult, error) {
	// Validasi
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "ValidateCreditLimit", shared.ErrValidation, err.Error(), err)
	}

	// Mahasiswa harus ada
	stud, err := h.directory.FindByID(ctx, query.StudentID)
	if err != nil {
		return nil, shared.WrapError("query", "ValidateCreditLimit", shared.ErrNotFound, "student not found", err)
	}

	// Kebijakan menentukan batas dari IPK; perbandingan inklusif
	maxCredits := h.policy.MaxCredits(float64(stud.IPK))

	return &ValidateCreditLimitResult{
		StudentID:        string(stud.NIM),
		IPK:              float64(stud.IPK),
		MaxCredits:       maxCredits,
		RequestedCredits: query.RequestedCredits,
		Allowed:          query.RequestedCredits <= maxCredits,
		GeneratedAt:      time.Now().UTC(),
	}, nil
}
