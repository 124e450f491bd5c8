// Package eventhandler berisi pengolah event domain.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON ENROLLMENT CHANGED HANDLER
// Menjaga cache ketersediaan kursi tetap segar setelah keputusan enroll/drop.
//
// Fungsi utama:
// 1. Invalidasi snapshot lama - pembaca berikutnya tidak melihat kursi basi
// 2. Pengisian ulang (opsional) - jalur baca panas langsung hangat kembali
//
// Pengolah ini berjalan asinkron setelah operasi aslinya selesai; kegagalan
// di sini tidak pernah mempengaruhi keputusan pendaftaran yang sudah jadi.
// ═══════════════════════════════════════════════════════════════════════════

// OnEnrollmentChangedHandler memperbarui cache ketersediaan kursi.
type OnEnrollmentChangedHandler struct {
	// Katalog sebagai sumber kebenaran saat pengisian ulang
	catalog course.Catalog

	// Cache snapshot ketersediaan
	cache course.AvailabilityCache

	// Logger untuk logging terstruktur
	logger *slog.Logger

	// Configuration
	config EnrollmentChangedConfig
}

// EnrollmentChangedConfig berisi konfigurasi pengolah.
type EnrollmentChangedConfig struct {
	// RefreshAfterInvalidate - isi ulang snapshot dari katalog setelah
	// invalidasi, bukan hanya menghapusnya.
	RefreshAfterInvalidate bool
}

// DefaultEnrollmentChangedConfig mengembalikan konfigurasi bawaan.
func DefaultEnrollmentChangedConfig() EnrollmentChangedConfig {
	return EnrollmentChangedConfig{
		RefreshAfterInvalidate: true,
	}
}

// NewOnEnrollmentChangedHandler membuat pengolah baru.
func NewOnEnrollmentChangedHandler(
	catalog course.Catalog,
	cache course.AvailabilityCache,
	logger *slog.Logger,
	config EnrollmentChangedConfig,
) *OnEnrollmentChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnEnrollmentChangedHandler{
		catalog: catalog,
		cache:   cache,
		logger:  logger.With("handler", "on_enrollment_changed"),
		config:  config,
	}
}

// Handle mengolah event perubahan pendaftaran.
// Mengimplementasikan shared.EventHandler.
func (h *OnEnrollmentChangedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	// Type assertion untuk mendapatkan kode mata kuliah
	var courseCode string
	switch e := event.(type) {
	case shared.EnrollmentApprovedEvent:
		courseCode = e.CourseCode
	case shared.EnrollmentDroppedEvent:
		courseCode = e.CourseCode
	case shared.CourseSeatsReconciledEvent:
		courseCode = e.CourseCode
	default:
		h.logger.Warn("received unexpected event",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing enrollment change",
		"event_type", event.EventType(),
		"course_code", courseCode,
	)

	if h.cache == nil {
		return nil
	}

	// 1. Snapshot lama dibuang dulu
	if err := h.cache.Invalidate(ctx, courseCode); err != nil {
		h.logger.Error("failed to invalidate availability cache",
			"course_code", courseCode,
			"error", err,
		)
		return fmt.Errorf("invalidate availability: %w", err)
	}

	// 2. Isi ulang dari katalog (jika diaktifkan)
	if h.config.RefreshAfterInvalidate {
		if err := h.refreshSnapshot(ctx, courseCode); err != nil {
			// Pembaca berikutnya mengisi lewat read-through; tidak kritis
			h.logger.Warn("failed to refresh availability snapshot",
				"course_code", courseCode,
				"error", err,
			)
		}
	}

	return nil
}

// refreshSnapshot membaca katalog dan menulis snapshot segar ke cache.
func (h *OnEnrollmentChangedHandler) refreshSnapshot(ctx context.Context, courseCode string) error {
	crs, err := h.catalog.FindByCode(ctx, courseCode)
	if err != nil {
		return fmt.Errorf("get course: %w", err)
	}

	if err := h.cache.Set(ctx, course.NewAvailability(crs)); err != nil {
		return fmt.Errorf("set availability: %w", err)
	}

	return nil
}

// EventTypes mengembalikan daftar tipe event yang diolah handler ini.
func (h *OnEnrollmentChangedHandler) EventTypes() []shared.EventType {
	return []shared.EventType{
		shared.EventEnrollmentApproved,
		shared.EventEnrollmentDropped,
		shared.EventCourseSeatsReconciled,
	}
}
