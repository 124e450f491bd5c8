package query

import (
	"context"
	"errors"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/course"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COURSE AVAILABILITY QUERY
// Mengambil snapshot ketersediaan kursi sebuah mata kuliah. Jalur baca panas
// untuk halaman pemilihan mata kuliah, jadi hasilnya dilayani read-through
// dari cache Redis; katalog hanya disentuh saat cache miss.
// ══════════════════════════════════════════════════════════════════════════════

// GetCourseAvailabilityQuery berisi parameter permintaan snapshot kursi.
type GetCourseAvailabilityQuery struct {
	// CourseCode - kode mata kuliah.
	CourseCode string

	// BypassCache memaksa pembacaan langsung dari katalog.
	BypassCache bool
}

// Validate memeriksa kebenaran parameter query.
func (q *GetCourseAvailabilityQuery) Validate() error {
	if q.CourseCode == "" {
		return errors.New("course_code must be provided")
	}
	return nil
}

// GetCourseAvailabilityResult berisi snapshot ketersediaan kursi.
type GetCourseAvailabilityResult struct {
	// Availability - snapshot kursi mata kuliah.
	Availability course.Availability `json:"availability"`

	// FromCache - true jika snapshot dilayani dari cache.
	FromCache bool `json:"from_cache"`

	// GeneratedAt - waktu hasil dibuat.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetCourseAvailabilityHandler menangani permintaan snapshot kursi.
type GetCourseAvailabilityHandler struct {
	catalog course.Catalog
	cache   course.AvailabilityCache
}

// NewGetCourseAvailabilityHandler membuat handler baru.
// Cache boleh nil; handler lalu selalu membaca katalog.
func NewGetCourseAvailabilityHandler(
	catalog course.Catalog,
	cache course.AvailabilityCache,
) *GetCourseAvailabilityHandler {
	return &GetCourseAvailabilityHandler{
		catalog: catalog,
		cache:   cache,
	}
}

// Handle menjalankan permintaan snapshot kursi.
func (h *GetCourseAvailabilityHandler) Handle(ctx context.Context, query GetCourseAvailabilityQuery) (*GetCourseAvailabilityResult, error) {
	// Validasi
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetCourseAvailability", shared.ErrValidation, err.Error(), err)
	}

	// Coba cache dulu; kegagalan cache diperlakukan sebagai miss
	if h.cache != nil && !query.BypassCache {
		if snap, err := h.cache.Get(ctx, query.CourseCode); err == nil {
			return &GetCourseAvailabilityResult{
				Availability: *snap,
				FromCache:    true,
				GeneratedAt:  time.Now().UTC(),
			}, nil
		}
	}

	// Cache miss: baca katalog
	crs, err := h.catalog.FindByCode(ctx, query.CourseCode)
	if err != nil {
		return nil, shared.WrapError("query", "GetCourseAvailability", shared.ErrNotFound, "course not found", err)
	}

	snap := course.NewAvailability(crs)

	// Isi ulang cache; kegagalan tidak menggagalkan pembacaan
	if h.cache != nil {
		_ = h.cache.Set(ctx, snap)
	}

	return &GetCourseAvailabilityResult{
		Availability: snap,
		FromCache:    false,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}
