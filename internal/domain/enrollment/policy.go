package enrollment

// ══════════════════════════════════════════════════════════════════════════════
// CREDIT LIMIT POLICY
// Kebijakan batas SKS per term berdasarkan IPK. Mesin keputusan hanya
// bergantung pada interface-nya; tabel standar institusi ada di bawah.
// ══════════════════════════════════════════════════════════════════════════════

// CreditLimitPolicy menentukan batas SKS maksimum untuk sebuah IPK.
type CreditLimitPolicy interface {
	// MaxCredits mengembalikan jumlah SKS maksimum yang boleh diambil
	// mahasiswa dengan IPK tersebut dalam satu term.
	MaxCredits(ipk float64) int
}

// StandardCreditPolicy adalah tabel SKS standar institusi.
//
//	IPK >= 3.00        -> 24 SKS
//	2.50 <= IPK < 3.00 -> 21 SKS
//	2.00 <= IPK < 2.50 -> 18 SKS
//	IPK < 2.00         -> 15 SKS
type StandardCreditPolicy struct{}

// NewStandardCreditPolicy membuat kebijakan standar.
func NewStandardCreditPolicy() StandardCreditPolicy {
	return StandardCreditPolicy{}
}

// MaxCredits mengimplementasikan CreditLimitPolicy.
func (StandardCreditPolicy) MaxCredits(ipk float64) int {
	switch {
	case ipk >= 3.00:
		return 24
	case ipk >= 2.50:
		return 21
	case ipk >= 2.00:
		return 18
	default:
		return 15
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ID GENERATOR
// ══════════════════════════════════════════════════════════════════════════════

// IDGenerator menghasilkan ID pendaftaran baru.
// Setiap ID wajib membawa prefiks ENR- dan unik antar pemanggilan.
type IDGenerator interface {
	// NextID mengembalikan satu ID pendaftaran baru.
	NextID() string
}
