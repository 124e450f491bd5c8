// Package notification berisi kontrak pengiriman notifikasi mahasiswa.
package notification

import (
	"context"
	"errors"
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFIER
// Mesin pendaftaran memanggil Send secara fire-and-forget: kegagalan dicatat
// di log dan operasi tetap dianggap berhasil. Tidak ada retry maupun rollback
// dari sisi mesin; retry internal adalah urusan implementasi.
// ══════════════════════════════════════════════════════════════════════════════

// Notifier mengirim satu pesan ke satu alamat.
type Notifier interface {
	// Send mengirim pesan dengan subjek dan isi ke alamat tujuan.
	Send(ctx context.Context, to, subject, body string) error
}

// Message adalah pasangan subjek dan isi yang siap dikirim.
type Message struct {
	Subject string
	Body    string
}

var (
	// ErrEmptyRecipient - alamat tujuan kosong.
	ErrEmptyRecipient = errors.New("notification recipient must not be empty")

	// ErrEmptySubject - subjek kosong.
	ErrEmptySubject = errors.New("notification subject must not be empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGE BUILDERS
// Kalimat konfirmasi adalah bagian dari kontrak sistem; jangan diubah tanpa
// menyesuaikan konsumen surel di sisi kampus.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// SubjectEnrollment - subjek surel konfirmasi pendaftaran.
	SubjectEnrollment = "Enrollment Confirmation"

	// SubjectDrop - subjek surel konfirmasi pembatalan.
	SubjectDrop = "Course Drop Confirmation"
)

// NewEnrollmentConfirmation membangun pesan konfirmasi pendaftaran.
func NewEnrollmentConfirmation(courseName string) Message {
	return Message{
		Subject: SubjectEnrollment,
		Body:    fmt.Sprintf("You have been enrolled in: %s", courseName),
	}
}

// NewDropConfirmation membangun pesan konfirmasi pembatalan.
func NewDropConfirmation(courseName string) Message {
	return Message{
		Subject: SubjectDrop,
		Body:    fmt.Sprintf("You have dropped: %s", courseName),
	}
}
