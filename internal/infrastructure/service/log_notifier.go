package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/notification"
)

// LogNotifier implements notification.Notifier by writing deliveries to the
// log instead of the mail relay. Used in development and when SMTP_DISABLED
// is set.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{
		logger: logger,
	}
}

func (n *LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return notification.ErrEmptyRecipient
	}
	if strings.TrimSpace(subject) == "" {
		return notification.ErrEmptySubject
	}

	n.logger.Info("log notifier: delivering message",
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}
