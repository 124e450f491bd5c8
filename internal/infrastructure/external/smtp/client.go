// Package smtp implements the campus mail relay client.
// This package handles outgoing enrollment mail (confirmations, digests),
// wrapping delivery with retries and a circuit breaker so a flaky relay
// never stalls the enrollment flow.
package smtp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/textproto"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/notification"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
	"github.com/siakad-hub/siakad-enrollment-hub/pkg/circuitbreaker"
	"github.com/siakad-hub/siakad-enrollment-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the SMTP relay client.
type ClientConfig struct {
	// Host is the relay hostname
	Host string

	// Port is the relay port (587 for STARTTLS)
	Port int

	// Username and Password authenticate against the relay
	Username string
	Password string

	// From is the sender address on outgoing mail
	From string

	// FromName is the display name paired with From
	FromName string

	// ContentType of message bodies (text/plain or text/html)
	ContentType string

	// SendTimeout bounds a single delivery attempt
	SendTimeout time.Duration

	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// RetryBaseDelay and RetryMaxDelay shape the backoff between attempts
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	// BreakerThreshold is the failure count that opens the circuit
	BreakerThreshold int

	// BreakerTimeout is how long the circuit stays open before probing
	BreakerTimeout time.Duration

	// BreakerHalfOpenMax limits concurrent probes in half-open state
	BreakerHalfOpenMax int

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables per-delivery debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults for a campus relay.
func DefaultClientConfig(host string, port int) ClientConfig {
	return ClientConfig{
		Host:               host,
		Port:               port,
		FromName:           "SIAKAD Enrollment Hub",
		ContentType:        "text/plain",
		SendTimeout:        15 * time.Second,
		MaxRetries:         3,
		RetryBaseDelay:     500 * time.Millisecond,
		RetryMaxDelay:      10 * time.Second,
		BreakerThreshold:   5,
		BreakerTimeout:     60 * time.Second,
		BreakerHalfOpenMax: 1,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client delivers notification mail through the campus SMTP relay.
// It satisfies notification.Notifier.
type Client struct {
	config  ClientConfig
	dialer  *gomail.Dialer
	logger  *slog.Logger
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
}

// NewClient creates a new SMTP relay client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.ContentType == "" {
		config.ContentType = "text/plain"
	}

	logger := config.Logger

	breaker := circuitbreaker.New("smtp-relay",
		circuitbreaker.WithFailureThreshold(config.BreakerThreshold),
		circuitbreaker.WithTimeout(config.BreakerTimeout),
		circuitbreaker.WithMaxHalfOpenRequests(config.BreakerHalfOpenMax),
		circuitbreaker.WithOnStateChange(func(name string, from, to circuitbreaker.State) {
			logger.Warn("smtp circuit state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		}),
	)

	retrier := retry.New(
		retry.WithMaxAttempts(config.MaxRetries+1),
		retry.WithInitialDelay(config.RetryBaseDelay),
		retry.WithMaxDelay(config.RetryMaxDelay),
		retry.WithRetryIf(shared.IsRetryable),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Warn("smtp send retrying",
				"attempt", attempt,
				"delay", delay,
				"error", err,
			)
		}),
	)

	return &Client{
		config:  config,
		dialer:  gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		logger:  logger,
		retrier: retrier,
		breaker: breaker,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DELIVERY
// ══════════════════════════════════════════════════════════════════════════════

// Send delivers one message to one recipient.
// Transient relay failures are retried with backoff; the circuit breaker
// short-circuits delivery while the relay is down. Unknown failures are not
// retried so a student never receives the same confirmation twice.
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return notification.ErrEmptyRecipient
	}
	if strings.TrimSpace(subject) == "" {
		return notification.ErrEmptySubject
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(c.config.From, c.config.FromName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody(c.config.ContentType, body)

	if c.config.Debug {
		c.logger.Debug("smtp delivery attempt", "to", to, "subject", subject)
	}

	start := time.Now()
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			return c.dialAndSend(ctx, m)
		})
	})
	if err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}

	c.logger.Info("smtp message sent",
		"to", to,
		"subject", subject,
		"took", time.Since(start),
	)
	return nil
}

// dialAndSend performs a single delivery attempt bounded by SendTimeout.
// gomail has no context support, so the dial runs on its own goroutine and
// the attempt is abandoned when the deadline passes. The goroutine finishes
// in the background; the relay sees at most one copy of the message.
func (c *Client) dialAndSend(ctx context.Context, m *gomail.Message) error {
	attemptCtx := ctx
	if c.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.config.SendTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- c.dialer.DialAndSend(m)
	}()

	select {
	case <-attemptCtx.Done():
		return fmt.Errorf("%w: %v", shared.ErrSMTPTimeout, attemptCtx.Err())
	case err := <-done:
		if err != nil {
			return classifyDeliveryError(err)
		}
		return nil
	}
}

// classifyDeliveryError maps relay failures onto the shared error taxonomy.
// 4xx SMTP replies are transient per RFC 5321 and retryable; 5xx replies are
// permanent rejections. Network-level failures count as relay unavailability.
func classifyDeliveryError(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		if protoErr.Code >= 400 && protoErr.Code < 500 {
			return fmt.Errorf("%w: %v", shared.ErrSMTPUnavailable, err)
		}
		return fmt.Errorf("%w: %v", shared.ErrSMTPRejected, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return fmt.Errorf("%w: %v", shared.ErrSMTPTimeout, err)
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "eof"):
		return fmt.Errorf("%w: %v", shared.ErrSMTPUnavailable, err)
	}

	return fmt.Errorf("%w: %v", shared.ErrSMTPRejected, err)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Ping dials the relay and closes the connection without sending mail.
func (c *Client) Ping(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		closer, err := c.dialer.Dial()
		if err != nil {
			done <- err
			return
		}
		done <- closer.Close()
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", shared.ErrSMTPTimeout, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrSMTPUnavailable, err)
		}
		return nil
	}
}

// ClientStatus reports the relay client's circuit state.
type ClientStatus struct {
	BreakerState  string
	BreakerCounts circuitbreaker.Counts
}

// Status returns the current status of the client.
func (c *Client) Status() ClientStatus {
	return ClientStatus{
		BreakerState:  c.breaker.State().String(),
		BreakerCounts: c.breaker.Counts(),
	}
}

// Reset closes the circuit breaker and clears its counters.
func (c *Client) Reset() {
	c.breaker.Reset()
}
