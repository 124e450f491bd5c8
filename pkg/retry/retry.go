// Package retry runs operations again after transient failures, with
// exponential backoff and jitter. It is used for calls that leave the
// process, such as SMTP delivery. Standard library only.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR CLASSIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// RetryableError marks an error as worth another attempt.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps an error so the default classification retries it.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether the error carries the retryable marker.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// PermanentError marks an error as pointless to retry.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps an error so no further attempts are made.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether the error carries the permanent marker.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// unwrapMarker strips a retryable or permanent marker so callers get the
// underlying error back.
func unwrapMarker(err error) error {
	var re *RetryableError
	if errors.As(err, &re) {
		return re.Err
	}
	var pe *PermanentError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// RETRIER
// ══════════════════════════════════════════════════════════════════════════════

// Retrier runs operations with bounded attempts and growing delays.
//
// Which errors get retried: a PermanentError never is; with a RetryIf
// predicate set, the predicate decides; otherwise only errors wrapped
// with Retryable are tried again.
type Retrier struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	multiplier  float64
	jitter      float64

	retryIf func(error) bool
	onRetry func(attempt int, err error, delay time.Duration)
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithMaxAttempts sets the total number of tries, including the first.
func WithMaxAttempts(n int) Option {
	return func(r *Retrier) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithInitialDelay sets the wait before the second attempt.
func WithInitialDelay(d time.Duration) Option {
	return func(r *Retrier) {
		if d > 0 {
			r.baseDelay = d
		}
	}
}

// WithMaxDelay caps the backoff growth.
func WithMaxDelay(d time.Duration) Option {
	return func(r *Retrier) {
		if d > 0 {
			r.maxDelay = d
		}
	}
}

// WithMultiplier sets the backoff growth factor.
func WithMultiplier(m float64) Option {
	return func(r *Retrier) {
		if m >= 1.0 {
			r.multiplier = m
		}
	}
}

// WithJitter sets the jitter fraction, 0 for deterministic delays up to
// 1 for fully randomized ones.
func WithJitter(j float64) Option {
	return func(r *Retrier) {
		if j >= 0 && j <= 1.0 {
			r.jitter = j
		}
	}
}

// WithRetryIf replaces the default marker-based classification.
func WithRetryIf(fn func(error) bool) Option {
	return func(r *Retrier) {
		r.retryIf = fn
	}
}

// WithOnRetry sets a callback invoked before each wait, for logging.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(r *Retrier) {
		r.onRetry = fn
	}
}

// New builds a Retrier. Without options: three attempts, 100ms initial
// delay doubling up to 30s, 10% jitter.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		maxAttempts: 3,
		baseDelay:   100 * time.Millisecond,
		maxDelay:    30 * time.Second,
		multiplier:  2.0,
		jitter:      0.1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs the operation until it succeeds, exhausts the attempts, hits a
// non-retryable error, or the context ends. The returned error is the
// operation's last one with any classification marker stripped; a context
// error is returned only when no attempt ever ran.
func (r *Retrier) Do(ctx context.Context, operation func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = unwrapMarker(err)

		if !r.shouldRetry(err) || attempt == r.maxAttempts {
			return lastErr
		}

		wait := r.backoff(attempt)
		if r.onRetry != nil {
			r.onRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
}

func (r *Retrier) shouldRetry(err error) bool {
	if IsPermanent(err) {
		return false
	}
	if r.retryIf != nil {
		return r.retryIf(err)
	}
	return IsRetryable(err)
}

// backoff returns the wait after the given attempt number.
func (r *Retrier) backoff(attempt int) time.Duration {
	wait := float64(r.baseDelay) * math.Pow(r.multiplier, float64(attempt-1))
	if ceiling := float64(r.maxDelay); wait > ceiling {
		wait = ceiling
	}
	if r.jitter > 0 {
		wait += wait * r.jitter * (rand.Float64()*2 - 1)
	}
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
