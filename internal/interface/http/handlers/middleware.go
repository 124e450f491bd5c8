package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/siakad-hub/siakad-enrollment-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// APIKeyAuth guards the registrar's administrative endpoints. The server
// stores a bcrypt hash of the key, never the key itself, so a leaked
// config file does not leak the key.
type APIKeyAuth struct {
	headerName string
	keyHash    []byte
}

// NewAPIKeyAuth creates an authenticator from a bcrypt hash of the key.
// An empty hash disables every endpoint the middleware guards.
func NewAPIKeyAuth(headerName, bcryptHash string) *APIKeyAuth {
	return &APIKeyAuth{
		headerName: headerName,
		keyHash:    []byte(bcryptHash),
	}
}

// Enabled reports whether a key hash is configured.
func (a *APIKeyAuth) Enabled() bool {
	return len(a.keyHash) > 0
}

// IsValid checks a presented key against the stored hash.
func (a *APIKeyAuth) IsValid(key string) bool {
	if !a.Enabled() || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.keyHash, []byte(key)) == nil
}

// Middleware returns an HTTP middleware that requires a valid API key.
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			writeError(w, http.StatusServiceUnavailable, "admin_disabled", "Administrative endpoints are not configured")
			return
		}

		key := r.Header.Get(a.headerName)

		// Also check Authorization header with Bearer scheme
		if key == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing_api_key", "API key is required")
			return
		}

		if !a.IsValid(key) {
			writeError(w, http.StatusUnauthorized, "invalid_api_key", "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITING
// ══════════════════════════════════════════════════════════════════════════════

// RateLimiter decides whether a caller may proceed.
type RateLimiter interface {
	// Allow reports whether the caller identified by key is under the limit.
	Allow(ctx context.Context, key string) bool
}

// rateLimitScript increments the caller's counter and stamps the window
// TTL in the same round trip, so a crash between the two commands cannot
// leave an immortal key. Returns 1 while the caller is under the limit.
const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// RedisRateLimiter counts requests per caller in Redis, so the limit holds
// across api replicas. Registration morning traffic lands on several
// replicas behind the load balancer; a per-process limiter would multiply
// the effective limit by the replica count.
type RedisRateLimiter struct {
	client redis.Scripter
	script *redis.Script
	limit  int64
	window time.Duration
	logger *logger.Logger
}

// NewRedisRateLimiter creates a limiter allowing limit requests per window.
func NewRedisRateLimiter(client redis.Scripter, limit int, window time.Duration, log *logger.Logger) *RedisRateLimiter {
	if log == nil {
		log = logger.Default()
	}

	return &RedisRateLimiter{
		client: client,
		script: redis.NewScript(rateLimitScript),
		limit:  int64(limit),
		window: window,
		logger: log,
	}
}

// Allow reports whether the caller identified by key is under the limit.
// Limiter failures admit the request: refusing every caller because Redis
// blinked would turn a cache outage into an API outage.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	if l.client == nil || key == "" || l.limit <= 0 {
		return true
	}

	ttl := l.window.Milliseconds()
	if ttl <= 0 {
		ttl = time.Minute.Milliseconds()
	}

	// A slow limiter must not stall the request it is counting.
	ctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()

	allowed, err := l.script.Run(ctx, l.client, []string{"ratelimit:http:" + key}, ttl, l.limit).Int64()
	if err != nil {
		l.logger.Warn("rate limiter unavailable, failing open", logger.Err(err))
		return true
	}

	return allowed == 1
}

// ══════════════════════════════════════════════════════════════════════════════
// SECURITY HEADERS MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// securityHeaders go on every API response. The API serves JSON only, so
// the CSP forbids everything and frames are refused outright.
var securityHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Referrer-Policy":         "strict-origin-when-cross-origin",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
}

// SecurityHeadersMiddleware stamps the standard security headers before
// the handler runs.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		for name, value := range securityHeaders {
			header.Set(name, value)
		}
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST SIZE LIMIT MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// RequestSizeLimitMiddleware rejects oversized request bodies. A declared
// length over the cap fails fast with 413; bodies without a declared
// length are capped by MaxBytesReader while the handler reads.
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body exceeds the size limit")
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE CHAIN
// ══════════════════════════════════════════════════════════════════════════════

// MiddlewareFunc wraps an http.Handler with one concern.
type MiddlewareFunc func(http.Handler) http.Handler

// Chain composes middleware so the first entry ends up outermost, which
// reads in the same order the request passes through.
func Chain(stack ...MiddlewareFunc) MiddlewareFunc {
	return func(inner http.Handler) http.Handler {
		wrapped := inner
		for i := len(stack) - 1; i >= 0; i-- {
			wrapped = stack[i](wrapped)
		}
		return wrapped
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

// writeError writes a minimal JSON error. Middleware responses skip the
// response envelope the parent package builds; clients only ever see these
// before a handler runs.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q,"message":%q}`, code, message)
}
