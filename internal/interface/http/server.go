// Package http implements the REST API of the SIAKAD Enrollment Hub.
// The API exposes the enrollment decision engine (enroll, drop, credit
// limit validation), read-side views for students and seat availability,
// and API-key protected administrative endpoints for the registrar.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/application/command"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/application/query"
	"github.com/siakad-hub/siakad-enrollment-hub/internal/interface/http/handlers"
	"github.com/siakad-hub/siakad-enrollment-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config controls the listener and the middleware around the routes.
type Config struct {
	Host string
	Port int

	// Connection handling, passed through to net/http.Server.
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int

	// EnableCORS opens the API to browser frontends; the student portal
	// runs on its own origin. AllowedOrigins narrows who may call.
	EnableCORS     bool
	AllowedOrigins []string

	// RateLimitPerMinute caps requests per client IP. Zero disables
	// limiting entirely.
	RateLimitPerMinute int

	// APIKeyHeader names the header carrying the registrar's key, and
	// AdminAPIKeyHash is the bcrypt hash it is checked against. An empty
	// hash keeps the administrative endpoints switched off.
	APIKeyHeader    string
	AdminAPIKeyHash string
}

// DefaultConfig returns settings suitable for a single replica behind the
// campus reverse proxy.
func DefaultConfig() Config {
	return Config{
		Host:               "0.0.0.0",
		Port:               8080,
		ReadTimeout:        15 * time.Second,
		WriteTimeout:       15 * time.Second,
		IdleTimeout:        60 * time.Second,
		MaxHeaderBytes:     1 << 20,
		EnableCORS:         true,
		AllowedOrigins:     []string{"*"},
		RateLimitPerMinute: 120,
		APIKeyHeader:       "X-API-Key",
	}
}

// Address returns the host:port the listener binds.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// maxBodyBytes caps request bodies. Every payload this API accepts fits in
// a fraction of this.
const maxBodyBytes = 1 << 20

// rateLimitWindow is the accounting window behind RateLimitPerMinute.
const rateLimitWindow = time.Minute

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies are the application-layer collaborators behind the routes.
// A nil handler answers 501 instead of crashing, so a partially wired
// binary still serves what it has.
type Dependencies struct {
	// Write side.
	EnrollCourseHandler     *command.EnrollCourseHandler
	DropCourseHandler       *command.DropCourseHandler
	RegisterStudentHandler  *command.RegisterStudentHandler
	AddCourseHandler        *command.AddCourseHandler
	RecordCompletionHandler *command.RecordCompletionHandler

	// Read side.
	ValidateCreditLimitHandler   *query.ValidateCreditLimitHandler
	GetStudentRecordHandler      *query.GetStudentRecordHandler
	GetCourseAvailabilityHandler *query.GetCourseAvailabilityHandler

	// Logger receives the access log and handler errors. Nil falls back
	// to the process-wide default.
	Logger *logger.Logger

	// HealthChecker aggregates dependency probes for /health.
	HealthChecker handlers.HealthChecker

	// RateLimiter counts requests across replicas (Redis-backed in
	// production). Nil falls back to a per-process limiter.
	RateLimiter handlers.RateLimiter
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the assembled REST API.
type Server struct {
	cfg  Config
	deps Dependencies
	log  *logger.Logger

	limiter handlers.RateLimiter
	httpSrv *http.Server

	// startedAt holds the start instant as unix nanoseconds; zero while
	// the listener is down.
	startedAt atomic.Int64
}

// NewServer assembles the router, the middleware pipeline and the listener
// configuration. The server accepts no connections until Start.
func NewServer(cfg Config, deps Dependencies) *Server {
	s := &Server{cfg: cfg, deps: deps, log: deps.Logger}
	if s.log == nil {
		s.log = logger.Default()
	}

	// Prefer the shared limiter; a single replica works without one.
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = deps.RateLimiter
		if s.limiter == nil {
			s.limiter = newLocalRateLimiter(cfg.RateLimitPerMinute, rateLimitWindow)
		}
	}

	s.httpSrv = &http.Server{
		Addr:           cfg.Address(),
		Handler:        s.pipeline(s.routes()),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}
	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// routes builds the route table. The /api/v1 routes are registered flat
// on the root router with their full paths: a PathPrefix subrouter copies
// the prefix matcher into every route, and once a later route's prefix
// matches, mux clears the method-mismatch flag, so wrong-method requests
// would answer 404 instead of 405. The per-group middleware wraps each
// handler instead, which also keeps the registrar's API-key check off the
// student-facing endpoints.
func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet) // kubernetes alias
	r.HandleFunc("/health/ready", s.handleReady).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleLive).Methods(http.MethodGet)

	public := handlers.Chain(
		handlers.SecurityHeadersMiddleware,
		handlers.RequestSizeLimitMiddleware(maxBodyBytes),
	)

	r.Handle("/api/v1/enrollments", public(http.HandlerFunc(s.handleEnroll))).Methods(http.MethodPost)
	r.Handle("/api/v1/students/{studentID}/enrollments/{courseCode}", public(http.HandlerFunc(s.handleDrop))).Methods(http.MethodDelete)
	r.Handle("/api/v1/students/{studentID}/credit-limit", public(http.HandlerFunc(s.handleValidateCreditLimit))).Methods(http.MethodGet)
	r.Handle("/api/v1/students/{studentID}", public(http.HandlerFunc(s.handleGetStudentRecord))).Methods(http.MethodGet)
	r.Handle("/api/v1/courses/{courseCode}/availability", public(http.HandlerFunc(s.handleGetAvailability))).Methods(http.MethodGet)

	// Admin endpoints verify the presented key against a bcrypt hash.
	auth := handlers.NewAPIKeyAuth(s.cfg.APIKeyHeader, s.cfg.AdminAPIKeyHash)
	admin := handlers.Chain(
		handlers.SecurityHeadersMiddleware,
		handlers.RequestSizeLimitMiddleware(maxBodyBytes),
		auth.Middleware,
	)

	r.Handle("/api/v1/students", admin(http.HandlerFunc(s.handleRegisterStudent))).Methods(http.MethodPost)
	r.Handle("/api/v1/courses", admin(http.HandlerFunc(s.handleAddCourse))).Methods(http.MethodPost)
	r.Handle("/api/v1/students/{studentID}/completions", admin(http.HandlerFunc(s.handleRecordCompletion))).Methods(http.MethodPost)

	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE PIPELINE
// ══════════════════════════════════════════════════════════════════════════════

// pipeline wraps the router with the cross-cutting middleware, outermost
// first. The request ID must exist before anything logs it, the access log
// must see rate-limited and panicking requests, and recovery sits inside
// the log so a panic still yields a log line with status 500.
func (s *Server) pipeline(router http.Handler) http.Handler {
	stack := []handlers.MiddlewareFunc{
		s.withRequestID,
		s.withAccessLog,
		s.withRecovery,
	}
	if s.limiter != nil {
		stack = append(stack, s.withRateLimit)
	}
	if s.cfg.EnableCORS {
		stack = append(stack, s.corsLayer())
	}
	return handlers.Chain(stack...)(router)
}

// corsLayer builds the CORS middleware from the configured origins.
func (s *Server) corsLayer() handlers.MiddlewareFunc {
	return cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "Authorization", s.cfg.APIKeyHeader, requestIDHeader},
		MaxAge:         86400,
	}).Handler
}

// requestIDHeader carries the caller's correlation ID. The API echoes it
// back and mints one when absent.
const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withAccessLog emits one line per request. The line is written from a
// defer so requests that panic are still accounted for.
func (s *Server) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			s.log.Info("http request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", rec.status),
				logger.Int("bytes", rec.bytes),
				logger.Int64("duration_ms", time.Since(started).Milliseconds()),
				logger.String("ip", clientIP(r)),
				logger.String("request_id", getRequestID(r.Context())),
			)
		}()

		next.ServeHTTP(rec, r)
	})
}

// withRecovery converts a handler panic into a 500 so one bad request
// cannot take down the listener.
func (s *Server) withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			s.log.Error("handler panicked",
				logger.Any("panic", v),
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.String("request_id", getRequestID(r.Context())),
				logger.String("stack", string(debug.Stack())),
			)
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		}()
		next.ServeHTTP(w, r)
	})
}

// withRateLimit asks the limiter before routing. Refusals carry a
// Retry-After hint matching the window.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(rateLimitWindow / time.Second))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(r.Context(), clientIP(r)) {
			w.Header().Set("Retry-After", retryAfter)
			writeJSONError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Request rate limit reached, retry later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures what the handler wrote, for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start runs the listener until Shutdown or a listener error.
func (s *Server) Start() error {
	if !s.startedAt.CompareAndSwap(0, time.Now().UnixNano()) {
		return errors.New("http server already started")
	}

	s.log.Info("http server listening", logger.String("address", s.cfg.Address()))

	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.startedAt.Store(0)
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// StartAsync runs Start on its own goroutine. The returned channel closes
// when the listener stops and carries the error when the stop was not a
// graceful shutdown.
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.Start(); err != nil {
			errCh <- err
		}
	}()
	return errCh
}

// Shutdown drains in-flight requests and stops the listener. Calling it on
// a server that never started is a no-op.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.startedAt.Swap(0) == 0 {
		return nil
	}
	s.log.Info("http server draining")
	return s.httpSrv.Shutdown(ctx)
}

// Uptime reports how long the listener has been up, zero when stopped.
func (s *Server) Uptime() time.Duration {
	startedAt := s.startedAt.Load()
	if startedAt == 0 {
		return 0
	}
	return time.Since(time.Unix(0, startedAt))
}

// Address returns the configured host:port.
func (s *Server) Address() string {
	return s.cfg.Address()
}

// Handler exposes the assembled handler, middleware included, for tests
// that drive the API without a listener.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// envelope is the shape of every response body: payload under "data" on
// success, a machine-readable refusal under "error" otherwise.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorBody  `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// writeEnvelope marshals before touching the ResponseWriter so an encoding
// failure can still change the status code.
func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"success":false,"error":{"code":"encoding_failed","message":"Response could not be encoded"}}`)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// writeJSON wraps data in the envelope. Statuses outside 2xx keep success
// false; /health reuses this with 503 when a dependency is down.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	writeEnvelope(w, status, envelope{Success: status/100 == 2, Data: data})
}

// writeJSONError sends a refusal with a machine-readable code.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeEnvelope(w, status, envelope{Error: &errorBody{Code: code, Message: message}})
}

// writeJSONErrorWithDetails adds the field-level detail line that
// validation refusals carry.
func writeJSONErrorWithDetails(w http.ResponseWriter, status int, code, message, details string) {
	writeEnvelope(w, status, envelope{Error: &errorBody{Code: code, Message: message, Details: details}})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// getRequestID returns the correlation ID stored by withRequestID.
func getRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// clientIP resolves the caller's address, trusting proxy headers first;
// the API sits behind the campus reverse proxy.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// getQueryParamInt reads an integer query parameter, falling back when it
// is absent or malformed.
func getQueryParamInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// getQueryParamBool reads a boolean query parameter; absence is false.
func getQueryParamBool(r *http.Request, key string) bool {
	ok, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && ok
}

// ══════════════════════════════════════════════════════════════════════════════
// IN-PROCESS RATE LIMITER (fallback)
// ══════════════════════════════════════════════════════════════════════════════

// maxTrackedClients bounds the limiter's bucket map. Expired buckets are
// evicted when the map grows past it.
const maxTrackedClients = 4096

// localRateLimiter is a fixed-window counter keyed by client IP, local to
// one process. Deployments with more than one api replica should wire the
// Redis-backed limiter instead; this one cannot see its siblings' counters.
type localRateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*windowBucket
}

type windowBucket struct {
	resetAt time.Time
	count   int
}

func newLocalRateLimiter(limit int, window time.Duration) *localRateLimiter {
	return &localRateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*windowBucket),
	}
}

// Allow counts the request against the caller's current window.
func (l *localRateLimiter) Allow(_ context.Context, key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || now.After(b.resetAt) {
		if len(l.buckets) >= maxTrackedClients {
			l.evictExpired(now)
		}
		l.buckets[key] = &windowBucket{resetAt: now.Add(l.window), count: 1}
		return true
	}

	b.count++
	return b.count <= l.limit
}

// evictExpired drops buckets whose window has passed. Caller holds mu.
func (l *localRateLimiter) evictExpired(now time.Time) {
	for key, b := range l.buckets {
		if now.After(b.resetAt) {
			delete(l.buckets, key)
		}
	}
}
