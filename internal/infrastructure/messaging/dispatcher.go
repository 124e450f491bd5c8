package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher routes bus events to named registrations. Every registration
// runs through the middleware chain with its own timeout and retry budget;
// a registration that exhausts its attempts lands in the dead-letter buffer
// for operator inspection.
type Dispatcher struct {
	bus        shared.EventBus
	regs       map[shared.EventType][]Registration
	middleware []Middleware

	retry       RetryPolicy
	deadLetters *DeadLetterBuffer
	slots       chan struct{}

	logger  *slog.Logger
	metrics *DispatcherMetrics

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Registration binds one handler to one event type.
type Registration struct {
	// Name identifies the handler in logs and dead letters.
	Name string

	// Handler receives the event.
	Handler shared.EventHandler

	// Async detaches the handler from delivery; failures are still retried
	// and recorded, they just never block other registrations.
	Async bool

	// MaxAttempts overrides the dispatcher retry policy when positive.
	MaxAttempts int

	// Timeout bounds one attempt. Zero means the 30s default.
	Timeout time.Duration
}

// RetryPolicy shapes the backoff between handler attempts.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps the backoff growth.
	MaxDelay time.Duration

	// Multiplier is the backoff growth factor per attempt.
	Multiplier float64
}

// DefaultRetryPolicy returns the standard four-attempt policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
	}
}

// delay computes the wait before the given attempt (attempt 2 waits BaseDelay).
func (p RetryPolicy) delay(attempt int) time.Duration {
	wait := float64(p.BaseDelay)
	for i := 2; i < attempt; i++ {
		wait *= p.Multiplier
	}
	if ceiling := float64(p.MaxDelay); wait > ceiling {
		wait = ceiling
	}
	return time.Duration(wait)
}

// DispatcherConfig contains configuration for the Dispatcher.
type DispatcherConfig struct {
	// EventBus is the bus the dispatcher subscribes to on Start.
	EventBus shared.EventBus

	// MaxConcurrent caps handler executions running at once.
	MaxConcurrent int

	// Retry is the default retry policy for registrations.
	Retry RetryPolicy

	// DeadLetterCapacity is the ring size for exhausted events.
	DeadLetterCapacity int

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultDispatcherConfig returns sensible defaults.
func DefaultDispatcherConfig(eventBus shared.EventBus) DispatcherConfig {
	return DispatcherConfig{
		EventBus:           eventBus,
		MaxConcurrent:      10,
		Retry:              DefaultRetryPolicy(),
		DeadLetterCapacity: 1000,
	}
}

// NewDispatcher creates a new event dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = DefaultRetryPolicy()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		bus:         config.EventBus,
		regs:        make(map[shared.EventType][]Registration),
		retry:       config.Retry,
		deadLetters: newDeadLetterBuffer(config.DeadLetterCapacity),
		slots:       make(chan struct{}, config.MaxConcurrent),
		logger:      config.Logger,
		metrics:     newDispatcherMetrics(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// RegisterHandler adds a registration for an event type.
func (d *Dispatcher) RegisterHandler(eventType shared.EventType, reg Registration) error {
	if reg.Handler == nil {
		return errors.New("handler is nil")
	}
	if reg.Name == "" {
		return errors.New("registration needs a name")
	}
	if reg.MaxAttempts <= 0 {
		reg.MaxAttempts = d.retry.MaxAttempts
	}
	if reg.Timeout <= 0 {
		reg.Timeout = 30 * time.Second
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.regs[eventType] = append(d.regs[eventType], reg)
	d.logger.Debug("registered handler",
		"event_type", eventType,
		"handler", reg.Name,
		"async", reg.Async,
	)
	return nil
}

// Register adds an asynchronous registration with default retry and timeout.
func (d *Dispatcher) Register(eventType shared.EventType, name string, handler shared.EventHandler) error {
	return d.RegisterHandler(eventType, Registration{
		Name:    name,
		Handler: handler,
		Async:   true,
	})
}

// RegisterSync adds a registration that runs inline during delivery, so its
// error reaches the bus delivery log.
func (d *Dispatcher) RegisterSync(eventType shared.EventType, name string, handler shared.EventHandler) error {
	return d.RegisterHandler(eventType, Registration{
		Name:    name,
		Handler: handler,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// Middleware wraps handler execution.
type Middleware func(shared.EventHandler) shared.EventHandler

// Use appends middleware to the chain. The first added runs outermost.
func (d *Dispatcher) Use(middleware Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.middleware = append(d.middleware, middleware)
}

// RecoveryMiddleware turns handler panics into errors.
func RecoveryMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event handler panicked",
						"event_type", event.EventType(),
						"panic", r,
						"stack", string(debug.Stack()),
					)
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(event)
		}
	}
}

// LoggingMiddleware logs every handler execution with its duration.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next shared.EventHandler) shared.EventHandler {
		return func(event shared.Event) error {
			start := time.Now()
			err := next(event)
			elapsed := time.Since(start)

			if err != nil {
				logger.Error("event handler failed",
					"event_type", event.EventType(),
					"aggregate_id", event.AggregateID(),
					"duration", elapsed,
					"error", err,
				)
				return err
			}

			logger.Debug("event handler done",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"duration", elapsed,
			)
			return nil
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHING
// ══════════════════════════════════════════════════════════════════════════════

// Start subscribes the dispatcher to every event on the bus.
func (d *Dispatcher) Start() error {
	return d.bus.SubscribeAll(d.dispatch)
}

// Dispatch routes one event through the registrations directly, bypassing
// the bus. Used when the caller already has the event in hand.
func (d *Dispatcher) Dispatch(event shared.Event) error {
	return d.dispatch(event)
}

func (d *Dispatcher) dispatch(event shared.Event) error {
	d.mu.RLock()
	regs := d.regs[event.EventType()]
	chain := d.middleware
	d.mu.RUnlock()

	if len(regs) == 0 {
		return nil
	}

	d.metrics.recordDispatch(event.EventType())

	var failed []error
	for _, reg := range regs {
		if reg.Async {
			d.wg.Add(1)
			go func(r Registration) {
				defer d.wg.Done()
				// Outcome already logged and dead-lettered inside.
				_ = d.runRegistration(event, r, chain)
			}(reg)
			continue
		}

		if err := d.runRegistration(event, reg, chain); err != nil {
			failed = append(failed, err)
		}
	}

	return errors.Join(failed...)
}

// runRegistration executes one registration with retry, timeout and the
// middleware chain applied.
func (d *Dispatcher) runRegistration(event shared.Event, reg Registration, chain []Middleware) error {
	select {
	case d.slots <- struct{}{}:
		defer func() { <-d.slots }()
	case <-d.ctx.Done():
		return d.ctx.Err()
	}

	handler := reg.Handler
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}

	var lastErr error
	for attempt := 1; attempt <= reg.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := d.retry.delay(attempt)
			d.logger.Debug("retrying handler",
				"handler", reg.Name,
				"attempt", attempt,
				"wait", wait,
			)

			timer := time.NewTimer(wait)
			select {
			case <-d.ctx.Done():
				timer.Stop()
				return d.ctx.Err()
			case <-timer.C:
			}
		}

		err := d.runOnce(handler, event, reg.Timeout)
		if err == nil {
			d.metrics.recordOutcome(attempt > 1)
			return nil
		}

		lastErr = err
		d.logger.Warn("handler attempt failed",
			"handler", reg.Name,
			"event_type", event.EventType(),
			"attempt", attempt,
			"error", err,
		)
	}

	d.deadLetters.Add(DeadLetter{
		Event:    event,
		Handler:  reg.Name,
		Err:      lastErr,
		Attempts: reg.MaxAttempts,
		At:       time.Now(),
	})
	d.metrics.recordExhausted()

	return fmt.Errorf("handler %s gave up after %d attempts: %w", reg.Name, reg.MaxAttempts, lastErr)
}

// runOnce bounds a single attempt with the registration timeout.
// The goroutine is left to finish on its own when the timeout wins; the
// buffered channel keeps it from leaking a send.
func (d *Dispatcher) runOnce(handler shared.EventHandler, event shared.Event, timeout time.Duration) error {
	result := make(chan error, 1)

	go func() {
		result <- handler(event)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-result:
		return err
	case <-timer.C:
		return fmt.Errorf("handler timed out after %v", timeout)
	case <-d.ctx.Done():
		return d.ctx.Err()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Stop cancels retries and waits for detached handlers to finish.
func (d *Dispatcher) Stop() error {
	d.cancel()
	d.wg.Wait()
	d.logger.Info("dispatcher stopped")
	return nil
}

// Metrics returns the dispatcher counters.
func (d *Dispatcher) Metrics() *DispatcherMetrics {
	return d.metrics
}

// DeadLetters returns the buffer of exhausted events.
func (d *Dispatcher) DeadLetters() *DeadLetterBuffer {
	return d.deadLetters
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTERS
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetter is an event a handler gave up on.
type DeadLetter struct {
	Event    shared.Event
	Handler  string
	Err      error
	Attempts int
	At       time.Time
}

// DeadLetterBuffer keeps the most recent dead letters in a fixed ring;
// the oldest entry is overwritten when the ring is full.
type DeadLetterBuffer struct {
	mu    sync.Mutex
	ring  []DeadLetter
	head  int
	count int
}

func newDeadLetterBuffer(capacity int) *DeadLetterBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &DeadLetterBuffer{ring: make([]DeadLetter, capacity)}
}

// Add appends a dead letter, evicting the oldest when full.
func (b *DeadLetterBuffer) Add(dl DeadLetter) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := (b.head + b.count) % len(b.ring)
	b.ring[idx] = dl
	if b.count < len(b.ring) {
		b.count++
	} else {
		b.head = (b.head + 1) % len(b.ring)
	}
}

// Len returns the number of buffered dead letters.
func (b *DeadLetterBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Drain returns all buffered dead letters, oldest first, and empties the ring.
func (b *DeadLetterBuffer) Drain() []DeadLetter {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]DeadLetter, 0, b.count)
	for i := 0; i < b.count; i++ {
		out = append(out, b.ring[(b.head+i)%len(b.ring)])
	}
	b.head, b.count = 0, 0
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// DispatcherMetrics counts dispatches and handler outcomes. Read through
// Snapshot.
type DispatcherMetrics struct {
	mu         sync.Mutex
	dispatched map[shared.EventType]int64
	completed  int64
	retried    int64
	exhausted  int64
}

func newDispatcherMetrics() *DispatcherMetrics {
	return &DispatcherMetrics{
		dispatched: make(map[shared.EventType]int64),
	}
}

func (m *DispatcherMetrics) recordDispatch(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatched[eventType]++
}

func (m *DispatcherMetrics) recordOutcome(afterRetry bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed++
	if afterRetry {
		m.retried++
	}
}

func (m *DispatcherMetrics) recordExhausted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exhausted++
}

// Snapshot returns a point-in-time copy of the counters.
func (m *DispatcherMetrics) Snapshot() DispatcherStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	perType := make(map[shared.EventType]int64, len(m.dispatched))
	var total int64
	for t, n := range m.dispatched {
		perType[t] = n
		total += n
	}

	return DispatcherStats{
		Dispatched:       total,
		DispatchedByType: perType,
		Completed:        m.completed,
		RetriedSuccesses: m.retried,
		Exhausted:        m.exhausted,
	}
}

// DispatcherStats is a point-in-time view of dispatcher activity.
type DispatcherStats struct {
	Dispatched       int64
	DispatchedByType map[shared.EventType]int64
	Completed        int64
	RetriedSuccesses int64
	Exhausted        int64
}
