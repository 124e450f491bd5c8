// Package messaging moves domain events from the write side to their
// subscribers. One in-process bus instance backs each binary; the
// Dispatcher on top of it adds named registrations, middleware and retry.
package messaging

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventBusClosed is returned for publish/subscribe on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrNilEvent is returned when a nil event is published.
	ErrNilEvent = errors.New("event is nil")
)

// InMemoryEventBus delivers events to subscribers within one process.
// It implements shared.EventBus.
//
// Handler errors never reach the publisher: an enroll or drop decision is
// already final by the time its event goes out, so delivery failures are
// logged and counted, and Publish only fails on a nil event or a closed bus.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	byType   map[shared.EventType][]shared.EventHandler
	catchAll []shared.EventHandler

	async bool
	slots chan struct{}

	logger  *slog.Logger
	metrics *EventBusMetrics

	closed bool
	wg     sync.WaitGroup
}

// InMemoryEventBusConfig contains configuration for InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode delivers events on background goroutines. Synchronous mode
	// runs every handler inline inside Publish (useful in tests).
	AsyncMode bool

	// WorkerPoolSize caps the number of handler goroutines running at once.
	WorkerPoolSize int

	// Logger for structured logging
	Logger *slog.Logger

	// EnableMetrics enables delivery counters.
	EnableMetrics bool
}

// DefaultInMemoryEventBusConfig returns sensible defaults.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 10,
		EnableMetrics:  true,
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}

	bus := &InMemoryEventBus{
		byType: make(map[shared.EventType][]shared.EventHandler),
		async:  config.AsyncMode,
		slots:  make(chan struct{}, config.WorkerPoolSize),
		logger: config.Logger,
	}

	if config.EnableMetrics {
		bus.metrics = newEventBusMetrics()
	}

	return bus
}

// Subscribe registers a handler for one event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler is nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.byType[eventType] = append(b.byType[eventType], handler)
	b.logger.Debug("subscribed handler", "event_type", eventType)
	return nil
}

// SubscribeAll registers a handler that receives every event.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler is nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.catchAll = append(b.catchAll, handler)
	b.logger.Debug("subscribed catch-all handler")
	return nil
}

// Publish delivers the event to every matching subscriber.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return ErrNilEvent
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	typed := b.byType[event.EventType()]
	targets := make([]shared.EventHandler, 0, len(typed)+len(b.catchAll))
	targets = append(targets, typed...)
	targets = append(targets, b.catchAll...)
	b.mu.RUnlock()

	if len(targets) == 0 {
		b.logger.Debug("no subscribers for event", "event_type", event.EventType())
		return nil
	}

	if b.metrics != nil {
		b.metrics.recordPublish(event.EventType())
	}

	for _, handler := range targets {
		if b.async {
			b.deliverAsync(event, handler)
		} else {
			b.deliver(event, handler)
		}
	}

	return nil
}

// deliverAsync hands the event to a handler on a pooled goroutine.
// Publish itself never blocks on a saturated pool. An event accepted by
// Publish is always delivered; Close waits for the backlog to drain.
func (b *InMemoryEventBus) deliverAsync(event shared.Event, handler shared.EventHandler) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		b.slots <- struct{}{}
		defer func() { <-b.slots }()

		b.deliver(event, handler)
	}()
}

// deliver runs one handler and records the outcome.
func (b *InMemoryEventBus) deliver(event shared.Event, handler shared.EventHandler) {
	start := time.Now()
	err := handler(event)
	elapsed := time.Since(start)

	if b.metrics != nil {
		b.metrics.recordDelivery(event.EventType(), elapsed, err == nil)
	}

	if err != nil {
		b.logger.Error("event handler failed",
			"event_type", event.EventType(),
			"aggregate_id", event.AggregateID(),
			"duration", elapsed,
			"error", err,
		)
	}
}

// Close stops accepting events and waits for in-flight deliveries.
// Closing twice is a no-op.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()

	b.logger.Info("event bus closed")
	return nil
}

// Metrics returns the bus delivery counters, nil when disabled.
func (b *InMemoryEventBus) Metrics() *EventBusMetrics {
	return b.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// EventBusMetrics counts publishes and deliveries. All fields are private;
// read them through Snapshot.
type EventBusMetrics struct {
	mu         sync.Mutex
	published  map[shared.EventType]int64
	deliveries int64
	failures   int64
	busy       time.Duration
	since      time.Time
}

func newEventBusMetrics() *EventBusMetrics {
	return &EventBusMetrics{
		published: make(map[shared.EventType]int64),
		since:     time.Now(),
	}
}

func (m *EventBusMetrics) recordPublish(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[eventType]++
}

func (m *EventBusMetrics) recordDelivery(eventType shared.EventType, elapsed time.Duration, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deliveries++
	m.busy += elapsed
	if !ok {
		m.failures++
	}
}

// Snapshot returns a point-in-time copy of the counters.
func (m *EventBusMetrics) Snapshot() EventBusStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	perType := make(map[shared.EventType]int64, len(m.published))
	var total int64
	for t, n := range m.published {
		perType[t] = n
		total += n
	}

	var avg time.Duration
	if m.deliveries > 0 {
		avg = m.busy / time.Duration(m.deliveries)
	}

	return EventBusStats{
		Published:       total,
		PublishedByType: perType,
		Deliveries:      m.deliveries,
		Failures:        m.failures,
		AvgDelivery:     avg,
		Since:           m.since,
	}
}

// EventBusStats is a point-in-time view of bus activity.
type EventBusStats struct {
	Published       int64
	PublishedByType map[shared.EventType]int64
	Deliveries      int64
	Failures        int64
	AvgDelivery     time.Duration
	Since           time.Time
}
