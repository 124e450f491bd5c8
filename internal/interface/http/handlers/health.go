package handlers

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH CHECKING
// ══════════════════════════════════════════════════════════════════════════════

// HealthChecker answers the /health and /health/ready endpoints.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// HealthCheckFunc probes one dependency; nil means the dependency answers.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus is the wire shape of a health probe. Healthy and Ready
// currently move together; they are separate fields so a future draining
// mode can refuse traffic while staying healthy.
type HealthStatus struct {
	Healthy   bool                   `json:"healthy"`
	Ready     bool                   `json:"ready"`
	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult reports one dependency probe, with its observed latency.
type CheckResult struct {
	Healthy     bool      `json:"healthy"`
	Message     string    `json:"message,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	LastChecked time.Time `json:"last_checked,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPOSITE HEALTH CHECKER
// ══════════════════════════════════════════════════════════════════════════════

// defaultProbeTimeout bounds a single dependency probe.
const defaultProbeTimeout = 5 * time.Second

// CompositeHealthChecker fans out named probes in parallel and folds the
// results into one status. The api binary registers one probe per backing
// system (PostgreSQL, Redis, the SMTP relay); readiness fails as soon as
// any of them stops answering.
type CompositeHealthChecker struct {
	version string

	mu        sync.RWMutex
	probes    map[string]HealthCheckFunc
	timeout   time.Duration
	startedAt time.Time
}

// NewCompositeHealthChecker creates a checker reporting the given version.
func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{
		version:   version,
		probes:    make(map[string]HealthCheckFunc),
		timeout:   defaultProbeTimeout,
		startedAt: time.Now(),
	}
}

// SetTimeout changes the per-probe deadline.
func (c *CompositeHealthChecker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// AddCheck registers a named probe. Re-registering a name replaces it.
func (c *CompositeHealthChecker) AddCheck(name string, probe HealthCheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = probe
}

// Check runs every registered probe concurrently, each under its own
// deadline, so one hung dependency cannot stall the whole endpoint.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	timeout := c.timeout
	names := make([]string, 0, len(c.probes))
	probes := make([]HealthCheckFunc, 0, len(c.probes))
	for name, probe := range c.probes {
		names = append(names, name)
		probes = append(probes, probe)
	}
	c.mu.RUnlock()

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Uptime:    time.Since(c.startedAt).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}

	if len(probes) == 0 {
		status.Message = "no probes registered"
		return status
	}

	results := make([]CheckResult, len(probes))
	var wg sync.WaitGroup
	for i := range probes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = runProbe(ctx, probes[i], timeout)
		}(i)
	}
	wg.Wait()

	status.Checks = make(map[string]CheckResult, len(names))
	var failing []string
	for i, name := range names {
		status.Checks[name] = results[i]
		if !results[i].Healthy {
			failing = append(failing, name)
		}
	}

	if len(failing) > 0 {
		sort.Strings(failing)
		status.Healthy = false
		status.Ready = false
		status.Message = "failing: " + strings.Join(failing, ", ")
	} else {
		status.Message = "all probes passing"
	}
	return status
}

// runProbe executes one probe under its own deadline and records how long
// the dependency took to answer.
func runProbe(ctx context.Context, probe HealthCheckFunc, timeout time.Duration) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	err := probe(ctx)

	result := CheckResult{
		Healthy:     err == nil,
		Message:     "OK",
		Duration:    time.Since(started).Round(time.Millisecond).String(),
		LastChecked: time.Now().UTC(),
	}
	if err != nil {
		result.Message = err.Error()
	}
	return result
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCY PROBES
// ══════════════════════════════════════════════════════════════════════════════

// Pinger is anything that answers a connectivity probe. The pgx pool, the
// Redis cache, and the SMTP relay client all satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewDatabaseCheck creates a health check probing PostgreSQL connectivity.
func NewDatabaseCheck(db Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return db.Ping(ctx)
	}
}

// NewCacheCheck creates a health check probing Redis connectivity.
func NewCacheCheck(cache Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return cache.Ping(ctx)
	}
}

// NewMailRelayCheck creates a health check probing the SMTP relay.
// Registered only when SMTP delivery is enabled; the log notifier needs
// no probe.
func NewMailRelayCheck(relay Pinger) HealthCheckFunc {
	return func(ctx context.Context) error {
		return relay.Ping(ctx)
	}
}
