package messaging

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siakad-hub/siakad-enrollment-hub/internal/domain/shared"
)

// newTestDispatcher uses millisecond backoff so retry tests stay fast.
func newTestDispatcher(bus shared.EventBus) *Dispatcher {
	return NewDispatcher(DispatcherConfig{
		EventBus:      bus,
		MaxConcurrent: 4,
		Retry: RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
			Multiplier:  2.0,
		},
		DeadLetterCapacity: 10,
		Logger:             discardLogger(),
	})
}

func TestRegisterHandlerValidation(t *testing.T) {
	d := newTestDispatcher(nil)
	defer d.Stop()

	err := d.Register(shared.EventStudentRegistered, "noop", nil)
	assert.ErrorContains(t, err, "handler is nil")

	err = d.Register(shared.EventStudentRegistered, "", func(shared.Event) error { return nil })
	assert.ErrorContains(t, err, "name")
}

func TestSyncRegistrationRunsInline(t *testing.T) {
	d := newTestDispatcher(nil)
	defer d.Stop()

	var calls int
	require.NoError(t, d.RegisterSync(shared.EventStudentRegistered, "audit", func(shared.Event) error {
		calls++
		return nil
	}))

	require.NoError(t, d.Dispatch(registeredEvent()))
	assert.Equal(t, 1, calls)
}

func TestRetryUntilSuccess(t *testing.T) {
	d := newTestDispatcher(nil)
	defer d.Stop()

	var calls int
	require.NoError(t, d.RegisterSync(shared.EventStudentRegistered, "flaky", func(shared.Event) error {
		calls++
		if calls < 3 {
			return assert.AnError
		}
		return nil
	}))

	require.NoError(t, d.Dispatch(registeredEvent()))
	assert.Equal(t, 3, calls)

	stats := d.Metrics().Snapshot()
	assert.Equal(t, int64(1), stats.Dispatched)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(1), stats.RetriedSuccesses)
	assert.Equal(t, int64(0), stats.Exhausted)
}

func TestExhaustedHandlerLandsInDeadLetters(t *testing.T) {
	d := newTestDispatcher(nil)
	defer d.Stop()

	var calls int
	require.NoError(t, d.RegisterHandler(shared.EventStudentRegistered, Registration{
		Name:        "broken",
		MaxAttempts: 2,
		Handler: func(shared.Event) error {
			calls++
			return assert.AnError
		},
	}))

	err := d.Dispatch(registeredEvent())
	require.ErrorIs(t, err, assert.AnError)
	assert.ErrorContains(t, err, "gave up")
	assert.Equal(t, 2, calls)

	require.Equal(t, 1, d.DeadLetters().Len())
	letters := d.DeadLetters().Drain()
	require.Len(t, letters, 1)
	assert.Equal(t, "broken", letters[0].Handler)
	assert.Equal(t, 2, letters[0].Attempts)
	assert.ErrorIs(t, letters[0].Err, assert.AnError)
	assert.Equal(t, 0, d.DeadLetters().Len())

	assert.Equal(t, int64(1), d.Metrics().Snapshot().Exhausted)
}

func TestMiddlewareRunsInRegistrationOrder(t *testing.T) {
	d := newTestDispatcher(nil)
	defer d.Stop()

	var order []string
	tag := func(name string) Middleware {
		return func(next shared.EventHandler) shared.EventHandler {
			return func(event shared.Event) error {
				order = append(order, name)
				return next(event)
			}
		}
	}

	d.Use(tag("outer"))
	d.Use(tag("inner"))
	require.NoError(t, d.RegisterSync(shared.EventStudentRegistered, "target", func(shared.Event) error {
		order = append(order, "handler")
		return nil
	}))

	require.NoError(t, d.Dispatch(registeredEvent()))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestRecoveryMiddlewareConvertsPanic(t *testing.T) {
	d := newTestDispatcher(nil)
	defer d.Stop()

	d.Use(RecoveryMiddleware(discardLogger()))
	require.NoError(t, d.RegisterHandler(shared.EventStudentRegistered, Registration{
		Name:        "panicky",
		MaxAttempts: 1,
		Handler: func(shared.Event) error {
			panic("kaboom")
		},
	}))

	err := d.Dispatch(registeredEvent())
	require.Error(t, err)
	assert.ErrorContains(t, err, "handler panic")
}

func TestAsyncRegistrationDetachesFromDispatch(t *testing.T) {
	d := newTestDispatcher(nil)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var done atomic.Int64

	require.NoError(t, d.Register(shared.EventStudentRegistered, "mailer", func(shared.Event) error {
		started <- struct{}{}
		<-release
		done.Add(1)
		return nil
	}))

	require.NoError(t, d.Dispatch(registeredEvent()))

	// The handler is still blocked, so returning from Dispatch proves the
	// registration runs detached.
	<-started
	assert.Equal(t, int64(0), done.Load())

	close(release)
	require.Eventually(t, func() bool { return done.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, d.Stop())
}

func TestAttemptTimeout(t *testing.T) {
	d := newTestDispatcher(nil)
	defer d.Stop()

	block := make(chan struct{})
	defer close(block)

	require.NoError(t, d.RegisterHandler(shared.EventStudentRegistered, Registration{
		Name:        "stuck",
		MaxAttempts: 1,
		Timeout:     10 * time.Millisecond,
		Handler: func(shared.Event) error {
			<-block
			return nil
		},
	}))

	err := d.Dispatch(registeredEvent())
	require.Error(t, err)
	assert.ErrorContains(t, err, "timed out")
}

func TestStartRoutesBusEvents(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	d := newTestDispatcher(bus)
	defer d.Stop()

	var calls int
	require.NoError(t, d.RegisterSync(shared.EventStudentRegistered, "projector", func(shared.Event) error {
		calls++
		return nil
	}))
	require.NoError(t, d.Start())

	require.NoError(t, bus.Publish(registeredEvent()))
	assert.Equal(t, 1, calls)
}

func TestDeadLetterBufferEvictsOldest(t *testing.T) {
	buf := newDeadLetterBuffer(2)

	for _, name := range []string{"first", "second", "third"} {
		buf.Add(DeadLetter{Handler: name, At: time.Now()})
	}

	require.Equal(t, 2, buf.Len())
	letters := buf.Drain()
	require.Len(t, letters, 2)
	assert.Equal(t, "second", letters[0].Handler)
	assert.Equal(t, "third", letters[1].Handler)
}

func TestRetryPolicyDelayGrowsAndCaps(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    250 * time.Millisecond,
		Multiplier:  2.0,
	}

	assert.Equal(t, 100*time.Millisecond, p.delay(2))
	assert.Equal(t, 200*time.Millisecond, p.delay(3))
	assert.Equal(t, 250*time.Millisecond, p.delay(4))
}
