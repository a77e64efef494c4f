package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
)

const (
	// flightKey is the singleflight key shared by every call of a coalescer.
	flightKey = "flight"
)

// Operation represents an asynchronous operation that can be coalesced.
type Operation[A, T any] func(ctx context.Context, args A) (T, error)

// CoalescerConfig represents the coalescer configuration.
type CoalescerConfig struct {
	// Name identifies the wrapped operation in metrics and logs.
	Name string
	// CoolDown is the minimum spacing between operation starts.
	CoolDown time.Duration
	// Now returns the current time, defaults to time.Now.
	Now func() time.Time
	// OnCoalesced is called whenever a call is served without starting the operation.
	OnCoalesced func(name string)
}

// Coalescer collapses rapid calls of an operation into a single in-flight invocation.
//
// Calls made while an invocation is in flight share its result, including its error.
// Calls made within the cool-down of a successful invocation's start receive that
// invocation's result. A failed invocation does not hold the cool-down, the next call
// starts a fresh attempt. Arguments of calls that join or reuse a flight are ignored.
type Coalescer[A, T any] struct {
	cfg         *CoalescerConfig
	op          Operation[A, T]
	group       singleflight.Group
	mtx         sync.Mutex
	inFlight    bool
	lastStart   time.Time
	last        T
	hasLast     bool
	invocations atomic.Uint64
	coalesced   atomic.Uint64
}

// NewCoalescer wraps the provided operation.
func NewCoalescer[A, T any](op Operation[A, T], cfg *CoalescerConfig) *Coalescer[A, T] {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Coalescer[A, T]{
		cfg: cfg,
		op:  op,
	}
}

// Schedule wraps the provided operation with the provided cool-down.
func Schedule[A, T any](op Operation[A, T], coolDown time.Duration) *Coalescer[A, T] {
	return NewCoalescer(op, &CoalescerConfig{CoolDown: coolDown})
}

// Invocations returns the number of times the wrapped operation was started.
func (c *Coalescer[A, T]) Invocations() uint64 {
	return c.invocations.Load()
}

// Coalesced returns the number of calls served without starting the wrapped operation.
func (c *Coalescer[A, T]) Coalesced() uint64 {
	return c.coalesced.Load()
}

// markCoalesced records a call served without starting the operation.
func (c *Coalescer[A, T]) markCoalesced() {
	c.coalesced.Inc()
	if c.cfg.OnCoalesced != nil {
		c.cfg.OnCoalesced(c.cfg.Name)
	}
}

// run invokes the wrapped operation and records its outcome.
func (c *Coalescer[A, T]) run(ctx context.Context, args A) (any, error) {
	c.invocations.Inc()
	val, err := c.op(ctx, args)

	c.mtx.Lock()
	// Calls arriving from here on must not join this flight.
	c.group.Forget(flightKey)
	c.inFlight = false
	switch {
	case err != nil:
		c.lastStart = time.Time{}
	default:
		c.last = val
		c.hasLast = true
	}
	c.mtx.Unlock()

	return val, err
}

// Call invokes the wrapped operation or joins the one in flight. The operation runs with
// the context of the call that started it, joining calls stop waiting when their own
// context is done.
func (c *Coalescer[A, T]) Call(ctx context.Context, args A) (T, error) {
	c.mtx.Lock()
	now := c.cfg.Now()
	switch {
	case c.inFlight:
		c.markCoalesced()
	case c.hasLast && !c.lastStart.IsZero() && now.Sub(c.lastStart) < c.cfg.CoolDown:
		last := c.last
		c.mtx.Unlock()
		c.markCoalesced()
		return last, nil
	default:
		c.inFlight = true
		c.lastStart = now
	}

	// DoChan does not block on the operation, holding the lock here keeps joins and
	// starts ordered against run's bookkeeping.
	ch := c.group.DoChan(flightKey, func() (any, error) {
		return c.run(ctx, args)
	})
	c.mtx.Unlock()

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		val, _ := res.Val.(T)
		return val, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
