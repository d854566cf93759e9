package useapi

import (
	"context"
	"sync"
	"time"

	"github.com/vebgen/accesskit/pkg/accesspoint"
	"github.com/vebgen/accesskit/pkg/apierr"
	"github.com/vebgen/accesskit/pkg/applog"
)

// Invoker is the calling side of an access point.
type Invoker[C, P, R any] interface {
	Call(ctx context.Context, c C, req accesspoint.Request[P]) (R, error)
}

// Source is a read-only view of a Caller that other controllers build on.
type Source[R any] interface {
	State() State[R]
	Refresh(ctx context.Context) (R, error)
	Reset()
	Subscribe(fn func(State[R])) (cancel func())
}

// Defaults are the call inputs a Caller uses when a trigger does not
// override them.
type Defaults[C, P any] struct {
	Context  C
	Payload  *P
	PathArgs accesspoint.PathArgs
	Headers  map[string]string
	// Timeout as in accesspoint.Request.
	Timeout time.Duration
	// AutoTrigger makes the first Evaluate issue a call.
	AutoTrigger bool
}

// Overrides replace defaults for a single trigger. Nil fields keep the
// default.
type Overrides[C, P any] struct {
	Context  *C
	Payload  *P
	PathArgs accesspoint.PathArgs
	Headers  map[string]string
}

// Caller issues calls through an Invoker and keeps their State.
type Caller[C, P, R any] struct {
	inv      Invoker[C, P, R]
	defaults Defaults[C, P]

	mu     sync.Mutex
	state  State[R]
	subs   map[int]func(State[R])
	nextID int
}

var _ Source[int] = (*Caller[struct{}, struct{}, int])(nil)

// NewCaller returns a Caller in the initial state.
func NewCaller[C, P, R any](inv Invoker[C, P, R], d Defaults[C, P]) *Caller[C, P, R] {
	return &Caller[C, P, R]{
		inv:      inv,
		defaults: d,
		subs:     make(map[int]func(State[R])),
	}
}

// Trigger issues one call and records its outcome.
//
// Classified failures are recorded in State and returned. Any other error,
// such as a missing path argument, only clears Loading before being
// returned.
func (c *Caller[C, P, R]) Trigger(ctx context.Context, o Overrides[C, P]) (R, error) {
	c.dispatch(Loading{Value: true})
	return c.run(ctx, o)
}

// Refresh triggers a call with the defaults.
func (c *Caller[C, P, R]) Refresh(ctx context.Context) (R, error) {
	return c.Trigger(ctx, Overrides[C, P]{})
}

// Evaluate issues the automatic call if AutoTrigger is set and no call was
// started since creation or the last Reset. It blocks until the call
// settles and reports whether it fired.
func (c *Caller[C, P, R]) Evaluate(ctx context.Context) bool {
	if !c.defaults.AutoTrigger {
		return false
	}
	c.mu.Lock()
	if c.state.AutoTriggerGuard {
		c.mu.Unlock()
		return false
	}
	c.state = Reduce(c.state, Loading{Value: true})
	s, subs := c.state, c.subscribers()
	c.mu.Unlock()
	notify(subs, s)

	applog.FromContext(ctx).Debug("useapi: auto trigger")
	_, _ = c.run(ctx, Overrides[C, P]{})
	return true
}

func (c *Caller[C, P, R]) run(ctx context.Context, o Overrides[C, P]) (R, error) {
	req := accesspoint.Request[P]{
		Payload:  c.defaults.Payload,
		PathArgs: c.defaults.PathArgs,
		Headers:  c.defaults.Headers,
		Timeout:  c.defaults.Timeout,
	}
	cc := c.defaults.Context
	if o.Context != nil {
		cc = *o.Context
	}
	if o.Payload != nil {
		req.Payload = o.Payload
	}
	if o.PathArgs != nil {
		req.PathArgs = o.PathArgs
	}
	if o.Headers != nil {
		req.Headers = o.Headers
	}

	r, err := c.inv.Call(ctx, cc, req)
	if err == nil {
		c.dispatch(SetResult[R]{Value: r})
		return r, nil
	}
	if e, ok := apierr.As(err); ok {
		c.dispatch(SetError{Err: e})
		return r, err
	}
	applog.FromContext(ctx).Error("useapi: call rejected", "err", err)
	c.dispatch(Loading{Value: false})
	return r, err
}

// Reset restores the initial state, re-arming the automatic trigger.
func (c *Caller[C, P, R]) Reset() { c.dispatch(Reset{}) }

// State returns a snapshot of the current state.
func (c *Caller[C, P, R]) State() State[R] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to receive every new state. fn runs on the
// goroutine that caused the change and must not block.
func (c *Caller[C, P, R]) Subscribe(fn func(State[R])) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Caller[C, P, R]) dispatch(a Action) {
	c.mu.Lock()
	c.state = Reduce(c.state, a)
	s, subs := c.state, c.subscribers()
	c.mu.Unlock()
	notify(subs, s)
}

// subscribers must be called with mu held.
func (c *Caller[C, P, R]) subscribers() []func(State[R]) {
	out := make([]func(State[R]), 0, len(c.subs))
	for _, fn := range c.subs {
		out = append(out, fn)
	}
	return out
}

func notify[R any](subs []func(State[R]), s State[R]) {
	for _, fn := range subs {
		fn(s)
	}
}
