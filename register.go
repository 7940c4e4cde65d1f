package requestum

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RegisterOption configures a single registration.
type RegisterOption func(*regConfig)

type regConfig struct {
	tags       []string
	attempts   int
	timeout    time.Duration
	boff       func() backoff.BackOff
	hasRetry   bool
	hasTimeout bool
	hasBackoff bool
}

// ForTag places the registration under the given tag. Handlers and
// receivers take at most one tag; middleware may repeat the option to
// register under several.
func ForTag(tag string) RegisterOption {
	return func(c *regConfig) {
		c.tags = append(c.tags, tag)
	}
}

// WithRetry sets the retry policy for the handler being registered: the
// total number of attempts per dispatch.
func WithRetry(attempts int) RegisterOption {
	return func(c *regConfig) {
		c.attempts = attempts
		c.hasRetry = true
	}
}

// WithTimeout sets the per-attempt timeout for the handler being
// registered.
func WithTimeout(limit time.Duration) RegisterOption {
	return func(c *regConfig) {
		c.timeout = limit
		c.hasTimeout = true
	}
}

// WithBackoff sets the wait strategy between retry attempts for the
// handler being registered.
//
// Example:
//
//	requestum.Register(m, &SyncLedger{client: client},
//	    requestum.WithRetry(5),
//	    requestum.WithBackoff(func() backoff.BackOff {
//	        return backoff.NewExponentialBackOff()
//	    }),
//	)
func WithBackoff(factory func() backoff.BackOff) RegisterOption {
	return func(c *regConfig) {
		c.boff = factory
		c.hasBackoff = true
	}
}

func parseRegisterOptions(opts []RegisterOption, singleTag, allowPolicies bool) (regConfig, error) {
	var cfg regConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	for _, tag := range cfg.tags {
		if tag == "" {
			return cfg, fmt.Errorf("requestum: empty registration tag")
		}
	}
	if singleTag && len(cfg.tags) > 1 {
		return cfg, fmt.Errorf("requestum: handlers take at most one tag, got %d", len(cfg.tags))
	}
	if !allowPolicies && (cfg.hasRetry || cfg.hasTimeout || cfg.hasBackoff) {
		return cfg, fmt.Errorf("requestum: retry and timeout policies apply to command and query handlers only")
	}
	return cfg, nil
}

func (c regConfig) tag() string {
	if len(c.tags) == 1 {
		return c.tags[0]
	}
	return ""
}

func (c regConfig) applyPolicies(p *Policies, handler reflect.Type) {
	if c.hasRetry {
		p.SetRetry(handler, c.attempts)
	}
	if c.hasTimeout {
		p.SetTimeout(handler, c.timeout)
	}
	if c.hasBackoff {
		p.SetBackoff(handler, c.boff)
	}
}

// identityFor picks the dedup identity of a receiver registration: the
// receiver value itself when comparable, so registering one instance
// under several tags fans out once, otherwise the registration.
func identityFor(h any, reg *registration) any {
	if v := reflect.ValueOf(h); v.IsValid() && v.Comparable() {
		return h
	}
	return reg
}

// Register enrolls the handler for command or query type T. Exactly one
// handler may exist per request type and tag.
//
// This is a package-level function (not a method) due to Go generics
// limitations: methods cannot have type parameters independent of the
// receiver.
//
// Example:
//
//	requestum.Register(m, &FindUserHandler{db: db})
//	requestum.Register(m, &FindUserCache{redis: rdb}, requestum.ForTag("cached"))
func Register[T Request[R], R any](m *Mediator, h Handler[T, R], opts ...RegisterOption) error {
	if h == nil {
		return fmt.Errorf("requestum: nil handler")
	}
	cfg, err := parseRegisterOptions(opts, true, true)
	if err != nil {
		return err
	}
	reg := &registration{
		kind:    KindRequest,
		reqType: reflect.TypeOf((*T)(nil)).Elem(),
		handler: reflect.TypeOf(h),
		tag:     cfg.tag(),
		invoke: func(ctx context.Context, req any) (any, error) {
			return h.Handle(ctx, req.(T))
		},
	}
	if err := m.registry.addSingle(reg); err != nil {
		return err
	}
	cfg.applyPolicies(m.policies, reg.handler)
	return nil
}

// RegisterFunc is a convenience function for registering a handler
// function. Policies attach to the adapter type HandlerFunc[T, R], so
// prefer Register with a named type when a handler needs its own policy.
//
// Example:
//
//	requestum.RegisterFunc(m, func(ctx context.Context, q FindUser) (User, error) {
//	    return loadUser(ctx, db, q.ID)
//	})
func RegisterFunc[T Request[R], R any](m *Mediator, fn func(ctx context.Context, req T) (R, error), opts ...RegisterOption) error {
	if fn == nil {
		return fmt.Errorf("requestum: nil handler")
	}
	return Register(m, HandlerFunc[T, R](fn), opts...)
}

// RegisterProc enrolls a handler for a void command: a request type that
// embeds Void and produces no result.
func RegisterProc[T Request[Unit]](m *Mediator, p Proc[T], opts ...RegisterOption) error {
	if p == nil {
		return fmt.Errorf("requestum: nil handler")
	}
	cfg, err := parseRegisterOptions(opts, true, true)
	if err != nil {
		return err
	}
	reg := &registration{
		kind:    KindRequest,
		reqType: reflect.TypeOf((*T)(nil)).Elem(),
		handler: reflect.TypeOf(p),
		tag:     cfg.tag(),
		invoke: func(ctx context.Context, req any) (any, error) {
			return Unit{}, p.Run(ctx, req.(T))
		},
	}
	if err := m.registry.addSingle(reg); err != nil {
		return err
	}
	cfg.applyPolicies(m.policies, reg.handler)
	return nil
}

// RegisterProcFunc is a convenience function for registering a void
// command handler function.
func RegisterProcFunc[T Request[Unit]](m *Mediator, fn func(ctx context.Context, req T) error, opts ...RegisterOption) error {
	if fn == nil {
		return fmt.Errorf("requestum: nil handler")
	}
	return RegisterProc(m, ProcFunc[T](fn), opts...)
}

// RegisterAsync enrolls an asynchronous handler. The pipeline awaits the
// Pending it returns, so middleware and policies apply unchanged.
func RegisterAsync[T Request[R], R any](m *Mediator, h AsyncHandler[T, R], opts ...RegisterOption) error {
	if h == nil {
		return fmt.Errorf("requestum: nil handler")
	}
	cfg, err := parseRegisterOptions(opts, true, true)
	if err != nil {
		return err
	}
	reg := &registration{
		kind:    KindRequest,
		reqType: reflect.TypeOf((*T)(nil)).Elem(),
		handler: reflect.TypeOf(h),
		tag:     cfg.tag(),
		invoke: func(ctx context.Context, req any) (any, error) {
			return h.HandleAsync(ctx, req.(T)).Wait(ctx)
		},
	}
	if err := m.registry.addSingle(reg); err != nil {
		return err
	}
	cfg.applyPolicies(m.policies, reg.handler)
	return nil
}

// Subscribe enrolls an event receiver for E. Any number of receivers may
// be subscribed per event type; policies do not apply to receivers.
//
// Example:
//
//	requestum.Subscribe(m, &AuditTrail{db: db})
//	requestum.Subscribe(m, &BillingSync{client: client}, requestum.ForTag("billing"))
func Subscribe[E any](m *Mediator, r Receiver[E], opts ...RegisterOption) error {
	if r == nil {
		return fmt.Errorf("requestum: nil receiver")
	}
	cfg, err := parseRegisterOptions(opts, true, false)
	if err != nil {
		return err
	}
	reg := &registration{
		kind:    KindEvent,
		reqType: reflect.TypeOf((*E)(nil)).Elem(),
		handler: reflect.TypeOf(r),
		tag:     cfg.tag(),
		invoke: func(ctx context.Context, event any) (any, error) {
			return Unit{}, r.Receive(ctx, event.(E))
		},
	}
	reg.ident = identityFor(r, reg)
	return m.registry.addReceiver(reg)
}

// SubscribeFunc is a convenience function for subscribing a receiver
// function.
//
// Example:
//
//	requestum.SubscribeFunc(m, func(ctx context.Context, e UserCreated) error {
//	    return mailer.SendWelcome(ctx, e.Email)
//	})
func SubscribeFunc[E any](m *Mediator, fn func(ctx context.Context, event E) error, opts ...RegisterOption) error {
	if fn == nil {
		return fmt.Errorf("requestum: nil receiver")
	}
	return Subscribe(m, ReceiverFunc[E](fn), opts...)
}

// SubscribeAsync enrolls an asynchronous event receiver. Fan-out awaits
// it before invoking the next receiver.
func SubscribeAsync[E any](m *Mediator, r AsyncReceiver[E], opts ...RegisterOption) error {
	if r == nil {
		return fmt.Errorf("requestum: nil receiver")
	}
	cfg, err := parseRegisterOptions(opts, true, false)
	if err != nil {
		return err
	}
	reg := &registration{
		kind:    KindEvent,
		reqType: reflect.TypeOf((*E)(nil)).Elem(),
		handler: reflect.TypeOf(r),
		tag:     cfg.tag(),
		invoke: func(ctx context.Context, event any) (any, error) {
			return r.ReceiveAsync(ctx, event.(E)).Wait(ctx)
		},
	}
	reg.ident = identityFor(r, reg)
	return m.registry.addReceiver(reg)
}

// Use installs middleware that runs for every command and query. Tagged
// middleware runs only when one of its tags appears in the dispatch's
// effective tag set; untagged middleware always runs. Selection order is
// untagged registrations first, then tag matches, wrapping so the first
// selected middleware runs outermost. Middleware never applies to event
// fan-out.
func Use(m *Mediator, mw Middleware[any, any], opts ...RegisterOption) error {
	if mw == nil {
		return fmt.Errorf("requestum: nil middleware")
	}
	cfg, err := parseRegisterOptions(opts, false, false)
	if err != nil {
		return err
	}
	reg := &registration{
		reqType: nil,
		handler: reflect.TypeOf(mw),
		tags:    cfg.tags,
		wrap: func(ctx context.Context, req any, next Invoker[any, any]) (any, error) {
			return mw.Invoke(ctx, req, next)
		},
	}
	return m.registry.addMiddleware(reg)
}

// UseFor installs middleware for one request/response pair. It sits in
// the same ordering sequence as middleware installed with Use.
func UseFor[T Request[R], R any](m *Mediator, mw Middleware[T, R], opts ...RegisterOption) error {
	if mw == nil {
		return fmt.Errorf("requestum: nil middleware")
	}
	cfg, err := parseRegisterOptions(opts, false, false)
	if err != nil {
		return err
	}
	reg := &registration{
		reqType: reflect.TypeOf((*T)(nil)).Elem(),
		handler: reflect.TypeOf(mw),
		tags:    cfg.tags,
		wrap: func(ctx context.Context, req any, next Invoker[any, any]) (any, error) {
			typedNext := func(c context.Context, tr T) (R, error) {
				out, err := next(c, tr)
				if err != nil || out == nil {
					var zero R
					return zero, err
				}
				r, ok := out.(R)
				if !ok {
					var zero R
					return zero, fmt.Errorf("requestum: pipeline for %s produced %T, want %s",
						reflect.TypeOf((*T)(nil)).Elem(), out, reflect.TypeOf((*R)(nil)).Elem())
				}
				return r, nil
			}
			res, err := mw.Invoke(ctx, req.(T), typedNext)
			if err != nil {
				return nil, err
			}
			return res, nil
		},
	}
	return m.registry.addMiddleware(reg)
}
