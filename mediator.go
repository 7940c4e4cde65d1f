package requestum

import "sync"

// Mediator routes requests to their registered handlers.
//
// Usage:
//  1. Create a mediator with New
//  2. Register handlers with Register, RegisterProc, or Subscribe
//  3. Install middleware with Use or UseFor
//  4. Dispatch with Execute or Publish
//
// A Mediator is safe for concurrent use after configuration. Handlers
// and middleware registered while dispatches are running become visible
// to later dispatches; the ordering is unspecified.
type Mediator struct {
	registry         *Registry
	policies         *Policies
	globalTags       []string
	requireReceivers bool
	hooks            hooks
	defaults         sync.Map // reflect.Type -> cached default request instance
}

// Option configures a Mediator at construction.
type Option func(*Mediator)

// New creates a Mediator with the given options.
//
// Example:
//
//	m := requestum.New(
//	    requestum.WithGlobalTags("eu-west"),
//	    requestum.WithOnFailure(func(ctx context.Context, info requestum.Info, err error, d time.Duration) {
//	        slog.ErrorContext(ctx, "dispatch failed", "request", info.RequestType.String(), "error", err)
//	    }),
//	)
func New(opts ...Option) *Mediator {
	m := &Mediator{
		requireReceivers: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = NewRegistry()
	}
	if m.policies == nil {
		m.policies = NewPolicies()
	}
	return m
}

// WithRegistry backs the mediator with an existing registry, sharing its
// registrations with every other mediator built on it. Handy for running
// the same handler set under different global tags.
func WithRegistry(r *Registry) Option {
	return func(m *Mediator) {
		m.registry = r
	}
}

// WithPolicies backs the mediator with an existing policy store.
func WithPolicies(p *Policies) Option {
	return func(m *Mediator) {
		m.policies = p
	}
}

// WithGlobalTags sets tags applied to every dispatch, ahead of any tags
// the request itself carries.
func WithGlobalTags(tags ...string) Option {
	return func(m *Mediator) {
		m.globalTags = append(m.globalTags, tags...)
	}
}

// WithRequireReceivers controls what Publish does when no receiver
// matches: an UnresolvedError when required (the default), a silent
// no-op otherwise.
func WithRequireReceivers(require bool) Option {
	return func(m *Mediator) {
		m.requireReceivers = require
	}
}

// Registry returns the mediator's registration store.
func (m *Mediator) Registry() *Registry {
	return m.registry
}

// Policies returns the mediator's policy store. Use it to configure
// retry and timeout by handler type:
//
//	m.Policies().SetRetry(reflect.TypeOf(&SyncLedger{}), 3)
func (m *Mediator) Policies() *Policies {
	return m.policies
}

// Must panics if err is non-nil. It keeps startup registration terse:
//
//	requestum.Must(requestum.Register(m, &FindUserHandler{db: db}))
func Must(err error) {
	if err != nil {
		panic(err)
	}
}
