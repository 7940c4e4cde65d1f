package requestum

import (
	"maps"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is the decorator configuration for one handler implementation
// type. Zero fields mean the corresponding decorator is not applied.
type Policy struct {
	// Attempts is the total number of invocation attempts, not the
	// number of retries after the first failure.
	Attempts int
	// Timeout bounds each attempt independently.
	Timeout time.Duration
	// Backoff builds the wait strategy between attempts. Nil retries
	// immediately.
	Backoff func() backoff.BackOff
}

func (p Policy) empty() bool {
	return p.Attempts == 0 && p.Timeout == 0 && p.Backoff == nil
}

type policySet map[reflect.Type]Policy

// Policies maps handler implementation types to retry and timeout
// policies. Policies are keyed by the handler, not the request, because
// they describe how a particular implementation tolerates failure.
//
// Writes copy the underlying map, so steady-state reads on the dispatch
// path take no lock. One Policies store may back several Mediators (see
// WithPolicies).
type Policies struct {
	mu  sync.Mutex   // serializes writers
	set atomic.Value // policySet, copy-on-write
}

// NewPolicies returns an empty policy store.
func NewPolicies() *Policies {
	p := &Policies{}
	p.set.Store(policySet{})
	return p
}

// SetRetry sets the attempt count for the handler type. Last write
// wins; attempts below one clear the retry policy.
func (p *Policies) SetRetry(handler reflect.Type, attempts int) {
	if attempts < 1 {
		attempts = 0
	}
	p.update(handler, func(pol *Policy) { pol.Attempts = attempts })
}

// SetTimeout sets the per-attempt timeout for the handler type. Last
// write wins; a non-positive duration clears the timeout policy.
func (p *Policies) SetTimeout(handler reflect.Type, limit time.Duration) {
	if limit < 0 {
		limit = 0
	}
	p.update(handler, func(pol *Policy) { pol.Timeout = limit })
}

// SetBackoff sets the factory for the wait strategy used between retry
// attempts. The factory is called once per dispatch so attempts within
// one call share state while separate calls start fresh. A nil factory
// clears the backoff.
func (p *Policies) SetBackoff(handler reflect.Type, factory func() backoff.BackOff) {
	p.update(handler, func(pol *Policy) { pol.Backoff = factory })
}

func (p *Policies) update(handler reflect.Type, fn func(*Policy)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.set.Load().(policySet)
	next := make(policySet, len(old)+1)
	maps.Copy(next, old)
	pol := next[handler]
	fn(&pol)
	if pol.empty() {
		delete(next, handler)
	} else {
		next[handler] = pol
	}
	p.set.Store(next)
}

// lookup is the hot-path read; it takes no lock.
func (p *Policies) lookup(handler reflect.Type) (Policy, bool) {
	pol, ok := p.set.Load().(policySet)[handler]
	return pol, ok
}
