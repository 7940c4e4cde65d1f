package requestum

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// registration is a type-erased entry in the registry. Handlers and
// receivers carry invoke; middleware carries wrap.
type registration struct {
	kind    Kind
	reqType reflect.Type
	handler reflect.Type // concrete implementation type, the policy key
	tag     string       // handler/receiver registration tag, "" = untagged
	tags    []string     // middleware registration tags
	seq     uint64       // global registration order
	ident   any          // receiver identity for fan-out dedup

	invoke Invoker[any, any]
	wrap   func(ctx context.Context, req any, next Invoker[any, any]) (any, error)
}

// typeTag keys a registration bucket. A nil type marks middleware that
// applies to every request type.
type typeTag struct {
	t   reflect.Type
	tag string
}

// Registry stores handler, receiver, and middleware registrations keyed
// by request type and tag. One Registry may back several Mediators (see
// WithRegistry); registrations are visible to all of them.
//
// Registry is safe for concurrent use. Registration is expected to
// happen during startup; the ordering between a registration and a
// dispatch running at the same time is unspecified.
type Registry struct {
	mu      sync.RWMutex
	seq     uint64
	kinds   map[reflect.Type]Kind
	singles map[typeTag]*registration
	events  map[typeTag][]*registration
	mws     map[typeTag][]*registration
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds:   make(map[reflect.Type]Kind),
		singles: make(map[typeTag]*registration),
		events:  make(map[typeTag][]*registration),
		mws:     make(map[typeTag][]*registration),
	}
}

// markKind records the dispatch kind of a request type, rejecting
// conflicting registration across the single/event families.
func (r *Registry) markKind(t reflect.Type, k Kind) error {
	if have, ok := r.kinds[t]; ok && have != k {
		return fmt.Errorf("requestum: %s is already registered as a %s", t, have)
	}
	r.kinds[t] = k
	return nil
}

func (r *Registry) addSingle(reg *registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.markKind(reg.reqType, KindRequest); err != nil {
		return err
	}
	key := typeTag{t: reg.reqType, tag: reg.tag}
	if _, dup := r.singles[key]; dup {
		if reg.tag == "" {
			return fmt.Errorf("requestum: handler already registered for %s", reg.reqType)
		}
		return fmt.Errorf("requestum: handler already registered for %s (tag %q)", reg.reqType, reg.tag)
	}
	r.seq++
	reg.seq = r.seq
	r.singles[key] = reg
	return nil
}

func (r *Registry) addReceiver(reg *registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.markKind(reg.reqType, KindEvent); err != nil {
		return err
	}
	r.seq++
	reg.seq = r.seq
	key := typeTag{t: reg.reqType, tag: reg.tag}
	r.events[key] = append(r.events[key], reg)
	return nil
}

// addMiddleware places the registration in the untagged bucket, or in
// every bucket named by its tags.
func (r *Registry) addMiddleware(reg *registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	reg.seq = r.seq
	if len(reg.tags) == 0 {
		key := typeTag{t: reg.reqType, tag: ""}
		r.mws[key] = append(r.mws[key], reg)
		return nil
	}
	for _, tag := range reg.tags {
		key := typeTag{t: reg.reqType, tag: tag}
		r.mws[key] = append(r.mws[key], reg)
	}
	return nil
}

// single returns the one handler registered for (t, tag).
func (r *Registry) single(t reflect.Type, tag string) (*registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.singles[typeTag{t: t, tag: tag}]
	return reg, ok
}

// receivers returns a snapshot of the receiver bucket for (t, tag) in
// registration order.
func (r *Registry) receivers(t reflect.Type, tag string) []*registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.events[typeTag{t: t, tag: tag}]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]*registration, len(bucket))
	copy(out, bucket)
	return out
}

// middlewareBucket returns the middleware registered for (t, tag),
// merging entries that apply to every type with entries for t itself,
// in overall registration order.
func (r *Registry) middlewareBucket(t reflect.Type, tag string) []*registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	universal := r.mws[typeTag{t: nil, tag: tag}]
	typed := r.mws[typeTag{t: t, tag: tag}]
	if len(typed) == 0 && len(universal) == 0 {
		return nil
	}
	out := make([]*registration, 0, len(universal)+len(typed))
	i, j := 0, 0
	for i < len(universal) && j < len(typed) {
		if universal[i].seq < typed[j].seq {
			out = append(out, universal[i])
			i++
		} else {
			out = append(out, typed[j])
			j++
		}
	}
	out = append(out, universal[i:]...)
	out = append(out, typed[j:]...)
	return out
}
