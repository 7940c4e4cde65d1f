package requestum

import "context"

// build assembles the per-call invoker chain for one registration:
// the terminal handler call, wrapped by the timeout decorator when the
// handler type has a timeout policy, wrapped by the retry decorator when
// it has a retry policy (so each attempt gets a fresh timeout window),
// wrapped by the selected middleware with the first selected layer
// outermost. The chain is built fresh per dispatch and discarded after.
func (m *Mediator) build(reg *registration, tags []string) Invoker[any, any] {
	inv := reg.invoke
	if pol, ok := m.policies.lookup(reg.handler); ok {
		if pol.Timeout > 0 {
			inv = withTimeout(reg.handler, pol.Timeout, inv)
		}
		if pol.Attempts > 0 {
			inv = withRetry(pol, inv)
		}
	}
	selected := resolveMiddleware(m.registry, reg.reqType, tags)
	for i := len(selected) - 1; i >= 0; i-- {
		inv = wrapLayer(selected[i], inv)
	}
	return inv
}

func wrapLayer(reg *registration, next Invoker[any, any]) Invoker[any, any] {
	return func(ctx context.Context, req any) (any, error) {
		return reg.wrap(ctx, req, next)
	}
}
