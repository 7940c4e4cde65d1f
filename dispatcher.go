package requestum

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// Execute dispatches a command or query to its registered handler and
// returns the typed result. Resolution follows the effective tag
// sequence (global tags, then the request's own) and falls back to the
// untagged handler; no match returns an UnresolvedError.
//
// Both type parameters are explicit at the call site:
//
//	user, err := requestum.Execute[FindUser, User](ctx, m, FindUser{ID: id})
func Execute[T Request[R], R any](ctx context.Context, m *Mediator, req T) (R, error) {
	res, err := m.dispatch(ctx, reflect.TypeOf((*T)(nil)).Elem(), req, nil)
	if err != nil {
		var zero R
		return zero, err
	}
	return responseAs[R](res)
}

// ExecuteAsync dispatches on a new goroutine and returns the in-flight
// result immediately. The full pipeline applies, same as Execute.
func ExecuteAsync[T Request[R], R any](ctx context.Context, m *Mediator, req T) *Pending[R] {
	return Go(func() (R, error) {
		return Execute[T, R](ctx, m, req)
	})
}

// ExecuteDefault dispatches a cached default instance of T. It serves
// parameterless requests, where constructing a fresh zero value per call
// buys nothing:
//
//	cfg, err := requestum.ExecuteDefault[GetConfig, Config](ctx, m)
//
// The instance is created once per mediator and reused; pointer request
// types get a pointer to a zero-valued element. Handlers for such
// requests must not mutate them.
func ExecuteDefault[T Request[R], R any](ctx context.Context, m *Mediator) (R, error) {
	return Execute[T, R](ctx, m, defaultInstance[T](&m.defaults))
}

// ExecuteDefaultAsync is ExecuteDefault on a new goroutine.
func ExecuteDefaultAsync[T Request[R], R any](ctx context.Context, m *Mediator) *Pending[R] {
	return Go(func() (R, error) {
		return ExecuteDefault[T, R](ctx, m)
	})
}

// dispatch runs the type-erased single-handler path: resolve, fire
// hooks, build the pipeline, invoke.
func (m *Mediator) dispatch(ctx context.Context, t reflect.Type, req any, extraTags []string) (any, error) {
	tags := effectiveTags(m.globalTags, req, extraTags)
	reg, ok := resolveSingle(m.registry, t, tags)
	if !ok {
		m.hooks.fireUnresolved(ctx, Info{Kind: KindRequest, RequestType: t})
		return nil, &UnresolvedError{Kind: KindRequest, RequestType: t, Tags: tags}
	}
	info := Info{Kind: KindRequest, RequestType: t, Handler: reg.handler, Tag: reg.tag}
	ctx = m.hooks.fireDispatch(ctx, info)
	inv := m.build(reg, tags)
	start := time.Now()
	res, err := inv(ctx, req)
	if err != nil {
		m.hooks.fireFailure(ctx, info, err, time.Since(start))
		return nil, err
	}
	m.hooks.fireSuccess(ctx, info, time.Since(start))
	return res, nil
}

// responseAs narrows the type-erased pipeline result back to R. A nil
// result maps to the zero value, which lets middleware short-circuit a
// call without manufacturing a response.
func responseAs[R any](res any) (R, error) {
	var zero R
	if res == nil {
		return zero, nil
	}
	r, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("requestum: pipeline produced %T, want %s", res, reflect.TypeOf((*R)(nil)).Elem())
	}
	return r, nil
}
