package requestum

import (
	"context"
	"reflect"
	"time"
)

// Info identifies one dispatch for hook callbacks. For event fan-out the
// success and failure hooks fire once per receiver with Handler set to
// that receiver's type.
type Info struct {
	Kind        Kind
	RequestType reflect.Type
	Handler     reflect.Type // nil when unresolved
	Tag         string       // matched registration tag, "" if untagged
}

// OnDispatchFunc is called after resolution, just before the pipeline
// runs. The returned context is used for the rest of the call; return
// nil to keep the current one.
type OnDispatchFunc func(ctx context.Context, info Info) context.Context

// OnSuccessFunc is called after the pipeline completes successfully.
type OnSuccessFunc func(ctx context.Context, info Info, duration time.Duration)

// OnFailureFunc is called after the pipeline fails.
type OnFailureFunc func(ctx context.Context, info Info, err error, duration time.Duration)

// OnUnresolvedFunc is called when resolution finds no registration. The
// dispatch still returns an UnresolvedError; the hook observes.
type OnUnresolvedFunc func(ctx context.Context, info Info)

// hooks holds all configured hook functions.
type hooks struct {
	onDispatch   []OnDispatchFunc
	onSuccess    []OnSuccessFunc
	onFailure    []OnFailureFunc
	onUnresolved []OnUnresolvedFunc
}

// WithOnDispatch adds a hook called just before the pipeline runs.
// Multiple hooks are called in order, with context chaining through
// each.
//
// Example:
//
//	requestum.WithOnDispatch(func(ctx context.Context, info requestum.Info) context.Context {
//	    return logx.WithCtx(ctx, slog.String("request", info.RequestType.String()))
//	})
func WithOnDispatch(fn OnDispatchFunc) Option {
	return func(m *Mediator) {
		m.hooks.onDispatch = append(m.hooks.onDispatch, fn)
	}
}

// WithOnSuccess adds a hook called after the pipeline completes.
// Multiple hooks are called in order.
func WithOnSuccess(fn OnSuccessFunc) Option {
	return func(m *Mediator) {
		m.hooks.onSuccess = append(m.hooks.onSuccess, fn)
	}
}

// WithOnFailure adds a hook called after the pipeline fails.
// Multiple hooks are called in order.
//
// Example:
//
//	requestum.WithOnFailure(func(ctx context.Context, info requestum.Info, err error, d time.Duration) {
//	    metrics.Incr("dispatch.failure", "request:"+info.RequestType.String())
//	})
func WithOnFailure(fn OnFailureFunc) Option {
	return func(m *Mediator) {
		m.hooks.onFailure = append(m.hooks.onFailure, fn)
	}
}

// WithOnUnresolved adds a hook called when no registration matches.
// Multiple hooks are called in order.
func WithOnUnresolved(fn OnUnresolvedFunc) Option {
	return func(m *Mediator) {
		m.hooks.onUnresolved = append(m.hooks.onUnresolved, fn)
	}
}

func (h *hooks) fireDispatch(ctx context.Context, info Info) context.Context {
	for _, fn := range h.onDispatch {
		if next := fn(ctx, info); next != nil {
			ctx = next
		}
	}
	return ctx
}

func (h *hooks) fireSuccess(ctx context.Context, info Info, d time.Duration) {
	for _, fn := range h.onSuccess {
		fn(ctx, info, d)
	}
}

func (h *hooks) fireFailure(ctx context.Context, info Info, err error, d time.Duration) {
	for _, fn := range h.onFailure {
		fn(ctx, info, err, d)
	}
}

func (h *hooks) fireUnresolved(ctx context.Context, info Info) {
	for _, fn := range h.onUnresolved {
		fn(ctx, info)
	}
}
