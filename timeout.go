package requestum

import (
	"context"
	"errors"
	"reflect"
	"time"
)

// errAttemptTimeout is the cancellation cause installed by the timeout
// decorator, so it can tell its own timer from the caller's signal.
var errAttemptTimeout = errors.New("requestum: attempt timeout")

// withTimeout wraps next so every invocation runs under its own
// deadline. A fault caused by the local timer becomes a TimeoutError;
// a fault caused by the caller's own cancellation passes through
// unchanged. The timer is released on every exit path.
func withTimeout(handler reflect.Type, limit time.Duration, next Invoker[any, any]) Invoker[any, any] {
	return func(ctx context.Context, req any) (any, error) {
		tctx, cancel := context.WithTimeoutCause(ctx, limit, errAttemptTimeout)
		defer cancel()
		res, err := next(tctx, req)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) && errors.Is(context.Cause(tctx), errAttemptTimeout) {
			return nil, &TimeoutError{Handler: handler, Limit: limit, err: err}
		}
		return nil, err
	}
}
