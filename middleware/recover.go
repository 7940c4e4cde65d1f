package middleware

import (
	"context"
	"runtime/debug"

	"github.com/PogovorovDaniil/Requestum"
)

// Recover returns middleware that converts a panic anywhere downstream,
// in inner middleware or the handler itself, into a
// *requestum.PanicError carrying the panic value and stack trace.
// Install it first so it sits outermost.
func Recover() requestum.Middleware[any, any] {
	return requestum.MiddlewareFunc[any, any](func(ctx context.Context, req any, next requestum.Invoker[any, any]) (res any, err error) {
		defer func() {
			if v := recover(); v != nil {
				res = nil
				err = &requestum.PanicError{Value: v, Stack: debug.Stack()}
			}
		}()
		return next(ctx, req)
	})
}
