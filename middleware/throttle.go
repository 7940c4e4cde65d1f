package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/PogovorovDaniil/Requestum"
)

// Throttle returns middleware that admits dispatches through the given
// limiter. It blocks until a token is available; when the context is
// done first, the limiter's error stops the pipeline and the handler
// never runs.
//
// Example:
//
//	lim := rate.NewLimiter(rate.Limit(100), 10)
//	requestum.Use(m, middleware.Throttle(lim), requestum.ForTag("external"))
func Throttle(l *rate.Limiter) requestum.Middleware[any, any] {
	return requestum.MiddlewareFunc[any, any](func(ctx context.Context, req any, next requestum.Invoker[any, any]) (any, error) {
		if err := l.Wait(ctx); err != nil {
			return nil, err
		}
		return next(ctx, req)
	})
}
