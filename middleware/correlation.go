package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/PogovorovDaniil/Requestum"
)

type correlationKey struct{}

// Correlation returns middleware that stamps a correlation ID into the
// context when none is present. Nested dispatches issued by a handler
// inherit the outermost call's ID, so one logical operation shares one
// ID end to end.
func Correlation() requestum.Middleware[any, any] {
	return requestum.MiddlewareFunc[any, any](func(ctx context.Context, req any, next requestum.Invoker[any, any]) (any, error) {
		if _, ok := CorrelationID(ctx); !ok {
			ctx = context.WithValue(ctx, correlationKey{}, uuid.New().String())
		}
		return next(ctx, req)
	})
}

// CorrelationID returns the correlation ID stamped by Correlation.
func CorrelationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationKey{}).(string)
	return id, ok
}
