package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PogovorovDaniil/Requestum"
)

// Logger defines the logging surface of the middleware. It is a subset
// of *slog.Logger's methods, so a slog logger satisfies it directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Logging returns middleware that logs every dispatch passing through
// it: debug on success, error on failure, both with the elapsed time.
// A nil logger uses slog.Default().
func Logging(log Logger) requestum.Middleware[any, any] {
	if log == nil {
		log = slog.Default()
	}
	return requestum.MiddlewareFunc[any, any](func(ctx context.Context, req any, next requestum.Invoker[any, any]) (any, error) {
		name := fmt.Sprintf("%T", req)
		start := time.Now()
		res, err := next(ctx, req)
		if err != nil {
			log.Error("dispatch failed", "request", name, "error", err, "duration", time.Since(start))
			return nil, err
		}
		log.Debug("dispatch completed", "request", name, "duration", time.Since(start))
		return res, nil
	})
}
