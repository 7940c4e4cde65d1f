package requestum

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// withRetry wraps next with bounded re-invocation. Every failed
// attempt's error is collected; exhausting the attempts yields an
// AggregateError carrying the causes in attempt order. Caller
// cancellation aborts the loop and is propagated as the context error,
// never folded into the aggregate.
func withRetry(pol Policy, next Invoker[any, any]) Invoker[any, any] {
	return func(ctx context.Context, req any) (any, error) {
		var wait backoff.BackOff
		if pol.Backoff != nil {
			wait = pol.Backoff()
		}
		causes := make([]error, 0, pol.Attempts)
		for attempt := 0; attempt < pol.Attempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if attempt > 0 && wait != nil {
				d := wait.NextBackOff()
				if d == backoff.Stop {
					break
				}
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(d):
				}
			}
			res, err := next(ctx, req)
			if err == nil {
				return res, nil
			}
			if cerr := ctx.Err(); cerr != nil {
				return nil, cerr
			}
			causes = append(causes, err)
		}
		return nil, &AggregateError{Causes: causes}
	}
}
