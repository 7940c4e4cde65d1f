package middleware

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/time/rate"
)

func TestThrottle(t *testing.T) {
	t.Run("admits dispatches with available tokens", func(t *testing.T) {
		mw := Throttle(rate.NewLimiter(rate.Inf, 0))

		calls := 0
		res, err := mw.Invoke(context.Background(), reserveStock{}, func(ctx context.Context, req any) (any, error) {
			calls++
			return "r-1", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res != "r-1" || calls != 1 {
			t.Errorf("res = %v with %d calls, want r-1 with 1", res, calls)
		}
	})

	t.Run("a done context stops the pipeline", func(t *testing.T) {
		lim := rate.NewLimiter(rate.Limit(1), 1)
		lim.Allow() // drain the burst so Wait must block
		mw := Throttle(lim)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		_, err := mw.Invoke(ctx, reserveStock{}, func(ctx context.Context, req any) (any, error) {
			calls++
			return nil, nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want %v", err, context.Canceled)
		}
		if calls != 0 {
			t.Errorf("next ran %d times, want 0", calls)
		}
	})
}
