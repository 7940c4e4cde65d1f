package middleware

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestCorrelation(t *testing.T) {
	mw := Correlation()

	t.Run("stamps a fresh ID", func(t *testing.T) {
		var id string
		var ok bool
		_, err := mw.Invoke(context.Background(), reserveStock{}, func(ctx context.Context, req any) (any, error) {
			id, ok = CorrelationID(ctx)
			return nil, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatal("no correlation ID in the handler context")
		}
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("ID %q is not a UUID: %v", id, err)
		}
	})

	t.Run("keeps an existing ID", func(t *testing.T) {
		var outer, inner string
		_, err := mw.Invoke(context.Background(), reserveStock{}, func(ctx context.Context, req any) (any, error) {
			outer, _ = CorrelationID(ctx)

			// A nested dispatch passes through the middleware again.
			return mw.Invoke(ctx, reserveStock{}, func(ctx context.Context, req any) (any, error) {
				inner, _ = CorrelationID(ctx)
				return nil, nil
			})
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if outer == "" || outer != inner {
			t.Errorf("inner ID %q, want the outer %q", inner, outer)
		}
	})

	t.Run("absent outside the middleware", func(t *testing.T) {
		if id, ok := CorrelationID(context.Background()); ok {
			t.Errorf("unexpected ID %q", id)
		}
	})
}
