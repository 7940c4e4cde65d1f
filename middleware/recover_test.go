package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/PogovorovDaniil/Requestum"
)

func TestRecover(t *testing.T) {
	mw := Recover()

	t.Run("converts a panic into PanicError", func(t *testing.T) {
		res, err := mw.Invoke(context.Background(), reserveStock{}, func(ctx context.Context, req any) (any, error) {
			panic("stock table corrupted")
		})
		if res != nil {
			t.Errorf("res = %v, want nil", res)
		}

		var perr *requestum.PanicError
		if !errors.As(err, &perr) {
			t.Fatalf("error = %v, want *requestum.PanicError", err)
		}
		if perr.Value != "stock table corrupted" {
			t.Errorf("panic value = %v, want the panic message", perr.Value)
		}
		if len(perr.Stack) == 0 {
			t.Error("panic stack is empty")
		}
	})

	t.Run("passes results through untouched", func(t *testing.T) {
		res, err := mw.Invoke(context.Background(), reserveStock{}, func(ctx context.Context, req any) (any, error) {
			return "r-1", nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res != "r-1" {
			t.Errorf("res = %v, want r-1", res)
		}
	})

	t.Run("leaves ordinary errors alone", func(t *testing.T) {
		want := errors.New("out of stock")
		_, err := mw.Invoke(context.Background(), reserveStock{}, func(ctx context.Context, req any) (any, error) {
			return nil, want
		})
		if !errors.Is(err, want) {
			t.Errorf("error = %v, want %v", err, want)
		}
		var perr *requestum.PanicError
		if errors.As(err, &perr) {
			t.Error("ordinary error converted to PanicError")
		}
	})
}
